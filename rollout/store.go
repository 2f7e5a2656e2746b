// Package rollout implements the durable, append-only, indexed log of a
// conversation's items described in spec §4.1: a metadata row per
// conversation plus a sequence-ordered items log, TTL expiry, and
// cursor-paginated listing. Store is the storage-agnostic contract;
// rollout/pgxstore provides a github.com/jackc/pgx/v5-backed implementation,
// grounded on the teacher's storage.Store + driver/pgxv5 pair.
package rollout

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/browseragent/agentcore"
)

// ErrRolloutNotFound is returned by Resume when rolloutId has no metadata row.
var ErrRolloutNotFound = errors.New("rollout not found")

// Status is the lifecycle state of a rollout's metadata row.
type Status string

const (
	StatusActive  Status = "active"
	StatusArchived Status = "archived"
	StatusExpired  Status = "expired"
)

// Meta is the `rollouts` table row (§4.1, §6).
type Meta struct {
	ID        uuid.UUID
	Created   time.Time
	Updated   time.Time
	ExpiresAt *time.Time
	SessionMeta agentcore.SessionMeta
	ItemCount int
	Status    Status
}

// ItemRow is one `items` table row.
type ItemRow struct {
	RolloutID uuid.UUID
	Timestamp time.Time
	Sequence  int64
	Item      agentcore.RolloutItem
}

// Summary is one entry of a listConversations Page.
type Summary struct {
	ID        uuid.UUID
	Created   time.Time
	Updated   time.Time
	SessionMeta agentcore.SessionMeta
	Head      []agentcore.RolloutItem // ≤5
	Tail      []agentcore.RolloutItem // ≤5
	ItemCount int
}

// Page is the result of listConversations.
type Page struct {
	Conversations []Summary
	NextCursor    *agentcore.Cursor
	ReachedCap    bool
}

// History is the result of getHistory: either a fresh (never-persisted)
// conversation or the full resumed item log.
type History struct {
	New       bool
	Resumed   bool
	RolloutID uuid.UUID
	Items     []agentcore.RolloutItem
}

// Stats is the result of getStorageStats.
type Stats struct {
	RolloutCount int64
	ItemCount    int64
	RolloutBytes int64
	ItemBytes    int64
}

// DatabaseError wraps an I/O failure with the operation and a caller-safe
// reason, matching §4.1's "Open/transaction/cursor errors surface as typed
// DatabaseError{operation, reason}".
type DatabaseError struct {
	Operation string
	Reason    string
	Err       error
}

func (e *DatabaseError) Error() string { return e.Operation + ": " + e.Reason }
func (e *DatabaseError) Unwrap() error { return e.Err }

// Store is the durable RolloutStore contract (§4.1).
type Store interface {
	// Create validates conversationId, computes expiresAt from ttlDays (a
	// negative ttlDays means permanent), writes the metadata row and
	// appends a session_meta item at sequence 0, and returns a Recorder
	// bound to it.
	Create(ctx context.Context, conversationID uuid.UUID, instructions *string, ttlDays int, originator, agentVersion string) (Recorder, error)

	// Resume loads existing metadata (ErrRolloutNotFound if absent) and
	// returns a Recorder whose next append starts at last+1.
	Resume(ctx context.Context, rolloutID uuid.UUID) (Recorder, error)

	// ListConversations returns newest-first summaries, descending by
	// Updated, honoring the scan cap and opaque cursor of §4.1.
	ListConversations(ctx context.Context, pageSize int, cursor *agentcore.Cursor) (Page, error)

	// GetHistory loads every item of rolloutID in sequence order.
	GetHistory(ctx context.Context, rolloutID uuid.UUID) (History, error)

	// CleanupExpired deletes every rollout (and its items) whose expiresAt
	// is before now; rollouts with no expiresAt are never touched (I8).
	// Best-effort: the count achieved before any hard failure is still
	// returned alongside the error.
	CleanupExpired(ctx context.Context, now time.Time) (int64, error)

	// GetStorageStats returns exact row counts and serialized-length size
	// estimates.
	GetStorageStats(ctx context.Context) (Stats, error)

	// Close releases the store's resources (e.g. a connection pool).
	Close() error
}

// Recorder serializes writes to one rollout. Recorders must not be shared
// across sessions (§5).
type Recorder interface {
	// RolloutID is the conversation this recorder writes to.
	RolloutID() uuid.UUID

	// Append filters items through the persistence policy, then writes the
	// surviving ones in order with consecutive sequence numbers in a single
	// transaction (I1): all-or-nothing per call.
	Append(ctx context.Context, items []agentcore.RolloutItem) error

	// Flush returns once every queued write is durable.
	Flush(ctx context.Context) error

	// Close flushes then releases the underlying handle. Idempotent.
	Close(ctx context.Context) error
}
