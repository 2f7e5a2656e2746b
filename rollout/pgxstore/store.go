// Package pgxstore implements rollout.Store on top of github.com/jackc/pgx/v5,
// grounded on the teacher's driver/pgxv5.Store: a connection-pool-backed
// implementation sharing one `executor` interface between pool and
// transaction so every query can run against either (see executor below).
package pgxstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/browseragent/agentcore"
	"github.com/browseragent/agentcore/rollout"
)

// executor is satisfied by both *pgxpool.Pool and pgx.Tx, the way the
// teacher's driver/pgxv5 lets every query function take either.
type executor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store is the pgx/v5-backed rollout.Store.
type Store struct {
	pool *pgxpool.Pool
}

// New wraps an already-connected pool. Run Schema against the database
// before first use.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

var _ rollout.Store = (*Store)(nil)

func (s *Store) Create(ctx context.Context, conversationID uuid.UUID, instructions *string, ttlDays int, originator, agentVersion string) (rollout.Recorder, error) {
	now := time.Now().UTC()
	var expiresAt *time.Time
	if ttlDays >= 0 {
		t := now.AddDate(0, 0, ttlDays)
		expiresAt = &t
	}

	meta := agentcore.SessionMeta{
		ID:           conversationID,
		StartedAt:    now,
		Originator:   originator,
		AgentVersion: agentVersion,
		Instructions: instructions,
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return nil, &rollout.DatabaseError{Operation: "Create", Reason: "marshal session meta", Err: err}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, &rollout.DatabaseError{Operation: "Create", Reason: "begin transaction", Err: err}
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		INSERT INTO rollouts (id, created, updated, expires_at, session_meta, item_count, status)
		VALUES ($1, $2, $2, $3, $4, 1, 'active')
	`, conversationID, now, expiresAt, metaJSON); err != nil {
		return nil, &rollout.DatabaseError{Operation: "Create", Reason: "insert rollout", Err: err}
	}

	item := agentcore.RolloutItem{Tag: agentcore.RolloutSessionMeta, SessionMeta: &meta}
	if err := insertItem(ctx, tx, conversationID, now, 0, item); err != nil {
		return nil, &rollout.DatabaseError{Operation: "Create", Reason: "insert session_meta item", Err: err}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, &rollout.DatabaseError{Operation: "Create", Reason: "commit transaction", Err: err}
	}

	return &recorder{store: s, rolloutID: conversationID, mu: make(chan struct{}, 1), nextSequence: 1}, nil
}

func (s *Store) Resume(ctx context.Context, rolloutID uuid.UUID) (rollout.Recorder, error) {
	var last int64
	err := s.pool.QueryRow(ctx, `
		SELECT COALESCE(MAX(sequence), -1) FROM rollout_items WHERE rollout_id = $1
	`, rolloutID).Scan(&last)
	if err != nil {
		return nil, &rollout.DatabaseError{Operation: "Resume", Reason: "query last sequence", Err: err}
	}
	var metaJSON []byte
	if err := s.pool.QueryRow(ctx, `SELECT session_meta FROM rollouts WHERE id = $1`, rolloutID).Scan(&metaJSON); err != nil {
		if err == pgx.ErrNoRows {
			return nil, rollout.ErrRolloutNotFound
		}
		return nil, &rollout.DatabaseError{Operation: "Resume", Reason: "query session meta", Err: err}
	}

	// sjson lets us stamp a resume marker onto the stored payload without
	// unmarshaling the whole session_meta into agentcore.SessionMeta and
	// back just to add one field.
	if patched, err := sjson.SetBytes(metaJSON, "lastResumedAt", time.Now().UTC().Format(time.RFC3339Nano)); err == nil {
		if _, err := s.pool.Exec(ctx, `UPDATE rollouts SET session_meta = $2 WHERE id = $1`, rolloutID, patched); err != nil {
			return nil, &rollout.DatabaseError{Operation: "Resume", Reason: "stamp resume marker", Err: err}
		}
	}

	return &recorder{store: s, rolloutID: rolloutID, mu: make(chan struct{}, 1), nextSequence: last + 1}, nil
}

func (s *Store) GetHistory(ctx context.Context, rolloutID uuid.UUID) (rollout.History, error) {
	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM rollouts WHERE id = $1)`, rolloutID).Scan(&exists); err != nil {
		return rollout.History{}, &rollout.DatabaseError{Operation: "GetHistory", Reason: "check rollout exists", Err: err}
	}
	if !exists {
		return rollout.History{New: true, RolloutID: rolloutID}, nil
	}

	rows, err := s.pool.Query(ctx, `
		SELECT payload FROM rollout_items WHERE rollout_id = $1 ORDER BY sequence ASC
	`, rolloutID)
	if err != nil {
		return rollout.History{}, &rollout.DatabaseError{Operation: "GetHistory", Reason: "query items", Err: err}
	}
	defer rows.Close()

	var items []agentcore.RolloutItem
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return rollout.History{}, &rollout.DatabaseError{Operation: "GetHistory", Reason: "scan item", Err: err}
		}
		var item agentcore.RolloutItem
		if err := json.Unmarshal(payload, &item); err != nil {
			return rollout.History{}, &rollout.DatabaseError{Operation: "GetHistory", Reason: "unmarshal item", Err: err}
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return rollout.History{}, &rollout.DatabaseError{Operation: "GetHistory", Reason: "iterate items", Err: err}
	}

	return rollout.History{Resumed: true, RolloutID: rolloutID, Items: items}, nil
}

func (s *Store) ListConversations(ctx context.Context, pageSize int, cursor *agentcore.Cursor) (rollout.Page, error) {
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > agentcore.MaxListConversationsPageSize {
		pageSize = agentcore.MaxListConversationsPageSize
	}

	query := `SELECT id, created, updated, session_meta, item_count FROM rollouts`
	var args []any
	if cursor != nil {
		query += ` WHERE (updated, id) < ($1, $2)`
		args = append(args, cursor.Timestamp, cursor.ID)
	}
	query += fmt.Sprintf(` ORDER BY updated DESC, id DESC LIMIT %d`, agentcore.ListConversationsScanCap+1)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return rollout.Page{}, &rollout.DatabaseError{Operation: "ListConversations", Reason: "query rollouts", Err: err}
	}
	defer rows.Close()

	var page rollout.Page
	scanned := 0
	for rows.Next() {
		scanned++
		if scanned > agentcore.ListConversationsScanCap {
			page.ReachedCap = true
			break
		}

		var id uuid.UUID
		var created, updated time.Time
		var metaJSON []byte
		var itemCount int
		if err := rows.Scan(&id, &created, &updated, &metaJSON, &itemCount); err != nil {
			return rollout.Page{}, &rollout.DatabaseError{Operation: "ListConversations", Reason: "scan rollout", Err: err}
		}

		// gjson lets us confirm the row actually carries a session_meta
		// payload ("skips rows lacking sessionMeta", §4.1) without paying
		// for a full struct unmarshal on rows we might skip.
		if !gjson.GetBytes(metaJSON, "id").Exists() {
			continue
		}

		var meta agentcore.SessionMeta
		if err := json.Unmarshal(metaJSON, &meta); err != nil {
			return rollout.Page{}, &rollout.DatabaseError{Operation: "ListConversations", Reason: "unmarshal session meta", Err: err}
		}

		head, tail, err := s.headTail(ctx, id)
		if err != nil {
			return rollout.Page{}, err
		}

		page.Conversations = append(page.Conversations, rollout.Summary{
			ID: id, Created: created, Updated: updated, SessionMeta: meta,
			Head: head, Tail: tail, ItemCount: itemCount,
		})

		if len(page.Conversations) >= pageSize {
			page.NextCursor = &agentcore.Cursor{Timestamp: updated, ID: id}
			break
		}
	}
	if err := rows.Err(); err != nil {
		return rollout.Page{}, &rollout.DatabaseError{Operation: "ListConversations", Reason: "iterate rollouts", Err: err}
	}

	// No more rows to give out past what we already emitted.
	if len(page.Conversations) < pageSize {
		page.NextCursor = nil
	}

	return page, nil
}

func (s *Store) headTail(ctx context.Context, rolloutID uuid.UUID) (head, tail []agentcore.RolloutItem, err error) {
	rows, err := s.pool.Query(ctx, `
		SELECT payload FROM rollout_items WHERE rollout_id = $1 ORDER BY sequence ASC LIMIT 5
	`, rolloutID)
	if err != nil {
		return nil, nil, &rollout.DatabaseError{Operation: "ListConversations", Reason: "query head items", Err: err}
	}
	head, err = scanItems(rows)
	if err != nil {
		return nil, nil, err
	}

	rows, err = s.pool.Query(ctx, `
		SELECT payload FROM rollout_items WHERE rollout_id = $1 ORDER BY sequence DESC LIMIT 5
	`, rolloutID)
	if err != nil {
		return nil, nil, &rollout.DatabaseError{Operation: "ListConversations", Reason: "query tail items", Err: err}
	}
	tailDesc, err := scanItems(rows)
	if err != nil {
		return nil, nil, err
	}
	tail = make([]agentcore.RolloutItem, len(tailDesc))
	for i, it := range tailDesc {
		tail[len(tailDesc)-1-i] = it
	}
	return head, tail, nil
}

func scanItems(rows pgx.Rows) ([]agentcore.RolloutItem, error) {
	defer rows.Close()
	var items []agentcore.RolloutItem
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, &rollout.DatabaseError{Operation: "ListConversations", Reason: "scan item", Err: err}
		}
		var item agentcore.RolloutItem
		if err := json.Unmarshal(payload, &item); err != nil {
			return nil, &rollout.DatabaseError{Operation: "ListConversations", Reason: "unmarshal item", Err: err}
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (s *Store) CleanupExpired(ctx context.Context, now time.Time) (int64, error) {
	rows, err := s.pool.Query(ctx, `SELECT id FROM rollouts WHERE expires_at IS NOT NULL AND expires_at < $1`, now)
	if err != nil {
		return 0, &rollout.DatabaseError{Operation: "CleanupExpired", Reason: "query expired rollouts", Err: err}
	}
	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, &rollout.DatabaseError{Operation: "CleanupExpired", Reason: "scan expired rollout", Err: err}
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, &rollout.DatabaseError{Operation: "CleanupExpired", Reason: "iterate expired rollouts", Err: err}
	}

	var count int64
	for _, id := range ids {
		// The first failed delete aborts the run: the remaining rollouts
		// are not attempted, and the count achieved so far is returned
		// with the error.
		if _, err := s.pool.Exec(ctx, `DELETE FROM rollouts WHERE id = $1`, id); err != nil {
			return count, &rollout.DatabaseError{Operation: "CleanupExpired", Reason: "delete rollout", Err: err}
		}
		count++
	}
	return count, nil
}

func (s *Store) GetStorageStats(ctx context.Context) (rollout.Stats, error) {
	var stats rollout.Stats
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*), COALESCE(SUM(octet_length(session_meta::text)), 0) FROM rollouts`).
		Scan(&stats.RolloutCount, &stats.RolloutBytes)
	if err != nil {
		return stats, &rollout.DatabaseError{Operation: "GetStorageStats", Reason: "aggregate rollouts", Err: err}
	}
	err = s.pool.QueryRow(ctx, `SELECT COUNT(*), COALESCE(SUM(octet_length(payload::text)), 0) FROM rollout_items`).
		Scan(&stats.ItemCount, &stats.ItemBytes)
	if err != nil {
		return stats, &rollout.DatabaseError{Operation: "GetStorageStats", Reason: "aggregate items", Err: err}
	}
	return stats, nil
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func insertItem(ctx context.Context, e executor, rolloutID uuid.UUID, ts time.Time, seq int64, item agentcore.RolloutItem) error {
	payload, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("marshal item: %w", err)
	}
	_, err = e.Exec(ctx, `
		INSERT INTO rollout_items (rollout_id, timestamp, sequence, type, payload)
		VALUES ($1, $2, $3, $4, $5)
	`, rolloutID, ts, seq, string(item.Tag), payload)
	return err
}

// recorder serializes writes to one rollout behind a mutex-guarded
// nextSequence counter, the way the spec requires "concurrent appends
// within the same recorder are serialized by a write queue" (§4.1).
type recorder struct {
	store        *Store
	rolloutID    uuid.UUID
	mu           chan struct{} // 1-buffered, acts as a non-reentrant mutex honoring ctx cancellation
	nextSequence int64
}

func (r *recorder) lock(ctx context.Context) error {
	select {
	case r.mu <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *recorder) unlock() { <-r.mu }

func (r *recorder) RolloutID() uuid.UUID { return r.rolloutID }

func (r *recorder) Append(ctx context.Context, items []agentcore.RolloutItem) error {
	filtered := rollout.FilterPersisted(items)
	if len(filtered) == 0 {
		return nil
	}

	if err := r.lock(ctx); err != nil {
		return err
	}
	defer r.unlock()

	tx, err := r.store.pool.Begin(ctx)
	if err != nil {
		return &rollout.DatabaseError{Operation: "Append", Reason: "begin transaction", Err: err}
	}
	defer tx.Rollback(ctx)

	now := time.Now().UTC()
	seq := r.nextSequence
	for _, item := range filtered {
		if err := insertItem(ctx, tx, r.rolloutID, now, seq, item); err != nil {
			return &rollout.DatabaseError{Operation: "Append", Reason: "insert item", Err: err}
		}
		seq++
	}

	if _, err := tx.Exec(ctx, `
		UPDATE rollouts SET updated = $2, item_count = item_count + $3 WHERE id = $1
	`, r.rolloutID, now, len(filtered)); err != nil {
		return &rollout.DatabaseError{Operation: "Append", Reason: "update rollout metadata", Err: err}
	}

	if err := tx.Commit(ctx); err != nil {
		return &rollout.DatabaseError{Operation: "Append", Reason: "commit transaction", Err: err}
	}

	r.nextSequence = seq
	return nil
}

func (r *recorder) Flush(ctx context.Context) error {
	// Every Append already commits before returning, so there is nothing
	// queued to flush; this exists to satisfy the Recorder contract and to
	// give callers a point to wait on if a future implementation batches
	// writes.
	return nil
}

func (r *recorder) Close(ctx context.Context) error {
	return r.Flush(ctx)
}
