package pgxstore

// Schema is the DDL outline of §6's durable schema: a metadata table indexed
// on updated/expiresAt/status, and an items table with the composite unique
// index (rolloutId, sequence) that backs invariant I1. Callers run this
// against their database during provisioning; the package does not run
// migrations itself (mirrors the teacher's storage/postgres.go, which also
// ships its DDL as a constant for the caller to apply).
const Schema = `
CREATE TABLE IF NOT EXISTS rollouts (
	id UUID PRIMARY KEY,
	created TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated TIMESTAMPTZ NOT NULL DEFAULT now(),
	expires_at TIMESTAMPTZ,
	session_meta JSONB NOT NULL,
	item_count INTEGER NOT NULL DEFAULT 0,
	status TEXT NOT NULL DEFAULT 'active'
);

CREATE INDEX IF NOT EXISTS idx_rollouts_updated ON rollouts (updated DESC);
CREATE INDEX IF NOT EXISTS idx_rollouts_expires_at ON rollouts (expires_at) WHERE expires_at IS NOT NULL;
CREATE INDEX IF NOT EXISTS idx_rollouts_status ON rollouts (status);

CREATE TABLE IF NOT EXISTS rollout_items (
	id BIGSERIAL PRIMARY KEY,
	rollout_id UUID NOT NULL REFERENCES rollouts(id) ON DELETE CASCADE,
	timestamp TIMESTAMPTZ NOT NULL DEFAULT now(),
	sequence BIGINT NOT NULL,
	type TEXT NOT NULL,
	payload JSONB NOT NULL,
	UNIQUE (rollout_id, sequence)
);

CREATE INDEX IF NOT EXISTS idx_rollout_items_rollout_id ON rollout_items (rollout_id);
CREATE INDEX IF NOT EXISTS idx_rollout_items_timestamp ON rollout_items (timestamp);
`
