package storage

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// schemaStatements create the ledger schema. The types are accepted by
// both SQLite and PostgreSQL. Timestamps are stored as Unix milliseconds
// so range filters compare numerically on every driver.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS generations (
    id TEXT PRIMARY KEY,
    request_id TEXT NOT NULL DEFAULT '',
    session_id TEXT NOT NULL DEFAULT '',
    user_id TEXT NOT NULL,
    provider TEXT NOT NULL,
    provider_type TEXT NOT NULL,
    transport TEXT NOT NULL,
    mode TEXT NOT NULL,
    status TEXT NOT NULL,
    error_type TEXT NOT NULL DEFAULT '',
    error TEXT NOT NULL DEFAULT '',
    chunks INTEGER NOT NULL DEFAULT 0,
    bytes INTEGER NOT NULL DEFAULT 0,
    output_hash TEXT NOT NULL DEFAULT '',
    prompt_tokens INTEGER NOT NULL DEFAULT 0,
    completion_tokens INTEGER NOT NULL DEFAULT 0,
    started_at BIGINT NOT NULL,
    duration_ms BIGINT NOT NULL,
    recorded_at BIGINT NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at BIGINT NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_generations_started_at ON generations(started_at)`,
	`CREATE INDEX IF NOT EXISTS idx_generations_user_id ON generations(user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_generations_provider ON generations(provider)`,
}

const insertSchemaVersion = `INSERT INTO schema_version (version, applied_at) VALUES (?, ?) ON CONFLICT (version) DO NOTHING`

const getSchemaVersion = `SELECT version FROM schema_version ORDER BY version DESC LIMIT 1`

const recordColumns = `id, request_id, session_id, user_id, provider, provider_type, transport, mode, status,
    error_type, error, chunks, bytes, output_hash, prompt_tokens, completion_tokens,
    started_at, duration_ms, recorded_at`
