package db

// schemaVersion is recorded in schema_info at initialization; Open refuses
// a database written by an incompatible build.
const schemaVersion = "1"

// schema is the full database schema. Initialize executes it idempotently;
// there is no separate migration chain yet, the app owns its single data dir.
const schema = `
CREATE TABLE IF NOT EXISTS notes (
    id          INTEGER PRIMARY KEY,
    client_ref  TEXT NOT NULL DEFAULT '',
    title       TEXT NOT NULL DEFAULT '',
    body        TEXT NOT NULL DEFAULT '',
    created_at  INTEGER NOT NULL,
    updated_at  INTEGER NOT NULL,
    deleted     INTEGER NOT NULL DEFAULT 0,
    dirty       INTEGER NOT NULL DEFAULT 0,
    local_only  INTEGER NOT NULL DEFAULT 0,
    sync_state  TEXT NOT NULL DEFAULT 'synced'
);

CREATE INDEX IF NOT EXISTS idx_notes_updated_at ON notes(updated_at DESC);
CREATE INDEX IF NOT EXISTS idx_notes_client_ref ON notes(client_ref);

CREATE TABLE IF NOT EXISTS pending_operations (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    note_id     INTEGER NOT NULL DEFAULT 0,
    client_ref  TEXT NOT NULL DEFAULT '',
    op          TEXT NOT NULL,
    title       TEXT,
    body        TEXT,
    enqueued_at INTEGER NOT NULL,
    retry_count INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_pending_order ON pending_operations(enqueued_at, id);

CREATE TABLE IF NOT EXISTS schema_info (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`
