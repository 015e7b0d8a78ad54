package db

import (
	"database/sql"
	"fmt"
)

// schema is the full database schema.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id            TEXT PRIMARY KEY,
    name          TEXT NOT NULL,
    email         TEXT NOT NULL UNIQUE,
    phone         TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    role          TEXT NOT NULL DEFAULT 'user' CHECK (role IN ('admin', 'user')),
    approved      INTEGER NOT NULL DEFAULT 0,
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS receivers (
    id            TEXT PRIMARY KEY,
    name          TEXT NOT NULL,
    email         TEXT NOT NULL UNIQUE,
    phone         TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    approved      INTEGER NOT NULL DEFAULT 0,
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS pickup_requests (
    id                       TEXT PRIMARY KEY,
    user_id                  TEXT NOT NULL,
    user_email               TEXT NOT NULL,
    full_name                TEXT NOT NULL,
    category                 TEXT NOT NULL DEFAULT '',
    recycle_item             TEXT NOT NULL,
    model                    TEXT NOT NULL DEFAULT '',
    device_condition         TEXT NOT NULL,
    device_image_url         TEXT NOT NULL DEFAULT '',
    accessories              TEXT NOT NULL DEFAULT '[]',
    pickup_date              TEXT NOT NULL,
    pickup_time              TEXT NOT NULL,
    address                  TEXT NOT NULL DEFAULT '',
    preferred_contact_number TEXT NOT NULL DEFAULT '',
    alternate_contact_number TEXT NOT NULL DEFAULT '',
    special_instructions     TEXT NOT NULL DEFAULT '',
    assigned_receiver        TEXT NOT NULL DEFAULT 'not-assigned',
    receiver_name            TEXT NOT NULL DEFAULT '',
    receiver_email           TEXT NOT NULL DEFAULT '',
    receiver_phone           TEXT NOT NULL DEFAULT '',
    status                   TEXT NOT NULL DEFAULT 'pending',
    collection_notes         TEXT NOT NULL DEFAULT '',
    collection_proof         TEXT NOT NULL DEFAULT '',
    created_at               DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at               DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_requests_user ON pickup_requests(user_id, created_at);
CREATE INDEX IF NOT EXISTS idx_requests_receiver ON pickup_requests(assigned_receiver, created_at);

CREATE TABLE IF NOT EXISTS notifications (
    id          TEXT PRIMARY KEY,
    user_id     TEXT,
    receiver_id TEXT,
    message     TEXT NOT NULL,
    is_read     INTEGER NOT NULL DEFAULT 0,
    created_at  DATETIME NOT NULL,
    CHECK ((user_id IS NULL) <> (receiver_id IS NULL))
);

CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications(user_id, created_at);
CREATE INDEX IF NOT EXISTS idx_notifications_receiver ON notifications(receiver_id, created_at);

CREATE TABLE IF NOT EXISTS feedback (
    id             TEXT PRIMARY KEY,
    name           TEXT NOT NULL,
    email          TEXT NOT NULL,
    phone          TEXT NOT NULL DEFAULT '',
    message        TEXT NOT NULL,
    admin_response TEXT NOT NULL DEFAULT '',
    created_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS uploads (
    id          TEXT PRIMARY KEY,
    mime        TEXT NOT NULL,
    data        BLOB NOT NULL,
    uploaded_by TEXT NOT NULL,
    created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS revoked_tokens (
    jti        TEXT PRIMARY KEY,
    expires_at DATETIME NOT NULL
);
`

// migrations is a list of SQL statements applied in order after schema creation.
// Each migration must be idempotent. Append new migrations at the end.
var migrations = []string{
	// Migration 1: collapse the legacy pickup status names onto the
	// canonical ones.
	`UPDATE pickup_requests SET status = 'collected'
	     WHERE status IN ('received', 'received_by_receiver')`,
	`UPDATE pickup_requests SET status = 'recycled'
	     WHERE status IN ('received by recycler', 'reached_recycler')`,
}

// EnsureSchema creates all tables and indexes if they don't already exist
// and applies pending data migrations.
func EnsureSchema(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}

	for i, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("running migration %d: %w", i+1, err)
		}
	}
	return nil
}
