// Package store provides SQLite-backed persistence for the review queue
// and the fix-attempt history.
package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// schemaV1 defines the initial database schema.
const schemaV1 = `
CREATE TABLE IF NOT EXISTS review_queue (
	id           TEXT PRIMARY KEY,
	error_id     TEXT NOT NULL,
	priority     INTEGER NOT NULL DEFAULT 5,
	status       TEXT NOT NULL DEFAULT 'pending',
	payload_json TEXT NOT NULL DEFAULT '{}',
	queued_at    INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_review_status_priority ON review_queue(status, priority DESC, queued_at);

CREATE TABLE IF NOT EXISTS fix_history (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	analysis_id TEXT NOT NULL,
	error_type  TEXT NOT NULL,
	strategy    TEXT NOT NULL DEFAULT '',
	outcome     TEXT NOT NULL,
	success     INTEGER NOT NULL DEFAULT 0,
	duration_ms INTEGER NOT NULL DEFAULT 0,
	created_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_history_error_type ON fix_history(error_type);
`

// Open opens (creating if necessary) the SQLite database at path and applies
// the schema. Busy timeout keeps concurrent pipeline goroutines from
// tripping over writer locks.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	if _, err := db.ExecContext(ctx, schemaV1); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return db, nil
}
