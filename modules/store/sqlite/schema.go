package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

const schemaVersion = 1

// schemaStatements are executed in order to create the database schema.
// All use IF NOT EXISTS for idempotent re-application. Timestamps are
// UTC unix nanoseconds so ordering is numeric.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS messages (
		id          TEXT    PRIMARY KEY,
		sender_id   TEXT    NOT NULL,
		receiver_id TEXT    NOT NULL,
		content     TEXT    NOT NULL,
		created_at  INTEGER NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_messages_sender ON messages(sender_id, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_messages_receiver ON messages(receiver_id, created_at)`,

	`CREATE TABLE IF NOT EXISTS users (
		user_id    TEXT    PRIMARY KEY,
		email      TEXT    NOT NULL DEFAULT '',
		phone      TEXT    NOT NULL DEFAULT '',
		attributes TEXT    NOT NULL DEFAULT '{}',
		updated_at INTEGER NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS matches (
		user_id           TEXT    NOT NULL,
		match_user_id     TEXT    NOT NULL,
		score             REAL    NOT NULL,
		name              TEXT    NOT NULL DEFAULT '',
		age               INTEGER,
		city              TEXT    NOT NULL DEFAULT '',
		tagline           TEXT    NOT NULL DEFAULT '',
		overlap_interests TEXT    NOT NULL DEFAULT '[]',
		PRIMARY KEY (user_id, match_user_id)
	)`,

	`CREATE INDEX IF NOT EXISTS idx_matches_score ON matches(user_id, score DESC)`,

	`CREATE TABLE IF NOT EXISTS threads (
		thread_id  TEXT    PRIMARY KEY,
		user_id    TEXT    NOT NULL,
		title      TEXT    NOT NULL DEFAULT '',
		updated_at INTEGER NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_threads_user ON threads(user_id, updated_at DESC)`,
}

// migrate creates or updates the database schema to the latest version.
func migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY)"); err != nil {
		return fmt.Errorf("sqlite: create schema_version: %w", err)
	}

	var current int
	if err := db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&current); err != nil {
		return fmt.Errorf("sqlite: read schema version: %w", err)
	}

	if current >= schemaVersion {
		return nil
	}

	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sqlite: migrate: %w\nstatement: %s", err, stmt)
		}
	}

	if _, err := db.ExecContext(ctx, "INSERT OR REPLACE INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("sqlite: record schema version: %w", err)
	}

	return nil
}
