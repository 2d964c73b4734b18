package repository

import (
	"context"
	"database/sql"
	"fmt"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS meetings (
		id                 UUID PRIMARY KEY,
		full_name          TEXT NOT NULL,
		email              TEXT NOT NULL,
		phone_number       TEXT NOT NULL,
		start_time         TIMESTAMPTZ NOT NULL,
		end_time           TIMESTAMPTZ NOT NULL,
		external_event_id  TEXT NOT NULL DEFAULT '',
		external_join_link TEXT NOT NULL DEFAULT '',
		status             TEXT NOT NULL DEFAULT 'Scheduled',
		notes              TEXT NOT NULL DEFAULT '',
		expires_at         TIMESTAMPTZ NOT NULL,
		created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT meetings_time_order CHECK (end_time > start_time),
		CONSTRAINT meetings_no_overlap EXCLUDE USING gist (tstzrange(start_time, end_time, '[)') WITH &&)
			WHERE (status <> 'Cancelled')
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS meetings_active_start_uidx ON meetings (start_time) WHERE status <> 'Cancelled'`,
	`CREATE INDEX IF NOT EXISTS meetings_start_time_idx ON meetings (start_time)`,
	`CREATE INDEX IF NOT EXISTS meetings_expires_at_idx ON meetings (expires_at)`,
	`CREATE TABLE IF NOT EXISTS calendar_credentials (
		resource_id TEXT PRIMARY KEY,
		sealed      BYTEA NOT NULL,
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

// Migrate creates the tables and indexes the Postgres stores rely on.
func Migrate(ctx context.Context, conn *sql.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("error applying schema: %w", err)
		}
	}
	return nil
}
