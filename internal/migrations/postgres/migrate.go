package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"testdrive/pkg/logger"
)

// The unique constraint on the slot key is what makes a second booking of
// the same slot fail, no matter how many replicas race for it.
var statements = []string{
	`CREATE TABLE IF NOT EXISTS bookings (
		id              UUID PRIMARY KEY,
		registration_id TEXT        NOT NULL,
		resource_id     TEXT        NOT NULL CHECK (length(resource_id) BETWEEN 1 AND 100),
		date            TEXT        NOT NULL CHECK (date ~ '^\d{4}-\d{2}-\d{2}$'),
		time_label      TEXT        NOT NULL,
		vehicle         JSONB,
		registrant      JSONB       NOT NULL,
		session_id      TEXT        NOT NULL DEFAULT '',
		created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
		CONSTRAINT bookings_slot_unique UNIQUE (resource_id, date, time_label)
	)`,
	`CREATE INDEX IF NOT EXISTS bookings_created_idx ON bookings (created_at, id)`,
	`CREATE INDEX IF NOT EXISTS bookings_registration_idx ON bookings (registration_id)`,
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// RunMigration applies every statement in order. Each one is idempotent.
func RunMigration(ctx context.Context, db execer, log *logger.Logger) error {
	log.Info("Running PostgreSQL migrations", "statements", len(statements))

	for i, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply statement %d: %w", i+1, err)
		}
	}

	log.Info("PostgreSQL migrations applied")
	return nil
}
