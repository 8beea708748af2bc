package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// schema is applied in order on every start; each statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS appointments (
		id             UUID PRIMARY KEY,
		doctor         TEXT NOT NULL,
		period         TEXT NOT NULL CHECK (period IN ('today', 'yesterday')),
		patient_name   TEXT NOT NULL,
		appointment_no INTEGER NOT NULL CHECK (appointment_no > 0),
		frozen         BOOLEAN NOT NULL DEFAULT FALSE,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (doctor, period, appointment_no)
	)`,
	`CREATE TABLE IF NOT EXISTS patient_status (
		doctor       TEXT NOT NULL,
		period       TEXT NOT NULL CHECK (period IN ('today', 'yesterday')),
		patient_name TEXT NOT NULL,
		is_available BOOLEAN NOT NULL DEFAULT FALSE,
		updated_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (doctor, period, patient_name)
	)`,
	`CREATE TABLE IF NOT EXISTS event_logs (
		id             BIGSERIAL PRIMARY KEY,
		event_type     TEXT NOT NULL,
		appointment_id UUID,
		payload        JSONB,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_event_logs_appointment ON event_logs (appointment_id)`,
}

// EnsureSchema creates the tables the API server needs.
func EnsureSchema(ctx context.Context, db Execer) error {
	for i, stmt := range schema {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema statement %d: %w", i+1, err)
		}
	}
	return nil
}
