package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS communication_history (
	id TEXT PRIMARY KEY,
	phrase TEXT NOT NULL,
	category TEXT NOT NULL DEFAULT '',
	source TEXT NOT NULL DEFAULT 'manual',
	emotion TEXT NOT NULL DEFAULT '',
	location_label TEXT NOT NULL DEFAULT '',
	person_label TEXT NOT NULL DEFAULT '',
	spoken_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_history_spoken_at ON communication_history(spoken_at DESC);
`

// PostgresSink stores history in PostgreSQL, for deployments where several
// devices share one caregiver-visible history.
type PostgresSink struct {
	db *sql.DB
}

// NewPostgresSink connects to the database described by dsn and ensures the
// schema exists.
func NewPostgresSink(dsn string) (*PostgresSink, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	if _, err := db.Exec(postgresSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &PostgresSink{db: db}, nil
}

// Append stores one record.
func (s *PostgresSink) Append(ctx context.Context, record Record) error {
	if record.Phrase == "" {
		return fmt.Errorf("history record requires a phrase")
	}
	if record.SpokenAt.IsZero() {
		record.SpokenAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO communication_history
			(id, phrase, category, source, emotion, location_label, person_label, spoken_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		record.ID, record.Phrase, record.Category, record.Source,
		record.Emotion, record.LocationLabel, record.PersonLabel, record.SpokenAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to append history record: %w", err)
	}
	return nil
}

// Recent returns up to limit records, newest first.
func (s *PostgresSink) Recent(ctx context.Context, limit int) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, phrase, category, source, emotion, location_label, person_label, spoken_at
		FROM communication_history
		ORDER BY spoken_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// Close closes the underlying database.
func (s *PostgresSink) Close() error {
	return s.db.Close()
}

var _ Sink = (*PostgresSink)(nil)
