package history

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS communication_history (
	id TEXT PRIMARY KEY,
	phrase TEXT NOT NULL,
	category TEXT NOT NULL DEFAULT '',
	source TEXT NOT NULL DEFAULT 'manual',
	emotion TEXT NOT NULL DEFAULT '',
	location_label TEXT NOT NULL DEFAULT '',
	person_label TEXT NOT NULL DEFAULT '',
	spoken_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_history_spoken_at ON communication_history(spoken_at DESC);
`

// SQLiteSink stores history in a local SQLite database.
type SQLiteSink struct {
	db *sql.DB
}

// NewSQLiteSink opens (creating if necessary) the history database under the
// given data directory.
func NewSQLiteSink(dataPath string) (*SQLiteSink, error) {
	if err := os.MkdirAll(dataPath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataPath, "history.db")
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)", url.PathEscape(dbPath))

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one concurrent writer. A single open connection
	// serialises writes and avoids SQLITE_BUSY errors under concurrent load;
	// WAL mode lets readers proceed without blocking the writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteSink{db: db}, nil
}

// Append stores one record.
func (s *SQLiteSink) Append(ctx context.Context, record Record) error {
	if record.Phrase == "" {
		return fmt.Errorf("history record requires a phrase")
	}
	if record.SpokenAt.IsZero() {
		record.SpokenAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO communication_history
			(id, phrase, category, source, emotion, location_label, person_label, spoken_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID, record.Phrase, record.Category, record.Source,
		record.Emotion, record.LocationLabel, record.PersonLabel, record.SpokenAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to append history record: %w", err)
	}
	return nil
}

// Recent returns up to limit records, newest first.
func (s *SQLiteSink) Recent(ctx context.Context, limit int) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, phrase, category, source, emotion, location_label, person_label, spoken_at
		FROM communication_history
		ORDER BY spoken_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// Close closes the underlying database.
func (s *SQLiteSink) Close() error {
	return s.db.Close()
}

// scanRecords reads history rows into records. Shared with the Postgres sink,
// which produces an identical column order.
func scanRecords(rows *sql.Rows) ([]Record, error) {
	var records []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.ID, &r.Phrase, &r.Category, &r.Source,
			&r.Emotion, &r.LocationLabel, &r.PersonLabel, &r.SpokenAt); err != nil {
			return nil, fmt.Errorf("failed to scan history record: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate history rows: %w", err)
	}
	return records, nil
}

var _ Sink = (*SQLiteSink)(nil)
