// Package archive provides persistent storage for generated replies.
// Records are append-only and indexed by conversation for later
// inspection and debugging.
package archive

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Record is one archived generation.
type Record struct {
	ID             string
	Timestamp      time.Time
	ConversationID string
	CallerID       string
	Prompt         string
	Content        string
	Reasoning      string
}

// Store is an append-only SQLite archive of generations. All public
// methods are safe for concurrent use (SQLite serializes writes).
type Store struct {
	db *sql.DB
}

// NewStore opens the archive database at the given path, creating the
// schema on first use.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open archive database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate archive schema: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS generations (
		id              TEXT PRIMARY KEY,
		timestamp       TEXT NOT NULL,
		conversation_id TEXT NOT NULL,
		caller_id       TEXT NOT NULL,
		prompt          TEXT NOT NULL,
		content         TEXT NOT NULL,
		reasoning       TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_generations_timestamp ON generations(timestamp);
	CREATE INDEX IF NOT EXISTS idx_generations_conversation ON generations(conversation_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// RecordGeneration archives one prompt/reply pair. The context is used
// for cancellation only.
func (s *Store) RecordGeneration(ctx context.Context, conversationID, callerID, prompt, content, reasoning string) error {
	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("generate archive record ID: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO generations
			(id, timestamp, conversation_id, caller_id, prompt, content, reasoning)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id.String(),
		time.Now().UTC().Format(time.RFC3339),
		conversationID,
		callerID,
		prompt,
		content,
		reasoning,
	)
	if err != nil {
		return fmt.Errorf("insert generation: %w", err)
	}
	return nil
}

// Recent returns the newest records, most recent first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, timestamp, conversation_id, caller_id, prompt, content, COALESCE(reasoning, '')
		 FROM generations
		 ORDER BY timestamp DESC
		 LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query generations: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var ts string
		if err := rows.Scan(&rec.ID, &ts, &rec.ConversationID, &rec.CallerID, &rec.Prompt, &rec.Content, &rec.Reasoning); err != nil {
			return nil, fmt.Errorf("scan generation: %w", err)
		}
		if t, err := time.Parse(time.RFC3339, ts); err == nil {
			rec.Timestamp = t
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Count returns the total number of archived generations.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM generations`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count generations: %w", err)
	}
	return n, nil
}
