// Package history is the optional SQLite log of relay exchanges. Recording
// is best-effort; nothing in the relay contract depends on it.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"stepone/internal/domain"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements domain.PlanStore using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewSQLiteStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create database directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}

	// Single connection for SQLite.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &SQLiteStore{db: db, logger: logger}

	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database migration failed: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS plans (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		text          TEXT NOT NULL,
		emotion       TEXT,
		intent        TEXT,
		message       TEXT,
		reply_emotion TEXT,
		tags          TEXT,
		outcome       TEXT NOT NULL,
		latency_ms    INTEGER DEFAULT 0,
		created_at    DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_plans_time ON plans(created_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) Record(ctx context.Context, rec domain.PlanRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO plans (text, emotion, intent, message, reply_emotion, tags, outcome, latency_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Text, rec.Emotion, rec.Intent, rec.Message, rec.ReplyEmotion,
		rec.Tags, rec.Outcome, rec.LatencyMs, rec.CreatedAt,
	)
	return err
}

// Recent returns the latest exchanges, newest first.
func (s *SQLiteStore) Recent(ctx context.Context, limit int) ([]domain.PlanRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, text, emotion, intent, message, reply_emotion, tags, outcome, latency_ms, created_at
		 FROM plans ORDER BY created_at DESC, id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []domain.PlanRecord
	for rows.Next() {
		var r domain.PlanRecord
		var message, replyEmotion, tags sql.NullString
		if err := rows.Scan(&r.ID, &r.Text, &r.Emotion, &r.Intent,
			&message, &replyEmotion, &tags, &r.Outcome, &r.LatencyMs, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.Message = message.String
		r.ReplyEmotion = replyEmotion.String
		r.Tags = tags.String
		recs = append(recs, r)
	}
	return recs, rows.Err()
}

// Prune deletes exchanges older than the given age and reports how many went.
func (s *SQLiteStore) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)
	res, err := s.db.ExecContext(ctx, `DELETE FROM plans WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		s.logger.Info("pruned old exchanges", "removed", n, "cutoff", cutoff)
	}
	return n, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
