package threadstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps mappings in a single sqlite table.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "threadstore", "backend", BackendSQLite)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// sqlite serialises writers; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	const schema = `
		CREATE TABLE IF NOT EXISTS threads (
			wa_id TEXT PRIMARY KEY,
			thread_id TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("thread store opened", "path", path)
	return &SQLiteStore{db: db, logger: logger}, nil
}

func (s *SQLiteStore) Lookup(ctx context.Context, userID string) (string, error) {
	if err := validKey(userID); err != nil {
		return "", err
	}

	var threadID string
	err := s.db.QueryRowContext(ctx, `SELECT thread_id FROM threads WHERE wa_id = ?`, userID).Scan(&threadID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("querying thread: %w", err)
	}
	return threadID, nil
}

func (s *SQLiteStore) Put(ctx context.Context, userID, threadID string) error {
	if err := validPair(userID, threadID); err != nil {
		return err
	}

	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO threads (wa_id, thread_id, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(wa_id) DO UPDATE SET
			thread_id = excluded.thread_id,
			updated_at = excluded.updated_at`,
		userID, threadID, now, now,
	)
	if err != nil {
		return fmt.Errorf("storing thread: %w", err)
	}
	return nil
}

func (s *SQLiteStore) PutIfAbsent(ctx context.Context, userID, threadID string) (string, bool, error) {
	if err := validPair(userID, threadID); err != nil {
		return "", false, err
	}

	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO threads (wa_id, thread_id, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(wa_id) DO NOTHING`,
		userID, threadID, now, now,
	)
	if err != nil {
		return "", false, fmt.Errorf("storing thread: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return "", false, fmt.Errorf("checking stored thread: %w", err)
	}
	if n == 1 {
		return threadID, true, nil
	}

	existing, err := s.Lookup(ctx, userID)
	if err != nil {
		return "", false, err
	}
	return existing, false, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
