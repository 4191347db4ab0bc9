package threadstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/cockroachdb/pebble"
)

const pebbleKeyPrefix = "thread/"

// PebbleStore keeps mappings in a pebble directory under keys "thread/<wa_id>".
type PebbleStore struct {
	db     *pebble.DB
	logger *slog.Logger

	// casMu guards the get-then-set in PutIfAbsent; pebble has no
	// conditional write of its own.
	casMu sync.Mutex
}

func NewPebbleStore(path string) (*PebbleStore, error) {
	logger := slog.Default().With("component", "threadstore", "backend", BackendPebble)

	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("creating pebble directory: %w", err)
	}
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("opening pebble: %w", err)
	}

	logger.Info("thread store opened", "path", path)
	return &PebbleStore{db: db, logger: logger}, nil
}

func pebbleKey(userID string) []byte {
	return []byte(pebbleKeyPrefix + userID)
}

func (s *PebbleStore) Lookup(ctx context.Context, userID string) (string, error) {
	if err := validKey(userID); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	v, closer, err := s.db.Get(pebbleKey(userID))
	if errors.Is(err, pebble.ErrNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("reading thread: %w", err)
	}
	threadID := string(v)
	closer.Close()
	return threadID, nil
}

func (s *PebbleStore) Put(ctx context.Context, userID, threadID string) error {
	if err := validPair(userID, threadID); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.db.Set(pebbleKey(userID), []byte(threadID), pebble.Sync); err != nil {
		return fmt.Errorf("storing thread: %w", err)
	}
	return nil
}

func (s *PebbleStore) PutIfAbsent(ctx context.Context, userID, threadID string) (string, bool, error) {
	if err := validPair(userID, threadID); err != nil {
		return "", false, err
	}

	s.casMu.Lock()
	defer s.casMu.Unlock()

	existing, err := s.Lookup(ctx, userID)
	switch {
	case err == nil:
		return existing, false, nil
	case !errors.Is(err, ErrNotFound):
		return "", false, err
	}

	if err := s.Put(ctx, userID, threadID); err != nil {
		return "", false, err
	}
	return threadID, true, nil
}

func (s *PebbleStore) Close() error {
	return s.db.Close()
}
