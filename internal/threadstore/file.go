package threadstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// FileStore keeps every mapping in a single JSON object on disk. Each call
// opens the file, does its work and closes it again.
type FileStore struct {
	path string

	// mu serialises the read-modify-write inside Put so that writes for
	// different users in one process do not drop each other. It does not
	// make Lookup followed by Put atomic.
	mu sync.Mutex
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Lookup(ctx context.Context, userID string) (string, error) {
	if err := validKey(userID); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	records, err := s.load()
	if err != nil {
		return "", err
	}
	threadID, ok := records[userID]
	if !ok {
		return "", ErrNotFound
	}
	return threadID, nil
}

func (s *FileStore) Put(ctx context.Context, userID, threadID string) error {
	if err := validPair(userID, threadID); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return err
	}
	records[userID] = threadID
	return s.save(records)
}

// Close is a no-op: the file is never held open between calls.
func (s *FileStore) Close() error { return nil }

func (s *FileStore) load() (map[string]string, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return make(map[string]string), nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening thread store: %w", err)
	}
	defer f.Close()

	records := make(map[string]string)
	if err := json.NewDecoder(f).Decode(&records); err != nil {
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		return nil, fmt.Errorf("decoding thread store %s: %w", s.path, err)
	}
	return records, nil
}

// save writes records to a temp file next to the store and renames it over
// the original, so readers never observe a half-written file.
func (s *FileStore) save(records map[string]string) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating thread store directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp thread store: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		tmp.Close()
		return fmt.Errorf("encoding thread store: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing thread store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing thread store: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replacing thread store: %w", err)
	}
	return nil
}
