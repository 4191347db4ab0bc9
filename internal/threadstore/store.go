// Package threadstore persists the mapping from an end user's WhatsApp id
// (wa_id) to the remote assistant thread that holds their conversation.
//
// Three backends are available. The default "file" backend is a flat
// key-value file that is opened and closed on every call; it performs no
// cross-call locking, so two writers racing on the same new user both win in
// turn and the last write is the one that survives. The "sqlite" and "pebble"
// backends additionally implement CompareAndSetter for callers that want the
// first writer to win instead.
package threadstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned by Lookup when the user has no stored thread.
var ErrNotFound = errors.New("thread not found")

// ErrInvalidKey is returned when a user id or thread id is empty.
var ErrInvalidKey = errors.New("user id and thread id must be non-empty")

// Store maps a user id to a thread id.
type Store interface {
	// Lookup returns the thread id stored for userID, or ErrNotFound.
	Lookup(ctx context.Context, userID string) (string, error)
	// Put writes or overwrites the mapping. It is durable once it returns.
	Put(ctx context.Context, userID, threadID string) error
	Close() error
}

// CompareAndSetter is implemented by stores that can write a mapping only
// when none exists yet.
type CompareAndSetter interface {
	// PutIfAbsent stores threadID for userID unless a mapping already exists.
	// It returns the thread id that is stored after the call and whether this
	// call created it.
	PutIfAbsent(ctx context.Context, userID, threadID string) (stored string, created bool, err error)
}

// Backend names accepted by Open.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendPebble = "pebble"
)

// Open returns the store for the named backend rooted at path.
func Open(backend, path string) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", BackendFile:
		return NewFileStore(path), nil
	case BackendSQLite:
		return NewSQLiteStore(path)
	case BackendPebble:
		return NewPebbleStore(path)
	default:
		return nil, fmt.Errorf("unsupported thread store backend: %s", backend)
	}
}

func validKey(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return ErrInvalidKey
	}
	return nil
}

func validPair(userID, threadID string) error {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(threadID) == "" {
		return ErrInvalidKey
	}
	return nil
}
