package threadstore

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openBackends(t *testing.T) map[string]Store {
	t.Helper()
	dir := t.TempDir()

	stores := map[string]Store{}
	for _, backend := range []string{BackendFile, BackendSQLite, BackendPebble} {
		s, err := Open(backend, filepath.Join(dir, backend, "threads_db"))
		require.NoError(t, err, backend)
		t.Cleanup(func() { s.Close() })
		stores[backend] = s
	}
	return stores
}

func TestStoreLookupPut(t *testing.T) {
	ctx := context.Background()
	for name, s := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.Lookup(ctx, "15550001111")
			require.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, s.Put(ctx, "15550001111", "thread_a"))
			got, err := s.Lookup(ctx, "15550001111")
			require.NoError(t, err)
			assert.Equal(t, "thread_a", got)

			// Overwrite is allowed and idempotent.
			require.NoError(t, s.Put(ctx, "15550001111", "thread_b"))
			require.NoError(t, s.Put(ctx, "15550001111", "thread_b"))
			got, err = s.Lookup(ctx, "15550001111")
			require.NoError(t, err)
			assert.Equal(t, "thread_b", got)

			_, err = s.Lookup(ctx, "15550002222")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestStoreRejectsEmptyKeys(t *testing.T) {
	ctx := context.Background()
	for name, s := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.Lookup(ctx, "  ")
			assert.ErrorIs(t, err, ErrInvalidKey)
			assert.ErrorIs(t, s.Put(ctx, "", "thread_a"), ErrInvalidKey)
			assert.ErrorIs(t, s.Put(ctx, "15550001111", ""), ErrInvalidKey)
		})
	}
}

func TestCompareAndSetKeepsFirstThread(t *testing.T) {
	ctx := context.Background()
	for name, s := range openBackends(t) {
		cas, ok := s.(CompareAndSetter)
		if !ok {
			continue
		}
		t.Run(name, func(t *testing.T) {
			stored, created, err := cas.PutIfAbsent(ctx, "15550001111", "thread_first")
			require.NoError(t, err)
			assert.True(t, created)
			assert.Equal(t, "thread_first", stored)

			stored, created, err = cas.PutIfAbsent(ctx, "15550001111", "thread_second")
			require.NoError(t, err)
			assert.False(t, created)
			assert.Equal(t, "thread_first", stored)

			got, err := s.Lookup(ctx, "15550001111")
			require.NoError(t, err)
			assert.Equal(t, "thread_first", got)
		})
	}
}

func TestFileStorePersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "threads_db")

	require.NoError(t, NewFileStore(path).Put(ctx, "15550001111", "thread_a"))
	require.NoError(t, NewFileStore(path).Put(ctx, "15550002222", "thread_b"))

	reopened := NewFileStore(path)
	got, err := reopened.Lookup(ctx, "15550001111")
	require.NoError(t, err)
	assert.Equal(t, "thread_a", got)
	got, err = reopened.Lookup(ctx, "15550002222")
	require.NoError(t, err)
	assert.Equal(t, "thread_b", got)

	// No temp files are left behind next to the store.
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestFileStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "threads_db")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := NewFileStore(path).Lookup(context.Background(), "15550001111")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestFileStoreConcurrentWritersDistinctUsers(t *testing.T) {
	ctx := context.Background()
	s := NewFileStore(filepath.Join(t.TempDir(), "threads_db"))

	var wg sync.WaitGroup
	users := []string{"u1", "u2", "u3", "u4", "u5", "u6", "u7", "u8"}
	for _, u := range users {
		wg.Add(1)
		go func(u string) {
			defer wg.Done()
			assert.NoError(t, s.Put(ctx, u, "thread_"+u))
		}(u)
	}
	wg.Wait()

	for _, u := range users {
		got, err := s.Lookup(ctx, u)
		require.NoError(t, err)
		assert.Equal(t, "thread_"+u, got)
	}
}

func TestOpenUnknownBackend(t *testing.T) {
	_, err := Open("redis", t.TempDir())
	assert.Error(t, err)
}
