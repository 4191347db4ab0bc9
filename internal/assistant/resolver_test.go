package assistant_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wassistant/internal/assistant"
	"wassistant/internal/assistant/assistanttest"
	"wassistant/internal/threadstore"
)

func newFileStore(t *testing.T) *threadstore.FileStore {
	t.Helper()
	return threadstore.NewFileStore(filepath.Join(t.TempDir(), "threads_db"))
}

func TestResolveCreatesThreadOnceThenReuses(t *testing.T) {
	ctx := context.Background()
	api := assistanttest.NewFakeAPI("hi")
	store := newFileStore(t)
	r := assistant.NewResolver(api, store)

	first, err := r.Resolve(ctx, "15550001111", "Ana")
	require.NoError(t, err)
	require.Len(t, api.CreatedThreads(), 1)

	stored, err := store.Lookup(ctx, "15550001111")
	require.NoError(t, err)
	assert.Equal(t, first.ID, stored)

	second, err := r.Resolve(ctx, "15550001111", "Ana")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, api.CreatedThreads(), 1, "a known user must not get a new thread")
	assert.Equal(t, 1, api.Count("GetThread"))
}

func TestResolveDistinctUsersGetDistinctThreads(t *testing.T) {
	ctx := context.Background()
	api := assistanttest.NewFakeAPI("hi")
	r := assistant.NewResolver(api, newFileStore(t))

	a, err := r.Resolve(ctx, "15550001111", "Ana")
	require.NoError(t, err)
	b, err := r.Resolve(ctx, "15550002222", "Bruno")
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestResolvePropagatesRemoteErrors(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("remote unavailable")

	t.Run("create", func(t *testing.T) {
		api := assistanttest.NewFakeAPI("hi")
		api.Errors["CreateThread"] = boom
		store := newFileStore(t)

		_, err := assistant.NewResolver(api, store).Resolve(ctx, "15550001111", "Ana")
		require.ErrorIs(t, err, boom)

		_, err = store.Lookup(ctx, "15550001111")
		assert.ErrorIs(t, err, threadstore.ErrNotFound, "nothing is stored when creation fails")
	})

	t.Run("fetch", func(t *testing.T) {
		api := assistanttest.NewFakeAPI("hi")
		store := newFileStore(t)
		r := assistant.NewResolver(api, store)
		_, err := r.Resolve(ctx, "15550001111", "Ana")
		require.NoError(t, err)

		api.Errors["GetThread"] = boom
		_, err = r.Resolve(ctx, "15550001111", "Ana")
		assert.ErrorIs(t, err, boom)
	})
}

// Two first-contact turns for the same user may both miss the store and
// each create a thread. Only one mapping survives: the last write wins.
func TestConcurrentResolveLastWriteWins(t *testing.T) {
	ctx := context.Background()
	api := assistanttest.NewFakeAPI("hi")
	store := newFileStore(t)
	r := assistant.NewResolver(api, store)

	var arrived sync.WaitGroup
	arrived.Add(2)
	api.OnCreate = func() {
		// Hold both turns until each has missed the store.
		arrived.Done()
		arrived.Wait()
	}

	var wg sync.WaitGroup
	results := make([]assistant.Thread, 2)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			th, err := r.Resolve(ctx, "15550001111", "Ana")
			assert.NoError(t, err)
			results[i] = th
		}(i)
	}
	wg.Wait()

	created := api.CreatedThreads()
	require.Len(t, created, 2, "both turns created a thread")
	assert.NotEqual(t, results[0].ID, results[1].ID)

	stored, err := store.Lookup(ctx, "15550001111")
	require.NoError(t, err)
	assert.Contains(t, created, stored, "the surviving mapping is one of the created threads")

	// Later turns all see the survivor.
	api.OnCreate = nil
	again, err := r.Resolve(ctx, "15550001111", "Ana")
	require.NoError(t, err)
	assert.Equal(t, stored, again.ID)
	assert.Len(t, api.CreatedThreads(), 2)
}

func TestConcurrentResolveCompareAndSetKeepsOneThread(t *testing.T) {
	ctx := context.Background()
	api := assistanttest.NewFakeAPI("hi")
	store, err := threadstore.NewSQLiteStore(filepath.Join(t.TempDir(), "threads.db"))
	require.NoError(t, err)
	defer store.Close()
	r := assistant.NewResolver(api, store, assistant.WithCompareAndSet())

	var arrived sync.WaitGroup
	arrived.Add(2)
	api.OnCreate = func() {
		arrived.Done()
		arrived.Wait()
	}

	var wg sync.WaitGroup
	results := make([]assistant.Thread, 2)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			th, err := r.Resolve(ctx, "15550001111", "Ana")
			assert.NoError(t, err)
			results[i] = th
		}(i)
	}
	wg.Wait()

	assert.Equal(t, results[0].ID, results[1].ID, "both turns use the first stored thread")
	stored, err := store.Lookup(ctx, "15550001111")
	require.NoError(t, err)
	assert.Equal(t, results[0].ID, stored)
}

type countingObserver struct {
	mu       sync.Mutex
	created  int
	reused   int
	statuses []assistant.RunStatus
	attempts []int
}

func (o *countingObserver) ThreadResolved(created bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if created {
		o.created++
	} else {
		o.reused++
	}
}

func (o *countingObserver) RunFinished(status assistant.RunStatus, attempts int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.statuses = append(o.statuses, status)
	o.attempts = append(o.attempts, attempts)
}

func TestResolveReportsToObserver(t *testing.T) {
	ctx := context.Background()
	obs := &countingObserver{}
	r := assistant.NewResolver(assistanttest.NewFakeAPI("hi"), newFileStore(t), assistant.WithResolverObserver(obs))

	for i := 0; i < 3; i++ {
		_, err := r.Resolve(ctx, "15550001111", "Ana")
		require.NoError(t, err)
	}
	assert.Equal(t, 1, obs.created)
	assert.Equal(t, 2, obs.reused)
}
