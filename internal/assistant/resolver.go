package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"wassistant/internal/threadstore"
)

// Resolver returns the remote thread for a user, creating and storing one on
// first contact.
type Resolver struct {
	api      API
	store    threadstore.Store
	cas      bool
	logger   *slog.Logger
	observer Observer
}

type ResolverOption func(*Resolver)

// WithCompareAndSet makes a first-contact resolve keep whichever thread was
// stored first when the store supports it. Without it the last writer wins.
func WithCompareAndSet() ResolverOption {
	return func(r *Resolver) {
		r.cas = true
	}
}

func WithResolverLogger(l *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		r.logger = l
	}
}

func WithResolverObserver(o Observer) ResolverOption {
	return func(r *Resolver) {
		r.observer = o
	}
}

func NewResolver(api API, store threadstore.Store, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		api:      api,
		store:    store,
		logger:   slog.Default().With("component", "resolver"),
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve looks userID up in the store. An unseen user gets a new remote
// thread which is persisted before it is returned; a known user's thread is
// fetched from the remote service. Remote errors are returned as-is, wrapped.
func (r *Resolver) Resolve(ctx context.Context, userID, displayName string) (Thread, error) {
	threadID, err := r.store.Lookup(ctx, userID)
	switch {
	case err == nil:
		r.logger.Info("retrieving existing thread", "name", displayName, "wa_id", userID, "thread_id", threadID)
		thread, err := r.api.GetThread(ctx, threadID)
		if err != nil {
			return Thread{}, err
		}
		r.observer.ThreadResolved(false)
		return thread, nil
	case !errors.Is(err, threadstore.ErrNotFound):
		return Thread{}, fmt.Errorf("looking up thread for %s: %w: %w", userID, ErrStore, err)
	}

	r.logger.Info("creating new thread", "name", displayName, "wa_id", userID)
	thread, err := r.api.CreateThread(ctx)
	if err != nil {
		return Thread{}, err
	}

	if cas, ok := r.store.(threadstore.CompareAndSetter); ok && r.cas {
		stored, created, err := cas.PutIfAbsent(ctx, userID, thread.ID)
		if err != nil {
			return Thread{}, fmt.Errorf("storing thread for %s: %w: %w", userID, ErrStore, err)
		}
		if !created {
			// Another turn for the same user stored its thread first. The
			// thread created here is abandoned on the remote side.
			r.logger.Warn("thread already stored by concurrent turn", "wa_id", userID,
				"thread_id", stored, "abandoned_thread_id", thread.ID)
			r.observer.ThreadResolved(false)
			return Thread{ID: stored}, nil
		}
	} else if err := r.store.Put(ctx, userID, thread.ID); err != nil {
		return Thread{}, fmt.Errorf("storing thread for %s: %w: %w", userID, ErrStore, err)
	}

	r.observer.ThreadResolved(true)
	return thread, nil
}
