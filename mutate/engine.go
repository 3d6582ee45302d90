// Package mutate implements the optimistic mutation engine: speculative cache
// writes that are visible before the server call starts, reconciliation
// through invalidation on success, and whole-snapshot rollback on failure.
package mutate

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/jackblog/blogkit/cache"
	"github.com/jackblog/blogkit/observability"
)

// Transform computes the speculative next value from the current cached
// value. It must be pure: no I/O, no mutation of its input.
type Transform func(current any) any

// ServerCall performs the real network request for a mutation.
type ServerCall func(ctx context.Context) error

// Notifier surfaces mutation outcomes to the user. The default logs through
// the observability hook; UI layers plug in their own (toasts etc).
type Notifier interface {
	Success(msg string)
	Error(msg string, err error)
}

// Outcome carries the user-facing messages for one mutation.
type Outcome struct {
	Success string
	Failure string
}

// LogNotifier reports outcomes through the global logger.
type LogNotifier struct{}

// Success logs the success message.
func (LogNotifier) Success(msg string) {
	if msg != "" {
		observability.Log().Info(msg)
	}
}

// Error logs the failure message and cause.
func (LogNotifier) Error(msg string, err error) {
	if msg == "" {
		msg = "mutation failed"
	}
	observability.Log().Error(msg, observability.Field{Key: "error", Value: err})
}

// Engine coordinates optimistic mutations over a cache store.
//
// Mutations on the same key are queued: a second Mutate call blocks until the
// first settles and then reads the post-settlement value as its base
// snapshot, so a later optimistic write can never be clobbered by an earlier
// mutation's rollback. Mutations on different keys run independently.
type Engine struct {
	store  *cache.Store
	notify Notifier

	mu   sync.Mutex
	keys map[string]*sync.Mutex

	mutations metric.Int64Counter
	rollbacks metric.Int64Counter
}

// NewEngine creates an engine over the store. A nil notifier logs outcomes.
func NewEngine(store *cache.Store, notify Notifier) *Engine {
	if notify == nil {
		notify = LogNotifier{}
	}
	e := &Engine{
		store:  store,
		notify: notify,
		keys:   make(map[string]*sync.Mutex),
	}
	meter := otel.Meter("blogkit/mutate")
	e.mutations, _ = meter.Int64Counter("mutate.settled",
		metric.WithDescription("Mutations settled, success or failure"),
		metric.WithUnit("{mutation}"))
	e.rollbacks, _ = meter.Int64Counter("mutate.rollbacks",
		metric.WithDescription("Mutations rolled back after a failed server call"),
		metric.WithUnit("{rollback}"))
	return e
}

// Mutate applies transform optimistically, runs call, and reconciles.
//
// The optimistic value is written, and subscribers notified, before call
// starts. On success the key is invalidated so the authoritative server state
// supersedes the speculation. On failure the pre-mutation snapshot is
// restored as a unit and the error is returned. Keys that have never been
// loaded skip the optimistic write; the server call still runs and success
// still invalidates.
func (e *Engine) Mutate(ctx context.Context, key cache.Key, transform Transform, call ServerCall, outcome Outcome) error {
	lock := e.keyLock(key)
	lock.Lock()
	defer lock.Unlock()
	defer e.mutations.Add(context.Background(), 1)

	snapshot, hadEntry := e.store.Read(key)
	if hadEntry && transform != nil {
		e.store.Write(key, transform(snapshot.Value))
	}

	if err := call(ctx); err != nil {
		if hadEntry {
			e.store.Restore(key, snapshot)
			e.rollbacks.Add(context.Background(), 1)
		}
		e.notify.Error(outcome.Failure, err)
		return err
	}

	e.store.Invalidate(key)
	e.notify.Success(outcome.Success)
	return nil
}

func (e *Engine) keyLock(key cache.Key) *sync.Mutex {
	keyStr := key.String()
	e.mu.Lock()
	defer e.mu.Unlock()
	lock, ok := e.keys[keyStr]
	if !ok {
		lock = new(sync.Mutex)
		e.keys[keyStr] = lock
	}
	return lock
}
