// Package cache implements the keyed in-memory entity cache: the single
// shared mutable resource of the client. Values are cloned on both write and
// read, so a snapshot handed to one reader can never be torn by a later
// mutation. Background refetches are deduplicated per key and never evict a
// stale value on failure.
package cache

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/sourcegraph/conc"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/jackblog/blogkit/errs"
	"github.com/jackblog/blogkit/observability"
)

// Kind names an entity family stored in the cache.
type Kind string

const (
	// KindPostPage caches one page of the post listing.
	KindPostPage Kind = "posts"
	// KindPostDetail caches a single post by slug.
	KindPostDetail Kind = "post"
	// KindComments caches the comment tree of a post.
	KindComments Kind = "comments"
	// KindReactions caches the reaction aggregate of a post.
	KindReactions Kind = "reactions"
	// KindLike caches the like status of a post.
	KindLike Kind = "like"
	// KindCategories caches the category listing.
	KindCategories Kind = "categories"
	// KindSearch caches search results by query.
	KindSearch Kind = "search"
	// KindPopular caches the popular-post listing.
	KindPopular Kind = "popular"
)

// Key is the deterministic composite identifying one cache entry.
type Key struct {
	Kind  Kind
	Param string
	Extra string
}

// String renders the canonical key form, e.g. "comments/my-post".
func (k Key) String() string {
	parts := []string{string(k.Kind)}
	if k.Param != "" {
		parts = append(parts, k.Param)
	}
	if k.Extra != "" {
		parts = append(parts, k.Extra)
	}
	return strings.Join(parts, "/")
}

// Validate ensures the key names an entity family.
func (k Key) Validate() error {
	if strings.TrimSpace(string(k.Kind)) == "" {
		return errs.New("cache/key", errs.CodeInvalid, errs.WithMessage("kind required"))
	}
	return nil
}

// Status tracks the lifecycle of a cache entry.
type Status string

const (
	// StatusIdle marks a key that has never been fetched.
	StatusIdle Status = "idle"
	// StatusLoading marks a foreground fetch in progress.
	StatusLoading Status = "loading"
	// StatusSuccess marks a served value.
	StatusSuccess Status = "success"
	// StatusStale marks a value awaiting revalidation.
	StatusStale Status = "stale"
	// StatusError marks a failed fetch; the previous value, if any, survives.
	StatusError Status = "error"
)

// Cloneable is implemented by values that require deep copies on cache
// boundaries. Values that do not implement it are stored as-is and must be
// treated as immutable by callers.
type Cloneable interface {
	CloneValue() any
}

// Entry wraps a cached value with its lifecycle state.
type Entry struct {
	Key       Key
	Value     any
	Status    Status
	LastError error
	UpdatedAt time.Time
}

// FetchFunc produces the authoritative value for a key.
type FetchFunc func(ctx context.Context) (any, error)

// SubscriptionID identifies a cache subscription.
type SubscriptionID string

// Callback receives the new entry after every write to a subscribed key.
// Callbacks run synchronously on the writing goroutine and receive cloned
// values.
type Callback func(Entry)

// Options tunes store behaviour.
type Options struct {
	// RefetchAttempts caps background refetch tries per invalidation.
	RefetchAttempts int
}

func (o Options) normalize() Options {
	if o.RefetchAttempts <= 0 {
		o.RefetchAttempts = 3
	}
	return o
}

// Store is the in-memory entity cache.
type Store struct {
	opts   Options
	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.RWMutex
	entries  map[string]Entry
	fetchers map[string]FetchFunc
	subs     map[string]map[SubscriptionID]Callback
	inflight map[string]bool
	closed   bool

	wg conc.WaitGroup

	readHits        metric.Int64Counter
	readMisses      metric.Int64Counter
	refetches       metric.Int64Counter
	refetchErrors   metric.Int64Counter
	writeCounter    metric.Int64Counter
	subscriberGauge metric.Int64UpDownCounter
}

// New constructs an empty store.
func New(opts Options) *Store {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Store{
		opts:     opts.normalize(),
		ctx:      ctx,
		cancel:   cancel,
		entries:  make(map[string]Entry),
		fetchers: make(map[string]FetchFunc),
		subs:     make(map[string]map[SubscriptionID]Callback),
		inflight: make(map[string]bool),
	}

	meter := otel.Meter("blogkit/cache")
	s.readHits, _ = meter.Int64Counter("cache.read.hits",
		metric.WithDescription("Cache reads that found an entry"),
		metric.WithUnit("{read}"))
	s.readMisses, _ = meter.Int64Counter("cache.read.misses",
		metric.WithDescription("Cache reads that found nothing"),
		metric.WithUnit("{read}"))
	s.refetches, _ = meter.Int64Counter("cache.refetch.started",
		metric.WithDescription("Background refetches scheduled by invalidation"),
		metric.WithUnit("{refetch}"))
	s.refetchErrors, _ = meter.Int64Counter("cache.refetch.errors",
		metric.WithDescription("Background refetches that exhausted their retries"),
		metric.WithUnit("{error}"))
	s.writeCounter, _ = meter.Int64Counter("cache.writes",
		metric.WithDescription("Values written into the cache"),
		metric.WithUnit("{write}"))
	s.subscriberGauge, _ = meter.Int64UpDownCounter("cache.subscribers",
		metric.WithDescription("Active cache subscriptions"),
		metric.WithUnit("{subscriber}"))

	return s
}

// Read returns a cloned view of the entry for key, if present.
func (s *Store) Read(key Key) (Entry, bool) {
	s.mu.RLock()
	entry, ok := s.entries[key.String()]
	s.mu.RUnlock()
	if !ok {
		s.readMisses.Add(s.ctx, 1)
		return Entry{}, false
	}
	s.readHits.Add(s.ctx, 1)
	entry.Value = cloneValue(entry.Value)
	return entry, true
}

// Fresh reports whether the entry exists, holds a served value, and was
// written within the freshness window.
func (s *Store) Fresh(key Key, window time.Duration) bool {
	s.mu.RLock()
	entry, ok := s.entries[key.String()]
	s.mu.RUnlock()
	if !ok || entry.Status != StatusSuccess {
		return false
	}
	return time.Since(entry.UpdatedAt) < window
}

// Write stores value under key with StatusSuccess and notifies subscribers
// synchronously before returning.
func (s *Store) Write(key Key, value any) {
	s.store(Entry{
		Key:       key,
		Value:     cloneValue(value),
		Status:    StatusSuccess,
		LastError: nil,
		UpdatedAt: time.Now(),
	})
	s.writeCounter.Add(s.ctx, 1)
}

// Restore puts a previously captured entry back verbatim. It is the rollback
// path of the mutation engine; the snapshot's status and value are reinstated
// as a unit.
func (s *Store) Restore(key Key, snapshot Entry) {
	snapshot.Key = key
	snapshot.Value = cloneValue(snapshot.Value)
	s.store(snapshot)
}

// Register installs the fetcher used by Load and invalidation refetches.
// Re-registering a key replaces its fetcher.
func (s *Store) Register(key Key, fetch FetchFunc) {
	s.mu.Lock()
	s.fetchers[key.String()] = fetch
	s.mu.Unlock()
}

// Load runs the registered fetcher in the foreground and stores the result.
// On failure the previous value stays intact and LastError is recorded.
func (s *Store) Load(ctx context.Context, key Key) (Entry, error) {
	if err := key.Validate(); err != nil {
		return Entry{}, err
	}
	s.mu.RLock()
	fetch, ok := s.fetchers[key.String()]
	s.mu.RUnlock()
	if !ok {
		return Entry{}, errs.New("cache/load", errs.CodeInvalid,
			errs.WithMessage(fmt.Sprintf("no fetcher registered for %s", key)))
	}

	s.setStatus(key, StatusLoading)
	value, err := fetch(ctx)
	if err != nil {
		s.fail(key, err)
		return Entry{}, fmt.Errorf("load %s: %w", key, err)
	}
	s.Write(key, value)
	entry, _ := s.Read(key)
	return entry, nil
}

// Invalidate marks the entry stale and schedules a background refetch when a
// fetcher is registered. Invalidations arriving while a refetch is already in
// flight coalesce into it.
func (s *Store) Invalidate(key Key) {
	keyStr := key.String()

	s.mu.Lock()
	if entry, ok := s.entries[keyStr]; ok && entry.Status == StatusSuccess {
		entry.Status = StatusStale
		s.entries[keyStr] = entry
	}
	_, hasFetcher := s.fetchers[keyStr]
	start := hasFetcher && !s.inflight[keyStr] && !s.closed
	if start {
		s.inflight[keyStr] = true
	}
	s.mu.Unlock()

	if !start {
		return
	}
	s.refetches.Add(s.ctx, 1)
	s.wg.Go(func() { s.refetch(key) })
}

// Subscribe registers cb for every subsequent write to key.
func (s *Store) Subscribe(key Key, cb Callback) SubscriptionID {
	id := SubscriptionID(uuid.NewString())
	keyStr := key.String()
	s.mu.Lock()
	if s.subs[keyStr] == nil {
		s.subs[keyStr] = make(map[SubscriptionID]Callback)
	}
	s.subs[keyStr][id] = cb
	s.mu.Unlock()
	s.subscriberGauge.Add(s.ctx, 1)
	return id
}

// Unsubscribe removes the subscription. Unknown ids are ignored; a mutation
// writing to a key whose subscribers are gone is normal, not an error.
func (s *Store) Unsubscribe(key Key, id SubscriptionID) {
	keyStr := key.String()
	s.mu.Lock()
	if set, ok := s.subs[keyStr]; ok {
		if _, present := set[id]; present {
			delete(set, id)
			s.subscriberGauge.Add(s.ctx, -1)
		}
		if len(set) == 0 {
			delete(s.subs, keyStr)
		}
	}
	s.mu.Unlock()
}

// Close stops background refetches and waits for in-flight ones.
func (s *Store) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
}

func (s *Store) store(entry Entry) {
	keyStr := entry.Key.String()
	s.mu.Lock()
	s.entries[keyStr] = entry
	s.mu.Unlock()
	s.notify(entry)
}

func (s *Store) setStatus(key Key, status Status) {
	keyStr := key.String()
	s.mu.Lock()
	entry, ok := s.entries[keyStr]
	if !ok {
		entry = Entry{Key: key, Status: status}
	} else {
		entry.Status = status
	}
	s.entries[keyStr] = entry
	s.mu.Unlock()
}

// fail records the error against the key without touching the stored value.
func (s *Store) fail(key Key, err error) {
	keyStr := key.String()
	s.mu.Lock()
	entry, ok := s.entries[keyStr]
	if !ok {
		entry = Entry{Key: key}
	}
	entry.Status = StatusError
	entry.LastError = err
	s.entries[keyStr] = entry
	s.mu.Unlock()
	s.notify(entry)
}

func (s *Store) notify(entry Entry) {
	s.mu.RLock()
	set := s.subs[entry.Key.String()]
	callbacks := make([]Callback, 0, len(set))
	for _, cb := range set {
		callbacks = append(callbacks, cb)
	}
	s.mu.RUnlock()

	for _, cb := range callbacks {
		view := entry
		view.Value = cloneValue(entry.Value)
		cb(view)
	}
}

func (s *Store) refetch(key Key) {
	keyStr := key.String()
	defer func() {
		s.mu.Lock()
		delete(s.inflight, keyStr)
		s.mu.Unlock()
	}()

	s.mu.RLock()
	fetch := s.fetchers[keyStr]
	s.mu.RUnlock()
	if fetch == nil {
		return
	}

	backoffCfg := backoff.NewExponentialBackOff()
	var lastErr error
	for attempt := 0; attempt < s.opts.RefetchAttempts; attempt++ {
		select {
		case <-s.ctx.Done():
			return
		default:
		}

		value, err := fetch(s.ctx)
		if err == nil {
			s.Write(key, value)
			return
		}
		lastErr = err
		observability.Log().Debug("cache refetch attempt failed",
			observability.Field{Key: "key", Value: keyStr},
			observability.Field{Key: "attempt", Value: attempt + 1},
			observability.Field{Key: "error", Value: err})

		sleep := backoffCfg.NextBackOff()
		select {
		case <-s.ctx.Done():
			return
		case <-time.After(sleep):
		}
	}

	s.refetchErrors.Add(s.ctx, 1)
	observability.Log().Error("cache refetch exhausted retries, keeping stale value",
		observability.Field{Key: "key", Value: keyStr},
		observability.Field{Key: "error", Value: lastErr})
	s.fail(key, lastErr)
}

func cloneValue(v any) any {
	if c, ok := v.(Cloneable); ok {
		return c.CloneValue()
	}
	return v
}
