package mutate

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jackblog/blogkit/cache"
)

type counterValue struct {
	N int
}

func (c counterValue) CloneValue() any { return c }

type recordingNotifier struct {
	mu        sync.Mutex
	successes []string
	failures  []string
}

func (n *recordingNotifier) Success(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.successes = append(n.successes, msg)
}

func (n *recordingNotifier) Error(msg string, err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failures = append(n.failures, msg)
}

func newEngine(t *testing.T) (*Engine, *cache.Store, *recordingNotifier) {
	t.Helper()
	store := cache.New(cache.Options{RefetchAttempts: 1})
	t.Cleanup(store.Close)
	notifier := &recordingNotifier{}
	return NewEngine(store, notifier), store, notifier
}

func key() cache.Key { return cache.Key{Kind: cache.KindLike, Param: "s"} }

func TestOptimisticWriteVisibleBeforeServerCall(t *testing.T) {
	engine, store, _ := newEngine(t)
	store.Write(key(), counterValue{N: 1})

	var observedDuringCall any
	err := engine.Mutate(context.Background(), key(),
		func(current any) any { return counterValue{N: current.(counterValue).N + 1} },
		func(ctx context.Context) error {
			entry, _ := store.Read(key())
			observedDuringCall = entry.Value
			return nil
		},
		Outcome{})

	require.NoError(t, err)
	require.Equal(t, counterValue{N: 2}, observedDuringCall,
		"server call must observe the optimistic value")
}

func TestSuccessInvalidatesAndReconciles(t *testing.T) {
	engine, store, notifier := newEngine(t)
	store.Write(key(), counterValue{N: 1})
	store.Register(key(), func(ctx context.Context) (any, error) {
		return counterValue{N: 42}, nil
	})

	err := engine.Mutate(context.Background(), key(),
		func(current any) any { return counterValue{N: 2} },
		func(ctx context.Context) error { return nil },
		Outcome{Success: "saved"})

	require.NoError(t, err)
	require.Eventually(t, func() bool {
		entry, _ := store.Read(key())
		return entry.Value == counterValue{N: 42}
	}, 2*time.Second, 10*time.Millisecond, "refetch must supersede the optimistic value")
	require.Equal(t, []string{"saved"}, notifier.successes)
}

func TestFailureRollsBackToSnapshot(t *testing.T) {
	engine, store, notifier := newEngine(t)
	store.Write(key(), counterValue{N: 1})

	boom := errors.New("http 500")
	err := engine.Mutate(context.Background(), key(),
		func(current any) any { return counterValue{N: 99} },
		func(ctx context.Context) error { return boom },
		Outcome{Failure: "could not save"})

	require.ErrorIs(t, err, boom)
	entry, _ := store.Read(key())
	require.Equal(t, counterValue{N: 1}, entry.Value, "rollback must restore the snapshot")
	require.Equal(t, cache.StatusSuccess, entry.Status)
	require.Equal(t, []string{"could not save"}, notifier.failures)
	require.Empty(t, notifier.successes)
}

func TestRollbackRestoresWholeSnapshotAtomically(t *testing.T) {
	engine, store, _ := newEngine(t)
	store.Write(key(), counterValue{N: 5})

	var seen []int
	store.Subscribe(key(), func(e cache.Entry) {
		seen = append(seen, e.Value.(counterValue).N)
	})

	_ = engine.Mutate(context.Background(), key(),
		func(current any) any { return counterValue{N: 6} },
		func(ctx context.Context) error { return errors.New("rejected") },
		Outcome{})

	// Subscribers observe the optimistic value then the restored snapshot,
	// never a partial state.
	require.Equal(t, []int{6, 5}, seen)
}

func TestMutationOnNeverLoadedKeySkipsOptimisticWrite(t *testing.T) {
	engine, store, _ := newEngine(t)

	called := false
	err := engine.Mutate(context.Background(), key(),
		func(current any) any {
			t.Fatal("transform must not run without a cached base")
			return nil
		},
		func(ctx context.Context) error {
			called = true
			return nil
		},
		Outcome{})

	require.NoError(t, err)
	require.True(t, called)
	_, ok := store.Read(key())
	require.False(t, ok, "no speculative entry for a never-loaded key")
}

func TestSameKeyMutationsAreSerialized(t *testing.T) {
	engine, store, _ := newEngine(t)
	store.Write(key(), counterValue{N: 0})

	firstInCall := make(chan struct{})
	releaseFirst := make(chan struct{})

	var order []string
	var mu sync.Mutex
	record := func(step string) {
		mu.Lock()
		order = append(order, step)
		mu.Unlock()
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_ = engine.Mutate(context.Background(), key(),
			func(current any) any { return counterValue{N: current.(counterValue).N + 1} },
			func(ctx context.Context) error {
				record("first call")
				close(firstInCall)
				<-releaseFirst
				return errors.New("first fails")
			},
			Outcome{})
		record("first settled")
	}()
	go func() {
		defer wg.Done()
		<-firstInCall
		_ = engine.Mutate(context.Background(), key(),
			func(current any) any {
				// Base is the post-settlement value: the first mutation
				// rolled back, so we start again from 0.
				require.Equal(t, counterValue{N: 0}, current)
				return counterValue{N: current.(counterValue).N + 1}
			},
			func(ctx context.Context) error {
				record("second call")
				return nil
			},
			Outcome{})
		record("second settled")
	}()

	time.Sleep(50 * time.Millisecond)
	close(releaseFirst)
	wg.Wait()

	require.Equal(t, []string{"first call", "first settled", "second call", "second settled"}, order)
}

func TestIndependentKeysDoNotBlockEachOther(t *testing.T) {
	engine, store, _ := newEngine(t)
	keyA := cache.Key{Kind: cache.KindLike, Param: "a"}
	keyB := cache.Key{Kind: cache.KindLike, Param: "b"}
	store.Write(keyA, counterValue{N: 0})
	store.Write(keyB, counterValue{N: 0})

	blockA := make(chan struct{})
	done := make(chan struct{})
	go func() {
		_ = engine.Mutate(context.Background(), keyA,
			func(current any) any { return current },
			func(ctx context.Context) error { <-blockA; return nil },
			Outcome{})
	}()
	go func() {
		defer close(done)
		_ = engine.Mutate(context.Background(), keyB,
			func(current any) any { return current },
			func(ctx context.Context) error { return nil },
			Outcome{})
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("mutation on an independent key was blocked")
	}
	close(blockA)
}
