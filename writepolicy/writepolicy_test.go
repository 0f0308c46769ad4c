package writepolicy

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cache "github.com/krisalay/salon-cache"
	"github.com/krisalay/salon-cache/bus"
	"github.com/krisalay/salon-cache/engine"
	"github.com/krisalay/salon-cache/refresh"
	"github.com/krisalay/salon-cache/types"
)

// recordingSaver stores every saved value and fails while err is set.
type recordingSaver struct {
	mu    sync.Mutex
	saved []int
	err   error
	gate  chan struct{}
	began chan struct{}
}

func (s *recordingSaver) Save(_ context.Context, v int) error {
	if s.began != nil {
		s.began <- struct{}{}
	}
	if s.gate != nil {
		<-s.gate
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.saved = append(s.saved, v)
	return nil
}

func (s *recordingSaver) Saved() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.saved...)
}

// countingPublisher counts Publish calls per kind.
type countingPublisher struct {
	mu  sync.Mutex
	got map[types.Kind]int
}

func (p *countingPublisher) Publish(k types.Kind) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.got == nil {
		p.got = map[types.Kind]int{}
	}
	p.got[k]++
}

func (p *countingPublisher) PublishAll() {}

func (p *countingPublisher) Count(k types.Kind) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.got[k]
}

func newStore(t *testing.T, fetch func() int) *cache.Store[int] {
	t.Helper()
	e := engine.WithTTL[int](time.Minute, types.FetcherFunc[int](func(context.Context) (int, error) {
		return fetch(), nil
	}))
	return cache.NewStore[int](types.Services, e, 0)
}

/*
=========================================================
Write-through
=========================================================
*/

func TestWriteThroughUpdatesStore(t *testing.T) {
	calls := 0
	store := newStore(t, func() int { calls++; return 1 })
	saver := &recordingSaver{}

	var refreshed []int
	store.Watch(refresh.HookFunc[int](func(_ types.Kind, v int) { refreshed = append(refreshed, v) }))

	pub := &countingPublisher{}
	p := NewWriteThroughPolicy[int](saver, store, pub)
	defer p.Close()

	require.NoError(t, p.OnWrite(context.Background(), 42))

	assert.Equal(t, []int{42}, saver.Saved())
	assert.Equal(t, 1, pub.Count(types.Services))
	assert.Equal(t, 42, store.Fetch(context.Background()))
	assert.Equal(t, 0, calls, "store must serve the written value without fetching")
	assert.Equal(t, []int{42}, refreshed)
}

func TestWriteThroughSaveError(t *testing.T) {
	store := newStore(t, func() int { return 1 })
	store.Fetch(context.Background())

	boom := errors.New("connection reset")
	pub := &countingPublisher{}
	p := NewWriteThroughPolicy[int](&recordingSaver{err: boom}, store, pub)

	err := p.OnWrite(context.Background(), 42)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "services")
	assert.Equal(t, 0, pub.Count(types.Services))

	v, ok := store.GetCached()
	assert.True(t, ok)
	assert.Equal(t, 1, v, "failed save must not touch the store")
}

func TestWriteThroughInvalidatesStoresOnSharedBus(t *testing.T) {
	ctx := context.Background()
	b := bus.New()

	// one backend, two stores of the same kind (admin and public) on one bus
	var mu sync.Mutex
	persisted := 1
	backendCalls := 0
	read := func() int {
		mu.Lock()
		defer mu.Unlock()
		backendCalls++
		return persisted
	}
	saver := SaverFunc[int](func(_ context.Context, v int) error {
		mu.Lock()
		defer mu.Unlock()
		persisted = v
		return nil
	})

	admin := newStore(t, read)
	public := newStore(t, read)
	b.Subscribe(types.Services, func(bus.Event) { admin.Invalidate() })
	b.Subscribe(types.Services, func(bus.Event) { public.Invalidate() })

	require.Equal(t, 1, admin.Fetch(ctx))
	require.Equal(t, 1, public.Fetch(ctx))

	p := NewWriteThroughPolicy[int](saver, admin, b)
	require.NoError(t, p.OnWrite(ctx, 2))

	assert.True(t, admin.IsFresh())
	assert.False(t, public.IsFresh(), "public store must drop the old value")

	assert.Equal(t, 2, admin.Fetch(ctx))
	assert.Equal(t, 2, public.Fetch(ctx))
	assert.Equal(t, 3, backendCalls, "only the public store refetches")
}

/*
=========================================================
Write-back
=========================================================
*/

func TestWriteBackPublishesAfterSave(t *testing.T) {
	saver := &recordingSaver{}
	pub := &countingPublisher{}

	p := NewWriteBackPolicy[int](types.Gallery, saver, pub, 8)
	require.NoError(t, p.OnWrite(context.Background(), 1))
	require.NoError(t, p.OnWrite(context.Background(), 2))
	p.Close()

	assert.Equal(t, []int{1, 2}, saver.Saved())
	assert.Equal(t, 2, pub.Count(types.Gallery))
}

func TestWriteBackFailedSaveDoesNotPublish(t *testing.T) {
	saver := &recordingSaver{err: errors.New("unique violation")}
	pub := &countingPublisher{}

	p := NewWriteBackPolicy[int](types.Settings, saver, pub, 8)
	require.NoError(t, p.OnWrite(context.Background(), 1))
	p.Close()

	assert.Equal(t, 0, pub.Count(types.Settings))
}

func TestWriteBackQueueFull(t *testing.T) {
	saver := &recordingSaver{gate: make(chan struct{}), began: make(chan struct{}, 4)}
	pub := &countingPublisher{}

	p := NewWriteBackPolicy[int](types.Hours, saver, pub, 1)

	require.NoError(t, p.OnWrite(context.Background(), 1))
	<-saver.began // worker holds write 1

	require.NoError(t, p.OnWrite(context.Background(), 2))
	assert.ErrorIs(t, p.OnWrite(context.Background(), 3), ErrQueueFull)

	close(saver.gate)
	p.Close()

	assert.Equal(t, []int{1, 2}, saver.Saved())
	assert.Equal(t, 2, pub.Count(types.Hours))
}

func TestWriteBackClosed(t *testing.T) {
	p := NewWriteBackPolicy[int](types.Hours, &recordingSaver{}, &countingPublisher{}, 1)
	p.Close()
	p.Close()

	assert.ErrorIs(t, p.OnWrite(context.Background(), 1), ErrClosed)
}

func TestWriteBackCancelledContextStillSaves(t *testing.T) {
	var gotErr error
	saver := SaverFunc[int](func(ctx context.Context, _ int) error {
		gotErr = ctx.Err()
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	p := NewWriteBackPolicy[int](types.Services, saver, &countingPublisher{}, 1)
	require.NoError(t, p.OnWrite(ctx, 1))
	cancel()
	p.Close()

	assert.NoError(t, gotErr)
}

func TestWriteBackInvalidatesThroughBus(t *testing.T) {
	b := bus.New()
	calls := 0
	store := newStore(t, func() int { calls++; return calls })
	b.Subscribe(types.Services, func(bus.Event) { store.Invalidate() })

	store.Fetch(context.Background())
	require.True(t, store.IsFresh())

	p := NewWriteBackPolicy[int](types.Services, &recordingSaver{}, b, 1)
	require.NoError(t, p.OnWrite(context.Background(), 9))
	p.Close()

	assert.False(t, store.IsFresh())
	assert.Equal(t, 2, store.Fetch(context.Background()))
}
