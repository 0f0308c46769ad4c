package binding_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cache "github.com/krisalay/salon-cache"
	"github.com/krisalay/salon-cache/binding"
	"github.com/krisalay/salon-cache/bus"
	"github.com/krisalay/salon-cache/engine"
	"github.com/krisalay/salon-cache/expiration"
	"github.com/krisalay/salon-cache/types"
)

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// source hands out the current value, optionally holding every fetch until
// release is called.
type source struct {
	mu    sync.Mutex
	value string
	calls int
	gate  chan struct{}
}

func (s *source) Fetch(ctx context.Context) (string, error) {
	s.mu.Lock()
	s.calls++
	gate := s.gate
	s.mu.Unlock()

	if gate != nil {
		<-gate
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value, nil
}

func (s *source) set(v string) {
	s.mu.Lock()
	s.value = v
	s.mu.Unlock()
}

func (s *source) hold() {
	s.mu.Lock()
	s.gate = make(chan struct{})
	s.mu.Unlock()
}

func (s *source) release() {
	s.mu.Lock()
	close(s.gate)
	s.gate = nil
	s.mu.Unlock()
}

func (s *source) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type recorder struct {
	mu    sync.Mutex
	snaps []binding.Snapshot[string]
}

func (r *recorder) render(s binding.Snapshot[string]) {
	r.mu.Lock()
	r.snaps = append(r.snaps, s)
	r.mu.Unlock()
}

func (r *recorder) all() []binding.Snapshot[string] {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]binding.Snapshot[string](nil), r.snaps...)
}

func (r *recorder) reset() {
	r.mu.Lock()
	r.snaps = nil
	r.mu.Unlock()
}

type fixture struct {
	clock *manualClock
	src   *source
	store *cache.Store[string]
	bus   *bus.Bus
	rec   *recorder
	b     *binding.Binding[string]
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		clock: &manualClock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)},
		src:   &source{value: "v1"},
		bus:   bus.New(),
		rec:   &recorder{},
	}
	eng := engine.NewEngine[string](&expiration.ExpireAfterWrite{TTL: 10 * time.Minute}, f.src, f.clock, nil)
	f.store = cache.NewStore(types.Hours, eng, "default")
	f.bus.Subscribe(types.Hours, func(bus.Event) { f.store.Invalidate() })
	f.b = binding.New[string](f.store, f.bus, f.rec.render)
	t.Cleanup(f.b.Unmount)
	return f
}

func (f *fixture) waitReady(t *testing.T, want string) {
	t.Helper()
	require.Eventually(t, func() bool {
		s := f.b.Snapshot()
		return s.State == binding.Ready && s.Value == want
	}, time.Second, time.Millisecond)
	f.b.Wait()
}

func TestMountColdStore(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, binding.Idle, f.b.State())

	f.b.Mount(context.Background())
	f.waitReady(t, "v1")

	snaps := f.rec.all()
	require.Len(t, snaps, 2)
	assert.Equal(t, binding.Loading, snaps[0].State)
	assert.False(t, snaps[0].HasValue)
	assert.Equal(t, binding.Snapshot[string]{State: binding.Ready, Value: "v1", HasValue: true}, snaps[1])
	assert.Equal(t, 1, f.src.Calls())
}

func TestMountFreshStoreDoesNotFetch(t *testing.T) {
	f := newFixture(t)
	f.store.Update("cached")

	f.b.Mount(context.Background())
	f.waitReady(t, "cached")

	assert.Equal(t, 0, f.src.Calls())
}

func TestMountShowsStaleValueWhileRevalidating(t *testing.T) {
	f := newFixture(t)
	f.store.Update("old")
	f.clock.Advance(11 * time.Minute)
	f.src.set("new")
	f.src.hold()

	f.b.Mount(context.Background())

	snaps := f.rec.all()
	require.Len(t, snaps, 1)
	assert.Equal(t, binding.Snapshot[string]{State: binding.Loading, Value: "old", HasValue: true}, snaps[0])

	f.src.release()
	f.waitReady(t, "new")
}

func TestPublishWhileReadyRefreshes(t *testing.T) {
	f := newFixture(t)
	f.b.Mount(context.Background())
	f.waitReady(t, "v1")
	f.rec.reset()

	f.src.set("v2")
	f.bus.Publish(types.Hours)
	f.waitReady(t, "v2")

	snaps := f.rec.all()
	require.Len(t, snaps, 2)
	assert.Equal(t, binding.Loading, snaps[0].State)
	assert.Equal(t, "v1", snaps[0].Value, "stale value stays visible while loading")
	assert.Equal(t, binding.Snapshot[string]{State: binding.Ready, Value: "v2", HasValue: true}, snaps[1])
	assert.Equal(t, 2, f.src.Calls())
}

func TestPublishAllRefreshes(t *testing.T) {
	f := newFixture(t)
	f.b.Mount(context.Background())
	f.waitReady(t, "v1")

	f.src.set("v2")
	f.bus.PublishAll()
	f.waitReady(t, "v2")
}

func TestPublishOtherKindIgnored(t *testing.T) {
	f := newFixture(t)
	f.b.Mount(context.Background())
	f.waitReady(t, "v1")
	f.rec.reset()

	f.bus.Publish(types.Services)

	assert.Empty(t, f.rec.all())
	assert.Equal(t, 1, f.src.Calls())
}

func TestNoRenderAfterUnmount(t *testing.T) {
	f := newFixture(t)
	f.src.hold()

	f.b.Mount(context.Background())
	f.b.Unmount()
	f.src.release()
	f.b.Wait()

	snaps := f.rec.all()
	require.Len(t, snaps, 1)
	assert.Equal(t, binding.Loading, snaps[0].State)

	f.bus.Publish(types.Hours)
	f.store.Update("later")
	assert.Len(t, f.rec.all(), 1)
	assert.Equal(t, 1, f.bus.Subscribers(types.Hours), "only the store stays subscribed")
}

func TestRefetch(t *testing.T) {
	f := newFixture(t)
	f.b.Mount(context.Background())
	f.waitReady(t, "v1")

	f.src.set("v2")
	got := f.b.Refetch(context.Background())

	assert.Equal(t, "v2", got)
	assert.Equal(t, 2, f.src.Calls())
	f.waitReady(t, "v2")
}

func TestStoreUpdatePropagates(t *testing.T) {
	f := newFixture(t)
	f.b.Mount(context.Background())
	f.waitReady(t, "v1")

	f.store.Update("saved")

	v, ok := f.b.Value()
	assert.True(t, ok)
	assert.Equal(t, "saved", v)
	assert.Equal(t, binding.Ready, f.b.State())
}

func TestTwoBindingsShareOneFetch(t *testing.T) {
	f := newFixture(t)
	other := binding.New[string](f.store, f.bus, nil)
	t.Cleanup(other.Unmount)

	f.src.hold()
	f.b.Mount(context.Background())
	other.Mount(context.Background())
	require.Eventually(t, func() bool { return f.src.Calls() == 1 }, time.Second, time.Millisecond)
	f.src.release()

	f.waitReady(t, "v1")
	require.Eventually(t, func() bool { return other.State() == binding.Ready }, time.Second, time.Millisecond)
	assert.Equal(t, 1, f.src.Calls())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", binding.Idle.String())
	assert.Equal(t, "loading", binding.Loading.String())
	assert.Equal(t, "ready", binding.Ready.String())
}
