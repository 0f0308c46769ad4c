// Package binding adapts a cache store into a view-local reactive value:
// stale value first, fresh value when it arrives, and a refresh whenever the
// store's kind is invalidated on the bus.
package binding

import (
	"context"
	"sync"

	"github.com/apex/log"
	"github.com/google/uuid"

	"github.com/krisalay/salon-cache/api"
	"github.com/krisalay/salon-cache/bus"
	"github.com/krisalay/salon-cache/refresh"
	"github.com/krisalay/salon-cache/types"
)

type State int

const (
	Idle State = iota
	Loading
	Ready
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	default:
		return "unknown"
	}
}

// Snapshot is what a view renders. HasValue is false only while loading
// with nothing cached yet.
type Snapshot[T any] struct {
	State    State
	Value    T
	HasValue bool
}

// RenderFunc is called on every state or value change while mounted. It runs
// on whichever goroutine produced the change and must not block.
type RenderFunc[T any] func(Snapshot[T])

type Binding[T any] struct {
	id     uuid.UUID
	cache  api.Cache[T]
	sub    bus.Subscriber
	render RenderFunc[T]

	// renderMu orders transitions: each state change and its render happen
	// together, so renders are seen in the order the changes were made.
	renderMu sync.Mutex

	mu      sync.Mutex
	snap    Snapshot[T]
	mounted bool
	seq     uint64
	ctx     context.Context
	cancels []func()

	inflight sync.WaitGroup
}

// New binds cache to a view. render must not call Mount, Unmount or Refetch.
func New[T any](cache api.Cache[T], sub bus.Subscriber, render RenderFunc[T]) *Binding[T] {
	if render == nil {
		render = func(Snapshot[T]) {}
	}
	return &Binding[T]{
		id:     uuid.New(),
		cache:  cache,
		sub:    sub,
		render: render,
	}
}

func (b *Binding[T]) ID() uuid.UUID { return b.id }

func (b *Binding[T]) Kind() types.Kind { return b.cache.Kind() }

func (b *Binding[T]) logger() *log.Entry {
	return log.WithField("kind", b.cache.Kind()).WithField("binding", b.id.String())
}

// Mount shows whatever the store has cached, then fetches in the background.
// From here on the binding follows bus invalidations and store commits until
// Unmount. Mounting twice is a no-op.
func (b *Binding[T]) Mount(ctx context.Context) {
	b.mu.Lock()
	if b.mounted {
		b.mu.Unlock()
		return
	}
	b.mounted = true
	b.ctx = context.WithoutCancel(ctx)
	if v, ok := b.cache.GetCached(); ok {
		b.snap.Value, b.snap.HasValue = v, true
	}
	b.mu.Unlock()

	cancels := []func(){
		b.sub.Subscribe(b.cache.Kind(), b.onInvalidate),
		b.cache.Watch(refresh.HookFunc[T](b.onRefresh)),
	}
	b.mu.Lock()
	b.cancels = cancels
	b.mu.Unlock()

	b.logger().Debug("mounted")
	b.startRefresh()
}

// Unmount stops all updates. No render happens after Unmount returns.
func (b *Binding[T]) Unmount() {
	b.renderMu.Lock()
	b.mu.Lock()
	if !b.mounted {
		b.mu.Unlock()
		b.renderMu.Unlock()
		return
	}
	b.mounted = false
	cancels := b.cancels
	b.cancels = nil
	b.mu.Unlock()
	b.renderMu.Unlock()

	for _, c := range cancels {
		c()
	}
	b.logger().Debug("unmounted")
}

// Snapshot returns the current render state.
func (b *Binding[T]) Snapshot() Snapshot[T] {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.snap
}

func (b *Binding[T]) State() State {
	return b.Snapshot().State
}

func (b *Binding[T]) Value() (T, bool) {
	s := b.Snapshot()
	return s.Value, s.HasValue
}

// Refetch drops the store's cached value and fetches a new one, returning it
// once it is committed. Used after a successful save in admin screens.
func (b *Binding[T]) Refetch(ctx context.Context) T {
	b.cache.Invalidate()

	seq, ok := b.beginLoading()
	v := b.cache.Fetch(ctx)
	if ok {
		b.finish(seq, v)
	}
	return v
}

// Wait blocks until background fetches started by this binding have returned.
func (b *Binding[T]) Wait() {
	b.inflight.Wait()
}

func (b *Binding[T]) onInvalidate(e bus.Event) {
	b.logger().WithField("event", e.Name()).Debug("invalidation received")
	b.startRefresh()
}

// onRefresh handles a commit made by anyone: our own fetch, another binding's,
// or an Update. It supersedes any refresh we still have running.
func (b *Binding[T]) onRefresh(_ types.Kind, v T) {
	b.transition(func() bool {
		b.seq++
		b.snap = Snapshot[T]{State: Ready, Value: v, HasValue: true}
		return true
	})
}

func (b *Binding[T]) startRefresh() {
	seq, ok := b.beginLoading()
	if !ok {
		return
	}

	b.mu.Lock()
	ctx := b.ctx
	b.mu.Unlock()

	b.inflight.Add(1)
	go func() {
		defer b.inflight.Done()
		b.finish(seq, b.cache.Fetch(ctx))
	}()
}

// beginLoading moves to Loading and returns the refresh sequence number the
// result must still match to be applied.
func (b *Binding[T]) beginLoading() (seq uint64, ok bool) {
	ok = b.transition(func() bool {
		b.seq++
		seq = b.seq
		b.snap.State = Loading
		return true
	})
	return seq, ok
}

func (b *Binding[T]) finish(seq uint64, v T) {
	b.transition(func() bool {
		if seq != b.seq {
			return false
		}
		b.snap = Snapshot[T]{State: Ready, Value: v, HasValue: true}
		return true
	})
}

// transition applies a state change and renders it, unless the binding is
// unmounted or apply declines.
func (b *Binding[T]) transition(apply func() bool) bool {
	b.renderMu.Lock()
	defer b.renderMu.Unlock()

	b.mu.Lock()
	if !b.mounted || !apply() {
		b.mu.Unlock()
		return false
	}
	snap := b.snap
	b.mu.Unlock()

	b.render(snap)
	return true
}
