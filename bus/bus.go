// Package bus is the process-wide invalidation channel. Writers publish that a
// data kind changed; every store and mounted binding of that kind hears it.
package bus

import (
	"fmt"
	"sync"

	"github.com/apex/log"

	"github.com/krisalay/salon-cache/types"
)

// Event is one invalidation signal. All is set for invalidate-all, in which
// case Kind is the kind of the subscriber being called.
type Event struct {
	Kind types.Kind
	All  bool
}

// Name returns the event name, "invalidate-all" or "invalidate-<kind>".
func (e Event) Name() string {
	if e.All {
		return "invalidate-all"
	}
	return "invalidate-" + string(e.Kind)
}

type Handler func(Event)

// Subscriber is the half of the bus that stores and bindings need.
type Subscriber interface {
	Subscribe(kind types.Kind, h Handler) (unsubscribe func())
}

// Publisher is the half of the bus that write flows need.
type Publisher interface {
	Publish(kind types.Kind)
	PublishAll()
}

type subscription struct {
	id uint64
	h  Handler
}

// Bus dispatches invalidation events synchronously to the handlers that are
// subscribed at the moment of publishing. Nothing is queued or replayed.
type Bus struct {
	mu   sync.RWMutex
	next uint64
	subs map[types.Kind][]subscription
}

var (
	_ Subscriber = (*Bus)(nil)
	_ Publisher  = (*Bus)(nil)
)

func New() *Bus {
	return &Bus{subs: make(map[types.Kind][]subscription)}
}

// Subscribe registers h for kind. h runs on the publisher's goroutine, in
// subscription order, for Publish(kind) and PublishAll(). Subscribing to an
// unknown kind is a programming error and panics.
func (b *Bus) Subscribe(kind types.Kind, h Handler) (unsubscribe func()) {
	if !kind.Valid() {
		panic(fmt.Sprintf("bus: subscribe to unknown kind %q", kind))
	}

	b.mu.Lock()
	b.next++
	id := b.next
	b.subs[kind] = append(b.subs[kind], subscription{id: id, h: h})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(kind, id) })
	}
}

func (b *Bus) remove(kind types.Kind, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subs[kind]
	for i, s := range subs {
		if s.id == id {
			// copy so a snapshot taken by an in-progress Publish stays intact
			next := make([]subscription, 0, len(subs)-1)
			next = append(next, subs[:i]...)
			next = append(next, subs[i+1:]...)
			b.subs[kind] = next
			return
		}
	}
}

// Publish fires invalidate-<kind>. Fire-and-forget: with no subscribers it
// does nothing.
func (b *Bus) Publish(kind types.Kind) {
	if !kind.Valid() {
		log.WithField("kind", kind).Warn("ignoring invalidation for unknown kind")
		return
	}

	b.mu.RLock()
	subs := b.subs[kind]
	b.mu.RUnlock()

	log.WithField("kind", kind).WithField("subscribers", len(subs)).Debug("publishing invalidation")
	for _, s := range subs {
		s.h(Event{Kind: kind})
	}
}

// PublishAll fires invalidate-all: every subscriber of every kind is called,
// kinds in types.Kinds order.
func (b *Bus) PublishAll() {
	b.mu.RLock()
	snapshot := make(map[types.Kind][]subscription, len(b.subs))
	for k, v := range b.subs {
		snapshot[k] = v
	}
	b.mu.RUnlock()

	log.Debug("publishing invalidate-all")
	for _, kind := range types.Kinds {
		for _, s := range snapshot[kind] {
			s.h(Event{Kind: kind, All: true})
		}
	}
}

// Subscribers returns how many handlers are registered for kind.
func (b *Bus) Subscribers(kind types.Kind) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[kind])
}
