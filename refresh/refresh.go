// This file defines the idea of a "refresh hook".
// A hook lets something outside a store react WHEN the store commits a new value.
// The goal of refresh is: "Views that already show a value get the new one without asking"

package refresh

import (
	"sync"

	"github.com/krisalay/salon-cache/types"
)

/*
Hook is the interface for refresh behavior.
A store calls every registered hook after it commits a value: a successful
fetch, the default after a failed fetch, or an optimistic Update.

The store does NOT care what the hook does.
It just calls OnRefresh and moves on.
*/
type Hook[T any] interface {

	/*
		OnRefresh is called after a commit, outside the store lock.
		This method MUST be fast and non blocking because it runs on the
		goroutine that completed the fetch, and every waiting caller is
		released only after the hooks return.
	*/
	OnRefresh(kind types.Kind, value T)
}

// HookFunc adapts a plain function to the Hook interface.
type HookFunc[T any] func(kind types.Kind, value T)

func (f HookFunc[T]) OnRefresh(kind types.Kind, value T) { f(kind, value) }

// Hooks is the set of hooks registered on one store.
type Hooks[T any] struct {
	mu    sync.RWMutex
	next  uint64
	hooks map[uint64]Hook[T]
	order []uint64
}

// Add registers h and returns a function that removes it again.
// Calling the returned function more than once is safe.
func (hs *Hooks[T]) Add(h Hook[T]) (remove func()) {
	hs.mu.Lock()
	if hs.hooks == nil {
		hs.hooks = make(map[uint64]Hook[T])
	}
	hs.next++
	id := hs.next
	hs.hooks[id] = h
	hs.order = append(hs.order, id)
	hs.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			hs.mu.Lock()
			defer hs.mu.Unlock()
			delete(hs.hooks, id)
			for i, v := range hs.order {
				if v == id {
					hs.order = append(hs.order[:i], hs.order[i+1:]...)
					break
				}
			}
		})
	}
}

// Notify calls every registered hook in registration order. Hooks may add or
// remove hooks while being notified; those changes apply to the next Notify.
func (hs *Hooks[T]) Notify(kind types.Kind, value T) {
	hs.mu.RLock()
	snapshot := make([]Hook[T], 0, len(hs.order))
	for _, id := range hs.order {
		snapshot = append(snapshot, hs.hooks[id])
	}
	hs.mu.RUnlock()

	for _, h := range snapshot {
		h.OnRefresh(kind, value)
	}
}

// Len returns how many hooks are registered.
func (hs *Hooks[T]) Len() int {
	hs.mu.RLock()
	defer hs.mu.RUnlock()
	return len(hs.order)
}
