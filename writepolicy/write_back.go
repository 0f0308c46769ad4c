package writepolicy

import (
	"context"
	"sync"

	"github.com/apex/log"

	"github.com/krisalay/salon-cache/bus"
	"github.com/krisalay/salon-cache/types"
)

// This file implements the "write-back" policy.

// writeReq represents one pending save.
type writeReq[T any] struct {
	ctx   context.Context
	value T
}

/*
WriteBackPolicy saves values asynchronously and publishes
invalidate-<kind> after each successful save, so stores drop the old value
and mounted bindings refetch.
*/
type WriteBackPolicy[T any] struct {
	kind  types.Kind
	saver Saver[T]
	pub   bus.Publisher

	// ch is a buffered channel that holds pending saves.
	ch chan writeReq[T]

	// mu guards closed. OnWrite sends under the read lock so Close can never
	// close ch under a sender.
	mu     sync.RWMutex
	closed bool

	// wg is used to wait for the worker to finish during shutdown.
	wg sync.WaitGroup
}

var _ WritePolicy[int] = (*WriteBackPolicy[int])(nil)

// NewWriteBackPolicy creates a write-back policy for kind and starts its worker.
func NewWriteBackPolicy[T any](kind types.Kind, saver Saver[T], pub bus.Publisher, buffer int) *WriteBackPolicy[T] {
	w := &WriteBackPolicy[T]{
		kind:  kind,
		saver: saver,
		pub:   pub,
		ch:    make(chan writeReq[T], buffer),
	}

	w.wg.Add(1)
	go w.worker()

	return w
}

// OnWrite queues value for saving. It never blocks: a full queue returns
// ErrQueueFull and the admin flow decides whether to retry.
func (w *WriteBackPolicy[T]) OnWrite(ctx context.Context, value T) error {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.closed {
		return ErrClosed
	}

	select {
	case w.ch <- writeReq[T]{ctx: context.WithoutCancel(ctx), value: value}:
		return nil
	default:
		return ErrQueueFull
	}
}

/*
worker runs in the background and processes queued saves.
A failed save is logged and nothing is published: the cached value is still
the last one the database actually holds.
*/
func (w *WriteBackPolicy[T]) worker() {
	defer w.wg.Done()

	for req := range w.ch {
		if err := w.saver.Save(req.ctx, req.value); err != nil {
			log.WithError(err).WithField("kind", w.kind).Error("write-back save failed")
			continue
		}
		w.pub.Publish(w.kind)
	}
}

/*
Close shuts down the write-back policy gracefully.
------------------
1. Stop accepting writes
2. Wait for the worker to finish processing queued saves

Calling Close more than once is safe.
*/
func (w *WriteBackPolicy[T]) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	close(w.ch)
	w.mu.Unlock()

	w.wg.Wait()
}
