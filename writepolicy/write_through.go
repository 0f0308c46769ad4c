package writepolicy

import (
	"context"
	"fmt"

	"github.com/krisalay/salon-cache/api"
	"github.com/krisalay/salon-cache/bus"
)

/*
This file implements the "write-through" policy.

The flow is: DB write (synchronous) → invalidate-<kind> → store.Update

Publishing clears every store of the kind on the bus, including stores of
other registries sharing it. The saved value then goes straight back into the
writer's own store, so its bindings re-render without a round-trip.
*/

type WriteThroughPolicy[T any] struct {

	// saver is where data must be persisted immediately.
	saver Saver[T]

	// cache is the store of the kind being written.
	cache api.Cache[T]

	pub bus.Publisher
}

var _ WritePolicy[int] = (*WriteThroughPolicy[int])(nil)

func NewWriteThroughPolicy[T any](saver Saver[T], cache api.Cache[T], pub bus.Publisher) *WriteThroughPolicy[T] {
	return &WriteThroughPolicy[T]{saver: saver, cache: cache, pub: pub}
}

/*
OnWrite saves value, publishes the kind and commits value to the store.
  - This call is synchronous
  - If the save fails nothing is published, the store is left untouched and
    the error is returned
*/
func (w *WriteThroughPolicy[T]) OnWrite(ctx context.Context, value T) error {
	kind := w.cache.Kind()
	if err := w.saver.Save(ctx, value); err != nil {
		return fmt.Errorf("save %s: %w", kind, err)
	}
	w.pub.Publish(kind)
	w.cache.Update(value)
	return nil
}

// Close is a no-op: write-through has no background worker.
func (w *WriteThroughPolicy[T]) Close() {}
