package writepolicy

import (
	"context"
	"errors"
)

/*
This file defines what a "write policy" is.

Admin screens change salon data (a new service price, a holiday closing).
After the change is persisted, every cached copy of that kind is out of date.
A write policy decides how the save and the cache update are sequenced:

- Write-through: save now, then put the saved value straight into the store
- Write-back: queue the save, and invalidate the kind once it went through
*/

var (
	// ErrQueueFull is returned by a write-back policy whose buffer is full.
	ErrQueueFull = errors.New("writepolicy: write queue is full")

	// ErrClosed is returned for writes after Close.
	ErrClosed = errors.New("writepolicy: policy is closed")
)

// Saver persists a value of one data kind, for example an UPDATE against the
// salon database.
type Saver[T any] interface {
	Save(ctx context.Context, value T) error
}

// SaverFunc adapts a plain function to the Saver interface.
type SaverFunc[T any] func(ctx context.Context, value T) error

func (f SaverFunc[T]) Save(ctx context.Context, value T) error { return f(ctx, value) }

/*
WritePolicy is the contract that all write policies must follow.
Admin flows do not care which policy is used. They simply call these methods.
*/
type WritePolicy[T any] interface {

	/*
		OnWrite is called whenever an admin flow changes a value.
	*/
	OnWrite(ctx context.Context, value T) error

	/*
		Close is called when the application is shutting down.
	*/
	Close()
}
