package types

import "time"

/*
Entry is the unit of cached state owned by a single store.

A zero Entry means "nothing cached": no value, no timestamp and no fetch
running. Only the owning store mutates it, always under the store lock.
*/
type Entry[T any] struct {
	// Value is the last committed value. Only meaningful when HasValue is true.
	Value T

	// HasValue is false until the first fetch (or Update) commits.
	HasValue bool

	// FetchedAt is when Value was committed. Zero => absent.
	FetchedAt time.Time

	// Flight is the key of the pending fetch. Empty => no fetch running.
	// Every caller that finds a non-empty Flight joins that fetch instead of
	// starting its own.
	Flight string
}

// InFlight reports whether a fetch is currently pending for this entry.
func (e *Entry[T]) InFlight() bool {
	return e.Flight != ""
}
