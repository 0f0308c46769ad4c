package api

import (
	"context"

	"github.com/krisalay/salon-cache/refresh"
	"github.com/krisalay/salon-cache/types"
)

/*
Cache defines the PUBLIC API of one data kind's cache store.
This is a contract that guarantees certain behaviors, without exposing internals.
All of the details like (freshness, coalescing, generations, fallback values)
are hidden behind this interface. Consumer bindings only ever see this.
*/
type Cache[T any] interface {

	// Kind returns the data kind this cache holds.
	Kind() types.Kind

	/*
		GetCached returns the last committed value.

		BEHAVIOR:
		---------
		- No side effects: never fetches, never touches timestamps
		- The bool is false before the first commit and after Invalidate
		- Stores built with a clone function hand out copies. Without one the
		  value is shared with every other caller and must be treated as read-only
	*/
	GetCached() (T, bool)

	// IsFresh reports whether a value was committed less than one TTL ago.
	IsFresh() bool

	/*
		Fetch returns a value for this kind. It never fails.

		BEHAVIOR:
		-------------------
		1. If the cached value is fresh:
		   - Return it immediately (no network call)

		2. If a fetch is already running:
		   - Wait for it and return its result (request coalescing)

		3. Otherwise:
		   - Start one fetch against the data source
		   - Commit the result, or the default value if the fetch failed
		   - Return what was committed

		The returned value follows the same copy rules as GetCached.
		A failed fetch is logged, never returned. If ctx ends while waiting,
		the caller gets the cached value (or the default) and the shared fetch
		keeps running for everyone else.
	*/
	Fetch(ctx context.Context) T

	/*
		Invalidate clears the cached value, its timestamp and the pending fetch.

		A fetch that started before Invalidate still completes, but its result
		is discarded. The next Fetch always starts a new fetch.

		This operation is idempotent.
	*/
	Invalidate()

	/*
		Update sets the cached value directly, stamped now, without a round-trip.

		USE CASES:
		----------
		- Admin screens that just saved a value and already know it
	*/
	Update(value T)

	// Watch registers a hook that runs after every commit. The returned
	// function unregisters it.
	Watch(hook refresh.Hook[T]) (cancel func())
}
