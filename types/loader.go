package types

import "context"

// Fetcher is the contract between a store and its data source.
type Fetcher[T any] interface {

	/*
		Fetch is called when the store has no fresh value and no fetch is
		already running.
		1. Store checks its entry → stale or empty
		2. Store calls Fetch(ctx)
		3. Fetcher talks to the database / API
		4. Store commits the result (or its default on error)
		5. Every waiting caller gets the same value

		Fetch may fail. The store never hands the error to its callers.
	*/
	Fetch(ctx context.Context) (T, error)
}

// FetcherFunc adapts a plain function to the Fetcher interface.
type FetcherFunc[T any] func(ctx context.Context) (T, error)

// Fetch calls f(ctx).
func (f FetcherFunc[T]) Fetch(ctx context.Context) (T, error) {
	return f(ctx)
}
