package engine

import (
	"context"
	"time"

	"github.com/krisalay/salon-cache/expiration"
	"github.com/krisalay/salon-cache/types"
)

/*
Engine is the "brain" of one store.
It is responsible for the "behavior" of the store, NOT its state.
This acts as the policy layer.

It decides:
- When a committed value is stale
- What "now" is
- How data is fetched when the store has nothing fresh
- How metrics are recorded

It does NOT:
- Hold the cached entry
- Coalesce concurrent fetches
- Handle locking
- Talk to the invalidation bus
*/
type Engine[T any] struct {

	// Expiration controls when a committed value is considered “too old”.
	// If this is nil, values never go stale on their own; only an
	// invalidation clears them.
	Expiration expiration.Strategy

	// Fetcher is how the store talks to the outside world when it does NOT
	// have fresh data: a database query, an API call.
	Fetcher types.Fetcher[T]

	// Clock provides "now" for freshness checks and commit stamps.
	Clock types.Clock

	// Metrics is how we keep track of what the store is doing.
	Metrics types.Metrics

	// Clone copies a value before it leaves the store, so callers can not
	// mutate the cached map or slice behind other callers' backs. Nil means
	// values are handed out as they are.
	Clone func(T) T
}

/*
NewEngine creates an Engine.
*/
func NewEngine[T any](
	exp expiration.Strategy,
	fetcher types.Fetcher[T],
	clock types.Clock,
	metrics types.Metrics,
) *Engine[T] {

	// Ensure clock and metrics are always non-nil
	if clock == nil {
		clock = types.SystemClock{}
	}
	if metrics == nil {
		metrics = types.NoopMetrics{}
	}

	return &Engine[T]{
		Expiration: exp,
		Fetcher:    fetcher,
		Clock:      clock,
		Metrics:    metrics,
	}
}

// WithTTL is the common case: a fixed freshness window.
func WithTTL[T any](ttl time.Duration, fetcher types.Fetcher[T]) *Engine[T] {
	return NewEngine[T](&expiration.ExpireAfterWrite{TTL: ttl}, fetcher, nil, nil)
}

// Now returns the engine clock's current time.
func (e *Engine[T]) Now() time.Time {
	return e.Clock.Now()
}

/*
IsFresh checks whether an entry can be served without fetching.

BEHAVIOR:
---------
- An entry that was never committed is never fresh
- Delegates the staleness decision to the configured Expiration strategy
- Returns true for committed entries if no strategy is configured
*/
func (e *Engine[T]) IsFresh(ent *types.Entry[T]) bool {
	if ent.FetchedAt.IsZero() {
		return false
	}
	return e.Expiration == nil ||
		!e.Expiration.IsExpired(ent.FetchedAt, e.Now())
}

// Copy returns v passed through Clone, or v itself when Clone is nil.
func (e *Engine[T]) Copy(v T) T {
	if e.Clone == nil {
		return v
	}
	return e.Clone(v)
}

/*
Load is used when the store does NOT have fresh data.

This usually means:
- A database query
- A network request
*/
func (e *Engine[T]) Load(ctx context.Context) (T, error) {
	return e.Fetcher.Fetch(ctx)
}
