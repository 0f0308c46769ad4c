package types

// This file defines how a store reports what it is doing.

/*
Metrics is an interface that defines what the stores want to measure.
Each method represents an event in a store's lifecycle, tagged with the data
kind of the store that raised it.
*/
type Metrics interface {

	// Hit is called when Fetch returns a fresh cached value without a fetch.
	Hit(Kind)

	// Miss is called when Fetch starts a new underlying fetch.
	Miss(Kind)

	// Coalesced is called when Fetch joins a fetch that is already running.
	Coalesced(Kind)

	// Failure is called when the underlying fetch fails and the default is served.
	Failure(Kind)

	// Discard is called when a fetch completes after an invalidation and its
	// result is thrown away instead of committed.
	Discard(Kind)

	// Invalidate is called whenever a store's entry is cleared.
	Invalidate(Kind)
}

/*
NoopMetrics is a "do nothing" implementation of Metrics.

Stores always hold a non-nil Metrics, so callers that do not care about
metrics get this one and nothing has to check for nil.
*/
type NoopMetrics struct{}

func (NoopMetrics) Hit(Kind)        {}
func (NoopMetrics) Miss(Kind)       {}
func (NoopMetrics) Coalesced(Kind)  {}
func (NoopMetrics) Failure(Kind)    {}
func (NoopMetrics) Discard(Kind)    {}
func (NoopMetrics) Invalidate(Kind) {}
