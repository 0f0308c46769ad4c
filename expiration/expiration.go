// This file defines how cached values go stale over time.

package expiration

import "time"

/*
Strategy is the interface that all freshness rules must follow. Instead of
hard-coding the TTL check into the store, we define a strategy so the rule can
be swapped (or frozen in tests) easily.
*/
type Strategy interface {

	// IsExpired reports whether a value committed at fetchedAt is stale at now.
	// A zero fetchedAt means nothing was ever committed and is always expired.
	IsExpired(fetchedAt, now time.Time) bool
}
