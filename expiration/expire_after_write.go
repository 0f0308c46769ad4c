package expiration

import "time"

/*
ExpireAfterWrite implements a fixed freshness window. A value is fresh for TTL
after it was committed, no matter how often it is read. Reads never push the
deadline forward; only a new commit (fetch, failed fetch, or Update) does.
*/
type ExpireAfterWrite struct {

	// TTL (Time-To-Live) is how long a committed value stays fresh.
	TTL time.Duration
}

// IsExpired is the negation of "fetchedAt is set and now - fetchedAt < TTL".
func (e *ExpireAfterWrite) IsExpired(fetchedAt, now time.Time) bool {
	if fetchedAt.IsZero() {
		return true
	}
	return now.Sub(fetchedAt) >= e.TTL
}
