package types

import mapset "github.com/deckarep/golang-set/v2"

// Kind names one family of public data. It is the unit of granularity for
// both caching and invalidation.
type Kind string

const (
	Services     Kind = "services"
	Hours        Kind = "hours"
	Settings     Kind = "settings"
	Gallery      Kind = "gallery"
	Testimonials Kind = "testimonials"
)

// Kinds lists every data kind in a stable order.
var Kinds = []Kind{Services, Hours, Settings, Gallery, Testimonials}

var known = mapset.NewThreadUnsafeSet(Kinds...)

// Valid reports whether k is one of the known data kinds.
func (k Kind) Valid() bool {
	return known.Contains(k)
}

func (k Kind) String() string {
	return string(k)
}
