package salon

import (
	"time"

	"github.com/krisalay/salon-cache/types"
)

// DefaultTTLs is the freshness window of each data kind.
var DefaultTTLs = map[types.Kind]time.Duration{
	types.Services:     5 * time.Minute,
	types.Hours:        10 * time.Minute,
	types.Settings:     15 * time.Minute,
	types.Gallery:      5 * time.Minute,
	types.Testimonials: 3 * time.Minute,
}

// DefaultOpeningHours is served when the hours cannot be fetched, so the
// page always has something to show.
func DefaultOpeningHours() OpeningHours {
	weekday := DayHours{Open: "09:00", Close: "18:00"}
	return OpeningHours{
		Monday:    weekday,
		Tuesday:   weekday,
		Wednesday: weekday,
		Thursday:  weekday,
		Friday:    weekday,
		Saturday:  DayHours{Open: "09:00", Close: "14:00"},
		Sunday:    DayHours{Closed: true},
	}
}
