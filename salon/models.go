package salon

import (
	"fmt"
	"strings"
	"time"
)

// Service is one bookable treatment.
type Service struct {
	ID          string  `json:"id" db:"id"`
	Name        string  `json:"name" db:"name"`
	Description string  `json:"description" db:"description"`
	Price       float64 `json:"price" db:"price"`
	// Duration in minutes.
	Duration int `json:"duration" db:"duration"`
}

// DayHours is one day of the opening-hours table. Open and Close are "HH:MM".
type DayHours struct {
	Open   string `json:"open"`
	Close  string `json:"close"`
	Closed bool   `json:"closed"`
}

// OpeningHours holds the seven named days of the week.
type OpeningHours struct {
	Monday    DayHours `json:"monday"`
	Tuesday   DayHours `json:"tuesday"`
	Wednesday DayHours `json:"wednesday"`
	Thursday  DayHours `json:"thursday"`
	Friday    DayHours `json:"friday"`
	Saturday  DayHours `json:"saturday"`
	Sunday    DayHours `json:"sunday"`
}

// Day returns the entry for d.
func (h *OpeningHours) Day(d time.Weekday) DayHours {
	return *h.day(d)
}

// SetDay replaces the entry for d.
func (h *OpeningHours) SetDay(d time.Weekday, v DayHours) {
	*h.day(d) = v
}

func (h *OpeningHours) day(d time.Weekday) *DayHours {
	switch d {
	case time.Monday:
		return &h.Monday
	case time.Tuesday:
		return &h.Tuesday
	case time.Wednesday:
		return &h.Wednesday
	case time.Thursday:
		return &h.Thursday
	case time.Friday:
		return &h.Friday
	case time.Saturday:
		return &h.Saturday
	default:
		return &h.Sunday
	}
}

// ParseWeekday accepts English day names in any case, e.g. "monday".
func ParseWeekday(s string) (time.Weekday, error) {
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.EqualFold(s, d.String()) {
			return d, nil
		}
	}
	return 0, fmt.Errorf("unknown weekday %q", s)
}

// Photo is one gallery image already uploaded to object storage.
type Photo struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	URL       string    `json:"url" db:"url"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// Testimonial is a published client review.
type Testimonial struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Text      string    `json:"text" db:"text"`
	Rating    int       `json:"rating" db:"rating"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// Settings is the opaque key/value bag of site settings.
type Settings map[string]string
