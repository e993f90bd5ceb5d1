package filter

import (
	"errors"
	"fmt"
	"time"
)

// DateLayout is the fixed human-readable calendar format accepted for
// specific-date filters, e.g. "10 March 2025".
const DateLayout = "2 January 2006"

// ErrInvalidFilter is returned for bad filter input: a non-positive
// count, an unparseable date, or a date in the future.
var ErrInvalidFilter = errors.New("invalid filter")

// Kind discriminates the three supported filter shapes.
type Kind int

const (
	// RecentCount selects the n most recent messages.
	RecentCount Kind = iota
	// RecentDays selects messages from the last n days, evaluated in
	// the user's timezone.
	RecentDays
	// SpecificDate selects messages from one calendar day in the
	// user's timezone.
	SpecificDate
)

func (k Kind) String() string {
	switch k {
	case RecentCount:
		return "recent_count"
	case RecentDays:
		return "recent_days"
	case SpecificDate:
		return "specific_date"
	}
	return "unknown"
}

// Filter is a validated fetch filter. Construct via NewRecentCount,
// NewRecentDays or ParseSpecificDate; the zero value is not valid.
type Filter struct {
	Kind Kind

	// Count is the message count for RecentCount, or the day count
	// for RecentDays.
	Count int

	// Date is the local midnight of the requested day for
	// SpecificDate, carrying the user's timezone.
	Date time.Time
}

// NewRecentCount builds a "most recent n messages" filter.
func NewRecentCount(n int) (Filter, error) {
	if n <= 0 {
		return Filter{}, fmt.Errorf("%w: count must be positive, got %d", ErrInvalidFilter, n)
	}
	return Filter{Kind: RecentCount, Count: n}, nil
}

// NewRecentDays builds a "messages from the last n days" filter.
func NewRecentDays(n int) (Filter, error) {
	if n <= 0 {
		return Filter{}, fmt.Errorf("%w: days must be positive, got %d", ErrInvalidFilter, n)
	}
	return Filter{Kind: RecentDays, Count: n}, nil
}

// ParseSpecificDate builds a single-day filter from a "D MonthName YYYY"
// string interpreted in loc. Dates after now (in loc) are rejected.
func ParseSpecificDate(s string, loc *time.Location, now time.Time) (Filter, error) {
	if loc == nil {
		loc = time.UTC
	}
	d, err := time.ParseInLocation(DateLayout, s, loc)
	if err != nil {
		return Filter{}, fmt.Errorf("%w: %q does not match %q", ErrInvalidFilter, s, DateLayout)
	}
	// d is local midnight of the requested day.
	if d.After(now.In(loc)) {
		return Filter{}, fmt.Errorf("%w: date %q is in the future", ErrInvalidFilter, s)
	}
	return Filter{Kind: SpecificDate, Date: d}, nil
}
