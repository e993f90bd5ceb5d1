package filter

import (
	"fmt"
	"time"
)

// Window is an inclusive-exclusive UTC instant range [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// Resolve computes the UTC window for a date-bearing filter. RecentCount
// has no window and returns ok=false. Pure: all inputs are explicit, no
// clock access.
func Resolve(f Filter, loc *time.Location, now time.Time) (Window, bool, error) {
	if loc == nil {
		loc = time.UTC
	}
	switch f.Kind {
	case RecentCount:
		return Window{}, false, nil
	case RecentDays:
		local := now.In(loc)
		start := local.AddDate(0, 0, -f.Count)
		return Window{Start: start.UTC(), End: local.UTC()}, true, nil
	case SpecificDate:
		start := f.Date
		if start.Location() == time.UTC && loc != time.UTC {
			// Date was parsed elsewhere; pin it to the user's zone.
			start = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, loc)
		}
		if start.After(now.In(loc)) {
			return Window{}, false, fmt.Errorf("%w: date %s is in the future", ErrInvalidFilter, start.Format(DateLayout))
		}
		end := start.AddDate(0, 0, 1)
		return Window{Start: start.UTC(), End: end.UTC()}, true, nil
	}
	return Window{}, false, fmt.Errorf("%w: unknown filter kind %d", ErrInvalidFilter, f.Kind)
}
