// Package schedule expands weekly schedules into trips, assigns drivers, copies weeks and
// commits route reorderings.
package schedule

import (
	"fmt"
	"time"

	"tripsched/internal/model"
)

// InputError is returned for requests that are rejected before any processing.
type InputError struct {
	Field   string
	Message string
}

func (e *InputError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func inputErr(field, format string, args ...any) error {
	return &InputError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// DateRange is an inclusive range of calendar days.
type DateRange struct {
	Start time.Time
	End   time.Time
}

func parseDate(field, s string) (time.Time, error) {
	d, err := time.Parse(model.DateLayout, s)
	if err != nil {
		return time.Time{}, inputErr(field, "invalid date %q, want YYYY-MM-DD", s)
	}
	return d, nil
}

// ParseRange validates start <= end and a length of at most maxDays (0 = unbounded).
func ParseRange(start, end string, maxDays int) (DateRange, error) {
	s, err := parseDate("start", start)
	if err != nil {
		return DateRange{}, err
	}
	e, err := parseDate("end", end)
	if err != nil {
		return DateRange{}, err
	}
	if e.Before(s) {
		return DateRange{}, inputErr("end", "end %s is before start %s", end, start)
	}
	r := DateRange{Start: s, End: e}
	if maxDays > 0 && len(r.Days()) > maxDays {
		return DateRange{}, inputErr("end", "range spans %d days, at most %d allowed", len(r.Days()), maxDays)
	}
	return r, nil
}

// Days lists every date of the range in order.
func (r DateRange) Days() []time.Time {
	var out []time.Time
	for d := r.Start; !d.After(r.End); d = d.AddDate(0, 0, 1) {
		out = append(out, d)
	}
	return out
}

// Filter returns a trip filter covering the range.
func (r DateRange) Filter() model.TripFilter {
	return model.TripFilter{From: r.Start.Format(model.DateLayout), To: r.End.Format(model.DateLayout)}
}

func (r DateRange) String() string {
	return r.Start.Format(model.DateLayout) + ".." + r.End.Format(model.DateLayout)
}

// week returns the seven-day range starting at start.
func week(start time.Time) DateRange {
	return DateRange{Start: start, End: start.AddDate(0, 0, 6)}
}

func weekdayOf(date string) string {
	d, err := time.Parse(model.DateLayout, date)
	if err != nil {
		return date
	}
	return d.Weekday().String()
}
