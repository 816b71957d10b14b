package model

import (
	"fmt"
	"time"
)

// DateLayout is the wire format for civil dates (YYYY-MM-DD).
const DateLayout = "2006-01-02"

// Day normalises t to midnight UTC of the same calendar day.  All dates
// handled by the booking core are civil dates; the time of day carries no
// meaning and is dropped here.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDay parses a YYYY-MM-DD string into a normalised day.
func ParseDay(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return Day(t), nil
}

// DateRange is a half-open interval of nights [Start, End).  Start is the
// check-in day and End the check-out day; the night starting on End is not
// part of the range.
//
// Fields:
//  Start – first night (check-in day).
//  End   – check-out day, exclusive.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewDateRange builds a normalised range.  It does not validate; call
// Validate before relying on End > Start.
func NewDateRange(start, end time.Time) DateRange {
	return DateRange{Start: Day(start), End: Day(end)}
}

// Normalize returns the range with both bounds truncated to whole days.
func (r DateRange) Normalize() DateRange { return NewDateRange(r.Start, r.End) }

// Validate returns ErrInvalidDateRange unless End is strictly after Start.
func (r DateRange) Validate() error {
	if r.Start.IsZero() || r.End.IsZero() || !Day(r.End).After(Day(r.Start)) {
		return fmt.Errorf("%w: %s", ErrInvalidDateRange, r)
	}
	return nil
}

// MaxStayNights bounds the length of a booking or hold.
const MaxStayNights = 365

// ValidateStay is Validate plus the MaxStayNights bound.
func (r DateRange) ValidateStay() error {
	if err := r.Validate(); err != nil {
		return err
	}
	if r.Nights() > MaxStayNights {
		return fmt.Errorf("%w: %s is longer than %d nights", ErrInvalidDateRange, r, MaxStayNights)
	}
	return nil
}

const secondsPerDay = 24 * 60 * 60

// Nights returns the number of whole nights in the range.  Invalid ranges
// have zero nights.
func (r DateRange) Nights() int {
	n := (Day(r.End).Unix() - Day(r.Start).Unix()) / secondsPerDay
	if n < 0 {
		return 0
	}
	return int(n)
}

// Overlaps reports whether two half-open ranges share at least one night.
// A check-out day equal to another range's check-in day does not overlap.
func (r DateRange) Overlaps(o DateRange) bool {
	return r.Start.Before(o.End) && o.Start.Before(r.End)
}

// ContainsNight reports whether the night starting on d, i.e. [d, d+1), is
// part of the range.
func (r DateRange) ContainsNight(d time.Time) bool {
	d = Day(d)
	return !d.Before(r.Start) && d.Before(r.End)
}

// ContainsDay is an alias for ContainsNight used where a range marks whole
// calendar days, as blockages do.
func (r DateRange) ContainsDay(d time.Time) bool { return r.ContainsNight(d) }

// Nightly returns the start day of every night in the range, in order.
func (r DateRange) Nightly() []time.Time {
	n := r.Nights()
	out := make([]time.Time, 0, n)
	for d := Day(r.Start); d.Before(Day(r.End)); d = d.AddDate(0, 0, 1) {
		out = append(out, d)
	}
	return out
}

// Days is Nightly under the name used for calendar rendering.
func (r DateRange) Days() []time.Time { return r.Nightly() }

// Intersect returns the overlap of two ranges and whether it is non-empty.
func (r DateRange) Intersect(o DateRange) (DateRange, bool) {
	start := r.Start
	if o.Start.After(start) {
		start = o.Start
	}
	end := r.End
	if o.End.Before(end) {
		end = o.End
	}
	if !end.After(start) {
		return DateRange{}, false
	}
	return DateRange{Start: start, End: end}, true
}

// Equal reports whether both bounds fall on the same days.
func (r DateRange) Equal(o DateRange) bool {
	return Day(r.Start).Equal(Day(o.Start)) && Day(r.End).Equal(Day(o.End))
}

func (r DateRange) String() string {
	return r.Start.Format(DateLayout) + ".." + r.End.Format(DateLayout)
}
