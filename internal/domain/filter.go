package domain

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the format of the from/to query parameters.
const DateLayout = "2006-01-02"

// Date is a calendar day without a location.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// ParseDate parses a yyyy-mm-dd string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return Date{t.Year(), t.Month(), t.Day()}, nil
}

// DateOf returns the calendar day of t in loc.
func DateOf(t time.Time, loc *time.Location) Date {
	y, m, d := t.In(loc).Date()
	return Date{y, m, d}
}

// Start is 00:00 of the day in loc.
func (d Date) Start(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// Before reports whether d is strictly earlier than o.
func (d Date) Before(o Date) bool {
	if d.Year != o.Year {
		return d.Year < o.Year
	}
	if d.Month != o.Month {
		return d.Month < o.Month
	}
	return d.Day < o.Day
}

// SalesFilter is shared by the sales list and both exports.
type SalesFilter struct {
	Search string
	From   *Date
	To     *Date
}

// Normalized returns a copy with the search text trimmed.
func (f SalesFilter) Normalized() SalesFilter {
	f.Search = strings.TrimSpace(f.Search)
	return f
}

// Bounds converts the day range into instants in loc: from is inclusive at
// 00:00 of From, until is exclusive at 00:00 of the day after To, so every
// instant of To's day is included. Nil means unbounded.
func (f SalesFilter) Bounds(loc *time.Location) (from, until *time.Time) {
	if f.From != nil {
		t := f.From.Start(loc)
		from = &t
	}
	if f.To != nil {
		t := f.To.Start(loc).AddDate(0, 0, 1)
		until = &t
	}
	return from, until
}
