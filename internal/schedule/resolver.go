// Package schedule projects bill and payday recurrences onto the calendar and
// aggregates bill amounts between paydays.
//
// Every function in this package is pure: it reads the records it is given,
// never mutates them, and keeps no state between calls, so callers may share
// snapshots across goroutines and memoize results freely.
package schedule

import (
	"fmt"

	"billtracker/internal/core"
)

// ResolveRecurring returns the date in ym for a day-of-month recurrence.
// Days past the end of a short month are clamped to its last day, so the
// 31st becomes April 30th and February 28th or 29th.
func ResolveRecurring(day int, ym core.YearMonth) (core.Date, error) {
	if !core.ValidDay(day) {
		return core.Date{}, fmt.Errorf("resolve day %d in %s: %w", day, ym, core.ErrInvalidDay)
	}
	if last := ym.Days(); day > last {
		day = last
	}
	return core.NewDate(ym.Year, int(ym.Month), day), nil
}

// ResolveFixed returns the occurrence of a one-time date.
func ResolveFixed(date core.Date) core.Date {
	return date
}

// Rule is the resolution strategy for a single bill.
type Rule interface {
	// OccurrencesBetween returns the occurrences d with from <= d < to in
	// ascending order.
	OccurrencesBetween(from, to core.Date) ([]core.Date, error)
	// In returns the occurrence inside ym, if any.
	In(ym core.YearMonth) (core.Date, bool, error)
}

// DayOfMonth recurs every month on Day, clamped to short months.
type DayOfMonth struct {
	Day int
}

func (r DayOfMonth) In(ym core.YearMonth) (core.Date, bool, error) {
	d, err := ResolveRecurring(r.Day, ym)
	if err != nil {
		return core.Date{}, false, err
	}
	return d, true, nil
}

func (r DayOfMonth) OccurrencesBetween(from, to core.Date) ([]core.Date, error) {
	if !core.ValidDay(r.Day) {
		return nil, fmt.Errorf("day-of-month rule: %w", core.ErrInvalidDay)
	}
	if !from.Before(to) {
		return nil, nil
	}
	var out []core.Date
	last := to.YearMonth()
	for ym := from.YearMonth(); !last.Before(ym); ym = ym.Next() {
		d, err := ResolveRecurring(r.Day, ym)
		if err != nil {
			return nil, err
		}
		if inWindow(d, from, to) {
			out = append(out, d)
		}
	}
	return out, nil
}

// FixedDate occurs once.
type FixedDate struct {
	Date core.Date
}

func (r FixedDate) In(ym core.YearMonth) (core.Date, bool, error) {
	if err := r.Date.Validate(); err != nil {
		return core.Date{}, false, err
	}
	d := ResolveFixed(r.Date)
	return d, d.YearMonth() == ym, nil
}

func (r FixedDate) OccurrencesBetween(from, to core.Date) ([]core.Date, error) {
	if err := r.Date.Validate(); err != nil {
		return nil, fmt.Errorf("fixed date rule: %w", err)
	}
	d := ResolveFixed(r.Date)
	if inWindow(d, from, to) {
		return []core.Date{d}, nil
	}
	return nil, nil
}

// RuleFor returns the strategy selected by the bill's Recurring flag.
func RuleFor(b core.Bill) Rule {
	if b.Recurring {
		return DayOfMonth{Day: b.Day}
	}
	return FixedDate{Date: b.Date}
}

// inWindow reports whether from <= d < to.
func inWindow(d, from, to core.Date) bool {
	return !d.Before(from) && d.Before(to)
}
