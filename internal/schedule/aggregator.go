package schedule

import (
	"fmt"
	"sort"

	"billtracker/internal/core"
)

// Occurrence is a payday landing on a concrete date.
type Occurrence struct {
	Date   core.Date
	Amount core.Money
}

// NextPayDayOccurrences returns the next count payday occurrences strictly
// after the reference date, in ascending order.
//
// Months are searched forward starting with the one containing after. Paydays
// that resolve to the same date (duplicate days, or the 30th and 31st in a
// 30-day month) are merged into one occurrence whose amount is their sum, so
// the result is strictly increasing. The result is shorter than count only
// when paydays is empty.
func NextPayDayOccurrences(paydays []core.PayDay, after core.Date, count int) ([]Occurrence, error) {
	for _, p := range paydays {
		if !core.ValidDay(p.Day) {
			return nil, fmt.Errorf("payday %d on day %d: %w", p.ID, p.Day, core.ErrInvalidDay)
		}
	}
	if len(paydays) == 0 || count <= 0 {
		return nil, nil
	}

	sorted := make([]core.PayDay, len(paydays))
	copy(sorted, paydays)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Day < sorted[j].Day })

	out := make([]Occurrence, 0, count)
	// Each month after the first contributes at least one occurrence, so the
	// loop ends within count+1 months.
	for ym := after.YearMonth(); ; ym = ym.Next() {
		for _, p := range sorted {
			d, err := ResolveRecurring(p.Day, ym)
			if err != nil {
				return nil, err
			}
			if !d.After(after) {
				continue
			}
			if n := len(out); n > 0 && out[n-1].Date.Equal(d) {
				out[n-1].Amount = out[n-1].Amount.Add(p.Amount)
				continue
			}
			if len(out) == count {
				return out, nil
			}
			out = append(out, Occurrence{Date: d, Amount: p.Amount})
		}
		if len(out) == count {
			return out, nil
		}
	}
}

// TotalBillsBefore sums every bill occurrence d with from <= d < boundary.
//
// A recurring bill is resolved in each month from the one containing from
// through the one containing boundary, and contributes once per occurrence
// that lands inside the window. A one-time bill contributes at most once.
// Every bill is validated even when the window is empty.
func TotalBillsBefore(bills []core.Bill, from, boundary core.Date) (core.Money, error) {
	var total core.Money
	for _, b := range bills {
		dates, err := RuleFor(b).OccurrencesBetween(from, boundary)
		if err != nil {
			return core.Money{}, fmt.Errorf("bill %d %q: %w", b.ID, b.Name, err)
		}
		for range dates {
			total = total.Add(b.Amount)
		}
	}
	return total, nil
}

// BillOccurrence is a bill landing on a concrete date.
type BillOccurrence struct {
	Bill core.Bill
	Date core.Date
}

// BillsBetween lists the occurrences counted by TotalBillsBefore, ordered by
// date and then by input order.
func BillsBetween(bills []core.Bill, from, boundary core.Date) ([]BillOccurrence, error) {
	var out []BillOccurrence
	for _, b := range bills {
		dates, err := RuleFor(b).OccurrencesBetween(from, boundary)
		if err != nil {
			return nil, fmt.Errorf("bill %d %q: %w", b.ID, b.Name, err)
		}
		for _, d := range dates {
			out = append(out, BillOccurrence{Bill: b, Date: d})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

// DueBeforeNextPayDay totals the bills due from today until the next payday.
// It is zero when no payday is configured.
func DueBeforeNextPayDay(bills []core.Bill, paydays []core.PayDay, today core.Date) (core.Money, error) {
	return DueBeforePayDays(bills, paydays, today, 1)
}

// DueBeforePayDays totals the bills due from today until the n-th next
// payday. When fewer than n occurrences exist the last one found is used as
// the boundary; with no paydays the total is zero.
func DueBeforePayDays(bills []core.Bill, paydays []core.PayDay, today core.Date, n int) (core.Money, error) {
	if n < 1 {
		n = 1
	}
	next, err := NextPayDayOccurrences(paydays, today, n)
	if err != nil {
		return core.Money{}, err
	}
	if len(next) == 0 {
		// An empty window still validates every bill.
		return TotalBillsBefore(bills, today, today)
	}
	return TotalBillsBefore(bills, today, next[len(next)-1].Date)
}

// Summary is the "money needed before payday" view for one reference day.
type Summary struct {
	Today         core.Date
	NextPayDays   []Occurrence
	DueBeforeNext core.Money
	// DueBeforeSecond covers the window up to the second next payday.
	DueBeforeSecond core.Money
	// Upcoming lists the bills due before the last payday in NextPayDays.
	Upcoming []BillOccurrence
}

// Summarize computes the summary for today, listing horizon upcoming
// paydays (at least two).
func Summarize(bills []core.Bill, paydays []core.PayDay, today core.Date, horizon int) (Summary, error) {
	if horizon < 2 {
		horizon = 2
	}
	s := Summary{Today: today}

	next, err := NextPayDayOccurrences(paydays, today, horizon)
	if err != nil {
		return Summary{}, err
	}
	s.NextPayDays = next
	if len(next) == 0 {
		if _, err := TotalBillsBefore(bills, today, today); err != nil {
			return Summary{}, err
		}
		return s, nil
	}

	if s.DueBeforeNext, err = TotalBillsBefore(bills, today, next[0].Date); err != nil {
		return Summary{}, err
	}
	second := next[0]
	if len(next) > 1 {
		second = next[1]
	}
	if s.DueBeforeSecond, err = TotalBillsBefore(bills, today, second.Date); err != nil {
		return Summary{}, err
	}
	if s.Upcoming, err = BillsBetween(bills, today, next[len(next)-1].Date); err != nil {
		return Summary{}, err
	}
	return s, nil
}
