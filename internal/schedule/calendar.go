package schedule

import (
	"fmt"

	"billtracker/internal/core"
)

// DayCell is one day of a month grid.
type DayCell struct {
	Day          int
	Date         core.Date
	BillTotal    core.Money
	PayDayAmount core.Money
	IsToday      bool
}

// Month is a calendar grid for a single month.
type Month struct {
	YearMonth core.YearMonth
	// LeadingBlanks is the weekday of the 1st, Sunday = 0.
	LeadingBlanks int
	Days          []DayCell
	BillTotal     core.Money
	PayDayTotal   core.Money
}

// BillTotalsByDay maps each day of ym to the bills due on it. Recurring bills
// are clamped into short months; one-time bills count only in their month.
func BillTotalsByDay(bills []core.Bill, ym core.YearMonth) (map[int]core.Money, error) {
	totals := make(map[int]core.Money)
	for _, b := range bills {
		d, ok, err := RuleFor(b).In(ym)
		if err != nil {
			return nil, fmt.Errorf("bill %d %q: %w", b.ID, b.Name, err)
		}
		if ok {
			totals[d.Day()] = totals[d.Day()].Add(b.Amount)
		}
	}
	return totals, nil
}

// PayDayAmountsByDay maps each day of ym to the payday amounts landing on it.
func PayDayAmountsByDay(paydays []core.PayDay, ym core.YearMonth) (map[int]core.Money, error) {
	amounts := make(map[int]core.Money)
	for _, p := range paydays {
		d, err := ResolveRecurring(p.Day, ym)
		if err != nil {
			return nil, fmt.Errorf("payday %d: %w", p.ID, err)
		}
		amounts[d.Day()] = amounts[d.Day()].Add(p.Amount)
	}
	return amounts, nil
}

// BillsOnDay returns the bills due on date, in input order.
func BillsOnDay(bills []core.Bill, date core.Date) ([]core.Bill, error) {
	var out []core.Bill
	for _, b := range bills {
		d, ok, err := RuleFor(b).In(date.YearMonth())
		if err != nil {
			return nil, fmt.Errorf("bill %d %q: %w", b.ID, b.Name, err)
		}
		if ok && d.Equal(date) {
			out = append(out, b)
		}
	}
	return out, nil
}

// BuildMonth lays out ym with per-day bill totals and payday amounts.
func BuildMonth(bills []core.Bill, paydays []core.PayDay, ym core.YearMonth, today core.Date) (Month, error) {
	billTotals, err := BillTotalsByDay(bills, ym)
	if err != nil {
		return Month{}, err
	}
	payAmounts, err := PayDayAmountsByDay(paydays, ym)
	if err != nil {
		return Month{}, err
	}

	m := Month{
		YearMonth:     ym,
		LeadingBlanks: int(ym.First().Weekday()),
		Days:          make([]DayCell, 0, ym.Days()),
	}
	for day := 1; day <= ym.Days(); day++ {
		date := core.NewDate(ym.Year, int(ym.Month), day)
		cell := DayCell{
			Day:          day,
			Date:         date,
			BillTotal:    billTotals[day],
			PayDayAmount: payAmounts[day],
			IsToday:      date.Equal(today),
		}
		m.BillTotal = m.BillTotal.Add(cell.BillTotal)
		m.PayDayTotal = m.PayDayTotal.Add(cell.PayDayAmount)
		m.Days = append(m.Days, cell)
	}
	return m, nil
}
