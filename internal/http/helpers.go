package http

import (
	"strconv"

	"billtracker/internal/core"
	"billtracker/internal/schedule"
	"billtracker/internal/services"
)

// JSON views. Amounts are decimal strings with two places, dates YYYY-MM-DD.
type (
	billView struct {
		ID        int64  `json:"id"`
		Name      string `json:"name"`
		Amount    string `json:"amount"`
		Recurring bool   `json:"recurring"`
		Day       int    `json:"day,omitempty"`
		Date      string `json:"date,omitempty"`
		Autopay   bool   `json:"autopay"`
	}

	payDayView struct {
		ID     int64  `json:"id"`
		Day    int    `json:"day"`
		Amount string `json:"amount"`
	}

	occurrenceView struct {
		Date   string `json:"date"`
		Amount string `json:"amount"`
	}

	billOccurrenceView struct {
		Date string   `json:"date"`
		Bill billView `json:"bill"`
	}

	summaryView struct {
		Today           string               `json:"today"`
		NextPayDays     []occurrenceView     `json:"next_paydays"`
		DueBeforeNext   string               `json:"due_before_next_payday"`
		DueBeforeSecond string               `json:"due_before_second_payday"`
		Upcoming        []billOccurrenceView `json:"upcoming"`
	}

	dayView struct {
		Day          int    `json:"day"`
		Date         string `json:"date"`
		BillTotal    string `json:"bill_total"`
		PayDayAmount string `json:"payday_amount"`
		IsToday      bool   `json:"is_today,omitempty"`
	}

	monthView struct {
		Month         string    `json:"month"`
		LeadingBlanks int       `json:"leading_blanks"`
		BillTotal     string    `json:"bill_total"`
		PayDayTotal   string    `json:"payday_total"`
		Days          []dayView `json:"days"`
	}

	windowView struct {
		From  string               `json:"from"`
		To    string               `json:"to"`
		Total string               `json:"total"`
		Bills []billOccurrenceView `json:"bills"`
	}

	dayBillsView struct {
		Date  string     `json:"date"`
		Total string     `json:"total"`
		Bills []billView `json:"bills"`
	}
)

func newBillView(b core.Bill) billView {
	v := billView{
		ID:        b.ID,
		Name:      b.Name,
		Amount:    b.Amount.String(),
		Recurring: b.Recurring,
		Autopay:   b.Autopay,
	}
	if b.Recurring {
		v.Day = b.Day
	} else {
		v.Date = b.Date.String()
	}
	return v
}

func newBillViews(bills []core.Bill) []billView {
	out := make([]billView, 0, len(bills))
	for _, b := range bills {
		out = append(out, newBillView(b))
	}
	return out
}

func newPayDayView(p core.PayDay) payDayView {
	return payDayView{ID: p.ID, Day: p.Day, Amount: p.Amount.String()}
}

func newBillOccurrenceViews(occ []schedule.BillOccurrence) []billOccurrenceView {
	out := make([]billOccurrenceView, 0, len(occ))
	for _, o := range occ {
		out = append(out, billOccurrenceView{Date: o.Date.String(), Bill: newBillView(o.Bill)})
	}
	return out
}

func newSummaryView(s schedule.Summary) summaryView {
	v := summaryView{
		Today:           s.Today.String(),
		NextPayDays:     make([]occurrenceView, 0, len(s.NextPayDays)),
		DueBeforeNext:   s.DueBeforeNext.String(),
		DueBeforeSecond: s.DueBeforeSecond.String(),
		Upcoming:        newBillOccurrenceViews(s.Upcoming),
	}
	for _, o := range s.NextPayDays {
		v.NextPayDays = append(v.NextPayDays, occurrenceView{Date: o.Date.String(), Amount: o.Amount.String()})
	}
	return v
}

func newMonthView(m schedule.Month) monthView {
	v := monthView{
		Month:         m.YearMonth.String(),
		LeadingBlanks: m.LeadingBlanks,
		BillTotal:     m.BillTotal.String(),
		PayDayTotal:   m.PayDayTotal.String(),
		Days:          make([]dayView, 0, len(m.Days)),
	}
	for _, d := range m.Days {
		v.Days = append(v.Days, dayView{
			Day:          d.Day,
			Date:         d.Date.String(),
			BillTotal:    d.BillTotal.String(),
			PayDayAmount: d.PayDayAmount.String(),
			IsToday:      d.IsToday,
		})
	}
	return v
}

func newWindowView(w services.Window) windowView {
	return windowView{
		From:  w.From.String(),
		To:    w.To.String(),
		Total: w.Total.String(),
		Bills: newBillOccurrenceViews(w.Bills),
	}
}

func itoa(id int64) string { return strconv.FormatInt(id, 10) }
