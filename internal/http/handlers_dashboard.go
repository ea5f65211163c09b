package http

import (
	"context"
	"html/template"
	"net/http"

	"golang.org/x/sync/errgroup"

	"billtracker/internal/core"
	"billtracker/internal/log"
	"billtracker/internal/schedule"
)

var templateFuncs = template.FuncMap{
	"money": func(m core.Money) string { return m.Format() },
	"weekday": func(d core.Date) string {
		return d.Weekday().String()[:3]
	},
	"blanks": func(n int) []struct{} { return make([]struct{}, n) },
	"monthName": func(ym core.YearMonth) string {
		return ym.Month.String() + " " + itoa(int64(ym.Year))
	},
}

type dashboardData struct {
	Today    core.Date
	Summary  schedule.Summary
	Month    schedule.Month
	Prev     core.YearMonth
	Next     core.YearMonth
	Bills    []core.Bill
	PayDays  []core.PayDay
	DayBills []core.Bill
	Selected core.Date
}

// handleIndex renders the dashboard: the payday summary, a month grid and
// the bill and payday lists. Query parameters year, month and date select
// the month shown and the day whose bills are listed.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if s.templates == nil {
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}
	query := r.URL.Query()
	today := s.today()
	ym, err := ParseMonthParams(query, today)
	if err != nil {
		writeError(w, r, err)
		return
	}
	selected, err := parseDateParam(query, "date", today)
	if err != nil {
		writeError(w, r, err)
		return
	}

	data := dashboardData{
		Today:    today,
		Prev:     ym.AddMonths(-1),
		Next:     ym.Next(),
		Selected: selected,
	}
	if err := s.loadDashboard(r.Context(), &data, ym); err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, "index.html", data); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Index template execution failed",
			log.FieldError, err, "template", "index.html")
	}
}

func (s *Server) loadDashboard(ctx context.Context, data *dashboardData, ym core.YearMonth) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		data.Summary, err = s.schedule.Summary(ctx, data.Today)
		return err
	})
	g.Go(func() (err error) {
		data.Month, err = s.schedule.Calendar(ctx, ym, data.Today)
		return err
	})
	g.Go(func() (err error) {
		data.DayBills, err = s.schedule.BillsOn(ctx, data.Selected)
		return err
	})
	g.Go(func() (err error) {
		data.Bills, err = s.bills.ListBills(ctx)
		return err
	})
	g.Go(func() (err error) {
		data.PayDays, err = s.bills.ListPayDays(ctx)
		return err
	})
	return g.Wait()
}
