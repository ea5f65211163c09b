package http

import (
	"net/http"

	"billtracker/internal/core"
)

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	today, err := parseDateParam(r.URL.Query(), "today", s.today())
	if err != nil {
		writeError(w, r, err)
		return
	}
	summary, err := s.schedule.Summary(r.Context(), today)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Data(newSummaryView(summary)).Write(w)
}

func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	today, err := parseDateParam(query, "today", s.today())
	if err != nil {
		writeError(w, r, err)
		return
	}
	ym, err := ParseMonthParams(query, today)
	if err != nil {
		writeError(w, r, err)
		return
	}
	month, err := s.schedule.Calendar(r.Context(), ym, today)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Data(newMonthView(month)).Write(w)
}

func (s *Server) handleDay(w http.ResponseWriter, r *http.Request) {
	date, err := parseDateParam(r.URL.Query(), "date", s.today())
	if err != nil {
		writeError(w, r, err)
		return
	}
	bills, err := s.schedule.BillsOn(r.Context(), date)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var total core.Money
	for _, b := range bills {
		total = total.Add(b.Amount)
	}
	NewJSONResponse().Data(dayBillsView{
		Date:  date.String(),
		Total: total.String(),
		Bills: newBillViews(bills),
	}).Write(w)
}

func (s *Server) handleWindow(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	from, err := parseDateParam(query, "from", core.Date{})
	if err != nil {
		writeError(w, r, err)
		return
	}
	to, err := parseDateParam(query, "to", core.Date{})
	if err != nil {
		writeError(w, r, err)
		return
	}
	window, err := s.schedule.Window(r.Context(), from, to)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Data(newWindowView(window)).Write(w)
}
