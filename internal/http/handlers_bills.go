package http

import (
	"errors"
	"net/http"

	"billtracker/internal/core"
)

// handleServiceError writes err as a response, treating body decoding
// failures as 400.
func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, errMalformedBody) {
		BadRequestError(r, err.Error()).Write(w)
		return
	}
	writeError(w, r, err)
}

func (s *Server) handleListBills(w http.ResponseWriter, r *http.Request) {
	bills, err := s.bills.ListBills(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Data(newBillViews(bills)).Write(w)
}

func (s *Server) handleGetBill(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	b, err := s.bills.GetBill(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Data(newBillView(b)).Write(w)
}

func (s *Server) decodeBill(r *http.Request) (core.Bill, error) {
	var req billRequest
	if err := decodeJSON(r, &req); err != nil {
		return core.Bill{}, err
	}
	return req.toBill()
}

func (s *Server) handleCreateBill(w http.ResponseWriter, r *http.Request) {
	b, err := s.decodeBill(r)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	created, err := s.bills.CreateBill(r.Context(), b)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/bills/"+itoa(created.ID)).
		Data(newBillView(created)).
		Write(w)
}

func (s *Server) handleUpdateBill(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	b, err := s.decodeBill(r)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	b.ID = id
	updated, err := s.bills.UpdateBill(r.Context(), b)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Data(newBillView(updated)).Write(w)
}

func (s *Server) handleDeleteBill(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.bills.DeleteBill(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleUndoDelete(w http.ResponseWriter, r *http.Request) {
	restored, err := s.bills.UndoDelete(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Data(newBillView(restored)).Write(w)
}

func (s *Server) handleListPayDays(w http.ResponseWriter, r *http.Request) {
	paydays, err := s.bills.ListPayDays(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]payDayView, 0, len(paydays))
	for _, p := range paydays {
		out = append(out, newPayDayView(p))
	}
	NewJSONResponse().Data(out).Write(w)
}

func (s *Server) handleSavePayDay(w http.ResponseWriter, r *http.Request) {
	var req payDayRequest
	if err := decodeJSON(r, &req); err != nil {
		handleServiceError(w, r, err)
		return
	}
	p, err := req.toPayDay()
	if err != nil {
		writeError(w, r, err)
		return
	}
	saved, err := s.bills.SavePayDay(r.Context(), p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Data(newPayDayView(saved)).Write(w)
}

func (s *Server) handleDeletePayDay(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.bills.DeletePayDay(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}
