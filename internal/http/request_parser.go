// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request data:
// JSON bodies for bills and paydays, and date and month query parameters.

package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"billtracker/internal/core"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 64 << 10

// errMalformedBody marks request bodies that are not valid JSON for the
// target type. It maps to 400 rather than 422.
var errMalformedBody = errors.New("malformed request body")

// amountField accepts an amount as a JSON string ("12.34", "12,34") or a
// JSON number and keeps its decimal text.
type amountField string

func (a *amountField) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = amountField(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("amount must be a decimal string or number")
	}
	*a = amountField(n.String())
	return nil
}

// billRequest is the body of POST /api/bills and PUT /api/bills/{id}.
type billRequest struct {
	Name      string      `json:"name"`
	Amount    amountField `json:"amount"`
	Recurring bool        `json:"recurring"`
	Day       int         `json:"day"`
	Date      string      `json:"date"`
	Autopay   bool        `json:"autopay"`
}

// toBill validates the request fields that need parsing; the rest is left
// to core.Bill.Validate.
func (req billRequest) toBill() (core.Bill, error) {
	amount, err := core.ParseMoney(string(req.Amount))
	if err != nil {
		return core.Bill{}, err
	}
	b := core.Bill{
		Name:      sanitizeInput(req.Name),
		Amount:    amount,
		Recurring: req.Recurring,
		Day:       req.Day,
		Autopay:   req.Autopay,
	}
	if !req.Recurring {
		if strings.TrimSpace(req.Date) == "" {
			return core.Bill{}, fmt.Errorf("%w: one-time bill needs a date", core.ErrInvalidDate)
		}
		if b.Date, err = core.ParseDate(req.Date); err != nil {
			return core.Bill{}, err
		}
	}
	return b, nil
}

// payDayRequest is the body of POST /api/paydays.
type payDayRequest struct {
	Day    int         `json:"day"`
	Amount amountField `json:"amount"`
}

func (req payDayRequest) toPayDay() (core.PayDay, error) {
	amount, err := core.ParseMoney(string(req.Amount))
	if err != nil {
		return core.PayDay{}, err
	}
	return core.PayDay{Day: req.Day, Amount: amount}, nil
}

// decodeJSON reads a single JSON object into v, rejecting unknown fields.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errMalformedBody, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data", errMalformedBody)
	}
	return nil
}

// parseID reads the {id} path value.
func parseID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: id must be a positive integer", core.ErrInvalidArgument)
	}
	return id, nil
}

// parseDateParam reads a YYYY-MM-DD query parameter, falling back to def
// when it is absent.
func parseDateParam(query url.Values, key string, def core.Date) (core.Date, error) {
	v := strings.TrimSpace(query.Get(key))
	if v == "" {
		return def, nil
	}
	d, err := core.ParseDate(v)
	if err != nil {
		return core.Date{}, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

// ParseMonthParams reads year and month query parameters, defaulting to the
// month containing today.
func ParseMonthParams(query url.Values, today core.Date) (core.YearMonth, error) {
	year, month := today.Year(), today.Month()
	if v := strings.TrimSpace(query.Get("year")); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil || y < 1 || y > 9999 {
			return core.YearMonth{}, fmt.Errorf("%w: year %q", core.ErrInvalidArgument, v)
		}
		year = y
	}
	if v := strings.TrimSpace(query.Get("month")); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil {
			return core.YearMonth{}, fmt.Errorf("%w: month %q", core.ErrInvalidMonth, v)
		}
		month = m
	}
	return core.NewYearMonth(year, month)
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
