package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

type (
	// Date is a civil calendar date. The wrapped time is always midnight UTC.
	Date struct {
		time.Time
	}

	// YearMonth names a calendar month.
	YearMonth struct {
		Year  int
		Month time.Month
	}

	Money struct {
		Cents int64
	}

	// Bill is either recurring on a day of month or due once on a fixed date.
	Bill struct {
		ID        int64
		Name      string
		Amount    Money
		Recurring bool
		Day       int  // 1-31, only when Recurring
		Date      Date // only when !Recurring
		Autopay   bool
	}

	PayDay struct {
		ID     int64
		Day    int // 1-31
		Amount Money
	}
)

var (
	// ErrInvalidArgument is the kind shared by every caller contract violation.
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotFound        = errors.New("not found")

	ErrInvalidDay    = fmt.Errorf("%w: day must be between 1 and 31", ErrInvalidArgument)
	ErrInvalidMonth  = fmt.Errorf("%w: month must be between 1 and 12", ErrInvalidArgument)
	ErrInvalidDate   = fmt.Errorf("%w: malformed date", ErrInvalidArgument)
	ErrInvalidAmount = fmt.Errorf("%w: amount must be a non-negative decimal", ErrInvalidArgument)
	ErrEmptyName     = fmt.Errorf("%w: empty name", ErrInvalidArgument)
)

// NewDate creates a new Date from year, month, day. Out of range values are
// normalized the way time.Date does; use DateOf to reject them instead.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf builds a Date and fails if the components do not name a real day.
func DateOf(year, month, day int) (Date, error) {
	if month < 1 || month > 12 {
		return Date{}, ErrInvalidMonth
	}
	if day < 1 || day > (YearMonth{Year: year, Month: time.Month(month)}).Days() {
		return Date{}, fmt.Errorf("%w: %04d-%02d-%02d", ErrInvalidDate, year, month, day)
	}
	return NewDate(year, month, day), nil
}

// ParseDate parses a date string in YYYY-MM-DD format.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

// DateFromTime drops the clock and location of t, keeping its calendar day.
func DateFromTime(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// Today returns the current local calendar day.
func Today() Date {
	return DateFromTime(time.Now())
}

func (d Date) Validate() error {
	if d.IsZero() {
		return fmt.Errorf("%w: date cannot be zero", ErrInvalidDate)
	}
	return nil
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

// YearMonth returns the month containing d.
func (d Date) YearMonth() YearMonth {
	return YearMonth{Year: d.Time.Year(), Month: d.Time.Month()}
}

func (d Date) Before(o Date) bool { return d.Time.Before(o.Time) }
func (d Date) After(o Date) bool  { return d.Time.After(o.Time) }
func (d Date) Equal(o Date) bool  { return d.Time.Equal(o.Time) }

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Time.Format(dateLayout)
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// MarshalJSON shadows the promoted time.Time encoder so dates travel as
// "YYYY-MM-DD", or null when empty.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := string(b)
	if s == "null" {
		*d = Date{}
		return nil
	}
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return fmt.Errorf("%w: %s", ErrInvalidDate, s)
	}
	return d.UnmarshalText([]byte(s[1 : len(s)-1]))
}

func (d *Date) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// NewYearMonth validates the month number.
func NewYearMonth(year, month int) (YearMonth, error) {
	if month < 1 || month > 12 {
		return YearMonth{}, ErrInvalidMonth
	}
	return YearMonth{Year: year, Month: time.Month(month)}, nil
}

// Days returns the number of days in the month, honouring leap years.
func (ym YearMonth) Days() int {
	return time.Date(ym.Year, ym.Month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// First returns the first day of the month.
func (ym YearMonth) First() Date {
	return NewDate(ym.Year, int(ym.Month), 1)
}

// Last returns the last day of the month.
func (ym YearMonth) Last() Date {
	return NewDate(ym.Year, int(ym.Month), ym.Days())
}

// AddMonths moves n months forward (backward for negative n).
func (ym YearMonth) AddMonths(n int) YearMonth {
	t := time.Date(ym.Year, ym.Month+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	return YearMonth{Year: t.Year(), Month: t.Month()}
}

func (ym YearMonth) Next() YearMonth { return ym.AddMonths(1) }

// Before reports whether ym is an earlier month than o.
func (ym YearMonth) Before(o YearMonth) bool {
	if ym.Year != o.Year {
		return ym.Year < o.Year
	}
	return ym.Month < o.Month
}

func (ym YearMonth) String() string {
	return fmt.Sprintf("%04d-%02d", ym.Year, int(ym.Month))
}

// ValidDay reports whether day can be used as a day-of-month recurrence.
func ValidDay(day int) bool {
	return day >= 1 && day <= 31
}

func (m Money) Validate() error {
	if m.Cents < 0 || m.Cents > MaxCents {
		return ErrInvalidAmount
	}
	return nil
}

func (b Bill) Validate() error {
	if strings.TrimSpace(b.Name) == "" {
		return ErrEmptyName
	}
	if len(b.Name) > 200 {
		return fmt.Errorf("%w: name too long (max 200 characters)", ErrInvalidArgument)
	}
	if err := b.Amount.Validate(); err != nil {
		return err
	}
	if b.Recurring {
		if !ValidDay(b.Day) {
			return ErrInvalidDay
		}
		return nil
	}
	return b.Date.Validate()
}

// Normalize clears the field that the Recurring flag makes inactive.
func (b Bill) Normalize() Bill {
	b.Name = strings.TrimSpace(b.Name)
	if b.Recurring {
		b.Date = Date{}
	} else {
		b.Day = 0
	}
	return b
}

func (p PayDay) Validate() error {
	if !ValidDay(p.Day) {
		return ErrInvalidDay
	}
	return p.Amount.Validate()
}
