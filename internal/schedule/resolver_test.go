package schedule

import (
	"errors"
	"testing"
	"time"

	"billtracker/internal/core"
)

func TestResolveRecurring_ClampsToMonthLength(t *testing.T) {
	for _, year := range []int{2023, 2024} {
		for month := time.January; month <= time.December; month++ {
			ym := core.YearMonth{Year: year, Month: month}
			last := ym.Days()
			for day := 1; day <= 31; day++ {
				got, err := ResolveRecurring(day, ym)
				if err != nil {
					t.Fatalf("ResolveRecurring(%d, %v) error = %v", day, ym, err)
				}
				if got.YearMonth() != ym {
					t.Fatalf("ResolveRecurring(%d, %v) left the month: %v", day, ym, got)
				}
				if got.Day() > last {
					t.Fatalf("ResolveRecurring(%d, %v) = %v, past last day %d", day, ym, got, last)
				}
				if day <= last && got.Day() != day {
					t.Fatalf("ResolveRecurring(%d, %v) = %v, want day %d", day, ym, got, day)
				}
			}
		}
	}
}

func TestResolveRecurring(t *testing.T) {
	tests := []struct {
		name string
		day  int
		ym   core.YearMonth
		want core.Date
	}{
		{"31st in April", 31, core.YearMonth{Year: 2024, Month: time.April}, core.NewDate(2024, 4, 30)},
		{"31st in June", 31, core.YearMonth{Year: 2024, Month: time.June}, core.NewDate(2024, 6, 30)},
		{"31st in September", 31, core.YearMonth{Year: 2024, Month: time.September}, core.NewDate(2024, 9, 30)},
		{"31st in November", 31, core.YearMonth{Year: 2024, Month: time.November}, core.NewDate(2024, 11, 30)},
		{"29th in leap February", 29, core.YearMonth{Year: 2024, Month: time.February}, core.NewDate(2024, 2, 29)},
		{"29th in common February", 29, core.YearMonth{Year: 2023, Month: time.February}, core.NewDate(2023, 2, 28)},
		{"30th in common February", 30, core.YearMonth{Year: 2023, Month: time.February}, core.NewDate(2023, 2, 28)},
		{"31st in leap February", 31, core.YearMonth{Year: 2024, Month: time.February}, core.NewDate(2024, 2, 29)},
		{"31st in January", 31, core.YearMonth{Year: 2024, Month: time.January}, core.NewDate(2024, 1, 31)},
		{"1st in December", 1, core.YearMonth{Year: 2024, Month: time.December}, core.NewDate(2024, 12, 1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveRecurring(tt.day, tt.ym)
			if err != nil {
				t.Fatalf("ResolveRecurring() error = %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("ResolveRecurring() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestResolveRecurring_InvalidDay(t *testing.T) {
	ym := core.YearMonth{Year: 2024, Month: time.January}
	for _, day := range []int{-1, 0, 32, 100} {
		_, err := ResolveRecurring(day, ym)
		if !errors.Is(err, core.ErrInvalidArgument) {
			t.Errorf("ResolveRecurring(%d) error = %v, want invalid argument", day, err)
		}
	}
}

func TestResolveFixed(t *testing.T) {
	d := core.NewDate(2024, 7, 4)
	if got := ResolveFixed(d); !got.Equal(d) {
		t.Fatalf("ResolveFixed() = %v, want %v", got, d)
	}
}

func TestDayOfMonth_OccurrencesBetween(t *testing.T) {
	tests := []struct {
		name     string
		day      int
		from, to core.Date
		want     []core.Date
	}{
		{
			name: "three months inclusive start",
			day:  15,
			from: core.NewDate(2024, 1, 15),
			to:   core.NewDate(2024, 3, 16),
			want: []core.Date{core.NewDate(2024, 1, 15), core.NewDate(2024, 2, 15), core.NewDate(2024, 3, 15)},
		},
		{
			name: "boundary excluded",
			day:  15,
			from: core.NewDate(2024, 1, 16),
			to:   core.NewDate(2024, 3, 15),
			want: []core.Date{core.NewDate(2024, 2, 15)},
		},
		{
			name: "clamped across year end",
			day:  31,
			from: core.NewDate(2024, 11, 1),
			to:   core.NewDate(2025, 3, 1),
			want: []core.Date{
				core.NewDate(2024, 11, 30), core.NewDate(2024, 12, 31),
				core.NewDate(2025, 1, 31), core.NewDate(2025, 2, 28),
			},
		},
		{
			name: "empty window",
			day:  10,
			from: core.NewDate(2024, 1, 10),
			to:   core.NewDate(2024, 1, 10),
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DayOfMonth{Day: tt.day}.OccurrencesBetween(tt.from, tt.to)
			if err != nil {
				t.Fatalf("OccurrencesBetween() error = %v", err)
			}
			if !equalDates(got, tt.want) {
				t.Errorf("OccurrencesBetween() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFixedDate_In(t *testing.T) {
	r := FixedDate{Date: core.NewDate(2024, 5, 10)}

	d, ok, err := r.In(core.YearMonth{Year: 2024, Month: time.May})
	if err != nil || !ok || !d.Equal(r.Date) {
		t.Fatalf("In(May) = %v, %v, %v", d, ok, err)
	}
	if _, ok, _ := r.In(core.YearMonth{Year: 2025, Month: time.May}); ok {
		t.Fatalf("In(May 2025) should not match a 2024 date")
	}
	if _, _, err := (FixedDate{}).In(core.YearMonth{Year: 2024, Month: time.May}); !errors.Is(err, core.ErrInvalidArgument) {
		t.Fatalf("zero date error = %v, want invalid argument", err)
	}
}

func TestRuleFor(t *testing.T) {
	if _, ok := RuleFor(core.Bill{Recurring: true, Day: 3}).(DayOfMonth); !ok {
		t.Errorf("recurring bill should use DayOfMonth")
	}
	if _, ok := RuleFor(core.Bill{Date: core.NewDate(2024, 1, 1)}).(FixedDate); !ok {
		t.Errorf("one-time bill should use FixedDate")
	}
}

func equalDates(a, b []core.Date) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}
