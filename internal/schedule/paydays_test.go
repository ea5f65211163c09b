package schedule

import (
	"testing"

	"billtracker/internal/core"
)

func TestDedupePayDays(t *testing.T) {
	tests := []struct {
		name    string
		in      []core.PayDay
		wantIDs []int64
	}{
		{"empty", nil, []int64{}},
		{"no duplicates sorted by day", []core.PayDay{payday(1, 15, 0), payday(2, 1, 0)}, []int64{2, 1}},
		{"higher id wins", []core.PayDay{payday(7, 15, 0), payday(3, 15, 0), payday(4, 1, 0)}, []int64{4, 7}},
		{"later position wins on equal ids", []core.PayDay{payday(0, 15, 100), payday(0, 15, 200)}, []int64{0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DedupePayDays(tt.in)
			if len(got) != len(tt.wantIDs) {
				t.Fatalf("DedupePayDays() = %+v, want ids %v", got, tt.wantIDs)
			}
			for i, id := range tt.wantIDs {
				if got[i].ID != id {
					t.Errorf("DedupePayDays()[%d].ID = %d, want %d", i, got[i].ID, id)
				}
			}
		})
	}

	got := DedupePayDays([]core.PayDay{payday(0, 15, 100), payday(0, 15, 200)})
	if got[0].Amount.Cents != 200 {
		t.Fatalf("expected the later entry to win, got %+v", got[0])
	}
}
