package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"billtracker/internal/cache"
	"billtracker/internal/core"
	"billtracker/internal/schedule"
	"billtracker/internal/storage/memory"
)

// countingStore counts snapshot reads.
type countingStore struct {
	*memory.Store
	mu    sync.Mutex
	lists int
}

func (c *countingStore) ListBills(ctx context.Context) ([]core.Bill, error) {
	c.mu.Lock()
	c.lists++
	c.mu.Unlock()
	return c.Store.ListBills(ctx)
}

func (c *countingStore) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lists
}

func seedScenario(t *testing.T, s *memory.Store) {
	t.Helper()
	ctx := context.Background()
	for _, b := range []core.Bill{
		{Name: "Internet", Amount: core.Cents(5000), Recurring: true, Day: 5},
		{Name: "Phone", Amount: core.Cents(3000), Recurring: true, Day: 20},
		{Name: "Car service", Amount: core.Cents(20000), Date: core.NewDate(2024, 3, 10)},
	} {
		if _, err := s.CreateBill(ctx, b); err != nil {
			t.Fatalf("seed bill: %v", err)
		}
	}
	for _, p := range []core.PayDay{
		{Day: 1, Amount: core.Cents(250000)},
		{Day: 15, Amount: core.Cents(250000)},
	} {
		if _, err := s.CreatePayDay(ctx, p); err != nil {
			t.Fatalf("seed payday: %v", err)
		}
	}
}

func newTestSummaryService(t *testing.T) (*SummaryService, *countingStore) {
	t.Helper()
	store := &countingStore{Store: memory.New()}
	seedScenario(t, store.Store)
	c := cache.NewLRUCache[schedule.Summary](10, time.Minute)
	return NewSummaryService(store, 2, c, testLogger()), store
}

func TestSummaryService_Summary(t *testing.T) {
	svc, _ := newTestSummaryService(t)
	sum, err := svc.Summary(context.Background(), core.NewDate(2024, 3, 1))
	if err != nil {
		t.Fatalf("summary: %v", err)
	}

	if len(sum.NextPayDays) != 2 ||
		!sum.NextPayDays[0].Date.Equal(core.NewDate(2024, 3, 15)) ||
		!sum.NextPayDays[1].Date.Equal(core.NewDate(2024, 4, 1)) {
		t.Fatalf("unexpected paydays: %+v", sum.NextPayDays)
	}
	// Internet (5th) + car service (10th) before the 15th.
	if sum.DueBeforeNext.Cents != 25000 {
		t.Errorf("DueBeforeNext = %d, want 25000", sum.DueBeforeNext.Cents)
	}
	// Plus the phone bill on the 20th before April 1st.
	if sum.DueBeforeSecond.Cents != 28000 {
		t.Errorf("DueBeforeSecond = %d, want 28000", sum.DueBeforeSecond.Cents)
	}
	if len(sum.Upcoming) != 3 {
		t.Errorf("Upcoming = %+v", sum.Upcoming)
	}
}

func TestSummaryService_CachesAndInvalidates(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestSummaryService(t)
	today := core.NewDate(2024, 3, 1)

	if _, err := svc.Summary(ctx, today); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Summary(ctx, today); err != nil {
		t.Fatal(err)
	}
	if n := store.count(); n != 1 {
		t.Errorf("store read %d times, want 1 (second call cached)", n)
	}

	if _, err := store.CreateBill(ctx, core.Bill{Name: "Gym", Amount: core.Cents(1000), Recurring: true, Day: 2}); err != nil {
		t.Fatal(err)
	}
	svc.Invalidate()

	sum, err := svc.Summary(ctx, today)
	if err != nil {
		t.Fatal(err)
	}
	if sum.DueBeforeNext.Cents != 26000 {
		t.Errorf("DueBeforeNext after invalidate = %d, want 26000", sum.DueBeforeNext.Cents)
	}
	if n := store.count(); n != 2 {
		t.Errorf("store read %d times, want 2", n)
	}
}

// racingCache fires an Invalidate from inside the first Set, giving it a
// chance to run before the entry is written.
type racingCache struct {
	*cache.LRUCache[schedule.Summary]
	svc  *SummaryService
	once sync.Once
	done chan struct{}
}

func (c *racingCache) Set(key string, sum schedule.Summary) {
	c.once.Do(func() {
		go func() {
			c.svc.Invalidate()
			close(c.done)
		}()
		select {
		case <-c.done:
		case <-time.After(50 * time.Millisecond):
		}
	})
	c.LRUCache.Set(key, sum)
}

func TestSummaryService_InvalidateDuringCacheWrite(t *testing.T) {
	store := memory.New()
	seedScenario(t, store)
	rc := &racingCache{
		LRUCache: cache.NewLRUCache[schedule.Summary](10, time.Minute),
		done:     make(chan struct{}),
	}
	svc := NewSummaryService(store, 2, rc, testLogger())
	rc.svc = svc

	if _, err := svc.Summary(context.Background(), core.NewDate(2024, 3, 1)); err != nil {
		t.Fatal(err)
	}
	select {
	case <-rc.done:
	case <-time.After(2 * time.Second):
		t.Fatal("invalidate never finished")
	}
	if n := rc.Size(); n != 0 {
		t.Errorf("cache holds %d entries after a concurrent invalidate, want 0", n)
	}
}

func TestSummaryService_BillServiceInvalidates(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	seedScenario(t, store)
	summaries := NewSummaryService(store, 2, cache.NewLRUCache[schedule.Summary](10, time.Hour), testLogger())
	bills := NewBillService(store, nil, summaries, testLogger())
	today := core.NewDate(2024, 3, 1)

	before, _ := summaries.Summary(ctx, today)
	if _, err := bills.CreateBill(ctx, core.Bill{Name: "Gym", Amount: core.Cents(1000), Recurring: true, Day: 2}); err != nil {
		t.Fatal(err)
	}
	after, _ := summaries.Summary(ctx, today)
	if after.DueBeforeNext.Cents != before.DueBeforeNext.Cents+1000 {
		t.Errorf("summary not refreshed after write: before=%d after=%d", before.DueBeforeNext.Cents, after.DueBeforeNext.Cents)
	}
}

func TestSummaryService_ConcurrentCallsAgree(t *testing.T) {
	svc, _ := newTestSummaryService(t)
	today := core.NewDate(2024, 3, 1)

	var wg sync.WaitGroup
	results := make([]int64, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sum, err := svc.Summary(context.Background(), today)
			if err == nil {
				results[i] = sum.DueBeforeNext.Cents
			}
		}(i)
	}
	wg.Wait()
	for i, r := range results {
		if r != 25000 {
			t.Errorf("result %d = %d, want 25000", i, r)
		}
	}
}

func TestSummaryService_WithoutCache(t *testing.T) {
	store := memory.New()
	seedScenario(t, store)
	svc := NewSummaryService(store, 0, nil, testLogger())
	sum, err := svc.Summary(context.Background(), core.NewDate(2024, 3, 1))
	if err != nil || sum.DueBeforeNext.Cents != 25000 {
		t.Fatalf("summary without cache: %+v %v", sum, err)
	}
}

func TestSummaryService_Calendar(t *testing.T) {
	svc, _ := newTestSummaryService(t)
	m, err := svc.Calendar(context.Background(), core.YearMonth{Year: 2024, Month: time.March}, core.NewDate(2024, 3, 10))
	if err != nil {
		t.Fatalf("calendar: %v", err)
	}
	if len(m.Days) != 31 {
		t.Fatalf("want 31 days, got %d", len(m.Days))
	}
	if m.Days[9].BillTotal.Cents != 20000 || !m.Days[9].IsToday {
		t.Errorf("day 10 = %+v", m.Days[9])
	}
	if m.Days[14].PayDayAmount.Cents != 250000 {
		t.Errorf("day 15 = %+v", m.Days[14])
	}
	if m.BillTotal.Cents != 28000 || m.PayDayTotal.Cents != 500000 {
		t.Errorf("totals = %d / %d", m.BillTotal.Cents, m.PayDayTotal.Cents)
	}

	if _, err := svc.Calendar(context.Background(), core.YearMonth{Year: 2024, Month: 13}, core.Date{}); !errors.Is(err, core.ErrInvalidMonth) {
		t.Errorf("expected invalid month, got %v", err)
	}
}

func TestSummaryService_BillsOn(t *testing.T) {
	svc, _ := newTestSummaryService(t)
	bills, err := svc.BillsOn(context.Background(), core.NewDate(2024, 4, 20))
	if err != nil || len(bills) != 1 || bills[0].Name != "Phone" {
		t.Fatalf("BillsOn = %+v, %v", bills, err)
	}
}

func TestSummaryService_Window(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestSummaryService(t)

	w, err := svc.Window(ctx, core.NewDate(2024, 3, 1), core.NewDate(2024, 5, 1))
	if err != nil {
		t.Fatalf("window: %v", err)
	}
	// Internet and phone twice, car service once.
	if w.Total.Cents != 36000 || len(w.Bills) != 5 {
		t.Errorf("window = %d cents, %d bills", w.Total.Cents, len(w.Bills))
	}

	empty, err := svc.Window(ctx, core.NewDate(2024, 3, 5), core.NewDate(2024, 3, 5))
	if err != nil || !empty.Total.IsZero() || len(empty.Bills) != 0 {
		t.Errorf("empty window = %+v, %v", empty, err)
	}

	tests := []struct {
		name     string
		from, to core.Date
	}{
		{"reversed", core.NewDate(2024, 5, 1), core.NewDate(2024, 3, 1)},
		{"missing from", core.Date{}, core.NewDate(2024, 3, 1)},
		{"too long", core.NewDate(2000, 1, 1), core.NewDate(2024, 1, 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Window(ctx, tt.from, tt.to); !errors.Is(err, core.ErrInvalidArgument) {
				t.Errorf("expected invalid argument, got %v", err)
			}
		})
	}
}
