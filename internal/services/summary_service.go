package services

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"billtracker/internal/cache"
	"billtracker/internal/core"
	"billtracker/internal/log"
	"billtracker/internal/ports"
	"billtracker/internal/schedule"
)

// maxWindowMonths bounds ad-hoc window queries.
const maxWindowMonths = 120

// Window is the set of bill occurrences in [From, To).
type Window struct {
	From  core.Date
	To    core.Date
	Total core.Money
	Bills []schedule.BillOccurrence
}

// SummaryService answers read queries by running the schedule engine over a
// snapshot of the stores.
type SummaryService struct {
	store   ports.Store
	horizon int
	cache   cache.Cache[schedule.Summary]
	group   singleflight.Group
	logger  *log.Logger

	// mu orders cache writes against Invalidate so a stale result is never
	// stored after a purge.
	mu  sync.Mutex
	gen atomic.Uint64
}

// NewSummaryService builds the service. A nil cache disables memoization.
func NewSummaryService(store ports.Store, horizon int, c cache.Cache[schedule.Summary], logger *log.Logger) *SummaryService {
	if horizon < 2 {
		horizon = 2
	}
	return &SummaryService{
		store:   store,
		horizon: horizon,
		cache:   c,
		logger:  logger.WithComponent(log.ComponentSummary),
	}
}

// Invalidate drops memoized summaries. Computations already in flight when
// it is called are not cached.
func (s *SummaryService) Invalidate() {
	s.mu.Lock()
	s.gen.Add(1)
	n := 0
	if s.cache != nil {
		n = s.cache.Purge()
	}
	s.mu.Unlock()
	if n > 0 {
		s.logger.Debug("Summary cache purged", "entries", n)
	}
}

// Summary returns the payday summary as seen on today.
func (s *SummaryService) Summary(ctx context.Context, today core.Date) (schedule.Summary, error) {
	if err := today.Validate(); err != nil {
		return schedule.Summary{}, err
	}
	key := fmt.Sprintf("%s/%d", today, s.horizon)
	if s.cache != nil {
		if cached, ok := s.cache.Get(key); ok {
			return cached, nil
		}
	}

	gen := s.gen.Load()
	v, err, _ := s.group.Do(fmt.Sprintf("%s#%d", key, gen), func() (any, error) {
		bills, paydays, err := s.snapshot(ctx)
		if err != nil {
			return schedule.Summary{}, err
		}
		sum, err := schedule.Summarize(bills, paydays, today, s.horizon)
		if err != nil {
			return schedule.Summary{}, err
		}
		s.cacheIfCurrent(key, gen, sum)
		s.logger.DebugContext(ctx, "Summary computed",
			log.FieldToday, today.String(),
			"due_before_next_cents", sum.DueBeforeNext.Cents,
			"due_before_second_cents", sum.DueBeforeSecond.Cents)
		return sum, nil
	})
	if err != nil {
		return schedule.Summary{}, err
	}
	return v.(schedule.Summary), nil
}

// cacheIfCurrent caches sum unless an invalidation happened since gen was read.
func (s *SummaryService) cacheIfCurrent(key string, gen uint64, sum schedule.Summary) {
	if s.cache == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen.Load() == gen {
		s.cache.Set(key, sum)
	}
}

// Calendar lays out ym with bill totals and payday amounts per day.
func (s *SummaryService) Calendar(ctx context.Context, ym core.YearMonth, today core.Date) (schedule.Month, error) {
	if ym.Month < 1 || ym.Month > 12 {
		return schedule.Month{}, core.ErrInvalidMonth
	}
	bills, paydays, err := s.snapshot(ctx)
	if err != nil {
		return schedule.Month{}, err
	}
	return schedule.BuildMonth(bills, paydays, ym, today)
}

// BillsOn lists the bills due on date.
func (s *SummaryService) BillsOn(ctx context.Context, date core.Date) ([]core.Bill, error) {
	if err := date.Validate(); err != nil {
		return nil, err
	}
	bills, err := s.store.ListBills(ctx)
	if err != nil {
		return nil, fmt.Errorf("list bills: %w", err)
	}
	return schedule.BillsOnDay(bills, date)
}

// Window totals the bills due in [from, to).
func (s *SummaryService) Window(ctx context.Context, from, to core.Date) (Window, error) {
	if err := from.Validate(); err != nil {
		return Window{}, err
	}
	if err := to.Validate(); err != nil {
		return Window{}, err
	}
	if to.Before(from) {
		return Window{}, fmt.Errorf("%w: window ends before it starts", core.ErrInvalidArgument)
	}
	if from.YearMonth().AddMonths(maxWindowMonths).Before(to.YearMonth()) {
		return Window{}, fmt.Errorf("%w: window longer than %d months", core.ErrInvalidArgument, maxWindowMonths)
	}

	bills, err := s.store.ListBills(ctx)
	if err != nil {
		return Window{}, fmt.Errorf("list bills: %w", err)
	}
	occ, err := schedule.BillsBetween(bills, from, to)
	if err != nil {
		return Window{}, err
	}
	total, err := schedule.TotalBillsBefore(bills, from, to)
	if err != nil {
		return Window{}, err
	}
	return Window{From: from, To: to, Total: total, Bills: occ}, nil
}

// snapshot loads bills and paydays concurrently.
func (s *SummaryService) snapshot(ctx context.Context) ([]core.Bill, []core.PayDay, error) {
	var (
		bills   []core.Bill
		paydays []core.PayDay
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if bills, err = s.store.ListBills(gctx); err != nil {
			return fmt.Errorf("list bills: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if paydays, err = s.store.ListPayDays(gctx); err != nil {
			return fmt.Errorf("list paydays: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return bills, paydays, nil
}
