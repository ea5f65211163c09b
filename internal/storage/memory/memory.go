package memory

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"billtracker/internal/core"
	"billtracker/internal/schedule"
)

type Store struct {
	mu      sync.Mutex
	nextID  int64
	bills   map[int64]core.Bill
	paydays map[int64]core.PayDay
}

func New() *Store {
	return &Store{
		bills:   make(map[int64]core.Bill),
		paydays: make(map[int64]core.PayDay),
	}
}

// NewFromFiles seeds the store from seed_bills.txt and seed_paydays.txt under
// base. Missing files are skipped; malformed lines are reported with their
// line number.
func NewFromFiles(base string) (*Store, error) {
	s := New()
	ctx := context.Background()

	for _, l := range readLines(filepath.Join(base, "seed_bills.txt")) {
		b, err := parseBillLine(l.text)
		if err != nil {
			return nil, fmt.Errorf("seed_bills.txt:%d: %w", l.n, err)
		}
		if _, err := s.CreateBill(ctx, b); err != nil {
			return nil, fmt.Errorf("seed_bills.txt:%d: %w", l.n, err)
		}
	}
	var paydays []core.PayDay
	for _, l := range readLines(filepath.Join(base, "seed_paydays.txt")) {
		p, err := parsePayDayLine(l.text)
		if err != nil {
			return nil, fmt.Errorf("seed_paydays.txt:%d: %w", l.n, err)
		}
		paydays = append(paydays, p)
	}
	// A later line for the same day replaces the earlier one, as saving does.
	for _, p := range schedule.DedupePayDays(paydays) {
		if _, err := s.CreatePayDay(ctx, p); err != nil {
			return nil, fmt.Errorf("seed payday on day %d: %w", p.Day, err)
		}
	}
	return s, nil
}

func (s *Store) ListBills(_ context.Context) ([]core.Bill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Bill, 0, len(s.bills))
	for _, b := range s.bills {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) GetBill(_ context.Context, id int64) (core.Bill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bills[id]
	if !ok {
		return core.Bill{}, fmt.Errorf("bill %d: %w", id, core.ErrNotFound)
	}
	return b, nil
}

func (s *Store) CreateBill(_ context.Context, b core.Bill) (core.Bill, error) {
	b = b.Normalize()
	if err := b.Validate(); err != nil {
		return core.Bill{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	b.ID = s.nextID
	s.bills[b.ID] = b
	return b, nil
}

func (s *Store) UpdateBill(_ context.Context, b core.Bill) (core.Bill, error) {
	b = b.Normalize()
	if err := b.Validate(); err != nil {
		return core.Bill{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bills[b.ID]; !ok {
		return core.Bill{}, fmt.Errorf("bill %d: %w", b.ID, core.ErrNotFound)
	}
	s.bills[b.ID] = b
	return b, nil
}

func (s *Store) DeleteBill(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bills[id]; !ok {
		return fmt.Errorf("bill %d: %w", id, core.ErrNotFound)
	}
	delete(s.bills, id)
	return nil
}

func (s *Store) ListPayDays(_ context.Context) ([]core.PayDay, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.PayDay, 0, len(s.paydays))
	for _, p := range s.paydays {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Day != out[j].Day {
			return out[i].Day < out[j].Day
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) CreatePayDay(_ context.Context, p core.PayDay) (core.PayDay, error) {
	if err := p.Validate(); err != nil {
		return core.PayDay{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	p.ID = s.nextID
	s.paydays[p.ID] = p
	return p, nil
}

func (s *Store) DeletePayDay(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.paydays[id]; !ok {
		return fmt.Errorf("payday %d: %w", id, core.ErrNotFound)
	}
	delete(s.paydays, id)
	return nil
}

func (s *Store) ReplacePayDay(_ context.Context, p core.PayDay) (core.PayDay, []int64, error) {
	if err := p.Validate(); err != nil {
		return core.PayDay{}, nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var removed []int64
	for id, old := range s.paydays {
		if old.Day == p.Day {
			removed = append(removed, id)
		}
	}
	sort.Slice(removed, func(i, j int) bool { return removed[i] < removed[j] })
	for _, id := range removed {
		delete(s.paydays, id)
	}
	s.nextID++
	p.ID = s.nextID
	s.paydays[p.ID] = p
	return p, removed, nil
}

// Close is a no-op so the store satisfies the backend lifecycle.
func (s *Store) Close() error { return nil }

type line struct {
	n    int
	text string
}

func readLines(path string) []line {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []line
	sc := bufio.NewScanner(f)
	n := 0
	for sc.Scan() {
		n++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		out = append(out, line{n: n, text: text})
	}
	return out
}

// parseBillLine reads "name|amount|day" or "name|amount|YYYY-MM-DD".
func parseBillLine(text string) (core.Bill, error) {
	parts := strings.Split(text, "|")
	if len(parts) != 3 {
		return core.Bill{}, fmt.Errorf("%w: want name|amount|day-or-date, got %q", core.ErrInvalidArgument, text)
	}
	amount, err := core.ParseMoney(parts[1])
	if err != nil {
		return core.Bill{}, err
	}
	b := core.Bill{Name: strings.TrimSpace(parts[0]), Amount: amount}
	when := strings.TrimSpace(parts[2])
	if day, err := strconv.Atoi(when); err == nil {
		b.Recurring = true
		b.Day = day
		return b, nil
	}
	if b.Date, err = core.ParseDate(when); err != nil {
		return core.Bill{}, err
	}
	return b, nil
}

// parsePayDayLine reads "day|amount".
func parsePayDayLine(text string) (core.PayDay, error) {
	parts := strings.Split(text, "|")
	if len(parts) != 2 {
		return core.PayDay{}, fmt.Errorf("%w: want day|amount, got %q", core.ErrInvalidArgument, text)
	}
	day, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return core.PayDay{}, fmt.Errorf("%w: day %q", core.ErrInvalidDay, parts[0])
	}
	amount, err := core.ParseMoney(parts[1])
	if err != nil {
		return core.PayDay{}, err
	}
	return core.PayDay{Day: day, Amount: amount}, nil
}
