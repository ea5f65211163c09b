package services

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"billtracker/internal/amqp"
	"billtracker/internal/core"
	"billtracker/internal/log"
	"billtracker/internal/storage/memory"
)

type recordingPublisher struct {
	mu   sync.Mutex
	msgs []amqp.ChangeMessage
	err  error
}

func (p *recordingPublisher) PublishChange(_ context.Context, msg *amqp.ChangeMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, *msg)
	return p.err
}

func (p *recordingPublisher) ops() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.msgs))
	for i, m := range p.msgs {
		out[i] = m.Entity + ":" + m.Operation
	}
	return out
}

type countingInvalidator struct{ n int }

func (c *countingInvalidator) Invalidate() { c.n++ }

func testLogger() *log.Logger {
	return log.NewText(io.Discard, "error", log.ComponentApp)
}

func newTestBillService() (*BillService, *recordingPublisher, *countingInvalidator) {
	pub := &recordingPublisher{}
	inv := &countingInvalidator{}
	return NewBillService(memory.New(), pub, inv, testLogger()), pub, inv
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestBillService_CRUD(t *testing.T) {
	ctx := context.Background()
	svc, pub, inv := newTestBillService()

	b, err := svc.CreateBill(ctx, core.Bill{ID: 99, Name: "Rent", Amount: core.Cents(120000), Recurring: true, Day: 1})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if b.ID == 99 {
		t.Error("caller-supplied id should be ignored on create")
	}

	b.Amount = core.Cents(125000)
	if _, err := svc.UpdateBill(ctx, b); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err := svc.GetBill(ctx, b.ID)
	if err != nil || got.Amount.Cents != 125000 {
		t.Fatalf("get: %+v %v", got, err)
	}

	if err := svc.DeleteBill(ctx, b.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := svc.DeleteBill(ctx, b.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	want := []string{"bill:create", "bill:update", "bill:delete"}
	if got := pub.ops(); !equalStrings(got, want) {
		t.Errorf("published %v, want %v", got, want)
	}
	if inv.n != 3 {
		t.Errorf("invalidated %d times, want 3", inv.n)
	}
}

func TestBillService_RejectsInvalid(t *testing.T) {
	ctx := context.Background()
	svc, pub, _ := newTestBillService()

	tests := []struct {
		name string
		bill core.Bill
		want error
	}{
		{"empty name", core.Bill{Name: "  ", Recurring: true, Day: 1}, core.ErrEmptyName},
		{"day zero", core.Bill{Name: "x", Recurring: true, Day: 0}, core.ErrInvalidDay},
		{"day 32", core.Bill{Name: "x", Recurring: true, Day: 32}, core.ErrInvalidDay},
		{"negative amount", core.Bill{Name: "x", Amount: core.Cents(-1), Recurring: true, Day: 1}, core.ErrInvalidAmount},
		{"one-time without date", core.Bill{Name: "x"}, core.ErrInvalidDate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateBill(ctx, tt.bill)
			if !errors.Is(err, tt.want) || !errors.Is(err, core.ErrInvalidArgument) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
	if len(pub.ops()) != 0 {
		t.Errorf("rejected writes should not publish: %v", pub.ops())
	}
}

func TestBillService_UndoDelete(t *testing.T) {
	ctx := context.Background()
	svc, pub, _ := newTestBillService()

	if _, err := svc.UndoDelete(ctx); !errors.Is(err, ErrNothingToUndo) {
		t.Fatalf("expected nothing to undo, got %v", err)
	}

	orig, _ := svc.CreateBill(ctx, core.Bill{Name: "Gym", Amount: core.Cents(4000), Recurring: true, Day: 10, Autopay: true})
	if err := svc.DeleteBill(ctx, orig.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	restored, err := svc.UndoDelete(ctx)
	if err != nil {
		t.Fatalf("undo: %v", err)
	}
	if restored.ID == orig.ID || restored.ID == 0 {
		t.Errorf("restored bill should get a new id, got %d (was %d)", restored.ID, orig.ID)
	}
	restored.ID = orig.ID
	if restored != orig {
		t.Errorf("restored %+v, want %+v", restored, orig)
	}
	if _, err := svc.UndoDelete(ctx); !errors.Is(err, ErrNothingToUndo) {
		t.Errorf("undo should only apply once, got %v", err)
	}

	ops := pub.ops()
	if ops[len(ops)-1] != "bill:restore" {
		t.Errorf("last op = %s, want bill:restore", ops[len(ops)-1])
	}
}

func TestBillService_SavePayDayReplacesSameDay(t *testing.T) {
	ctx := context.Background()
	svc, pub, _ := newTestBillService()

	if _, err := svc.SavePayDay(ctx, core.PayDay{Day: 15, Amount: core.Cents(100000)}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := svc.SavePayDay(ctx, core.PayDay{Day: 1, Amount: core.Cents(100000)}); err != nil {
		t.Fatalf("save: %v", err)
	}
	latest, err := svc.SavePayDay(ctx, core.PayDay{Day: 15, Amount: core.Cents(120000)})
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	paydays, _ := svc.ListPayDays(ctx)
	if len(paydays) != 2 {
		t.Fatalf("want 2 paydays, got %+v", paydays)
	}
	if paydays[1].ID != latest.ID || paydays[1].Amount.Cents != 120000 {
		t.Errorf("latest save should win: %+v", paydays[1])
	}

	want := []string{"payday:create", "payday:create", "payday:delete", "payday:create"}
	if got := pub.ops(); !equalStrings(got, want) {
		t.Errorf("published %v, want %v", got, want)
	}

	if _, err := svc.SavePayDay(ctx, core.PayDay{Day: 0}); !errors.Is(err, core.ErrInvalidDay) {
		t.Errorf("expected invalid day, got %v", err)
	}
	if err := svc.DeletePayDay(ctx, latest.ID); err != nil {
		t.Errorf("delete: %v", err)
	}
	if err := svc.DeletePayDay(ctx, latest.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

// failingReplaceStore rejects every payday replacement after validation.
type failingReplaceStore struct {
	*memory.Store
}

func (failingReplaceStore) ReplacePayDay(context.Context, core.PayDay) (core.PayDay, []int64, error) {
	return core.PayDay{}, nil, errors.New("disk full")
}

func TestBillService_SavePayDayFailureKeepsPrevious(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	old, err := store.CreatePayDay(ctx, core.PayDay{Day: 15, Amount: core.Cents(100000)})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	pub := &recordingPublisher{}
	inv := &countingInvalidator{}
	svc := NewBillService(failingReplaceStore{store}, pub, inv, testLogger())

	if _, err := svc.SavePayDay(ctx, core.PayDay{Day: 15, Amount: core.Cents(120000)}); err == nil {
		t.Fatal("expected save to fail")
	}

	paydays, _ := store.ListPayDays(ctx)
	if len(paydays) != 1 || paydays[0].ID != old.ID || paydays[0].Amount.Cents != 100000 {
		t.Errorf("previous payday should survive: %+v", paydays)
	}
	if ops := pub.ops(); len(ops) != 0 {
		t.Errorf("nothing should be published, got %v", ops)
	}
	if inv.n != 0 {
		t.Errorf("cache should not be invalidated, got %d", inv.n)
	}
}

func TestBillService_PublishFailureDoesNotFailWrite(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{err: errors.New("broker down")}
	svc := NewBillService(memory.New(), pub, nil, testLogger())

	if _, err := svc.CreateBill(ctx, core.Bill{Name: "Water", Amount: core.Cents(3000), Recurring: true, Day: 5}); err != nil {
		t.Fatalf("write should succeed when publishing fails: %v", err)
	}
}

func TestBillService_NilPublisher(t *testing.T) {
	svc := NewBillService(memory.New(), nil, nil, testLogger())
	if _, err := svc.CreateBill(context.Background(), core.Bill{Name: "Water", Amount: core.Cents(3000), Recurring: true, Day: 5}); err != nil {
		t.Fatalf("create: %v", err)
	}
}
