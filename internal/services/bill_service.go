package services

import (
	"context"
	"fmt"
	"sync"

	"billtracker/internal/amqp"
	"billtracker/internal/core"
	"billtracker/internal/log"
	"billtracker/internal/ports"
)

// ErrNothingToUndo is returned by UndoDelete when no deletion is pending.
var ErrNothingToUndo = fmt.Errorf("nothing to undo: %w", core.ErrNotFound)

// ChangePublisher announces writes to other processes.
type ChangePublisher interface {
	PublishChange(ctx context.Context, msg *amqp.ChangeMessage) error
}

// Invalidator drops state derived from the stores.
type Invalidator interface {
	Invalidate()
}

// BillService orchestrates bill and payday writes across storage, derived
// caches and change events.
type BillService struct {
	store       ports.Store
	publisher   ChangePublisher
	invalidator Invalidator
	logger      *log.Logger

	mu          sync.Mutex
	lastDeleted *core.Bill
}

// NewBillService wires the service. publisher and invalidator may be nil.
func NewBillService(store ports.Store, publisher ChangePublisher, invalidator Invalidator, logger *log.Logger) *BillService {
	return &BillService{
		store:       store,
		publisher:   publisher,
		invalidator: invalidator,
		logger:      logger.WithComponent(log.ComponentBills),
	}
}

func (s *BillService) ListBills(ctx context.Context) ([]core.Bill, error) {
	return s.store.ListBills(ctx)
}

func (s *BillService) GetBill(ctx context.Context, id int64) (core.Bill, error) {
	return s.store.GetBill(ctx, id)
}

// CreateBill validates and stores a new bill.
func (s *BillService) CreateBill(ctx context.Context, b core.Bill) (core.Bill, error) {
	b = b.Normalize()
	if err := b.Validate(); err != nil {
		return core.Bill{}, err
	}
	b.ID = 0
	saved, err := s.store.CreateBill(ctx, b)
	if err != nil {
		return core.Bill{}, fmt.Errorf("save bill: %w", err)
	}
	s.changed(ctx, amqp.EntityBill, amqp.OpCreate, saved.ID)
	s.logger.InfoContext(ctx, "Bill created", log.NewFields().WithBill(saved).WithOperation(log.OpCreate).ToSlice()...)
	return saved, nil
}

// UpdateBill replaces the stored bill with the same id.
func (s *BillService) UpdateBill(ctx context.Context, b core.Bill) (core.Bill, error) {
	b = b.Normalize()
	if err := b.Validate(); err != nil {
		return core.Bill{}, err
	}
	saved, err := s.store.UpdateBill(ctx, b)
	if err != nil {
		return core.Bill{}, fmt.Errorf("update bill: %w", err)
	}
	s.changed(ctx, amqp.EntityBill, amqp.OpUpdate, saved.ID)
	s.logger.InfoContext(ctx, "Bill updated", log.NewFields().WithBill(saved).WithOperation(log.OpUpdate).ToSlice()...)
	return saved, nil
}

// DeleteBill removes a bill and remembers it for UndoDelete.
func (s *BillService) DeleteBill(ctx context.Context, id int64) error {
	b, err := s.store.GetBill(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteBill(ctx, id); err != nil {
		return fmt.Errorf("delete bill: %w", err)
	}

	s.mu.Lock()
	s.lastDeleted = &b
	s.mu.Unlock()

	s.changed(ctx, amqp.EntityBill, amqp.OpDelete, id)
	s.logger.InfoContext(ctx, "Bill deleted", log.NewFields().WithBill(b).WithOperation(log.OpDelete).ToSlice()...)
	return nil
}

// UndoDelete re-creates the most recently deleted bill under a new id.
func (s *BillService) UndoDelete(ctx context.Context) (core.Bill, error) {
	s.mu.Lock()
	pending := s.lastDeleted
	s.lastDeleted = nil
	s.mu.Unlock()

	if pending == nil {
		return core.Bill{}, ErrNothingToUndo
	}

	b := *pending
	b.ID = 0
	restored, err := s.store.CreateBill(ctx, b)
	if err != nil {
		s.mu.Lock()
		if s.lastDeleted == nil {
			s.lastDeleted = pending
		}
		s.mu.Unlock()
		return core.Bill{}, fmt.Errorf("restore bill: %w", err)
	}
	s.changed(ctx, amqp.EntityBill, amqp.OpRestore, restored.ID)
	s.logger.InfoContext(ctx, "Bill restored",
		log.NewFields().WithBill(restored).WithOperation(log.OpRestore).ToSlice()...)
	return restored, nil
}

func (s *BillService) ListPayDays(ctx context.Context) ([]core.PayDay, error) {
	return s.store.ListPayDays(ctx)
}

// SavePayDay stores p, replacing any payday already set on the same day.
func (s *BillService) SavePayDay(ctx context.Context, p core.PayDay) (core.PayDay, error) {
	if err := p.Validate(); err != nil {
		return core.PayDay{}, err
	}
	p.ID = 0
	saved, removed, err := s.store.ReplacePayDay(ctx, p)
	if err != nil {
		return core.PayDay{}, fmt.Errorf("save payday: %w", err)
	}
	for _, id := range removed {
		s.changed(ctx, amqp.EntityPayDay, amqp.OpDelete, id)
	}
	s.changed(ctx, amqp.EntityPayDay, amqp.OpCreate, saved.ID)
	s.logger.InfoContext(ctx, "Payday saved",
		append(log.NewFields().WithPayDay(saved).WithOperation(log.OpCreate).ToSlice(), "replaced", len(removed))...)
	return saved, nil
}

func (s *BillService) DeletePayDay(ctx context.Context, id int64) error {
	if err := s.store.DeletePayDay(ctx, id); err != nil {
		return fmt.Errorf("delete payday: %w", err)
	}
	s.changed(ctx, amqp.EntityPayDay, amqp.OpDelete, id)
	s.logger.InfoContext(ctx, "Payday deleted", log.FieldPayDayID, id, log.FieldOperation, log.OpDelete)
	return nil
}

// changed invalidates derived state and publishes a change event. Publishing
// failures are logged only; the write already succeeded.
func (s *BillService) changed(ctx context.Context, entity, op string, id int64) {
	if s.invalidator != nil {
		s.invalidator.Invalidate()
	}
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishChange(ctx, amqp.NewChangeMessage(entity, op, id)); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish change message",
			"entity", entity,
			log.FieldOperation, op,
			"id", id,
			log.FieldError, err)
	}
}
