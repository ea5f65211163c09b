package worker

import (
	"context"
	"sync"

	"billtracker/internal/amqp"
	"billtracker/internal/log"
)

// Trigger schedules a summary recomputation. Calls may be coalesced.
type Trigger interface {
	Trigger()
}

// ChangeWorker turns bill and payday change events into summary refreshes.
type ChangeWorker struct {
	refresher Trigger
	logger    *log.Logger

	mu     sync.Mutex
	counts map[string]int64
}

func NewChangeWorker(refresher Trigger, logger *log.Logger) *ChangeWorker {
	return &ChangeWorker{
		refresher: refresher,
		logger:    logger.WithComponent(log.ComponentWorker),
		counts:    make(map[string]int64),
	}
}

// HandleChange processes a single change message from AMQP. Every valid
// message triggers a refresh; the message only says what changed, the
// refresher reloads the records itself.
func (w *ChangeWorker) HandleChange(ctx context.Context, msg *amqp.ChangeMessage) error {
	if err := msg.Validate(); err != nil {
		// Redelivery cannot fix a bad message.
		w.logger.WarnContext(ctx, "Dropping invalid change message", log.FieldError, err)
		return nil
	}

	w.logger.InfoContext(ctx, "Processing change message",
		"entity", msg.Entity,
		log.FieldOperation, msg.Operation,
		"id", msg.ID,
		"timestamp", msg.Timestamp)

	w.mu.Lock()
	w.counts[msg.Entity+":"+msg.Operation]++
	w.mu.Unlock()

	w.refresher.Trigger()
	return nil
}

// Stats returns the number of handled messages per entity:operation.
func (w *ChangeWorker) Stats() map[string]int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make(map[string]int64, len(w.counts))
	for k, v := range w.counts {
		out[k] = v
	}
	return out
}
