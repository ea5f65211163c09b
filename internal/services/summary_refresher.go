package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"billtracker/internal/core"
	"billtracker/internal/log"
	"billtracker/internal/schedule"
)

// RefresherConfig holds configuration for the summary refresher
type RefresherConfig struct {
	// Interval is how often the summary is recomputed (default: 1h)
	Interval time.Duration

	// Today returns the reference day (default: core.Today)
	Today func() core.Date
}

// DefaultRefresherConfig returns sensible defaults
func DefaultRefresherConfig() RefresherConfig {
	return RefresherConfig{
		Interval: time.Hour,
		Today:    core.Today,
	}
}

// SummaryRefresher recomputes and reports the payday summary on a schedule and
// whenever Trigger is called.
type SummaryRefresher struct {
	summaries *SummaryService
	config    RefresherConfig
	logger    *log.Logger
	trigger   chan struct{}

	// Lifecycle management
	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	doneCh  chan struct{}

	lastMu sync.Mutex
	last   schedule.Summary
}

// NewSummaryRefresher creates a new refresher
func NewSummaryRefresher(summaries *SummaryService, config RefresherConfig, logger *log.Logger) *SummaryRefresher {
	if config.Interval <= 0 {
		config.Interval = time.Hour
	}
	if config.Today == nil {
		config.Today = core.Today
	}
	return &SummaryRefresher{
		summaries: summaries,
		config:    config,
		logger:    logger.WithComponent(log.ComponentWorker),
		trigger:   make(chan struct{}, 1),
	}
}

// Start runs the refresh loop in the background until Stop is called or ctx
// is cancelled. Returns an error if already running.
func (r *SummaryRefresher) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return fmt.Errorf("summary refresher is already running")
	}
	ctx, cancel := context.WithCancel(ctx)
	r.running = true
	r.cancel = cancel
	r.doneCh = make(chan struct{})
	done := r.doneCh
	r.mu.Unlock()

	go func() {
		defer close(done)
		defer func() {
			r.mu.Lock()
			if r.doneCh == done {
				r.running = false
				r.cancel = nil
			}
			r.mu.Unlock()
			cancel()
		}()
		r.Run(ctx)
	}()

	r.logger.InfoContext(ctx, "Summary refresher started", "interval", r.config.Interval)
	return nil
}

// Stop cancels the loop and waits for it to finish.
func (r *SummaryRefresher) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	cancel, done := r.cancel, r.doneCh
	r.mu.Unlock()

	cancel()
	select {
	case <-done:
		r.logger.InfoContext(ctx, "Summary refresher stopped gracefully")
	case <-ctx.Done():
		r.logger.WarnContext(ctx, "Summary refresher stop timed out")
		return ctx.Err()
	}
	return nil
}

// IsRunning returns whether the refresher is currently running
func (r *SummaryRefresher) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Trigger requests a refresh. Requests made while one is pending coalesce.
func (r *SummaryRefresher) Trigger() {
	select {
	case r.trigger <- struct{}{}:
	default:
	}
}

// Run refreshes immediately and then on every tick or trigger until ctx is done.
func (r *SummaryRefresher) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.config.Interval)
	defer ticker.Stop()

	r.refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.refresh(ctx)
		case <-r.trigger:
			r.refresh(ctx)
		}
	}
}

// Last returns the most recently computed summary.
func (r *SummaryRefresher) Last() schedule.Summary {
	r.lastMu.Lock()
	defer r.lastMu.Unlock()
	return r.last
}

func (r *SummaryRefresher) refresh(ctx context.Context) {
	r.summaries.Invalidate()
	today := r.config.Today()
	sum, err := r.summaries.Summary(ctx, today)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to compute summary", log.FieldToday, today.String(), log.FieldError, err)
		return
	}

	r.lastMu.Lock()
	r.last = sum
	r.lastMu.Unlock()

	if len(sum.NextPayDays) == 0 {
		r.logger.InfoContext(ctx, "No paydays configured", log.FieldToday, today.String())
		return
	}
	r.logger.InfoContext(ctx, "Payday summary",
		log.FieldToday, today.String(),
		"next_payday", sum.NextPayDays[0].Date.String(),
		"due_before_next", sum.DueBeforeNext.Format(),
		"due_before_second", sum.DueBeforeSecond.Format(),
		"upcoming_bills", len(sum.Upcoming))
}
