package services

import (
	"context"
	"testing"
	"time"

	"billtracker/internal/core"
	"billtracker/internal/storage/memory"
)

func TestDefaultRefresherConfig(t *testing.T) {
	config := DefaultRefresherConfig()
	if config.Interval != time.Hour {
		t.Errorf("expected Interval 1h, got %v", config.Interval)
	}
	if config.Today == nil {
		t.Error("expected a default clock")
	}
}

func newTestRefresher(t *testing.T) *SummaryRefresher {
	t.Helper()
	store := memory.New()
	seedScenario(t, store)
	summaries := NewSummaryService(store, 2, nil, testLogger())
	return NewSummaryRefresher(summaries, RefresherConfig{
		Interval: time.Hour,
		Today:    func() core.Date { return core.NewDate(2024, 3, 1) },
	}, testLogger())
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestSummaryRefresher_Lifecycle(t *testing.T) {
	r := newTestRefresher(t)
	if r.IsRunning() {
		t.Fatal("refresher should not be running initially")
	}

	ctx := context.Background()
	if err := r.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := r.Start(ctx); err == nil {
		t.Error("second start should fail")
	}

	waitFor(t, func() bool { return r.Last().DueBeforeNext.Cents == 25000 })

	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	if err := r.Stop(stopCtx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if r.IsRunning() {
		t.Error("refresher should be stopped")
	}
	if err := r.Stop(stopCtx); err != nil {
		t.Errorf("stopping twice should be a no-op: %v", err)
	}
}

func TestSummaryRefresher_ParentCancelAllowsRestart(t *testing.T) {
	r := newTestRefresher(t)

	parent, cancelParent := context.WithCancel(context.Background())
	if err := r.Start(parent); err != nil {
		t.Fatalf("start: %v", err)
	}
	cancelParent()
	waitFor(t, func() bool { return !r.IsRunning() })

	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := r.Stop(stopCtx); err != nil {
		t.Errorf("stop after parent cancel: %v", err)
	}

	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("restart after parent cancel: %v", err)
	}
	if !r.IsRunning() {
		t.Error("refresher should be running after restart")
	}
	if err := r.Stop(stopCtx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if r.IsRunning() {
		t.Error("refresher should be stopped")
	}
}

func TestSummaryRefresher_Trigger(t *testing.T) {
	store := memory.New()
	seedScenario(t, store)
	summaries := NewSummaryService(store, 2, nil, testLogger())
	r := NewSummaryRefresher(summaries, RefresherConfig{
		Interval: time.Hour,
		Today:    func() core.Date { return core.NewDate(2024, 3, 1) },
	}, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	waitFor(t, func() bool { return r.Last().DueBeforeNext.Cents == 25000 })

	if _, err := store.CreateBill(ctx, core.Bill{Name: "Gym", Amount: core.Cents(1000), Recurring: true, Day: 2}); err != nil {
		t.Fatal(err)
	}
	r.Trigger()
	r.Trigger()
	waitFor(t, func() bool { return r.Last().DueBeforeNext.Cents == 26000 })

	cancel()
	if err := <-done; err != context.Canceled {
		t.Errorf("Run returned %v, want context.Canceled", err)
	}
}
