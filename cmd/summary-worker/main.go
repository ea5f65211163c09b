package main

import (
	"context"
	"errors"
	"os"
	"time"

	"billtracker/internal/cli"
	"billtracker/internal/log"
	"billtracker/internal/services"
	"billtracker/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentWorker)
	logger.Info("Starting summary-worker", log.FieldOperation, log.OpStartup)

	cfg := cli.LoadAndValidateConfig(logger)
	if cfg.DataBackend == "memory" {
		logger.Warn("Memory backend is private to this process; the worker will not see API writes",
			"backend", cfg.DataBackend)
	}

	result := cli.InitBackend(context.Background(), logger, cfg)
	closeBackend := func() {
		if result.Cleanup == nil {
			return
		}
		if err := result.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", log.FieldError, err)
		}
	}

	summaries := services.NewSummaryService(result.Backend, cfg.PayDayHorizon, nil, logger)
	refresherConfig := services.DefaultRefresherConfig()
	refresherConfig.Interval = cfg.SummaryInterval
	refresher := services.NewSummaryRefresher(summaries, refresherConfig, logger)
	changes := worker.NewChangeWorker(refresher, logger)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := refresher.Stop(ctx); err != nil {
			logger.Error("Summary refresher stop error", log.FieldError, err)
		}
	})

	if err := refresher.Start(ctx); err != nil {
		logger.Error("Failed to start summary refresher", log.FieldError, err)
		closeBackend()
		os.Exit(1)
	}

	var err error
	if result.Events != nil {
		logger.Info("Consuming change events", "queue", cfg.AMQPQueue)
		err = result.Events.ConsumeChanges(ctx, changes.HandleChange)
	} else {
		logger.Info("Change events disabled, refreshing on interval only",
			"interval", cfg.SummaryInterval.String())
		<-ctx.Done()
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		_ = refresher.Stop(stopCtx)
		cancel()
		closeBackend()
		logger.Error("Summary worker stopped", log.FieldError, err, "stats", changes.Stats())
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	closeBackend()

	last := refresher.Last()
	logger.Info("Summary worker stopped gracefully",
		log.FieldOperation, log.OpShutdown,
		"stats", changes.Stats(),
		"due_before_next", last.DueBeforeNext.Format(),
		"due_before_second", last.DueBeforeSecond.Format())
}
