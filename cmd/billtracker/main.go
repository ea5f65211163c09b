package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"billtracker/internal/cache"
	"billtracker/internal/cli"
	apphttp "billtracker/internal/http"
	"billtracker/internal/log"
	"billtracker/internal/schedule"
	"billtracker/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	result := cli.InitBackend(context.Background(), logger, cfg)

	summaryCache := cache.NewLRUCache[schedule.Summary](cfg.SummaryCacheSize, cfg.SummaryCacheTTL)
	cacheManager := cache.NewManager(logger)
	cacheManager.Register(summaryCache)
	cacheManager.StartCleanup(cfg.SummaryCacheTTL)

	summaries := services.NewSummaryService(result.Backend, cfg.PayDayHorizon, summaryCache, logger)

	var publisher services.ChangePublisher
	if result.Events != nil {
		publisher = result.Events
	}
	bills := services.NewBillService(result.Backend, publisher, summaries, logger)

	srv := apphttp.NewServer(apphttp.Options{
		Addr:      ":" + cfg.Port,
		Bills:     bills,
		Schedule:  summaries,
		Logger:    logger,
		RateLimit: cfg.RateLimitPerMinute,
		Ready:     result.Ready,
	})
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		cacheManager.Stop()
		if result.Cleanup != nil {
			if err := result.Cleanup(); err != nil {
				logger.Error("Backend cleanup error", log.FieldError, err)
			}
		}
	})

	logger.Info("Starting billtracker server",
		log.FieldOperation, log.OpStartup,
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"events", result.Events != nil,
		"payday_horizon", cfg.PayDayHorizon)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
