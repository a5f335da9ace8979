package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/medilink/medilink/internal/app"
	"github.com/medilink/medilink/internal/inventory"
	"github.com/medilink/medilink/internal/notify"
	"github.com/medilink/medilink/internal/platform/cache"
	"github.com/medilink/medilink/internal/platform/db"
	"github.com/medilink/medilink/internal/procurement"
	"github.com/medilink/medilink/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	broker := notify.NewBroker(redisClient)
	publisher := notify.NewPublisher(logger, broker, notify.NewStore(pool))

	procurementService := procurement.NewService(logger,
		procurement.NewRepository(pool), procurement.NopPublisher{})
	inventoryRepo := inventory.NewRepository(pool)

	expireJob := jobs.NewQuotationExpireJob(procurementService, logger)
	lowStockJob := jobs.NewLowStockScanJob(inventoryRepo, publisher, logger)

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskQuotationExpire, Handler: expireJob.Handle},
			{Type: jobs.TaskLowStockScan, Handler: lowStockJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.QuotationSweepSchedule, Task: jobs.NewQuotationExpireTask(),
				Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: cfg.LowStockScanSchedule, Task: jobs.NewLowStockScanTask(),
				Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("worker started")
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker exited", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("worker stopped")
}
