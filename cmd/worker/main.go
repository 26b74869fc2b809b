package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/kardexlabs/kardex/internal/app"
	"github.com/kardexlabs/kardex/internal/kardex"
	"github.com/kardexlabs/kardex/internal/ledger"
	"github.com/kardexlabs/kardex/internal/platform/db"
	"github.com/kardexlabs/kardex/internal/shared"
	"github.com/kardexlabs/kardex/jobs"
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

	ledgerRepo := ledger.NewRepository(pool)
	kardexRepo := kardex.NewRepository(pool)
	integrity := jobs.NewIntegrityChecker(ledgerRepo, kardexRepo, logger)
	lowStock := jobs.NewLowStockScanner(ledgerRepo, logger)
	idempotencyStore := shared.NewIdempotencyStore(pool)

	var cron []jobs.CronRegistration
	for _, companyID := range cfg.JobCompanyIDs {
		integrityTask, err := jobs.NewKardexIntegrityTask(jobs.CompanyPayload{CompanyID: companyID})
		if err != nil {
			logger.Error("build integrity task", slog.Any("error", err))
			os.Exit(1)
		}
		lowStockTask, err := jobs.NewLowStockScanTask(jobs.CompanyPayload{CompanyID: companyID})
		if err != nil {
			logger.Error("build low stock task", slog.Any("error", err))
			os.Exit(1)
		}
		cron = append(cron,
			jobs.CronRegistration{Spec: "0 2 * * *", Task: integrityTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			jobs.CronRegistration{Spec: "*/30 * * * *", Task: lowStockTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		)
	}
	cron = append(cron, jobs.CronRegistration{Spec: "45 3 * * *", Task: jobs.NewIdempotencyCleanupTask()})

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:      logger,
		Integrity:   integrity,
		LowStock:    lowStock,
		Idempotency: idempotencyStore,
		Cron:        cron,
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("starting worker", slog.String("redis", cfg.RedisAddr))
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker stopped", slog.Any("error", err))
		os.Exit(1)
	}
}
