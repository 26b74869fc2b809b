package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kardexlabs/kardex/internal/app"
	"github.com/kardexlabs/kardex/internal/kardex"
	"github.com/kardexlabs/kardex/internal/ledger"
	"github.com/kardexlabs/kardex/internal/masterdata/locations"
	"github.com/kardexlabs/kardex/internal/masterdata/products"
	"github.com/kardexlabs/kardex/internal/movement"
	"github.com/kardexlabs/kardex/internal/platform/cache"
	"github.com/kardexlabs/kardex/internal/platform/db"
	"github.com/kardexlabs/kardex/internal/shared"
	"github.com/kardexlabs/kardex/internal/transfer"
	"github.com/kardexlabs/kardex/internal/units"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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
		logger.Warn("redis unavailable, unit cache disabled", slog.Any("error", err))
		redisClient = nil
	} else {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	auditLogger := shared.NewAuditLogger(pool)
	idempotencyStore := shared.NewIdempotencyStore(pool)

	var unitCache *units.Cache
	if redisClient != nil {
		unitCache = units.NewCache(redisClient, cfg.UnitCacheTTL)
	}
	unitRepo := units.NewRepository(pool)
	unitService := units.NewService(unitRepo, unitCache)
	converter := units.NewConverter(unitService)

	productService := products.NewService(products.NewRepository(pool))
	locationService := locations.NewService(locations.NewRepository(pool))

	stockLedger := ledger.New(ledger.Config{AllowNegativeStock: cfg.AllowNegativeStock})
	ledgerRepo := ledger.NewRepository(pool)
	kardexRepo := kardex.NewRepository(pool)
	recorder := kardex.NewRecorder(logger)

	movementRepo := movement.NewRepository(pool)
	engine := movement.NewEngine(movementRepo, stockLedger, recorder, productService, converter, auditLogger, idempotencyStore, logger)

	transferRepo := transfer.NewRepository(pool)
	transferService := transfer.NewService(transferRepo, stockLedger, engine, productService, converter, nil, auditLogger, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		MovementHandler:  movement.NewHandler(logger, engine, movementRepo),
		TransferHandler:  transfer.NewHandler(logger, transferService),
		LedgerHandler:    ledger.NewHandler(logger, ledgerRepo),
		KardexHandler:    kardex.NewHandler(logger, kardexRepo),
		UnitsHandler:     units.NewHandler(logger, unitService),
		ProductsHandler:  products.NewHandler(logger, productService),
		LocationsHandler: locations.NewHandler(logger, locationService),
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
