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

	"golang.org/x/sync/errgroup"

	"github.com/medilink/medilink/internal/app"
	"github.com/medilink/medilink/internal/auth"
	"github.com/medilink/medilink/internal/catalog"
	"github.com/medilink/medilink/internal/inventory"
	"github.com/medilink/medilink/internal/masterdata"
	"github.com/medilink/medilink/internal/notify"
	"github.com/medilink/medilink/internal/observability"
	"github.com/medilink/medilink/internal/platform/cache"
	"github.com/medilink/medilink/internal/platform/db"
	"github.com/medilink/medilink/internal/procurement"
	"github.com/medilink/medilink/internal/settlement"
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
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()

	tokens := auth.NewTokenStore(redisClient)
	authService := auth.NewService(auth.NewRepository(pool), tokens, cfg.TokenTTL)
	authHandler := auth.NewHandler(logger, authService)
	authMiddleware := auth.NewMiddleware(tokens)

	broker := notify.NewBroker(redisClient)
	feed := notify.NewStore(pool)
	publisher := notify.NewPublisher(logger, broker, feed)

	catalogService := catalog.NewService(catalog.NewRepository(pool))
	catalogHandler := catalog.NewHandler(logger, catalogService)

	masterdataHandler := masterdata.NewHandler(logger, masterdata.NewRepository(pool))

	inventoryService := inventory.NewService(inventory.NewRepository(pool))
	inventoryHandler := inventory.NewHandler(logger, inventoryService)

	procurementService := procurement.NewService(logger, procurement.NewRepository(pool), publisher)
	procurementHandler := procurement.NewHandler(logger, procurementService)

	settlementService := settlement.NewService(logger, settlement.NewRepository(pool))
	settlementHandler := settlement.NewHandler(logger, settlementService)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		AuthMiddleware:     authMiddleware,
		AuthHandler:        authHandler,
		CatalogHandler:     catalogHandler,
		MasterDataHandler:  masterdataHandler,
		InventoryHandler:   inventoryHandler,
		ProcurementHandler: procurementHandler,
		SettlementHandler:  settlementHandler,
		NotifyHandler:      notify.NewHandler(logger, feed),
		WSHandler:          notify.NewWSHandler(logger, broker),
		Metrics:            metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("http server listening", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server exited", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("server stopped")
}
