package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sourcegraph/conc"

	"github.com/efreitasn/orderdesk/internal/config"
	"github.com/efreitasn/orderdesk/internal/engine"
	"github.com/efreitasn/orderdesk/internal/handler"
	"github.com/efreitasn/orderdesk/internal/service"
	"github.com/efreitasn/orderdesk/internal/store"
	"github.com/efreitasn/orderdesk/internal/store/postgres"
)

func main() {
	healthcheck := flag.Bool("healthcheck", false, "Run health check against running server")
	migrateOnly := flag.Bool("migrate", false, "Apply database migrations and exit")
	flag.Parse()

	// -healthcheck: HTTP GET to localhost:PORT/healthz, exit 0/1.
	if *healthcheck {
		port := os.Getenv("PORT")
		if port == "" {
			port = "8080"
		}
		resp, err := http.Get(fmt.Sprintf("http://localhost:%s/healthz", port))
		if err != nil || resp.StatusCode != http.StatusOK {
			os.Exit(1)
		}
		os.Exit(0)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *migrateOnly {
		if cfg.Store != config.StorePostgres {
			logger.Error("-migrate requires STORE=postgres")
			os.Exit(1)
		}
		if err := postgres.Migrate(ctx, cfg.DatabaseURL, logger); err != nil {
			logger.Error("migration failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
		return
	}

	st, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open store", slog.String("store", cfg.Store), slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer closeStore()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := service.NewMetrics(registry)

	admitter := engine.NewAdmitter(st,
		engine.WithFloor(cfg.ProfitFloor),
		engine.WithLatency(engine.UniformLatency(cfg.SettlementMinDelay, cfg.SettlementMaxDelay, uint64(time.Now().UnixNano()))),
		engine.WithLogger(logger),
		engine.WithLifetime(ctx),
	)
	clientSvc := service.NewClientService(st, logger, metrics)
	tradeSvc := service.NewTradeService(admitter, st, metrics)

	router := handler.NewRouter(clientSvc, tradeSvc, registry, logger, cfg.LockTimeout)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	var lifecycle conc.WaitGroup
	lifecycle.Go(func() {
		logger.Info("server starting",
			slog.String("addr", addr),
			slog.String("store", cfg.Store),
			slog.String("profit_floor", cfg.ProfitFloor.String()),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.String("error", err.Error()))
			stop()
		}
	})

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.String("error", err.Error()))
	}
	lifecycle.Wait()

	logger.Info("server stopped")
}

// openStore builds the configured store. For postgres it waits for the
// database to accept connections and applies pending migrations.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (store.Store, func(), error) {
	if cfg.Store != config.StorePostgres {
		return store.NewMemory(), func() {}, nil
	}

	pool, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	pg := postgres.New(pool)

	_, err = backoff.Retry(ctx, func() (struct{}, error) {
		if err := pg.Ping(ctx); err != nil {
			logger.Warn("database not ready", slog.String("error", err.Error()))
			return struct{}{}, err
		}
		return struct{}{}, nil
	}, backoff.WithBackOff(backoff.NewExponentialBackOff()), backoff.WithMaxElapsedTime(time.Minute))
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("database unreachable: %w", err)
	}

	if err := postgres.Migrate(ctx, cfg.DatabaseURL, logger); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return pg, pool.Close, nil
}
