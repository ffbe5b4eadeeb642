package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/queuectl/queuectl/config"
	"github.com/queuectl/queuectl/internal/health"
	"github.com/queuectl/queuectl/internal/infrastructure/sqlitestore"
	ctxlog "github.com/queuectl/queuectl/internal/log"
	"github.com/queuectl/queuectl/internal/metrics"
	"github.com/queuectl/queuectl/internal/scheduler"
	httptransport "github.com/queuectl/queuectl/internal/transport/http"
	"github.com/queuectl/queuectl/internal/transport/http/handler"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := newLogger(cfg.Env, cfg.SlogLevel())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	db, err := sqlitestore.Open(ctx, cfg.DataDir)
	if err != nil {
		stop()
		log.Fatalf("store: %v", err)
	}
	defer db.Close()

	store := sqlitestore.New(db)
	sched := scheduler.New(store)

	jobHandler := handler.NewJobHandler(sched, logger)
	dlqHandler := handler.NewDLQHandler(sched, logger)
	configHandler := handler.NewConfigHandler(sched, logger)

	metrics.Register()
	checker := health.NewChecker(db, logger, prometheus.DefaultRegisterer)

	srv := http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: httptransport.NewRouter(logger, jobHandler, dlqHandler, configHandler, checker),
	}

	metricsSrv := metrics.NewServer(":" + cfg.MetricsPort)

	go func() {
		logger.Info("server started", "port", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	go func() {
		logger.Info("metrics server started", "port", cfg.MetricsPort)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", "error", err)
		}
	}()

	<-ctx.Done()
	stop()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", "error", err)
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown", "error", err)
	}
}

func newLogger(env string, level slog.Level) *slog.Logger {
	var inner slog.Handler
	if env == "local" {
		inner = tint.NewHandler(os.Stdout, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		})
	} else {
		inner = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}
	return slog.New(ctxlog.NewContextHandler(inner))
}
