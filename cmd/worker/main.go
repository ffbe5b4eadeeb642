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

	"github.com/queuectl/queuectl/config"
	"github.com/queuectl/queuectl/internal/executor"
	"github.com/queuectl/queuectl/internal/infrastructure/sqlitestore"
	ctxlog "github.com/queuectl/queuectl/internal/log"
	"github.com/queuectl/queuectl/internal/metrics"
	"github.com/queuectl/queuectl/internal/scheduler"
	"github.com/queuectl/queuectl/internal/workerpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := newLogger(cfg.Env, cfg.SlogLevel())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	db, err := sqlitestore.Open(ctx, cfg.DataDir)
	if err != nil {
		stop()
		log.Fatalf("store: %v", err)
	}
	defer db.Close()

	logger.Info("store opened", "data_dir", cfg.DataDir)

	store := sqlitestore.New(db)
	sched := scheduler.New(store)

	metrics.Register()
	metrics.WorkerStartTime.SetToCurrentTime()

	executors := make([]*executor.Executor, cfg.WorkerCount)
	for i := range executors {
		executors[i] = executor.New(sched, cfg.DataDir, logger)
	}
	pool := workerpool.New(executors, logger)

	reaper := workerpool.NewReaper(sched, time.Duration(cfg.ReaperIntervalSec)*time.Second, logger)
	go reaper.Start(ctx)

	go func() {
		if err := pool.Run(ctx); err != nil {
			logger.Error("worker pool", "error", err)
		}
	}()

	metricsSrv := metrics.NewServer(":" + cfg.MetricsPort)
	go func() {
		logger.Info("metrics server started", "port", cfg.MetricsPort)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", "error", err)
		}
	}()

	<-ctx.Done()
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown", "error", err)
	}

	logger.Info("worker shut down")
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
