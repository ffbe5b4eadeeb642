package main

import (
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"

	ctxlog "github.com/queuectl/queuectl/internal/log"
)

func newCLILogger() *slog.Logger {
	inner := tint.NewHandler(os.Stderr, &tint.Options{
		Level:      slog.LevelInfo,
		TimeFormat: time.Kitchen,
	})
	return slog.New(ctxlog.NewContextHandler(inner))
}

func workerReaperInterval(cctx *cliContext) time.Duration {
	return time.Duration(cctx.cfg.ReaperIntervalSec) * time.Second
}
