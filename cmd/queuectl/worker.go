package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/queuectl/queuectl/internal/executor"
	"github.com/queuectl/queuectl/internal/workerpool"
)

func newWorkerCmd(cctx *cliContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Manage workers",
	}
	cmd.AddCommand(newWorkerStartCmd(cctx), newWorkerStopCmd(cctx))
	return cmd
}

func newWorkerStartCmd(cctx *cliContext) *cobra.Command {
	var count int

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start workers (goroutines in this process). Ctrl+C to stop, or use `queuectl worker stop`",
		RunE: func(cmd *cobra.Command, args []string) error {
			sched, err := cctx.schedulerFor(cmd)
			if err != nil {
				return err
			}

			if err := sched.StartPool(cmd.Context()); err != nil {
				return fmt.Errorf("clear stop flag: %w", err)
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			logger := newCLILogger()
			executors := make([]*executor.Executor, count)
			for i := range executors {
				executors[i] = executor.New(sched, cctx.cfg.DataDir, logger)
			}
			pool := workerpool.New(executors, logger)

			reaper := workerpool.NewReaper(sched, workerReaperInterval(cctx), logger)
			go reaper.Start(ctx)

			return pool.Run(ctx)
		},
	}

	cmd.Flags().IntVar(&count, "count", 1, "number of workers")
	return cmd
}

func newWorkerStopCmd(cctx *cliContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Request graceful stop of workers",
		RunE: func(cmd *cobra.Command, args []string) error {
			sched, err := cctx.schedulerFor(cmd)
			if err != nil {
				return err
			}
			if err := sched.StopPool(cmd.Context()); err != nil {
				return err
			}
			fmt.Println("Stop signal sent. Workers will exit after the current job.")
			return nil
		},
	}
}
