package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/queuectl/queuectl/config"
	"github.com/queuectl/queuectl/internal/infrastructure/sqlitestore"
	"github.com/queuectl/queuectl/internal/scheduler"
)

// cliContext lazily opens the store on first use so that `queuectl --help`
// doesn't need a working data directory.
type cliContext struct {
	cfg   *config.Config
	store *sqlitestore.Store
	sched *scheduler.Scheduler
}

func (c *cliContext) schedulerFor(cmd *cobra.Command) (*scheduler.Scheduler, error) {
	if c.sched != nil {
		return c.sched, nil
	}
	db, err := sqlitestore.Open(cmd.Context(), c.cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	c.store = sqlitestore.New(db)
	c.sched = scheduler.New(c.store)
	return c.sched, nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	cctx := &cliContext{cfg: cfg}

	root := &cobra.Command{
		Use:   "queuectl",
		Short: "queuectl — minimal production-grade background job queue (CLI)",
	}

	root.AddCommand(
		newEnqueueCmd(cctx),
		newListCmd(cctx),
		newStatusCmd(cctx),
		newWorkerCmd(cctx),
		newDLQCmd(cctx),
		newConfigCmd(cctx),
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
