package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/queuectl/queuectl/internal/domain"
)

func newStatusCmd(cctx *cliContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show summary of all job states & active worker stop-flag",
		RunE: func(cmd *cobra.Command, args []string) error {
			sched, err := cctx.schedulerFor(cmd)
			if err != nil {
				return err
			}

			snap, err := sched.SnapshotStatus(cmd.Context())
			if err != nil {
				return err
			}

			for _, state := range []domain.State{domain.StatePending, domain.StateProcessing, domain.StateCompleted} {
				fmt.Printf("%-12s %d\n", state, snap.Counts[state])
			}
			fmt.Printf("stop flag:   %v\n", snap.StopFlag)
			return nil
		},
	}
}
