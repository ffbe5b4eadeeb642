package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newDLQCmd(cctx *cliContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dlq",
		Short: "Dead Letter Queue operations",
	}
	cmd.AddCommand(newDLQListCmd(cctx), newDLQRetryCmd(cctx))
	return cmd
}

func newDLQListCmd(cctx *cliContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List DLQ jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			sched, err := cctx.schedulerFor(cmd)
			if err != nil {
				return err
			}

			entries, err := sched.ListDLQ(cmd.Context())
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Println("(empty)")
				return nil
			}
			for _, e := range entries {
				fmt.Printf("%-20s %s  %s\n", e.ID, e.Reason, e.Command)
			}
			return nil
		},
	}
}

func newDLQRetryCmd(cctx *cliContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry job-id",
		Short: "Retry a DLQ job by moving it back to the main queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sched, err := cctx.schedulerFor(cmd)
			if err != nil {
				return err
			}
			if err := sched.RetryFromDLQ(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Printf("Job %s requeued\n", args[0])
			return nil
		},
	}
}
