package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newListCmd(cctx *cliContext) *cobra.Command {
	var state string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs by state",
		RunE: func(cmd *cobra.Command, args []string) error {
			sched, err := cctx.schedulerFor(cmd)
			if err != nil {
				return err
			}

			jobs, err := sched.ListJobs(cmd.Context(), state)
			if err != nil {
				return err
			}
			if len(jobs) == 0 {
				fmt.Println("(no jobs)")
				return nil
			}
			for _, j := range jobs {
				fmt.Printf("%-20s %-10s attempts=%d/%d next_run_at=%s  %s\n",
					j.ID, j.State, j.Attempts, j.MaxRetries, j.NextRunAt.Format("2006-01-02T15:04:05Z"), j.Command)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&state, "state", "pending", `filter jobs by state (pending, processing, completed, any)`)
	return cmd
}
