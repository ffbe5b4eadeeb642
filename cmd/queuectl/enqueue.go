package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

type enqueuePayload struct {
	ID         string `json:"id"`
	Command    string `json:"command"`
	MaxRetries *int   `json:"max_retries"`
	Attempts   int    `json:"attempts"`
	RunAt      string `json:"run_at"`
	Priority   int    `json:"priority"`
}

func newEnqueueCmd(cctx *cliContext) *cobra.Command {
	return &cobra.Command{
		Use:   "enqueue job-json",
		Short: "Add a new job to the queue",
		Long: `Add a new job to the queue.

Example:
  queuectl enqueue '{"id":"job1","command":"echo hello"}'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var payload enqueuePayload
			if err := json.Unmarshal([]byte(args[0]), &payload); err != nil {
				return fmt.Errorf("invalid JSON: %w", err)
			}

			sched, err := cctx.schedulerFor(cmd)
			if err != nil {
				return err
			}

			if err := sched.Enqueue(cmd.Context(), toEnqueueInput(payload)); err != nil {
				return err
			}

			fmt.Printf("Enqueued job: %s\n", payload.ID)
			return nil
		},
	}
}
