package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newConfigCmd(cctx *cliContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management (retry counts, backoff base, etc.)",
	}
	cmd.AddCommand(newConfigGetCmd(cctx), newConfigSetCmd(cctx))
	return cmd
}

func newConfigGetCmd(cctx *cliContext) *cobra.Command {
	return &cobra.Command{
		Use:   "get key",
		Short: "Get a configuration key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sched, err := cctx.schedulerFor(cmd)
			if err != nil {
				return err
			}
			value, ok, err := sched.ConfigGet(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !ok {
				fmt.Println("(null)")
				return nil
			}
			fmt.Println(value)
			return nil
		},
	}
}

func newConfigSetCmd(cctx *cliContext) *cobra.Command {
	return &cobra.Command{
		Use:   "set key value",
		Short: "Set a configuration key",
		Long: `Set a configuration key.

Examples:
  queuectl config set max_retries 3
  queuectl config set backoff_base 2`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sched, err := cctx.schedulerFor(cmd)
			if err != nil {
				return err
			}
			if err := sched.ConfigSet(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Printf("Config set: %s = %s\n", args[0], args[1])
			return nil
		},
	}
}
