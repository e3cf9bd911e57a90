package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"clipforge/internal/logging"
	"clipforge/internal/pipeline"
	"clipforge/internal/storage"
)

func newSweepCommand(ctx *commandContext) *cobra.Command {
	var skipRetention bool

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Fail stuck jobs and expire old assets now",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := ctx.openLedger()
			if err != nil {
				return err
			}
			defer store.Close()

			logger := logging.NewNop()
			sweeper := pipeline.NewSweeper(store, cfg, logger)
			swept, err := sweeper.SweepOnce(cmd.Context(), time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Failed %d stuck jobs\n", swept)

			if skipRetention {
				return nil
			}
			assets, err := ctx.openStorage()
			if err != nil {
				return err
			}
			retention := storage.NewRetention(assets, cfg.Storage, logger)
			removed, err := retention.Sweep(cmd.Context(), time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d expired assets\n", removed)
			return nil
		},
	}

	cmd.Flags().BoolVar(&skipRetention, "skip-retention", false, "Only sweep stuck jobs, leave stored assets alone")
	return cmd
}
