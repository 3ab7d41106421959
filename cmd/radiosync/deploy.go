package main

import (
	"context"
	"fmt"

	"github.com/azimuth-networks/radiosync"
	"github.com/azimuth-networks/radiosync/internal/config"
	"github.com/azimuth-networks/radiosync/internal/store"
	"github.com/azimuth-networks/radiosync/internal/tarana"
	"github.com/spf13/cobra"
)

func newDeployCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "deploy <serial>...",
		Short: "Configure radios for customer deployment from database records",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings := config.Load()
			// Missing database settings abort the whole invocation before
			// any device call is made.
			if err := settings.ValidateDatabase(); err != nil {
				return err
			}
			deployments, err := store.Open(settings.Database)
			if err != nil {
				return err
			}
			defer deployments.Close()

			client, err := tarana.NewClientFromEnv()
			if err != nil {
				return err
			}
			engine, err := radiosync.NewEngine(radiosync.EngineConfig{
				Client:        client,
				Store:         deployments,
				CPIID:         settings.CPIID,
				CheckInterval: rootCheckInterval,
				MaxAttempts:   rootMaxAttempts,
			})
			if err != nil {
				return err
			}
			op := radiosync.Operation{Kind: radiosync.OpDeploy}
			summary := radiosync.RunBatch(cmd.Context(), batchConfig(), args, func(ctx context.Context, serial string) radiosync.OperationResult {
				return engine.Execute(ctx, op, serial)
			})
			printSummary(cmd, "deployment", summary)
			if summary.HasFailures() {
				return fmt.Errorf("%d of %d radios failed deployment", len(summary.Failed), summary.Total)
			}
			return nil
		},
	}
}
