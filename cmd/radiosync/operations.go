package main

import (
	"context"
	"fmt"

	"github.com/azimuth-networks/radiosync"
	"github.com/azimuth-networks/radiosync/internal/config"
	"github.com/azimuth-networks/radiosync/internal/tarana"
	"github.com/spf13/cobra"
)

func buildEngine(numTests int) (*radiosync.Engine, error) {
	client, err := tarana.NewClientFromEnv()
	if err != nil {
		return nil, err
	}
	settings := config.Load()
	return radiosync.NewEngine(radiosync.EngineConfig{
		Client:        client,
		CPIID:         settings.CPIID,
		CheckInterval: rootCheckInterval,
		MaxAttempts:   rootMaxAttempts,
		NumTests:      numTests,
	})
}

// runBatchOp executes one engine operation over the given serial numbers and
// reports the summary; the returned error makes the process exit non-zero
// when any device failed.
func runBatchOp(cmd *cobra.Command, op radiosync.Operation, serials []string, numTests int) error {
	engine, err := buildEngine(numTests)
	if err != nil {
		return err
	}
	summary := radiosync.RunBatch(cmd.Context(), batchConfig(), serials, func(ctx context.Context, serial string) radiosync.OperationResult {
		return engine.Execute(ctx, op, serial)
	})
	printSummary(cmd, string(op.Kind), summary)
	if summary.HasFailures() {
		return fmt.Errorf("%d of %d radios failed", len(summary.Failed), summary.Total)
	}
	return nil
}

func batchConfig() radiosync.BatchConfig {
	return radiosync.BatchConfig{
		Parallel:   rootParallel,
		MaxWorkers: rootMaxWorkers,
	}
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <serial>...",
		Short: "Retrieve status information for radios",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatchOp(cmd, radiosync.Operation{Kind: radiosync.OpStatus}, args, 0)
		},
	}
}

func newDefaultCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "default <serial>...",
		Short: "Apply the default configuration to radios",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatchOp(cmd, radiosync.Operation{Kind: radiosync.OpDefaultConfig}, args, 0)
		},
	}
}

func newSpeedtestCmd() *cobra.Command {
	var flagNumTests int
	cmd := &cobra.Command{
		Use:   "speedtest <serial>...",
		Short: "Run speed tests on radios and report averaged figures",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatchOp(cmd, radiosync.Operation{Kind: radiosync.OpSpeedTest}, args, flagNumTests)
		},
	}
	cmd.Flags().IntVar(&flagNumTests, "num-tests", config.Int("NUM_TESTS", 3), "number of completed speed tests to average")
	return cmd
}

func newDeleteCmd() *cobra.Command {
	var flagForce bool
	cmd := &cobra.Command{
		Use:   "delete <serial>...",
		Short: "Delete radio records from the cloud",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatchOp(cmd, radiosync.Operation{Kind: radiosync.OpDelete, Force: flagForce}, args, 0)
		},
	}
	cmd.Flags().BoolVar(&flagForce, "force", false, "reset configuration before deletion (delete proceeds regardless)")
	return cmd
}

func newReclaimCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reclaim <serial>...",
		Short: "Factory-reset radios back to a reclaimable state",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatchOp(cmd, radiosync.Operation{Kind: radiosync.OpReclaim}, args, 0)
		},
	}
}

func newUpgradeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "upgrade <serial>...",
		Short: "Upgrade radios to the latest stable firmware",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatchOp(cmd, radiosync.Operation{Kind: radiosync.OpUpgrade}, args, 0)
		},
	}
}
