package main

import (
	"fmt"
	"time"

	"github.com/azimuth-networks/radiosync"
	"github.com/azimuth-networks/radiosync/internal/config"
	"github.com/spf13/cobra"
)

func newRefurbCmd() *cobra.Command {
	var (
		flagStepAttempts    int
		flagStepDelay       time.Duration
		flagVerifySpeedtest bool
	)
	cmd := &cobra.Command{
		Use:   "refurb <serial>...",
		Short: "Run the full refurbishment workflow on radios",
		Long:  `Drives each radio through reclaim, re-configuration, and verification. Every step retries up to --step-attempts times before the workflow is marked failed.`,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := buildEngine(1)
			if err != nil {
				return err
			}
			refurbisher, err := radiosync.NewRefurbisher(radiosync.WorkflowConfig{
				Engine:          engine,
				StepAttempts:    flagStepAttempts,
				StepDelay:       flagStepDelay,
				VerifySpeedTest: flagVerifySpeedtest,
			})
			if err != nil {
				return err
			}
			summary := radiosync.RunBatch(cmd.Context(), batchConfig(), args, refurbisher.DeviceFunc())
			printSummary(cmd, "refurbishment", summary)
			if summary.HasFailures() {
				return fmt.Errorf("%d of %d radios failed refurbishment", len(summary.Failed), summary.Total)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&flagStepAttempts, "step-attempts", config.Int("REFURB_STEP_ATTEMPTS", 3), "retry budget per workflow step")
	cmd.Flags().DurationVar(&flagStepDelay, "step-delay", config.Duration("REFURB_STEP_DELAY", 15*time.Second), "delay between attempts of a workflow step")
	cmd.Flags().BoolVar(&flagVerifySpeedtest, "verify-speedtest", config.Bool("REFURB_VERIFY_SPEEDTEST", false), "require a completed speed test during verification")
	return cmd
}
