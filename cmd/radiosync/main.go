package main

import (
	"os"
	"time"

	"github.com/azimuth-networks/radiosync/internal/config"
	"github.com/azimuth-networks/radiosync/internal/env"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "radiosync",
	Short:         "Operate a fleet of network radios through the vendor cloud API",
	Long:          `radiosync drives radio fleet operations (status, configuration, speed tests, reclaim, refurbishment, deployment) against the vendor cloud API, sequentially or with a bounded worker pool across many serial numbers.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var (
	rootVerbose       bool
	rootParallel      bool
	rootMaxWorkers    int
	rootCheckInterval time.Duration
	rootMaxAttempts   int
)

func init() {
	output := zerolog.ConsoleWriter{Out: os.Stderr}
	log.Logger = zerolog.New(output).With().Timestamp().Logger()
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	rootCmd.PersistentFlags().BoolVar(&rootVerbose, "verbose", false, "show detailed debug information")
	rootCmd.PersistentFlags().BoolVar(&rootParallel, "parallel", config.Bool("PARALLEL", false), "process radios with a bounded worker pool")
	rootCmd.PersistentFlags().IntVar(&rootMaxWorkers, "max-workers", config.Int("MAX_WORKERS", 5), "maximum concurrent workers in parallel mode")
	rootCmd.PersistentFlags().DurationVar(&rootCheckInterval, "check-interval", config.Duration("CHECK_INTERVAL", 20*time.Second), "delay between status/speed test polls")
	rootCmd.PersistentFlags().IntVar(&rootMaxAttempts, "max-attempts", config.Int("MAX_ATTEMPTS", 30), "maximum polling attempts")

	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if rootVerbose {
			zerolog.SetGlobalLevel(zerolog.DebugLevel)
		}
	}

	rootCmd.AddCommand(
		newStatusCmd(),
		newDefaultCmd(),
		newSpeedtestCmd(),
		newDeleteCmd(),
		newReclaimCmd(),
		newRefurbCmd(),
		newDeployCmd(),
		newUpgradeCmd(),
	)
	_ = env.Ensure()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("radiosync command failed")
	}
}
