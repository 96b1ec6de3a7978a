package main

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const (
	appName = "ctrader"
	version = "v1.0.0"
)

var (
	flagConfig  string
	flagOutDir  string
	flagVerbose bool
)

func main() {
	// .env is optional, real env always wins.
	_ = godotenv.Load()

	zerolog.TimeFieldFormat = time.RFC3339
	if term.IsTerminal(int(os.Stderr.Fd())) {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}

	rootCmd := &cobra.Command{
		Use:     appName,
		Short:   "Pool-based portfolio rebalancer and backtester",
		Version: version,
		Long: `ctrader manages independent crypto pools: it computes target weights
through trend, inverse-volatility, momentum and cap overlays, diffs them
against holdings, and executes the resulting plan on paper or live.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			zerolog.SetGlobalLevel(zerolog.InfoLevel)
			if flagVerbose {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "pools.yaml", "Path to pools configuration")
	rootCmd.PersistentFlags().StringVarP(&flagOutDir, "out", "o", "out", "Output directory for CSVs and run log")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(
		newPlanCmd(),
		newRunCmd(),
		newBacktestCmd(),
		newReportCmd(),
		newMonitorCmd(),
		newWatchCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}
