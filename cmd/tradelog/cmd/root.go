// Package cmd holds the tradelog cobra commands.
package cmd

import (
	"fmt"
	"os"

	"github.com/aristath/tradelog/internal/config"
	"github.com/aristath/tradelog/internal/di"
	"github.com/aristath/tradelog/pkg/logger"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "tradelog",
	Short: "Position accounting and account valuation",
	Long: `Tradelog records stock and option positions, partial exits (trims),
deposits and withdrawals, and derives the realized P&L and current
account size from them.

Configuration is read from the environment (and a .env file):
  TRADELOG_DATA_DIR, LOG_LEVEL, STARTING_ACCOUNT_SIZE, PERSIST_DEBOUNCE_MS,
  STORE_CODEC, CACHE_FINGERPRINT, SNAPSHOT_SCHEDULE`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// withContainer loads configuration, wires the container, runs fn and
// flushes pending writes before returning.
func withContainer(fn func(c *di.Container, jobs *di.JobInstances, log zerolog.Logger) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.LogPretty,
		Output: os.Stderr,
	})
	logger.SetGlobalLogger(log)

	container, jobs, err := di.Wire(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to wire dependencies: %w", err)
	}
	defer func() {
		if cerr := container.Close(); cerr != nil {
			log.Error().Err(cerr).Msg("Failed to close container")
		}
	}()

	return fn(container, jobs, log)
}
