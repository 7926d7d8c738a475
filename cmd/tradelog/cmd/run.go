package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/aristath/tradelog/internal/di"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the background scheduler until interrupted",
	Long: `Run starts the scheduler (account snapshots and WAL checkpoints)
and blocks until SIGINT or SIGTERM. Pending writes are flushed on exit.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withContainer(func(c *di.Container, jobs *di.JobInstances, log zerolog.Logger) error {
			// Record one snapshot at startup so the history never starts empty
			if err := c.Scheduler.RunNow(jobs.AccountSnapshot); err != nil {
				log.Warn().Err(err).Msg("Initial account snapshot failed")
			}

			c.Scheduler.Start()
			log.Info().Strs("jobs", c.Scheduler.Jobs()).Msg("Scheduler started")

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			<-quit

			log.Info().Msg("Shutting down")
			c.Scheduler.Stop()
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}
