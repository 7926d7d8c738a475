package cmd

import (
	"context"
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/aristath/tradelog/internal/di"
	"github.com/aristath/tradelog/internal/domain"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var historyLimit int

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Account settings and size history",
}

var setSizeCmd = &cobra.Command{
	Use:   "set-size <amount>",
	Short: "Set the starting account size",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		size, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return fmt.Errorf("%w: invalid amount %q", domain.ErrInvalidInput, args[0])
		}
		return withContainer(func(c *di.Container, _ *di.JobInstances, _ zerolog.Logger) error {
			if err := c.Settings.SetStartingAccountSize(size); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "starting size %s, account size %s\n",
				formatAmount(size), formatAmount(c.Valuation.CurrentSize()))
			return nil
		})
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recorded account size snapshots, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withContainer(func(c *di.Container, _ *di.JobInstances, _ zerolog.Logger) error {
			snaps, err := c.SnapshotRepo.List(context.Background(), historyLimit)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TAKEN AT\tSIZE\tREALIZED\tNET CASH\tOPEN")
			for _, s := range snaps {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\n",
					s.TakenAt.Format("2006-01-02 15:04"), formatAmount(s.CurrentSize),
					formatAmount(s.RealizedPnL), formatAmount(s.NetCashFlow), s.OpenTrades)
			}
			return w.Flush()
		})
	},
}

func init() {
	rootCmd.AddCommand(accountCmd)
	accountCmd.AddCommand(setSizeCmd, historyCmd)
	historyCmd.Flags().IntVar(&historyLimit, "limit", 30, "maximum number of snapshots")
}

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Write a verified database backup now",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withContainer(func(c *di.Container, jobs *di.JobInstances, _ zerolog.Logger) error {
			if err := c.Scheduler.RunNow(jobs.Backup); err != nil {
				return err
			}
			backups, err := jobs.Backup.Backups()
			if err != nil {
				return err
			}
			if len(backups) > 0 {
				fmt.Fprintln(cmd.OutOrStdout(), backups[len(backups)-1])
			}
			return nil
		})
	},
}

func init() {
	accountCmd.AddCommand(backupCmd)
}
