package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/aristath/tradelog/internal/di"
	"github.com/aristath/tradelog/internal/modules/reporting"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var summaryJSON bool

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Print account size, realized P&L and open risk",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withContainer(func(c *di.Container, _ *di.JobInstances, _ zerolog.Logger) error {
			report := reporting.Build(c.TradeLedger.List(), c.Valuation.Valuation())
			if summaryJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			return printReport(cmd.OutOrStdout(), report)
		})
	},
}

func init() {
	rootCmd.AddCommand(summaryCmd)
	summaryCmd.Flags().BoolVar(&summaryJSON, "json", false, "print the report as JSON")
}

func printReport(out io.Writer, r reporting.Report) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Starting size\t%.2f\n", r.StartingSize)
	fmt.Fprintf(w, "Realized P&L\t%.2f\n", r.RealizedPnL)
	fmt.Fprintf(w, "Net cash flow\t%.2f\n", r.NetCashFlow)
	fmt.Fprintf(w, "Current size\t%.2f\n", r.CurrentSize)
	if r.Fallback {
		fmt.Fprintln(w, "Note\tcash flows unavailable, size excludes them")
	}
	fmt.Fprintf(w, "Trades\t%d open, %d trimmed, %d closed\n", r.OpenCount, r.TrimmedCount, r.ClosedCount)
	fmt.Fprintf(w, "Net risk\t%.2f (%.2f%%)\n", r.TotalNetRisk, r.NetRiskPercent())
	fmt.Fprintf(w, "Win rate\t%.2f%%\n", r.WinRate*100)
	fmt.Fprintf(w, "R per trim\t%.2f mean, %.2f stddev over %d\n", r.MeanR, r.StdDevR, r.TrimEvents)

	if len(r.Positions) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "ID\tTICKER\tSTATUS\tREMAINING\tGROSS RISK\tNET RISK\tREALIZED")
		for _, p := range r.Positions {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%.2f\t%.2f\t%.2f\n",
				p.TradeID, p.Ticker, p.Status, p.Remaining, p.GrossRisk, p.NetRisk, p.Realized)
		}
	}
	return w.Flush()
}
