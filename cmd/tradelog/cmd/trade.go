package cmd

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/aristath/tradelog/internal/di"
	"github.com/aristath/tradelog/internal/domain"
	"github.com/aristath/tradelog/internal/modules/trading"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

const dateLayout = "2006-01-02"

var tradeCmd = &cobra.Command{
	Use:   "trade",
	Short: "Open, trim, close and list positions",
	Long: `Manage positions in the trade ledger.

Examples:
  tradelog trade open AAPL --entry 50 --stop 48 --target 56 --shares 100
  tradelog trade trim <trade-id> --price 55 --shares 50
  tradelog trade trim <trade-id> --price 55 --percent 25
  tradelog trade close <trade-id> --price 56
  tradelog trade list`,
}

var (
	openEntry      float64
	openStop       float64
	openTarget     float64
	openShares     int
	openDate       string
	openOption     bool
	openStrike     float64
	openExpiration string
	openRight      string

	exitPrice   float64
	exitShares  int
	exitPercent float64
	exitDate    string
)

var tradeOpenCmd = &cobra.Command{
	Use:   "open <ticker>",
	Short: "Open a new position",
	Args:  cobra.ExactArgs(1),
	RunE:  runTradeOpen,
}

var tradeTrimCmd = &cobra.Command{
	Use:   "trim <trade-id>",
	Short: "Exit part of a position by share count or percentage",
	Args:  cobra.ExactArgs(1),
	RunE:  runTradeTrim,
}

var tradeCloseCmd = &cobra.Command{
	Use:   "close <trade-id>",
	Short: "Exit all remaining shares of a position",
	Args:  cobra.ExactArgs(1),
	RunE:  runTradeClose,
}

var tradeDeleteCmd = &cobra.Command{
	Use:   "delete <trade-id>",
	Short: "Remove a trade and its realized P&L from the ledger",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withContainer(func(c *di.Container, _ *di.JobInstances, _ zerolog.Logger) error {
			return c.TradeService.Delete(args[0])
		})
	},
}

var (
	editStop         float64
	editOriginalStop float64
	editEntry        float64
	editTarget       float64
	editClearTarget  bool
)

var tradeEditCmd = &cobra.Command{
	Use:   "edit <trade-id>",
	Short: "Move the stop or correct entry terms; past exits are recomputed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		edit := positionEdit(cmd)
		return withContainer(func(c *di.Container, _ *di.JobInstances, _ zerolog.Logger) error {
			trade, err := c.TradeService.EditPosition(args[0], edit)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s: entry %.2f, original stop %.2f, stop %.2f, realized %.2f\n",
				trade.ID, trade.Ticker, trade.Entry, trade.OriginalStop, trade.CurrentStop, trade.TotalRealizedPnL)
			return nil
		})
	},
}

var tradeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every trade in the ledger",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withContainer(func(c *di.Container, _ *di.JobInstances, _ zerolog.Logger) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTICKER\tTYPE\tSTATUS\tENTRY\tSTOP\tREMAINING\tREALIZED\tTRIMS")
			for _, t := range c.TradeLedger.List() {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.2f\t%.2f\t%d/%d\t%.2f\t%d\n",
					t.ID, t.Ticker, t.AssetType, t.Status, t.Entry, t.CurrentStop,
					t.RemainingShares, t.OriginalShares, t.TotalRealizedPnL, len(t.TrimHistory))
			}
			return w.Flush()
		})
	},
}

func init() {
	rootCmd.AddCommand(tradeCmd)
	tradeCmd.AddCommand(tradeOpenCmd, tradeTrimCmd, tradeCloseCmd, tradeDeleteCmd, tradeEditCmd, tradeListCmd)

	f := tradeOpenCmd.Flags()
	f.Float64Var(&openEntry, "entry", 0, "entry price")
	f.Float64Var(&openStop, "stop", 0, "initial stop price")
	f.Float64Var(&openTarget, "target", 0, "target price (optional)")
	f.IntVar(&openShares, "shares", 0, "shares or contracts")
	f.StringVar(&openDate, "date", "", "entry date YYYY-MM-DD (default today)")
	f.BoolVar(&openOption, "option", false, "position holds option contracts")
	f.Float64Var(&openStrike, "strike", 0, "option strike")
	f.StringVar(&openExpiration, "expiration", "", "option expiration YYYY-MM-DD")
	f.StringVar(&openRight, "right", string(domain.OptionTypeCall), "option type (call or put)")
	_ = tradeOpenCmd.MarkFlagRequired("entry")
	_ = tradeOpenCmd.MarkFlagRequired("stop")
	_ = tradeOpenCmd.MarkFlagRequired("shares")

	for _, c := range []*cobra.Command{tradeTrimCmd, tradeCloseCmd} {
		c.Flags().Float64Var(&exitPrice, "price", 0, "exit price")
		c.Flags().StringVar(&exitDate, "date", "", "exit date YYYY-MM-DD (default now)")
		_ = c.MarkFlagRequired("price")
	}
	ef := tradeEditCmd.Flags()
	ef.Float64Var(&editStop, "stop", 0, "new current stop")
	ef.Float64Var(&editOriginalStop, "original-stop", 0, "corrected original stop (risk baseline)")
	ef.Float64Var(&editEntry, "entry", 0, "corrected entry price")
	ef.Float64Var(&editTarget, "target", 0, "new target price")
	ef.BoolVar(&editClearTarget, "clear-target", false, "remove the target")
	tradeEditCmd.MarkFlagsMutuallyExclusive("target", "clear-target")
	tradeEditCmd.MarkFlagsOneRequired("stop", "original-stop", "entry", "target", "clear-target")

	tradeTrimCmd.Flags().IntVar(&exitShares, "shares", 0, "shares to exit")
	tradeTrimCmd.Flags().Float64Var(&exitPercent, "percent", 0, "percentage of original shares to exit")
	tradeTrimCmd.MarkFlagsMutuallyExclusive("shares", "percent")
	tradeTrimCmd.MarkFlagsOneRequired("shares", "percent")
}

// positionEdit builds an edit from the flags the user actually set
func positionEdit(cmd *cobra.Command) trading.PositionEdit {
	var edit trading.PositionEdit
	flags := cmd.Flags()
	if flags.Changed("stop") {
		stop := editStop
		edit.CurrentStop = &stop
	}
	if flags.Changed("original-stop") {
		stop := editOriginalStop
		edit.OriginalStop = &stop
	}
	if flags.Changed("entry") {
		entry := editEntry
		edit.Entry = &entry
	}
	if flags.Changed("target") {
		target := editTarget
		edit.Target = &target
	}
	edit.ClearTarget = editClearTarget
	return edit
}

func runTradeOpen(cmd *cobra.Command, args []string) error {
	trade := domain.Trade{
		Ticker:       args[0],
		AssetType:    domain.AssetTypeStock,
		Entry:        openEntry,
		OriginalStop: openStop,
		CurrentStop:  openStop,
		Shares:       openShares,
	}
	if cmd.Flags().Changed("target") {
		target := openTarget
		trade.Target = &target
	}

	date, err := parseDate(openDate)
	if err != nil {
		return err
	}
	trade.EntryDate = date

	if openOption {
		trade.AssetType = domain.AssetTypeOption
		strike := openStrike
		trade.Strike = &strike
		trade.OptionType = domain.OptionType(openRight)
		expiration, err := parseDate(openExpiration)
		if err != nil {
			return err
		}
		if !expiration.IsZero() {
			trade.ExpirationDate = &expiration
		}
	}

	return withContainer(func(c *di.Container, _ *di.JobInstances, _ zerolog.Logger) error {
		opened, err := c.TradeService.Open(trade)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), opened.ID)
		return nil
	})
}

func runTradeTrim(cmd *cobra.Command, args []string) error {
	date, err := parseDate(exitDate)
	if err != nil {
		return err
	}
	return withContainer(func(c *di.Container, _ *di.JobInstances, _ zerolog.Logger) error {
		var trade domain.Trade
		if cmd.Flags().Changed("percent") {
			trade, err = c.TradeService.TrimPercent(args[0], exitPrice, exitPercent, date)
		} else {
			trade, err = c.TradeService.Trim(args[0], exitPrice, exitShares, date)
		}
		if err != nil {
			return err
		}
		printExit(cmd.OutOrStdout(), trade)
		return nil
	})
}

func runTradeClose(cmd *cobra.Command, args []string) error {
	date, err := parseDate(exitDate)
	if err != nil {
		return err
	}
	return withContainer(func(c *di.Container, _ *di.JobInstances, _ zerolog.Logger) error {
		trade, err := c.TradeService.CloseAll(args[0], exitPrice, date)
		if err != nil {
			return err
		}
		printExit(cmd.OutOrStdout(), trade)
		return nil
	})
}

func printExit(out io.Writer, t domain.Trade) {
	last := t.TrimHistory[len(t.TrimHistory)-1]
	fmt.Fprintf(out, "%s %s: exited %d @ %.2f, pnl %.2f (%.2fR), %d remaining, status %s\n",
		t.ID, t.Ticker, last.Shares, last.ExitPrice, last.PnL, last.RMultiple, t.RemainingShares, t.Status)
}

// parseDate accepts YYYY-MM-DD or an empty string, which yields the zero time
func parseDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid date %q", domain.ErrInvalidInput, value)
	}
	return t, nil
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
