package cmd

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/aristath/tradelog/internal/di"
	"github.com/aristath/tradelog/internal/domain"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var cashFlowNote string

var cashFlowCmd = &cobra.Command{
	Use:     "cash",
	Aliases: []string{"cashflow"},
	Short:   "Record deposits and withdrawals",
}

var depositCmd = &cobra.Command{
	Use:   "deposit <amount>",
	Short: "Record a deposit into the account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return addCashFlow(cmd, domain.CashFlowDeposit, args[0])
	},
}

var withdrawCmd = &cobra.Command{
	Use:   "withdraw <amount>",
	Short: "Record a withdrawal from the account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return addCashFlow(cmd, domain.CashFlowWithdrawal, args[0])
	},
}

var cashDeleteCmd = &cobra.Command{
	Use:   "delete <cash-flow-id>",
	Short: "Remove a recorded cash flow",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withContainer(func(c *di.Container, _ *di.JobInstances, _ zerolog.Logger) error {
			return c.CashFlowLedger.Delete(args[0])
		})
	},
}

var cashListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cash flows with the running balance",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withContainer(func(c *di.Container, _ *di.JobInstances, _ zerolog.Logger) error {
			start := c.Settings.Get().StartingAccountSize
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tDATE\tTYPE\tAMOUNT\tBALANCE")
			for _, p := range c.CashFlowLedger.BalanceHistory(start) {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					p.CashFlowID, p.Timestamp.Format(dateLayout), p.Type, formatAmount(p.Amount), formatAmount(p.Balance))
			}
			return w.Flush()
		})
	},
}

func init() {
	rootCmd.AddCommand(cashFlowCmd)
	cashFlowCmd.AddCommand(depositCmd, withdrawCmd, cashDeleteCmd, cashListCmd)
	for _, c := range []*cobra.Command{depositCmd, withdrawCmd} {
		c.Flags().StringVar(&cashFlowNote, "note", "", "free-form note")
	}
}

func addCashFlow(cmd *cobra.Command, flowType domain.CashFlowType, raw string) error {
	amount, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("%w: invalid amount %q", domain.ErrInvalidInput, raw)
	}
	return withContainer(func(c *di.Container, _ *di.JobInstances, _ zerolog.Logger) error {
		tx, err := c.CashFlowLedger.Add(domain.CashFlowTransaction{Type: flowType, Amount: amount, Note: cashFlowNote})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s, account size %s\n",
			tx.ID, tx.Type, formatAmount(tx.Amount), formatAmount(c.Valuation.CurrentSize()))
		return nil
	})
}
