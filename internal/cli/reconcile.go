package cli

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/noah-isme/backend-pos/internal/pricing"
)

func newReconcileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile <charged-total> <new-total>",
		Short: "Tell whether an edited order needs an additional payment or a refund",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			previous, err := decimal.NewFromString(args[0])
			if err != nil {
				return fmt.Errorf("charged total: %w", err)
			}
			current, err := decimal.NewFromString(args[1])
			if err != nil {
				return fmt.Errorf("new total: %w", err)
			}
			rec := pricing.Reconcile(previous, current)
			switch rec.Outcome {
			case pricing.OutcomeAdditional:
				fmt.Fprintf(cmd.OutOrStdout(), "collect %s\n", rec.Amount.StringFixed(2))
			case pricing.OutcomeRefund:
				fmt.Fprintf(cmd.OutOrStdout(), "refund %s\n", rec.Amount.StringFixed(2))
			default:
				fmt.Fprintln(cmd.OutOrStdout(), "no action")
			}
			return nil
		},
	}
}
