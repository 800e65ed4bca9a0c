package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/noah-isme/backend-pos/internal/cart"
)

// quoteFile is the input of `posctl quote`. Lines use the persisted order
// shape, so an exported order can be re-priced as-is.
type quoteFile struct {
	VATRate *decimal.Decimal     `json:"vatRate"`
	Lines   []cart.PersistedLine `json:"lines"`
}

func newQuoteCmd() *cobra.Command {
	var vatRate string
	cmd := &cobra.Command{
		Use:   "quote <order.json|->",
		Short: "Price an order file and print lines and totals",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			var override *decimal.Decimal
			if vatRate != "" {
				rate, err := decimal.NewFromString(vatRate)
				if err != nil {
					return fmt.Errorf("--vat-rate: %w", err)
				}
				override = &rate
			}
			snap, err := quote(in, override)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(snap)
		},
	}
	cmd.Flags().StringVar(&vatRate, "vat-rate", "", "VAT percentage, overrides the file (default 15)")
	return cmd
}

func quote(r io.Reader, vatRate *decimal.Decimal) (cart.Snapshot, error) {
	var in quoteFile
	if err := json.NewDecoder(r).Decode(&in); err != nil {
		return cart.Snapshot{}, fmt.Errorf("decode order: %w", err)
	}
	rate := decimal.NewFromInt(15)
	switch {
	case vatRate != nil:
		rate = *vatRate
	case in.VATRate != nil:
		rate = *in.VATRate
	}
	c := cart.New(rate)
	c.Hydrate(in.Lines)
	return c.Snapshot(), nil
}
