// Package cli implements posctl, the operator tool for the order engine.
package cli

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// NewRootCmd builds the posctl command tree. A .env file in the working
// directory is loaded first so flag defaults can read it.
func NewRootCmd() *cobra.Command {
	_ = godotenv.Load()
	root := &cobra.Command{
		Use:           "posctl",
		Short:         "Operator tooling for the restaurant order engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newQuoteCmd(),
		newReconcileCmd(),
		newMigrateCmd(),
		newSeedCmd(),
		newTokenCmd(),
	)
	return root
}
