package cli

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	migrate "github.com/golang-migrate/migrate/v4"
	"github.com/spf13/cobra"

	"github.com/noah-isme/backend-pos/internal/db"
)

func databaseURLFlag(cmd *cobra.Command, target *string) {
	cmd.Flags().StringVar(target, "database-url", os.Getenv("DATABASE_URL"), "Postgres connection string (default $DATABASE_URL)")
}

func newMigrateCmd() *cobra.Command {
	var databaseURL string
	cmd := &cobra.Command{
		Use:       "migrate <up|down|version|force N>",
		Short:     "Apply or inspect the embedded schema migrations",
		Args:      cobra.RangeArgs(1, 2),
		ValidArgs: []string{"up", "down", "version", "force"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if databaseURL == "" {
				return errors.New("database url is required")
			}
			m, err := db.NewMigrator(databaseURL)
			if err != nil {
				return err
			}
			defer m.Close()

			switch args[0] {
			case "up":
				err = m.Up()
			case "down":
				err = m.Steps(-1)
			case "force":
				if len(args) != 2 {
					return errors.New("force needs a version")
				}
				v, convErr := strconv.Atoi(args[1])
				if convErr != nil {
					return fmt.Errorf("version: %w", convErr)
				}
				err = m.Force(v)
			case "version":
				v, dirty, verr := m.Version()
				if errors.Is(verr, migrate.ErrNilVersion) {
					fmt.Fprintln(cmd.OutOrStdout(), "no migrations applied")
					return nil
				}
				if verr != nil {
					return verr
				}
				fmt.Fprintf(cmd.OutOrStdout(), "version %d dirty=%t\n", v, dirty)
				return nil
			default:
				return fmt.Errorf("unknown migrate action %q", args[0])
			}
			if errors.Is(err, migrate.ErrNoChange) {
				fmt.Fprintln(cmd.OutOrStdout(), "no change")
				return nil
			}
			return err
		},
	}
	databaseURLFlag(cmd, &databaseURL)
	return cmd
}
