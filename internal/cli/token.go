package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/noah-isme/backend-pos/internal/auth"
)

func newTokenCmd() *cobra.Command {
	var (
		secret, issuer, audience, role string
		ttl                            time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token <staff-id>",
		Short: "Issue a staff access token for a terminal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := auth.NewService(auth.ServiceConfig{
				Secret:    secret,
				Issuer:    issuer,
				Audience:  audience,
				AccessTTL: ttl,
			})
			if err != nil {
				return err
			}
			token, expires, err := svc.IssueStaffToken(args[0], role)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", expires.Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().StringVar(&secret, "secret", os.Getenv("JWT_SECRET"), "HS256 signing secret (default $JWT_SECRET)")
	cmd.Flags().StringVar(&issuer, "issuer", envOr("JWT_ISSUER", "backend-pos"), "token issuer")
	cmd.Flags().StringVar(&audience, "audience", envOr("JWT_AUDIENCE", "pos-terminal"), "token audience")
	cmd.Flags().StringVar(&role, "role", auth.RoleCashier, "staff role: cashier or manager")
	cmd.Flags().DurationVar(&ttl, "ttl", 12*time.Hour, "token lifetime")
	return cmd
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
