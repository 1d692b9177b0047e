package cli

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/stateport/internal/core"
	"github.com/JonMunkholm/stateport/internal/web/middleware"
)

func newTokenCmd() *cobra.Command {
	var (
		p      core.Principal
		ttl    time.Duration
		issuer string
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Sign an admin API token",
		Long: `Sign a token for the admin API with AUTH_JWT_SECRET. Intended for scripts
and local testing; the console normally receives tokens from the main
application's login.

Examples:
  stateport token --subject 1 --username root
  curl -H "Authorization: Bearer $(stateport token --subject 1)" \
       localhost:8080/api/admin/export -o backup.xlsx`,
		RunE: func(cmd *cobra.Command, args []string) error {
			secret := os.Getenv("AUTH_JWT_SECRET")
			if secret == "" {
				secret = os.Getenv("JWT_SECRET")
			}
			if secret == "" {
				return errors.New("AUTH_JWT_SECRET is not set")
			}
			if issuer == "" {
				issuer = os.Getenv("AUTH_JWT_ISSUER")
			}

			tok, err := middleware.SignToken(p, []byte(secret), issuer, ttl)
			if err != nil {
				return fmt.Errorf("sign token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}

	cmd.Flags().StringVar(&p.ID, "subject", "", "user id placed in the sub claim (required)")
	cmd.Flags().StringVar(&p.Username, "username", "", "username claim")
	cmd.Flags().StringVar(&p.Role, "role", core.RoleAdmin, "role claim")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	cmd.Flags().StringVar(&issuer, "issuer", "", "iss claim (default: AUTH_JWT_ISSUER)")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}
