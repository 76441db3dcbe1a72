package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	httpMW "github.com/yungbote/earnedvalue-backend/internal/http/middleware"
)

// newTokenCmd signs a bearer token with the configured secret. Meant for
// local testing against the API; production tokens come from the identity
// provider.
func newTokenCmd(opts *rootOptions) *cobra.Command {
	var (
		role string
		ttl  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token <actor-id>",
		Short: "Sign a development bearer token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if cfg.Auth.Secret == "" {
				return NewCLIError("no JWT secret configured", "set JWT_SECRET", nil)
			}
			tok, err := httpMW.SignToken(cfg.Auth.Secret, cfg.Auth.Issuer, args[0], role, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&role, "role", "project_manager", "role claim")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	return cmd
}
