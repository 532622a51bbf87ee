package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kbukum/diarlive/app"
	"github.com/kbukum/diarlive/server"
)

func newTokenCmd(root *rootOptions) *cobra.Command {
	var (
		subject string
		scope   string
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an API bearer token",
		Long: `Mint an HS256 bearer token for the session API using the configured
server.auth secret, issuer and audience.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := app.Load(root.configFile)
			if err != nil {
				return err
			}
			v, err := server.NewJWTValidator(cfg.Server.Auth)
			if err != nil {
				return fmt.Errorf("server.auth.secret must be configured: %w", err)
			}
			token, err := v.Issue(subject, scope, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "operator", "token subject")
	cmd.Flags().StringVar(&scope, "scope", "session", "token scope")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (default server.auth.token_ttl)")
	return cmd
}
