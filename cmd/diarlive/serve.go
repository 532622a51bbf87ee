package main

import (
	"github.com/spf13/cobra"

	"github.com/kbukum/diarlive/app"
	"github.com/kbukum/diarlive/bootstrap"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	var quiet bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the session service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := app.Load(root.configFile)
			if err != nil {
				return err
			}
			if root.verbose {
				cfg.Logging.Level = "debug"
			}
			opts := []bootstrap.Option{bootstrap.WithSummaryOutput(cmd.OutOrStdout())}
			if quiet {
				opts = append(opts, bootstrap.WithQuiet())
			}
			a, err := bootstrap.NewApp(cfg, opts...)
			if err != nil {
				return err
			}
			if _, err := app.Build(cmd.Context(), a); err != nil {
				return err
			}
			return a.Run(cmd.Context())
		},
	}
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "skip the startup summary")
	return cmd
}
