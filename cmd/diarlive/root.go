package main

import (
	"github.com/spf13/cobra"

	"github.com/kbukum/diarlive/version"
)

type rootOptions struct {
	configFile string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "diarlive",
		Short: "Live speaker diarization sessions",
		Long: `diarlive keeps the live state of a meeting's speaker diarization: it
drives a diarization engine, folds its event stream into a speaker
timeline and serves the result over HTTP and server-sent events.

Quick Start:
  diarlive serve                          # run the service
  diarlive replay testdata/replay.yml     # fold a recorded event script
  diarlive token --subject operator       # mint an API token`,
		Version:       version.GetShortVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "", "config file (default: search ./cmd/diarlive/config.yml, ./config.yml)")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")
	cmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	cmd.AddCommand(
		newServeCmd(opts),
		newReplayCmd(opts),
		newTokenCmd(opts),
		newVersionCmd(),
	)
	return cmd
}
