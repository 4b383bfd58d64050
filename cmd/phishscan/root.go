package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for phishscan.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "phishscan",
		Short: "Phishing page classifier and report queue",
		Long: `phishscan estimates how likely a web page is a phishing attempt.

Pages are scored from URL and DOM features by a decision forest. Pages at or
above the warn threshold are queued as reports, which can later be uploaded
to a collector service in one batch.

Besides the one-shot classify command, phishscan can run a local agent that
speaks the browser extension message protocol, and the collector service
that receives uploaded reports.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().StringP("config", "c", "",
		"Configuration file path (default: .phishscan in current or home directory)")

	cmd.AddCommand(NewClassifyCmd())
	cmd.AddCommand(NewReportsCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewThresholdsCmd())
	cmd.AddCommand(NewAgentCmd())
	cmd.AddCommand(NewCollectorCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
