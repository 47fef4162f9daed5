package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nao1215/urlscan/internal/config"
)

// NewRootCmd creates the root command for urlscan.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "urlscan",
		Short: "Malicious URL detection",
		Long: `urlscan scores URLs for phishing and malware risk.

Every URL gets a risk score from 0 to 100, a verdict (safe, suspicious or
malicious) and the reasons behind the score. A rule table always runs; a
trained classifier refines the score when a model is available.

Use 'urlscan train' to build a model and 'urlscan serve' to run the HTTP API
used by the browser extension.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().StringP("config", "c", "",
		"Configuration file path (default: .urlscan in current or home directory)")
	cmd.PersistentFlags().String("log-format", config.LogFormatText,
		"Log output format (text or json)")

	cmd.AddCommand(NewScanCmd())
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewTrainCmd())
	cmd.AddCommand(NewHistoryCmd())
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
