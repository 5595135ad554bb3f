// Package cli implements the ponto command line interface.
package cli

import (
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "ponto",
	Short: "Personal workday and ticket time tracking",
	Long: `ponto tracks your workday (shift, breaks, overtime) and apportions
worked time across tickets. It serves a local HTTP API for the web
dashboard and prints monthly reports in the terminal.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Path to config.toml (default ~/.ponto/config.toml)")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
