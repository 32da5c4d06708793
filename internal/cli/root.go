// Package cli implements the collector command tree.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "collector",
	Short: "Budget-governed Copernicus data collector",
	Long: `collector fetches Sentinel-2 imagery, vegetation indices, and weather
observations for a monitored field, governed by a monthly Sentinel Hub
processing-unit budget.

Every satellite operation is admitted against the remaining budget before it
runs and charged after it succeeds, so the free-tier quota lasts the whole
month.`,
	SilenceUsage: true,
}

// Execute runs the command tree.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "Path to the YAML configuration file")
}
