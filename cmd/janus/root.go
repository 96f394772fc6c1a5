package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "janus",
	Short: "Janus - multi-domain web host",
	Long: `Janus hosts several independent web sites behind one pair of
listeners, routing requests to site backends by Host header.

It provides:
  - Host-based routing with exact and wildcard domain aliases
  - TLS termination with certificate hot-reload
  - Per-site JSON document stores queried through named recipes
  - Stateless signed-token authentication with one-time codes
  - An audit trail for administrative actions`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global persistent flags (available to all subcommands)
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
