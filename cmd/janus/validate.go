package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"arkadia-host/janus/pkg/cli"
	"arkadia-host/janus/pkg/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration",
	Long: `Validate the configuration file without starting the server.

Checks the YAML syntax, applies defaults, and runs the same validation
the server performs at startup, reporting every field error at once.

Examples:
  # Validate the default config
  janus validate

  # Validate a specific file
  janus validate --config /etc/janus/config.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig(cfgFile)
		if err != nil {
			return cli.NewConfigError("", err.Error())
		}
		fmt.Printf("✓ Configuration valid (%d sites)\n", len(cfg.Sites))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
