package main

import (
	"github.com/spf13/cobra"
)

var certsCmd = &cobra.Command{
	Use:   "certs",
	Short: "Manage TLS certificates",
	Long: `Manage TLS certificates for Janus.

The certs command provides utilities for the certificates the secure
listener serves. This includes inspection and generation of self-signed
certificates for local testing.

Subcommands:
  info     - Display certificate details
  generate - Generate self-signed certificate for testing

Examples:
  # Display certificate information
  janus certs info server.crt

  # Generate self-signed certificate for testing
  janus certs generate --host localhost`,
}

func init() {
	rootCmd.AddCommand(certsCmd)
}
