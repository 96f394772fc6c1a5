package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"arkadia-host/janus/pkg/cli"
	janustls "arkadia-host/janus/pkg/security/tls"
)

var infoFlags struct {
	format string
}

var certsInfoCmd = &cobra.Command{
	Use:   "info [cert-file]",
	Short: "Display certificate details",
	Long: `Display detailed information about a TLS certificate.

This command extracts and displays the certificate's subject, issuer,
validity period, and Subject Alternative Names, and flags certificates
that are expiring within 30 days.

Output formats:
  - text (default): Human-readable formatted output
  - json: JSON-formatted output for scripting

Examples:
  # Display certificate info in text format
  janus certs info server.crt

  # Display in JSON format
  janus certs info --format json server.crt`,
	Args: cobra.ExactArgs(1),
	RunE: displayCertInfo,
}

func init() {
	certsCmd.AddCommand(certsInfoCmd)

	certsInfoCmd.Flags().StringVar(&infoFlags.format, "format", "text", "output format: text, json")
}

func displayCertInfo(cmd *cobra.Command, args []string) error {
	info, err := janustls.Inspect(args[0])
	if err != nil {
		return err
	}

	if infoFlags.format == "json" {
		formatter := cli.NewFormatter(cli.FormatJSON)
		return formatter.FormatTo(os.Stdout, info)
	}

	fmt.Printf("Subject:    %s\n", info.Subject)
	fmt.Printf("Issuer:     %s\n", info.Issuer)
	fmt.Printf("Not Before: %s\n", info.NotBefore.Format(time.RFC3339))
	fmt.Printf("Not After:  %s\n", info.NotAfter.Format(time.RFC3339))
	if len(info.DNSNames) > 0 {
		fmt.Printf("DNS Names:  %s\n", strings.Join(info.DNSNames, ", "))
	}
	if info.Expiring {
		fmt.Println("⚠️  Certificate expires within 30 days")
	}
	return nil
}
