package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	janustls "arkadia-host/janus/pkg/security/tls"
)

var generateFlags struct {
	hosts    string
	validity int
	output   string
}

var certsGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate self-signed certificate",
	Long: `Generate a self-signed TLS certificate for testing.

This command generates a self-signed ECDSA certificate and private key
that can be used for development and testing purposes. The generated
certificate should NOT be used in production.

⚠️  WARNING: Self-signed certificates are for TESTING ONLY!
   For production, use certificates from a trusted Certificate
   Authority (e.g., Let's Encrypt).

Examples:
  # Generate certificate for localhost
  janus certs generate --host localhost

  # Generate with multiple hosts
  janus certs generate --host "localhost,127.0.0.1,app.local"

  # Generate with custom parameters
  janus certs generate \
    --host "localhost,127.0.0.1" \
    --validity 365 \
    --output certs/`,
	RunE: generateCertificate,
}

func init() {
	certsCmd.AddCommand(certsGenerateCmd)

	certsGenerateCmd.Flags().StringVar(&generateFlags.hosts, "host", "localhost", "comma-separated hostnames and IPs")
	certsGenerateCmd.Flags().IntVar(&generateFlags.validity, "validity", 365, "validity in days")
	certsGenerateCmd.Flags().StringVarP(&generateFlags.output, "output", "o", "certs", "output directory")
}

func generateCertificate(cmd *cobra.Command, args []string) error {
	fmt.Println("Generating self-signed certificate...")

	if generateFlags.validity <= 0 {
		return fmt.Errorf("invalid validity: %d days", generateFlags.validity)
	}

	hosts := strings.Split(generateFlags.hosts, ",")
	for i := range hosts {
		hosts[i] = strings.TrimSpace(hosts[i])
	}

	if err := os.MkdirAll(generateFlags.output, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	certFile := filepath.Join(generateFlags.output, "server.crt")
	keyFile := filepath.Join(generateFlags.output, "server.key")
	validity := time.Duration(generateFlags.validity) * 24 * time.Hour

	if err := janustls.GenerateSelfSigned(hosts, validity, certFile, keyFile); err != nil {
		return fmt.Errorf("generate certificate: %w", err)
	}

	fmt.Printf("✓ Certificate written to %s\n", certFile)
	fmt.Printf("✓ Private key written to %s\n", keyFile)
	fmt.Printf("  Hosts:    %s\n", strings.Join(hosts, ", "))
	fmt.Printf("  Validity: %d days\n", generateFlags.validity)
	return nil
}
