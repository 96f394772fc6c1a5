// Janus is a multi-domain web host: a reverse proxy routing by Host
// header in front of recipe-driven site backends.
//
// It provides:
//   - Host-based routing with exact and wildcard aliases
//   - TLS termination with zero-downtime certificate reload
//   - Per-site JSON document stores with debounced persistence
//   - Stateless signed-token authentication with one-time codes
//   - An audit trail for administrative actions
//
// Usage:
//
//	# Start server with default configuration
//	janus run
//
//	# Start with custom configuration file
//	janus run --config /path/to/config.yaml
//
//	# Show version information
//	janus version
//
//	# Generate a self-signed certificate for local testing
//	janus certs generate --host localhost
//
//	# Query the audit trail
//	janus audit recent --limit 50
package main

func main() {
	Execute()
}
