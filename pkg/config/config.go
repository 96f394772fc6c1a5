package config

import "time"

// Config is the root configuration structure for Janus.
// It contains all configuration sections for the reverse proxy, the hosted
// sites, authentication, the audit trail, and telemetry.
type Config struct {
	// Proxy contains reverse proxy configuration including listen addresses,
	// TLS settings, and timeouts.
	Proxy ProxyConfig `yaml:"proxy"`

	// Sites contains configuration for all hosted site backends.
	// Keys are site names (e.g., "www", "ops").
	Sites map[string]SiteConfig `yaml:"sites"`

	// Auth contains configuration for the authentication engine including
	// the token signing secret, token lifetime, and challenge code settings.
	Auth AuthConfig `yaml:"auth"`

	// Audit contains configuration for the audit trail including the
	// SQLite backend and retention settings.
	Audit AuditConfig `yaml:"audit"`

	// Telemetry contains configuration for observability including logging
	// and metrics.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ProxyConfig contains configuration for the reverse proxy listeners.
type ProxyConfig struct {
	// ListenAddress is the address and port for the plain HTTP proxy.
	// Format: "host:port" (e.g., "0.0.0.0:80").
	// Default: "127.0.0.1:8080"
	ListenAddress string `yaml:"listen_address"`

	// SecureListenAddress is the address and port for the TLS proxy.
	// Only used when TLS is enabled.
	// Default: "127.0.0.1:8443"
	SecureListenAddress string `yaml:"secure_listen_address"`

	// TLS contains TLS listener configuration.
	TLS TLSConfig `yaml:"tls"`

	// Verbose forces probe counting even for requests from private or
	// loopback source addresses, which are normally excluded from the
	// probe counter as expected background noise.
	// Default: false
	Verbose bool `yaml:"verbose"`

	// ReadTimeout is the maximum duration for reading the entire request,
	// including the body. A zero or negative value means no timeout.
	// Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes of the
	// response. A zero or negative value means no timeout.
	// Default: 30s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the maximum amount of time to wait for the next request
	// when keep-alives are enabled. If IdleTimeout is zero, ReadTimeout is used.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxHeaderBytes controls the maximum number of bytes the server will
	// read parsing the request header's keys and values.
	// Default: 1048576 (1MB)
	MaxHeaderBytes int `yaml:"max_header_bytes"`
}

// TLSConfig contains TLS listener configuration for the secure proxy.
type TLSConfig struct {
	// Enabled controls whether the secure listener is started.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// CertFile is the path to the PEM-encoded certificate chain.
	// Required when Enabled is true.
	CertFile string `yaml:"cert_file"`

	// KeyFile is the path to the PEM-encoded private key.
	// Required when Enabled is true.
	KeyFile string `yaml:"key_file"`

	// WatchFiles enables an fsnotify watcher on the certificate files so
	// that an external renewal process writing new PEM files triggers a
	// reload without an explicit @renew action.
	// Default: false
	WatchFiles bool `yaml:"watch_files"`
}

// SiteConfig contains configuration for one hosted site backend.
type SiteConfig struct {
	// Host is the backend host the proxy forwards to.
	// Default: "127.0.0.1"
	Host string `yaml:"host"`

	// Port is the backend listen port. Required.
	Port int `yaml:"port"`

	// Aliases is the list of public hostnames routed to this site.
	// Entries may be exact hostnames or wildcards ("*.example.com").
	Aliases []string `yaml:"aliases"`

	// StaticRoot is the directory served for plain file requests.
	// Empty disables static serving for the site.
	StaticRoot string `yaml:"static_root"`

	// Store contains the site's document store configuration.
	Store StoreConfig `yaml:"store"`
}

// StoreConfig contains configuration for a site's document store.
type StoreConfig struct {
	// Path is the JSON backing file. Empty means a memory-only store.
	Path string `yaml:"path"`

	// ReadOnly disables persistence; saves become no-ops.
	// Default: false
	ReadOnly bool `yaml:"read_only"`

	// SaveDelay is the debounce window for coalescing persists.
	// Default: 2s
	SaveDelay time.Duration `yaml:"save_delay"`
}

// AuthConfig contains configuration for the authentication engine.
type AuthConfig struct {
	// Secret is the HMAC signing secret for bearer tokens. Either Secret
	// or SecretFile is required; the server refuses to start without one.
	Secret string `yaml:"secret"`

	// SecretFile is a file containing the signing secret. Used when
	// Secret is empty.
	SecretFile string `yaml:"secret_file"`

	// TokenLifetime is how long an issued bearer token remains valid.
	// Default: 12h
	TokenLifetime time.Duration `yaml:"token_lifetime"`

	// CodeLength is the length of generated one-time challenge codes.
	// Default: 6
	CodeLength int `yaml:"code_length"`

	// CodeExpiry is how long a one-time challenge code remains valid.
	// Default: 15m
	CodeExpiry time.Duration `yaml:"code_expiry"`

	// BcryptCost is the bcrypt cost factor for password hashing.
	// Minimum and default: 10
	BcryptCost int `yaml:"bcrypt_cost"`
}

// AuditConfig contains configuration for the audit trail.
type AuditConfig struct {
	// Enabled controls whether audit events are recorded.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// SQLitePath is the audit database file path.
	// Default: "data/audit.db"
	SQLitePath string `yaml:"sqlite_path"`

	// MaxOpenConns is the maximum number of open database connections.
	// Default: 10
	MaxOpenConns int `yaml:"max_open_conns"`

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`

	// RetentionDays is how many days of audit events to keep.
	// Zero disables pruning.
	// Default: 90
	RetentionDays int `yaml:"retention_days"`

	// PruneSchedule is a cron expression controlling when retention
	// pruning runs. Empty disables the scheduler.
	// Default: "0 3 * * *"
	PruneSchedule string `yaml:"prune_schedule"`
}

// TelemetryConfig contains configuration for observability.
type TelemetryConfig struct {
	// Logging contains structured logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains Prometheus metrics configuration.
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig contains structured logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level ("debug", "info", "warn", "error").
	// Default: "info"
	Level string `yaml:"level"`

	// Format is the output format ("json", "text", "console").
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log records.
	// Default: false
	AddSource bool `yaml:"add_source"`

	// RedactCredentials strips authorization header values and password
	// fields from logged attributes.
	// Default: true
	RedactCredentials bool `yaml:"redact_credentials"`
}

// MetricsConfig contains Prometheus metrics configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics are collected and exposed.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Namespace is the Prometheus metric namespace.
	// Default: "janus"
	Namespace string `yaml:"namespace"`

	// Subsystem is the Prometheus metric subsystem.
	// Default: ""
	Subsystem string `yaml:"subsystem"`
}
