package config

import "time"

// Default values for configuration fields.
const (
	// Proxy defaults
	DefaultListenAddress       = "127.0.0.1:8080"
	DefaultSecureListenAddress = "127.0.0.1:8443"
	DefaultReadTimeout         = 30 * time.Second
	DefaultWriteTimeout        = 30 * time.Second
	DefaultIdleTimeout         = 120 * time.Second
	DefaultShutdownTimeout     = 30 * time.Second
	DefaultMaxHeaderBytes      = 1048576 // 1MB

	// Site defaults
	DefaultSiteHost      = "127.0.0.1"
	DefaultStoreSaveDelay = 2 * time.Second

	// Auth defaults
	DefaultTokenLifetime = 12 * time.Hour
	DefaultCodeLength    = 6
	DefaultCodeExpiry    = 15 * time.Minute
	DefaultBcryptCost    = 10

	// Audit defaults
	DefaultAuditEnabled       = true
	DefaultAuditSQLitePath    = "data/audit.db"
	DefaultAuditMaxOpenConns  = 10
	DefaultAuditBusyTimeout   = 5 * time.Second
	DefaultAuditRetentionDays = 90
	DefaultAuditPruneSchedule = "0 3 * * *"

	// Telemetry defaults
	DefaultLoggingLevel      = "info"
	DefaultLoggingFormat     = "json"
	DefaultMetricsEnabled    = true
	DefaultMetricsNamespace  = "janus"
)

// ApplyDefaults fills in default values for any configuration fields that
// are unset. It modifies the configuration in place.
func ApplyDefaults(cfg *Config) {
	// Proxy defaults
	if cfg.Proxy.ListenAddress == "" {
		cfg.Proxy.ListenAddress = DefaultListenAddress
	}
	if cfg.Proxy.SecureListenAddress == "" {
		cfg.Proxy.SecureListenAddress = DefaultSecureListenAddress
	}
	if cfg.Proxy.ReadTimeout == 0 {
		cfg.Proxy.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Proxy.WriteTimeout == 0 {
		cfg.Proxy.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Proxy.IdleTimeout == 0 {
		cfg.Proxy.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Proxy.ShutdownTimeout == 0 {
		cfg.Proxy.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Proxy.MaxHeaderBytes == 0 {
		cfg.Proxy.MaxHeaderBytes = DefaultMaxHeaderBytes
	}

	// Site defaults
	for name, site := range cfg.Sites {
		if site.Host == "" {
			site.Host = DefaultSiteHost
		}
		if site.Store.SaveDelay == 0 {
			site.Store.SaveDelay = DefaultStoreSaveDelay
		}
		cfg.Sites[name] = site
	}

	// Auth defaults
	if cfg.Auth.TokenLifetime == 0 {
		cfg.Auth.TokenLifetime = DefaultTokenLifetime
	}
	if cfg.Auth.CodeLength == 0 {
		cfg.Auth.CodeLength = DefaultCodeLength
	}
	if cfg.Auth.CodeExpiry == 0 {
		cfg.Auth.CodeExpiry = DefaultCodeExpiry
	}
	if cfg.Auth.BcryptCost == 0 {
		cfg.Auth.BcryptCost = DefaultBcryptCost
	}

	// Audit defaults. A fully zero audit section means "unconfigured",
	// which enables the audit trail with defaults; an explicitly
	// configured section keeps whatever enabled value it carries.
	if cfg.Audit == (AuditConfig{}) {
		cfg.Audit.Enabled = DefaultAuditEnabled
	}
	if cfg.Audit.SQLitePath == "" {
		cfg.Audit.SQLitePath = DefaultAuditSQLitePath
	}
	if cfg.Audit.MaxOpenConns == 0 {
		cfg.Audit.MaxOpenConns = DefaultAuditMaxOpenConns
	}
	if cfg.Audit.BusyTimeout == 0 {
		cfg.Audit.BusyTimeout = DefaultAuditBusyTimeout
	}
	if cfg.Audit.RetentionDays == 0 {
		cfg.Audit.RetentionDays = DefaultAuditRetentionDays
	}
	if cfg.Audit.PruneSchedule == "" {
		cfg.Audit.PruneSchedule = DefaultAuditPruneSchedule
	}

	// Telemetry defaults, with the same zero-section convention.
	if cfg.Telemetry.Metrics == (MetricsConfig{}) {
		cfg.Telemetry.Metrics.Enabled = DefaultMetricsEnabled
	}
	if cfg.Telemetry.Logging == (LoggingConfig{}) {
		cfg.Telemetry.Logging.RedactCredentials = true
	}
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
}
