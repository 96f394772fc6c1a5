package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values, validates the configuration, and returns any
// errors. The configuration is not modified by environment variables; use
// LoadConfigWithEnvOverrides for that functionality.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention JANUS_SECTION_FIELD (e.g., JANUS_PROXY_LISTEN_ADDRESS) and
// always take precedence over file-based configuration.
//
// The loading sequence is:
//  1. Load YAML from file (applies defaults)
//  2. Apply environment variable overrides
//  3. Re-validate the final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the
// configuration. Environment variables use the format JANUS_SECTION_FIELD.
func applyEnvOverrides(cfg *Config) {
	// Proxy overrides
	if val := os.Getenv("JANUS_PROXY_LISTEN_ADDRESS"); val != "" {
		cfg.Proxy.ListenAddress = val
	}
	if val := os.Getenv("JANUS_PROXY_SECURE_LISTEN_ADDRESS"); val != "" {
		cfg.Proxy.SecureListenAddress = val
	}
	if val := os.Getenv("JANUS_PROXY_VERBOSE"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Proxy.Verbose = b
		}
	}
	if val := os.Getenv("JANUS_PROXY_READ_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Proxy.ReadTimeout = d
		}
	}
	if val := os.Getenv("JANUS_PROXY_WRITE_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Proxy.WriteTimeout = d
		}
	}
	if val := os.Getenv("JANUS_PROXY_TLS_CERT_FILE"); val != "" {
		cfg.Proxy.TLS.CertFile = val
	}
	if val := os.Getenv("JANUS_PROXY_TLS_KEY_FILE"); val != "" {
		cfg.Proxy.TLS.KeyFile = val
	}

	// Auth overrides. The secret in particular is commonly supplied via
	// environment rather than checked into a config file.
	if val := os.Getenv("JANUS_AUTH_SECRET"); val != "" {
		cfg.Auth.Secret = val
	}
	if val := os.Getenv("JANUS_AUTH_SECRET_FILE"); val != "" {
		cfg.Auth.SecretFile = val
	}
	if val := os.Getenv("JANUS_AUTH_TOKEN_LIFETIME"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Auth.TokenLifetime = d
		}
	}

	// Audit overrides
	if val := os.Getenv("JANUS_AUDIT_SQLITE_PATH"); val != "" {
		cfg.Audit.SQLitePath = val
	}

	// Telemetry overrides
	if val := os.Getenv("JANUS_TELEMETRY_LOGGING_LEVEL"); val != "" {
		cfg.Telemetry.Logging.Level = strings.ToLower(val)
	}
	if val := os.Getenv("JANUS_TELEMETRY_LOGGING_FORMAT"); val != "" {
		cfg.Telemetry.Logging.Format = strings.ToLower(val)
	}
}

// ResolveSecret returns the token signing secret, reading SecretFile when
// the inline secret is empty. The result is never empty for a validated
// configuration.
func (c *AuthConfig) ResolveSecret() (string, error) {
	if c.Secret != "" {
		return c.Secret, nil
	}
	if c.SecretFile == "" {
		return "", fmt.Errorf("no auth secret configured")
	}
	data, err := os.ReadFile(c.SecretFile)
	if err != nil {
		return "", fmt.Errorf("failed to read secret file %q: %w", c.SecretFile, err)
	}
	secret := strings.TrimSpace(string(data))
	if secret == "" {
		return "", fmt.Errorf("secret file %q is empty", c.SecretFile)
	}
	return secret, nil
}
