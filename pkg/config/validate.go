package config

import (
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "proxy.listen_address").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
// It implements the error interface and provides access to all field errors.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. It returns nil if the configuration is valid.
// All validation errors are collected and returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateProxy(&cfg.Proxy)...)
	errs = append(errs, validateSites(cfg.Sites)...)
	errs = append(errs, validateAuth(&cfg.Auth)...)
	errs = append(errs, validateAudit(&cfg.Audit)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

func validateProxy(cfg *ProxyConfig) []FieldError {
	var errs []FieldError

	if cfg.ListenAddress == "" {
		errs = append(errs, FieldError{
			Field:   "proxy.listen_address",
			Message: "listen address is required",
		})
	}
	if cfg.TLS.Enabled {
		if cfg.TLS.CertFile == "" {
			errs = append(errs, FieldError{
				Field:   "proxy.tls.cert_file",
				Message: "certificate file is required when TLS is enabled",
			})
		}
		if cfg.TLS.KeyFile == "" {
			errs = append(errs, FieldError{
				Field:   "proxy.tls.key_file",
				Message: "key file is required when TLS is enabled",
			})
		}
		if cfg.SecureListenAddress == "" {
			errs = append(errs, FieldError{
				Field:   "proxy.secure_listen_address",
				Message: "secure listen address is required when TLS is enabled",
			})
		}
	}
	if cfg.ReadTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "proxy.read_timeout",
			Message: "read timeout cannot be negative",
		})
	}
	if cfg.WriteTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "proxy.write_timeout",
			Message: "write timeout cannot be negative",
		})
	}
	if cfg.MaxHeaderBytes < 0 {
		errs = append(errs, FieldError{
			Field:   "proxy.max_header_bytes",
			Message: "max header bytes cannot be negative",
		})
	}

	return errs
}

func validateSites(sites map[string]SiteConfig) []FieldError {
	var errs []FieldError

	if len(sites) == 0 {
		errs = append(errs, FieldError{
			Field:   "sites",
			Message: "at least one site must be configured",
		})
		return errs
	}

	seen := make(map[string]string) // alias -> site name
	for name, site := range sites {
		prefix := fmt.Sprintf("sites.%s", name)

		if site.Port <= 0 || site.Port > 65535 {
			errs = append(errs, FieldError{
				Field:   prefix + ".port",
				Message: fmt.Sprintf("port must be between 1 and 65535, got %d", site.Port),
			})
		}
		if len(site.Aliases) == 0 {
			errs = append(errs, FieldError{
				Field:   prefix + ".aliases",
				Message: "at least one alias is required",
			})
		}
		for _, alias := range site.Aliases {
			if alias == "" {
				errs = append(errs, FieldError{
					Field:   prefix + ".aliases",
					Message: "empty alias",
				})
				continue
			}
			if strings.Contains(alias, "*") && !strings.HasPrefix(alias, "*.") {
				errs = append(errs, FieldError{
					Field:   prefix + ".aliases",
					Message: fmt.Sprintf("wildcard alias must have the form *.domain, got %q", alias),
				})
			}
			if owner, dup := seen[alias]; dup {
				errs = append(errs, FieldError{
					Field:   prefix + ".aliases",
					Message: fmt.Sprintf("alias %q already claimed by site %q", alias, owner),
				})
			}
			seen[alias] = name
		}
		if site.Store.SaveDelay < 0 {
			errs = append(errs, FieldError{
				Field:   prefix + ".store.save_delay",
				Message: "save delay cannot be negative",
			})
		}
	}

	return errs
}

func validateAuth(cfg *AuthConfig) []FieldError {
	var errs []FieldError

	if cfg.Secret == "" && cfg.SecretFile == "" {
		errs = append(errs, FieldError{
			Field:   "auth.secret",
			Message: "either auth.secret or auth.secret_file is required",
		})
	}
	if cfg.TokenLifetime < 0 {
		errs = append(errs, FieldError{
			Field:   "auth.token_lifetime",
			Message: "token lifetime cannot be negative",
		})
	}
	if cfg.CodeLength < 4 {
		errs = append(errs, FieldError{
			Field:   "auth.code_length",
			Message: fmt.Sprintf("code length must be at least 4, got %d", cfg.CodeLength),
		})
	}
	if cfg.BcryptCost < 10 || cfg.BcryptCost > 31 {
		errs = append(errs, FieldError{
			Field:   "auth.bcrypt_cost",
			Message: fmt.Sprintf("bcrypt cost must be between 10 and 31, got %d", cfg.BcryptCost),
		})
	}

	return errs
}

func validateAudit(cfg *AuditConfig) []FieldError {
	var errs []FieldError

	if !cfg.Enabled {
		return errs
	}
	if cfg.SQLitePath == "" {
		errs = append(errs, FieldError{
			Field:   "audit.sqlite_path",
			Message: "sqlite path is required when audit is enabled",
		})
	}
	if cfg.RetentionDays < 0 {
		errs = append(errs, FieldError{
			Field:   "audit.retention_days",
			Message: "retention days cannot be negative",
		})
	}
	if cfg.PruneSchedule != "" {
		if _, err := cron.ParseStandard(cfg.PruneSchedule); err != nil {
			errs = append(errs, FieldError{
				Field:   "audit.prune_schedule",
				Message: fmt.Sprintf("invalid cron expression %q: %v", cfg.PruneSchedule, err),
			})
		}
	}

	return errs
}

func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("level must be one of debug, info, warn, error; got %q", cfg.Logging.Level),
		})
	}
	switch cfg.Logging.Format {
	case "json", "text", "console":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("format must be one of json, text, console; got %q", cfg.Logging.Format),
		})
	}

	return errs
}
