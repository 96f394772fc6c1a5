// Package telemetry provides observability for Janus.
//
// # Components
//
//   - logging: structured logging with credential redaction and a
//     runtime-adjustable level (the @scribe action)
//   - metrics: Prometheus counters for proxy traffic, probes, TLS
//     reloads, store persistence, and authentication outcomes
//
// # Usage
//
//	logger, err := logging.New(logging.Config{Level: "info", Format: "json"})
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//
//	logger.Info("request served", "site", "www", "duration_ms", 12)
//	collector.RecordServed("www", duration)
//
// The metrics collector exposes its registry through an HTTP handler,
// served per site behind the admin-gated !metrics endpoint.
package telemetry
