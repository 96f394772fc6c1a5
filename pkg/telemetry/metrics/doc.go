// Package metrics provides Prometheus metrics collection for Janus.
//
// The Collector owns a Prometheus registry and exposes typed recording
// methods for the proxy (served and probe counters), the TLS reloader,
// the document stores, and the authentication engine. The registry is
// served over HTTP via Collector.Handler, mounted on the admin site's
// !metrics endpoint.
package metrics
