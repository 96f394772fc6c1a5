package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"arkadia-host/janus/pkg/config"
)

// Collector is the orchestrator for all Prometheus metrics in Janus.
// It manages metric registration and provides a unified interface for
// recording metrics across the proxy, the stores, and the auth engine.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	// Proxy metrics
	servedTotal  *prometheus.CounterVec
	probesTotal  prometheus.Counter
	proxyErrors  prometheus.Counter
	requestDur   *prometheus.HistogramVec

	// TLS metrics
	tlsReloadsTotal  prometheus.Counter
	tlsRebuildsTotal prometheus.Counter

	// Store metrics
	storeSavesTotal   *prometheus.CounterVec
	storeSaveFailures *prometheus.CounterVec
	storeLoadsTotal   *prometheus.CounterVec

	// Auth metrics
	authTotal *prometheus.CounterVec
}

// NewCollector creates a new metrics collector with the specified
// configuration and Prometheus registry. If registry is nil, a fresh
// registry is created so multiple collectors never collide.
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if cfg.Namespace == "" {
		cfg.Namespace = "janus"
	}

	c := &Collector{
		config:   cfg,
		registry: registry,

		servedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "proxy_served_total",
				Help:      "Total requests forwarded to a backend, by site",
			},
			[]string{"site"},
		),
		probesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "proxy_probes_total",
				Help:      "Total requests for hosts with no configured route",
			},
		),
		proxyErrors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "proxy_errors_total",
				Help:      "Total internal proxying failures converted to 500 responses",
			},
		),
		requestDur: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "proxy_request_duration_seconds",
				Help:      "Proxied request duration in seconds, by site",
				Buckets:   []float64{0.005, 0.025, 0.1, 0.25, 1.0, 2.5, 10.0},
			},
			[]string{"site"},
		),

		tlsReloadsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "tls_reloads_total",
				Help:      "Total successful TLS secret bundle reloads",
			},
		),
		tlsRebuildsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "tls_context_rebuilds_total",
				Help:      "Total lazy TLS context rebuilds performed by handshakes",
			},
		),

		storeSavesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "store_saves_total",
				Help:      "Total debounced store persists, by store",
			},
			[]string{"store"},
		),
		storeSaveFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "store_save_failures_total",
				Help:      "Total failed store persists, by store",
			},
			[]string{"store"},
		),
		storeLoadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "store_loads_total",
				Help:      "Total store loads, including @reload, by store",
			},
			[]string{"store"},
		),

		authTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "auth_attempts_total",
				Help:      "Total authentication attempts, by method and outcome",
			},
			[]string{"method", "outcome"},
		),
	}

	registry.MustRegister(
		c.servedTotal,
		c.probesTotal,
		c.proxyErrors,
		c.requestDur,
		c.tlsReloadsTotal,
		c.tlsRebuildsTotal,
		c.storeSavesTotal,
		c.storeSaveFailures,
		c.storeLoadsTotal,
		c.authTotal,
	)

	return c
}

// RecordServed records a request forwarded to the named site.
func (c *Collector) RecordServed(site string, duration time.Duration) {
	if !c.config.Enabled {
		return
	}
	c.servedTotal.WithLabelValues(site).Inc()
	c.requestDur.WithLabelValues(site).Observe(duration.Seconds())
}

// RecordProbe records a request for a host with no configured route.
func (c *Collector) RecordProbe() {
	if !c.config.Enabled {
		return
	}
	c.probesTotal.Inc()
}

// RecordProxyError records an internal proxying failure.
func (c *Collector) RecordProxyError() {
	if !c.config.Enabled {
		return
	}
	c.proxyErrors.Inc()
}

// RecordTLSReload records a successful secret bundle reload.
func (c *Collector) RecordTLSReload() {
	if !c.config.Enabled {
		return
	}
	c.tlsReloadsTotal.Inc()
}

// RecordTLSRebuild records a lazy TLS context rebuild.
func (c *Collector) RecordTLSRebuild() {
	if !c.config.Enabled {
		return
	}
	c.tlsRebuildsTotal.Inc()
}

// RecordStoreSave records a persist for the named store.
func (c *Collector) RecordStoreSave(store string, ok bool) {
	if !c.config.Enabled {
		return
	}
	if ok {
		c.storeSavesTotal.WithLabelValues(store).Inc()
	} else {
		c.storeSaveFailures.WithLabelValues(store).Inc()
	}
}

// RecordStoreLoad records a load for the named store.
func (c *Collector) RecordStoreLoad(store string) {
	if !c.config.Enabled {
		return
	}
	c.storeLoadsTotal.WithLabelValues(store).Inc()
}

// RecordAuth records an authentication attempt.
// method is "basic" or "bearer"; outcome is "success" or "failure".
func (c *Collector) RecordAuth(method, outcome string) {
	if !c.config.Enabled {
		return
	}
	c.authTotal.WithLabelValues(method, outcome).Inc()
}

// Registry returns the underlying Prometheus registry, for exposition
// and for tests that gather metric values directly.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
