package proxy

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/httputil"
	"sync/atomic"
	"time"

	"arkadia-host/janus/pkg/config"
	janustls "arkadia-host/janus/pkg/security/tls"
	"arkadia-host/janus/pkg/telemetry/logging"
	"arkadia-host/janus/pkg/telemetry/metrics"
)

type routeKey struct{}

// Proxy is the reverse proxy fronting all hosted sites. One instance
// drives both the plain and the TLS listener; they share the route
// table and the forwarding transport.
type Proxy struct {
	cfg       config.ProxyConfig
	logger    *logging.Logger
	collector *metrics.Collector
	reloader  *janustls.Reloader

	table   atomic.Pointer[RouteTable]
	forward *httputil.ReverseProxy

	httpServer  *http.Server
	httpsServer *http.Server
}

// New builds a proxy for the given site set. The TLS reloader may be
// nil when the secure listener is disabled.
func New(cfg config.ProxyConfig, sites map[string]config.SiteConfig, logger *logging.Logger, collector *metrics.Collector, reloader *janustls.Reloader) (*Proxy, error) {
	table, err := BuildRoutes(sites)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.Discard()
	}

	p := &Proxy{
		cfg:       cfg,
		logger:    logger,
		collector: collector,
		reloader:  reloader,
	}
	p.table.Store(table)

	p.forward = &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			route := pr.In.Context().Value(routeKey{}).(Route)
			pr.Out.URL.Scheme = "http"
			pr.Out.URL.Host = route.Target
			// The backend decides by original Host too.
			pr.Out.Host = pr.In.Host
			pr.SetXForwarded()
		},
		ErrorHandler: p.backendError,
	}

	return p, nil
}

// Rebuild swaps in a route table built from new site configuration.
// In-flight lookups keep using the table they already resolved.
func (p *Proxy) Rebuild(sites map[string]config.SiteConfig) error {
	table, err := BuildRoutes(sites)
	if err != nil {
		return err
	}
	p.table.Store(table)
	p.logger.Info("route table rebuilt", "hosts", len(table.exact), "wildcards", len(table.wildcard))
	return nil
}

// ServeHTTP routes one inbound request to its backend.
func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	route, ok := p.table.Load().Lookup(r.Host)
	if !ok {
		p.noRoute(w, r)
		return
	}

	start := time.Now()
	ctx := context.WithValue(r.Context(), routeKey{}, route)
	p.forward.ServeHTTP(w, r.WithContext(ctx))

	if p.collector != nil {
		p.collector.RecordServed(route.Site, time.Since(start))
	}
}

// noRoute answers requests for hostnames no site claims. Scanners
// sweep public addresses constantly, so hits from private and loopback
// sources are the only ones worth excluding from the probe counter;
// verbose mode counts everything for diagnostics.
func (p *Proxy) noRoute(w http.ResponseWriter, r *http.Request) {
	counted := false
	if p.cfg.Verbose || !privateSource(r.RemoteAddr) {
		if p.collector != nil {
			p.collector.RecordProbe()
		}
		counted = true
	}
	p.logger.Debug("no route for host",
		"host", r.Host,
		"remote_addr", r.RemoteAddr,
		"counted", counted,
	)

	w.Header().Set("Connection", "close")
	http.Error(w, "no route", http.StatusMisdirectedRequest)
}

// backendError answers when proxying to a routed backend fails. Every
// proxy-layer failure maps to the same fixed envelope; the cause stays
// in the log.
func (p *Proxy) backendError(w http.ResponseWriter, r *http.Request, err error) {
	if p.collector != nil {
		p.collector.RecordProxyError()
	}
	p.logger.Error("backend unreachable",
		"host", r.Host,
		"error", err,
	)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	fmt.Fprintf(w, `{"error":{"code":%d,"msg":"internal error"}}`, http.StatusInternalServerError)
}

// privateSource reports whether a RemoteAddr is loopback, RFC 1918
// private, or link-local.
func privateSource(remoteAddr string) bool {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return false
	}
	return ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast()
}

// Run starts the configured listeners and blocks until ctx is
// cancelled or a listener fails. The plain listener always runs; the
// secure listener requires a loaded certificate reloader.
func (p *Proxy) Run(ctx context.Context) error {
	errChan := make(chan error, 2)

	p.httpServer = p.newServer(p.cfg.ListenAddress)
	go func() {
		p.logger.Info("proxy listening", "address", p.cfg.ListenAddress, "tls", false)
		if err := p.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("plain listener: %w", err)
		}
	}()

	if p.cfg.TLS.Enabled {
		if p.reloader == nil {
			return fmt.Errorf("secure listener enabled without certificate reloader")
		}
		p.httpsServer = p.newServer(p.cfg.SecureListenAddress)
		p.httpsServer.TLSConfig = p.reloader.ServerConfig()
		go func() {
			p.logger.Info("proxy listening", "address", p.cfg.SecureListenAddress, "tls", true)
			// Cert and key paths are empty: the material comes from
			// the reloader's GetCertificate callback.
			if err := p.httpsServer.ListenAndServeTLS("", ""); err != nil && err != http.ErrServerClosed {
				errChan <- fmt.Errorf("secure listener: %w", err)
			}
		}()
	}

	select {
	case <-ctx.Done():
		return p.shutdown()
	case err := <-errChan:
		p.shutdown()
		return err
	}
}

func (p *Proxy) newServer(addr string) *http.Server {
	return &http.Server{
		Addr:           addr,
		Handler:        p,
		ReadTimeout:    p.cfg.ReadTimeout,
		WriteTimeout:   p.cfg.WriteTimeout,
		IdleTimeout:    p.cfg.IdleTimeout,
		MaxHeaderBytes: p.cfg.MaxHeaderBytes,
	}
}

func (p *Proxy) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), p.cfg.ShutdownTimeout)
	defer cancel()

	p.logger.Info("shutting down proxy", "timeout", p.cfg.ShutdownTimeout.String())

	var firstErr error
	for _, srv := range []*http.Server{p.httpServer, p.httpsServer} {
		if srv == nil {
			continue
		}
		if err := srv.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
