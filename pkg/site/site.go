package site

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"arkadia-host/janus/pkg/config"
	"arkadia-host/janus/pkg/security/auth"
	"arkadia-host/janus/pkg/security/tls"
	"arkadia-host/janus/pkg/site/middleware"
	"arkadia-host/janus/pkg/store"
	"arkadia-host/janus/pkg/telemetry/logging"
	"arkadia-host/janus/pkg/telemetry/metrics"
)

// usersCollection is the document store collection holding user
// records.
const usersCollection = "users"

// maxParams caps the positional parameters after the keyword segment.
const maxParams = 5

// Auditor records administrative and security events. Satisfied by
// audit.Recorder; nil disables recording.
type Auditor interface {
	RecordAction(ctx context.Context, site, actor, action, detail string)
}

// Deps are the collaborators a site shares with the rest of the
// process.
type Deps struct {
	// Stores maps store names to document stores, for @reload. Always
	// contains the site's own store under the site name.
	Stores map[string]*store.Store

	// TLSReloader serves @renew. Nil when the secure listener is off.
	TLSReloader *tls.Reloader

	// Logger is the site's logger; its level is shared process-wide so
	// @scribe changes verbosity everywhere.
	Logger *logging.Logger

	// Collector records request metrics and backs !metrics.
	Collector *metrics.Collector

	// Audit records administrative actions. Optional.
	Audit Auditor

	// Version is reported by !version.
	Version string
}

// Site is one hosted backend application.
type Site struct {
	name   string
	cfg    config.SiteConfig
	store  *store.Store
	engine *auth.Engine
	deps   Deps

	logger *logging.Logger
	static http.Handler
	server *http.Server
}

// New assembles a site around its document store and the shared
// authentication engine.
func New(name string, cfg config.SiteConfig, st *store.Store, engine *auth.Engine, deps Deps) (*Site, error) {
	if st == nil {
		return nil, fmt.Errorf("site %s: document store is required", name)
	}
	if engine == nil {
		return nil, fmt.Errorf("site %s: authentication engine is required", name)
	}
	if deps.Logger == nil {
		deps.Logger = logging.Discard()
	}
	if deps.Stores == nil {
		deps.Stores = map[string]*store.Store{name: st}
	}

	s := &Site{
		name:   name,
		cfg:    cfg,
		store:  st,
		engine: engine,
		deps:   deps,
		logger: deps.Logger.With("site", name),
	}
	if cfg.StaticRoot != "" {
		s.static = http.FileServer(http.Dir(cfg.StaticRoot))
	}
	return s, nil
}

// Name returns the configured site name.
func (s *Site) Name() string {
	return s.name
}

// Handler returns the site's full handler with the middleware chain
// applied.
func (s *Site) Handler() http.Handler {
	var h http.Handler = http.HandlerFunc(s.dispatch)
	h = middleware.Logging(s.logger)(h)
	h = middleware.RequestID(h)
	h = middleware.Recovery(s.logger, func(w http.ResponseWriter) {
		writeError(w, http.StatusInternalServerError, "")
	})(h)
	return h
}

// Run starts the site's backend listener and blocks until ctx is
// cancelled.
func (s *Site) Run(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	s.server = &http.Server{Addr: addr, Handler: s.Handler()}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("site listening", "address", addr)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("site %s: %w", s.name, err)
		}
	}()

	select {
	case <-ctx.Done():
		return s.server.Shutdown(context.Background())
	case err := <-errChan:
		return err
	}
}

// userLookup is the authentication engine's bridge into the site's
// user collection.
func (s *Site) userLookup(username string) (map[string]any, bool) {
	return s.store.Lookup(usersCollection, auth.FieldUsername, username)
}

// splitRequest breaks a path into its keyword segment and positional
// parameters.
func splitRequest(path string) (keyword string, params []string) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		return "", nil
	}
	keyword = parts[0]
	params = parts[1:]
	if len(params) > maxParams {
		params = params[:maxParams]
	}
	return keyword, params
}
