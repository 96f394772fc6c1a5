package site

import (
	"net/http"
	"time"

	"arkadia-host/janus/pkg/security/auth"
)

// handleInfo serves the ! plane. Reports whether the request was
// handled.
func (s *Site) handleInfo(w http.ResponseWriter, r *http.Request, name string, result *auth.Result) bool {
	switch name {
	case "ping":
		writeJSON(w, map[string]any{
			"ok":   true,
			"site": s.name,
			"time": time.Now().UnixMilli(),
		})

	case "version":
		writeJSON(w, map[string]any{"version": s.deps.Version})

	case "metrics":
		// Operational detail; admins only.
		if !auth.Authorize(adminOnly, result.Groups(), result.Authenticated) {
			writeError(w, http.StatusUnauthorized, "")
			return true
		}
		if s.deps.Collector == nil {
			writeError(w, http.StatusNotFound, "")
			return true
		}
		s.deps.Collector.Handler().ServeHTTP(w, r)

	default:
		return false
	}
	return true
}
