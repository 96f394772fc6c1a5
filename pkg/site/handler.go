package site

import (
	"net/http"

	"arkadia-host/janus/pkg/security/auth"
	"arkadia-host/janus/pkg/store"
)

// dispatch routes one request through the plane its keyword claims.
// A keyword no plane claims falls through to static serving, while an
// authorization failure inside a plane is an explicit error. The two
// must stay distinguishable.
func (s *Site) dispatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		writeError(w, http.StatusNotImplemented, "")
		return
	}

	keyword, params := splitRequest(r.URL.Path)

	result := s.engine.Authenticate(r.Header.Get("Authorization"), s.userLookup)
	if result.Method == auth.MethodBasic {
		// A basic header is an explicit login attempt; bearer traffic
		// is routine and is not audited.
		if result.Authenticated {
			s.audit(r.Context(), &result, "login", "success")
		} else {
			s.audit(r.Context(), &result, "login", "failure: "+result.Error)
		}
	}
	if result.Authenticated && result.Token != "" {
		// Echo a fresh bearer token so clients can hold a session from
		// any successfully authenticated request.
		w.Header().Set("Authorization", "Bearer "+result.Token)
	}
	authCtx := store.AuthContext{Trusted: result.Authenticated && result.IsAdmin(), Groups: result.Groups()}

	if keyword != "" {
		switch keyword[0] {
		case '$':
			s.handleData(w, r, keyword[1:], params, authCtx)
			return
		case '@':
			if s.handleAction(w, r, keyword[1:], params, &result) {
				return
			}
		case '~':
			if s.handleFile(w, r, keyword[1:], params, authCtx) {
				return
			}
		case '!':
			if s.handleInfo(w, r, keyword[1:], &result) {
				return
			}
		}
	}

	s.passThrough(w, r)
}

// passThrough serves requests no plane claimed from the static root.
func (s *Site) passThrough(w http.ResponseWriter, r *http.Request) {
	if s.static == nil || r.Method != http.MethodGet {
		writeError(w, http.StatusNotFound, "")
		return
	}
	s.static.ServeHTTP(w, r)
}
