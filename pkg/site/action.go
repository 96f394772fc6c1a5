package site

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"arkadia-host/janus/pkg/security/auth"
)

// adminOnly is the allowed-group list that admits nobody but members
// of the admin group.
var adminOnly = []string{}

// handleAction serves the @ plane. Each action carries its own
// authorization gate; an unknown action is not claimed and falls
// through. Reports whether the request was handled.
func (s *Site) handleAction(w http.ResponseWriter, r *http.Request, name string, params []string, result *auth.Result) bool {
	type action struct {
		allowed []string
		fn      func(http.ResponseWriter, *http.Request, []string, *auth.Result)
	}
	actions := map[string]action{
		"reload":   {adminOnly, s.actionReload},
		"renew":    {adminOnly, s.actionRenew},
		"scribe":   {adminOnly, s.actionScribe},
		"register": {nil, s.actionRegister},
		"activate": {nil, s.actionActivate},
		"grant":    {adminOnly, s.actionGrant},
		"status":   {adminOnly, s.actionStatus},
	}

	act, ok := actions[name]
	if !ok {
		return false
	}
	if !auth.Authorize(act.allowed, result.Groups(), result.Authenticated) {
		writeError(w, http.StatusUnauthorized, "")
		return true
	}
	act.fn(w, r, params, result)
	return true
}

// actionReload re-reads a named backing store from disk, picking up
// externally edited files.
func (s *Site) actionReload(w http.ResponseWriter, r *http.Request, params []string, result *auth.Result) {
	if len(params) == 0 {
		writeError(w, http.StatusBadRequest, "")
		return
	}
	st, ok := s.deps.Stores[params[0]]
	if !ok {
		writeError(w, http.StatusNotFound, "")
		return
	}
	if err := st.Load(r.Context()); err != nil {
		s.logger.Error("store reload failed", "store", params[0], "error", err)
		writeError(w, http.StatusInternalServerError, "")
		return
	}
	s.audit(r.Context(), result, "reload", params[0])
	writeJSON(w, map[string]any{"reloaded": params[0]})
}

// actionRenew asks the TLS reloader to re-read the secret bundle.
func (s *Site) actionRenew(w http.ResponseWriter, r *http.Request, _ []string, result *auth.Result) {
	if s.deps.TLSReloader == nil {
		writeError(w, http.StatusNotFound, "")
		return
	}
	s.deps.TLSReloader.Reload()
	s.audit(r.Context(), result, "renew", "")
	writeJSON(w, map[string]any{"renewed": true})
}

// actionScribe changes the process-wide log verbosity at runtime.
func (s *Site) actionScribe(w http.ResponseWriter, r *http.Request, params []string, result *auth.Result) {
	if len(params) == 0 {
		writeError(w, http.StatusBadRequest, "")
		return
	}
	if err := s.deps.Logger.SetLevel(params[0]); err != nil {
		writeError(w, http.StatusBadRequest, "")
		return
	}
	s.audit(r.Context(), result, "scribe", params[0])
	writeJSON(w, map[string]any{"level": params[0]})
}

// actionRegister creates a PENDING user with a hashed password and an
// activation challenge code. The code is delivered out-of-band; it is
// never part of the response.
func (s *Site) actionRegister(w http.ResponseWriter, r *http.Request, _ []string, result *auth.Result) {
	body, err := readBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "")
		return
	}
	username, _ := body[auth.FieldUsername].(string)
	password, _ := body["password"].(string)
	if username == "" || password == "" {
		writeError(w, http.StatusBadRequest, "")
		return
	}
	if _, exists := s.userLookup(username); exists {
		writeError(w, http.StatusBadRequest, "")
		return
	}

	hash, err := s.engine.HashPassword(password)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "")
		return
	}

	record := map[string]any{
		auth.FieldUsername: username,
		auth.FieldStatus:   auth.StatusPending,
		auth.FieldMember:   []any{},
		auth.FieldCredentials: map[string]any{
			"hash": hash,
			"code": s.engine.GenCode().ToRecord(),
		},
	}
	// Free-form identification fields ride along; credentials and
	// authorization fields never come from the client.
	for k, v := range body {
		switch k {
		case auth.FieldUsername, auth.FieldStatus, auth.FieldMember, auth.FieldCredentials, "password":
		default:
			record[k] = v
		}
	}

	if err := s.store.Replace(usersCollection, auth.FieldUsername, username, record); err != nil {
		writeError(w, http.StatusInternalServerError, "")
		return
	}
	s.audit(r.Context(), result, "register", username)
	writeJSON(w, map[string]any{
		auth.FieldUsername: username,
		auth.FieldStatus:   auth.StatusPending,
	})
}

// actionActivate flips a PENDING user to ACTIVE when the presented
// challenge code is valid. A valid code is consumed.
func (s *Site) actionActivate(w http.ResponseWriter, r *http.Request, params []string, result *auth.Result) {
	username, code := paramsOrBody(r, params)
	if username == "" || code == "" {
		writeError(w, http.StatusBadRequest, "")
		return
	}

	record, ok := s.userLookup(username)
	if !ok {
		writeError(w, http.StatusUnauthorized, "")
		return
	}
	credentials, _ := record[auth.FieldCredentials].(map[string]any)
	challenge, ok := auth.ChallengeFromRecord(credentials)
	if !ok || !s.engine.CheckCode(code, challenge) {
		writeError(w, http.StatusUnauthorized, "")
		return
	}

	record[auth.FieldStatus] = auth.StatusActive
	delete(credentials, "code")
	if err := s.store.Replace(usersCollection, auth.FieldUsername, username, record); err != nil {
		writeError(w, http.StatusInternalServerError, "")
		return
	}
	s.audit(r.Context(), result, "activate", username)
	writeJSON(w, map[string]any{
		auth.FieldUsername: username,
		auth.FieldStatus:   auth.StatusActive,
	})
}

// actionGrant issues a fresh challenge code for a user so an
// administrator can hand out temporary access or restart a stalled
// activation. The code is returned to the administrator for
// out-of-band delivery.
func (s *Site) actionGrant(w http.ResponseWriter, r *http.Request, params []string, result *auth.Result) {
	username, _ := paramsOrBody(r, params)
	if username == "" {
		writeError(w, http.StatusBadRequest, "")
		return
	}
	record, ok := s.userLookup(username)
	if !ok {
		writeError(w, http.StatusNotFound, "")
		return
	}

	challenge := s.engine.GenCode()
	credentials, _ := record[auth.FieldCredentials].(map[string]any)
	if credentials == nil {
		credentials = map[string]any{}
		record[auth.FieldCredentials] = credentials
	}
	credentials["code"] = challenge.ToRecord()

	if err := s.store.Replace(usersCollection, auth.FieldUsername, username, record); err != nil {
		writeError(w, http.StatusInternalServerError, "")
		return
	}
	s.audit(r.Context(), result, "grant", username)
	writeJSON(w, map[string]any{
		auth.FieldUsername: username,
		"code":             challenge.Code,
		"issued":           challenge.Issued,
		"expiry":           challenge.Expiry,
	})
}

// actionStatus reads (GET) or sets (POST) a user's account status.
func (s *Site) actionStatus(w http.ResponseWriter, r *http.Request, params []string, result *auth.Result) {
	if r.Method == http.MethodGet {
		if len(params) == 0 {
			writeError(w, http.StatusBadRequest, "")
			return
		}
		record, ok := s.userLookup(params[0])
		if !ok {
			writeError(w, http.StatusNotFound, "")
			return
		}
		writeJSON(w, map[string]any{
			auth.FieldUsername: record[auth.FieldUsername],
			auth.FieldStatus:   record[auth.FieldStatus],
			auth.FieldMember:   record[auth.FieldMember],
		})
		return
	}

	body, err := readBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "")
		return
	}
	username, _ := body[auth.FieldUsername].(string)
	status, _ := body[auth.FieldStatus].(string)
	if username == "" || !validStatus(status) {
		writeError(w, http.StatusBadRequest, "")
		return
	}
	record, ok := s.userLookup(username)
	if !ok {
		writeError(w, http.StatusNotFound, "")
		return
	}

	record[auth.FieldStatus] = status
	if err := s.store.Replace(usersCollection, auth.FieldUsername, username, record); err != nil {
		writeError(w, http.StatusInternalServerError, "")
		return
	}
	s.audit(r.Context(), result, "status", fmt.Sprintf("%s=%s", username, status))
	writeJSON(w, map[string]any{
		auth.FieldUsername: username,
		auth.FieldStatus:   status,
	})
}

func validStatus(status string) bool {
	switch status {
	case auth.StatusPending, auth.StatusActive, auth.StatusInactive:
		return true
	}
	return false
}

// paramsOrBody resolves the username/code pair actions accept either
// positionally or as a JSON body.
func paramsOrBody(r *http.Request, params []string) (username, code string) {
	if len(params) > 0 {
		username = params[0]
		if len(params) > 1 {
			code = params[1]
		}
		return username, code
	}
	body, err := readBody(r)
	if err != nil {
		return "", ""
	}
	username, _ = body[auth.FieldUsername].(string)
	code, _ = body["code"].(string)
	return username, code
}

func readBody(r *http.Request) (map[string]any, error) {
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return nil, err
	}
	return body, nil
}

func (s *Site) audit(ctx context.Context, result *auth.Result, action, detail string) {
	if s.deps.Audit == nil {
		return
	}
	actor := result.Username
	if actor == "" {
		actor = "anonymous"
	}
	s.deps.Audit.RecordAction(ctx, s.name, actor, action, detail)
}
