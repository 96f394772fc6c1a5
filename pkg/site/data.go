package site

import (
	"encoding/json"
	"errors"
	"net/http"

	"arkadia-host/janus/pkg/store"
)

// handleData serves the $ plane: GET queries a recipe, POST applies a
// modify batch. Unknown recipe names are answered with the silent
// empty result by the store itself, so existence never leaks.
func (s *Site) handleData(w http.ResponseWriter, r *http.Request, name string, params []string, authCtx store.AuthContext) {
	switch r.Method {
	case http.MethodGet:
		result, err := s.store.Query(name, s.bindings(r, name, params), authCtx)
		if err != nil {
			s.dataError(w, err)
			return
		}
		writeJSON(w, result)

	case http.MethodPost:
		var data any
		if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
			writeError(w, http.StatusBadRequest, "")
			return
		}
		outcomes, err := s.store.Modify(name, data, authCtx)
		if err != nil {
			s.dataError(w, err)
			return
		}
		writeJSON(w, outcomes)
	}
}

// bindings collects named parameters for a query: the query string
// when present, otherwise the positional parameters in the recipe's
// declared order.
func (s *Site) bindings(r *http.Request, name string, params []string) map[string]any {
	query := r.URL.Query()
	if len(query) > 0 {
		bindings := make(map[string]any, len(query))
		for k, vs := range query {
			if len(vs) > 0 {
				bindings[k] = vs[0]
			}
		}
		return bindings
	}

	recipe, ok := s.store.Recipe(name)
	if !ok || len(params) == 0 {
		return nil
	}
	bindings := make(map[string]any, len(params))
	for i, p := range params {
		if i >= len(recipe.Params) {
			break
		}
		bindings[recipe.Params[i]] = p
	}
	return bindings
}

func (s *Site) dataError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "")
	case errors.Is(err, store.ErrBadBatch):
		writeError(w, http.StatusBadRequest, "")
	default:
		writeError(w, http.StatusInternalServerError, "")
	}
}
