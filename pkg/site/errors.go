package site

import (
	"encoding/json"
	"net/http"
)

// defaultMessages is the fixed table of client-facing messages for
// standard failure codes. Every numeric failure in the pipeline maps
// through this table; internal detail never reaches the client.
var defaultMessages = map[int]string{
	http.StatusBadRequest:          "bad request",
	http.StatusUnauthorized:        "unauthorized",
	http.StatusForbidden:           "forbidden",
	http.StatusNotFound:            "not found",
	http.StatusInternalServerError: "internal error",
	http.StatusNotImplemented:      "not implemented",
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

// writeError sends the uniform error envelope for a status code. An
// empty msg picks the default message for the code.
func writeError(w http.ResponseWriter, code int, msg string) {
	if msg == "" {
		msg = defaultMessages[code]
		if msg == "" {
			msg = defaultMessages[http.StatusInternalServerError]
			code = http.StatusInternalServerError
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(errorEnvelope{Error: errorBody{Code: code, Msg: msg}})
}

// writeJSON sends a 200 JSON response.
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
