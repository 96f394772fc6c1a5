package auth

import (
	"encoding/base64"
	"strings"
)

// Authorization methods.
const (
	MethodBasic  = "basic"
	MethodBearer = "bearer"
)

// Parsed is the decomposed Authorization header. An unsupported method
// or malformed header sets Error and populates nothing else; a bearer
// token whose signature failed verification has nil Claims, because an
// unverified payload must never be trusted.
type Parsed struct {
	// Method is "basic" or "bearer" when recognized.
	Method string

	// Token is the raw credential part of the header.
	Token string

	// Username and Password are set for a well-formed basic header.
	Username string
	Password string

	// Claims is the verified bearer payload. Nil when verification
	// failed or the method is not bearer.
	Claims map[string]any

	// Expired reports that a bearer token was well signed but past its
	// expiry.
	Expired bool

	// Error is the human-readable parse failure, empty on success.
	Error string
}

// Human-readable failure reasons shared across the engine.
const (
	reasonMissing     = "missing credentials"
	reasonUnsupported = "unsupported authorization method"
	reasonMalformed   = "malformed authorization header"
	reasonInvalid     = "invalid credentials"
	reasonNotActive   = "account is not active"
	reasonBadToken    = "invalid token"
	reasonExpired     = "session expired, please log in again"
)

// ParseAuthHeader splits an Authorization header into method and
// credential, decoding basic credentials and verifying bearer tokens
// against the engine's secret.
func (e *Engine) ParseAuthHeader(header string) Parsed {
	header = strings.TrimSpace(header)
	if header == "" {
		return Parsed{Error: reasonMissing}
	}

	method, token, found := strings.Cut(header, " ")
	if !found || strings.TrimSpace(token) == "" {
		return Parsed{Error: reasonMalformed}
	}
	token = strings.TrimSpace(token)

	switch strings.ToLower(method) {
	case MethodBasic:
		decoded, err := base64.StdEncoding.DecodeString(token)
		if err != nil {
			return Parsed{Method: MethodBasic, Error: reasonMalformed}
		}
		username, password, found := strings.Cut(string(decoded), ":")
		if !found || username == "" {
			return Parsed{Method: MethodBasic, Error: reasonMalformed}
		}
		return Parsed{
			Method:   MethodBasic,
			Token:    token,
			Username: username,
			Password: password,
		}

	case MethodBearer:
		claims, err := e.VerifyToken(token)
		if err != nil {
			p := Parsed{Method: MethodBearer, Token: token, Error: reasonBadToken}
			if err == errTokenExpired {
				p.Expired = true
				p.Error = reasonExpired
			}
			return p
		}
		return Parsed{Method: MethodBearer, Token: token, Claims: claims}

	default:
		return Parsed{Error: reasonUnsupported}
	}
}
