package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"arkadia-host/janus/pkg/telemetry/logging"
	"arkadia-host/janus/pkg/telemetry/metrics"
)

// Engine validates credentials and mints bearer tokens. It holds the
// server secret and timing configuration; all per-request state lives in
// the request itself.
type Engine struct {
	secret        []byte
	tokenLifetime time.Duration
	codeLength    int
	codeExpiry    time.Duration
	bcryptCost    int
	logger        *logging.Logger
	collector     *metrics.Collector

	// now is replaceable for expiry boundary tests.
	now func() time.Time
}

// Config configures an Engine.
type Config struct {
	// Secret signs bearer tokens. Required; an empty secret is a fatal
	// misconfiguration.
	Secret string

	// TokenLifetime bounds token validity from issue time.
	TokenLifetime time.Duration

	// CodeLength is the generated challenge code length.
	CodeLength int

	// CodeExpiry is the challenge code validity window.
	CodeExpiry time.Duration

	// BcryptCost is the password hash cost factor, minimum 10.
	BcryptCost int

	// Logger receives operational log lines. Required.
	Logger *logging.Logger

	// Collector receives auth counters. Optional.
	Collector *metrics.Collector
}

// NewEngine creates an Engine. It fails only on misconfiguration; the
// server must refuse to start rather than run without a signing secret.
func NewEngine(cfg Config) (*Engine, error) {
	if cfg.Secret == "" {
		return nil, errors.New("auth: signing secret is required")
	}
	if cfg.TokenLifetime <= 0 {
		cfg.TokenLifetime = 12 * time.Hour
	}
	if cfg.CodeLength <= 0 {
		cfg.CodeLength = 6
	}
	if cfg.CodeExpiry <= 0 {
		cfg.CodeExpiry = 15 * time.Minute
	}
	if cfg.BcryptCost < 10 {
		cfg.BcryptCost = 10
	}
	return &Engine{
		secret:        []byte(cfg.Secret),
		tokenLifetime: cfg.TokenLifetime,
		codeLength:    cfg.CodeLength,
		codeExpiry:    cfg.CodeExpiry,
		bcryptCost:    cfg.BcryptCost,
		logger:        cfg.Logger,
		collector:     cfg.Collector,
		now:           time.Now,
	}, nil
}

// errTokenExpired distinguishes a well-signed but stale token from a
// malformed or forged one.
var errTokenExpired = errors.New("token expired")

// MintToken signs a token embedding the sanitized user record and the
// issue time. Credentials are stripped before embedding.
func (e *Engine) MintToken(user map[string]any) (string, error) {
	now := e.now()
	claims := jwt.MapClaims{
		"iat": now.Unix(),
		"exp": now.Add(e.tokenLifetime).Unix(),
	}
	for k, v := range StripCredentials(user) {
		if k == "iat" || k == "exp" {
			continue
		}
		claims[k] = v
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(e.secret)
}

// VerifyToken checks a token's signature and expiry and returns its
// claims. The signature is re-derived with the engine's secret and
// compared byte for byte by the JWT library; an unverified payload is
// never returned. Expiry uses the explicit exp claim when present, and
// is otherwise derived from iat plus the configured lifetime.
func (e *Engine) VerifyToken(token string) (map[string]any, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return e.secret, nil
	}, jwt.WithTimeFunc(e.now), jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, errTokenExpired
		}
		return nil, err
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("unexpected claims shape")
	}

	// Tokens minted elsewhere may omit exp; derive it from iat.
	if _, hasExp := claims["exp"]; !hasExp {
		iat, ok := claims["iat"].(float64)
		if !ok {
			return nil, errors.New("token has no issue time")
		}
		if e.now().After(time.Unix(int64(iat), 0).Add(e.tokenLifetime)) {
			return nil, errTokenExpired
		}
	}

	return map[string]any(claims), nil
}

// HashPassword hashes a password for storage with the configured bcrypt
// cost.
func (e *Engine) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), e.bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// GenCode generates a challenge code with the engine's configured length
// and expiry.
func (e *Engine) GenCode() Challenge {
	return genCodeAt(e.codeLength, 10, e.codeExpiry, e.now())
}

// CheckCode reports whether a candidate matches the stored challenge on
// the engine's clock. Activation and granted temporary access both go
// through this check.
func (e *Engine) CheckCode(candidate string, stored Challenge) bool {
	return checkCodeAt(candidate, stored, e.now())
}

// Authenticate validates an Authorization header against the user store
// reached through lookup. It never returns a Go error: every expected
// failure mode yields a Result with Authenticated=false and a reason.
func (e *Engine) Authenticate(header string, lookup UserLookup) (result Result) {
	parsed := e.ParseAuthHeader(header)
	defer func() { result.Method = parsed.Method }()

	if parsed.Error != "" && parsed.Method != MethodBearer {
		return e.fail(parsed.Method, Result{Error: parsed.Error, Username: parsed.Username})
	}

	switch parsed.Method {
	case MethodBasic:
		return e.authenticateBasic(parsed, lookup)
	case MethodBearer:
		return e.authenticateBearer(parsed)
	default:
		return e.fail("", Result{Error: parsed.Error})
	}
}

func (e *Engine) authenticateBasic(parsed Parsed, lookup UserLookup) Result {
	result := Result{Username: parsed.Username}

	if lookup == nil {
		return e.fail(MethodBasic, withError(result, reasonInvalid))
	}
	record, ok := lookup(parsed.Username)
	if !ok || len(record) == 0 {
		return e.fail(MethodBasic, withError(result, reasonInvalid))
	}
	if status, defined := record[FieldStatus].(string); defined && status != StatusActive {
		return e.fail(MethodBasic, withError(result, reasonNotActive))
	}

	credentials, _ := record[FieldCredentials].(map[string]any)

	// A currently valid one-time code is accepted in place of the
	// password; otherwise fall through to the slow hash comparison.
	accepted := false
	if challenge, ok := ChallengeFromRecord(credentials); ok {
		accepted = e.CheckCode(parsed.Password, challenge)
	}
	if !accepted {
		hash, _ := credentials["hash"].(string)
		if hash != "" {
			accepted = bcrypt.CompareHashAndPassword([]byte(hash), []byte(parsed.Password)) == nil
		}
	}
	if !accepted {
		return e.fail(MethodBasic, withError(result, reasonInvalid))
	}

	sanitized := StripCredentials(record)
	token, err := e.MintToken(sanitized)
	if err != nil {
		// Minting only fails on marshaling problems; treat as an
		// operational failure, not a client one.
		e.logger.Error("token mint failed", "username", parsed.Username, "error", err)
		return e.fail(MethodBasic, withError(result, reasonInvalid))
	}

	result.User = sanitized
	result.Authenticated = true
	result.Token = token
	if e.collector != nil {
		e.collector.RecordAuth(MethodBasic, "success")
	}
	return result
}

func (e *Engine) authenticateBearer(parsed Parsed) Result {
	if parsed.Error != "" {
		return e.fail(MethodBearer, Result{Error: parsed.Error})
	}

	user := make(map[string]any, len(parsed.Claims))
	for k, v := range parsed.Claims {
		if k == "iat" || k == "exp" {
			continue
		}
		user[k] = v
	}
	username, _ := user[FieldUsername].(string)

	result := Result{
		User:          user,
		Authenticated: true,
		Username:      username,
		Token:         parsed.Token,
	}
	if e.collector != nil {
		e.collector.RecordAuth(MethodBearer, "success")
	}
	return result
}

func (e *Engine) fail(method string, result Result) Result {
	if e.collector != nil && method != "" {
		e.collector.RecordAuth(method, "failure")
	}
	if e.logger != nil {
		e.logger.Debug("authentication failed",
			"method", method,
			"username", result.Username,
			"reason", result.Error,
		)
	}
	return result
}

func withError(result Result, reason string) Result {
	result.Error = reason
	return result
}
