// Package auth implements the Janus authentication engine.
//
// The engine is stateless across requests: every piece of state lives
// either in the signed bearer token a client presents or in the user
// record a lookup collaborator returns. Basic credentials are validated
// against the stored bcrypt hash or a one-time challenge code; success
// mints a fresh HS256 token embedding the user record with its
// credentials stripped. Bearer tokens are verified by signature and
// expiry, with an expired token reported distinctly from a malformed one
// so clients know when to re-login.
//
// Expected failures (bad password, unknown user, expired token) are
// never errors in the Go sense: Authenticate always returns a Result
// with Authenticated=false and a human-readable reason. Only secret
// misconfiguration is fatal, and only at construction time.
package auth
