// Package middleware holds the HTTP middleware every site handler
// chain runs: request identification, request logging, and panic
// recovery.
package middleware
