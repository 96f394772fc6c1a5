package logging

import "context"

// Context keys for common log fields.
type contextKey string

const (
	// RequestIDKey is the context key for request IDs.
	RequestIDKey contextKey = "request_id"

	// UsernameKey is the context key for authenticated usernames.
	UsernameKey contextKey = "username"

	// SiteKey is the context key for site names.
	SiteKey contextKey = "site"
)

// WithRequestID adds a request ID to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetRequestID retrieves the request ID from the context.
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// WithUsername adds an authenticated username to the context.
func WithUsername(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, UsernameKey, username)
}

// GetUsername retrieves the authenticated username from the context.
func GetUsername(ctx context.Context) string {
	if username, ok := ctx.Value(UsernameKey).(string); ok {
		return username
	}
	return ""
}

// WithSite adds a site name to the context.
func WithSite(ctx context.Context, site string) context.Context {
	return context.WithValue(ctx, SiteKey, site)
}

// GetSite retrieves the site name from the context.
func GetSite(ctx context.Context) string {
	if site, ok := ctx.Value(SiteKey).(string); ok {
		return site
	}
	return ""
}

// extractContextFields collects the known context fields as alternating
// key/value log arguments.
func extractContextFields(ctx context.Context) []any {
	var fields []any
	if v := GetRequestID(ctx); v != "" {
		fields = append(fields, "request_id", v)
	}
	if v := GetUsername(ctx); v != "" {
		fields = append(fields, "username", v)
	}
	if v := GetSite(ctx); v != "" {
		fields = append(fields, "site", v)
	}
	return fields
}
