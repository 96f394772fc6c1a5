package auth

// User record status values.
const (
	// StatusPending marks a freshly registered account awaiting
	// activation by a one-time code.
	StatusPending = "PENDING"

	// StatusActive marks an account allowed to authenticate.
	StatusActive = "ACTIVE"

	// StatusInactive marks an account disabled by an administrator.
	StatusInactive = "INACTIVE"
)

// AdminGroup members pass every authorization gate.
const AdminGroup = "admin"

// Well-known user record fields.
const (
	// FieldUsername is the record's primary key.
	FieldUsername = "username"

	// FieldCredentials holds the password hash and challenge code.
	// It is stripped before a record is embedded in a token or returned
	// to a client.
	FieldCredentials = "credentials"

	// FieldMember holds the record's group membership list.
	FieldMember = "member"

	// FieldStatus holds the record's lifecycle status.
	FieldStatus = "status"
)

// UserLookup resolves a username to a user record. The record is a
// JSON-like tree as stored in a site's document store; ok is false when
// the user does not exist. Implemented by the site layer as a store
// lookup.
type UserLookup func(username string) (map[string]any, bool)

// Result is the outcome of one authentication attempt. Expected failure
// modes populate Error and leave Authenticated false; they are never
// surfaced as Go errors.
type Result struct {
	// User is the sanitized user record (credentials stripped).
	// Nil unless authentication succeeded.
	User map[string]any

	// Authenticated reports whether the credentials were accepted.
	Authenticated bool

	// Error is the human-readable failure reason, empty on success.
	Error string

	// Username is the name the caller claimed, when parseable.
	Username string

	// Token is a freshly minted bearer token on Basic success, or the
	// verified presented token on Bearer success.
	Token string

	// Method is the recognized authorization method ("basic" or
	// "bearer"), empty when the header was absent or unrecognized.
	// Basic marks an explicit login attempt regardless of outcome.
	Method string
}

// Groups returns the authenticated user's group membership.
func (r *Result) Groups() []string {
	if r.User == nil {
		return nil
	}
	raw, ok := r.User[FieldMember].([]any)
	if !ok {
		return nil
	}
	groups := make([]string, 0, len(raw))
	for _, g := range raw {
		if s, ok := g.(string); ok {
			groups = append(groups, s)
		}
	}
	return groups
}

// IsAdmin reports whether the authenticated user belongs to the admin
// group.
func (r *Result) IsAdmin() bool {
	for _, g := range r.Groups() {
		if g == AdminGroup {
			return true
		}
	}
	return false
}

// Authorize reports whether this result satisfies an allowed-group list,
// using the authenticated user's membership.
func (r *Result) Authorize(allowed []string) bool {
	return Authorize(allowed, r.Groups(), r.Authenticated)
}

// Authorize is the core authorization decision: an unauthenticated
// caller is always refused; a nil allowed list is open to any
// authenticated caller; admin membership passes every gate; otherwise
// the two group lists must intersect.
func Authorize(allowed, member []string, authenticated bool) bool {
	if !authenticated {
		return false
	}
	if allowed == nil {
		return true
	}
	for _, g := range member {
		if g == AdminGroup {
			return true
		}
		for _, want := range allowed {
			if g == want {
				return true
			}
		}
	}
	return false
}

// StripCredentials returns a copy of the record without its credentials
// sub-tree. The server never returns credentials to a client once
// authentication has succeeded.
func StripCredentials(record map[string]any) map[string]any {
	out := make(map[string]any, len(record))
	for k, v := range record {
		if k == FieldCredentials {
			continue
		}
		out[k] = v
	}
	return out
}
