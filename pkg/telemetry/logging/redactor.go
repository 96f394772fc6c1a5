package logging

import (
	"log/slog"
	"regexp"
	"strings"
)

// Redactor redacts credentials from log attributes. Attribute keys that
// plainly name a secret are replaced wholesale; string values are scanned
// for embedded authorization headers and bearer tokens.
type Redactor struct {
	secretKeys map[string]struct{}
	patterns   []*redactPattern
}

type redactPattern struct {
	regex       *regexp.Regexp
	replacement string
}

// Redacted is the placeholder written in place of redacted values.
const Redacted = "[REDACTED]"

// NewRedactor creates a Redactor with the built-in credential patterns.
func NewRedactor() *Redactor {
	r := &Redactor{
		secretKeys: map[string]struct{}{
			"password":      {},
			"secret":        {},
			"hash":          {},
			"authorization": {},
			"token":         {},
			"code":          {},
		},
		patterns: []*redactPattern{
			{
				regex:       regexp.MustCompile(`(?i)(basic|bearer)\s+[A-Za-z0-9+/_.=-]+`),
				replacement: "$1 " + Redacted,
			},
			{
				regex:       regexp.MustCompile(`eyJ[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+`),
				replacement: Redacted,
			},
		},
	}
	return r
}

// ReplaceAttr is a slog.HandlerOptions.ReplaceAttr function that applies
// redaction to every logged attribute.
func (r *Redactor) ReplaceAttr(groups []string, a slog.Attr) slog.Attr {
	if _, secret := r.secretKeys[strings.ToLower(a.Key)]; secret {
		return slog.String(a.Key, Redacted)
	}
	if a.Value.Kind() == slog.KindString {
		return slog.String(a.Key, r.RedactString(a.Value.String()))
	}
	return a
}

// RedactString scans a string value for embedded credentials and replaces
// them with the redaction placeholder.
func (r *Redactor) RedactString(s string) string {
	for _, p := range r.patterns {
		s = p.regex.ReplaceAllString(s, p.replacement)
	}
	return s
}
