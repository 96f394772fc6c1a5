package auth

import (
	"crypto/rand"
	"math/big"
	"time"
)

// Challenge is a short-lived one-time code. Timestamps are milliseconds
// since epoch; Expiry is a duration in milliseconds. The same check is
// shared by account activation and administrator-granted temporary
// access, so expiry semantics can never diverge between the two flows.
type Challenge struct {
	// Code is the random code text.
	Code string `json:"code"`

	// Issued is the issue time in milliseconds since epoch.
	Issued int64 `json:"issued"`

	// Expiry is the validity window in milliseconds.
	Expiry int64 `json:"expiry"`
}

// codeAlphabet holds the digits used per numeric base.
const codeAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// GenCode generates a random one-time code of the given length, using
// digits of the given base (2..36), valid for the given duration.
func GenCode(size, base int, expiry time.Duration) Challenge {
	return genCodeAt(size, base, expiry, time.Now())
}

// genCodeAt stamps the challenge against an explicit clock so expiry
// boundaries are testable.
func genCodeAt(size, base int, expiry time.Duration, now time.Time) Challenge {
	if size <= 0 {
		size = 6
	}
	if base < 2 || base > len(codeAlphabet) {
		base = 10
	}

	buf := make([]byte, size)
	max := big.NewInt(int64(base))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand never fails on supported platforms; a zero
			// digit keeps the code well formed if it somehow does.
			buf[i] = codeAlphabet[0]
			continue
		}
		buf[i] = codeAlphabet[n.Int64()]
	}

	return Challenge{
		Code:   string(buf),
		Issued: now.UnixMilli(),
		Expiry: expiry.Milliseconds(),
	}
}

// CheckCode reports whether a candidate matches the stored challenge and
// the challenge has not expired. An empty stored code never matches.
func CheckCode(candidate string, stored Challenge) bool {
	return checkCodeAt(candidate, stored, time.Now())
}

func checkCodeAt(candidate string, stored Challenge, now time.Time) bool {
	if stored.Code == "" || candidate != stored.Code {
		return false
	}
	return now.UnixMilli() < stored.Issued+stored.Expiry
}

// ChallengeFromRecord decodes the challenge sub-tree of a user record's
// credentials, as stored in a document store.
func ChallengeFromRecord(credentials map[string]any) (Challenge, bool) {
	raw, ok := credentials["code"].(map[string]any)
	if !ok {
		return Challenge{}, false
	}
	code, _ := raw["code"].(string)
	issued, issuedOK := raw["issued"].(float64)
	expiry, expiryOK := raw["expiry"].(float64)
	if code == "" || !issuedOK || !expiryOK {
		return Challenge{}, false
	}
	return Challenge{Code: code, Issued: int64(issued), Expiry: int64(expiry)}, true
}

// ToRecord encodes the challenge as a JSON-like tree for storage inside
// a user record's credentials.
func (c Challenge) ToRecord() map[string]any {
	return map[string]any{
		"code":   c.Code,
		"issued": float64(c.Issued),
		"expiry": float64(c.Expiry),
	}
}
