package store

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Reserved is the top-level key holding recipes and defaults.
// It never holds a data collection.
const Reserved = "_"

// Recipe is a named, authorization-gated query or update rule.
// Recipes are immutable once loaded; they are looked up by name from the
// reserved "_" section of the document tree.
type Recipe struct {
	// Name is the recipe's lookup key. Filled from the recipes map key
	// during load.
	Name string `json:"name,omitempty"`

	// Expression is the path query evaluated against the document tree.
	Expression string `json:"expression,omitempty"`

	// Auth lists the group names allowed to invoke the recipe.
	// Absent means the recipe is open.
	Auth []string `json:"auth,omitempty"`

	// Limit truncates ordered results: positive keeps the first N
	// records, negative keeps the last |N|.
	Limit int `json:"limit,omitempty"`

	// Header is prepended to a limited ordered result.
	Header any `json:"header,omitempty"`

	// Empty is returned when the expression yields nothing.
	Empty any `json:"empty,omitempty"`

	// Filter keeps only the listed fields of each returned record.
	Filter []string `json:"filter,omitempty"`

	// Reference is the record field an external ref is matched against
	// when Modify resolves a batch item to a record index.
	Reference string `json:"reference,omitempty"`

	// Collection is the target collection for Modify.
	Collection string `json:"collection,omitempty"`

	// Root is the directory file recipes resolve paths against.
	Root string `json:"root,omitempty"`

	// Params names the positional URL parameters, in order, that a GET
	// without a query string binds.
	Params []string `json:"params,omitempty"`
}

// AuthContext carries a caller's authorization for recipe gating.
// A trusted context passes every gate; otherwise a recipe's auth list is
// satisfied when it intersects the caller's groups.
type AuthContext struct {
	// Trusted grants unconditional access. Set for internal callers and
	// for authenticated members of the admin group.
	Trusted bool

	// Groups is the caller's group membership.
	Groups []string
}

// TrustedContext is the authorization context for internal callers.
var TrustedContext = AuthContext{Trusted: true}

// Permits reports whether this context satisfies a recipe's auth list.
// A nil list is open to everyone, including unauthenticated callers.
func (a AuthContext) Permits(allowed []string) bool {
	if allowed == nil {
		return true
	}
	if a.Trusted {
		return true
	}
	for _, g := range a.Groups {
		for _, want := range allowed {
			if g == want {
				return true
			}
		}
	}
	return false
}

// BatchItem is one validated entry of a Modify batch: an external ref and
// either a replacement record or a delete marker.
type BatchItem struct {
	// Ref is the external key resolved through the recipe's reference.
	Ref any

	// Record is the replacement payload. Nil with Delete set signals
	// removal.
	Record map[string]any

	// Delete marks the item as a removal.
	Delete bool
}

// Outcome reports the result of one Modify batch item. A failed item
// carries the failure text in Err and nothing else; it never aborts
// sibling items.
type Outcome struct {
	// Op is "add", "change", or "delete".
	Op string

	// Ref is the item's external key.
	Ref any

	// Index is the record's position (ordered collections) or -1 for
	// keyed collections.
	Index int

	// Err is the per-item failure text; empty on success.
	Err string
}

// MarshalJSON encodes a successful outcome as the [op, ref, index] tuple
// clients expect, and a failed outcome as its bare error string.
func (o Outcome) MarshalJSON() ([]byte, error) {
	if o.Err != "" {
		return json.Marshal(o.Err)
	}
	return json.Marshal([]any{o.Op, o.Ref, o.Index})
}

// Errors returned by Store operations.
var (
	// ErrUnauthorized reports a recipe auth gate failure.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrEvalFailed reports a recipe expression that failed to execute.
	// Callers must treat it as distinct from an empty valid result.
	ErrEvalFailed = errors.New("recipe evaluation failed")

	// ErrBadBatch reports a Modify payload that is not an ordered
	// sequence of ref/record entries. The whole call fails fast.
	ErrBadBatch = errors.New("malformed batch payload")
)

// ParseBatch validates a decoded JSON payload as a Modify batch. Each
// entry must be either an object {"ref": r, "record": rec} or a two-element
// [ref, record] pair; a null or absent record marks a delete. Any other
// shape fails the whole batch with ErrBadBatch.
func ParseBatch(data any) ([]BatchItem, error) {
	seq, ok := data.([]any)
	if !ok {
		return nil, ErrBadBatch
	}

	items := make([]BatchItem, 0, len(seq))
	for _, entry := range seq {
		switch e := entry.(type) {
		case map[string]any:
			ref, ok := e["ref"]
			if !ok {
				return nil, ErrBadBatch
			}
			item := BatchItem{Ref: ref}
			rec, present := e["record"]
			if !present || rec == nil {
				item.Delete = true
			} else {
				m, ok := rec.(map[string]any)
				if !ok {
					return nil, ErrBadBatch
				}
				item.Record = m
			}
			items = append(items, item)
		case []any:
			if len(e) < 1 || len(e) > 2 {
				return nil, ErrBadBatch
			}
			item := BatchItem{Ref: e[0]}
			if len(e) < 2 || e[1] == nil {
				item.Delete = true
			} else {
				m, ok := e[1].(map[string]any)
				if !ok {
					return nil, ErrBadBatch
				}
				item.Record = m
			}
			items = append(items, item)
		default:
			return nil, ErrBadBatch
		}
	}
	return items, nil
}

// reservedSection is the decoded shape of the "_" key.
type reservedSection struct {
	Recipes  map[string]Recipe         `json:"recipes"`
	Defaults map[string]map[string]any `json:"defaults"`
	Schema   map[string]any            `json:"schema"`
}

func decodeReserved(raw any) (reservedSection, error) {
	var section reservedSection
	if raw == nil {
		return section, nil
	}
	// Round-trip through JSON to reuse struct decoding on the already
	// parsed tree.
	buf, err := json.Marshal(raw)
	if err != nil {
		return section, fmt.Errorf("invalid reserved section: %w", err)
	}
	if err := json.Unmarshal(buf, &section); err != nil {
		return section, fmt.Errorf("invalid reserved section: %w", err)
	}
	for name, r := range section.Recipes {
		r.Name = name
		section.Recipes[name] = r
	}
	return section, nil
}
