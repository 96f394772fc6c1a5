package store

import (
	"fmt"
	"strconv"
	"strings"
)

// segment is one parsed step of a path expression: a key, an optional
// [field=value] selector, or both.
type segment struct {
	key      string
	selField string
	selValue string
	hasSel   bool
}

// parseExpression splits a path expression into segments. Dots inside a
// bracketed selector do not split.
func parseExpression(expr string) ([]segment, error) {
	if strings.TrimSpace(expr) == "" {
		return nil, fmt.Errorf("empty expression")
	}

	var segs []segment
	depth := 0
	start := 0
	raw := make([]string, 0, 4)
	for i, r := range expr {
		switch r {
		case '[':
			depth++
		case ']':
			depth--
			if depth < 0 {
				return nil, fmt.Errorf("unbalanced brackets in %q", expr)
			}
		case '.':
			if depth == 0 {
				raw = append(raw, expr[start:i])
				start = i + 1
			}
		}
	}
	if depth != 0 {
		return nil, fmt.Errorf("unbalanced brackets in %q", expr)
	}
	raw = append(raw, expr[start:])

	for _, part := range raw {
		var seg segment
		if open := strings.IndexByte(part, '['); open >= 0 {
			if !strings.HasSuffix(part, "]") {
				return nil, fmt.Errorf("malformed selector in %q", part)
			}
			sel := part[open+1 : len(part)-1]
			eq := strings.IndexByte(sel, '=')
			if eq <= 0 {
				return nil, fmt.Errorf("selector %q must have the form field=value", sel)
			}
			seg.key = part[:open]
			seg.selField = sel[:eq]
			seg.selValue = sel[eq+1:]
			seg.hasSel = true
		} else {
			seg.key = part
		}
		if seg.key == "" {
			return nil, fmt.Errorf("empty path segment in %q", part)
		}
		segs = append(segs, seg)
	}
	return segs, nil
}

// evalExpression evaluates a parsed path expression against the document
// tree with the given named bindings. A missing key yields nil (an empty
// result), while a structural mismatch or unresolved binding is an error.
func evalExpression(root map[string]any, expr string, bindings map[string]any) (any, error) {
	segs, err := parseExpression(expr)
	if err != nil {
		return nil, err
	}

	var cur any = root
	for i, seg := range segs {
		key, err := resolveParam(seg.key, bindings)
		if err != nil {
			return nil, err
		}

		switch node := cur.(type) {
		case map[string]any:
			cur = node[key]
		case []any:
			idx, err := strconv.Atoi(key)
			if err != nil {
				return nil, fmt.Errorf("segment %q indexes a sequence but is not a number", key)
			}
			if idx < 0 || idx >= len(node) {
				cur = nil
			} else {
				cur = node[idx]
			}
		case nil:
			return nil, nil
		default:
			return nil, fmt.Errorf("segment %q descends into a scalar", key)
		}

		if !seg.hasSel {
			continue
		}

		seq, ok := cur.([]any)
		if !ok {
			if cur == nil {
				return nil, nil
			}
			return nil, fmt.Errorf("selector on %q requires an ordered collection", key)
		}
		want, err := resolveParam(seg.selValue, bindings)
		if err != nil {
			return nil, err
		}
		matches := make([]any, 0)
		for _, rec := range seq {
			m, ok := rec.(map[string]any)
			if !ok {
				continue
			}
			if looseEqual(m[seg.selField], want) {
				matches = append(matches, m)
			}
		}
		// Mid-path selectors continue through the first match.
		if i < len(segs)-1 {
			if len(matches) == 0 {
				return nil, nil
			}
			cur = matches[0]
		} else {
			cur = matches
		}
	}
	return cur, nil
}

// resolveParam substitutes a $name token with its binding. Literals pass
// through unchanged.
func resolveParam(token string, bindings map[string]any) (string, error) {
	if !strings.HasPrefix(token, "$") {
		return token, nil
	}
	name := token[1:]
	val, ok := bindings[name]
	if !ok {
		return "", fmt.Errorf("unbound parameter $%s", name)
	}
	return fmt.Sprint(val), nil
}

// looseEqual compares two tree values by their canonical string form.
// JSON decoding yields float64 for every number, so "7" and 7 and 7.0
// must compare equal when a binding arrives from a URL.
func looseEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return canonical(a) == canonical(b)
}

func canonical(v any) string {
	if f, ok := v.(float64); ok && f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return fmt.Sprint(v)
}

// deepCopy returns a structural copy of a JSON-like tree. Query results
// are always copied so callers can never mutate the store through a
// returned reference.
func deepCopy(v any) any {
	switch node := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(node))
		for k, child := range node {
			out[k] = deepCopy(child)
		}
		return out
	case []any:
		out := make([]any, len(node))
		for i, child := range node {
			out[i] = deepCopy(child)
		}
		return out
	default:
		return v
	}
}

// mergeRecords merges src into dst field by field, recursively; src wins
// on conflict. Neither input is mutated.
func mergeRecords(dst, src map[string]any) map[string]any {
	out := make(map[string]any, len(dst)+len(src))
	for k, v := range dst {
		out[k] = deepCopy(v)
	}
	for k, v := range src {
		if sub, ok := v.(map[string]any); ok {
			if existing, ok := out[k].(map[string]any); ok {
				out[k] = mergeRecords(existing, sub)
				continue
			}
		}
		out[k] = deepCopy(v)
	}
	return out
}

// findByReference resolves an external ref to a record inside a
// collection. Ordered collections are scanned for the first record whose
// reference field matches; keyed collections use the ref as the key.
// The returned index is -1 for keyed collections.
func findByReference(coll any, refField string, ref any) (index int, key string, found bool) {
	switch node := coll.(type) {
	case []any:
		for i, rec := range node {
			m, ok := rec.(map[string]any)
			if !ok {
				continue
			}
			if looseEqual(m[refField], ref) {
				return i, "", true
			}
		}
	case map[string]any:
		k := fmt.Sprint(ref)
		if _, ok := node[k]; ok {
			return -1, k, true
		}
	}
	return -1, "", false
}
