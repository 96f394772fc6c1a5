package store

import (
	"fmt"
	"strings"
)

// Query resolves and evaluates a read recipe. The recipe may be given by
// name or as a Recipe value. An unknown name fails silently with the
// empty result so callers can never probe which recipe names exist.
//
// The returned value is always a deep copy; mutating it cannot alter the
// store. A failed evaluation returns ErrEvalFailed, which callers must
// treat as distinct from an empty valid result.
func (s *Store) Query(recipeRef any, bindings map[string]any, auth AuthContext) (any, error) {
	recipe, ok := s.resolve(recipeRef)
	if !ok {
		return map[string]any{}, nil
	}
	if !auth.Permits(recipe.Auth) {
		return nil, ErrUnauthorized
	}
	if err := rejectReserved(recipe.Expression); err != nil {
		s.logger.Error("recipe evaluation failed",
			"store", s.name, "recipe", recipe.Name, "error", err)
		return nil, ErrEvalFailed
	}

	s.mu.Lock()
	result, err := evalExpression(s.root, recipe.Expression, bindings)
	if err == nil {
		result = deepCopy(result)
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("recipe evaluation failed",
			"store", s.name, "recipe", recipe.Name, "error", err)
		return nil, ErrEvalFailed
	}

	return shapeResult(recipe, result), nil
}

// shapeResult applies the recipe's empty value, field filter, limit, and
// header to an evaluated result.
func shapeResult(recipe Recipe, result any) any {
	if isEmptyResult(result) {
		if recipe.Empty != nil {
			return deepCopy(recipe.Empty)
		}
		return map[string]any{}
	}

	if len(recipe.Filter) > 0 {
		result = applyFilter(result, recipe.Filter)
	}

	if seq, ok := result.([]any); ok && recipe.Limit != 0 {
		if recipe.Limit > 0 && recipe.Limit < len(seq) {
			seq = seq[:recipe.Limit]
		} else if recipe.Limit < 0 && -recipe.Limit < len(seq) {
			seq = seq[len(seq)+recipe.Limit:]
		}
		if recipe.Header != nil {
			seq = append([]any{deepCopy(recipe.Header)}, seq...)
		}
		result = seq
	}
	return result
}

func isEmptyResult(result any) bool {
	switch r := result.(type) {
	case nil:
		return true
	case []any:
		return len(r) == 0
	case map[string]any:
		return len(r) == 0
	}
	return false
}

func applyFilter(result any, fields []string) any {
	keep := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		keep[f] = struct{}{}
	}
	filterRecord := func(m map[string]any) map[string]any {
		out := make(map[string]any, len(keep))
		for k, v := range m {
			if _, ok := keep[k]; ok {
				out[k] = v
			}
		}
		return out
	}

	switch r := result.(type) {
	case map[string]any:
		return filterRecord(r)
	case []any:
		out := make([]any, 0, len(r))
		for _, rec := range r {
			if m, ok := rec.(map[string]any); ok {
				out = append(out, filterRecord(m))
			} else {
				out = append(out, rec)
			}
		}
		return out
	}
	return result
}

// Modify applies a batch of ref/record pairs through an update recipe.
// Each item resolves its external ref against the recipe's collection via
// the reference field: a miss with a record adds, a hit with a record
// merges and replaces, and a missing record deletes. One bad item never
// aborts its siblings; its failure is reported in place.
//
// data may be a pre-validated []BatchItem or a decoded JSON value, which
// must be an ordered sequence of object-or-pair entries; anything else
// fails the whole call with ErrBadBatch.
func (s *Store) Modify(recipeRef any, data any, auth AuthContext) ([]Outcome, error) {
	recipe, ok := s.resolve(recipeRef)
	if !ok {
		return []Outcome{}, nil
	}
	if !auth.Permits(recipe.Auth) {
		return nil, ErrUnauthorized
	}
	if recipe.Collection == "" || recipe.Collection == Reserved {
		return nil, ErrEvalFailed
	}

	items, ok := data.([]BatchItem)
	if !ok {
		var err error
		items, err = ParseBatch(data)
		if err != nil {
			return nil, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	outcomes := make([]Outcome, 0, len(items))
	mutated := false
	for _, item := range items {
		outcome := s.applyItem(recipe, item)
		if outcome.Err == "" {
			mutated = true
		}
		outcomes = append(outcomes, outcome)
	}

	if mutated {
		s.scheduleSave()
	}
	return outcomes, nil
}

// applyItem processes one batch item. Must be called with s.mu held.
// A panic while processing is caught and reported as the item's failure.
func (s *Store) applyItem(recipe Recipe, item BatchItem) (outcome Outcome) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("modify item panicked",
				"store", s.name, "recipe", recipe.Name, "ref", fmt.Sprint(item.Ref), "panic", r)
			outcome = Outcome{Err: fmt.Sprintf("item %v: %v", item.Ref, r)}
		}
	}()

	coll := s.root[recipe.Collection]
	if coll == nil {
		coll = []any{}
		s.root[recipe.Collection] = coll
	}

	idx, key, found := findByReference(coll, recipe.Reference, item.Ref)

	switch {
	case item.Delete && !found:
		return Outcome{Err: fmt.Sprintf("delete %v: not found", item.Ref)}

	case item.Delete:
		switch node := coll.(type) {
		case []any:
			s.root[recipe.Collection] = append(node[:idx:idx], node[idx+1:]...)
		case map[string]any:
			delete(node, key)
		}
		return Outcome{Op: "delete", Ref: item.Ref, Index: idx}

	case found:
		merged := s.mergeWithDefaults(recipe.Collection, item.Ref, recipe.Reference, item.Record, s.recordAt(coll, idx, key))
		switch node := coll.(type) {
		case []any:
			node[idx] = merged
		case map[string]any:
			node[key] = merged
		}
		return Outcome{Op: "change", Ref: item.Ref, Index: idx}

	default:
		merged := s.mergeWithDefaults(recipe.Collection, item.Ref, recipe.Reference, item.Record, nil)
		switch node := coll.(type) {
		case []any:
			s.root[recipe.Collection] = append(node, merged)
			return Outcome{Op: "add", Ref: item.Ref, Index: len(node)}
		case map[string]any:
			node[fmt.Sprint(item.Ref)] = merged
			return Outcome{Op: "add", Ref: item.Ref, Index: -1}
		}
		return Outcome{Err: fmt.Sprintf("add %v: collection is not a sequence or mapping", item.Ref)}
	}
}

func (s *Store) recordAt(coll any, idx int, key string) map[string]any {
	switch node := coll.(type) {
	case []any:
		if m, ok := node[idx].(map[string]any); ok {
			return m
		}
	case map[string]any:
		if m, ok := node[key].(map[string]any); ok {
			return m
		}
	}
	return nil
}

// mergeWithDefaults layers collection defaults, the existing record, and
// the incoming record; the incoming record wins field by field. The
// reference field is backfilled from the ref so an added record is always
// findable again.
func (s *Store) mergeWithDefaults(collection string, ref any, refField string, record, existing map[string]any) map[string]any {
	merged := map[string]any{}
	if def := s.defaults[collection]; def != nil {
		merged = mergeRecords(merged, def)
	}
	if existing != nil {
		merged = mergeRecords(merged, existing)
	}
	merged = mergeRecords(merged, record)
	if refField != "" {
		if _, ok := merged[refField]; !ok {
			merged[refField] = ref
		}
	}
	return merged
}

// Lookup returns a deep copy of the first record in a collection whose
// field matches value. It bypasses recipes and is intended for internal
// collaborators such as the authentication engine's user lookup.
func (s *Store) Lookup(collection, field string, value any) (map[string]any, bool) {
	if collection == Reserved {
		return nil, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, key, found := findByReference(s.root[collection], field, value)
	if !found {
		return nil, false
	}
	rec := s.recordAt(s.root[collection], idx, key)
	if rec == nil {
		return nil, false
	}
	return deepCopy(rec).(map[string]any), true
}

// Replace overwrites (or inserts) the record matching value in a
// collection, bypassing recipes, and schedules a persist. Intended for
// internal collaborators; external writes go through Modify.
func (s *Store) Replace(collection, field string, value any, record map[string]any) error {
	if collection == Reserved {
		return fmt.Errorf("store %s: collection %q is reserved", s.name, Reserved)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	coll := s.root[collection]
	if coll == nil {
		coll = []any{}
		s.root[collection] = coll
	}
	stored := deepCopy(record).(map[string]any)
	if _, ok := stored[field]; !ok {
		stored[field] = value
	}

	idx, key, found := findByReference(coll, field, value)
	switch node := coll.(type) {
	case []any:
		if found {
			node[idx] = stored
		} else {
			s.root[collection] = append(node, stored)
		}
	case map[string]any:
		if found {
			node[key] = stored
		} else {
			node[fmt.Sprint(value)] = stored
		}
	default:
		return fmt.Errorf("store %s: collection %q is not a sequence or mapping", s.name, collection)
	}

	s.scheduleSave()
	return nil
}

// resolve maps a string or Recipe reference to a Recipe.
func (s *Store) resolve(recipeRef any) (Recipe, bool) {
	switch r := recipeRef.(type) {
	case string:
		return s.Recipe(r)
	case Recipe:
		return r, true
	case *Recipe:
		if r != nil {
			return *r, true
		}
	}
	return Recipe{}, false
}

// rejectReserved refuses expressions rooted at the reserved section so
// recipes and defaults are never exposed as data.
func rejectReserved(expr string) error {
	trimmed := strings.TrimSpace(expr)
	if trimmed == Reserved || strings.HasPrefix(trimmed, Reserved+".") || strings.HasPrefix(trimmed, Reserved+"[") {
		return fmt.Errorf("expression targets reserved section")
	}
	return nil
}
