// Package store implements the recipe-driven JSON document store that
// backs every Janus site.
//
// A Store holds a JSON-like document tree in memory, organized into named
// collections: each top-level key maps either to an ordered sequence of
// records or to a keyed mapping of records. The reserved key "_" never
// holds data; it carries the store's recipes and collection defaults.
//
// Access goes through named recipes, each an authorization-gated query or
// update rule. Query evaluates a recipe's path expression against the
// tree and returns a deep copy of the result; Modify applies a batch of
// {ref, record} pairs to the recipe's target collection, resolving each
// external ref to a record through the recipe's reference field.
//
// Mutations schedule a debounced persist: bursts of writes within the
// save delay coalesce into a single atomic file write. The store is the
// sole owner of its backing file; Load may be called again at any time
// to pick up externally edited content (the @reload action).
//
// # Path expressions
//
// A recipe expression is a dot-separated path over the tree. Segments may
// be literal keys, $name parameters bound at query time, or a
// [field=$name] selector that filters an ordered collection:
//
//	"todos"                     whole collection
//	"settings.$key"             keyed lookup with a bound key
//	"users[username=$username]" first record whose field matches
//	"todos[done=true]"          literal selector, all matches
//
// A selector on an ordered collection yields all matching records unless
// the match field is the collection's reference field, in which case the
// first match wins.
package store
