// Package site implements the backend application each hosted site
// runs behind the reverse proxy. A Site owns one document store and
// serves the convention-based HTTP surface: a reserved first path
// segment selects the plane ($ data, @ action, ~ file, ! info) and up
// to five positional parameters follow. Requests claiming no known
// keyword fall through to static file serving.
package site
