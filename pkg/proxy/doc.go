// Package proxy implements the reverse proxy that fronts all hosted
// sites. It routes inbound requests by Host header to the owning
// backend, serves both a plain and a TLS listener, and keeps a probe
// counter for requests to hostnames nobody claims.
//
// The route table is immutable once built; configuration changes swap
// the whole table through an atomic pointer so concurrent lookups never
// observe a partial update.
package proxy
