// Package tls manages the certificate material of the secure proxy
// listener. A Reloader owns the PEM secret bundle for one listener,
// re-reads it on demand without restarting the listening socket, and
// rebuilds the handshake context lazily on the first handshake after a
// reload.
package tls
