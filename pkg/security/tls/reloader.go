package tls

import (
	"crypto/tls"
	"fmt"
	"os"
	"sync"

	"arkadia-host/janus/pkg/telemetry/logging"
	"arkadia-host/janus/pkg/telemetry/metrics"
)

// SecretBundle holds the PEM content of one key/certificate pair as
// read from disk. The bundle is immutable once built; reloads replace
// it wholesale.
type SecretBundle struct {
	CertPEM []byte
	KeyPEM  []byte
}

// Reloader owns the secret bundle of a single secure listener. It
// separates the two costs the handshake path must never pay: disk I/O
// happens in Load/Reload, and the crypto context is rebuilt from the
// in-memory PEM at most once per reload, by the first handshake that
// observes the changed flag.
type Reloader struct {
	certFile string
	keyFile  string

	logger    *logging.Logger
	collector *metrics.Collector

	mu       sync.Mutex
	bundle   *SecretBundle
	cert     *tls.Certificate
	changed  bool
	rebuilds uint64
}

// NewReloader creates a reloader for the given PEM file paths. Call
// Load before serving; the zero reloader has no certificate.
func NewReloader(certFile, keyFile string, logger *logging.Logger, collector *metrics.Collector) *Reloader {
	return &Reloader{
		certFile:  certFile,
		keyFile:   keyFile,
		logger:    logger,
		collector: collector,
	}
}

// Load reads both PEM files and swaps the in-memory bundle. The new
// material is validated before the swap, so a half-written or corrupt
// pair on disk never replaces a working bundle. The first handshake
// after a successful Load rebuilds the handshake context.
//
// The initial call at startup must be treated as fatal by the caller;
// later calls go through Reload, which is not.
func (r *Reloader) Load() error {
	certPEM, err := os.ReadFile(r.certFile)
	if err != nil {
		return fmt.Errorf("read certificate %s: %w", r.certFile, err)
	}
	keyPEM, err := os.ReadFile(r.keyFile)
	if err != nil {
		return fmt.Errorf("read key %s: %w", r.keyFile, err)
	}

	cert, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return fmt.Errorf("parse key pair: %w", err)
	}
	if err := ValidateCertificate(&cert); err != nil {
		return fmt.Errorf("validate certificate: %w", err)
	}

	r.mu.Lock()
	r.bundle = &SecretBundle{CertPEM: certPEM, KeyPEM: keyPEM}
	r.changed = true
	r.mu.Unlock()

	if r.collector != nil {
		r.collector.RecordTLSReload()
	}
	return nil
}

// Reload re-reads the secret bundle and keeps serving with the old one
// if anything goes wrong. Safe to call from any goroutine.
func (r *Reloader) Reload() {
	if err := r.Load(); err != nil {
		if r.logger != nil {
			r.logger.Error("certificate reload failed, keeping current bundle",
				"cert_file", r.certFile,
				"error", err,
			)
		}
		return
	}
	if r.logger != nil {
		r.logger.Info("certificate bundle reloaded", "cert_file", r.certFile)
	}
}

// GetCertificate is the tls.Config.GetCertificate callback. It never
// touches the disk: if the bundle changed since the last handshake it
// rebuilds the context from the in-memory PEM exactly once, then every
// handshake reuses the cached certificate. The flag check and clear
// happen under the same lock as the rebuild, so a concurrent burst of
// handshakes after a reload builds the new context a single time.
func (r *Reloader) GetCertificate(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.changed {
		cert, err := tls.X509KeyPair(r.bundle.CertPEM, r.bundle.KeyPEM)
		if err != nil {
			// Load validated this material already; keep the previous
			// context rather than failing the handshake.
			if r.cert == nil {
				return nil, fmt.Errorf("rebuild handshake context: %w", err)
			}
			return r.cert, nil
		}
		r.cert = &cert
		r.changed = false
		r.rebuilds++
		if r.collector != nil {
			r.collector.RecordTLSRebuild()
		}
	}

	if r.cert == nil {
		return nil, fmt.Errorf("no certificate loaded for %s", r.certFile)
	}
	return r.cert, nil
}

// Rebuilds reports how many times the handshake context has been
// rebuilt since startup.
func (r *Reloader) Rebuilds() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rebuilds
}

// ServerConfig returns a tls.Config that resolves its certificate per
// handshake through the reloader.
func (r *Reloader) ServerConfig() *tls.Config {
	return &tls.Config{
		MinVersion:     tls.VersionTLS12,
		GetCertificate: r.GetCertificate,
	}
}
