package tls

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func writePair(t *testing.T, certFile, keyFile string, host string) {
	t.Helper()
	if err := GenerateSelfSigned([]string{host}, time.Hour, certFile, keyFile); err != nil {
		t.Fatalf("GenerateSelfSigned() failed: %v", err)
	}
}

func testReloader(t *testing.T) (*Reloader, string, string) {
	t.Helper()
	dir := t.TempDir()
	certFile := filepath.Join(dir, "tls.crt")
	keyFile := filepath.Join(dir, "tls.key")
	writePair(t, certFile, keyFile, "example.test")
	return NewReloader(certFile, keyFile, nil, nil), certFile, keyFile
}

func TestLoadMissingFiles(t *testing.T) {
	r := NewReloader("/does/not/exist.crt", "/does/not/exist.key", nil, nil)
	if err := r.Load(); err == nil {
		t.Fatal("Load() must fail when the PEM files are missing")
	}
}

func TestGetCertificateWithoutLoad(t *testing.T) {
	r := NewReloader("a.crt", "a.key", nil, nil)
	if _, err := r.GetCertificate(nil); err == nil {
		t.Fatal("handshake must fail before any bundle is loaded")
	}
}

func TestFirstHandshakeBuildsContextOnce(t *testing.T) {
	r, _, _ := testReloader(t)
	if err := r.Load(); err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if got := r.Rebuilds(); got != 0 {
		t.Fatalf("rebuilds before any handshake = %d, want 0", got)
	}

	cert, err := r.GetCertificate(nil)
	if err != nil {
		t.Fatalf("GetCertificate() failed: %v", err)
	}
	if cert == nil || len(cert.Certificate) == 0 {
		t.Fatal("handshake returned no certificate")
	}
	if got := r.Rebuilds(); got != 1 {
		t.Fatalf("rebuilds after first handshake = %d, want 1", got)
	}

	// Later handshakes reuse the cached context.
	for i := 0; i < 10; i++ {
		if _, err := r.GetCertificate(nil); err != nil {
			t.Fatal(err)
		}
	}
	if got := r.Rebuilds(); got != 1 {
		t.Fatalf("rebuilds after repeated handshakes = %d, want 1", got)
	}
}

func TestReloadSwapsCertificate(t *testing.T) {
	r, certFile, keyFile := testReloader(t)
	if err := r.Load(); err != nil {
		t.Fatal(err)
	}
	before, err := r.GetCertificate(nil)
	if err != nil {
		t.Fatal(err)
	}

	writePair(t, certFile, keyFile, "renewed.test")
	r.Reload()

	after, err := r.GetCertificate(nil)
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(before.Certificate[0], after.Certificate[0]) {
		t.Fatal("handshake still serves the old certificate after reload")
	}
}

func TestReloadFailureKeepsOldBundle(t *testing.T) {
	r, certFile, _ := testReloader(t)
	if err := r.Load(); err != nil {
		t.Fatal(err)
	}
	before, err := r.GetCertificate(nil)
	if err != nil {
		t.Fatal(err)
	}

	// A half-written certificate on disk must never replace a working
	// bundle.
	if err := os.WriteFile(certFile, []byte("-----BEGIN CERTIFICATE-----\ngarbage\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	r.Reload()

	after, err := r.GetCertificate(nil)
	if err != nil {
		t.Fatalf("handshake failed after bad reload: %v", err)
	}
	if !bytes.Equal(before.Certificate[0], after.Certificate[0]) {
		t.Fatal("corrupt material replaced the working bundle")
	}
}

// A burst of handshakes racing the changed flag after a reload must
// rebuild the context exactly once.
func TestConcurrentHandshakesRebuildOnce(t *testing.T) {
	r, certFile, keyFile := testReloader(t)
	if err := r.Load(); err != nil {
		t.Fatal(err)
	}
	if _, err := r.GetCertificate(nil); err != nil {
		t.Fatal(err)
	}
	base := r.Rebuilds()

	writePair(t, certFile, keyFile, "renewed.test")
	r.Reload()

	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if _, err := r.GetCertificate(nil); err != nil {
				t.Error(err)
			}
		}()
	}
	close(start)
	wg.Wait()

	if got := r.Rebuilds() - base; got != 1 {
		t.Fatalf("reload triggered %d rebuilds, want exactly 1", got)
	}
}

func TestInspect(t *testing.T) {
	_, certFile, _ := testReloader(t)

	info, err := Inspect(certFile)
	if err != nil {
		t.Fatalf("Inspect() failed: %v", err)
	}
	if len(info.DNSNames) != 1 || info.DNSNames[0] != "example.test" {
		t.Errorf("DNS names = %v, want [example.test]", info.DNSNames)
	}
	if !info.Expiring {
		t.Error("an hour-long certificate should report as expiring")
	}
}

func TestWatchReloadsOnRewrite(t *testing.T) {
	r, certFile, keyFile := testReloader(t)
	if err := r.Load(); err != nil {
		t.Fatal(err)
	}
	before, err := r.GetCertificate(nil)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := r.Watch(ctx); err != nil {
		t.Fatalf("Watch() failed: %v", err)
	}

	writePair(t, certFile, keyFile, "renewed.test")

	deadline := time.After(5 * time.Second)
	for {
		after, err := r.GetCertificate(nil)
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(before.Certificate[0], after.Certificate[0]) {
			return
		}
		select {
		case <-deadline:
			t.Fatal("watcher never picked up the rewritten certificate")
		case <-time.After(50 * time.Millisecond):
		}
	}
}
