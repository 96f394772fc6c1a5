//go:build integration

package test

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"arkadia-host/janus/pkg/config"
	"arkadia-host/janus/pkg/proxy"
	"arkadia-host/janus/pkg/security/auth"
	"arkadia-host/janus/pkg/site"
	"arkadia-host/janus/pkg/store"
	"arkadia-host/janus/pkg/telemetry/logging"
	"arkadia-host/janus/pkg/telemetry/metrics"
)

// freePort grabs an ephemeral port. There is a small window between
// closing the probe listener and the server binding it, which is
// acceptable for an integration test.
func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func waitReady(t *testing.T, url string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url)
		if err == nil {
			resp.Body.Close()
			return
		}
		time.Sleep(25 * time.Millisecond)
	}
	t.Fatalf("server at %s never became ready", url)
}

// TestFullStack starts a site backend and the proxy on real ports and
// drives requests through the proxy by Host header.
func TestFullStack(t *testing.T) {
	logger := logging.Discard()
	collector := metrics.NewCollector(&config.MetricsConfig{Enabled: true}, nil)

	engine, err := auth.NewEngine(auth.Config{
		Secret:        "integration-secret",
		TokenLifetime: time.Hour,
		Logger:        logger,
	})
	if err != nil {
		t.Fatal(err)
	}
	hash, err := engine.HashPassword("hunter2")
	if err != nil {
		t.Fatal(err)
	}

	st := store.New(store.Options{Name: "www", Logger: logger, Collector: collector})
	if err := st.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	err = st.SetRoot(map[string]any{
		"_": map[string]any{
			"recipes": map[string]any{
				"news": map[string]any{"expression": "news"},
			},
		},
		"news": []any{
			map[string]any{"title": "up and running"},
		},
		"users": []any{
			map[string]any{
				"username":    "ada",
				"status":      "ACTIVE",
				"member":      "staff",
				"credentials": map[string]any{"hash": hash},
			},
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	sitePort := freePort(t)
	proxyPort := freePort(t)

	siteCfg := config.SiteConfig{
		Host:    "127.0.0.1",
		Port:    sitePort,
		Aliases: []string{"example.test", "*.example.test"},
	}
	s, err := site.New("www", siteCfg, st, engine, site.Deps{
		Logger:    logger,
		Collector: collector,
		Version:   "integration",
	})
	if err != nil {
		t.Fatal(err)
	}

	proxyCfg := config.ProxyConfig{
		ListenAddress:   fmt.Sprintf("127.0.0.1:%d", proxyPort),
		ShutdownTimeout: 5 * time.Second,
		Verbose:         true,
	}
	p, err := proxy.New(proxyCfg, map[string]config.SiteConfig{"www": siteCfg}, logger, collector, nil)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errChan := make(chan error, 2)
	go func() { errChan <- s.Run(ctx) }()
	go func() { errChan <- p.Run(ctx) }()

	base := fmt.Sprintf("http://127.0.0.1:%d", proxyPort)
	waitReady(t, base+"/!ping") // routes by default Host, reaching noRoute is fine

	t.Run("recipe query through proxy", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, base+"/$news", nil)
		req.Host = "example.test"
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want 200", resp.StatusCode)
		}
		var got []map[string]any
		if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
			t.Fatal(err)
		}
		if len(got) != 1 || got[0]["title"] != "up and running" {
			t.Fatalf("unexpected body: %v", got)
		}
	})

	t.Run("wildcard alias routes", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, base+"/!ping", nil)
		req.Host = "api.example.test"
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want 200", resp.StatusCode)
		}
	})

	t.Run("unknown host misdirected", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, base+"/", nil)
		req.Host = "stranger.invalid"
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusMisdirectedRequest {
			t.Fatalf("status = %d, want 421", resp.StatusCode)
		}
	})

	t.Run("login issues bearer token", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, base+"/!ping", nil)
		req.Host = "example.test"
		req.SetBasicAuth("ada", "hunter2")
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		authz := resp.Header.Get("Authorization")
		if !strings.HasPrefix(authz, "Bearer ") {
			t.Fatalf("Authorization = %q, want fresh bearer token", authz)
		}

		req, _ = http.NewRequest(http.MethodGet, base+"/!ping", nil)
		req.Host = "example.test"
		req.Header.Set("Authorization", authz)
		resp, err = http.DefaultClient.Do(req)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("bearer request status = %d, want 200", resp.StatusCode)
		}
	})

	cancel()
	for i := 0; i < 2; i++ {
		select {
		case err := <-errChan:
			if err != nil {
				t.Errorf("listener returned error: %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Fatal("listener did not stop")
		}
	}
}
