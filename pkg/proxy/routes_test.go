package proxy

import (
	"testing"

	"arkadia-host/janus/pkg/config"
)

func testSites() map[string]config.SiteConfig {
	return map[string]config.SiteConfig{
		"www": {
			Host:    "127.0.0.1",
			Port:    3001,
			Aliases: []string{"example.com", "www.example.com", "*.example.com"},
		},
		"ops": {
			Host:    "127.0.0.1",
			Port:    3002,
			Aliases: []string{"ops.example.com", "*.internal.example.com"},
		},
	}
}

func TestLookup(t *testing.T) {
	table, err := BuildRoutes(testSites())
	if err != nil {
		t.Fatalf("BuildRoutes() failed: %v", err)
	}

	tests := []struct {
		host     string
		wantSite string
		wantOK   bool
	}{
		{"example.com", "www", true},
		{"www.example.com", "www", true},
		// Exact alias beats the wildcard covering the same name.
		{"ops.example.com", "ops", true},
		// Wildcard catches unclaimed subdomains at any depth.
		{"blog.example.com", "www", true},
		{"a.b.example.com", "www", true},
		// Nearest wildcard suffix wins.
		{"db.internal.example.com", "ops", true},
		// Host headers carry ports; IPv6 literals carry brackets.
		{"example.com:443", "www", true},
		{"EXAMPLE.com", "www", true},
		{"other.com", "", false},
		{"com", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			route, ok := table.Lookup(tt.host)
			if ok != tt.wantOK {
				t.Fatalf("Lookup(%q) ok = %v, want %v", tt.host, ok, tt.wantOK)
			}
			if ok && route.Site != tt.wantSite {
				t.Errorf("Lookup(%q) site = %q, want %q", tt.host, route.Site, tt.wantSite)
			}
		})
	}
}

// A wildcard alias never matches its own parent domain.
func TestWildcardExcludesParent(t *testing.T) {
	table, err := BuildRoutes(map[string]config.SiteConfig{
		"www": {Host: "127.0.0.1", Port: 3001, Aliases: []string{"*.example.com"}},
	})
	if err != nil {
		t.Fatal(err)
	}

	if _, ok := table.Lookup("example.com"); ok {
		t.Error("parent domain matched its own wildcard")
	}
	if _, ok := table.Lookup("sub.example.com"); !ok {
		t.Error("subdomain did not match the wildcard")
	}
}

func TestDuplicateAliasRejected(t *testing.T) {
	sites := map[string]config.SiteConfig{
		"a": {Host: "127.0.0.1", Port: 3001, Aliases: []string{"example.com"}},
		"b": {Host: "127.0.0.1", Port: 3002, Aliases: []string{"example.com"}},
	}
	if _, err := BuildRoutes(sites); err == nil {
		t.Fatal("two sites claiming one alias must be rejected")
	}
}

func TestStripPort(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"example.com", "example.com"},
		{"example.com:8080", "example.com"},
		{"[::1]:8080", "::1"},
		{"[::1]", "::1"},
	}
	for _, tt := range tests {
		if got := stripPort(tt.in); got != tt.want {
			t.Errorf("stripPort(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
