package proxy

import (
	"fmt"
	"net"
	"strings"

	"arkadia-host/janus/pkg/config"
)

// Route is one resolved forwarding target.
type Route struct {
	// Site is the configured name of the backend.
	Site string

	// Target is the backend address in host:port form.
	Target string
}

// RouteTable maps public hostnames to backends. Exact aliases take
// precedence over wildcard aliases; among wildcards the longest suffix
// wins. Tables are immutable after construction.
type RouteTable struct {
	exact    map[string]Route
	wildcard map[string]Route
}

// BuildRoutes constructs a route table from the site configuration.
// A "*.example.com" alias is stored under its parent domain and
// matches any single- or multi-label subdomain, but not the parent
// itself.
func BuildRoutes(sites map[string]config.SiteConfig) (*RouteTable, error) {
	t := &RouteTable{
		exact:    make(map[string]Route),
		wildcard: make(map[string]Route),
	}

	for name, site := range sites {
		route := Route{
			Site:   name,
			Target: fmt.Sprintf("%s:%d", site.Host, site.Port),
		}
		for _, alias := range site.Aliases {
			alias = strings.ToLower(strings.TrimSpace(alias))
			if alias == "" {
				continue
			}
			if parent, ok := strings.CutPrefix(alias, "*."); ok {
				if prev, dup := t.wildcard[parent]; dup {
					return nil, fmt.Errorf("alias %q claimed by both %s and %s", alias, prev.Site, name)
				}
				t.wildcard[parent] = route
				continue
			}
			if prev, dup := t.exact[alias]; dup {
				return nil, fmt.Errorf("alias %q claimed by both %s and %s", alias, prev.Site, name)
			}
			t.exact[alias] = route
		}
	}

	return t, nil
}

// Lookup resolves a Host header to a route. The port, if present, is
// ignored.
func (t *RouteTable) Lookup(host string) (Route, bool) {
	host = strings.ToLower(stripPort(host))
	if host == "" {
		return Route{}, false
	}

	if route, ok := t.exact[host]; ok {
		return route, true
	}

	// Walk parent domains so "*.example.com" catches any depth of
	// subdomain, nearest suffix first.
	rest := host
	for {
		i := strings.IndexByte(rest, '.')
		if i < 0 {
			return Route{}, false
		}
		rest = rest[i+1:]
		if route, ok := t.wildcard[rest]; ok {
			return route, true
		}
	}
}

// Hosts returns every exact alias in the table. Used for diagnostics.
func (t *RouteTable) Hosts() []string {
	hosts := make([]string, 0, len(t.exact))
	for h := range t.exact {
		hosts = append(hosts, h)
	}
	return hosts
}

// stripPort removes a trailing :port from a Host header value, leaving
// bare hostnames and IPv6 literals intact.
func stripPort(host string) string {
	if h, _, err := net.SplitHostPort(host); err == nil {
		return h
	}
	return strings.Trim(host, "[]")
}
