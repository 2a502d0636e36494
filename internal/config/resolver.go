package config

import (
	"net/url"
	"slices"
	"strings"
)

// Resolve returns a sorted list of module IDs from the configuration.
// The deterministic order ensures consistent module loading.
func Resolve(cfg *Config) []string {
	ids := make([]string, 0, len(cfg.Modules))
	for id := range cfg.Modules {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// RealtimeURL returns client.realtime_url, or derives the push endpoint
// from client.backend_url when unset.
func RealtimeURL(c ClientConfig) string {
	if c.RealtimeURL != "" {
		return c.RealtimeURL
	}
	u, err := url.Parse(c.BackendURL)
	if err != nil || u.Host == "" {
		return ""
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws/messages"
	u.RawQuery = ""
	return u.String()
}
