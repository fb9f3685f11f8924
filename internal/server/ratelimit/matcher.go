package ratelimit

import "strings"

var unlimited = &EndpointConfig{}

// MatchEndpoint finds the tier for a request. Exact paths win over prefix
// entries. It returns nil when the default limit applies.
func MatchEndpoint(path, method string, configs []EndpointConfig) *EndpointConfig {
	if path == "/health" || strings.HasPrefix(path, "/webhooks/") {
		return unlimited
	}

	for i := range configs {
		if configs[i].Path == path && configs[i].Method == method {
			return &configs[i]
		}
	}
	for i := range configs {
		c := &configs[i]
		if c.Method == method && strings.HasSuffix(c.Path, "/") && strings.HasPrefix(path, c.Path) {
			return c
		}
	}
	return nil
}
