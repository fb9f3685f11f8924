package ratelimit

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// EndpointConfig is the rate for one endpoint tier.
type EndpointConfig struct {
	Path   string        // exact path, or a prefix when it ends with "/"
	Method string
	Limit  int           // requests per Window; 0 means unlimited
	Window time.Duration
	Burst  int           // defaults to Limit
}

// Config holds rate limiting configuration.
type Config struct {
	Enabled         bool
	DefaultLimit    int
	DefaultWindow   time.Duration
	CleanupInterval time.Duration
	IdleAfter       time.Duration
	Whitelist       map[string]bool
	Blacklist       map[string]bool
	EndpointConfigs []EndpointConfig
}

// LoadConfig reads RATE_LIMIT_* environment variables.
func LoadConfig() *Config {
	return loadConfig(os.LookupEnv)
}

func loadConfig(lookup func(string) (string, bool)) *Config {
	env := envReader(lookup)
	if !env.bool("RATE_LIMIT_ENABLED", true) {
		return &Config{Enabled: false}
	}
	return &Config{
		Enabled:         true,
		DefaultLimit:    env.int("RATE_LIMIT_DEFAULT_LIMIT", 300),
		DefaultWindow:   env.duration("RATE_LIMIT_DEFAULT_WINDOW", time.Minute),
		CleanupInterval: env.duration("RATE_LIMIT_CLEANUP_INTERVAL", 5*time.Minute),
		IdleAfter:       time.Hour,
		Whitelist:       parseIPList(env.string("RATE_LIMIT_WHITELIST", "")),
		Blacklist:       parseIPList(env.string("RATE_LIMIT_BLACKLIST", "")),
		EndpointConfigs: DefaultEndpointConfigs(),
	}
}

// DefaultEndpointConfigs returns the per-endpoint tiers. Provider webhooks
// and the health check are never limited (see MatchEndpoint).
func DefaultEndpointConfigs() []EndpointConfig {
	return []EndpointConfig{
		// Placing calls costs money
		{Path: "/jobs", Method: "POST", Limit: 30, Window: time.Minute, Burst: 5},
		{Path: "/jobs/", Method: "POST", Limit: 60, Window: time.Minute, Burst: 10},

		{Path: "/suppliers/import", Method: "POST", Limit: 10, Window: time.Minute, Burst: 2},
		{Path: "/products/import", Method: "POST", Limit: 10, Window: time.Minute, Burst: 2},
	}
}

type envReader func(string) (string, bool)

func (e envReader) string(key, def string) string {
	if v, ok := e(key); ok && v != "" {
		return v
	}
	return def
}

func (e envReader) int(key string, def int) int {
	if v, err := strconv.Atoi(e.string(key, "")); err == nil {
		return v
	}
	return def
}

func (e envReader) bool(key string, def bool) bool {
	if v, err := strconv.ParseBool(e.string(key, "")); err == nil {
		return v
	}
	return def
}

func (e envReader) duration(key string, def time.Duration) time.Duration {
	if v, err := time.ParseDuration(e.string(key, "")); err == nil {
		return v
	}
	return def
}

// parseIPList parses a comma-separated list of IP addresses into a set.
func parseIPList(list string) map[string]bool {
	result := make(map[string]bool)
	for _, ip := range strings.Split(list, ",") {
		if ip = strings.TrimSpace(ip); ip != "" {
			result[ip] = true
		}
	}
	return result
}
