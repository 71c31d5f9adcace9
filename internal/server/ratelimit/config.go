package ratelimit

import (
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// EndpointConfig represents rate limiting configuration for a specific endpoint.
type EndpointConfig struct {
	Path   string     // Endpoint path pattern (supports prefix matching)
	Method string     // HTTP method (GET, POST, etc.)
	Rate   rate.Limit // Sustained requests per second; zero means unlimited
	Burst  int        // Burst capacity (defaults to 1 if 0)
}

// Config holds rate limiting configuration.
type Config struct {
	Enabled         bool
	DefaultRate     rate.Limit
	DefaultBurst    int
	CleanupInterval time.Duration
	IdleTimeout     time.Duration // Limiters unused for this long are dropped
	Whitelist       map[string]bool
	Blacklist       map[string]bool
	EndpointConfigs []EndpointConfig
}

// DefaultConfig returns a configuration allowing rps requests per second per client
// with the given burst, plus the stricter per-endpoint limits.
func DefaultConfig(rps float64, burst int) *Config {
	return &Config{
		Enabled:         true,
		DefaultRate:     rate.Limit(rps),
		DefaultBurst:    burst,
		CleanupInterval: 5 * time.Minute,
		IdleTimeout:     time.Hour,
		Whitelist:       make(map[string]bool),
		Blacklist:       make(map[string]bool),
		EndpointConfigs: DefaultEndpointConfigs(),
	}
}

// LoadConfig layers environment overrides read through getenv onto DefaultConfig.
func LoadConfig(rps float64, burst int, getenv func(string) string) *Config {
	cfg := DefaultConfig(rps, burst)
	if v, err := strconv.ParseBool(getenv("RATE_LIMIT_ENABLED")); err == nil {
		cfg.Enabled = v
	}
	if v, err := time.ParseDuration(getenv("RATE_LIMIT_CLEANUP_INTERVAL")); err == nil {
		cfg.CleanupInterval = v
	}
	cfg.Whitelist = parseIPList(getenv("RATE_LIMIT_WHITELIST"))
	cfg.Blacklist = parseIPList(getenv("RATE_LIMIT_BLACKLIST"))
	return cfg
}

// DefaultEndpointConfigs returns the default endpoint-specific configurations.
func DefaultEndpointConfigs() []EndpointConfig {
	return []EndpointConfig{
		// Searches fan out to the catalog (strictest limits)
		{Path: "/search", Method: "POST", Rate: rate.Every(6 * time.Second), Burst: 3},

		// Save/unsave write to the store
		{Path: "/search/saved", Method: "POST", Rate: rate.Every(time.Second), Burst: 10},
		{Path: "/search/saved", Method: "DELETE", Rate: rate.Every(time.Second), Burst: 10},

		// Reads use the default limit; health and metrics are unlimited in the matcher
	}
}

// parseIPList parses a comma-separated list of IP addresses into a map.
func parseIPList(list string) map[string]bool {
	result := make(map[string]bool)
	if list == "" {
		return result
	}

	for _, ip := range strings.Split(list, ",") {
		ip = strings.TrimSpace(ip)
		if ip != "" {
			result[ip] = true
		}
	}

	return result
}
