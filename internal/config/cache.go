package config

import (
	"strings"
	"time"
)

// CacheConfig defines settings for the response cache middleware, which
// fronts the public availability summary. When Enabled is false or no
// Redis client is configured, caching is disabled. Paths restricts caching
// to the listed route templates.
type CacheConfig struct {
	Enabled      bool
	Methods      map[string]bool
	Paths        map[string]bool
	TTL          time.Duration
	Prefix       string
	MaxBodyBytes int
}

// LoadCacheConfig reads environment variables to build a CacheConfig.
func LoadCacheConfig() CacheConfig {
	cfg := CacheConfig{
		Enabled:      envBool("CACHE_ENABLED", true),
		Methods:      map[string]bool{},
		Paths:        map[string]bool{},
		TTL:          envDur("CACHE_TTL", 15*time.Second),
		Prefix:       envStr("CACHE_PREFIX", "cache"),
		MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 64<<10),
	}
	for _, m := range envList("CACHE_METHODS", "GET") {
		cfg.Methods[strings.ToUpper(m)] = true
	}
	for _, p := range envList("CACHE_PATHS", "/v1/availability") {
		cfg.Paths[p] = true
	}
	return cfg
}
