package ratelimit

import (
	"strings"
	"time"
)

// EndpointConfig is the limit for one route. Path segments written as "*"
// match any single segment, so "/sessions/*/responses" covers every session.
type EndpointConfig struct {
	Path   string
	Method string
	// Limit is the number of requests allowed per Window.
	Limit  int
	Window time.Duration
	// Burst is the bucket capacity; Limit when zero.
	Burst  int
}

// Config holds rate limiting configuration.
type Config struct {
	Enabled         bool
	DefaultLimit    int
	DefaultWindow   time.Duration
	CleanupInterval time.Duration
	// IdleAfter drops buckets that have not been used for this long.
	IdleAfter       time.Duration
	Whitelist       map[string]bool
	Blacklist       map[string]bool
	EndpointConfigs []EndpointConfig
}

// NewConfig builds a configuration with the session endpoint limits.
func NewConfig(enabled bool, defaultLimit int, defaultWindow, cleanupInterval time.Duration, whitelist, blacklist []string) *Config {
	return &Config{
		Enabled:         enabled,
		DefaultLimit:    defaultLimit,
		DefaultWindow:   defaultWindow,
		CleanupInterval: cleanupInterval,
		IdleAfter:       time.Hour,
		Whitelist:       toSet(whitelist),
		Blacklist:       toSet(blacklist),
		EndpointConfigs: DefaultEndpointConfigs(),
	}
}

// DefaultEndpointConfigs returns the per-route limits for the session API.
func DefaultEndpointConfigs() []EndpointConfig {
	return []EndpointConfig{
		// scheduling creates rows
		{Path: "/sessions", Method: "POST", Limit: 30, Window: time.Minute, Burst: 5},

		// candidate traffic
		{Path: "/sessions/*/responses", Method: "POST", Limit: 120, Window: time.Minute, Burst: 10},
		{Path: "/sessions/*/current-question", Method: "GET", Limit: 240, Window: time.Minute, Burst: 20},

		// lifecycle controls
		{Path: "/sessions/*/start", Method: "POST", Limit: 30, Window: time.Minute, Burst: 5},
		{Path: "/sessions/*/pause", Method: "POST", Limit: 30, Window: time.Minute, Burst: 5},
		{Path: "/sessions/*/resume", Method: "POST", Limit: 30, Window: time.Minute, Burst: 5},
		{Path: "/sessions/*/cancel", Method: "POST", Limit: 30, Window: time.Minute, Burst: 5},
	}
}

func toSet(list []string) map[string]bool {
	result := make(map[string]bool, len(list))
	for _, item := range list {
		item = strings.TrimSpace(item)
		if item != "" {
			result[item] = true
		}
	}
	return result
}
