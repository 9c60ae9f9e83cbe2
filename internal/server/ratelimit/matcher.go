package ratelimit

import "strings"

// unlimited is returned for routes that are never limited.
var unlimited = EndpointConfig{}

// MatchEndpoint returns the configuration for path and method, or nil when
// the default limit applies.
func MatchEndpoint(path string, method string, configs []EndpointConfig) *EndpointConfig {
	if path == "/health" && method == "GET" {
		u := unlimited
		u.Path = path
		u.Method = method
		return &u
	}

	segments := split(path)
	for i := range configs {
		config := &configs[i]
		if config.Method == method && matchSegments(split(config.Path), segments) {
			return config
		}
	}
	return nil
}

func split(path string) []string {
	return strings.Split(strings.Trim(path, "/"), "/")
}

func matchSegments(pattern, segments []string) bool {
	if len(pattern) != len(segments) {
		return false
	}
	for i, p := range pattern {
		if p != "*" && p != segments[i] {
			return false
		}
	}
	return true
}
