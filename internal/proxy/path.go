package proxy

import "strings"

// NormalizePath ensures the profile's required path prefix is present.
// Clients configured with either the bare proxy host or a versioned base
// path both end up with a working upstream URL: "/chat/completions"
// becomes "/v1/chat/completions" while "/v1/chat/completions" and the
// bare "/v1" pass through unchanged.
func NormalizePath(path, requiredPrefix string) string {
	if requiredPrefix == "" {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	trimmed := strings.TrimPrefix(path, "/")
	if trimmed == requiredPrefix || strings.HasPrefix(trimmed, requiredPrefix+"/") {
		return path
	}
	return "/" + requiredPrefix + path
}
