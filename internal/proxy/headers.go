// Package proxy - headers.go rewrites auth headers for upstream dispatch.
//
// DESIGN: The caller's credential, if any, is always discarded in favor
// of the process-configured one. Operator and end clients never see each
// other's keys.
package proxy

import (
	"net/http"

	"github.com/wiretap-labs/wiretap/internal/config"
)

// BuildUpstreamHeaders produces the outbound header set for one request.
//
// Host is always removed; it must reflect the upstream host, not the
// proxy's. When a credential is configured, exactly one authentication
// header carries it, per the profile's convention, and any credential
// the caller sent is dropped. With no credential configured the headers
// pass through untouched and the upstream rejects the call itself.
func BuildUpstreamHeaders(in http.Header, p config.Profile, credential string) http.Header {
	out := in.Clone()
	if out == nil {
		out = http.Header{}
	}
	out.Del("Host")

	if credential == "" {
		return out
	}

	out.Del("Authorization")
	out.Del("x-api-key")
	switch p.AuthStyle {
	case config.AuthBearer:
		out.Set("Authorization", "Bearer "+credential)
	case config.AuthAPIKey:
		out.Set(p.AuthHeader, credential)
	}
	return out
}
