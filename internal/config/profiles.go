// Package config - profiles.go defines the supported client modes.
//
// DESIGN: One profile is active per process instance, selected once at
// startup with --mode. A profile pins the upstream base URL, the env var
// holding the credential, and the auth header convention the upstream
// expects. Profiles are immutable; everything that needs one receives it
// explicitly rather than reading process-wide state.
package config

import (
	"fmt"
	"os"
	"sort"
	"strings"
)

// AuthStyle selects which header carries the upstream credential.
type AuthStyle string

const (
	// AuthBearer sets "Authorization: Bearer <credential>".
	AuthBearer AuthStyle = "bearer"
	// AuthAPIKey sets a custom key header to the raw credential.
	AuthAPIKey AuthStyle = "api_key"
)

// Profile describes one supported client mode.
type Profile struct {
	Mode               string    // selector, e.g. "claude"
	DisplayName        string    // e.g. "Claude Code"
	UpstreamBaseURL    string    // scheme://host, no trailing slash
	CredentialEnv      string    // env var holding the upstream credential
	ClientEnv          string    // env var the CLI uses for its base URL (for hints)
	AuthStyle          AuthStyle //
	AuthHeader         string    // header name for AuthAPIKey profiles
	RequiredPathPrefix string    // path segment prepended when missing, e.g. "v1"
}

var profiles = map[string]Profile{
	"claude": {
		Mode:            "claude",
		DisplayName:     "Claude Code",
		UpstreamBaseURL: "https://api.anthropic.com",
		CredentialEnv:   "ANTHROPIC_API_KEY",
		ClientEnv:       "ANTHROPIC_BASE_URL",
		AuthStyle:       AuthAPIKey,
		AuthHeader:      "x-api-key",
	},
	"codex": {
		Mode:               "codex",
		DisplayName:        "Codex CLI",
		UpstreamBaseURL:    "https://api.openai.com",
		CredentialEnv:      "OPENAI_API_KEY",
		ClientEnv:          "OPENAI_BASE_URL",
		AuthStyle:          AuthBearer,
		RequiredPathPrefix: "v1",
	},
}

// ProfileFor returns the profile for a mode name.
func ProfileFor(mode string) (Profile, error) {
	p, ok := profiles[strings.ToLower(strings.TrimSpace(mode))]
	if !ok {
		return Profile{}, fmt.Errorf("unknown mode %q (supported: %s)", mode, strings.Join(ModeNames(), ", "))
	}
	return p, nil
}

// ModeNames returns the supported mode names, sorted.
func ModeNames() []string {
	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Credential reads the profile's credential from the environment.
// An empty result is not an error: the proxy still forwards, and the
// upstream rejects the request with its own auth error.
func (p Profile) Credential() string {
	return strings.TrimSpace(os.Getenv(p.CredentialEnv))
}
