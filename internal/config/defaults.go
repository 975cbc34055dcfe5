// Package config - defaults.go centralizes magic numbers and default values.
//
// DESIGN: All default values that appear in multiple places should be defined here.
// This makes configuration more maintainable and auditable.
package config

import "time"

// =============================================================================
// SERVER DEFAULTS
// =============================================================================

// DefaultHost is the listen address. Loopback only: the proxy carries
// credentials and captured traffic, so it should never bind publicly.
const DefaultHost = "127.0.0.1"

// DefaultPort is the listen port clients point their BASE_URL at.
const DefaultPort = 8000

// DefaultReadHeaderTimeout bounds how long a client may take to send headers.
const DefaultReadHeaderTimeout = 10 * time.Second

// =============================================================================
// UPSTREAM DISPATCH
// =============================================================================

// UpstreamHeaderTimeout is how long to wait for upstream response headers.
// It deliberately does not bound the body: SSE relays stay open as long as
// the upstream keeps sending.
const UpstreamHeaderTimeout = 300 * time.Second

// DefaultDialTimeout is the TCP dial timeout for upstream connections.
const DefaultDialTimeout = 30 * time.Second

// MaxRequestBodySize is the maximum allowed inbound request body (50MB).
const MaxRequestBodySize = 50 * 1024 * 1024

// StreamBufferSize is the chunk size for the streaming relay loop.
const StreamBufferSize = 4096

// =============================================================================
// CAPTURE
// =============================================================================

// HistoryCapacity is the fixed size of the in-memory exchange history.
// Oldest records are evicted once the store is full.
const HistoryCapacity = 100

// MaxTextBodyLen caps non-JSON response bodies in captured records.
// Full fidelity is intentionally sacrificed for non-JSON payloads.
const MaxTextBodyLen = 1000

// DefaultAuditLogPath is where exchange records are appended as JSONL.
const DefaultAuditLogPath = "logs/proxy_requests.jsonl"

// AuditLogPathEnv overrides DefaultAuditLogPath when set.
const AuditLogPathEnv = "PROXY_LOG_FILE"

// =============================================================================
// LOGGING
// =============================================================================

// TokenEstimateRatio is the approximate number of characters per token,
// used when the tokenizer is unavailable.
const TokenEstimateRatio = 4

// MaxChunkLogLen limits stream chunks in debug logs.
const MaxChunkLogLen = 200

// MaxBodyLogLen limits body previews in human-readable logs.
const MaxBodyLogLen = 500
