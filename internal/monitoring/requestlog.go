// Package monitoring - requestlog.go renders exchanges for humans.
//
// DESIGN: One zerolog event per request and per response, with the
// credential masked and bodies reduced to a short preview. This is the
// only place redaction happens: the persisted record keeps full headers.
package monitoring

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/wiretap-labs/wiretap/internal/config"
	"github.com/wiretap-labs/wiretap/internal/utils"
)

// authHeaders are the header names whose values get masked in logs.
var authHeaders = []string{"Authorization", "X-Api-Key"}

// RequestLogger emits human-readable exchange logs.
type RequestLogger struct {
	tokens *TokenEstimator
}

// NewRequestLogger creates a request logger.
func NewRequestLogger() *RequestLogger {
	return &RequestLogger{tokens: NewTokenEstimator()}
}

// LogOutgoing logs a request about to be dispatched upstream.
func (rl *RequestLogger) LogOutgoing(method, path, targetURL string, headers http.Header, body []byte) {
	ev := log.Info().
		Str("method", method).
		Str("path", path).
		Str("target", targetURL).
		Int("body_bytes", len(body))

	for name, value := range redactHeaders(headers) {
		ev = ev.Str("hdr_"+strings.ToLower(name), value)
	}

	if len(body) > 0 && gjson.ValidBytes(body) {
		if model := gjson.GetBytes(body, "model"); model.Exists() {
			ev = ev.Str("model", model.String())
		}
		if stream := gjson.GetBytes(body, "stream"); stream.Exists() {
			ev = ev.Bool("stream", stream.Bool())
		}
		ev = ev.Int("est_tokens", rl.tokens.Estimate(body))
		ev = ev.RawJSON("body_preview", bodyPreview(body))
	} else if len(body) > 0 {
		ev = ev.Str("body_raw", utils.Truncate(string(body), config.MaxBodyLogLen))
	}

	ev.Msg("outgoing request")
}

// LogResponse logs a buffered upstream response.
func (rl *RequestLogger) LogResponse(status int, contentType string, body []byte) {
	ev := log.Info().
		Int("status", status).
		Str("content_type", contentType).
		Int("body_bytes", len(body))

	if len(body) > 0 && gjson.ValidBytes(body) {
		ev = ev.RawJSON("body_preview", bodyPreview(body))
	} else if len(body) > 0 {
		ev = ev.Str("body_raw", utils.Truncate(string(body), config.MaxBodyLogLen))
	}

	ev.Msg("response")
}

// LogStreaming logs the start of a streaming relay.
func (rl *RequestLogger) LogStreaming(status int) {
	log.Info().Int("status", status).Msg("streaming response")
}

// LogChunk logs one relayed stream chunk at debug level, truncated.
func (rl *RequestLogger) LogChunk(chunk []byte) {
	if e := log.Debug(); e.Enabled() {
		e.Str("chunk", utils.Truncate(string(chunk), config.MaxChunkLogLen)).Msg("stream chunk")
	}
}

// redactHeaders flattens headers with credential values masked.
func redactHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for name, values := range h {
		value := strings.Join(values, ", ")
		for _, sensitive := range authHeaders {
			if http.CanonicalHeaderKey(name) == sensitive {
				value = utils.MaskKey(value)
				break
			}
		}
		out[name] = value
	}
	return out
}

// bodyPreview compacts a JSON body for logging: the messages array (the
// bulk of an LLM request) is replaced by its length, and the remainder
// is truncated.
func bodyPreview(body []byte) []byte {
	preview := body
	if msgs := gjson.GetBytes(body, "messages"); msgs.IsArray() {
		if patched, err := sjson.SetBytes(body, "messages", len(msgs.Array())); err == nil {
			preview = patched
		}
	}
	if len(preview) > config.MaxBodyLogLen {
		// Truncating JSON breaks it; fall back to a quoted string preview.
		quoted, err := utils.MarshalNoEscape(utils.Truncate(string(preview), config.MaxBodyLogLen))
		if err != nil {
			return []byte("{}")
		}
		return quoted
	}
	return preview
}
