// Package capture records completed exchanges into an in-memory history
// and an append-only JSONL audit log.
//
// DESIGN: The relay path hands a finished exchange to the Sink and moves
// on; everything here is a side channel that must never delay or fail a
// response. Captured bodies are stored as a tagged variant: parsed JSON
// when the raw bytes are valid JSON, raw text otherwise, or absent.
//
// NOTE: Captured request headers include the rewritten credential
// verbatim. Redaction applies only to human-readable logging, so the
// audit file is as sensitive as the key itself.
package capture

import (
	"encoding/json"

	"github.com/tidwall/gjson"
)

type bodyKind int

const (
	bodyAbsent bodyKind = iota
	bodyStructured
	bodyRawText
)

// Body is the captured form of a request or response payload:
// structured JSON, raw text, or absent. It serializes to the parsed
// JSON value, a JSON string, or null respectively.
type Body struct {
	kind bodyKind
	json json.RawMessage
	text string
}

// ParseBody classifies raw payload bytes. Non-JSON payloads are kept as
// text, truncated to maxText characters when maxText > 0. Empty input
// is absent.
func ParseBody(raw []byte, maxText int) Body {
	if len(raw) == 0 {
		return Body{}
	}
	if json.Valid(raw) {
		return Body{kind: bodyStructured, json: append(json.RawMessage(nil), raw...)}
	}
	text := string(raw)
	if maxText > 0 {
		text = truncateRunes(text, maxText)
	}
	return Body{kind: bodyRawText, text: text}
}

// truncateRunes cuts s after max runes. Counting runes rather than
// bytes keeps multibyte text from being split mid-rune, which would
// marshal as U+FFFD in the stored record.
func truncateRunes(s string, max int) string {
	n := 0
	for i := range s {
		if n == max {
			return s[:i]
		}
		n++
	}
	return s
}

// TextBody returns a raw-text Body, used for the streaming sentinel.
func TextBody(s string) Body {
	return Body{kind: bodyRawText, text: s}
}

// IsAbsent reports whether no payload was captured.
func (b Body) IsAbsent() bool { return b.kind == bodyAbsent }

// IsStructured reports whether the payload parsed as JSON.
func (b Body) IsStructured() bool { return b.kind == bodyStructured }

// Text returns the raw-text form, or "" for structured/absent bodies.
func (b Body) Text() string { return b.text }

// JSON returns the structured form, or nil for text/absent bodies.
func (b Body) JSON() json.RawMessage { return b.json }

// MarshalJSON encodes the variant: structured bodies as their parsed
// value, raw text as a string, absent as null.
func (b Body) MarshalJSON() ([]byte, error) {
	switch b.kind {
	case bodyStructured:
		return b.json, nil
	case bodyRawText:
		return json.Marshal(b.text)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON restores the variant from its serialized form.
func (b *Body) UnmarshalJSON(data []byte) error {
	v := gjson.ParseBytes(data)
	switch v.Type {
	case gjson.Null:
		*b = Body{}
	case gjson.String:
		*b = Body{kind: bodyRawText, text: v.String()}
	default:
		*b = Body{kind: bodyStructured, json: append(json.RawMessage(nil), data...)}
	}
	return nil
}

// ExchangeRecord is one captured request/response pair. Field names
// match the audit log's line format.
type ExchangeRecord struct {
	ID              string            `json:"id"`
	Timestamp       string            `json:"timestamp"`
	Method          string            `json:"method"`
	Path            string            `json:"path"`
	URL             string            `json:"url"`
	RequestHeaders  map[string]string `json:"request_headers"`
	RequestBody     Body              `json:"request_body"`
	StatusCode      int               `json:"status_code"`
	ResponseHeaders map[string]string `json:"response_headers"`
	ResponseBody    Body              `json:"response_body"`
}
