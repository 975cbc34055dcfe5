package capture

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// StreamSentinel is stored as the response body of streaming exchanges.
// Streamed bytes are relayed to the caller, never captured, to avoid
// unbounded memory growth and to avoid delaying delivery.
const StreamSentinel = "[Streaming response - not captured]"

// Exchange is the raw material for one captured record, snapshotted by
// the relay path once the upstream response (headers at least) is known.
type Exchange struct {
	Method          string
	Path            string
	URL             string
	RequestHeaders  http.Header
	RequestBody     []byte
	StatusCode      int
	ResponseHeaders http.Header
	ResponseBody    []byte // ignored when Streaming
	Streaming       bool
}

// Sink fans a completed exchange out to the history store and the audit
// log. Callers run Capture on their own goroutine; the sink's mutex
// serializes record construction and insertion so ids stay unique,
// timestamps stay non-decreasing in insertion order, and audit lines
// land in history order.
type Sink struct {
	history      *HistoryStore
	audit        *AuditLog
	mu           sync.Mutex
	onAuditError func(error)
	maxTextLen   int
}

// NewSink creates a sink over history and audit. onAuditError is invoked
// (may be nil) whenever an audit append fails; the failure is logged as
// a warning either way and never propagates.
func NewSink(history *HistoryStore, audit *AuditLog, maxTextLen int, onAuditError func(error)) *Sink {
	return &Sink{
		history:      history,
		audit:        audit,
		onAuditError: onAuditError,
		maxTextLen:   maxTextLen,
	}
}

// Capture builds the canonical record for ex and feeds it to the history
// store, then the audit log. Returns the generated record id.
func (s *Sink) Capture(ex Exchange) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := ExchangeRecord{
		ID:              uuid.New().String(),
		Timestamp:       time.Now().Format(time.RFC3339Nano),
		Method:          ex.Method,
		Path:            ex.Path,
		URL:             ex.URL,
		RequestHeaders:  flattenHeaders(ex.RequestHeaders),
		RequestBody:     ParseBody(ex.RequestBody, 0),
		StatusCode:      ex.StatusCode,
		ResponseHeaders: flattenHeaders(ex.ResponseHeaders),
	}
	if ex.Streaming {
		rec.ResponseBody = TextBody(StreamSentinel)
	} else {
		rec.ResponseBody = ParseBody(ex.ResponseBody, s.maxTextLen)
	}

	s.history.Insert(rec)

	if err := s.audit.Append(rec); err != nil {
		log.Warn().Err(err).Str("path", s.audit.Path()).Msg("audit: failed to append record")
		if s.onAuditError != nil {
			s.onAuditError(err)
		}
	}
	return rec.ID
}

// flattenHeaders collapses multi-valued headers into the single-string
// map shape used by the record format.
func flattenHeaders(h http.Header) map[string]string {
	if h == nil {
		return nil
	}
	out := make(map[string]string, len(h))
	for k, v := range h {
		out[k] = strings.Join(v, ", ")
	}
	return out
}
