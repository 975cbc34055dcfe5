// Package proxy - forwarder.go relays one request/response cycle.
//
// DESIGN: Per-request flow:
//   - snapshot the inbound request (method, path, headers, body)
//   - NormalizePath + BuildUpstreamHeaders fix the outbound target
//   - dispatch upstream; transport failures become a 500 JSON error
//   - classify by Content-Type: event-stream relays chunk-by-chunk,
//     everything else is buffered and relayed whole
//   - hand the exchange to the capture sink on its own goroutine; the
//     relay never waits on capture
package proxy

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/wiretap-labs/wiretap/internal/capture"
	"github.com/wiretap-labs/wiretap/internal/config"
)

// eventStreamMediaType marks responses that must relay incrementally.
const eventStreamMediaType = "text/event-stream"

// handleForward proxies a single inbound request to the upstream.
func (p *Proxy) handleForward(w http.ResponseWriter, r *http.Request) {
	// Inbound bodies are buffered in full before dispatch, so they are
	// capped at MaxRequestBodySize; oversized requests get a 400 here
	// instead of reaching the upstream.
	r.Body = http.MaxBytesReader(w, r.Body, config.MaxRequestBodySize)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		p.writeError(w, "failed to read request body", http.StatusBadRequest)
		return
	}

	path := NormalizePath(r.URL.Path, p.profile.RequiredPathPrefix)
	targetURL := p.profile.UpstreamBaseURL + path
	if r.URL.RawQuery != "" {
		targetURL += "?" + r.URL.RawQuery
	}
	headers := BuildUpstreamHeaders(r.Header, p.profile, p.cfg.Credential)

	p.reqLog.LogOutgoing(r.Method, path, targetURL, headers, body)
	p.metrics.RecordForward()

	req, err := http.NewRequestWithContext(r.Context(), r.Method, targetURL, bytes.NewReader(body))
	if err != nil {
		p.writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	req.Header = headers
	req.ContentLength = int64(len(body))

	resp, err := p.client.Do(req)
	if err != nil {
		// Transport-level failure: fixed 500 JSON error, no capture.
		log.Error().Err(err).Str("target", targetURL).Msg("error forwarding request")
		p.metrics.RecordUpstreamFailure()
		p.writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	defer func() { _ = resp.Body.Close() }()

	ex := capture.Exchange{
		Method:          r.Method,
		Path:            path,
		URL:             targetURL,
		RequestHeaders:  headers,
		RequestBody:     body,
		StatusCode:      resp.StatusCode,
		ResponseHeaders: resp.Header,
	}

	if strings.Contains(resp.Header.Get("Content-Type"), eventStreamMediaType) {
		p.relayStreaming(w, resp, ex)
	} else {
		p.relayBuffered(w, resp, ex)
	}
}

// relayStreaming forwards upstream bytes chunk by chunk as they arrive.
// Capture happens once, eagerly, with the sentinel body; it does not
// wait for the stream to finish.
func (p *Proxy) relayStreaming(w http.ResponseWriter, resp *http.Response, ex capture.Exchange) {
	p.reqLog.LogStreaming(resp.StatusCode)
	p.metrics.RecordStreamed()

	ex.Streaming = true
	p.capture(ex)

	relayHeaders(w, resp.Header)
	w.WriteHeader(resp.StatusCode)

	flusher, canFlush := w.(http.Flusher)
	buf := make([]byte, config.StreamBufferSize)
	for {
		n, err := resp.Body.Read(buf)
		if n > 0 {
			chunk := buf[:n]
			p.reqLog.LogChunk(chunk)
			if _, writeErr := w.Write(chunk); writeErr != nil {
				log.Debug().Err(writeErr).Msg("client disconnected")
				return
			}
			if canFlush {
				flusher.Flush()
			}
		}
		if err != nil {
			if err != io.EOF {
				log.Debug().Err(err).Msg("error reading stream")
			}
			return
		}
	}
}

// relayBuffered reads the full upstream body, then relays it whole.
func (p *Proxy) relayBuffered(w http.ResponseWriter, resp *http.Response, ex capture.Exchange) {
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Error().Err(err).Str("target", ex.URL).Msg("error reading upstream body")
		p.metrics.RecordUpstreamFailure()
		p.writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	p.reqLog.LogResponse(resp.StatusCode, resp.Header.Get("Content-Type"), respBody)
	p.metrics.RecordBuffered()

	ex.ResponseBody = respBody
	p.capture(ex)

	relayHeaders(w, resp.Header)
	w.WriteHeader(resp.StatusCode)
	_, _ = w.Write(respBody)
}

// capture hands the exchange to the sink without blocking the relay.
func (p *Proxy) capture(ex capture.Exchange) {
	p.metrics.RecordCapture()
	p.captureWG.Add(1)
	go func() {
		defer p.captureWG.Done()
		p.sink.Capture(ex)
	}()
}

// relayHeaders copies upstream headers to the caller, minus the framing
// headers; relayed chunk boundaries differ from upstream's.
func relayHeaders(w http.ResponseWriter, src http.Header) {
	for k, v := range src {
		switch http.CanonicalHeaderKey(k) {
		case "Content-Length", "Transfer-Encoding":
			continue
		}
		w.Header()[k] = v
	}
}

// writeError writes a JSON error response in the fixed {"error": msg} shape.
func (p *Proxy) writeError(w http.ResponseWriter, msg string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
