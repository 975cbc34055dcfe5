package proxy

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wiretap-labs/wiretap/internal/capture"
	"github.com/wiretap-labs/wiretap/internal/config"
)

// newTestProxy builds a Proxy for the given mode, pointed at upstreamURL,
// with a throwaway audit log and a fixed credential.
func newTestProxy(t *testing.T, mode, upstreamURL string) *Proxy {
	t.Helper()

	cfg := config.Default(mode)
	cfg.AuditLogPath = filepath.Join(t.TempDir(), "audit.jsonl")
	require.NoError(t, cfg.Finalize())
	cfg.Credential = "test-credential"

	p, err := New(cfg)
	require.NoError(t, err)
	p.profile.UpstreamBaseURL = upstreamURL
	return p
}

func TestForward_BufferedRelayPreservesWireSemantics(t *testing.T) {
	var gotUpstream *http.Request
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUpstream = r.Clone(r.Context())
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Upstream-Marker", "yes")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"msg_1","ok":true}`))
	}))
	defer upstream.Close()

	p := newTestProxy(t, "claude", upstream.URL)
	srv := httptest.NewServer(p.Handler())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/v1/messages", "application/json",
		strings.NewReader(`{"model":"claude-test","messages":[]}`))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "yes", resp.Header.Get("X-Upstream-Marker"))
	assert.JSONEq(t, `{"id":"msg_1","ok":true}`, string(body))

	// Auth was rewritten on the way upstream.
	require.NotNil(t, gotUpstream)
	assert.Equal(t, "test-credential", gotUpstream.Header.Get("x-api-key"))

	p.captureWG.Wait()
	records := p.history.List()
	require.Len(t, records, 1)
	assert.Equal(t, http.StatusCreated, records[0].StatusCode)
	assert.True(t, records[0].ResponseBody.IsStructured())
}

func TestForward_CapturedRequestBodyRoundTrips(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer upstream.Close()

	p := newTestProxy(t, "claude", upstream.URL)
	srv := httptest.NewServer(p.Handler())
	defer srv.Close()

	sent := `{"model":"claude-test","messages":[{"role":"user","content":"hi"}],"stream":false}`
	resp, err := http.Post(srv.URL+"/v1/messages", "application/json", strings.NewReader(sent))
	require.NoError(t, err)
	_ = resp.Body.Close()

	p.captureWG.Wait()
	records := p.history.List()
	require.Len(t, records, 1)
	require.True(t, records[0].RequestBody.IsStructured())

	var want, got map[string]any
	require.NoError(t, json.Unmarshal([]byte(sent), &want))
	require.NoError(t, json.Unmarshal(records[0].RequestBody.JSON(), &got))
	assert.Equal(t, want, got)
}

func TestForward_CodexModeAddsV1Prefix(t *testing.T) {
	var gotPath, gotAuth string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer upstream.Close()

	p := newTestProxy(t, "codex", upstream.URL)
	srv := httptest.NewServer(p.Handler())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/chat/completions", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	_ = resp.Body.Close()

	assert.Equal(t, "/v1/chat/completions", gotPath)
	assert.Equal(t, "Bearer test-credential", gotAuth)
}

func TestForward_StreamingRelay(t *testing.T) {
	chunks := []string{
		"event: message_start\ndata: {\"type\":\"message_start\"}\n\n",
		"event: content_block_delta\ndata: {\"type\":\"content_block_delta\"}\n\n",
		"event: message_stop\ndata: {\"type\":\"message_stop\"}\n\n",
	}
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		flusher := w.(http.Flusher)
		for _, chunk := range chunks {
			_, _ = w.Write([]byte(chunk))
			flusher.Flush()
		}
	}))
	defer upstream.Close()

	p := newTestProxy(t, "claude", upstream.URL)
	srv := httptest.NewServer(p.Handler())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/v1/messages", "application/json",
		strings.NewReader(`{"stream":true}`))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")
	assert.Equal(t, strings.Join(chunks, ""), string(body))
	// Upstream framing headers are not relayed; chunking differs.
	assert.Empty(t, resp.Header.Get("Content-Length"))

	p.captureWG.Wait()
	records := p.history.List()
	require.Len(t, records, 1)
	assert.Equal(t, capture.StreamSentinel, records[0].ResponseBody.Text(),
		"streamed bytes must never be captured")
}

func TestForward_NonJSONResponseTruncatedInCapture(t *testing.T) {
	long := strings.Repeat("a", 1500)
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte(long))
	}))
	defer upstream.Close()

	p := newTestProxy(t, "claude", upstream.URL)
	srv := httptest.NewServer(p.Handler())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/v1/messages", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	_ = resp.Body.Close()

	// The caller gets every byte; only the capture is truncated.
	assert.Len(t, body, 1500)

	p.captureWG.Wait()
	records := p.history.List()
	require.Len(t, records, 1)
	assert.Len(t, records[0].ResponseBody.Text(), 1000)
}

func TestForward_UpstreamFailureYields500AndNoCapture(t *testing.T) {
	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	deadURL := dead.URL
	dead.Close() // connection refused from here on

	p := newTestProxy(t, "claude", deadURL)
	srv := httptest.NewServer(p.Handler())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/v1/messages", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var errBody map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&errBody))
	assert.NotEmpty(t, errBody["error"])

	p.captureWG.Wait()
	assert.Zero(t, p.history.Len(), "failed dispatches are not captured")
}

func TestQueryInterface(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer upstream.Close()

	p := newTestProxy(t, "claude", upstream.URL)
	srv := httptest.NewServer(p.Handler())
	defer srv.Close()

	for i := 0; i < 3; i++ {
		resp, err := http.Post(srv.URL+"/v1/messages", "application/json",
			strings.NewReader(fmt.Sprintf(`{"n":%d}`, i)))
		require.NoError(t, err)
		_ = resp.Body.Close()
	}
	p.captureWG.Wait()

	resp, err := http.Get(srv.URL + "/api/requests")
	require.NoError(t, err)
	var list []capture.ExchangeRecord
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	_ = resp.Body.Close()
	require.Len(t, list, 3)

	resp, err = http.Get(srv.URL + "/api/requests/" + list[0].ID)
	require.NoError(t, err)
	var rec capture.ExchangeRecord
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rec))
	_ = resp.Body.Close()
	assert.Equal(t, list[0].ID, rec.ID)

	resp, err = http.Get(srv.URL + "/api/requests/never-issued")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	var miss map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&miss))
	assert.Equal(t, "Request not found", miss["error"])
}

func TestStatusEndpoint(t *testing.T) {
	p := newTestProxy(t, "claude", "http://127.0.0.1:0")
	srv := httptest.NewServer(p.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	var status map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	assert.Equal(t, "running", status["status"])
	assert.Equal(t, "claude", status["mode"])
	assert.Equal(t, true, status["api_key_set"])
}

func TestForward_NonGetRootForwardsUpstream(t *testing.T) {
	var gotPath, gotMethod string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotMethod = r.Method
		_, _ = w.Write([]byte(`{}`))
	}))
	defer upstream.Close()

	p := newTestProxy(t, "claude", upstream.URL)
	srv := httptest.NewServer(p.Handler())
	defer srv.Close()

	// Only GET "/" is the status page; a POST to the bare root is relayed.
	resp, err := http.Post(srv.URL+"/", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	_ = resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "/", gotPath)
	assert.Equal(t, http.MethodPost, gotMethod)
}

func TestForward_ConcurrentCaptures(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer upstream.Close()

	p := newTestProxy(t, "claude", upstream.URL)
	srv := httptest.NewServer(p.Handler())
	defer srv.Close()

	const n = 250
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, err := http.Post(srv.URL+"/v1/messages", "application/json",
				strings.NewReader(fmt.Sprintf(`{"n":%d}`, i)))
			if err == nil {
				_, _ = io.Copy(io.Discard, resp.Body)
				_ = resp.Body.Close()
			}
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()
	p.captureWG.Wait()

	// History holds exactly the eviction window; the audit log holds all.
	assert.Equal(t, config.HistoryCapacity, p.history.Len())

	f, err := os.Open(p.cfg.AuditLogPath)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	count := 0
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)
	for scanner.Scan() {
		var rec capture.ExchangeRecord
		assert.NoError(t, json.Unmarshal(scanner.Bytes(), &rec), "every audit line must parse independently")
		count++
	}
	require.NoError(t, scanner.Err())
	assert.Equal(t, n, count)
}
