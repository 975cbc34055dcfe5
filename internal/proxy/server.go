// Package proxy - server.go wires the forwarding proxy together.
//
// DESIGN: One Proxy per process. The mux routes:
//   - "/"             exact: status JSON; everything else: forward upstream
//   - "/dashboard"    minimal fallback page for the external viewer
//   - "/api/requests" history query interface (list + by id)
//   - "/stats"        operational counters, loopback only
package proxy

import (
	"net"
	"net/http"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/wiretap-labs/wiretap/internal/capture"
	"github.com/wiretap-labs/wiretap/internal/config"
	"github.com/wiretap-labs/wiretap/internal/monitoring"
)

// Proxy is the forwarding-and-capture engine.
type Proxy struct {
	cfg     *config.Config
	profile config.Profile
	client  *http.Client

	history *capture.HistoryStore
	sink    *capture.Sink
	metrics *monitoring.MetricsCollector
	reqLog  *monitoring.RequestLogger

	// captureWG tracks in-flight capture goroutines; tests drain it.
	captureWG sync.WaitGroup
}

// New builds a Proxy from a finalized config.
func New(cfg *config.Config) (*Proxy, error) {
	audit, err := capture.NewAuditLog(cfg.AuditLogPath)
	if err != nil {
		return nil, err
	}

	metrics := monitoring.NewMetricsCollector()
	history := capture.NewHistoryStore(config.HistoryCapacity)
	sink := capture.NewSink(history, audit, config.MaxTextBodyLen, func(error) {
		metrics.RecordAuditFailure()
	})

	// The transport bounds dial and time-to-headers, not body reads:
	// a total client timeout would sever long-lived SSE relays.
	// DisableCompression keeps the transport from injecting its own
	// Accept-Encoding, so upstream bytes relay verbatim.
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout: config.DefaultDialTimeout,
		}).DialContext,
		ResponseHeaderTimeout: config.UpstreamHeaderTimeout,
		DisableCompression:    true,
	}

	return &Proxy{
		cfg:     cfg,
		profile: cfg.Profile(),
		client:  &http.Client{Transport: transport},
		history: history,
		sink:    sink,
		metrics: metrics,
		reqLog:  monitoring.NewRequestLogger(),
	}, nil
}

// History exposes the query interface consumed by the dashboard.
func (p *Proxy) History() *capture.HistoryStore { return p.history }

// Handler returns the proxy's HTTP handler.
func (p *Proxy) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/requests", p.handleListRequests)
	mux.HandleFunc("GET /api/requests/{id}", p.handleGetRequest)
	mux.HandleFunc("GET /dashboard", p.handleDashboard)
	mux.HandleFunc("GET /stats", p.handleStats)
	mux.HandleFunc("/", p.handleRoot)
	return mux
}

// Start runs the HTTP server; it blocks until the server stops.
func (p *Proxy) Start() error {
	srv := &http.Server{
		Addr:              p.cfg.ListenAddr(),
		Handler:           p.Handler(),
		ReadHeaderTimeout: config.DefaultReadHeaderTimeout,
		// No write timeout: streaming relays are open-ended.
		WriteTimeout: 0,
	}

	log.Info().
		Str("addr", srv.Addr).
		Str("mode", p.profile.Mode).
		Str("upstream", p.profile.UpstreamBaseURL).
		Msg("proxy listening")

	return srv.ListenAndServe()
}

// handleRoot serves the status JSON on GET "/" and forwards everything
// else, including non-GET requests to the bare root; the upstream
// answers for paths it does not define.
func (p *Proxy) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/" && r.Method == http.MethodGet {
		p.handleStatus(w, r)
		return
	}
	p.handleForward(w, r)
}

// isLoopback reports whether remoteAddr is a loopback address.
func isLoopback(remoteAddr string) bool {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
