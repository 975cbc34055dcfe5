// Package proxy - query.go serves the history query interface.
//
// The external dashboard polls these; they are read-only consumers of
// the HistoryStore and never touch the relay path.
package proxy

import (
	"encoding/json"
	"net/http"
	"os"
)

// handleListRequests returns all held records, most recent first.
func (p *Proxy) handleListRequests(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(p.history.List())
}

// handleGetRequest returns one record by id, or a 404 for a miss.
func (p *Proxy) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	rec, ok := p.history.GetByID(r.PathValue("id"))
	w.Header().Set("Content-Type", "application/json")
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "Request not found"})
		return
	}
	_ = json.NewEncoder(w).Encode(rec)
}

// handleStatus reports process status on GET /.
func (p *Proxy) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":        "running",
		"mode":          p.profile.Mode,
		"message":       p.profile.DisplayName + " Proxy Server",
		"api_key_set":   p.cfg.Credential != "",
		"dashboard_url": "http://" + p.cfg.ListenAddr() + "/dashboard",
	})
}

// handleStats returns operational counters as JSON.
// Restricted to localhost to keep traffic metadata off the network.
func (p *Proxy) handleStats(w http.ResponseWriter, r *http.Request) {
	if !isLoopback(r.RemoteAddr) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	stats := struct {
		Mode     string `json:"mode"`
		AuditLog string `json:"audit_log"`
		PID      int    `json:"pid"`
		History  struct {
			Held     int `json:"held"`
			Capacity int `json:"capacity"`
		} `json:"history"`
		Metrics any `json:"metrics"`
	}{
		Mode:     p.profile.Mode,
		AuditLog: p.cfg.AuditLogPath,
		PID:      os.Getpid(),
		Metrics:  p.metrics.FullStats(),
	}
	stats.History.Held = p.history.Len()
	stats.History.Capacity = p.history.Capacity()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(stats)
}
