// Package proxy - dashboard.go serves a minimal page for the request viewer.
//
// DESIGN: The real viewer UI is an external collaborator that polls
// /api/requests; this handler only gives a human something useful when
// they open /dashboard in a browser without the viewer running.
package proxy

import "net/http"

// handleDashboard serves a fallback page linking to the JSON API.
// Restricted to localhost to keep captured traffic off the network.
func (p *Proxy) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if !isLoopback(r.RemoteAddr) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>API Request Viewer</title>
<style>
  body { font-family: system-ui, sans-serif; background: #0a0a0a; color: #fff; display: flex; align-items: center; justify-content: center; min-height: 100vh; margin: 0; }
  .container { text-align: center; padding: 48px; }
  h1 { font-size: 24px; margin-bottom: 16px; }
  p { color: #9ca3af; margin-bottom: 24px; }
  a { color: #22c55e; text-decoration: none; font-family: monospace; }
  a:hover { text-decoration: underline; }
</style>
</head>
<body>
<div class="container">
  <h1>` + p.profile.DisplayName + ` Proxy</h1>
  <p>Viewer UI not attached. Raw capture data:</p>
  <a href="/api/requests">/api/requests</a> (JSON) &nbsp;|&nbsp;
  <a href="/stats">/stats</a> (metrics)
</div>
</body>
</html>`))
}
