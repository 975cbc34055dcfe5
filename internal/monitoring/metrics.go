// Package monitoring - metrics.go provides simple counters.
//
// DESIGN: Lightweight in-memory counters for operational metrics:
//   - forwards/failures:  Upstream dispatch outcomes
//   - streamed/buffered:  Relay classification counts
//   - captures:           Records handed to the capture sink
//   - audit_failures:     Best-effort audit appends that failed
//
// For production, export these to Prometheus or similar.
package monitoring

import (
	"fmt"
	"sync/atomic"
	"time"
)

// MetricsCollector collects operational metrics.
type MetricsCollector struct {
	startedAt time.Time

	forwards         atomic.Int64
	upstreamFailures atomic.Int64
	streamed         atomic.Int64
	buffered         atomic.Int64
	captures         atomic.Int64
	auditFailures    atomic.Int64
}

// NewMetricsCollector creates a new metrics collector.
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{startedAt: time.Now()}
}

// RecordForward records one upstream dispatch attempt.
func (mc *MetricsCollector) RecordForward() { mc.forwards.Add(1) }

// RecordUpstreamFailure records a dispatch that never produced a response.
func (mc *MetricsCollector) RecordUpstreamFailure() { mc.upstreamFailures.Add(1) }

// RecordStreamed records a streaming relay.
func (mc *MetricsCollector) RecordStreamed() { mc.streamed.Add(1) }

// RecordBuffered records a buffered relay.
func (mc *MetricsCollector) RecordBuffered() { mc.buffered.Add(1) }

// RecordCapture records an exchange handed to the capture sink.
func (mc *MetricsCollector) RecordCapture() { mc.captures.Add(1) }

// RecordAuditFailure records a failed audit log append.
func (mc *MetricsCollector) RecordAuditFailure() { mc.auditFailures.Add(1) }

// StartedAt returns when the metrics collector was created.
func (mc *MetricsCollector) StartedAt() time.Time { return mc.startedAt }

// FullStats returns all metrics in a structured format for the /stats endpoint.
func (mc *MetricsCollector) FullStats() StatsResponse {
	uptime := time.Since(mc.startedAt)
	forwards := mc.forwards.Load()
	failures := mc.upstreamFailures.Load()

	return StatsResponse{
		Uptime:        formatDuration(uptime),
		UptimeSeconds: int64(uptime.Seconds()),
		StartedAt:     mc.startedAt.Format(time.RFC3339),
		Requests: RequestStats{
			Total:    forwards,
			Streamed: mc.streamed.Load(),
			Buffered: mc.buffered.Load(),
			Failed:   failures,
		},
		Capture: CaptureStats{
			Records:       mc.captures.Load(),
			AuditFailures: mc.auditFailures.Load(),
		},
	}
}

// StatsResponse is the structured response for the /stats endpoint.
type StatsResponse struct {
	Uptime        string       `json:"uptime"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartedAt     string       `json:"started_at"`
	Requests      RequestStats `json:"requests"`
	Capture       CaptureStats `json:"capture"`
}

// RequestStats holds relay outcome counts.
type RequestStats struct {
	Total    int64 `json:"total"`
	Streamed int64 `json:"streamed"`
	Buffered int64 `json:"buffered"`
	Failed   int64 `json:"failed"`
}

// CaptureStats holds capture side-channel counts.
type CaptureStats struct {
	Records       int64 `json:"records"`
	AuditFailures int64 `json:"audit_write_failures"`
}

// formatDuration formats a duration as a human-readable string.
func formatDuration(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}
