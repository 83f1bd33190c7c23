package bookingapi

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"consultdesk/internal/adapters/http/perf"
	"consultdesk/internal/adapters/metrics"
)

// timedTransport wraps an http.RoundTripper, recording every call's latency
// into the perf collector and prometheus, and logging failures and slow calls.
type timedTransport struct {
	next      http.RoundTripper
	collector *perf.Collector
	slowMs    float64
}

func (t *timedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := t.next.RoundTrip(req)
	elapsed := time.Since(start)
	ms := float64(elapsed.Microseconds()) / 1000.0

	status := 0
	if resp != nil {
		status = resp.StatusCode
	}
	endpoint := EndpointLabel(req.URL.Path)

	metrics.RecordUpstream(req.Method, endpoint, status, elapsed)
	if t.collector != nil {
		t.collector.Record(perf.Entry{
			Kind:       perf.KindUpstream,
			Path:       req.Method + " " + endpoint,
			StatusCode: status,
			DurationMs: ms,
			Timestamp:  start,
		})
	}

	requestID := req.Header.Get(RequestIDHeader)
	switch {
	case err != nil:
		slog.Warn("upstream_failed",
			"method", req.Method,
			"endpoint", endpoint,
			"request_id", requestID,
			"duration_ms", ms,
			"error", err,
		)
	case ms > t.slowMs:
		slog.Warn("slow_upstream",
			"method", req.Method,
			"endpoint", endpoint,
			"status", status,
			"request_id", requestID,
			"duration_ms", ms,
		)
	default:
		slog.Debug("upstream_request",
			"method", req.Method,
			"endpoint", endpoint,
			"status", status,
			"request_id", requestID,
			"duration_ms", ms,
		)
	}
	return resp, err
}

// EndpointLabel collapses numeric path segments to ":id" so label
// cardinality stays bounded: "/experts/12/bookings" → "/experts/:id/bookings".
func EndpointLabel(path string) string {
	parts := strings.Split(path, "/")
	for i, p := range parts {
		if p == "" {
			continue
		}
		numeric := true
		for _, r := range p {
			if r < '0' || r > '9' {
				numeric = false
				break
			}
		}
		if numeric {
			parts[i] = ":id"
		}
	}
	return strings.Join(parts, "/")
}
