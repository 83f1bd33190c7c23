package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "consultdesk_http_requests_total",
			Help: "Inbound HTTP requests by method, route and status.",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "consultdesk_http_request_duration_seconds",
			Help:    "Inbound HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	UpstreamRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "consultdesk_upstream_requests_total",
			Help: "Calls to the booking API by method, endpoint and status (0 = transport failure).",
		},
		[]string{"method", "endpoint", "status"},
	)

	UpstreamRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "consultdesk_upstream_request_duration_seconds",
			Help:    "Booking API call latency.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	BookingsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "consultdesk_bookings_created_total",
			Help: "Bookings successfully submitted by students.",
		},
	)

	BookingsCancelled = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "consultdesk_bookings_cancelled_total",
			Help: "Bookings cancelled by students with a cancellation code.",
		},
	)

	ValidationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "consultdesk_validation_failures_total",
			Help: "Form submissions rejected before any upstream call, by form.",
		},
		[]string{"form"},
	)

	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "consultdesk_active_sessions",
			Help: "Browser sessions currently held by the session store.",
		},
	)
)

// RecordHTTPRequest records one inbound request.
func RecordHTTPRequest(method, route string, status int, d time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// RecordUpstream records one booking API call.
func RecordUpstream(method, endpoint string, status int, d time.Duration) {
	UpstreamRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
	UpstreamRequestDuration.WithLabelValues(method, endpoint).Observe(d.Seconds())
}

// RecordValidationFailure counts a form rejected client-side.
func RecordValidationFailure(form string) {
	ValidationFailures.WithLabelValues(form).Inc()
}

// RecordBookingCreated counts a successful booking.
func RecordBookingCreated() {
	BookingsCreated.Inc()
}

// RecordBookingCancelled counts a successful self-cancellation.
func RecordBookingCancelled() {
	BookingsCancelled.Inc()
}

// SetActiveSessions reports the session store size.
func SetActiveSessions(n int) {
	ActiveSessions.Set(float64(n))
}
