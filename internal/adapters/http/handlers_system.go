package web

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// healthTimeout bounds the upstream probe so /health answers promptly.
const healthTimeout = 3 * time.Second

// handleLanding handles GET /
func handleLanding(w http.ResponseWriter, r *http.Request) {
	renderTemplate(w, r, "landing.html", nil)
}

// handleHealth handles GET /health, reporting whether the booking API answers.
func handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	upstream, err := api.Health(ctx)
	if err != nil {
		slog.Warn("health_upstream_failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status":   "degraded",
			"upstream": "unavailable",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "ok",
		"upstream": upstream,
	})
}
