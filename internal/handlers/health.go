package handlers

import (
	"context"
	"net/http"
	"time"
)

// Health pings each configured dependency. Any failure answers 503 so the
// load balancer drains the instance.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	checks := make(map[string]string, len(h.HealthChecks))
	status := http.StatusOK
	for name, check := range h.HealthChecks {
		if err := check(ctx); err != nil {
			h.Log.Warn("health check failed", "dependency", name, "error", err)
			checks[name] = "down"
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}
	writeJSON(w, status, envelope{"success": status == http.StatusOK, "checks": checks})
}
