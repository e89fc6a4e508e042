package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// writeJSON renders a JSON response with the standard headers.
func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*") // CORS for dev
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}

// pathSegment extracts the path segment at position idx, e.g. idx 3 of
// /api/claims/abc/verify is "abc".
func pathSegment(r *http.Request, idx int) string {
	parts := strings.Split(r.URL.Path, "/")
	if len(parts) <= idx {
		return ""
	}
	return parts[idx]
}

// HealthHandler reports process liveness and database reachability.
type HealthHandler struct {
	ping      func() error
	logger    *slog.Logger
	startTime time.Time
}

func NewHealthHandler(ping func() error, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		ping:      ping,
		logger:    logger,
		startTime: time.Now(),
	}
}

// Health handles GET /api/health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	status := "ok"
	code := http.StatusOK
	if err := h.ping(); err != nil {
		h.logger.Error("health check failed", "error", err)
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	writeJSON(w, h.logger, code, map[string]any{
		"status":         status,
		"uptime_seconds": int(time.Since(h.startTime).Seconds()),
	})
}
