package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/POLIGRAPH/poligraph/internal/database"
)

// InferenceLogHandler exposes LLM call audit statistics for the ops
// dashboard.
type InferenceLogHandler struct {
	repo   *database.InferenceLogRepository
	logger *slog.Logger
}

func NewInferenceLogHandler(repo *database.InferenceLogRepository, logger *slog.Logger) *InferenceLogHandler {
	return &InferenceLogHandler{
		repo:   repo,
		logger: logger,
	}
}

// GetStats handles GET /api/admin/inference-stats
func (h *InferenceLogHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	since := time.Now().AddDate(0, 0, -30)
	if sinceStr := r.URL.Query().Get("since"); sinceStr != "" {
		if parsed, err := time.Parse(time.RFC3339, sinceStr); err == nil {
			since = parsed
		}
	}

	stats, err := h.repo.GetStats(r.Context(), since)
	if err != nil {
		h.logger.Error("failed to get inference stats", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, stats)
}
