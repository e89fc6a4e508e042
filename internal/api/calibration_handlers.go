package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/POLIGRAPH/poligraph/internal/database"
	"github.com/POLIGRAPH/poligraph/internal/engine"
	"github.com/POLIGRAPH/poligraph/internal/models"
)

// CalibrationHandler handles HTTP requests for calibration reports.
type CalibrationHandler struct {
	engine        *engine.Engine
	reportRepo    *database.CalibrationReportRepository
	defaultWindow int
	logger        *slog.Logger
}

func NewCalibrationHandler(eng *engine.Engine, reportRepo *database.CalibrationReportRepository, defaultWindow int, logger *slog.Logger) *CalibrationHandler {
	return &CalibrationHandler{
		engine:        eng,
		reportRepo:    reportRepo,
		defaultWindow: defaultWindow,
		logger:        logger,
	}
}

// ListAgents handles GET /api/calibration — every agent with predictions.
func (h *CalibrationHandler) ListAgents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	agents, err := h.reportRepo.ListAgents(r.Context())
	if err != nil {
		h.logger.Error("failed to list agents", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, map[string]any{
		"agents": agents,
		"count":  len(agents),
	})
}

// GetReport handles GET /api/calibration/:agent_id — the stored report for
// the agent, with its quality band.
func (h *CalibrationHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	agentID := pathSegment(r, 3)
	if agentID == "" {
		http.Error(w, "Agent ID required", http.StatusBadRequest)
		return
	}

	report, err := h.reportRepo.Get(r.Context(), agentID, h.windowDays(r))
	if err != nil {
		h.logger.Error("failed to get calibration report", "agent_id", agentID, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if report == nil {
		http.Error(w, "No calibration report for agent", http.StatusNotFound)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, map[string]any{
		"report":        report,
		"brier_quality": models.BrierQuality(report.BrierScore),
	})
}

// RunReport handles POST /api/calibration/:agent_id/run — recomputes the
// report immediately instead of waiting for the scheduler.
func (h *CalibrationHandler) RunReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	agentID := pathSegment(r, 3)
	if agentID == "" {
		http.Error(w, "Agent ID required", http.StatusBadRequest)
		return
	}

	report, err := h.engine.RunCalibrationReport(r.Context(), agentID, h.windowDays(r))
	if err != nil {
		h.logger.Error("failed to run calibration report", "agent_id", agentID, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, map[string]any{
		"report":        report,
		"brier_quality": models.BrierQuality(report.BrierScore),
	})
}

func (h *CalibrationHandler) windowDays(r *http.Request) int {
	if windowStr := r.URL.Query().Get("window_days"); windowStr != "" {
		if parsed, err := strconv.Atoi(windowStr); err == nil && parsed > 0 {
			return parsed
		}
	}
	return h.defaultWindow
}
