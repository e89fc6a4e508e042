package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/POLIGRAPH/poligraph/internal/database"
	"github.com/POLIGRAPH/poligraph/internal/engine"
)

// MarketHandler handles HTTP requests for market forecasts and resolution.
type MarketHandler struct {
	engine         *engine.Engine
	marketRepo     *database.MarketRepository
	predictionRepo *database.PredictionRepository
	logger         *slog.Logger
}

func NewMarketHandler(eng *engine.Engine, marketRepo *database.MarketRepository, predictionRepo *database.PredictionRepository, logger *slog.Logger) *MarketHandler {
	return &MarketHandler{
		engine:         eng,
		marketRepo:     marketRepo,
		predictionRepo: predictionRepo,
		logger:         logger,
	}
}

// GetMarket handles GET /api/markets/:id — the market with its current
// prediction, if one exists.
func (h *MarketHandler) GetMarket(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	marketID := pathSegment(r, 3)
	if marketID == "" {
		http.Error(w, "Market ID required", http.StatusBadRequest)
		return
	}

	market, err := h.marketRepo.GetMarket(r.Context(), marketID)
	if err != nil {
		h.logger.Error("failed to get market", "market_id", marketID, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if market == nil {
		http.Error(w, "Market not found", http.StatusNotFound)
		return
	}

	prediction, err := h.predictionRepo.GetCurrent(r.Context(), marketID)
	if err != nil {
		h.logger.Error("failed to get current prediction", "market_id", marketID, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, map[string]any{
		"market":     market,
		"prediction": prediction,
	})
}

// Forecast handles POST /api/markets/:id/forecast — recomputes the current
// prediction from the latest signals.
func (h *MarketHandler) Forecast(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	marketID := pathSegment(r, 3)
	prediction, err := h.engine.ForecastMarket(r.Context(), marketID)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			http.Error(w, "Market not found", http.StatusNotFound)
			return
		}
		if strings.Contains(err.Error(), "not open") {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		h.logger.Error("forecast failed", "market_id", marketID, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, prediction)
}

// History handles GET /api/markets/:id/history — the append-only prediction
// history for trend charts, newest first.
func (h *MarketHandler) History(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	marketID := pathSegment(r, 3)
	limit := 100
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	history, err := h.predictionRepo.GetHistory(r.Context(), marketID, limit)
	if err != nil {
		h.logger.Error("failed to get prediction history", "market_id", marketID, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, map[string]any{
		"market_id":   marketID,
		"predictions": history,
		"count":       len(history),
	})
}

// Resolve handles POST /api/markets/:id/resolve — records the externally
// decided binary outcome.
func (h *MarketHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	marketID := pathSegment(r, 3)

	var body struct {
		Outcome *bool `json:"outcome"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Outcome == nil {
		http.Error(w, "Request body must include boolean outcome", http.StatusBadRequest)
		return
	}

	if err := h.engine.ResolveMarket(r.Context(), marketID, *body.Outcome); err != nil {
		if strings.Contains(err.Error(), "not found") {
			http.Error(w, "Market not found", http.StatusNotFound)
			return
		}
		if strings.Contains(err.Error(), "already resolved") {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		h.logger.Error("market resolution failed", "market_id", marketID, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, map[string]any{
		"market_id": marketID,
		"outcome":   *body.Outcome,
	})
}
