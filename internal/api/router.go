package api

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strings"

	"github.com/POLIGRAPH/poligraph/internal/database"
	"github.com/POLIGRAPH/poligraph/internal/engine"
)

// Deps bundles what the router needs to construct its handlers.
type Deps struct {
	DB                    *sql.DB
	Engine                *engine.Engine
	ClaimRepo             *database.ClaimRepository
	MarketRepo            *database.MarketRepository
	PredictionRepo        *database.PredictionRepository
	CalibrationReportRepo *database.CalibrationReportRepository
	InferenceLogRepo      *database.InferenceLogRepository
	CalibrationWindowDays int
	Logger                *slog.Logger
}

// SetupRoutes configures all API routes
func SetupRoutes(mux *http.ServeMux, deps Deps) {
	healthHandler := NewHealthHandler(deps.DB.Ping, deps.Logger)
	claimHandler := NewClaimHandler(deps.Engine, deps.ClaimRepo, deps.Logger)
	marketHandler := NewMarketHandler(deps.Engine, deps.MarketRepo, deps.PredictionRepo, deps.Logger)
	calibrationHandler := NewCalibrationHandler(deps.Engine, deps.CalibrationReportRepo, deps.CalibrationWindowDays, deps.Logger)
	inferenceLogHandler := NewInferenceLogHandler(deps.InferenceLogRepo, deps.Logger)

	mux.HandleFunc("/api/health", healthHandler.Health)

	// Claim routes
	mux.HandleFunc("/api/claims/", func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/verify") && r.Method == http.MethodPost {
			claimHandler.VerifyClaim(w, r)
			return
		}
		claimHandler.GetClaim(w, r)
	})

	// Market routes
	mux.HandleFunc("/api/markets/", func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/forecast") && r.Method == http.MethodPost:
			marketHandler.Forecast(w, r)
		case strings.HasSuffix(r.URL.Path, "/resolve") && r.Method == http.MethodPost:
			marketHandler.Resolve(w, r)
		case strings.HasSuffix(r.URL.Path, "/history"):
			marketHandler.History(w, r)
		default:
			marketHandler.GetMarket(w, r)
		}
	})

	// Calibration routes
	mux.HandleFunc("/api/calibration", calibrationHandler.ListAgents)
	mux.HandleFunc("/api/calibration/", func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/run") && r.Method == http.MethodPost {
			calibrationHandler.RunReport(w, r)
			return
		}
		calibrationHandler.GetReport(w, r)
	})

	// Admin routes
	mux.HandleFunc("/api/admin/inference-stats", inferenceLogHandler.GetStats)
}
