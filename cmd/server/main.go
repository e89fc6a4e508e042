package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/POLIGRAPH/poligraph/internal/api"
	"github.com/POLIGRAPH/poligraph/internal/calibration"
	"github.com/POLIGRAPH/poligraph/internal/cloudsql"
	"github.com/POLIGRAPH/poligraph/internal/config"
	"github.com/POLIGRAPH/poligraph/internal/database"
	"github.com/POLIGRAPH/poligraph/internal/engine"
	"github.com/POLIGRAPH/poligraph/internal/evidence"
	"github.com/POLIGRAPH/poligraph/internal/inference"
	"github.com/POLIGRAPH/poligraph/internal/logging"
	"github.com/POLIGRAPH/poligraph/internal/metrics"
	"github.com/POLIGRAPH/poligraph/internal/scheduler"
	"github.com/POLIGRAPH/poligraph/internal/search"
	"github.com/POLIGRAPH/poligraph/internal/server"
	"github.com/POLIGRAPH/poligraph/internal/synthesis"
	"github.com/POLIGRAPH/poligraph/internal/verdict"
	openai "github.com/sashabaranov/go-openai"
)

const agentID = "poligraph-v1"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stdout, nil)).Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stdout, nil)).Error("failed to init logger", "error", err)
		os.Exit(1)
	}

	logger.Info("starting poligraph")

	// Connect to database (supports both local DATABASE_URL and Cloud SQL)
	dbURL, err := cloudsql.BuildDatabaseURL()
	if err != nil {
		logger.Error("failed to build database URL", "error", err)
		os.Exit(1)
	}
	logger.Info("database configuration", "config", cloudsql.GetConnectionConfig())

	dbCfg := database.DefaultConfig()
	dbCfg.URL = dbURL
	db, err := database.Connect(context.Background(), dbCfg)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	logger.Info("database connected")

	// Run pending migrations (non-fatal to allow app to start even if migrations fail)
	if err := database.RunMigrations(db, "./migrations", logger); err != nil {
		logger.Warn("failed to run migrations, continuing anyway", "error", err)
	}

	// Repositories
	claimRepo := database.NewClaimRepository(db)
	marketRepo := database.NewMarketRepository(db)
	predictionRepo := database.NewPredictionRepository(db)
	voteRepo := database.NewVoteRepository(db)
	reportRepo := database.NewCalibrationReportRepository(db)
	inferenceLogRepo := database.NewInferenceLogRepository(db)

	inferenceLogger := inference.NewLogger(inferenceLogRepo, logging.Component(logger, "inference"))

	collector, err := metrics.NewCollector()
	if err != nil {
		logger.Error("failed to init metrics", "error", err)
		os.Exit(1)
	}

	// Evidence gathering: web search plus hybrid search over verified claims
	searchClient := search.NewClient(cfg.Search, logging.Component(logger, "search"))
	if !searchClient.Available() {
		logger.Warn("no search API key configured, verifying with zero external evidence")
	}

	var embedder evidence.Embedder
	if cfg.Verdict.OpenAIAPIKey != "" {
		embedder = openai.NewClient(cfg.Verdict.OpenAIAPIKey)
	} else {
		logger.Warn("no OpenAI API key configured, hybrid search runs keyword-only")
	}
	aggregator := evidence.NewAggregator(
		searchClient,
		embedder,
		claimRepo,
		cfg.Verdict.EmbeddingModel,
		collector,
		logging.Component(logger, "evidence"),
	)

	// Verdict classification: ordered provider chain
	var providers []verdict.Provider
	if cfg.Verdict.OpenAIAPIKey != "" {
		providers = append(providers, verdict.NewOpenAIProvider(cfg.Verdict.OpenAIAPIKey, cfg.Verdict.OpenAIModel, inferenceLogger))
	}
	if cfg.Verdict.AnthropicAPIKey != "" {
		providers = append(providers, verdict.NewAnthropicProvider(cfg.Verdict.AnthropicAPIKey, cfg.Verdict.AnthropicModel, inferenceLogger))
	}
	if len(providers) == 0 {
		logger.Warn("no verdict providers configured, every claim will get the fallback verdict")
	}
	classifier := verdict.NewClassifier(providers, cfg.Verdict.CallTimeout, collector, logging.Component(logger, "verdict"))

	eng := engine.New(engine.Config{
		Claims:      claimRepo,
		Markets:     marketRepo,
		Predictions: predictionRepo,
		Votes:       voteRepo,
		Reports:     reportRepo,
		Gatherer:    aggregator,
		Classifier:  classifier,
		Synthesizer: synthesis.NewSynthesizer(logging.Component(logger, "synthesis")),
		Tracker:     calibration.NewTracker(logging.Component(logger, "calibration")),
		AgentID:     agentID,
		Metrics:     collector,
		Logger:      logging.Component(logger, "engine"),
	})

	// Periodic calibration report refresh
	calibrationScheduler := scheduler.NewCalibrationScheduler(
		reportRepo,
		func(ctx context.Context, agent string, windowDays int) error {
			_, err := eng.RunCalibrationReport(ctx, agent, windowDays)
			return err
		},
		cfg.Calibration.Interval,
		cfg.Calibration.WindowDays,
		logging.Component(logger, "scheduler"),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go calibrationScheduler.Start(ctx)

	// HTTP surface
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())
	api.SetupRoutes(mux, api.Deps{
		DB:                    db,
		Engine:                eng,
		ClaimRepo:             claimRepo,
		MarketRepo:            marketRepo,
		PredictionRepo:        predictionRepo,
		CalibrationReportRepo: reportRepo,
		InferenceLogRepo:      inferenceLogRepo,
		CalibrationWindowDays: cfg.Calibration.WindowDays,
		Logger:                logging.Component(logger, "api"),
	})

	srv := server.New(cfg.Server, logging.Component(logger, "server"), collector.InstrumentHandler(mux))

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	calibrationScheduler.Stop()
	if err := srv.Shutdown(context.Background()); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
	logger.Info("poligraph stopped")
}
