package scheduler

import (
	"context"
	"log/slog"
	"time"
)

// AgentLister returns every forecasting agent that has produced predictions.
type AgentLister interface {
	ListAgents(ctx context.Context) ([]string, error)
}

// CalibrationScheduler periodically recomputes calibration reports for every
// known forecasting agent so the dashboard always reflects recent
// resolutions without an operator triggering reports by hand.
type CalibrationScheduler struct {
	agents     AgentLister
	run        func(ctx context.Context, agentID string, windowDays int) error
	logger     *slog.Logger
	stopChan   chan struct{}
	interval   time.Duration
	windowDays int
}

// NewCalibrationScheduler creates a scheduler that recomputes reports every
// interval over the given rolling window.
func NewCalibrationScheduler(
	agents AgentLister,
	run func(ctx context.Context, agentID string, windowDays int) error,
	interval time.Duration,
	windowDays int,
	logger *slog.Logger,
) *CalibrationScheduler {
	return &CalibrationScheduler{
		agents:     agents,
		run:        run,
		logger:     logger,
		stopChan:   make(chan struct{}),
		interval:   interval,
		windowDays: windowDays,
	}
}

// Start begins the scheduler loop
func (s *CalibrationScheduler) Start(ctx context.Context) {
	s.logger.Info("Starting calibration scheduler",
		"interval", s.interval,
		"window_days", s.windowDays)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// Run once immediately on start
	s.runAllReports(ctx)

	for {
		select {
		case <-ticker.C:
			s.runAllReports(ctx)
		case <-s.stopChan:
			s.logger.Info("Calibration scheduler stopped")
			return
		case <-ctx.Done():
			s.logger.Info("Calibration scheduler stopping due to context cancellation")
			return
		}
	}
}

// Stop stops the scheduler
func (s *CalibrationScheduler) Stop() {
	close(s.stopChan)
}

// runAllReports recomputes the calibration report for every known agent.
// One agent failing does not block the rest.
func (s *CalibrationScheduler) runAllReports(ctx context.Context) {
	agents, err := s.agents.ListAgents(ctx)
	if err != nil {
		s.logger.Error("Failed to list forecasting agents", "error", err)
		return
	}

	if len(agents) == 0 {
		s.logger.Debug("No forecasting agents with reports to refresh")
		return
	}

	for _, agentID := range agents {
		if err := s.run(ctx, agentID, s.windowDays); err != nil {
			s.logger.Error("Failed to refresh calibration report",
				"agent_id", agentID,
				"error", err)
			continue
		}
		s.logger.Info("Calibration report refreshed", "agent_id", agentID)
	}
}
