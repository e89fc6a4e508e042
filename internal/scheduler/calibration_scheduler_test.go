package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"
)

type stubAgentLister struct {
	agents []string
	err    error
}

func (s *stubAgentLister) ListAgents(ctx context.Context) ([]string, error) {
	return s.agents, s.err
}

func TestRunAllReportsCoversEveryAgent(t *testing.T) {
	var mu sync.Mutex
	ran := map[string]int{}

	s := NewCalibrationScheduler(
		&stubAgentLister{agents: []string{"agent-a", "agent-b"}},
		func(ctx context.Context, agentID string, windowDays int) error {
			mu.Lock()
			defer mu.Unlock()
			ran[agentID] = windowDays
			return nil
		},
		time.Hour, 90, slog.New(slog.DiscardHandler))

	s.runAllReports(context.Background())

	if len(ran) != 2 {
		t.Fatalf("expected 2 agents refreshed, got %d", len(ran))
	}
	if ran["agent-a"] != 90 || ran["agent-b"] != 90 {
		t.Errorf("unexpected window days: %v", ran)
	}
}

func TestRunAllReportsContinuesPastFailures(t *testing.T) {
	var ran []string

	s := NewCalibrationScheduler(
		&stubAgentLister{agents: []string{"bad", "good"}},
		func(ctx context.Context, agentID string, windowDays int) error {
			ran = append(ran, agentID)
			if agentID == "bad" {
				return errors.New("boom")
			}
			return nil
		},
		time.Hour, 30, slog.New(slog.DiscardHandler))

	s.runAllReports(context.Background())

	if len(ran) != 2 {
		t.Errorf("expected both agents attempted despite failure, got %v", ran)
	}
}

func TestSchedulerStops(t *testing.T) {
	s := NewCalibrationScheduler(
		&stubAgentLister{},
		func(ctx context.Context, agentID string, windowDays int) error { return nil },
		time.Hour, 90, slog.New(slog.DiscardHandler))

	done := make(chan struct{})
	go func() {
		s.Start(context.Background())
		close(done)
	}()

	s.Stop()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}
