package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCollectorRecordsHTTPMetrics(t *testing.T) {
	collector, err := NewCollector()
	if err != nil {
		t.Fatalf("NewCollector returned error: %v", err)
	}

	handlerInvoked := false
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerInvoked = true
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte("ok"))
	})

	instrumented := collector.InstrumentHandler(handler)

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rr := httptest.NewRecorder()

	instrumented.ServeHTTP(rr, req)

	if !handlerInvoked {
		t.Fatal("expected handler to be invoked")
	}

	if rr.Code != http.StatusAccepted {
		t.Fatalf("unexpected status code: %d", rr.Code)
	}

	body := scrape(t, collector)
	if !strings.Contains(body, `poligraph_http_requests_total{method="GET",path="/test",status="202"} 1`) {
		t.Fatalf("requests_total metric not recorded, body=%q", body)
	}
}

func TestCollectorRecordsEngineMetrics(t *testing.T) {
	collector, err := NewCollector()
	if err != nil {
		t.Fatalf("NewCollector returned error: %v", err)
	}

	collector.RecordVerification("Verified")
	collector.RecordVerification("Verified")
	collector.RecordVerification("Unverified")
	collector.RecordProviderFallback("openai")
	collector.RecordSearchError()
	collector.RecordForecast()
	collector.RecordCalibrationRun()

	body := scrape(t, collector)

	checks := []string{
		`poligraph_engine_verifications_total{status="Verified"} 2`,
		`poligraph_engine_verifications_total{status="Unverified"} 1`,
		`poligraph_engine_provider_fallbacks_total{provider="openai"} 1`,
		`poligraph_engine_search_errors_total 1`,
		`poligraph_engine_forecasts_total 1`,
		`poligraph_engine_calibration_runs_total 1`,
	}
	for _, check := range checks {
		if !strings.Contains(body, check) {
			t.Errorf("expected metric %q in scrape output", check)
		}
	}
}

func scrape(t *testing.T, collector *Collector) string {
	t.Helper()
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	collector.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected metrics handler to return 200, got %d", rr.Code)
	}
	return rr.Body.String()
}
