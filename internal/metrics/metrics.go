package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector exposes Prometheus metrics for inbound HTTP requests and for the
// verdict/forecast engine itself.
type Collector struct {
	registry        *prometheus.Registry
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec

	verificationsTotal *prometheus.CounterVec
	providerFallbacks  *prometheus.CounterVec
	searchErrors       prometheus.Counter
	forecastsTotal     prometheus.Counter
	calibrationRuns    prometheus.Counter
}

// NewCollector constructs a collector with default histograms/counters.
func NewCollector() (*Collector, error) {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "poligraph",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Latency distribution for inbound HTTP requests.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "poligraph",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of inbound HTTP requests.",
	}, []string{"method", "path", "status"})

	verificationsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "poligraph",
		Subsystem: "engine",
		Name:      "verifications_total",
		Help:      "Completed claim verification runs by verdict status.",
	}, []string{"status"})

	providerFallbacks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "poligraph",
		Subsystem: "engine",
		Name:      "provider_fallbacks_total",
		Help:      "Verdict provider failures that advanced the chain to the next provider.",
	}, []string{"provider"})

	searchErrors := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "poligraph",
		Subsystem: "engine",
		Name:      "search_errors_total",
		Help:      "Web search provider failures absorbed by the degraded evidence path.",
	})

	forecastsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "poligraph",
		Subsystem: "engine",
		Name:      "forecasts_total",
		Help:      "Market predictions synthesized.",
	})

	calibrationRuns := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "poligraph",
		Subsystem: "engine",
		Name:      "calibration_runs_total",
		Help:      "Calibration reports computed.",
	})

	collectors := []prometheus.Collector{
		requestDuration, requestTotal, verificationsTotal,
		providerFallbacks, searchErrors, forecastsTotal, calibrationRuns,
	}
	for _, c := range collectors {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}

	return &Collector{
		registry:           registry,
		requestDuration:    requestDuration,
		requestTotal:       requestTotal,
		verificationsTotal: verificationsTotal,
		providerFallbacks:  providerFallbacks,
		searchErrors:       searchErrors,
		forecastsTotal:     forecastsTotal,
		calibrationRuns:    calibrationRuns,
	}, nil
}

// Handler returns an HTTP handler for exposing Prometheus metrics.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// RecordVerification counts a completed verification run by final status.
func (c *Collector) RecordVerification(status string) {
	c.verificationsTotal.WithLabelValues(status).Inc()
}

// RecordProviderFallback counts a provider failure that advanced the chain.
func (c *Collector) RecordProviderFallback(provider string) {
	c.providerFallbacks.WithLabelValues(provider).Inc()
}

// RecordSearchError counts a search provider failure.
func (c *Collector) RecordSearchError() { c.searchErrors.Inc() }

// RecordForecast counts a synthesized prediction.
func (c *Collector) RecordForecast() { c.forecastsTotal.Inc() }

// RecordCalibrationRun counts a computed calibration report.
func (c *Collector) RecordCalibrationRun() { c.calibrationRuns.Inc() }

// InstrumentHandler wraps the provided handler to record HTTP metrics.
func (c *Collector) InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(rw.status)
		path := r.URL.Path

		c.requestTotal.WithLabelValues(r.Method, path, status).Inc()
		c.requestDuration.WithLabelValues(r.Method, path, status).Observe(duration)
	})
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (w *responseWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
