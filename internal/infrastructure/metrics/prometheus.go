package metrics

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusCollector implements port.MetricsCollector using Prometheus.
type PrometheusCollector struct {
	registry              *prometheus.Registry
	matchesTotal          *prometheus.CounterVec
	validationErrorsTotal *prometheus.CounterVec
	matchDurationSeconds  *prometheus.HistogramVec
	cacheEntries          prometheus.Gauge
	cacheRefreshTotal     *prometheus.CounterVec
	eventsConsumedTotal   prometheus.Counter
	eventsPublishedTotal  prometheus.Counter
	errorsTotal           *prometheus.CounterVec
	rpcDurationSeconds    *prometheus.HistogramVec
}

// NewPrometheusCollector creates a PrometheusCollector and registers its
// metrics on registry. A nil registry gets a private one.
func NewPrometheusCollector(registry *prometheus.Registry) (*PrometheusCollector, error) {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	pc := &PrometheusCollector{
		registry: registry,
		matchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "filter_matches_total",
				Help: "Total number of filter group evaluations by subject and result",
			},
			[]string{"subject", "result"},
		),
		validationErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "filter_validation_errors_total",
				Help: "Total number of rejected filter groups by subject and reason",
			},
			[]string{"subject", "reason"},
		),
		matchDurationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "filter_match_duration_seconds",
				Help:    "Duration of a match call, cache fetch included",
				Buckets: []float64{0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
			},
			[]string{"subject"},
		),
		cacheEntries: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "resolved_filters_cache_entries",
				Help: "Number of entities held by the resolved filters cache",
			},
		),
		cacheRefreshTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "resolved_filters_cache_refresh_total",
				Help: "Total number of cache refreshes by result",
			},
			[]string{"result"},
		),
		eventsConsumedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "stream_events_consumed_total",
				Help: "Total number of live stream events consumed",
			},
		),
		eventsPublishedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "stream_events_published_total",
				Help: "Total number of matched events published",
			},
		),
		errorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "errors_total",
				Help: "Total number of errors by component and type",
			},
			[]string{"component", "error_type"},
		),
		rpcDurationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "grpc_request_duration_seconds",
				Help:    "Duration of gRPC calls by method and status code",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "code"},
		),
	}

	collectors := map[string]prometheus.Collector{
		"filter_matches_total":                 pc.matchesTotal,
		"filter_validation_errors_total":       pc.validationErrorsTotal,
		"filter_match_duration_seconds":        pc.matchDurationSeconds,
		"resolved_filters_cache_entries":       pc.cacheEntries,
		"resolved_filters_cache_refresh_total": pc.cacheRefreshTotal,
		"stream_events_consumed_total":         pc.eventsConsumedTotal,
		"stream_events_published_total":        pc.eventsPublishedTotal,
		"errors_total":                         pc.errorsTotal,
		"grpc_request_duration_seconds":        pc.rpcDurationSeconds,
	}
	for name, c := range collectors {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register %s: %w", name, err)
		}
	}

	return pc, nil
}

// RecordMatch records the outcome and duration of a match call.
func (pc *PrometheusCollector) RecordMatch(subject string, matched bool, duration time.Duration) {
	pc.matchesTotal.WithLabelValues(subject, strconv.FormatBool(matched)).Inc()
	pc.matchDurationSeconds.WithLabelValues(subject).Observe(duration.Seconds())
}

// RecordValidationError increments the rejected filter groups counter.
func (pc *PrometheusCollector) RecordValidationError(subject, reason string) {
	pc.validationErrorsTotal.WithLabelValues(subject, reason).Inc()
}

// RecordCacheRefresh records a cache refresh and, on success, the new size.
func (pc *PrometheusCollector) RecordCacheRefresh(success bool, entries int) {
	if !success {
		pc.cacheRefreshTotal.WithLabelValues("failure").Inc()
		return
	}
	pc.cacheRefreshTotal.WithLabelValues("success").Inc()
	pc.cacheEntries.Set(float64(entries))
}

// RecordEventConsumed increments the consumed events counter.
func (pc *PrometheusCollector) RecordEventConsumed() {
	pc.eventsConsumedTotal.Inc()
}

// RecordEventPublished increments the published events counter.
func (pc *PrometheusCollector) RecordEventPublished() {
	pc.eventsPublishedTotal.Inc()
}

// RecordError increments the error counter for a component and error type.
func (pc *PrometheusCollector) RecordError(component, errorType string) {
	pc.errorsTotal.WithLabelValues(component, errorType).Inc()
}

// RecordRPC observes the duration of a gRPC call.
func (pc *PrometheusCollector) RecordRPC(method, code string, duration time.Duration) {
	pc.rpcDurationSeconds.WithLabelValues(method, code).Observe(duration.Seconds())
}

// Registry returns the registry the metrics are registered on.
func (pc *PrometheusCollector) Registry() *prometheus.Registry {
	return pc.registry
}

// HTTPHandler returns the Prometheus metrics HTTP handler.
func (pc *PrometheusCollector) HTTPHandler() http.Handler {
	return promhttp.HandlerFor(pc.registry, promhttp.HandlerOpts{})
}

// NewMetricsServer creates and returns an HTTP server for Prometheus metrics.
func NewMetricsServer(port int, path string, handler http.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(path, handler)

	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      5 * time.Second,
		IdleTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
