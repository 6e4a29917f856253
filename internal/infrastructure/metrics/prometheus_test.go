package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPrometheusCollector_RecordMatch(t *testing.T) {
	pc, err := NewPrometheusCollector(nil)
	if err != nil {
		t.Fatalf("NewPrometheusCollector() error = %v", err)
	}

	pc.RecordMatch("stix", true, time.Millisecond)
	pc.RecordMatch("stix", true, time.Millisecond)
	pc.RecordMatch("stix", false, time.Millisecond)

	if got := testutil.ToFloat64(pc.matchesTotal.WithLabelValues("stix", "true")); got != 2 {
		t.Errorf("filter_matches_total{stix,true} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(pc.matchesTotal.WithLabelValues("stix", "false")); got != 1 {
		t.Errorf("filter_matches_total{stix,false} = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(pc.matchDurationSeconds); got != 1 {
		t.Errorf("filter_match_duration_seconds series = %d, want 1", got)
	}
}

func TestPrometheusCollector_CacheAndErrors(t *testing.T) {
	pc, err := NewPrometheusCollector(nil)
	if err != nil {
		t.Fatalf("NewPrometheusCollector() error = %v", err)
	}

	pc.RecordCacheRefresh(true, 42)
	pc.RecordCacheRefresh(false, 0)
	pc.RecordValidationError("event", "unknown_key")
	pc.RecordError("dispatch", "publish")
	pc.RecordEventConsumed()
	pc.RecordEventPublished()

	if got := testutil.ToFloat64(pc.cacheEntries); got != 42 {
		t.Errorf("resolved_filters_cache_entries = %v, want 42 (failure must keep it)", got)
	}
	if got := testutil.ToFloat64(pc.cacheRefreshTotal.WithLabelValues("failure")); got != 1 {
		t.Errorf("refresh failures = %v, want 1", got)
	}
	if got := testutil.ToFloat64(pc.validationErrorsTotal.WithLabelValues("event", "unknown_key")); got != 1 {
		t.Errorf("validation errors = %v, want 1", got)
	}
	if got := testutil.ToFloat64(pc.errorsTotal.WithLabelValues("dispatch", "publish")); got != 1 {
		t.Errorf("errors_total = %v, want 1", got)
	}
	if testutil.ToFloat64(pc.eventsConsumedTotal) != 1 || testutil.ToFloat64(pc.eventsPublishedTotal) != 1 {
		t.Error("stream event counters not incremented")
	}
}

func TestPrometheusCollector_RecordRPC(t *testing.T) {
	pc, err := NewPrometheusCollector(nil)
	if err != nil {
		t.Fatalf("NewPrometheusCollector() error = %v", err)
	}

	pc.RecordRPC("/stixfilter.v1.FilterService/MatchStix", "OK", 2*time.Millisecond)
	pc.RecordRPC("/stixfilter.v1.FilterService/MatchStix", "InvalidArgument", time.Millisecond)

	if got := testutil.CollectAndCount(pc.rpcDurationSeconds); got != 2 {
		t.Errorf("grpc_request_duration_seconds series = %d, want 2", got)
	}
}

func TestNewPrometheusCollector_DuplicateRegistration(t *testing.T) {
	registry := prometheus.NewRegistry()
	if _, err := NewPrometheusCollector(registry); err != nil {
		t.Fatalf("first NewPrometheusCollector() error = %v", err)
	}
	if _, err := NewPrometheusCollector(registry); err == nil {
		t.Error("second registration on the same registry expected error, got nil")
	}
}

func TestPrometheusCollector_HTTPHandler(t *testing.T) {
	pc, err := NewPrometheusCollector(nil)
	if err != nil {
		t.Fatalf("NewPrometheusCollector() error = %v", err)
	}
	pc.RecordEventConsumed()

	rec := httptest.NewRecorder()
	pc.HTTPHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "stream_events_consumed_total 1") {
		t.Error("metrics output misses stream_events_consumed_total")
	}
}
