package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dheemanth-hn/stix-filter-gateway/internal/infrastructure/logging"
)

// Health status constants.
const (
	HealthyStatus   = "healthy"
	UnhealthyStatus = "unhealthy"
	StartingStatus  = "starting"
)

const checkTimeout = 5 * time.Second

// Check defines the interface for health checks.
type Check interface {
	Name() string
	Check(ctx context.Context) error
}

// CheckStatus represents the status of a single health check.
type CheckStatus struct {
	Name     string        `json:"name"`
	Status   string        `json:"status"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration_ns"`
}

// HealthStatus represents the overall health status.
type HealthStatus struct { //nolint:revive // established API
	Status    string        `json:"status"`
	Checks    []CheckStatus `json:"checks"`
	Timestamp time.Time     `json:"timestamp"`
}

// Healthy reports whether every check passed.
func (s *HealthStatus) Healthy() bool {
	return s.Status == HealthyStatus
}

// HealthChecker runs named checks. Readiness additionally waits until
// MarkReady has been called, which the gateway does after the first cache load.
type HealthChecker struct { //nolint:revive // established API
	checks map[string]Check
	ready  atomic.Bool
	logger logging.Logger
	mu     sync.RWMutex
}

// NewHealthChecker creates a new HealthChecker.
func NewHealthChecker(logger logging.Logger) *HealthChecker {
	return &HealthChecker{
		checks: make(map[string]Check),
		logger: logger,
	}
}

// RegisterCheck registers a health check.
func (hc *HealthChecker) RegisterCheck(check Check) error {
	if check == nil {
		return fmt.Errorf("check cannot be nil")
	}

	name := check.Name()
	if name == "" {
		return fmt.Errorf("check name cannot be empty")
	}

	hc.mu.Lock()
	defer hc.mu.Unlock()

	if _, exists := hc.checks[name]; exists {
		return fmt.Errorf("check with name %q already registered", name)
	}

	hc.checks[name] = check
	hc.logger.Info("registered health check", logging.Field{Key: "check", Value: name})
	return nil
}

// MarkReady flips readiness.
func (hc *HealthChecker) MarkReady(ready bool) {
	hc.ready.Store(ready)
}

// IsReady reports the readiness flag.
func (hc *HealthChecker) IsReady() bool {
	return hc.ready.Load()
}

// CheckAll runs every check concurrently. Results are sorted by name.
func (hc *HealthChecker) CheckAll(ctx context.Context) *HealthStatus {
	hc.mu.RLock()
	checks := make([]Check, 0, len(hc.checks))
	for _, check := range hc.checks {
		checks = append(checks, check)
	}
	hc.mu.RUnlock()

	statuses := make([]CheckStatus, len(checks))
	var wg sync.WaitGroup
	for i, check := range checks {
		wg.Add(1)
		go func(i int, check Check) {
			defer wg.Done()
			statuses[i] = run(ctx, check)
		}(i, check)
	}
	wg.Wait()

	sort.Slice(statuses, func(i, j int) bool { return statuses[i].Name < statuses[j].Name })

	overall := HealthyStatus
	for _, s := range statuses {
		if s.Status != HealthyStatus {
			overall = UnhealthyStatus
			break
		}
	}

	return &HealthStatus{
		Status:    overall,
		Checks:    statuses,
		Timestamp: time.Now(),
	}
}

// GetCheckStatus runs a single check by name.
func (hc *HealthChecker) GetCheckStatus(ctx context.Context, name string) (*CheckStatus, error) {
	hc.mu.RLock()
	check, exists := hc.checks[name]
	hc.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("check %q not found", name)
	}

	status := run(ctx, check)
	return &status, nil
}

func run(ctx context.Context, check Check) CheckStatus {
	start := time.Now()
	err := check.Check(ctx)
	status := CheckStatus{
		Name:     check.Name(),
		Status:   HealthyStatus,
		Duration: time.Since(start),
	}
	if err != nil {
		status.Status = UnhealthyStatus
		status.Error = err.Error()
	}
	return status
}

// HealthHTTPHandler serves /health: 200 when every check passes.
func (hc *HealthChecker) HealthHTTPHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
		defer cancel()

		status := hc.CheckAll(ctx)
		hc.write(w, status, status.Healthy())
	}
}

// ReadyHTTPHandler serves /ready: 200 once marked ready and healthy.
func (hc *HealthChecker) ReadyHTTPHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !hc.IsReady() {
			hc.write(w, &HealthStatus{Status: StartingStatus, Checks: []CheckStatus{}, Timestamp: time.Now()}, false)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
		defer cancel()

		status := hc.CheckAll(ctx)
		hc.write(w, status, status.Healthy())
	}
}

func (hc *HealthChecker) write(w http.ResponseWriter, status *HealthStatus, ok bool) {
	w.Header().Set("Content-Type", "application/json")
	if ok {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	if err := json.NewEncoder(w).Encode(status); err != nil {
		hc.logger.Error("failed to encode health status", logging.Err(err))
	}
}

// RegisterRoutes mounts /health and /ready on mux.
func (hc *HealthChecker) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", hc.HealthHTTPHandler())
	mux.HandleFunc("/ready", hc.ReadyHTTPHandler())
}
