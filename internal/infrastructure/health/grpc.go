package health

import (
	"context"
	"time"

	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/dheemanth-hn/stix-filter-gateway/internal/infrastructure/logging"
)

// GRPCReporter mirrors the checker state into the standard gRPC health service.
type GRPCReporter struct {
	checker  *HealthChecker
	server   *grpchealth.Server
	services []string
	logger   logging.Logger
}

// NewGRPCReporter creates a reporter. The overall server status ("") is
// always reported in addition to services.
func NewGRPCReporter(checker *HealthChecker, server *grpchealth.Server, logger logging.Logger, services ...string) *GRPCReporter {
	return &GRPCReporter{
		checker:  checker,
		server:   server,
		services: append([]string{""}, services...),
		logger:   logger,
	}
}

// Update runs the checks once and publishes the result.
func (r *GRPCReporter) Update(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if r.checker.IsReady() {
		checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
		result := r.checker.CheckAll(checkCtx)
		cancel()
		if result.Healthy() {
			status = healthpb.HealthCheckResponse_SERVING
		} else {
			for _, c := range result.Checks {
				if c.Error != "" {
					r.logger.Warn("health check failing",
						logging.Field{Key: "check", Value: c.Name},
						logging.Field{Key: "error", Value: c.Error},
					)
				}
			}
		}
	}

	for _, service := range r.services {
		r.server.SetServingStatus(service, status)
	}
	return status
}

// Run updates the status every interval until ctx is done, then reports
// NOT_SERVING for every service.
func (r *GRPCReporter) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	r.Update(ctx)
	for {
		select {
		case <-ctx.Done():
			r.server.Shutdown()
			return
		case <-ticker.C:
			r.Update(ctx)
		}
	}
}
