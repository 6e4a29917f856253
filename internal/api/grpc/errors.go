package grpc

import (
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/dheemanth-hn/stix-filter-gateway/internal/application/service"
	"github.com/dheemanth-hn/stix-filter-gateway/internal/domain/repository"
	"github.com/dheemanth-hn/stix-filter-gateway/internal/domain/stixfilter"
	"github.com/dheemanth-hn/stix-filter-gateway/internal/infrastructure/auth"
	"github.com/dheemanth-hn/stix-filter-gateway/internal/infrastructure/schema"
)

// toStatus maps domain errors to gRPC status codes.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	switch {
	case stixfilter.IsValidationError(err),
		errors.Is(err, schema.ErrInvalidFilterGroup),
		errors.Is(err, schema.ErrInvalidPayload),
		errors.Is(err, service.ErrInvalidStream):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, repository.ErrStreamNotFound), errors.Is(err, repository.ErrUserNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, auth.ErrNoIdentity):
		return status.Error(codes.Unauthenticated, err.Error())
	default:
		return status.Error(codes.Internal, "internal error")
	}
}
