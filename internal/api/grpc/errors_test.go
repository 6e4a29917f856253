package grpc

import (
	"errors"
	"fmt"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/dheemanth-hn/stix-filter-gateway/internal/application/service"
	"github.com/dheemanth-hn/stix-filter-gateway/internal/domain/repository"
	"github.com/dheemanth-hn/stix-filter-gateway/internal/infrastructure/auth"
	"github.com/dheemanth-hn/stix-filter-gateway/internal/infrastructure/schema"
)

func TestToStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want codes.Code
	}{
		{"Existing status", status.Error(codes.PermissionDenied, "no"), codes.PermissionDenied},
		{"Invalid filter group", fmt.Errorf("wrap: %w", schema.ErrInvalidFilterGroup), codes.InvalidArgument},
		{"Invalid payload", schema.ErrInvalidPayload, codes.InvalidArgument},
		{"Invalid stream", fmt.Errorf("%w definition: empty", service.ErrInvalidStream), codes.InvalidArgument},
		{"Stream not found", fmt.Errorf("get: %w", repository.ErrStreamNotFound), codes.NotFound},
		{"User not found", repository.ErrUserNotFound, codes.NotFound},
		{"No identity", auth.ErrNoIdentity, codes.Unauthenticated},
		{"Anything else", errors.New("disk on fire"), codes.Internal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := status.Code(toStatus(tt.err)); got != tt.want {
				t.Errorf("toStatus(%v) code = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestToStatus_HidesInternalDetail(t *testing.T) {
	st, _ := status.FromError(toStatus(errors.New("dial redis: connection refused")))
	if st.Message() != "internal error" {
		t.Errorf("Message() = %q, want internal error", st.Message())
	}
}
