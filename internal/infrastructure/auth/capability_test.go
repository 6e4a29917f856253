package auth

import (
	"context"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/dheemanth-hn/stix-filter-gateway/internal/domain/entity"
)

const registerMethod = "/stixfilter.v1.FilterService/RegisterStream"

func TestCapabilityAuthorizer_Authorize(t *testing.T) {
	authorizer := NewCapabilityAuthorizer().Require(registerMethod, entity.CapabilitySettingsAdmin)

	tests := []struct {
		name     string
		claims   *Claims
		method   string
		wantCode codes.Code
	}{
		{"Holder", &Claims{UserID: "u", Capabilities: []string{entity.CapabilitySettingsAdmin}}, registerMethod, codes.OK},
		{"Bypass", &Claims{UserID: "u", Capabilities: []string{entity.CapabilityBypass}}, registerMethod, codes.OK},
		{"Missing capability", &Claims{UserID: "u", Capabilities: []string{entity.CapabilityKnowledge}}, registerMethod, codes.PermissionDenied},
		{"No claims", nil, registerMethod, codes.Unauthenticated},
		{"Unrestricted method", &Claims{UserID: "u"}, "/stixfilter.v1.FilterService/MatchStix", codes.OK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := authorizer.Authorize(tt.claims, tt.method)
			if status.Code(err) != tt.wantCode {
				t.Errorf("Authorize() code = %v, want %v", status.Code(err), tt.wantCode)
			}
		})
	}
}

func TestCapabilityAuthorizer_RequiredCapability(t *testing.T) {
	authorizer := NewCapabilityAuthorizer().Require(registerMethod, entity.CapabilitySettingsAdmin)

	if c, ok := authorizer.RequiredCapability(registerMethod); !ok || c != entity.CapabilitySettingsAdmin {
		t.Errorf("RequiredCapability() = (%q, %v), want (SETTINGS, true)", c, ok)
	}
	if _, ok := authorizer.RequiredCapability("/other"); ok {
		t.Error("RequiredCapability() found an entry for an unregistered method")
	}
}

func TestCapabilityAuthorizer_UnaryInterceptor(t *testing.T) {
	authorizer := NewCapabilityAuthorizer().Require(registerMethod, entity.CapabilitySettingsAdmin)
	interceptor := authorizer.UnaryInterceptor()
	info := &grpc.UnaryServerInfo{FullMethod: registerMethod}

	called := false
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		called = true
		return nil, nil
	}

	_, err := interceptor(context.Background(), nil, info, handler)
	if status.Code(err) != codes.Unauthenticated {
		t.Errorf("interceptor without claims code = %v, want Unauthenticated", status.Code(err))
	}
	if called {
		t.Error("handler called without claims")
	}

	ctx := WithClaims(context.Background(), &Claims{UserID: "u", Capabilities: []string{entity.CapabilitySettingsAdmin}})
	if _, err := interceptor(ctx, nil, info, handler); err != nil {
		t.Errorf("interceptor error = %v, want nil", err)
	}
	if !called {
		t.Error("handler not called for an authorized caller")
	}
}
