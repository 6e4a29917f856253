package auth

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// CapabilityAuthorizer maps RPC methods to the capability a caller must hold.
type CapabilityAuthorizer struct {
	required map[string]string
}

// NewCapabilityAuthorizer creates an authorizer. Methods without an entry
// only require an authenticated caller.
func NewCapabilityAuthorizer() *CapabilityAuthorizer {
	return &CapabilityAuthorizer{required: make(map[string]string)}
}

// Require registers the capability needed to call fullMethod.
func (ca *CapabilityAuthorizer) Require(fullMethod, capability string) *CapabilityAuthorizer {
	ca.required[fullMethod] = capability
	return ca
}

// RequiredCapability returns the capability bound to fullMethod, if any.
func (ca *CapabilityAuthorizer) RequiredCapability(fullMethod string) (string, bool) {
	c, ok := ca.required[fullMethod]
	return c, ok
}

// Authorize checks the claims against the method requirement.
func (ca *CapabilityAuthorizer) Authorize(claims *Claims, fullMethod string) error {
	capability, ok := ca.required[fullMethod]
	if !ok {
		return nil
	}
	if claims == nil {
		return status.Error(codes.Unauthenticated, "claims not found in context")
	}
	if !claims.User().HasCapability(capability) {
		return status.Errorf(codes.PermissionDenied, "user does not have required capability: %s", capability)
	}
	return nil
}

// UnaryInterceptor enforces the requirements. It must run after the JWT
// interceptor; methods let through anonymously must not be registered here.
func (ca *CapabilityAuthorizer) UnaryInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if _, ok := ca.required[info.FullMethod]; !ok {
			return handler(ctx, req)
		}
		claims, err := ExtractClaims(ctx)
		if err != nil {
			return nil, status.Error(codes.Unauthenticated, "claims not found in context")
		}
		if err := ca.Authorize(claims, info.FullMethod); err != nil {
			return nil, err
		}
		return handler(ctx, req)
	}
}
