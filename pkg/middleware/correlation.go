// Package middleware holds gRPC interceptors shared by the servers of the module.
package middleware

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

// CorrelationIDKey is the metadata key carrying the correlation id.
const CorrelationIDKey = "x-correlation-id"

const maxCorrelationIDLength = 128

type correlationIDKey struct{}

// CorrelationIDFromContext returns the correlation id of the call: the
// resolved one if an interceptor already ran, else the incoming metadata.
func CorrelationIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(correlationIDKey{}).(string); ok {
		return id
	}
	return incomingCorrelationID(ctx)
}

// ContextWithCorrelationID stores id on ctx and propagates it on outgoing calls.
func ContextWithCorrelationID(ctx context.Context, id string) context.Context {
	ctx = context.WithValue(ctx, correlationIDKey{}, id)
	return metadata.AppendToOutgoingContext(ctx, CorrelationIDKey, id)
}

// NewCorrelationID returns a fresh random id.
func NewCorrelationID() string {
	return uuid.NewString()
}

func incomingCorrelationID(ctx context.Context) string {
	for _, v := range metadata.ValueFromIncomingContext(ctx, CorrelationIDKey) {
		if v = strings.TrimSpace(v); v != "" && len(v) <= maxCorrelationIDLength {
			return v
		}
	}
	return ""
}

// resolve picks the caller's id or generates one, stores it and echoes it
// in the response header.
func resolve(ctx context.Context) context.Context {
	id := incomingCorrelationID(ctx)
	if id == "" {
		id = NewCorrelationID()
	}
	// SetHeader fails outside a real transport stream; the id still flows through ctx.
	_ = grpc.SetHeader(ctx, metadata.Pairs(CorrelationIDKey, id))
	return ContextWithCorrelationID(ctx, id)
}

// CorrelationUnaryServerInterceptor resolves the correlation id of unary calls.
func CorrelationUnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, _ *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		return handler(resolve(ctx), req)
	}
}

// CorrelationStreamServerInterceptor resolves the correlation id of streaming calls.
func CorrelationStreamServerInterceptor() grpc.StreamServerInterceptor {
	return func(srv interface{}, ss grpc.ServerStream, _ *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		return handler(srv, &contextStream{ServerStream: ss, ctx: resolve(ss.Context())})
	}
}

type contextStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *contextStream) Context() context.Context {
	return s.ctx
}
