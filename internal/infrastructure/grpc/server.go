package grpc

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/status"

	"github.com/dheemanth-hn/stix-filter-gateway/internal/infrastructure/auth"
	"github.com/dheemanth-hn/stix-filter-gateway/internal/infrastructure/logging"
	"github.com/dheemanth-hn/stix-filter-gateway/internal/infrastructure/ratelimiter"
	"github.com/dheemanth-hn/stix-filter-gateway/pkg/middleware"
)

const maxMessageSize = 10 * 1024 * 1024

// Health service methods are always reachable without a token.
var publicMethods = []string{
	healthpb.Health_Check_FullMethodName,
	healthpb.Health_Watch_FullMethodName,
}

// RPCMetrics is the metrics view the interceptors need.
type RPCMetrics interface {
	RecordRPC(method, code string, duration time.Duration)
	RecordError(component, errorType string)
}

// Options carries the optional collaborators of the server. Nil members
// disable the matching interceptor.
type Options struct {
	Authenticator *auth.JWTAuthenticator
	Authorizer    *auth.CapabilityAuthorizer
	RateLimiter   ratelimiter.RateLimiter
	Metrics       RPCMetrics
}

// Server bundles the gRPC server with its health service.
type Server struct {
	*grpc.Server
	Health *grpchealth.Server
}

// NewGRPCServer builds the server and its interceptor chain:
// correlation id, logging, authentication, authorization, rate limiting,
// metrics and panic recovery, outermost first.
func NewGRPCServer(logger logging.Logger, opts Options) (*Server, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	unary := []grpc.UnaryServerInterceptor{
		middleware.CorrelationUnaryServerInterceptor(),
		loggingUnaryInterceptor(logger),
	}
	stream := []grpc.StreamServerInterceptor{
		middleware.CorrelationStreamServerInterceptor(),
		loggingStreamInterceptor(logger),
	}

	if opts.Authenticator != nil {
		unary = append(unary, opts.Authenticator.UnaryInterceptor(publicMethods...))
		stream = append(stream, opts.Authenticator.StreamInterceptor(publicMethods...))
		if opts.Authorizer != nil {
			unary = append(unary, opts.Authorizer.UnaryInterceptor())
		}
	}
	if opts.RateLimiter != nil {
		unary = append(unary, ratelimiter.UnaryInterceptor(opts.RateLimiter))
	}
	if opts.Metrics != nil {
		unary = append(unary, metricsUnaryInterceptor(opts.Metrics))
	}
	unary = append(unary, recoveryUnaryInterceptor(logger, opts.Metrics))
	stream = append(stream, recoveryStreamInterceptor(logger, opts.Metrics))

	server := grpc.NewServer(
		grpc.MaxConcurrentStreams(1000),
		grpc.MaxRecvMsgSize(maxMessageSize),
		grpc.MaxSendMsgSize(maxMessageSize),
		grpc.KeepaliveParams(keepalive.ServerParameters{
			Time:    20 * time.Second,
			Timeout: 10 * time.Second,
		}),
		grpc.KeepaliveEnforcementPolicy(keepalive.EnforcementPolicy{
			MinTime:             5 * time.Second,
			PermitWithoutStream: true,
		}),
		grpc.ChainUnaryInterceptor(unary...),
		grpc.ChainStreamInterceptor(stream...),
	)

	healthServer := grpchealth.NewServer()
	healthpb.RegisterHealthServer(server, healthServer)

	return &Server{Server: server, Health: healthServer}, nil
}

func loggingUnaryInterceptor(logger logging.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		correlationID := middleware.CorrelationIDFromContext(ctx)
		reqLogger := logging.RequestLogger(logger, info.FullMethod, correlationID)
		ctx = logging.WithContext(ctx, reqLogger)

		start := time.Now()
		resp, err := handler(ctx, req)
		elapsed := logging.Field{Key: "duration", Value: time.Since(start).String()}

		switch status.Code(err) {
		case codes.OK:
			reqLogger.Debug("unary RPC call completed", elapsed)
		case codes.Internal, codes.Unknown:
			reqLogger.Error("unary RPC call failed", elapsed, logging.Err(err))
		default:
			reqLogger.Warn("unary RPC call rejected", elapsed, logging.Err(err))
		}
		return resp, err
	}
}

func loggingStreamInterceptor(logger logging.Logger) grpc.StreamServerInterceptor {
	return func(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		reqLogger := logging.RequestLogger(logger, info.FullMethod, middleware.CorrelationIDFromContext(ss.Context()))

		start := time.Now()
		err := handler(srv, ss)
		if err != nil {
			reqLogger.Warn("stream RPC call ended with error",
				logging.Field{Key: "duration", Value: time.Since(start).String()},
				logging.Err(err),
			)
		}
		return err
	}
}

func metricsUnaryInterceptor(collector RPCMetrics) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		code := status.Code(err)
		collector.RecordRPC(info.FullMethod, code.String(), time.Since(start))
		if code == codes.Internal {
			collector.RecordError("grpc", "internal")
		}
		return resp, err
	}
}

func recoveryUnaryInterceptor(logger logging.Logger, collector RPCMetrics) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp interface{}, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = recovered(logger, collector, info.FullMethod, r)
			}
		}()
		return handler(ctx, req)
	}
}

func recoveryStreamInterceptor(logger logging.Logger, collector RPCMetrics) grpc.StreamServerInterceptor {
	return func(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = recovered(logger, collector, info.FullMethod, r)
			}
		}()
		return handler(srv, ss)
	}
}

func recovered(logger logging.Logger, collector RPCMetrics, method string, r interface{}) error {
	logger.Error("panic in RPC handler",
		logging.Field{Key: "method", Value: method},
		logging.Field{Key: "panic", Value: fmt.Sprint(r)},
		logging.Field{Key: "stack", Value: string(debug.Stack())},
	)
	if collector != nil {
		collector.RecordError("grpc", "panic")
	}
	return status.Errorf(codes.Internal, "internal server error")
}
