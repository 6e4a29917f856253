package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	grpcapi "github.com/dheemanth-hn/stix-filter-gateway/internal/api/grpc"
	"github.com/dheemanth-hn/stix-filter-gateway/internal/application/service"
	"github.com/dheemanth-hn/stix-filter-gateway/internal/domain/entity"
	"github.com/dheemanth-hn/stix-filter-gateway/internal/domain/stixfilter"
	"github.com/dheemanth-hn/stix-filter-gateway/internal/infrastructure/auth"
	"github.com/dheemanth-hn/stix-filter-gateway/internal/infrastructure/cache"
	"github.com/dheemanth-hn/stix-filter-gateway/internal/infrastructure/config"
	grpcserver "github.com/dheemanth-hn/stix-filter-gateway/internal/infrastructure/grpc"
	"github.com/dheemanth-hn/stix-filter-gateway/internal/infrastructure/health"
	"github.com/dheemanth-hn/stix-filter-gateway/internal/infrastructure/kafka"
	"github.com/dheemanth-hn/stix-filter-gateway/internal/infrastructure/logging"
	"github.com/dheemanth-hn/stix-filter-gateway/internal/infrastructure/metrics"
	"github.com/dheemanth-hn/stix-filter-gateway/internal/infrastructure/ratelimiter"
	"github.com/dheemanth-hn/stix-filter-gateway/internal/infrastructure/repository"
	"github.com/dheemanth-hn/stix-filter-gateway/internal/infrastructure/schema"
)

const (
	shutdownTimeout      = 30 * time.Second
	healthReportInterval = 10 * time.Second
	dispatchBuffer       = 256
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "configuration validation failed: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	defer func() {
		if r := recover(); r != nil {
			logger.Error("panic", logging.Field{Key: "panic", Value: fmt.Sprint(r)})
		}
	}()

	if err := run(cfg, logger); err != nil {
		logger.Error("gateway stopped with error", logging.Err(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger logging.Logger) error {
	logger.Info("starting stix filter gateway", logging.Field{Key: "environment", Value: cfg.Environment})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	collector, err := metrics.NewPrometheusCollector(prometheus.NewRegistry())
	if err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}

	decoder, err := schema.NewDecoder()
	if err != nil {
		return fmt.Errorf("failed to compile schemas: %w", err)
	}

	matcher, err := stixfilter.NewCustomMatcher(cfg.Filter.CustomStixTesters, cfg.Filter.CustomEventTesters, cfg.Filter.CELCacheSize)
	if err != nil {
		return fmt.Errorf("failed to build matcher: %w", err)
	}

	healthChecker := health.NewHealthChecker(logger)

	entityCache, closeCache, err := initializeCache(cfg, collector, healthChecker, logger)
	if err != nil {
		return err
	}
	defer closeCache()

	streamRepository := repository.NewInMemoryStreamRepository()
	userRepository := repository.NewInMemoryUserRepository(entity.SystemUser())

	matchService := service.NewMatchService(matcher, entityCache, auth.NewMarkingAccessChecker(), collector, logger)
	streamService := service.NewStreamService(streamRepository, matcher, collector, logger)

	if err := seedDefinitions(ctx, cfg, decoder, userRepository, streamService, logger); err != nil {
		return err
	}

	if cfg.Kafka.CreateTopics {
		if err := ensureTopics(ctx, cfg, logger); err != nil {
			return err
		}
	}

	producer, err := kafka.NewProducer(&cfg.Kafka, logger, collector)
	if err != nil {
		return fmt.Errorf("failed to initialize Kafka producer: %w", err)
	}
	defer func() {
		if err := producer.Close(); err != nil {
			logger.Error("failed to close Kafka producer", logging.Err(err))
		}
	}()

	consumer, err := kafka.NewConsumer(&cfg.Kafka, logger, collector)
	if err != nil {
		return fmt.Errorf("failed to initialize Kafka consumer: %w", err)
	}
	defer func() {
		if err := consumer.Close(); err != nil {
			logger.Error("failed to close Kafka consumer", logging.Err(err))
		}
	}()

	pinger := kafka.NewBrokerPinger(cfg.Kafka.Brokers, cfg.Kafka.DialTimeout)
	if err := healthChecker.RegisterCheck(health.NewKafkaCheck(pinger.Ping)); err != nil {
		return fmt.Errorf("failed to register kafka check: %w", err)
	}
	if err := healthChecker.RegisterCheck(health.NewGenericCheck("schemas", decoder.Validator().CheckBuiltins)); err != nil {
		return fmt.Errorf("failed to register schema health check: %w", err)
	}

	dispatchService := service.NewDispatchService(matchService, streamRepository, userRepository, producer, collector, logger)

	server, limiter, err := createGRPCServer(cfg, matchService, streamService, decoder, collector, logger)
	if err != nil {
		return err
	}

	httpServer := createHTTPServer(cfg, healthChecker, collector)
	metricsServer := createMetricsServer(cfg, collector)
	reporter := health.NewGRPCReporter(healthChecker, server.Health, logger, grpcapi.FilterServiceName)

	var wg sync.WaitGroup
	errCh := make(chan error, 3)

	if err := entityCache.Refresh(ctx); err != nil {
		logger.Warn("initial cache load failed, matches needing resolution will fail until the next refresh", logging.Err(err))
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		entityCache.Run(ctx)
	}()

	if limiter != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			limiter.Run(ctx)
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		reporter.Run(ctx, healthReportInterval)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := startGRPCServer(server, cfg, logger); err != nil {
			errCh <- err
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := startHTTPServer(httpServer, cfg.Server.HTTPPort, logger); err != nil {
			errCh <- err
		}
	}()

	if metricsServer != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := startHTTPServer(metricsServer, cfg.Metrics.Port, logger); err != nil {
				errCh <- err
			}
		}()
	}

	var runErr error
	if err := startDispatchLoop(ctx, &wg, consumer, dispatchService, logger); err != nil {
		runErr = err
	} else {
		healthChecker.MarkReady(true)
		logger.Info(
			"stix filter gateway is running",
			logging.Field{Key: "grpc_port", Value: cfg.Server.GRPCPort},
			logging.Field{Key: "http_port", Value: cfg.Server.HTTPPort},
		)

		select {
		case <-ctx.Done():
			logger.Info("shutdown signal received, gracefully stopping...")
		case runErr = <-errCh:
			logger.Error("server failed, shutting down", logging.Err(runErr))
		}
	}

	healthChecker.MarkReady(false)
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	server.GracefulStop()
	logger.Info("gRPC server stopped")

	for _, srv := range []*http.Server{httpServer, metricsServer} {
		if srv == nil {
			continue
		}
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", logging.Field{Key: "addr", Value: srv.Addr}, logging.Err(err))
		}
	}
	logger.Info("HTTP servers stopped")

	wg.Wait()
	logger.Info("stix filter gateway stopped")
	return runErr
}

// initializeCache builds the resolved filters cache on the configured backend
// and registers its health checks. Nothing is loaded yet.
func initializeCache(
	cfg *config.Config,
	collector *metrics.PrometheusCollector,
	checker *health.HealthChecker,
	logger logging.Logger,
) (*cache.SnapshotCache, func(), error) {
	var (
		loader    cache.EntityLoader
		closeFunc = func() {}
	)

	switch cfg.Cache.Backend {
	case "static":
		static, err := cache.LoadStaticFile(cfg.Cache.StaticPath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load static cache: %w", err)
		}
		loader = static
	default:
		redisLoader := cache.NewRedisLoader(&cfg.Cache, logger)
		if err := checker.RegisterCheck(health.NewRedisCheck(redisLoader.Ping)); err != nil {
			return nil, nil, fmt.Errorf("failed to register redis check: %w", err)
		}
		loader = redisLoader
		closeFunc = func() {
			if err := redisLoader.Close(); err != nil {
				logger.Error("failed to close Redis client", logging.Err(err))
			}
		}
	}

	snapshots, err := cache.NewSnapshotCache(loader, cache.Options{
		EntityTypes:     cfg.Cache.EntityTypes,
		RefreshInterval: cfg.Cache.RefreshInterval,
		LoadTimeout:     cfg.Cache.LoadTimeout,
		MaxRetries:      cfg.Cache.MaxRetries,
	}, collector, logger)
	if err != nil {
		closeFunc()
		return nil, nil, fmt.Errorf("failed to create cache: %w", err)
	}

	if err := checker.RegisterCheck(health.NewCacheFreshnessCheck(snapshots, 2)); err != nil {
		closeFunc()
		return nil, nil, fmt.Errorf("failed to register cache check: %w", err)
	}
	return snapshots, closeFunc, nil
}

// seedDefinitions registers the users and streams of the definitions file.
// A stream that fails validation is logged and skipped.
func seedDefinitions(
	ctx context.Context,
	cfg *config.Config,
	decoder *schema.Decoder,
	users *repository.InMemoryUserRepository,
	streams *service.StreamService,
	logger logging.Logger,
) error {
	if cfg.Streams.DefinitionsPath == "" {
		logger.Warn("no stream definitions file configured, starting without streams")
		return nil
	}

	defs, err := repository.LoadDefinitions(cfg.Streams.DefinitionsPath, decoder)
	if err != nil {
		return fmt.Errorf("failed to load stream definitions: %w", err)
	}

	for _, user := range defs.Users {
		if err := users.Save(ctx, user); err != nil {
			return fmt.Errorf("failed to register user %s: %w", user.ID, err)
		}
	}

	registered := 0
	for _, request := range defs.Streams {
		if _, err := streams.Register(ctx, request); err != nil {
			logger.Error(
				"skipping invalid stream definition",
				logging.Field{Key: "name", Value: request.Name},
				logging.Err(err),
			)
			continue
		}
		registered++
	}

	logger.Info(
		"stream definitions loaded",
		logging.Field{Key: "users", Value: len(defs.Users)},
		logging.Field{Key: "streams", Value: registered},
	)
	return nil
}

// startDispatchLoop subscribes to the live stream and hands every event to
// the dispatcher until ctx ends.
func startDispatchLoop(
	ctx context.Context,
	wg *sync.WaitGroup,
	consumer *kafka.Consumer,
	dispatcher *service.DispatchService,
	logger logging.Logger,
) error {
	events := make(chan *entity.StreamEvent, dispatchBuffer)
	errs := make(chan error, dispatchBuffer)

	if err := consumer.Subscribe(ctx, events, errs); err != nil {
		return fmt.Errorf("failed to subscribe to live stream: %w", err)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case err := <-errs:
				logger.Warn("live stream consumer error", logging.Err(err))
			case event := <-events:
				if _, err := dispatcher.Dispatch(ctx, event); err != nil && !errors.Is(err, context.Canceled) {
					logger.Error(
						"failed to dispatch stream event",
						logging.Field{Key: "eventID", Value: event.ID()},
						logging.Err(err),
					)
				}
			}
		}
	}()
	return nil
}

// createGRPCServer assembles the FilterService and its interceptor chain.
// The returned limiter is nil when rate limiting is disabled.
func createGRPCServer(
	cfg *config.Config,
	matchService *service.MatchService,
	streamService *service.StreamService,
	decoder *schema.Decoder,
	collector *metrics.PrometheusCollector,
	logger logging.Logger,
) (*grpcserver.Server, *ratelimiter.TokenBucketLimiter, error) {
	opts := grpcserver.Options{Metrics: collector}
	var handlerOpts []grpcapi.HandlerOption

	if cfg.Auth.Enabled {
		opts.Authenticator = auth.NewJWTAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenExpiry)
		opts.Authorizer = auth.NewCapabilityAuthorizer().
			Require(grpcapi.MethodMatchStix, entity.CapabilityKnowledge).
			Require(grpcapi.MethodRegisterStream, entity.CapabilitySettingsAdmin).
			Require(grpcapi.MethodDeleteStream, entity.CapabilitySettingsAdmin)
	} else {
		logger.Warn("authentication disabled, every call runs as the system user")
		handlerOpts = append(handlerOpts, grpcapi.WithDefaultUser(entity.SystemUser()))
	}

	var limiter *ratelimiter.TokenBucketLimiter
	if cfg.RateLimit.Enabled {
		limiter = ratelimiter.NewTokenBucketLimiter(&cfg.RateLimit)
		opts.RateLimiter = limiter
	}

	server, err := grpcserver.NewGRPCServer(logger, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create gRPC server: %w", err)
	}

	handler := grpcapi.NewFilterHandler(matchService, streamService, decoder, logger, handlerOpts...)
	grpcapi.RegisterFilterServiceServer(server.Server, handler)
	return server, limiter, nil
}

// startGRPCServer starts the gRPC server and listens for connections.
func startGRPCServer(server *grpcserver.Server, cfg *config.Config, logger logging.Logger) error {
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Server.GRPCPort))
	if err != nil {
		return fmt.Errorf("failed to listen on port %d: %w", cfg.Server.GRPCPort, err)
	}

	logger.Info("gRPC server listening", logging.Field{Key: "port", Value: cfg.Server.GRPCPort})
	return server.Serve(listener)
}

// createHTTPServer creates the HTTP server for health checks. Metrics are
// served on it too when they share its port.
func createHTTPServer(cfg *config.Config, healthChecker *health.HealthChecker, collector *metrics.PrometheusCollector) *http.Server {
	mux := http.NewServeMux()
	healthChecker.RegisterRoutes(mux)
	if cfg.Metrics.Enabled && cfg.Metrics.Port == cfg.Server.HTTPPort {
		mux.Handle(cfg.Metrics.Path, collector.HTTPHandler())
	}

	return &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:           mux,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

// createMetricsServer returns a dedicated metrics server, nil when metrics
// are disabled or share the health port.
func createMetricsServer(cfg *config.Config, collector *metrics.PrometheusCollector) *http.Server {
	if !cfg.Metrics.Enabled || cfg.Metrics.Port == cfg.Server.HTTPPort {
		return nil
	}
	return metrics.NewMetricsServer(cfg.Metrics.Port, cfg.Metrics.Path, collector.HTTPHandler())
}

// startHTTPServer starts an HTTP server.
func startHTTPServer(server *http.Server, port int, logger logging.Logger) error {
	logger.Info("HTTP server listening", logging.Field{Key: "port", Value: port})
	err := server.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server error: %w", err)
	}
	return nil
}

// ensureTopics creates the input and output topics with the configured layout.
func ensureTopics(ctx context.Context, cfg *config.Config, logger logging.Logger) error {
	ctx, cancel := context.WithTimeout(ctx, cfg.Kafka.DialTimeout)
	defer cancel()

	creator := kafka.NewTopicCreator(&cfg.Kafka)
	if err := creator.EnsureTopics(ctx); err != nil {
		return fmt.Errorf("failed to create Kafka topics: %w", err)
	}
	for _, topic := range creator.Topics() {
		logger.Info("Kafka topic ready",
			logging.Field{Key: "topic", Value: topic.Topic},
			logging.Field{Key: "partitions", Value: topic.NumPartitions},
			logging.Field{Key: "replication", Value: topic.ReplicationFactor},
		)
	}
	return nil
}
