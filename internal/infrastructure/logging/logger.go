package logging

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/dheemanth-hn/stix-filter-gateway/internal/domain/entity"
	"github.com/dheemanth-hn/stix-filter-gateway/internal/domain/valueobject"
	"github.com/dheemanth-hn/stix-filter-gateway/internal/infrastructure/config"
)

// Logger defines the interface for structured logging.
type Logger interface {
	Info(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Debug(msg string, fields ...Field)
	WithField(key string, value interface{}) Logger
	WithFields(fields map[string]interface{}) Logger
	WithCorrelationID(id string) Logger
	Sync() error
}

// Field represents a structured log field.
type Field struct {
	Key   string
	Value interface{}
}

// ZapLogger implements Logger using go.uber.org/zap.
type ZapLogger struct {
	logger        *zap.Logger
	correlationID string
}

// NewLogger creates a new Logger based on configuration.
func NewLogger(cfg *config.LogConfig) (Logger, error) {
	var zapCfg zap.Config

	switch cfg.Format {
	case "json":
		zapCfg = zap.NewProductionConfig()
	case "text":
		zapCfg = zap.NewDevelopmentConfig()
	default:
		zapCfg = zap.NewProductionConfig()
	}

	// Set log level
	level := getZapLevel(cfg.Level)
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	// Configure output
	switch cfg.Output {
	case "stdout":
		zapCfg.OutputPaths = []string{"stdout"}
		zapCfg.ErrorOutputPaths = []string{"stderr"}
	case "stderr":
		zapCfg.OutputPaths = []string{"stderr"}
		zapCfg.ErrorOutputPaths = []string{"stderr"}
	default:
		// Assume it's a file path
		zapCfg.OutputPaths = []string{cfg.Output}
		zapCfg.ErrorOutputPaths = []string{cfg.Output}
	}

	zapLogger, err := zapCfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	return &ZapLogger{
		logger: zapLogger,
	}, nil
}

// NewNopLogger returns a Logger discarding every entry.
func NewNopLogger() Logger {
	return &ZapLogger{logger: zap.NewNop()}
}

// NewZapLogger wraps an existing zap logger.
func NewZapLogger(logger *zap.Logger) Logger {
	return &ZapLogger{logger: logger}
}

// Info logs an info level message.
func (zl *ZapLogger) Info(msg string, fields ...Field) {
	zl.write(zapcore.InfoLevel, msg, fields)
}

// Error logs an error level message.
func (zl *ZapLogger) Error(msg string, fields ...Field) {
	zl.write(zapcore.ErrorLevel, msg, fields)
}

// Warn logs a warning level message.
func (zl *ZapLogger) Warn(msg string, fields ...Field) {
	zl.write(zapcore.WarnLevel, msg, fields)
}

// Debug logs a debug level message.
func (zl *ZapLogger) Debug(msg string, fields ...Field) {
	zl.write(zapcore.DebugLevel, msg, fields)
}

// write converts the fields only when the level is enabled.
func (zl *ZapLogger) write(level zapcore.Level, msg string, fields []Field) {
	entry := zl.logger.Check(level, msg)
	if entry == nil {
		return
	}
	zapFields := convertFields(fields)
	if zl.correlationID != "" {
		zapFields = append(zapFields, zap.String(correlationIDKey, zl.correlationID))
	}
	entry.Write(zapFields...)
}

// WithField returns a new Logger with an additional field.
func (zl *ZapLogger) WithField(key string, value interface{}) Logger {
	return &ZapLogger{
		logger:        zl.logger.With(zap.Any(key, value)),
		correlationID: zl.correlationID,
	}
}

// WithFields returns a new Logger with additional fields.
func (zl *ZapLogger) WithFields(fields map[string]interface{}) Logger {
	zapFields := make([]zap.Field, 0, len(fields))
	for k, v := range fields {
		zapFields = append(zapFields, zap.Any(k, v))
	}
	return &ZapLogger{
		logger:        zl.logger.With(zapFields...),
		correlationID: zl.correlationID,
	}
}

// WithCorrelationID returns a new Logger with a correlation ID.
func (zl *ZapLogger) WithCorrelationID(id string) Logger {
	return &ZapLogger{
		logger:        zl.logger,
		correlationID: id,
	}
}

// Sync flushes any buffered log entries.
func (zl *ZapLogger) Sync() error {
	return zl.logger.Sync()
}

// Field keys shared by every component.
const (
	correlationIDKey = "correlation_id"
	streamIDKey      = "stream_id"
	subjectKey       = "subject"
	eventIDKey       = "event_id"
	methodKey        = "method"
)

type contextKey struct{}

// WithContext returns a new context carrying the logger.
func WithContext(ctx context.Context, logger Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, logger)
}

// FromContext returns the request logger stored by the RPC interceptors,
// or fallback when the call did not go through them.
func FromContext(ctx context.Context, fallback Logger) Logger {
	if logger, ok := ctx.Value(contextKey{}).(Logger); ok {
		return logger
	}
	if fallback == nil {
		return NewNopLogger()
	}
	return fallback
}

// RequestLogger returns a Logger scoped to one RPC.
func RequestLogger(base Logger, method, correlationID string) Logger {
	return base.WithField(methodKey, method).WithCorrelationID(correlationID)
}

// EventLogger returns a Logger scoped to one live stream event.
func EventLogger(base Logger, event *entity.StreamEvent) Logger {
	return base.WithFields(map[string]interface{}{
		eventIDKey: event.ID(),
		subjectKey: string(event.Kind()),
	}).WithCorrelationID(event.CorrelationID())
}

// StreamID is the field naming a stream definition.
func StreamID(id string) Field {
	return Field{Key: streamIDKey, Value: id}
}

// Subject is the field naming the kind of subject a filter group targets.
func Subject(kind valueobject.SubjectKind) Field {
	return Field{Key: subjectKey, Value: string(kind)}
}

// Err returns the conventional field for an error.
func Err(err error) Field {
	return Field{Key: "error", Value: err}
}

// Helper functions

func getZapLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func convertFields(fields []Field) []zap.Field {
	zapFields := make([]zap.Field, len(fields))
	for i, f := range fields {
		zapFields[i] = zap.Any(f.Key, f.Value)
	}
	return zapFields
}
