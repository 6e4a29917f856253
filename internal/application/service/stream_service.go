package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dheemanth-hn/stix-filter-gateway/internal/application/dto"
	"github.com/dheemanth-hn/stix-filter-gateway/internal/application/port"
	"github.com/dheemanth-hn/stix-filter-gateway/internal/domain/entity"
	"github.com/dheemanth-hn/stix-filter-gateway/internal/domain/stixfilter"
	"github.com/dheemanth-hn/stix-filter-gateway/internal/domain/valueobject"
	"github.com/dheemanth-hn/stix-filter-gateway/internal/infrastructure/logging"
)

// ErrInvalidStream is returned when a stream definition is rejected.
var ErrInvalidStream = errors.New("invalid stream")

// StreamService implements the StreamManagementUseCase interface.
// Filter groups are validated with the same engine used at match time, so an
// unknown key is rejected when the stream is saved.
type StreamService struct {
	streamRepository port.StreamRepository
	matcher          *stixfilter.Matcher
	metricsCollector port.MetricsCollector
	logger           logging.Logger
}

// NewStreamService creates a new StreamService with the specified dependencies.
func NewStreamService(
	streamRepository port.StreamRepository,
	matcher *stixfilter.Matcher,
	metricsCollector port.MetricsCollector,
	logger logging.Logger,
) *StreamService {
	if matcher == nil {
		matcher = stixfilter.DefaultMatcher
	}
	return &StreamService{
		streamRepository: streamRepository,
		matcher:          matcher,
		metricsCollector: metricsCollector,
		logger:           logger,
	}
}

// Register validates and stores a stream definition.
// Returns the ID of the registered stream or an error.
func (s *StreamService) Register(ctx context.Context, request *dto.RegisterStreamRequest) (string, error) {
	startTime := time.Now()
	streamID := request.ID
	if streamID == "" {
		streamID = uuid.NewString()
	}
	subject := valueobject.SubjectKind(request.Subject)

	s.logger.Info(
		"Registering stream",
		logging.StreamID(streamID),
		logging.Field{Key: "name", Value: request.Name},
		logging.Field{Key: "kind", Value: request.Kind},
		logging.Subject(subject),
		logging.Field{Key: "filter_keys", Value: request.Filters.Keys()},
	)

	stream, err := entity.NewStream(
		streamID,
		request.Name,
		entity.StreamKind(request.Kind),
		subject,
		request.OwnerID,
		request.Filters,
	)
	if err != nil {
		s.metricsCollector.RecordError("stream_register", "entity_creation")
		return "", fmt.Errorf("%w definition: %w", ErrInvalidStream, err)
	}

	if err := s.matcher.Validate(subject, request.Filters); err != nil {
		s.metricsCollector.RecordValidationError(string(subject), validationReason(err))
		s.logger.Warn(
			"Stream filters rejected",
			logging.StreamID(streamID),
			logging.Err(err),
		)
		return "", fmt.Errorf("%w filters: %w", ErrInvalidStream, err)
	}

	if err := s.streamRepository.Save(ctx, stream); err != nil {
		s.metricsCollector.RecordError("stream_register", "storage")
		return "", fmt.Errorf("failed to register stream: %w", err)
	}

	s.logger.Info(
		"Stream registered successfully",
		logging.StreamID(streamID),
		logging.Field{Key: "duration", Value: time.Since(startTime)},
	)
	return streamID, nil
}

// Get retrieves a stream by its ID.
func (s *StreamService) Get(ctx context.Context, streamID string) (*dto.StreamResponse, error) {
	stream, err := s.streamRepository.Get(ctx, streamID)
	if err != nil {
		return nil, fmt.Errorf("failed to get stream %s: %w", streamID, err)
	}
	return dto.FromEntityStream(stream), nil
}

// List retrieves the streams of a subject kind, all of them when empty.
func (s *StreamService) List(ctx context.Context, subject valueobject.SubjectKind) ([]*dto.StreamResponse, error) {
	streams, err := s.streamRepository.List(ctx, subject)
	if err != nil {
		s.metricsCollector.RecordError("stream_list", "retrieval")
		return nil, fmt.Errorf("failed to list streams: %w", err)
	}
	return dto.FromEntityStreams(streams), nil
}

// Delete removes a stream definition.
func (s *StreamService) Delete(ctx context.Context, streamID string) error {
	if err := s.streamRepository.Delete(ctx, streamID); err != nil {
		s.metricsCollector.RecordError("stream_delete", "deletion")
		return fmt.Errorf("failed to delete stream %s: %w", streamID, err)
	}

	s.logger.Info("Stream deleted", logging.StreamID(streamID))
	return nil
}
