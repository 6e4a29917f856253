package service

import (
	"context"
	"fmt"
	"time"

	"github.com/dheemanth-hn/stix-filter-gateway/internal/application/dto"
	"github.com/dheemanth-hn/stix-filter-gateway/internal/application/port"
	"github.com/dheemanth-hn/stix-filter-gateway/internal/domain/entity"
	"github.com/dheemanth-hn/stix-filter-gateway/internal/infrastructure/logging"
)

// DispatchService implements the DispatchUseCase interface.
// Each live stream event is matched against every active stream of the same
// subject kind, STIX streams being evaluated as their owner.
type DispatchService struct {
	matchUseCase     port.MatchUseCase
	streamRepository port.StreamRepository
	userRepository   port.UserRepository
	publisher        port.MatchPublisher
	metricsCollector port.MetricsCollector
	logger           logging.Logger
}

// NewDispatchService creates a new DispatchService with the specified dependencies.
func NewDispatchService(
	matchUseCase port.MatchUseCase,
	streamRepository port.StreamRepository,
	userRepository port.UserRepository,
	publisher port.MatchPublisher,
	metricsCollector port.MetricsCollector,
	logger logging.Logger,
) *DispatchService {
	return &DispatchService{
		matchUseCase:     matchUseCase,
		streamRepository: streamRepository,
		userRepository:   userRepository,
		publisher:        publisher,
		metricsCollector: metricsCollector,
		logger:           logger,
	}
}

// Dispatch matches the event against every active stream of its kind and
// publishes the matches. A failure on one stream does not stop the others.
func (s *DispatchService) Dispatch(ctx context.Context, event *entity.StreamEvent) (*dto.DispatchResult, error) {
	if event == nil {
		return nil, fmt.Errorf("stream event cannot be nil")
	}
	startTime := time.Now()
	log := logging.EventLogger(s.logger, event)

	streams, err := s.streamRepository.List(ctx, event.Kind())
	if err != nil {
		s.metricsCollector.RecordError("dispatch", "stream_list")
		return nil, fmt.Errorf("failed to list streams: %w", err)
	}

	result := &dto.DispatchResult{EventID: event.ID(), Matched: make([]string, 0)}
	matched := make([]*entity.MatchedEvent, 0)

	for _, stream := range streams {
		if !stream.IsActive() {
			continue
		}
		result.Evaluated++

		ok, err := s.matchStream(ctx, stream, event)
		if err != nil {
			result.Failed++
			s.metricsCollector.RecordError("dispatch", "match")
			log.Warn(
				"Stream evaluation failed",
				logging.StreamID(stream.ID()),
				logging.Err(err),
			)
			continue
		}
		if ok {
			result.Matched = append(result.Matched, stream.ID())
			matched = append(matched, entity.NewMatchedEvent(stream.ID(), event))
		}
	}

	if len(matched) > 0 {
		if err := s.publisher.PublishBatch(ctx, matched); err != nil {
			s.metricsCollector.RecordError("dispatch", "publish")
			return result, fmt.Errorf("failed to publish matched events: %w", err)
		}
	}

	log.Debug(
		"Stream event dispatched",
		logging.Field{Key: "evaluated", Value: result.Evaluated},
		logging.Field{Key: "matched", Value: len(result.Matched)},
		logging.Field{Key: "failed", Value: result.Failed},
		logging.Field{Key: "duration", Value: time.Since(startTime)},
	)
	return result, nil
}

func (s *DispatchService) matchStream(ctx context.Context, stream *entity.Stream, event *entity.StreamEvent) (bool, error) {
	if activity := event.Activity(); activity != nil {
		return s.matchUseCase.IsEventMatchFilterGroup(ctx, activity, stream.Filters())
	}

	owner, err := s.userRepository.Get(ctx, stream.OwnerID())
	if err != nil {
		return false, fmt.Errorf("failed to resolve owner %q: %w", stream.OwnerID(), err)
	}
	return s.matchUseCase.IsStixMatchFilterGroup(ctx, owner, event.Stix(), stream.Filters())
}
