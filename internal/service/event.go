package service

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/juanpasaflipz/ai-prompt-marketplace/internal/domain"
	"github.com/juanpasaflipz/ai-prompt-marketplace/internal/dto"
	"github.com/juanpasaflipz/ai-prompt-marketplace/internal/pipeline"
)

var ErrMissingEventType = errors.New("event_type is required")

// EventService hands producer requests to the tracker and exposes the flush
// worker's controls.
type EventService struct {
	tracker  EventTracker
	pipeline PipelineController
	breaker  StateReporter
	log      *zap.Logger
}

// NewEventService creates a new event service. breaker may be nil.
func NewEventService(tracker EventTracker, pipeline PipelineController, breaker StateReporter, log *zap.Logger) *EventService {
	return &EventService{
		tracker:  tracker,
		pipeline: pipeline,
		breaker:  breaker,
		log:      log,
	}
}

// ProcessEvent validates and buffers a single event
func (s *EventService) ProcessEvent(req *dto.TrackEventRequest, client ClientInfo) error {
	eventType := strings.TrimSpace(req.EventType)
	if eventType == "" {
		return ErrMissingEventType
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = client.SessionID
	}

	s.tracker.Track(pipeline.TrackParams{
		UserID:     req.UserID,
		EventType:  domain.EventType(eventType),
		EntityType: req.EntityType,
		EntityID:   req.EntityID,
		Metadata:   req.Metadata,
		SessionID:  sessionID,
		IPAddress:  client.IPAddress,
		UserAgent:  client.UserAgent,
		Referrer:   client.Referrer,
	})
	return nil
}

// ProcessBulkEvents buffers every valid event and reports the rejected ones
func (s *EventService) ProcessBulkEvents(reqs []dto.TrackEventRequest, client ClientInfo) (int, []string) {
	accepted := 0
	var rejected []string

	for i := range reqs {
		if err := s.ProcessEvent(&reqs[i], client); err != nil {
			rejected = append(rejected, fmt.Sprintf("event %d: %s", i, err))
			s.log.Warn("Rejected event in bulk request",
				zap.Int("index", i),
				zap.Error(err))
			continue
		}
		accepted++
	}

	return accepted, rejected
}

// RequestFlush signals the flush worker and returns the current buffer size
func (s *EventService) RequestFlush() int {
	s.pipeline.RequestFlush()
	buffered := s.pipeline.Stats().Buffered
	s.log.Info("Manual flush requested", zap.Int("buffered_events", buffered))
	return buffered
}

func (s *EventService) PipelineStats() *dto.PipelineStatsResponse {
	resp := &dto.PipelineStatsResponse{Worker: s.pipeline.Stats()}
	if s.breaker != nil {
		resp.BreakerState = s.breaker.State()
	}
	return resp
}
