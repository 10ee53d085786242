package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"debatecoach/internal/events"
	"debatecoach/internal/observability/metrics"
)

const publishTimeout = 3 * time.Second

var publisher events.Publisher = events.Discard{}

// InitEventPublisher sets the sink for completed operations. nil disables
// publishing.
func InitEventPublisher(p events.Publisher) {
	if p == nil {
		p = events.Discard{}
	}
	publisher = p
}

// publishEvent delivers an event without failing the caller. It detaches
// from the request's cancellation so a finished response still gets its event.
func publishEvent(ctx context.Context, logger zerolog.Logger, eventType, requestID string, payload interface{}) {
	event, err := events.NewEvent(eventType, requestID, payload)
	if err != nil {
		logger.Error().Err(err).Str("type", eventType).Msg("Failed to build event")
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	err = publisher.Publish(ctx, event)
	metrics.DefaultMetrics.RecordEvent(publisher.Sink(), err)
	if err != nil {
		logger.Error().Err(err).Str("type", eventType).Str("sink", publisher.Sink()).Msg("Failed to publish event")
	}
}
