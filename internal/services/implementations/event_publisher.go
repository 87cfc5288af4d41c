package implementations

import (
	"context"
	"errors"

	"image-library/internal/domain/gallery"
	"image-library/internal/observability"
)

// LogEventPublisher writes domain events to the structured log
type LogEventPublisher struct {
	logger *observability.Logger
}

// NewLogEventPublisher creates a publisher; a nil logger discards events
func NewLogEventPublisher(logger *observability.Logger) *LogEventPublisher {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &LogEventPublisher{logger: logger.WithComponent("events")}
}

// Publish logs event at info level
func (p *LogEventPublisher) Publish(ctx context.Context, event *gallery.Event) error {
	if event == nil {
		return errors.New("event cannot be nil")
	}

	p.logger.Info(ctx).
		Str("event_id", event.ID).
		Str("event_type", string(event.Type)).
		Str("aggregate_id", event.AggregateID).
		Str("owner_id", event.OwnerID).
		Time("event_time", event.Timestamp).
		Interface("data", event.Data).
		Msg("domain event")

	return nil
}
