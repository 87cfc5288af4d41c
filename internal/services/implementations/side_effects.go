package implementations

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"image-library/internal/domain/gallery"
	"image-library/internal/observability"
)

// sideEffects runs the best-effort work that follows a successful write:
// dropping the owner's cached lists and publishing the domain event.
// Failures are logged and never reach the caller.
type sideEffects struct {
	cache  *CacheService
	events gallery.EventPublisher
	logger *observability.Logger
}

func newSideEffects(cache *CacheService, events gallery.EventPublisher, logger *observability.Logger) sideEffects {
	if cache == nil {
		cache = NewCacheService(nil)
	}
	if logger == nil {
		logger = observability.NopLogger()
	}
	return sideEffects{cache: cache, events: events, logger: logger}
}

func (s sideEffects) invalidate(ctx context.Context, span trace.Span, ownerID string) {
	if !s.cache.Enabled() {
		return
	}
	span.AddEvent("invalidating_cache")
	if err := s.cache.InvalidateOwner(ctx, ownerID); err != nil {
		span.AddEvent("cache_invalidate_failed", trace.WithAttributes(
			attribute.String("error", err.Error()),
		))
		s.logger.Warn(ctx).Err(err).Str("owner_id", ownerID).Msg("failed to invalidate cache")
	}
}

func (s sideEffects) publish(ctx context.Context, event *gallery.Event) {
	if s.events == nil || event == nil {
		return
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn(ctx).Err(err).Str("event_type", string(event.Type)).Msg("failed to publish event")
	}
}
