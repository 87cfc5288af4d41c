package implementations

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"image-library/internal/domain/gallery"
	"image-library/internal/observability"
)

// PreferenceServiceImpl implements gallery.PreferenceService
type PreferenceServiceImpl struct {
	prefs     gallery.PreferenceRepository
	cache     *CacheService
	effects   sideEffects
	logger    *observability.Logger
	telemetry *telemetry
}

// NewPreferenceService creates a preference service. cache and events may be nil.
func NewPreferenceService(
	prefs gallery.PreferenceRepository,
	cache *CacheService,
	events gallery.EventPublisher,
	logger *observability.Logger,
) gallery.PreferenceService {
	effects := newSideEffects(cache, events, logger)
	return &PreferenceServiceImpl{
		prefs:     prefs,
		cache:     effects.cache,
		effects:   effects,
		logger:    effects.logger.WithComponent("preference_service"),
		telemetry: newTelemetry("preferences"),
	}
}

// HidePrivateImages returns the owner's setting, true when never set
func (s *PreferenceServiceImpl) HidePrivateImages(ctx context.Context, ownerID string) (bool, error) {
	const op = "HidePrivateImages"
	ctx, span := s.telemetry.start(ctx, op, ownerID)
	defer span.End()

	if err := gallery.ValidateOwner(ownerID); err != nil {
		return false, s.telemetry.fail(ctx, span, op, err)
	}

	if cached, err := s.cache.GetPreferences(ctx, ownerID); err == nil {
		s.telemetry.cacheResult(ctx, span, true)
		s.telemetry.succeed(ctx, span, op)
		return cached.HidePrivateImages, nil
	}
	if s.cache.Enabled() {
		s.telemetry.cacheResult(ctx, span, false)
	}

	prefs, err := s.prefs.Get(ctx, ownerID)
	if err != nil {
		return false, s.telemetry.fail(ctx, span, op, fmt.Errorf("failed to get preferences: %w", err))
	}

	if err := s.cache.SetPreferences(ctx, prefs); err != nil {
		s.logger.Debug(ctx).Err(err).Msg("failed to cache preferences")
	}

	span.SetAttributes(attribute.Bool("library.hide_private", prefs.HidePrivateImages))
	s.telemetry.succeed(ctx, span, op)
	return prefs.HidePrivateImages, nil
}

// ToggleHidePrivateImages stores NewValue and returns what was stored
func (s *PreferenceServiceImpl) ToggleHidePrivateImages(ctx context.Context, req *gallery.TogglePrivateRequest) (bool, error) {
	const op = "ToggleHidePrivateImages"
	ctx, span := s.telemetry.start(ctx, op, ownerOf(req))
	defer span.End()

	if req == nil {
		return false, s.telemetry.fail(ctx, span, op, fmt.Errorf("%w: toggle request cannot be nil", gallery.ErrInvalidRequest))
	}
	if err := gallery.ValidateOwner(req.OwnerID); err != nil {
		return false, s.telemetry.fail(ctx, span, op, err)
	}

	prefs, err := s.prefs.SetHidePrivateImages(ctx, req.OwnerID, req.NewValue)
	if err != nil {
		return false, s.telemetry.fail(ctx, span, op, fmt.Errorf("failed to save preferences: %w", err))
	}

	if err := s.cache.SetPreferences(ctx, prefs); err != nil {
		// A stale cached value would outlive the toggle, so fall back to dropping it
		s.effects.invalidate(ctx, span, req.OwnerID)
	}
	s.effects.publish(ctx, gallery.NewPreferencesUpdatedEvent(prefs))

	span.SetAttributes(attribute.Bool("library.hide_private", prefs.HidePrivateImages))
	s.telemetry.succeed(ctx, span, op)
	return prefs.HidePrivateImages, nil
}
