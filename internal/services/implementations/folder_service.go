package implementations

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"image-library/internal/domain/gallery"
	"image-library/internal/observability"
)

// FolderServiceImpl implements gallery.FolderService
type FolderServiceImpl struct {
	folders   gallery.FolderRepository
	validator gallery.ValidationService
	cache     *CacheService
	effects   sideEffects
	logger    *observability.Logger
	telemetry *telemetry
}

// NewFolderService creates a folder service. cache and events may be nil.
func NewFolderService(
	folders gallery.FolderRepository,
	validator gallery.ValidationService,
	cache *CacheService,
	events gallery.EventPublisher,
	logger *observability.Logger,
) gallery.FolderService {
	effects := newSideEffects(cache, events, logger)
	return &FolderServiceImpl{
		folders:   folders,
		validator: validator,
		cache:     effects.cache,
		effects:   effects,
		logger:    effects.logger.WithComponent("folder_service"),
		telemetry: newTelemetry("folders"),
	}
}

// ListFolders returns the owner's folders, served from cache when possible
func (s *FolderServiceImpl) ListFolders(ctx context.Context, ownerID string) ([]*gallery.Folder, error) {
	const op = "ListFolders"
	ctx, span := s.telemetry.start(ctx, op, ownerID)
	defer span.End()

	if err := gallery.ValidateOwner(ownerID); err != nil {
		return nil, s.telemetry.fail(ctx, span, op, err)
	}

	if cached, err := s.cache.GetFolders(ctx, ownerID); err == nil {
		s.telemetry.cacheResult(ctx, span, true)
		s.telemetry.succeed(ctx, span, op)
		return cached, nil
	}
	if s.cache.Enabled() {
		s.telemetry.cacheResult(ctx, span, false)
	}

	folders, err := s.folders.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, s.telemetry.fail(ctx, span, op, fmt.Errorf("failed to list folders: %w", err))
	}

	if err := s.cache.SetFolders(ctx, ownerID, folders); err != nil {
		s.logger.Debug(ctx).Err(err).Msg("failed to cache folders")
	}

	span.SetAttributes(attribute.Int("library.folder_count", len(folders)))
	s.telemetry.succeed(ctx, span, op)
	return folders, nil
}

// CreateFolder stores a new folder with a generated id
func (s *FolderServiceImpl) CreateFolder(ctx context.Context, req *gallery.CreateFolderRequest) (*gallery.Folder, error) {
	const op = "CreateFolder"
	ctx, span := s.telemetry.start(ctx, op, ownerOf(req))
	defer span.End()

	if err := s.validator.ValidateCreateFolder(ctx, req); err != nil {
		return nil, s.telemetry.fail(ctx, span, op, err)
	}

	title, _ := gallery.NormalizeFolderTitle(req.Title)
	desc, _ := gallery.NormalizeFolderDescription(req.Description)

	folder := &gallery.Folder{
		ID:          uuid.NewString(),
		OwnerID:     req.OwnerID,
		Title:       title,
		Description: desc,
	}

	if err := s.folders.Create(ctx, folder); err != nil {
		return nil, s.telemetry.fail(ctx, span, op, fmt.Errorf("failed to create folder: %w", err))
	}

	s.effects.invalidate(ctx, span, folder.OwnerID)
	s.effects.publish(ctx, gallery.NewFolderCreatedEvent(folder))

	span.SetAttributes(attribute.String("library.folder_id", folder.ID))
	s.telemetry.succeed(ctx, span, op)
	s.logger.Info(ctx).Str("folder_id", folder.ID).Msg("folder created")
	return folder, nil
}

// UpdateFolder renames or re-describes one of the owner's folders
func (s *FolderServiceImpl) UpdateFolder(ctx context.Context, req *gallery.UpdateFolderRequest) (*gallery.Folder, error) {
	const op = "UpdateFolder"
	ctx, span := s.telemetry.start(ctx, op, ownerOf(req))
	defer span.End()

	if err := s.validator.ValidateUpdateFolder(ctx, req); err != nil {
		return nil, s.telemetry.fail(ctx, span, op, err)
	}
	span.SetAttributes(attribute.String("library.folder_id", req.ID))

	folder, err := s.folders.GetByID(ctx, req.OwnerID, req.ID)
	if err != nil {
		return nil, s.telemetry.fail(ctx, span, op, err)
	}

	folder.Title, _ = gallery.NormalizeFolderTitle(req.Title)
	folder.Description, _ = gallery.NormalizeFolderDescription(req.Description)

	if err := s.folders.Update(ctx, folder); err != nil {
		return nil, s.telemetry.fail(ctx, span, op, fmt.Errorf("failed to update folder: %w", err))
	}

	s.effects.invalidate(ctx, span, folder.OwnerID)
	s.effects.publish(ctx, gallery.NewFolderUpdatedEvent(folder))

	s.telemetry.succeed(ctx, span, op)
	return folder, nil
}

// DeleteFolder removes the folder; its images stay in the library unfiled
func (s *FolderServiceImpl) DeleteFolder(ctx context.Context, ownerID, id string) error {
	const op = "DeleteFolder"
	ctx, span := s.telemetry.start(ctx, op, ownerID, attribute.String("library.folder_id", id))
	defer span.End()

	if err := gallery.ValidateOwner(ownerID); err != nil {
		return s.telemetry.fail(ctx, span, op, err)
	}
	if strings.TrimSpace(id) == "" {
		return s.telemetry.fail(ctx, span, op, gallery.ErrFolderNotFound)
	}

	detached, err := s.folders.Delete(ctx, ownerID, id)
	if err != nil {
		return s.telemetry.fail(ctx, span, op, err)
	}

	s.effects.invalidate(ctx, span, ownerID)
	s.effects.publish(ctx, gallery.NewFolderDeletedEvent(ownerID, id, detached))

	span.SetAttributes(attribute.Int64("library.detached_images", detached))
	s.telemetry.succeed(ctx, span, op)
	s.logger.Info(ctx).Str("folder_id", id).Int64("detached_images", detached).Msg("folder deleted")
	return nil
}

// ownerOf reads OwnerID for span attributes without tripping over nil requests
func ownerOf(req any) string {
	switch r := req.(type) {
	case *gallery.CreateFolderRequest:
		if r != nil {
			return r.OwnerID
		}
	case *gallery.UpdateFolderRequest:
		if r != nil {
			return r.OwnerID
		}
	case *gallery.UploadImageRequest:
		if r != nil {
			return r.OwnerID
		}
	case *gallery.UpdateImageRequest:
		if r != nil {
			return r.OwnerID
		}
	case *gallery.MoveImagesRequest:
		if r != nil {
			return r.OwnerID
		}
	case *gallery.DeleteImagesRequest:
		if r != nil {
			return r.OwnerID
		}
	case *gallery.ListImagesRequest:
		if r != nil {
			return r.OwnerID
		}
	case *gallery.TogglePrivateRequest:
		if r != nil {
			return r.OwnerID
		}
	}
	return ""
}
