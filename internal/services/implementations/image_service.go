package implementations

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"image-library/internal/domain/gallery"
	"image-library/internal/observability"
)

const (
	defaultThumbnailSize = 320
	objectDeleteLimit    = 8
	objectCleanupTimeout = 30 * time.Second
	thumbnailContentType = "image/jpeg"
)

// ImageServiceOptions tunes upload handling
type ImageServiceOptions struct {
	// MaxUploadSize caps the bytes read from an upload; <= 0 means no cap
	MaxUploadSize int64
	// ThumbnailSize bounds both thumbnail sides; 0 disables thumbnails
	ThumbnailSize int
}

// ImageServiceImpl implements gallery.ImageService
type ImageServiceImpl struct {
	images      gallery.ImageRepository
	folders     gallery.FolderRepository
	preferences gallery.PreferenceService
	storage     gallery.StorageService
	processor   gallery.ImageProcessor
	validator   gallery.ValidationService
	cache       *CacheService
	effects     sideEffects
	logger      *observability.Logger
	telemetry   *telemetry
	opts        ImageServiceOptions
}

// NewImageService creates an image service. cache and events may be nil.
func NewImageService(
	images gallery.ImageRepository,
	folders gallery.FolderRepository,
	preferences gallery.PreferenceService,
	storage gallery.StorageService,
	processor gallery.ImageProcessor,
	validator gallery.ValidationService,
	cache *CacheService,
	events gallery.EventPublisher,
	logger *observability.Logger,
	opts ImageServiceOptions,
) gallery.ImageService {
	if opts.ThumbnailSize < 0 {
		opts.ThumbnailSize = defaultThumbnailSize
	}
	effects := newSideEffects(cache, events, logger)
	return &ImageServiceImpl{
		images:      images,
		folders:     folders,
		preferences: preferences,
		storage:     storage,
		processor:   processor,
		validator:   validator,
		cache:       effects.cache,
		effects:     effects,
		logger:      effects.logger.WithComponent("image_service"),
		telemetry:   newTelemetry("images"),
		opts:        opts,
	}
}

// UploadImage validates, stores and records a new image. Anonymous uploads
// are always public.
func (s *ImageServiceImpl) UploadImage(ctx context.Context, req *gallery.UploadImageRequest, data io.Reader) (*gallery.Image, error) {
	const op = "UploadImage"
	ctx, span := s.telemetry.start(ctx, op, ownerOf(req))
	defer span.End()

	if data == nil {
		return nil, s.telemetry.fail(ctx, span, op, fmt.Errorf("%w: no file data", gallery.ErrInvalidFileSize))
	}
	if err := s.validator.ValidateUpload(ctx, req); err != nil {
		return nil, s.telemetry.fail(ctx, span, op, err)
	}
	req.ApplyOwnerRules()

	if req.FolderID != nil {
		span.AddEvent("checking_folder")
		if _, err := s.folders.GetByID(ctx, req.OwnerID, *req.FolderID); err != nil {
			return nil, s.telemetry.fail(ctx, span, op, err)
		}
	}

	content, err := s.readUpload(data)
	if err != nil {
		return nil, s.telemetry.fail(ctx, span, op, err)
	}

	info, err := s.processor.GetImageInfo(ctx, bytes.NewReader(content))
	if err != nil {
		return nil, s.telemetry.fail(ctx, span, op, err)
	}

	img := s.buildImage(req, content, info)
	span.SetAttributes(
		attribute.String("library.image_id", img.ID),
		attribute.Int64("library.file_size", img.FileSize),
	)

	span.AddEvent("storing_object")
	if _, err := s.storage.Store(ctx, img.StoragePath, img.ContentType, bytes.NewReader(content), img.FileSize); err != nil {
		return nil, s.telemetry.fail(ctx, span, op, fmt.Errorf("failed to store image: %w", err))
	}

	img.ThumbnailPath = s.storeThumbnail(ctx, img, content)

	if err := s.images.Create(ctx, img); err != nil {
		s.removeObjects(ctx, []*gallery.Image{img})
		return nil, s.telemetry.fail(ctx, span, op, fmt.Errorf("failed to save image: %w", err))
	}

	s.effects.invalidate(ctx, span, img.OwnerID)
	s.effects.publish(ctx, gallery.NewImageUploadedEvent(img))

	s.telemetry.succeed(ctx, span, op)
	s.logger.Info(ctx).
		Str("image_id", img.ID).
		Str("content_type", img.ContentType).
		Int64("file_size", img.FileSize).
		Msg("image uploaded")
	return img, nil
}

func (s *ImageServiceImpl) readUpload(data io.Reader) ([]byte, error) {
	if s.opts.MaxUploadSize > 0 {
		data = io.LimitReader(data, s.opts.MaxUploadSize+1)
	}

	content, err := io.ReadAll(data)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if len(content) == 0 {
		return nil, fmt.Errorf("%w: file is empty", gallery.ErrInvalidFileSize)
	}
	if s.opts.MaxUploadSize > 0 && int64(len(content)) > s.opts.MaxUploadSize {
		return nil, fmt.Errorf("%w: file size too large (max %d bytes)", gallery.ErrInvalidFileSize, s.opts.MaxUploadSize)
	}
	return content, nil
}

func (s *ImageServiceImpl) buildImage(req *gallery.UploadImageRequest, content []byte, info *gallery.ImageInfo) *gallery.Image {
	id := uuid.NewString()
	now := time.Now().UTC()

	lastModified := req.LastModified
	if lastModified.IsZero() {
		lastModified = now
	}

	img := &gallery.Image{
		ID:           id,
		OwnerID:      req.OwnerID,
		FolderID:     req.FolderID,
		Filename:     req.Filename,
		ContentType:  strings.ToLower(req.ContentType),
		FileSize:     int64(len(content)),
		StoragePath:  gallery.ObjectName(req.OwnerID, id, req.Filename),
		Title:        req.Title,
		Description:  req.Description,
		IsPublic:     req.IsPublic,
		LastModified: lastModified,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if info != nil {
		img.Width, img.Height = &info.Width, &info.Height
	}
	return img
}

// storeThumbnail is best effort; the image is usable without one
func (s *ImageServiceImpl) storeThumbnail(ctx context.Context, img *gallery.Image, content []byte) *string {
	if s.opts.ThumbnailSize == 0 {
		return nil
	}

	thumb, err := s.processor.GenerateThumbnail(ctx, bytes.NewReader(content), s.opts.ThumbnailSize, s.opts.ThumbnailSize)
	if err != nil {
		s.logger.Warn(ctx).Err(err).Str("image_id", img.ID).Msg("failed to generate thumbnail")
		return nil
	}

	size := int64(-1)
	if sized, ok := thumb.(interface{ Len() int }); ok {
		size = int64(sized.Len())
	}

	path := gallery.ThumbnailObjectName(img.OwnerID, img.ID)
	if _, err := s.storage.Store(ctx, path, thumbnailContentType, thumb, size); err != nil {
		s.logger.Warn(ctx).Err(err).Str("image_id", img.ID).Msg("failed to store thumbnail")
		return nil
	}
	return &path
}

// ListImages returns the owner's images, leaving out private ones while the
// owner's hide-private preference is on.
func (s *ImageServiceImpl) ListImages(ctx context.Context, req *gallery.ListImagesRequest) ([]*gallery.Image, error) {
	const op = "ListImages"
	ctx, span := s.telemetry.start(ctx, op, ownerOf(req))
	defer span.End()

	if req == nil {
		return nil, s.telemetry.fail(ctx, span, op, fmt.Errorf("%w: list request cannot be nil", gallery.ErrInvalidRequest))
	}
	if err := gallery.ValidateOwner(req.OwnerID); err != nil {
		return nil, s.telemetry.fail(ctx, span, op, err)
	}

	filter := *req
	if filter.FolderID != nil {
		if *filter.FolderID == gallery.UnfiledFolderFilter {
			filter.FolderID, filter.Unfiled = nil, true
		} else if _, err := s.folders.GetByID(ctx, filter.OwnerID, *filter.FolderID); err != nil {
			return nil, s.telemetry.fail(ctx, span, op, err)
		}
	}

	hide, err := s.preferences.HidePrivateImages(ctx, filter.OwnerID)
	if err != nil {
		return nil, s.telemetry.fail(ctx, span, op, err)
	}
	filter.IncludePrivate = !hide
	span.SetAttributes(attribute.Bool("library.include_private", filter.IncludePrivate))

	if cached, err := s.cache.GetImages(ctx, &filter); err == nil {
		s.telemetry.cacheResult(ctx, span, true)
		s.telemetry.succeed(ctx, span, op)
		return cached, nil
	}
	if s.cache.Enabled() {
		s.telemetry.cacheResult(ctx, span, false)
	}

	images, err := s.images.List(ctx, &filter)
	if err != nil {
		return nil, s.telemetry.fail(ctx, span, op, fmt.Errorf("failed to list images: %w", err))
	}

	if err := s.cache.SetImages(ctx, &filter, images); err != nil {
		s.logger.Debug(ctx).Err(err).Msg("failed to cache images")
	}

	span.SetAttributes(attribute.Int("library.image_count", len(images)))
	s.telemetry.succeed(ctx, span, op)
	return images, nil
}

// OpenImage streams an image the viewer may see. Private images of other
// owners look missing.
func (s *ImageServiceImpl) OpenImage(ctx context.Context, viewerID, id string, thumbnail bool) (io.ReadCloser, *gallery.Image, error) {
	const op = "OpenImage"
	ctx, span := s.telemetry.start(ctx, op, viewerID,
		attribute.String("library.image_id", id),
		attribute.Bool("library.thumbnail", thumbnail),
	)
	defer span.End()

	img, err := s.images.GetByID(ctx, id)
	if err != nil {
		return nil, nil, s.telemetry.fail(ctx, span, op, err)
	}
	if !img.VisibleTo(viewerID) {
		return nil, nil, s.telemetry.fail(ctx, span, op, gallery.ErrImageNotFound)
	}

	path := img.StoragePath
	if thumbnail && img.ThumbnailPath != nil {
		path = *img.ThumbnailPath
	}

	rc, err := s.storage.Retrieve(ctx, path)
	if err != nil {
		return nil, nil, s.telemetry.fail(ctx, span, op, err)
	}

	s.telemetry.succeed(ctx, span, op)
	return rc, img, nil
}

// ImageURL presigns a GET link for an image the viewer may see
func (s *ImageServiceImpl) ImageURL(ctx context.Context, viewerID, id string, thumbnail bool) (string, error) {
	const op = "ImageURL"
	ctx, span := s.telemetry.start(ctx, op, viewerID,
		attribute.String("library.image_id", id),
		attribute.Bool("library.thumbnail", thumbnail),
	)
	defer span.End()

	img, err := s.images.GetByID(ctx, id)
	if err != nil {
		return "", s.telemetry.fail(ctx, span, op, err)
	}
	if !img.VisibleTo(viewerID) {
		return "", s.telemetry.fail(ctx, span, op, gallery.ErrImageNotFound)
	}

	path := img.StoragePath
	if thumbnail && img.ThumbnailPath != nil {
		exists, err := s.storage.Exists(ctx, *img.ThumbnailPath)
		if err != nil {
			return "", s.telemetry.fail(ctx, span, op, err)
		}
		if exists {
			path = *img.ThumbnailPath
		} else {
			s.logger.Warn(ctx).Str("image_id", img.ID).Msg("thumbnail object missing, linking original")
		}
	}
	if path == img.StoragePath {
		exists, err := s.storage.Exists(ctx, path)
		if err != nil {
			return "", s.telemetry.fail(ctx, span, op, err)
		}
		if !exists {
			return "", s.telemetry.fail(ctx, span, op, gallery.ErrImageNotFound)
		}
	}

	// A non-positive expiry uses the storage default
	url, err := s.storage.GenerateURL(ctx, path, 0)
	if err != nil {
		return "", s.telemetry.fail(ctx, span, op, err)
	}

	s.telemetry.succeed(ctx, span, op)
	return url, nil
}

// UpdateImage edits title, description or visibility of the owner's image
func (s *ImageServiceImpl) UpdateImage(ctx context.Context, req *gallery.UpdateImageRequest) (*gallery.Image, error) {
	const op = "UpdateImage"
	ctx, span := s.telemetry.start(ctx, op, ownerOf(req))
	defer span.End()

	if err := s.validator.ValidateUpdateImage(ctx, req); err != nil {
		return nil, s.telemetry.fail(ctx, span, op, err)
	}
	span.SetAttributes(attribute.String("library.image_id", req.ID))

	img, err := s.images.GetByID(ctx, req.ID)
	if err != nil {
		return nil, s.telemetry.fail(ctx, span, op, err)
	}
	if img.OwnerID != req.OwnerID {
		return nil, s.telemetry.fail(ctx, span, op, gallery.ErrImageNotFound)
	}

	if req.Title != nil {
		img.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		img.Description = strings.TrimSpace(*req.Description)
	}
	if req.IsPublic != nil {
		img.IsPublic = *req.IsPublic
	}

	if err := s.images.Update(ctx, img); err != nil {
		return nil, s.telemetry.fail(ctx, span, op, fmt.Errorf("failed to update image: %w", err))
	}

	s.effects.invalidate(ctx, span, img.OwnerID)
	s.effects.publish(ctx, gallery.NewImageUpdatedEvent(img))

	s.telemetry.succeed(ctx, span, op)
	return img, nil
}

// DeleteImage removes one of the owner's images and its objects
func (s *ImageServiceImpl) DeleteImage(ctx context.Context, ownerID, id string) error {
	const op = "DeleteImage"
	ctx, span := s.telemetry.start(ctx, op, ownerID, attribute.String("library.image_id", id))
	defer span.End()

	if err := gallery.ValidateOwner(ownerID); err != nil {
		return s.telemetry.fail(ctx, span, op, err)
	}
	if strings.TrimSpace(id) == "" {
		return s.telemetry.fail(ctx, span, op, gallery.ErrImageNotFound)
	}

	img, err := s.images.Delete(ctx, ownerID, id)
	if err != nil {
		return s.telemetry.fail(ctx, span, op, err)
	}

	s.removeObjects(ctx, []*gallery.Image{img})
	s.effects.invalidate(ctx, span, ownerID)
	s.effects.publish(ctx, gallery.NewImageDeletedEvent(img))

	s.telemetry.succeed(ctx, span, op)
	s.logger.Info(ctx).Str("image_id", id).Msg("image deleted")
	return nil
}

// DeleteImages removes the whole selection or nothing. Objects are removed
// after the rows are gone.
func (s *ImageServiceImpl) DeleteImages(ctx context.Context, req *gallery.DeleteImagesRequest) (int, error) {
	const op = "DeleteImages"
	ctx, span := s.telemetry.start(ctx, op, ownerOf(req))
	defer span.End()

	if err := s.validator.ValidateDelete(ctx, req); err != nil {
		return 0, s.telemetry.fail(ctx, span, op, err)
	}
	ids, _ := gallery.NormalizeSelection(req.ImageIDs)
	span.SetAttributes(attribute.Int("library.selection_size", len(ids)))

	deleted, err := s.images.DeleteMany(ctx, req.OwnerID, ids)
	if err != nil {
		return 0, s.telemetry.fail(ctx, span, op, err)
	}

	s.removeObjects(ctx, deleted)
	s.effects.invalidate(ctx, span, req.OwnerID)
	s.effects.publish(ctx, gallery.NewImagesDeletedEvent(req.OwnerID, ids))

	s.telemetry.succeed(ctx, span, op)
	s.logger.Info(ctx).Int("count", len(deleted)).Msg("images deleted")
	return len(deleted), nil
}

// MoveImages files the selection under a folder, or unfiles it
func (s *ImageServiceImpl) MoveImages(ctx context.Context, req *gallery.MoveImagesRequest) (int, error) {
	const op = "MoveImages"
	ctx, span := s.telemetry.start(ctx, op, ownerOf(req))
	defer span.End()

	if err := s.validator.ValidateMove(ctx, req); err != nil {
		return 0, s.telemetry.fail(ctx, span, op, err)
	}
	ids, _ := gallery.NormalizeSelection(req.ImageIDs)
	span.SetAttributes(attribute.Int("library.selection_size", len(ids)))
	if req.FolderID != nil {
		span.SetAttributes(attribute.String("library.folder_id", *req.FolderID))
	}

	moved, err := s.images.MoveMany(ctx, req.OwnerID, ids, req.FolderID)
	if err != nil {
		return 0, s.telemetry.fail(ctx, span, op, err)
	}

	s.effects.invalidate(ctx, span, req.OwnerID)
	s.effects.publish(ctx, gallery.NewImagesMovedEvent(req.OwnerID, ids, req.FolderID))

	s.telemetry.succeed(ctx, span, op)
	return int(moved), nil
}

// removeObjects deletes originals and thumbnails concurrently. Rows are
// already gone, so failures only leave orphaned objects and are logged.
func (s *ImageServiceImpl) removeObjects(ctx context.Context, images []*gallery.Image) {
	if len(images) == 0 {
		return
	}

	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), objectCleanupTimeout)
	defer cancel()

	var g errgroup.Group
	g.SetLimit(objectDeleteLimit)

	var (
		mu       sync.Mutex
		failures []error
	)

	for _, img := range images {
		paths := []string{img.StoragePath}
		if img.ThumbnailPath != nil {
			paths = append(paths, *img.ThumbnailPath)
		}
		for _, path := range paths {
			if path == "" {
				continue
			}
			g.Go(func() error {
				if err := s.storage.Delete(cleanupCtx, path); err != nil {
					mu.Lock()
					failures = append(failures, fmt.Errorf("%s: %w", path, err))
					mu.Unlock()
				}
				return nil
			})
		}
	}
	_ = g.Wait()

	if len(failures) > 0 {
		s.logger.Warn(ctx).Err(errors.Join(failures...)).Int("failed", len(failures)).Msg("failed to remove stored objects")
	}
}
