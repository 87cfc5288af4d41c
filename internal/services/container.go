// Package services wires repositories, platform clients and service
// implementations into one container the HTTP layer reads from.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"image-library/internal/config"
	"image-library/internal/domain/gallery"
	"image-library/internal/observability"
	"image-library/internal/platform/cache"
	"image-library/internal/platform/database"
	"image-library/internal/platform/storage"
	"image-library/internal/services/implementations"
)

// HealthCheck reports whether one dependency is usable
type HealthCheck func(ctx context.Context) error

type healthChecker interface {
	Health(ctx context.Context) error
}

// Container holds all the application dependencies
type Container struct {
	config *config.Config
	db     *sql.DB
	logger *observability.Logger

	// Platform
	storageService gallery.StorageService
	imageProcessor gallery.ImageProcessor
	redisClient    *cache.RedisClient
	cacheService   *implementations.CacheService

	// Repositories
	folderRepository     gallery.FolderRepository
	imageRepository      gallery.ImageRepository
	preferenceRepository gallery.PreferenceRepository

	// Services
	validationService gallery.ValidationService
	eventPublisher    gallery.EventPublisher
	folderService     gallery.FolderService
	imageService      gallery.ImageService
	preferenceService gallery.PreferenceService
}

// NewContainer creates a new dependency injection container. redisClient may
// be nil when caching is disabled.
func NewContainer(
	cfg *config.Config,
	db *sql.DB,
	storageService gallery.StorageService,
	redisClient *cache.RedisClient,
	logger *observability.Logger,
) (*Container, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}
	if db == nil {
		return nil, errors.New("database cannot be nil")
	}
	if storageService == nil {
		return nil, errors.New("storage service cannot be nil")
	}
	if logger == nil {
		logger = observability.NopLogger()
	}

	container := &Container{
		config:         cfg,
		db:             db,
		logger:         logger,
		storageService: storageService,
		redisClient:    redisClient,
	}

	container.initializeServices()
	return container, nil
}

// initializeServices initializes all services in dependency order
func (c *Container) initializeServices() {
	c.folderRepository = database.NewFolderRepository(c.db)
	c.imageRepository = database.NewImageRepository(c.db)
	c.preferenceRepository = database.NewPreferenceRepository(c.db)

	// A typed nil client must not reach the adapter as a non-nil interface
	if c.redisClient != nil {
		c.cacheService = implementations.NewCacheService(c.redisClient)
	} else {
		c.cacheService = implementations.NewCacheService(nil)
	}

	c.imageProcessor = storage.NewImageProcessor(0, 0, 85)
	c.validationService = implementations.NewStorageValidationService(c.config.Storage)
	c.eventPublisher = implementations.NewLogEventPublisher(c.logger)

	c.folderService = implementations.NewFolderService(
		c.folderRepository,
		c.validationService,
		c.cacheService,
		c.eventPublisher,
		c.logger,
	)

	c.preferenceService = implementations.NewPreferenceService(
		c.preferenceRepository,
		c.cacheService,
		c.eventPublisher,
		c.logger,
	)

	c.imageService = implementations.NewImageService(
		c.imageRepository,
		c.folderRepository,
		c.preferenceService,
		c.storageService,
		c.imageProcessor,
		c.validationService,
		c.cacheService,
		c.eventPublisher,
		c.logger,
		implementations.ImageServiceOptions{
			MaxUploadSize: c.config.Storage.MaxUploadSize,
			ThumbnailSize: c.config.Storage.ThumbnailSize,
		},
	)

	c.logger.Info(context.Background()).
		Bool("cache_enabled", c.cacheService.Enabled()).
		Msg("dependency injection container initialized")
}

func (c *Container) Config() *config.Config {
	return c.config
}

func (c *Container) DB() *sql.DB {
	return c.db
}

func (c *Container) Logger() *observability.Logger {
	return c.logger
}

func (c *Container) StorageService() gallery.StorageService {
	return c.storageService
}

func (c *Container) FolderService() gallery.FolderService {
	return c.folderService
}

func (c *Container) ImageService() gallery.ImageService {
	return c.imageService
}

func (c *Container) PreferenceService() gallery.PreferenceService {
	return c.preferenceService
}

// HealthChecks returns readiness checks keyed by dependency name
func (c *Container) HealthChecks() map[string]HealthCheck {
	checks := map[string]HealthCheck{
		"database": c.db.PingContext,
	}
	if hc, ok := c.storageService.(healthChecker); ok {
		checks["storage"] = hc.Health
	}
	if c.redisClient != nil {
		checks["cache"] = c.redisClient.Health
	}
	return checks
}

// Close releases the cache client and the database pool
func (c *Container) Close() error {
	var errs []error
	if c.redisClient != nil {
		if err := c.redisClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close cache: %w", err))
		}
	}
	if c.db != nil {
		if err := c.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		}
	}
	return errors.Join(errs...)
}
