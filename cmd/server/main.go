package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"image-library/internal/config"
	"image-library/internal/observability"
	"image-library/internal/platform/cache"
	"image-library/internal/platform/database"
	"image-library/internal/platform/server"
	"image-library/internal/platform/storage"
	"image-library/internal/services"
	"image-library/internal/web/handlers"

	"github.com/joho/godotenv"
	"go.opentelemetry.io/otel"
)

func main() {
	envErr := godotenv.Load()

	obsConfig := observability.LoadConfig()
	logger := observability.NewLogger(obsConfig)
	ctx := context.Background()

	if envErr != nil {
		logger.Debug(ctx).Msg("no .env file found, using environment variables")
	}

	if err := run(obsConfig, logger); err != nil {
		logger.Fatal(ctx).Err(err).Msg("server terminated")
	}
}

func run(obsConfig observability.Config, logger *observability.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	provider, err := observability.NewProvider(ctx, obsConfig)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	otel.SetErrorHandler(otel.ErrorHandlerFunc(logger.OTELErrorHandler()))
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.Error(shutdownCtx).Err(err).Msg("telemetry shutdown failed")
		}
	}()

	db, err := database.NewConnection(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	applied, err := database.RunMigrations(ctx, db)
	if err != nil {
		return errors.Join(fmt.Errorf("failed to run migrations: %w", err), db.Close())
	}
	if len(applied) > 0 {
		logger.Info(ctx).Str("versions", strings.Join(applied, ",")).Msg("migrations applied")
	}

	minioClient, err := storage.NewMinIOClient(ctx, cfg.Storage)
	if err != nil {
		return errors.Join(fmt.Errorf("failed to connect to storage: %w", err), db.Close())
	}
	storageService, err := storage.NewService(minioClient, cfg.Storage)
	if err != nil {
		return errors.Join(fmt.Errorf("failed to create storage service: %w", err), db.Close())
	}

	var redisClient *cache.RedisClient
	if cfg.Cache.Enabled {
		redisClient, err = cache.NewRedisClient(ctx, cfg.Cache)
		if err != nil {
			// Listings still work from Postgres without the cache
			logger.Warn(ctx).Err(err).Str("address", cfg.Cache.Address).Msg("cache unavailable, continuing without it")
			redisClient = nil
		}
	}

	container, err := services.NewContainer(cfg, db, storageService, redisClient, logger)
	if err != nil {
		return errors.Join(fmt.Errorf("failed to initialize services container: %w", err), db.Close())
	}
	defer func() {
		if err := container.Close(); err != nil {
			logger.Error(context.Background()).Err(err).Msg("failed to close resources")
		}
	}()

	metrics, err := observability.NewHTTPMetrics(observability.GetMeter())
	if err != nil {
		return fmt.Errorf("failed to create HTTP metrics: %w", err)
	}

	handler := handlers.NewWithContainer(container, obsConfig.ServiceVersion, metrics)
	srv := server.New(cfg.Addr(), handler.Routes(), cfg.Server)

	logger.Info(ctx).
		Str("addr", srv.Addr).
		Str("environment", cfg.Environment).
		Bool("cache", redisClient != nil).
		Msg("server starting")

	if err := server.Run(ctx, srv, cfg.Server.ShutdownTimeout); err != nil {
		return err
	}

	logger.Info(context.Background()).Msg("server stopped")
	return nil
}
