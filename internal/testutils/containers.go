package testutils

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/testcontainers/testcontainers-go"
	minioModule "github.com/testcontainers/testcontainers-go/modules/minio"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	redisModule "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"

	"image-library/internal/config"
	"image-library/internal/platform/cache"
	"image-library/internal/platform/database"
	"image-library/internal/platform/storage"
)

const testBucket = "test-images"

// TestContainers manages the Postgres, MinIO and Valkey containers used by
// integration tests
type TestContainers struct {
	PostgresContainer testcontainers.Container
	MinioContainer    testcontainers.Container
	RedisContainer    testcontainers.Container

	DB             *sql.DB
	MinioClient    *minio.Client
	StorageService *storage.Service
	RedisClient    *cache.RedisClient

	DatabaseURL   string
	StorageConfig config.StorageConfig
	CacheConfig   config.CacheConfig
}

// SetupTestContainers starts every container, connects to each of them and
// applies the schema
func SetupTestContainers(ctx context.Context) (*TestContainers, error) {
	tc := &TestContainers{}

	if err := tc.setupPostgres(ctx); err != nil {
		return nil, errors.Join(fmt.Errorf("failed to setup postgres container: %w", err), tc.Cleanup(ctx))
	}

	if err := tc.setupMinio(ctx); err != nil {
		return nil, errors.Join(fmt.Errorf("failed to setup minio container: %w", err), tc.Cleanup(ctx))
	}

	if err := tc.setupRedis(ctx); err != nil {
		return nil, errors.Join(fmt.Errorf("failed to setup redis container: %w", err), tc.Cleanup(ctx))
	}

	if _, err := database.RunMigrations(ctx, tc.DB); err != nil {
		return nil, errors.Join(fmt.Errorf("failed to run migrations: %w", err), tc.Cleanup(ctx))
	}

	return tc, nil
}

func (tc *TestContainers) setupPostgres(ctx context.Context) error {
	postgresContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("library"),
		postgres.WithUsername("library"),
		postgres.WithPassword("library"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if postgresContainer != nil {
		tc.PostgresContainer = postgresContainer
	}
	if err != nil {
		return fmt.Errorf("failed to start postgres container: %w", err)
	}

	connStr, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return fmt.Errorf("failed to get postgres connection string: %w", err)
	}
	tc.DatabaseURL = connStr

	db, err := database.NewConnection(ctx, connStr)
	if err != nil {
		return err
	}
	tc.DB = db
	return nil
}

func (tc *TestContainers) setupMinio(ctx context.Context) error {
	const username, password = "testuser", "testpass123"

	minioContainer, err := minioModule.Run(ctx,
		"minio/minio:RELEASE.2024-01-16T16-07-38Z",
		minioModule.WithUsername(username),
		minioModule.WithPassword(password),
	)
	if minioContainer != nil {
		tc.MinioContainer = minioContainer
	}
	if err != nil {
		return fmt.Errorf("failed to start minio container: %w", err)
	}

	endpoint, err := minioContainer.ConnectionString(ctx)
	if err != nil {
		return fmt.Errorf("failed to get minio endpoint: %w", err)
	}

	tc.StorageConfig = config.StorageConfig{
		Endpoint:        endpoint,
		AccessKeyID:     username,
		SecretAccessKey: password,
		BucketName:      testBucket,
		Region:          "us-east-1",
		MaxUploadSize:   10 << 20,
		ThumbnailSize:   320,
		URLExpiry:       time.Hour,
	}

	client, err := storage.NewMinIOClient(ctx, tc.StorageConfig)
	if err != nil {
		return err
	}
	tc.MinioClient = client

	svc, err := storage.NewService(client, tc.StorageConfig)
	if err != nil {
		return err
	}
	tc.StorageService = svc
	return nil
}

// setupRedis runs Valkey through the redis module; the wire protocol is the same
func (tc *TestContainers) setupRedis(ctx context.Context) error {
	redisContainer, err := redisModule.Run(ctx,
		"valkey/valkey:7-alpine",
		redisModule.WithLogLevel(redisModule.LogLevelVerbose),
	)
	if redisContainer != nil {
		tc.RedisContainer = redisContainer
	}
	if err != nil {
		return fmt.Errorf("failed to start valkey container: %w", err)
	}

	endpoint, err := redisContainer.Endpoint(ctx, "")
	if err != nil {
		return fmt.Errorf("failed to get valkey endpoint: %w", err)
	}

	tc.CacheConfig = config.CacheConfig{
		Enabled:     true,
		Address:     endpoint,
		DefaultTTL:  time.Hour,
		DialTimeout: 5 * time.Second,
		PoolSize:    5,
	}

	client, err := cache.NewRedisClient(ctx, tc.CacheConfig)
	if err != nil {
		return err
	}
	tc.RedisClient = client
	return nil
}

// Cleanup closes every connection and terminates the containers
func (tc *TestContainers) Cleanup(ctx context.Context) error {
	var errs []error

	if tc.DB != nil {
		if err := tc.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		}
	}
	if tc.RedisClient != nil {
		if err := tc.RedisClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close valkey client: %w", err))
		}
	}

	for name, c := range map[string]testcontainers.Container{
		"postgres": tc.PostgresContainer,
		"minio":    tc.MinioContainer,
		"valkey":   tc.RedisContainer,
	} {
		if c == nil {
			continue
		}
		if err := c.Terminate(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to terminate %s container: %w", name, err))
		}
	}

	return errors.Join(errs...)
}

// ResetDatabase empties the library tables, keeping the schema
func (tc *TestContainers) ResetDatabase(ctx context.Context) error {
	_, err := tc.DB.ExecContext(ctx, "TRUNCATE images, folders, owner_preferences")
	if err != nil {
		return fmt.Errorf("failed to reset database: %w", err)
	}
	return nil
}

// CleanBucket removes every object from the test bucket
func (tc *TestContainers) CleanBucket(ctx context.Context) error {
	objects := tc.MinioClient.ListObjects(ctx, tc.StorageConfig.BucketName, minio.ListObjectsOptions{Recursive: true})
	for result := range tc.MinioClient.RemoveObjects(ctx, tc.StorageConfig.BucketName, objects, minio.RemoveObjectsOptions{}) {
		if result.Err != nil {
			return fmt.Errorf("failed to remove %s: %w", result.ObjectName, result.Err)
		}
	}
	return nil
}

// ObjectCount returns how many objects are stored under prefix
func (tc *TestContainers) ObjectCount(ctx context.Context, prefix string) (int, error) {
	n := 0
	for obj := range tc.MinioClient.ListObjects(ctx, tc.StorageConfig.BucketName, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return 0, obj.Err
		}
		n++
	}
	return n, nil
}

// FlushRedis clears all cached entries
func (tc *TestContainers) FlushRedis(ctx context.Context) error {
	if tc.RedisClient == nil {
		return errors.New("valkey client not available")
	}
	return tc.RedisClient.FlushCache(ctx)
}

// Reset clears the database, the bucket and the cache between tests
func (tc *TestContainers) Reset(ctx context.Context) error {
	return errors.Join(tc.ResetDatabase(ctx), tc.CleanBucket(ctx), tc.FlushRedis(ctx))
}
