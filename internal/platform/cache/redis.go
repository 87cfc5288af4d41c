// Package cache keeps per-owner read models (folder lists, image lists and
// preferences) in Redis or Valkey.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"image-library/internal/config"
	"image-library/internal/domain/gallery"
)

const keyPrefix = "library"

// RedisClient implements gallery.CacheService. Works with Redis and Valkey.
type RedisClient struct {
	client     *redis.Client
	defaultTTL time.Duration
}

// NewRedisClient connects using cfg and pings the server
func NewRedisClient(ctx context.Context, cfg config.CacheConfig) (*RedisClient, error) {
	if !cfg.Enabled {
		return nil, errors.New("cache is disabled")
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:            cfg.Address,
		Password:        cfg.Password,
		DB:              cfg.Database,
		MaxRetries:      cfg.MaxRetries,
		MinRetryBackoff: cfg.MinRetryBackoff,
		MaxRetryBackoff: cfg.MaxRetryBackoff,
		DialTimeout:     cfg.DialTimeout,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		PoolSize:        cfg.PoolSize,
		MinIdleConns:    cfg.MinIdleConns,
		PoolTimeout:     cfg.PoolTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis/Valkey: %w", err)
	}

	return NewRedisClientFromClient(rdb, cfg.DefaultTTL), nil
}

// NewRedisClientFromClient wraps an existing go-redis client
func NewRedisClientFromClient(rdb *redis.Client, defaultTTL time.Duration) *RedisClient {
	if defaultTTL <= 0 {
		defaultTTL = 5 * time.Minute
	}
	return &RedisClient{client: rdb, defaultTTL: defaultTTL}
}

func ownerKey(ownerID string, parts ...string) string {
	return strings.Join(append([]string{keyPrefix, ownerID}, parts...), ":")
}

func foldersKey(ownerID string) string {
	return ownerKey(ownerID, "folders")
}

func preferencesKey(ownerID string) string {
	return ownerKey(ownerID, "prefs")
}

// imagesKey identifies one filtered listing of an owner's images
func imagesKey(req *gallery.ListImagesRequest) string {
	filter := "all"
	switch {
	case req.FolderID != nil:
		filter = "folder=" + *req.FolderID
	case req.Unfiled:
		filter = "unfiled"
	}
	visibility := "public"
	if req.IncludePrivate {
		visibility = "private"
	}
	return ownerKey(req.OwnerID, "images", filter, visibility)
}

// escapeGlob quotes the characters SCAN MATCH treats specially
func escapeGlob(s string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)
	return replacer.Replace(s)
}

func (r *RedisClient) get(ctx context.Context, key string, result interface{}) error {
	val, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return gallery.ErrCacheMiss
	}
	if err != nil {
		return fmt.Errorf("failed to read %s from cache: %w", key, err)
	}
	if err := json.Unmarshal(val, result); err != nil {
		return fmt.Errorf("failed to unmarshal cached %s: %w", key, err)
	}
	return nil
}

func (r *RedisClient) set(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	if err := r.client.Set(ctx, key, data, r.defaultTTL).Err(); err != nil {
		return fmt.Errorf("failed to cache %s: %w", key, err)
	}
	return nil
}

func (r *RedisClient) GetFolders(ctx context.Context, ownerID string) ([]*gallery.Folder, error) {
	var folders []*gallery.Folder
	if err := r.get(ctx, foldersKey(ownerID), &folders); err != nil {
		return nil, err
	}
	return folders, nil
}

func (r *RedisClient) SetFolders(ctx context.Context, ownerID string, folders []*gallery.Folder) error {
	return r.set(ctx, foldersKey(ownerID), folders)
}

// imageRecord carries the storage fields the API encoding hides
type imageRecord struct {
	*gallery.Image
	StoragePath   string  `json:"storagePath"`
	ThumbnailPath *string `json:"thumbnailPath"`
}

func (r *RedisClient) GetImages(ctx context.Context, req *gallery.ListImagesRequest) ([]*gallery.Image, error) {
	var records []imageRecord
	if err := r.get(ctx, imagesKey(req), &records); err != nil {
		return nil, err
	}

	images := make([]*gallery.Image, 0, len(records))
	for _, rec := range records {
		if rec.Image == nil {
			continue
		}
		rec.Image.StoragePath = rec.StoragePath
		rec.Image.ThumbnailPath = rec.ThumbnailPath
		images = append(images, rec.Image)
	}
	return images, nil
}

func (r *RedisClient) SetImages(ctx context.Context, req *gallery.ListImagesRequest, images []*gallery.Image) error {
	records := make([]imageRecord, 0, len(images))
	for _, img := range images {
		records = append(records, imageRecord{
			Image:         img,
			StoragePath:   img.StoragePath,
			ThumbnailPath: img.ThumbnailPath,
		})
	}
	return r.set(ctx, imagesKey(req), records)
}

func (r *RedisClient) GetPreferences(ctx context.Context, ownerID string) (*gallery.Preferences, error) {
	var prefs gallery.Preferences
	if err := r.get(ctx, preferencesKey(ownerID), &prefs); err != nil {
		return nil, err
	}
	return &prefs, nil
}

func (r *RedisClient) SetPreferences(ctx context.Context, prefs *gallery.Preferences) error {
	return r.set(ctx, preferencesKey(prefs.OwnerID), prefs)
}

// InvalidateOwner deletes every key under the owner's prefix. SCAN keeps the
// server responsive where KEYS would block it.
func (r *RedisClient) InvalidateOwner(ctx context.Context, ownerID string) error {
	pattern := escapeGlob(ownerKey(ownerID)) + ":*"

	var batch []string
	iter := r.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == 100 {
			if err := r.client.Del(ctx, batch...).Err(); err != nil {
				return fmt.Errorf("failed to invalidate cache for %s: %w", ownerID, err)
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan cache keys: %w", err)
	}

	if len(batch) > 0 {
		if err := r.client.Del(ctx, batch...).Err(); err != nil {
			return fmt.Errorf("failed to invalidate cache for %s: %w", ownerID, err)
		}
	}
	return nil
}

// Health pings the server
func (r *RedisClient) Health(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("Redis/Valkey health check failed: %w", err)
	}
	return nil
}

// FlushCache clears the whole database. Test helper.
func (r *RedisClient) FlushCache(ctx context.Context) error {
	if err := r.client.FlushDB(ctx).Err(); err != nil {
		return fmt.Errorf("failed to flush cache: %w", err)
	}
	return nil
}

func (r *RedisClient) Close() error {
	return r.client.Close()
}
