package implementations

import (
	"context"

	"image-library/internal/domain/gallery"
)

// CacheService lets services use the cache without nil checks. With no
// backing client every lookup reports gallery.ErrCacheUnavailable and every
// write is a no-op.
type CacheService struct {
	client gallery.CacheService
}

// NewCacheService wraps client, which may be nil
func NewCacheService(client gallery.CacheService) *CacheService {
	return &CacheService{client: client}
}

// Enabled reports whether a backing cache is configured
func (c *CacheService) Enabled() bool {
	return c != nil && c.client != nil
}

func (c *CacheService) GetFolders(ctx context.Context, ownerID string) ([]*gallery.Folder, error) {
	if !c.Enabled() {
		return nil, gallery.ErrCacheUnavailable
	}
	return c.client.GetFolders(ctx, ownerID)
}

func (c *CacheService) SetFolders(ctx context.Context, ownerID string, folders []*gallery.Folder) error {
	if !c.Enabled() {
		return nil
	}
	return c.client.SetFolders(ctx, ownerID, folders)
}

func (c *CacheService) GetImages(ctx context.Context, req *gallery.ListImagesRequest) ([]*gallery.Image, error) {
	if !c.Enabled() {
		return nil, gallery.ErrCacheUnavailable
	}
	return c.client.GetImages(ctx, req)
}

func (c *CacheService) SetImages(ctx context.Context, req *gallery.ListImagesRequest, images []*gallery.Image) error {
	if !c.Enabled() {
		return nil
	}
	return c.client.SetImages(ctx, req, images)
}

func (c *CacheService) GetPreferences(ctx context.Context, ownerID string) (*gallery.Preferences, error) {
	if !c.Enabled() {
		return nil, gallery.ErrCacheUnavailable
	}
	return c.client.GetPreferences(ctx, ownerID)
}

func (c *CacheService) SetPreferences(ctx context.Context, prefs *gallery.Preferences) error {
	if !c.Enabled() {
		return nil
	}
	return c.client.SetPreferences(ctx, prefs)
}

func (c *CacheService) InvalidateOwner(ctx context.Context, ownerID string) error {
	if !c.Enabled() {
		return nil
	}
	return c.client.InvalidateOwner(ctx, ownerID)
}
