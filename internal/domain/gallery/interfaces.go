package gallery

import (
	"context"
	"io"
)

// FolderRepository persists folders. Every lookup is scoped to an owner, so
// another owner's folder is indistinguishable from a missing one.
type FolderRepository interface {
	Create(ctx context.Context, folder *Folder) error

	GetByID(ctx context.Context, ownerID, id string) (*Folder, error)

	// ListByOwner returns the owner's folders ordered by title, with image counts
	ListByOwner(ctx context.Context, ownerID string) ([]*Folder, error)

	Update(ctx context.Context, folder *Folder) error

	// Delete removes the folder and detaches its images in one transaction
	Delete(ctx context.Context, ownerID, id string) (detached int64, err error)
}

// ImageRepository persists image metadata
type ImageRepository interface {
	Create(ctx context.Context, image *Image) error

	// GetByID is not owner scoped; callers decide visibility
	GetByID(ctx context.Context, id string) (*Image, error)

	List(ctx context.Context, req *ListImagesRequest) ([]*Image, error)

	Update(ctx context.Context, image *Image) error

	Delete(ctx context.Context, ownerID, id string) (*Image, error)

	// DeleteMany removes every listed image or none of them and returns the
	// deleted rows so their objects can be cleaned up.
	DeleteMany(ctx context.Context, ownerID string, ids []string) ([]*Image, error)

	// MoveMany files every listed image under folderID (nil for none) or
	// changes nothing.
	MoveMany(ctx context.Context, ownerID string, ids []string, folderID *string) (int64, error)
}

// PreferenceRepository persists owner preferences
type PreferenceRepository interface {
	// Get returns DefaultPreferences when the owner has never saved any
	Get(ctx context.Context, ownerID string) (*Preferences, error)

	SetHidePrivateImages(ctx context.Context, ownerID string, hide bool) (*Preferences, error)
}

// StorageService defines the interface for object storage operations
type StorageService interface {
	// Store saves data under name; size lets the client stream without buffering
	Store(ctx context.Context, name string, contentType string, data io.Reader, size int64) (string, error)

	Retrieve(ctx context.Context, path string) (io.ReadCloser, error)

	Delete(ctx context.Context, path string) error

	Exists(ctx context.Context, path string) (bool, error)

	// GenerateURL creates a presigned GET URL valid for expiry seconds
	GenerateURL(ctx context.Context, path string, expiry int64) (string, error)
}

// ImageInfo is metadata decoded from image bytes
type ImageInfo struct {
	Width  int
	Height int
	Format string
}

// ImageProcessor inspects and thumbnails images
type ImageProcessor interface {
	GetImageInfo(ctx context.Context, data io.Reader) (*ImageInfo, error)

	// GenerateThumbnail returns a JPEG bounded by maxWidth x maxHeight
	GenerateThumbnail(ctx context.Context, data io.Reader, maxWidth, maxHeight int) (io.Reader, error)
}

// CacheService caches per-owner read models. Lookups report ErrCacheMiss on
// a miss and ErrCacheUnavailable when no cache is configured.
type CacheService interface {
	GetFolders(ctx context.Context, ownerID string) ([]*Folder, error)
	SetFolders(ctx context.Context, ownerID string, folders []*Folder) error

	GetImages(ctx context.Context, req *ListImagesRequest) ([]*Image, error)
	SetImages(ctx context.Context, req *ListImagesRequest, images []*Image) error

	GetPreferences(ctx context.Context, ownerID string) (*Preferences, error)
	SetPreferences(ctx context.Context, prefs *Preferences) error

	// InvalidateOwner drops every cached list belonging to ownerID
	InvalidateOwner(ctx context.Context, ownerID string) error
}

// EventPublisher publishes domain events
type EventPublisher interface {
	Publish(ctx context.Context, event *Event) error
}

// ValidationService checks requests against struct rules and domain rules
type ValidationService interface {
	ValidateCreateFolder(ctx context.Context, req *CreateFolderRequest) error
	ValidateUpdateFolder(ctx context.Context, req *UpdateFolderRequest) error
	ValidateUpload(ctx context.Context, req *UploadImageRequest) error
	ValidateUpdateImage(ctx context.Context, req *UpdateImageRequest) error
	ValidateMove(ctx context.Context, req *MoveImagesRequest) error
	ValidateDelete(ctx context.Context, req *DeleteImagesRequest) error
}

// FolderService backs the folder procedures
type FolderService interface {
	ListFolders(ctx context.Context, ownerID string) ([]*Folder, error)
	CreateFolder(ctx context.Context, req *CreateFolderRequest) (*Folder, error)
	UpdateFolder(ctx context.Context, req *UpdateFolderRequest) (*Folder, error)
	DeleteFolder(ctx context.Context, ownerID, id string) error
}

// ImageService backs the image procedures
type ImageService interface {
	UploadImage(ctx context.Context, req *UploadImageRequest, data io.Reader) (*Image, error)

	// ListImages applies the owner's hide-private preference
	ListImages(ctx context.Context, req *ListImagesRequest) ([]*Image, error)

	// OpenImage streams the original (or thumbnail) if viewerID may see it
	OpenImage(ctx context.Context, viewerID, id string, thumbnail bool) (io.ReadCloser, *Image, error)

	// ImageURL returns a presigned link to the stored object. A thumbnail
	// request falls back to the original when no thumbnail object exists.
	ImageURL(ctx context.Context, viewerID, id string, thumbnail bool) (string, error)

	UpdateImage(ctx context.Context, req *UpdateImageRequest) (*Image, error)
	DeleteImage(ctx context.Context, ownerID, id string) error
	DeleteImages(ctx context.Context, req *DeleteImagesRequest) (int, error)
	MoveImages(ctx context.Context, req *MoveImagesRequest) (int, error)
}

// PreferenceService backs the hide-private procedures
type PreferenceService interface {
	HidePrivateImages(ctx context.Context, ownerID string) (bool, error)
	ToggleHidePrivateImages(ctx context.Context, req *TogglePrivateRequest) (bool, error)
}
