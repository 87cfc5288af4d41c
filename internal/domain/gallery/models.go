// Package gallery holds the image library domain: images, folders, per-owner
// preferences, the requests that mutate them and the contracts the platform
// layer implements.
package gallery

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"
)

// Image is an uploaded picture owned by a user or an anonymous session
type Image struct {
	ID            string    `json:"id" db:"id"`
	OwnerID       string    `json:"ownerId" db:"owner_id"`
	FolderID      *string   `json:"folderId" db:"folder_id"`
	Filename      string    `json:"filename" db:"filename"`
	ContentType   string    `json:"contentType" db:"content_type"`
	FileSize      int64     `json:"size" db:"file_size"`
	StoragePath   string    `json:"-" db:"storage_path"`
	ThumbnailPath *string   `json:"-" db:"thumbnail_path"`
	Width         *int      `json:"width,omitempty" db:"width"`
	Height        *int      `json:"height,omitempty" db:"height"`
	Title         string    `json:"title" db:"title"`
	Description   string    `json:"description" db:"description"`
	IsPublic      bool      `json:"isPublic" db:"is_public"`
	LastModified  time.Time `json:"lastModified" db:"last_modified"`
	CreatedAt     time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time `json:"updatedAt" db:"updated_at"`
}

// Folder groups images of a single owner
type Folder struct {
	ID          string    `json:"id" db:"id"`
	OwnerID     string    `json:"ownerId" db:"owner_id"`
	Title       string    `json:"title" db:"title"`
	Description *string   `json:"description" db:"description"`
	ImageCount  int       `json:"imageCount" db:"image_count"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
}

// Preferences are per-owner display settings
type Preferences struct {
	OwnerID           string    `json:"ownerId" db:"owner_id"`
	HidePrivateImages bool      `json:"hidePrivateImages" db:"hide_private_images"`
	UpdatedAt         time.Time `json:"updatedAt" db:"updated_at"`
}

// DefaultPreferences is what an owner gets before ever toggling anything
func DefaultPreferences(ownerID string) *Preferences {
	return &Preferences{OwnerID: ownerID, HidePrivateImages: true}
}

// CreateFolderRequest creates a folder for OwnerID
type CreateFolderRequest struct {
	OwnerID     string  `json:"-" validate:"required,max=191"`
	Title       string  `json:"title" validate:"required,max=100"`
	Description *string `json:"description" validate:"omitempty,max=500"`
}

// UpdateFolderRequest renames or re-describes a folder
type UpdateFolderRequest struct {
	ID          string  `json:"-" validate:"required"`
	OwnerID     string  `json:"-" validate:"required,max=191"`
	Title       string  `json:"title" validate:"required,max=100"`
	Description *string `json:"description" validate:"omitempty,max=500"`
}

// UploadImageRequest describes an image being uploaded. The file content
// travels separately as an io.Reader.
type UploadImageRequest struct {
	OwnerID      string    `json:"-" validate:"required,max=191"`
	Filename     string    `json:"filename" validate:"required,max=255"`
	ContentType  string    `json:"contentType" validate:"required"`
	FileSize     int64     `json:"size" validate:"required,min=1"`
	LastModified time.Time `json:"lastModified"`
	Title        string    `json:"title" validate:"max=200"`
	Description  string    `json:"description" validate:"max=2000"`
	IsPublic     bool      `json:"isPublic"`
	FolderID     *string   `json:"folderId"`
}

// UpdateImageRequest edits image metadata. Nil fields are left untouched.
type UpdateImageRequest struct {
	ID          string  `json:"-" validate:"required"`
	OwnerID     string  `json:"-" validate:"required,max=191"`
	Title       *string `json:"title" validate:"omitempty,max=200"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
	IsPublic    *bool   `json:"isPublic"`
}

// MoveImagesRequest moves a selection into FolderID, or out of any folder when
// FolderID is nil.
type MoveImagesRequest struct {
	OwnerID  string   `json:"-" validate:"required,max=191"`
	ImageIDs []string `json:"imageIds" validate:"required,min=1,max=500,dive,required"`
	FolderID *string  `json:"folderId"`
}

// DeleteImagesRequest deletes a selection of images
type DeleteImagesRequest struct {
	OwnerID  string   `json:"-" validate:"required,max=191"`
	ImageIDs []string `json:"imageIds" validate:"required,min=1,max=500,dive,required"`
}

// ListImagesRequest filters an owner's images. FolderID restricts to one
// folder, Unfiled to images outside any folder. IncludePrivate is resolved
// from the owner's preferences by the service layer.
type ListImagesRequest struct {
	OwnerID        string
	FolderID       *string
	Unfiled        bool
	IncludePrivate bool
}

// TogglePrivateRequest sets the hide-private-images preference
type TogglePrivateRequest struct {
	OwnerID  string `json:"-" validate:"required,max=191"`
	NewValue bool   `json:"newValue"`
}

// Constants for validation
const (
	AnonymousPrefix     = "anon_"
	MaxOwnerIDLen       = 191
	MaxFolderTitleLen   = 100
	MaxFolderDescLen    = 500
	MaxFilenameLen      = 255
	MaxSelectionSize    = 500
	UnfiledFolderFilter = "none"
)

// SupportedContentTypes are the image formats accepted for upload
var SupportedContentTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// IsAnonymousOwner reports whether ownerID was issued to an anonymous session
func IsAnonymousOwner(ownerID string) bool {
	return strings.HasPrefix(ownerID, AnonymousPrefix)
}

// ValidateOwner checks an owner identifier
func ValidateOwner(ownerID string) error {
	if strings.TrimSpace(ownerID) == "" {
		return fmt.Errorf("%w: owner cannot be empty", ErrInvalidOwner)
	}
	if len(ownerID) > MaxOwnerIDLen {
		return fmt.Errorf("%w: owner id too long (max %d characters)", ErrInvalidOwner, MaxOwnerIDLen)
	}
	return nil
}

// NormalizeFolderTitle trims title and checks its length
func NormalizeFolderTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", fmt.Errorf("%w: title cannot be empty", ErrInvalidTitle)
	}
	if utf8.RuneCountInString(title) > MaxFolderTitleLen {
		return "", fmt.Errorf("%w: title too long (max %d characters)", ErrInvalidTitle, MaxFolderTitleLen)
	}
	return title, nil
}

// NormalizeFolderDescription trims the description; blank becomes nil
func NormalizeFolderDescription(desc *string) (*string, error) {
	if desc == nil {
		return nil, nil
	}
	trimmed := strings.TrimSpace(*desc)
	if trimmed == "" {
		return nil, nil
	}
	if utf8.RuneCountInString(trimmed) > MaxFolderDescLen {
		return nil, fmt.Errorf("%w: description too long (max %d characters)", ErrInvalidDescription, MaxFolderDescLen)
	}
	return &trimmed, nil
}

// NormalizeSelection drops blanks and duplicates while keeping order, then
// checks the selection size.
func NormalizeSelection(ids []string) ([]string, error) {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no images selected", ErrInvalidSelection)
	}
	if len(out) > MaxSelectionSize {
		return nil, fmt.Errorf("%w: too many images selected (max %d)", ErrInvalidSelection, MaxSelectionSize)
	}
	return out, nil
}

// Validate checks the upload metadata before any bytes are stored
func (r *UploadImageRequest) Validate(maxSize int64) error {
	if err := ValidateOwner(r.OwnerID); err != nil {
		return err
	}
	if strings.TrimSpace(r.Filename) == "" || len(r.Filename) > MaxFilenameLen || !utf8.ValidString(r.Filename) {
		return fmt.Errorf("%w: filename must be valid UTF-8 of 1-%d bytes", ErrInvalidFilename, MaxFilenameLen)
	}
	if !SupportedContentTypes[strings.ToLower(r.ContentType)] {
		return fmt.Errorf("%w: unsupported content type %s", ErrInvalidContentType, r.ContentType)
	}
	if r.FileSize < 1 {
		return fmt.Errorf("%w: file is empty", ErrInvalidFileSize)
	}
	if maxSize > 0 && r.FileSize > maxSize {
		return fmt.Errorf("%w: file size too large (max %d bytes)", ErrInvalidFileSize, maxSize)
	}
	return nil
}

// ApplyOwnerRules forces anonymous uploads public and fills the title from
// the filename when none was given.
func (r *UploadImageRequest) ApplyOwnerRules() {
	if IsAnonymousOwner(r.OwnerID) {
		r.IsPublic = true
	}
	r.Title = strings.TrimSpace(r.Title)
	if r.Title == "" {
		r.Title = strings.TrimSuffix(filepath.Base(r.Filename), filepath.Ext(r.Filename))
	}
	r.Description = strings.TrimSpace(r.Description)
	if r.FolderID != nil && strings.TrimSpace(*r.FolderID) == "" {
		r.FolderID = nil
	}
}

// ObjectName returns the storage key for an image: one prefix per owner
func ObjectName(ownerID, imageID, filename string) string {
	return fmt.Sprintf("%s/%s%s", ownerID, imageID, strings.ToLower(filepath.Ext(filename)))
}

// ThumbnailObjectName returns the storage key of an image's thumbnail
func ThumbnailObjectName(ownerID, imageID string) string {
	return fmt.Sprintf("%s/thumbnails/%s.jpg", ownerID, imageID)
}

// InFolder reports whether the image is filed under folderID
func (i *Image) InFolder(folderID string) bool {
	return i.FolderID != nil && *i.FolderID == folderID
}

// VisibleTo reports whether viewerID may see the image
func (i *Image) VisibleTo(viewerID string) bool {
	return i.IsPublic || i.OwnerID == viewerID
}

// Extension returns the lowercased file extension of the original filename
func (i *Image) Extension() string {
	return strings.ToLower(filepath.Ext(i.Filename))
}
