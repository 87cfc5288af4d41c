package implementations

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator"

	"image-library/internal/config"
	"image-library/internal/domain/gallery"
)

// fieldErrors maps request fields to the domain error reported when their
// struct tags fail.
var fieldErrors = map[string]error{
	"OwnerID":     gallery.ErrInvalidOwner,
	"Title":       gallery.ErrInvalidTitle,
	"Description": gallery.ErrInvalidDescription,
	"ImageIDs":    gallery.ErrInvalidSelection,
	"Filename":    gallery.ErrInvalidFilename,
	"ContentType": gallery.ErrInvalidContentType,
	"FileSize":    gallery.ErrInvalidFileSize,
}

// ValidationServiceImpl runs domain rules first, for precise messages, then
// the struct tags on a normalized copy of the request.
type ValidationServiceImpl struct {
	validate      *validator.Validate
	maxUploadSize int64
	allowedType   func(contentType string) bool
}

// NewValidationService creates a validator. maxUploadSize <= 0 disables the
// upload size limit.
func NewValidationService(maxUploadSize int64) gallery.ValidationService {
	return &ValidationServiceImpl{
		validate:      validator.New(),
		maxUploadSize: maxUploadSize,
	}
}

// NewStorageValidationService also restricts uploads to the configured
// storage types, on top of the formats the library can decode
func NewStorageValidationService(cfg config.StorageConfig) gallery.ValidationService {
	v := &ValidationServiceImpl{
		validate:      validator.New(),
		maxUploadSize: cfg.MaxUploadSize,
	}
	if len(cfg.AllowedTypes) > 0 {
		v.allowedType = cfg.IsAllowedType
	}
	return v
}

// ValidateCreateFolder checks owner, title and description
func (v *ValidationServiceImpl) ValidateCreateFolder(ctx context.Context, req *gallery.CreateFolderRequest) error {
	if req == nil {
		return fmt.Errorf("%w: create folder request cannot be nil", gallery.ErrInvalidRequest)
	}
	if err := gallery.ValidateOwner(req.OwnerID); err != nil {
		return err
	}

	normalized := *req
	title, desc, err := normalizeFolderFields(req.Title, req.Description)
	if err != nil {
		return err
	}
	normalized.Title, normalized.Description = title, desc

	return v.checkStruct(&normalized)
}

// ValidateUpdateFolder checks the target id plus the create rules
func (v *ValidationServiceImpl) ValidateUpdateFolder(ctx context.Context, req *gallery.UpdateFolderRequest) error {
	if req == nil {
		return fmt.Errorf("%w: update folder request cannot be nil", gallery.ErrInvalidRequest)
	}
	if err := gallery.ValidateOwner(req.OwnerID); err != nil {
		return err
	}
	if strings.TrimSpace(req.ID) == "" {
		return fmt.Errorf("%w: folder id is required", gallery.ErrFolderNotFound)
	}

	normalized := *req
	title, desc, err := normalizeFolderFields(req.Title, req.Description)
	if err != nil {
		return err
	}
	normalized.Title, normalized.Description = title, desc

	return v.checkStruct(&normalized)
}

// ValidateUpload checks upload metadata against size and type limits
func (v *ValidationServiceImpl) ValidateUpload(ctx context.Context, req *gallery.UploadImageRequest) error {
	if req == nil {
		return fmt.Errorf("%w: upload request cannot be nil", gallery.ErrInvalidRequest)
	}
	if err := req.Validate(v.maxUploadSize); err != nil {
		return err
	}
	if v.allowedType != nil && !v.allowedType(req.ContentType) {
		return fmt.Errorf("%w: %s uploads are disabled", gallery.ErrInvalidContentType, req.ContentType)
	}
	return v.checkStruct(req)
}

// ValidateUpdateImage checks an image metadata edit
func (v *ValidationServiceImpl) ValidateUpdateImage(ctx context.Context, req *gallery.UpdateImageRequest) error {
	if req == nil {
		return fmt.Errorf("%w: update image request cannot be nil", gallery.ErrInvalidRequest)
	}
	if err := gallery.ValidateOwner(req.OwnerID); err != nil {
		return err
	}
	if strings.TrimSpace(req.ID) == "" {
		return fmt.Errorf("%w: image id is required", gallery.ErrImageNotFound)
	}
	if req.Title == nil && req.Description == nil && req.IsPublic == nil {
		return fmt.Errorf("%w: nothing to update", gallery.ErrInvalidRequest)
	}
	if req.IsPublic != nil && !*req.IsPublic && gallery.IsAnonymousOwner(req.OwnerID) {
		return fmt.Errorf("%w: anonymous sessions cannot make images private", gallery.ErrForbidden)
	}
	return v.checkStruct(req)
}

// ValidateMove checks the selection and the destination
func (v *ValidationServiceImpl) ValidateMove(ctx context.Context, req *gallery.MoveImagesRequest) error {
	if req == nil {
		return fmt.Errorf("%w: move request cannot be nil", gallery.ErrInvalidRequest)
	}
	if err := gallery.ValidateOwner(req.OwnerID); err != nil {
		return err
	}
	if req.FolderID != nil && strings.TrimSpace(*req.FolderID) == "" {
		return fmt.Errorf("%w: folder id cannot be blank", gallery.ErrInvalidRequest)
	}

	ids, err := gallery.NormalizeSelection(req.ImageIDs)
	if err != nil {
		return err
	}
	normalized := *req
	normalized.ImageIDs = ids

	return v.checkStruct(&normalized)
}

// ValidateDelete checks a bulk delete selection
func (v *ValidationServiceImpl) ValidateDelete(ctx context.Context, req *gallery.DeleteImagesRequest) error {
	if req == nil {
		return fmt.Errorf("%w: delete request cannot be nil", gallery.ErrInvalidRequest)
	}
	if err := gallery.ValidateOwner(req.OwnerID); err != nil {
		return err
	}

	ids, err := gallery.NormalizeSelection(req.ImageIDs)
	if err != nil {
		return err
	}
	normalized := *req
	normalized.ImageIDs = ids

	return v.checkStruct(&normalized)
}

func normalizeFolderFields(title string, desc *string) (string, *string, error) {
	t, err := gallery.NormalizeFolderTitle(title)
	if err != nil {
		return "", nil, err
	}
	d, err := gallery.NormalizeFolderDescription(desc)
	if err != nil {
		return "", nil, err
	}
	return t, d, nil
}

func (v *ValidationServiceImpl) checkStruct(req interface{}) error {
	err := v.validate.Struct(req)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return fmt.Errorf("%w: %v", gallery.ErrInvalidRequest, err)
	}

	first := fieldErrs[0]
	field, _, _ := strings.Cut(first.Field(), "[")
	sentinel, ok := fieldErrors[field]
	if !ok {
		sentinel = gallery.ErrInvalidRequest
	}

	messages := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		messages = append(messages, fmt.Sprintf("%s failed on '%s'", fe.Field(), fe.Tag()))
	}

	return fmt.Errorf("%w: %s", sentinel, strings.Join(messages, "; "))
}
