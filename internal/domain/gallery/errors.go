package gallery

import "errors"

// Domain errors
var (
	ErrFolderNotFound     = errors.New("folder not found")
	ErrImageNotFound      = errors.New("image not found")
	ErrInvalidOwner       = errors.New("invalid owner")
	ErrInvalidTitle       = errors.New("invalid title")
	ErrInvalidDescription = errors.New("invalid description")
	ErrInvalidSelection   = errors.New("invalid selection")
	ErrInvalidFilename    = errors.New("invalid filename")
	ErrInvalidContentType = errors.New("invalid content type")
	ErrInvalidFileSize    = errors.New("invalid file size")
	ErrInvalidRequest     = errors.New("invalid request")
	ErrForbidden          = errors.New("forbidden")
	ErrCacheUnavailable   = errors.New("cache unavailable")
	ErrCacheMiss          = errors.New("cache miss")
)

// IsValidationError reports whether err stems from bad caller input
func IsValidationError(err error) bool {
	for _, target := range []error{
		ErrInvalidOwner,
		ErrInvalidTitle,
		ErrInvalidDescription,
		ErrInvalidSelection,
		ErrInvalidFilename,
		ErrInvalidContentType,
		ErrInvalidFileSize,
		ErrInvalidRequest,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsNotFound reports whether err means the folder or image does not exist
// for the caller.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrFolderNotFound) || errors.Is(err, ErrImageNotFound)
}
