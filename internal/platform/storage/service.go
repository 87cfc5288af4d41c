package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"

	"image-library/internal/config"
	"image-library/internal/domain/gallery"
)

const (
	defaultURLExpiry = time.Hour
	sniffLen         = 512
	noSuchKey        = "NoSuchKey"
)

var errEmptyPath = errors.New("path cannot be empty")

// Service implements gallery.StorageService on top of a MinIO bucket
type Service struct {
	client     *minio.Client
	bucketName string
	urlExpiry  time.Duration
}

// NewService wraps an already connected client
func NewService(client *minio.Client, cfg config.StorageConfig) (*Service, error) {
	if client == nil {
		return nil, errors.New("minio client cannot be nil")
	}
	if cfg.BucketName == "" {
		return nil, errors.New("bucket name cannot be empty")
	}

	expiry := cfg.URLExpiry
	if expiry <= 0 {
		expiry = defaultURLExpiry
	}

	return &Service{
		client:     client,
		bucketName: cfg.BucketName,
		urlExpiry:  expiry,
	}, nil
}

// Store uploads data under name after checking that the bytes match the
// declared content type. size may be -1 when unknown.
func (s *Service) Store(ctx context.Context, name string, contentType string, data io.Reader, size int64) (string, error) {
	if err := validateObjectName(name); err != nil {
		return "", err
	}
	if data == nil {
		return "", errors.New("data cannot be nil")
	}

	contentType = strings.ToLower(contentType)
	if !gallery.SupportedContentTypes[contentType] {
		return "", fmt.Errorf("%w: %s", gallery.ErrInvalidContentType, contentType)
	}

	body, err := sniffContent(data, contentType)
	if err != nil {
		return "", err
	}

	info, err := s.client.PutObject(ctx, s.bucketName, name, body, size, minio.PutObjectOptions{
		ContentType: contentType,
		UserMetadata: map[string]string{
			"upload-time": time.Now().UTC().Format(time.RFC3339),
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload object: %w", err)
	}

	if info.Size == 0 {
		_ = s.client.RemoveObject(ctx, s.bucketName, name, minio.RemoveObjectOptions{})
		return "", fmt.Errorf("%w: uploaded object is empty", gallery.ErrInvalidFileSize)
	}

	return name, nil
}

// Retrieve opens an object for reading. A missing object reports
// gallery.ErrImageNotFound.
func (s *Service) Retrieve(ctx context.Context, path string) (io.ReadCloser, error) {
	if path == "" {
		return nil, errEmptyPath
	}

	obj, err := s.client.GetObject(ctx, s.bucketName, path, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get object: %w", err)
	}

	// GetObject is lazy; Stat surfaces a missing key before the caller starts streaming
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		if minio.ToErrorResponse(err).Code == noSuchKey {
			return nil, fmt.Errorf("%w: object %s", gallery.ErrImageNotFound, path)
		}
		return nil, fmt.Errorf("failed to stat object: %w", err)
	}

	return obj, nil
}

// Delete removes an object. Removing a missing object is not an error.
func (s *Service) Delete(ctx context.Context, path string) error {
	if path == "" {
		return errEmptyPath
	}

	if err := s.client.RemoveObject(ctx, s.bucketName, path, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}

	return nil
}

// Exists reports whether an object is stored under path
func (s *Service) Exists(ctx context.Context, path string) (bool, error) {
	if path == "" {
		return false, errEmptyPath
	}

	_, err := s.client.StatObject(ctx, s.bucketName, path, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == noSuchKey {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat object: %w", err)
	}

	return true, nil
}

// GenerateURL returns a presigned GET URL. A non-positive expiry uses the
// configured default.
func (s *Service) GenerateURL(ctx context.Context, path string, expiry int64) (string, error) {
	if path == "" {
		return "", errEmptyPath
	}

	duration := s.urlExpiry
	if expiry > 0 {
		duration = time.Duration(expiry) * time.Second
	}

	u, err := s.client.PresignedGetObject(ctx, s.bucketName, path, duration, nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}

	return u.String(), nil
}

// Health checks that the bucket is reachable
func (s *Service) Health(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucketName)
	if err != nil {
		return fmt.Errorf("storage unreachable: %w", err)
	}
	if !exists {
		return fmt.Errorf("bucket %s does not exist", s.bucketName)
	}
	return nil
}

func validateObjectName(name string) error {
	switch {
	case name == "":
		return errEmptyPath
	case strings.Contains(name, ".."):
		return fmt.Errorf("%w: path traversal in %q", gallery.ErrInvalidFilename, name)
	case strings.HasPrefix(name, "/"), strings.HasPrefix(name, "\\"):
		return fmt.Errorf("%w: absolute path %q", gallery.ErrInvalidFilename, name)
	case strings.ContainsRune(name, 0):
		return fmt.Errorf("%w: null byte in name", gallery.ErrInvalidFilename)
	case len(name) > 1024:
		return fmt.Errorf("%w: name too long", gallery.ErrInvalidFilename)
	}
	return nil
}

// sniffContent reads the file header, checks it against contentType and
// returns a reader that replays the header.
func sniffContent(data io.Reader, contentType string) (io.Reader, error) {
	header := make([]byte, sniffLen)
	n, err := io.ReadFull(data, header)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, fmt.Errorf("failed to read file header: %w", err)
	}
	header = header[:n]

	if err := matchMagic(header, contentType); err != nil {
		return nil, err
	}

	return io.MultiReader(bytes.NewReader(header), data), nil
}

var magicNumbers = map[string][][]byte{
	"image/jpeg": {{0xFF, 0xD8, 0xFF}},
	"image/jpg":  {{0xFF, 0xD8, 0xFF}},
	"image/png":  {{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}},
	"image/gif":  {[]byte("GIF87a"), []byte("GIF89a")},
	"image/webp": {[]byte("RIFF")},
}

func matchMagic(header []byte, contentType string) error {
	if len(header) < 4 {
		return fmt.Errorf("%w: file too small to identify", gallery.ErrInvalidContentType)
	}

	for _, sig := range magicNumbers[contentType] {
		if !bytes.HasPrefix(header, sig) {
			continue
		}
		if contentType == "image/webp" && (len(header) < 12 || string(header[8:12]) != "WEBP") {
			continue
		}
		return nil
	}

	return fmt.Errorf("%w: content does not match %s", gallery.ErrInvalidContentType, contentType)
}
