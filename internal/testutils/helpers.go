package testutils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math/rand/v2"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"time"

	"github.com/google/uuid"

	"image-library/internal/config"
	"image-library/internal/domain/gallery"
	"image-library/internal/observability"
	"image-library/internal/platform/database"
	"image-library/internal/services"
)

// TestSuite bundles the containers with repositories and a fully wired
// services container
type TestSuite struct {
	Containers  *TestContainers
	Folders     gallery.FolderRepository
	Images      gallery.ImageRepository
	Preferences gallery.PreferenceRepository
	Services    *services.Container
}

// SetupTestSuite starts the containers and wires the application on top of them
func SetupTestSuite(ctx context.Context) (*TestSuite, error) {
	containers, err := SetupTestContainers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to setup test containers: %w", err)
	}

	cfg := &config.Config{
		Environment: "test",
		DatabaseURL: containers.DatabaseURL,
		Storage:     containers.StorageConfig,
		Cache:       containers.CacheConfig,
		Session:     config.SessionConfig{TrustUserHeader: true},
	}

	container, err := services.NewContainer(cfg, containers.DB, containers.StorageService, containers.RedisClient, observability.NopLogger())
	if err != nil {
		_ = containers.Cleanup(ctx)
		return nil, fmt.Errorf("failed to create services container: %w", err)
	}

	return &TestSuite{
		Containers:  containers,
		Folders:     database.NewFolderRepository(containers.DB),
		Images:      database.NewImageRepository(containers.DB),
		Preferences: database.NewPreferenceRepository(containers.DB),
		Services:    container,
	}, nil
}

// Cleanup cleans up all test resources
func (ts *TestSuite) Cleanup(ctx context.Context) error {
	return ts.Containers.Cleanup(ctx)
}

// ResetData clears rows, objects and cache entries
func (ts *TestSuite) ResetData(ctx context.Context) error {
	return ts.Containers.Reset(ctx)
}

// CreateTestFolder inserts a folder directly through the repository
func (ts *TestSuite) CreateTestFolder(ctx context.Context, ownerID, title string) (*gallery.Folder, error) {
	folder := &gallery.Folder{
		ID:      uuid.NewString(),
		OwnerID: ownerID,
		Title:   title,
	}
	if err := ts.Folders.Create(ctx, folder); err != nil {
		return nil, fmt.Errorf("failed to create test folder: %w", err)
	}
	return folder, nil
}

// CreateTestImage inserts image metadata without storing any bytes
func (ts *TestSuite) CreateTestImage(ctx context.Context, ownerID string, folderID *string, isPublic bool) (*gallery.Image, error) {
	id := uuid.NewString()
	img := &gallery.Image{
		ID:           id,
		OwnerID:      ownerID,
		FolderID:     folderID,
		Filename:     fmt.Sprintf("test_%s.png", RandomString(6)),
		ContentType:  "image/png",
		FileSize:     1024 + rand.Int64N(100*1024),
		StoragePath:  gallery.ObjectName(ownerID, id, ".png"),
		Title:        "test image",
		IsPublic:     isPublic,
		LastModified: time.Now().UTC().Truncate(time.Millisecond),
	}
	if err := ts.Images.Create(ctx, img); err != nil {
		return nil, fmt.Errorf("failed to create test image: %w", err)
	}
	return img, nil
}

// UploadTestImage uploads a generated PNG through the image service
func (ts *TestSuite) UploadTestImage(ctx context.Context, ownerID string, folderID *string, isPublic bool) (*gallery.Image, error) {
	data := GeneratePNG(64, 48)
	return ts.Services.ImageService().UploadImage(ctx, &gallery.UploadImageRequest{
		OwnerID:      ownerID,
		Filename:     "upload.png",
		ContentType:  "image/png",
		FileSize:     int64(len(data)),
		LastModified: time.Now().UTC(),
		IsPublic:     isPublic,
		FolderID:     folderID,
	}, bytes.NewReader(data))
}

// GeneratePNG encodes a width x height gradient as PNG
func GeneratePNG(width, height int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// CreateMultipartFormData builds an upload body with the file under "file"
func CreateMultipartFormData(filename, contentType string, data []byte, fields map[string]string) ([]byte, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(data); err != nil {
		return nil, "", err
	}

	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			return nil, "", err
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), writer.FormDataContentType(), nil
}

// MakeJSONRequest creates an HTTP test request with a JSON body
func MakeJSONRequest(method, url string, payload any) *http.Request {
	var body io.Reader
	if payload != nil {
		jsonData, _ := json.Marshal(payload)
		body = bytes.NewReader(jsonData)
	}

	req := httptest.NewRequest(method, url, body)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// RandomOwner returns a fresh anonymous owner id
func RandomOwner() string {
	return gallery.AnonymousPrefix + uuid.NewString()
}

// RandomUser returns a fresh authenticated owner id
func RandomUser() string {
	return "user_" + RandomString(10)
}

// RandomString generates a random alphanumeric string of the given length
func RandomString(length int) string {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	b := make([]byte, length)
	for i := range b {
		b[i] = charset[rand.IntN(len(charset))]
	}
	return string(b)
}
