package handlers

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"image-library/internal/config"
	"image-library/internal/domain/gallery"
	"image-library/internal/services"

	"github.com/stretchr/testify/mock"
)

const (
	testUser    = "user_42"
	testSession = "anon_0b6d6e4c-2f3f-4a8e-9d55-3f1f2a9b7c10"
)

type mockFolderService struct{ mock.Mock }

func (m *mockFolderService) ListFolders(ctx context.Context, ownerID string) ([]*gallery.Folder, error) {
	args := m.Called(ctx, ownerID)
	folders, _ := args.Get(0).([]*gallery.Folder)
	return folders, args.Error(1)
}

func (m *mockFolderService) CreateFolder(ctx context.Context, req *gallery.CreateFolderRequest) (*gallery.Folder, error) {
	args := m.Called(ctx, req)
	folder, _ := args.Get(0).(*gallery.Folder)
	return folder, args.Error(1)
}

func (m *mockFolderService) UpdateFolder(ctx context.Context, req *gallery.UpdateFolderRequest) (*gallery.Folder, error) {
	args := m.Called(ctx, req)
	folder, _ := args.Get(0).(*gallery.Folder)
	return folder, args.Error(1)
}

func (m *mockFolderService) DeleteFolder(ctx context.Context, ownerID, id string) error {
	return m.Called(ctx, ownerID, id).Error(0)
}

type mockImageService struct{ mock.Mock }

func (m *mockImageService) UploadImage(ctx context.Context, req *gallery.UploadImageRequest, data io.Reader) (*gallery.Image, error) {
	body, _ := io.ReadAll(data)
	args := m.Called(ctx, req, body)
	img, _ := args.Get(0).(*gallery.Image)
	return img, args.Error(1)
}

func (m *mockImageService) ListImages(ctx context.Context, req *gallery.ListImagesRequest) ([]*gallery.Image, error) {
	args := m.Called(ctx, req)
	images, _ := args.Get(0).([]*gallery.Image)
	return images, args.Error(1)
}

func (m *mockImageService) OpenImage(ctx context.Context, viewerID, id string, thumbnail bool) (io.ReadCloser, *gallery.Image, error) {
	args := m.Called(ctx, viewerID, id, thumbnail)
	rc, _ := args.Get(0).(io.ReadCloser)
	img, _ := args.Get(1).(*gallery.Image)
	return rc, img, args.Error(2)
}

func (m *mockImageService) ImageURL(ctx context.Context, viewerID, id string, thumbnail bool) (string, error) {
	args := m.Called(ctx, viewerID, id, thumbnail)
	return args.String(0), args.Error(1)
}

func (m *mockImageService) UpdateImage(ctx context.Context, req *gallery.UpdateImageRequest) (*gallery.Image, error) {
	args := m.Called(ctx, req)
	img, _ := args.Get(0).(*gallery.Image)
	return img, args.Error(1)
}

func (m *mockImageService) DeleteImage(ctx context.Context, ownerID, id string) error {
	return m.Called(ctx, ownerID, id).Error(0)
}

func (m *mockImageService) DeleteImages(ctx context.Context, req *gallery.DeleteImagesRequest) (int, error) {
	args := m.Called(ctx, req)
	return args.Int(0), args.Error(1)
}

func (m *mockImageService) MoveImages(ctx context.Context, req *gallery.MoveImagesRequest) (int, error) {
	args := m.Called(ctx, req)
	return args.Int(0), args.Error(1)
}

type mockPreferenceService struct{ mock.Mock }

func (m *mockPreferenceService) HidePrivateImages(ctx context.Context, ownerID string) (bool, error) {
	args := m.Called(ctx, ownerID)
	return args.Bool(0), args.Error(1)
}

func (m *mockPreferenceService) ToggleHidePrivateImages(ctx context.Context, req *gallery.TogglePrivateRequest) (bool, error) {
	args := m.Called(ctx, req)
	return args.Bool(0), args.Error(1)
}

type handlerFixture struct {
	folders     *mockFolderService
	images      *mockImageService
	preferences *mockPreferenceService
	router      http.Handler
}

func newFixture(t *testing.T, checks map[string]services.HealthCheck) *handlerFixture {
	t.Helper()
	return newSessionFixture(t, config.SessionConfig{SecureCookie: true, TrustUserHeader: true}, checks)
}

func newSessionFixture(t *testing.T, session config.SessionConfig, checks map[string]services.HealthCheck) *handlerFixture {
	t.Helper()
	f := &handlerFixture{
		folders:     &mockFolderService{},
		images:      &mockImageService{},
		preferences: &mockPreferenceService{},
	}
	h := New(f.folders, f.images, f.preferences, Options{
		Session:       session,
		MaxUploadSize: 1 << 20,
		Version:       "test",
		HealthChecks:  checks,
	})
	f.router = h.Routes()
	t.Cleanup(func() {
		f.folders.AssertExpectations(t)
		f.images.AssertExpectations(t)
		f.preferences.AssertExpectations(t)
	})
	return f
}

// do sends a request as testUser unless the caller overrides the identity
func (f *handlerFixture) do(method, target, body string, setup ...func(*http.Request)) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if len(setup) == 0 {
		req.Header.Set("X-User-ID", testUser)
	}
	for _, fn := range setup {
		fn(req)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func asSession(id string) func(*http.Request) {
	return func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: "gallery_session", Value: id})
	}
}

func anonymous(*http.Request) {}

func strPtr(s string) *string { return &s }
