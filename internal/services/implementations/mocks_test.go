package implementations

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"image-library/internal/domain/gallery"
)

type mockFolderRepo struct{ mock.Mock }

func (m *mockFolderRepo) Create(ctx context.Context, folder *gallery.Folder) error {
	return m.Called(ctx, folder).Error(0)
}

func (m *mockFolderRepo) GetByID(ctx context.Context, ownerID, id string) (*gallery.Folder, error) {
	args := m.Called(ctx, ownerID, id)
	f, _ := args.Get(0).(*gallery.Folder)
	return f, args.Error(1)
}

func (m *mockFolderRepo) ListByOwner(ctx context.Context, ownerID string) ([]*gallery.Folder, error) {
	args := m.Called(ctx, ownerID)
	f, _ := args.Get(0).([]*gallery.Folder)
	return f, args.Error(1)
}

func (m *mockFolderRepo) Update(ctx context.Context, folder *gallery.Folder) error {
	return m.Called(ctx, folder).Error(0)
}

func (m *mockFolderRepo) Delete(ctx context.Context, ownerID, id string) (int64, error) {
	args := m.Called(ctx, ownerID, id)
	return args.Get(0).(int64), args.Error(1)
}

type mockImageRepo struct{ mock.Mock }

func (m *mockImageRepo) Create(ctx context.Context, img *gallery.Image) error {
	return m.Called(ctx, img).Error(0)
}

func (m *mockImageRepo) GetByID(ctx context.Context, id string) (*gallery.Image, error) {
	args := m.Called(ctx, id)
	img, _ := args.Get(0).(*gallery.Image)
	return img, args.Error(1)
}

func (m *mockImageRepo) List(ctx context.Context, req *gallery.ListImagesRequest) ([]*gallery.Image, error) {
	args := m.Called(ctx, req)
	imgs, _ := args.Get(0).([]*gallery.Image)
	return imgs, args.Error(1)
}

func (m *mockImageRepo) Update(ctx context.Context, img *gallery.Image) error {
	return m.Called(ctx, img).Error(0)
}

func (m *mockImageRepo) Delete(ctx context.Context, ownerID, id string) (*gallery.Image, error) {
	args := m.Called(ctx, ownerID, id)
	img, _ := args.Get(0).(*gallery.Image)
	return img, args.Error(1)
}

func (m *mockImageRepo) DeleteMany(ctx context.Context, ownerID string, ids []string) ([]*gallery.Image, error) {
	args := m.Called(ctx, ownerID, ids)
	imgs, _ := args.Get(0).([]*gallery.Image)
	return imgs, args.Error(1)
}

func (m *mockImageRepo) MoveMany(ctx context.Context, ownerID string, ids []string, folderID *string) (int64, error) {
	args := m.Called(ctx, ownerID, ids, folderID)
	return args.Get(0).(int64), args.Error(1)
}

type mockPreferenceRepo struct{ mock.Mock }

func (m *mockPreferenceRepo) Get(ctx context.Context, ownerID string) (*gallery.Preferences, error) {
	args := m.Called(ctx, ownerID)
	p, _ := args.Get(0).(*gallery.Preferences)
	return p, args.Error(1)
}

func (m *mockPreferenceRepo) SetHidePrivateImages(ctx context.Context, ownerID string, hide bool) (*gallery.Preferences, error) {
	args := m.Called(ctx, ownerID, hide)
	p, _ := args.Get(0).(*gallery.Preferences)
	return p, args.Error(1)
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

type mockStorage struct{ mock.Mock }

func (m *mockStorage) Store(ctx context.Context, name, contentType string, data io.Reader, size int64) (string, error) {
	// Drain so callers see the same behaviour as a real upload
	_, _ = io.Copy(io.Discard, data)
	args := m.Called(ctx, name, contentType, size)
	return args.String(0), args.Error(1)
}

func (m *mockStorage) Retrieve(ctx context.Context, path string) (io.ReadCloser, error) {
	args := m.Called(ctx, path)
	rc, _ := args.Get(0).(io.ReadCloser)
	return rc, args.Error(1)
}

func (m *mockStorage) Delete(ctx context.Context, path string) error {
	return m.Called(ctx, path).Error(0)
}

func (m *mockStorage) Exists(ctx context.Context, path string) (bool, error) {
	args := m.Called(ctx, path)
	return args.Bool(0), args.Error(1)
}

func (m *mockStorage) GenerateURL(ctx context.Context, path string, expiry int64) (string, error) {
	args := m.Called(ctx, path, expiry)
	return args.String(0), args.Error(1)
}

type mockCache struct{ mock.Mock }

func (m *mockCache) GetFolders(ctx context.Context, ownerID string) ([]*gallery.Folder, error) {
	args := m.Called(ctx, ownerID)
	f, _ := args.Get(0).([]*gallery.Folder)
	return f, args.Error(1)
}

func (m *mockCache) SetFolders(ctx context.Context, ownerID string, folders []*gallery.Folder) error {
	return m.Called(ctx, ownerID, folders).Error(0)
}

func (m *mockCache) GetImages(ctx context.Context, req *gallery.ListImagesRequest) ([]*gallery.Image, error) {
	args := m.Called(ctx, req)
	imgs, _ := args.Get(0).([]*gallery.Image)
	return imgs, args.Error(1)
}

func (m *mockCache) SetImages(ctx context.Context, req *gallery.ListImagesRequest, images []*gallery.Image) error {
	return m.Called(ctx, req, images).Error(0)
}

func (m *mockCache) GetPreferences(ctx context.Context, ownerID string) (*gallery.Preferences, error) {
	args := m.Called(ctx, ownerID)
	p, _ := args.Get(0).(*gallery.Preferences)
	return p, args.Error(1)
}

func (m *mockCache) SetPreferences(ctx context.Context, prefs *gallery.Preferences) error {
	return m.Called(ctx, prefs).Error(0)
}

func (m *mockCache) InvalidateOwner(ctx context.Context, ownerID string) error {
	return m.Called(ctx, ownerID).Error(0)
}

type mockPublisher struct{ mock.Mock }

func (m *mockPublisher) Publish(ctx context.Context, event *gallery.Event) error {
	return m.Called(ctx, event).Error(0)
}

// eventOfType matches a published event by type
func eventOfType(t gallery.EventType) interface{} {
	return mock.MatchedBy(func(e *gallery.Event) bool { return e != nil && e.Type == t })
}

func strPtr(s string) *string { return &s }

func boolPtr(b bool) *bool { return &b }
