package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"image-library/internal/config"
	"image-library/internal/domain/gallery"
	"image-library/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

func TestOwnerResolution(t *testing.T) {
	tests := []struct {
		name      string
		setup     func(*http.Request)
		wantOwner string
		wantCode  int
	}{
		{
			name:      "user header",
			setup:     func(r *http.Request) { r.Header.Set("X-User-ID", testUser) },
			wantOwner: testUser,
			wantCode:  http.StatusOK,
		},
		{
			name:      "session cookie",
			setup:     asSession(testSession),
			wantOwner: testSession,
			wantCode:  http.StatusOK,
		},
		{
			name:      "session header",
			setup:     func(r *http.Request) { r.Header.Set("X-Session-ID", testSession) },
			wantOwner: testSession,
			wantCode:  http.StatusOK,
		},
		{
			name:     "forged session cookie",
			setup:    asSession("anon_not-a-uuid"),
			wantCode: http.StatusUnauthorized,
		},
		{
			name:     "no identity",
			setup:    anonymous,
			wantCode: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)
			if tt.wantOwner != "" {
				f.folders.On("ListFolders", mock.Anything, tt.wantOwner).Return([]*gallery.Folder{}, nil).Once()
			}

			rec := f.do(http.MethodGet, "/api/folders", "", tt.setup)

			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantCode == http.StatusUnauthorized {
				body := decodeBody[ErrorResponse](t, rec)
				assert.Equal(t, "missing owner", body.Error)
			}
		})
	}
}

func TestUntrustedUserHeader(t *testing.T) {
	t.Run("header alone is not an identity", func(t *testing.T) {
		f := newSessionFixture(t, config.SessionConfig{}, nil)

		rec := f.do(http.MethodGet, "/api/folders", "", func(r *http.Request) {
			r.Header.Set("X-User-ID", testUser)
		})

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("session wins over a forged header", func(t *testing.T) {
		f := newSessionFixture(t, config.SessionConfig{}, nil)
		f.folders.On("ListFolders", mock.Anything, testSession).Return([]*gallery.Folder{}, nil).Once()

		rec := f.do(http.MethodGet, "/api/folders", "", asSession(testSession), func(r *http.Request) {
			r.Header.Set("X-User-ID", testUser)
		})

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("session endpoint issues an anonymous id", func(t *testing.T) {
		f := newSessionFixture(t, config.SessionConfig{}, nil)

		rec := f.do(http.MethodPost, "/api/sessions", "", func(r *http.Request) {
			r.Header.Set("X-User-ID", testUser)
		})

		require.Equal(t, http.StatusCreated, rec.Code)
		body := decodeBody[SessionResponse](t, rec)
		assert.True(t, body.Anonymous)
		assert.NotEqual(t, testUser, body.OwnerID)
	})
}

func TestCreateSession(t *testing.T) {
	t.Run("issues anonymous id and cookie", func(t *testing.T) {
		f := newFixture(t, nil)

		rec := f.do(http.MethodPost, "/api/sessions", "", anonymous)

		require.Equal(t, http.StatusCreated, rec.Code)
		body := decodeBody[SessionResponse](t, rec)
		assert.True(t, body.Anonymous)
		assert.True(t, isSessionID(body.OwnerID))

		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, "gallery_session", cookies[0].Name)
		assert.Equal(t, body.OwnerID, cookies[0].Value)
		assert.True(t, cookies[0].HttpOnly)
		assert.True(t, cookies[0].Secure)
		assert.Positive(t, cookies[0].MaxAge)
	})

	t.Run("reuses existing session", func(t *testing.T) {
		f := newFixture(t, nil)

		rec := f.do(http.MethodPost, "/api/sessions", "", asSession(testSession))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, testSession, decodeBody[SessionResponse](t, rec).OwnerID)
		assert.Empty(t, rec.Result().Cookies())
	})
}

func TestFolderHandlers(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	folder := &gallery.Folder{ID: "f1", OwnerID: testUser, Title: "Trips", ImageCount: 2, CreatedAt: now, UpdatedAt: now}

	t.Run("list", func(t *testing.T) {
		f := newFixture(t, nil)
		f.folders.On("ListFolders", mock.Anything, testUser).Return([]*gallery.Folder{folder}, nil)

		rec := f.do(http.MethodGet, "/api/folders", "")

		require.Equal(t, http.StatusOK, rec.Code)
		got := decodeBody[[]map[string]any](t, rec)
		require.Len(t, got, 1)
		assert.Equal(t, "Trips", got[0]["title"])
		assert.EqualValues(t, 2, got[0]["imageCount"])
	})

	t.Run("list empty renders array", func(t *testing.T) {
		f := newFixture(t, nil)
		f.folders.On("ListFolders", mock.Anything, testUser).Return(nil, nil)

		rec := f.do(http.MethodGet, "/api/folders", "")

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `[]`, rec.Body.String())
	})

	t.Run("create", func(t *testing.T) {
		f := newFixture(t, nil)
		f.folders.On("CreateFolder", mock.Anything, mock.MatchedBy(func(req *gallery.CreateFolderRequest) bool {
			return req.OwnerID == testUser && req.Title == "Trips" && req.Description != nil && *req.Description == "2024"
		})).Return(folder, nil)

		rec := f.do(http.MethodPost, "/api/folders", `{"title":"Trips","description":"2024"}`)

		require.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, "f1", decodeBody[map[string]any](t, rec)["id"])
	})

	t.Run("create rejects malformed body", func(t *testing.T) {
		f := newFixture(t, nil)

		rec := f.do(http.MethodPost, "/api/folders", `{"title":`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("create invalid title", func(t *testing.T) {
		f := newFixture(t, nil)
		f.folders.On("CreateFolder", mock.Anything, mock.Anything).
			Return(nil, fmt.Errorf("%w: title cannot be empty", gallery.ErrInvalidTitle))

		rec := f.do(http.MethodPost, "/api/folders", `{"title":"  "}`)

		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, decodeBody[ErrorResponse](t, rec).Error, "title cannot be empty")
	})

	t.Run("update foreign folder", func(t *testing.T) {
		f := newFixture(t, nil)
		f.folders.On("UpdateFolder", mock.Anything, mock.MatchedBy(func(req *gallery.UpdateFolderRequest) bool {
			return req.ID == "f9" && req.OwnerID == testUser && req.Title == "Mine"
		})).Return(nil, gallery.ErrFolderNotFound)

		rec := f.do(http.MethodPut, "/api/folders/f9", `{"title":"Mine"}`)

		require.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "folder not found", decodeBody[ErrorResponse](t, rec).Error)
	})

	t.Run("delete", func(t *testing.T) {
		f := newFixture(t, nil)
		f.folders.On("DeleteFolder", mock.Anything, testUser, "f1").Return(nil)

		rec := f.do(http.MethodDelete, "/api/folders/f1", "")

		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("images in folder", func(t *testing.T) {
		f := newFixture(t, nil)
		f.images.On("ListImages", mock.Anything, mock.MatchedBy(func(req *gallery.ListImagesRequest) bool {
			return req.OwnerID == testUser && req.FolderID != nil && *req.FolderID == "f1"
		})).Return([]*gallery.Image{{ID: "i1", OwnerID: testUser, FolderID: strPtr("f1")}}, nil)

		rec := f.do(http.MethodGet, "/api/folders/f1/images", "")

		require.Equal(t, http.StatusOK, rec.Code)
		got := decodeBody[[]map[string]any](t, rec)
		require.Len(t, got, 1)
		assert.Equal(t, "f1", got[0]["folderId"])
		assert.NotContains(t, got[0], "storagePath")
	})
}

func TestListImagesFolderFilter(t *testing.T) {
	tests := []struct {
		name   string
		target string
		want   *string
	}{
		{name: "all images", target: "/api/images", want: nil},
		{name: "unfiled", target: "/api/images?folder=none", want: strPtr(gallery.UnfiledFolderFilter)},
		{name: "one folder", target: "/api/images?folder=f1", want: strPtr("f1")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)
			f.images.On("ListImages", mock.Anything, mock.MatchedBy(func(req *gallery.ListImagesRequest) bool {
				return assert.ObjectsAreEqual(tt.want, req.FolderID)
			})).Return(nil, nil)

			rec := f.do(http.MethodGet, tt.target, "")

			require.Equal(t, http.StatusOK, rec.Code)
			assert.JSONEq(t, `[]`, rec.Body.String())
		})
	}
}

func multipartUpload(t *testing.T, fields map[string]string, filename, contentType string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if filename != "" {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, filename))
		header.Set("Content-Type", contentType)
		part, err := w.CreatePart(header)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func TestUploadImage(t *testing.T) {
	content := []byte("\x89PNG\r\n\x1a\nfake")

	t.Run("builds request from form", func(t *testing.T) {
		f := newFixture(t, nil)
		lastModified := time.Date(2023, 7, 14, 9, 30, 0, 0, time.UTC)
		f.images.On("UploadImage", mock.Anything, mock.MatchedBy(func(req *gallery.UploadImageRequest) bool {
			return req.OwnerID == testUser &&
				req.Filename == "beach.png" &&
				req.ContentType == "image/png" &&
				req.FileSize == int64(len(content)) &&
				req.Title == "Beach" &&
				req.Description == "Sunset" &&
				!req.IsPublic &&
				req.FolderID != nil && *req.FolderID == "f1" &&
				req.LastModified.Equal(lastModified)
		}), content).Return(&gallery.Image{ID: "i1", OwnerID: testUser, Filename: "beach.png", FileSize: int64(len(content))}, nil)

		body, ct := multipartUpload(t, map[string]string{
			"title":        "Beach",
			"description":  "Sunset",
			"isPublic":     "false",
			"folderId":     "f1",
			"lastModified": fmt.Sprint(lastModified.UnixMilli()),
		}, "beach.png", "image/png", content)

		rec := f.do(http.MethodPost, "/api/images", "", func(r *http.Request) {
			r.Body = io.NopCloser(body)
			r.Header.Set("Content-Type", ct)
			r.Header.Set("X-User-ID", testUser)
		})

		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		assert.Equal(t, "i1", decodeBody[map[string]any](t, rec)["id"])
	})

	t.Run("defaults to public", func(t *testing.T) {
		f := newFixture(t, nil)
		f.images.On("UploadImage", mock.Anything, mock.MatchedBy(func(req *gallery.UploadImageRequest) bool {
			return req.IsPublic && req.FolderID == nil && req.LastModified.IsZero()
		}), content).Return(&gallery.Image{ID: "i2"}, nil)

		body, ct := multipartUpload(t, nil, "a.png", "image/png", content)
		rec := f.do(http.MethodPost, "/api/images", "", func(r *http.Request) {
			r.Body = io.NopCloser(body)
			r.Header.Set("Content-Type", ct)
			r.Header.Set("X-Session-ID", testSession)
		})

		assert.Equal(t, http.StatusCreated, rec.Code)
	})

	t.Run("missing file", func(t *testing.T) {
		f := newFixture(t, nil)

		body, ct := multipartUpload(t, map[string]string{"title": "x"}, "", "", nil)
		rec := f.do(http.MethodPost, "/api/images", "", func(r *http.Request) {
			r.Body = io.NopCloser(body)
			r.Header.Set("Content-Type", ct)
			r.Header.Set("X-User-ID", testUser)
		})

		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, decodeBody[ErrorResponse](t, rec).Error, "no file uploaded")
	})

	t.Run("bad visibility flag", func(t *testing.T) {
		f := newFixture(t, nil)

		body, ct := multipartUpload(t, map[string]string{"isPublic": "maybe"}, "a.png", "image/png", content)
		rec := f.do(http.MethodPost, "/api/images", "", func(r *http.Request) {
			r.Body = io.NopCloser(body)
			r.Header.Set("Content-Type", ct)
			r.Header.Set("X-User-ID", testUser)
		})

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("anonymous private upload is stored public", func(t *testing.T) {
		f := newFixture(t, nil)
		f.images.On("UploadImage", mock.Anything, mock.MatchedBy(func(req *gallery.UploadImageRequest) bool {
			return req.OwnerID == testSession && !req.IsPublic
		}), content).Return(&gallery.Image{ID: "i3", OwnerID: testSession, IsPublic: true}, nil)

		body, ct := multipartUpload(t, map[string]string{"isPublic": "false"}, "a.png", "image/png", content)
		rec := f.do(http.MethodPost, "/api/images", "", func(r *http.Request) {
			r.Body = io.NopCloser(body)
			r.Header.Set("Content-Type", ct)
			r.Header.Set("X-Session-ID", testSession)
		})

		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		assert.Equal(t, true, decodeBody[map[string]any](t, rec)["isPublic"])
	})

	t.Run("oversized body", func(t *testing.T) {
		f := newFixture(t, nil)

		body, ct := multipartUpload(t, nil, "big.png", "image/png", bytes.Repeat([]byte{'x'}, 3<<20))
		rec := f.do(http.MethodPost, "/api/images", "", func(r *http.Request) {
			r.Body = io.NopCloser(body)
			r.Header.Set("Content-Type", ct)
			r.Header.Set("X-User-ID", testUser)
		})

		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	})
}

func TestViewImage(t *testing.T) {
	updated := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	t.Run("public image without session", func(t *testing.T) {
		f := newFixture(t, nil)
		img := &gallery.Image{ID: "i1", ContentType: "image/png", IsPublic: true, UpdatedAt: updated}
		f.images.On("OpenImage", mock.Anything, "", "i1", false).
			Return(io.NopCloser(strings.NewReader("pixels")), img, nil)

		rec := f.do(http.MethodGet, "/api/images/i1/view", "", anonymous)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "pixels", rec.Body.String())
		assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
		assert.Equal(t, "public, max-age=300", rec.Header().Get("Cache-Control"))
		assert.Equal(t, updated.Format(http.TimeFormat), rec.Header().Get("Last-Modified"))
	})

	t.Run("private thumbnail for owner", func(t *testing.T) {
		f := newFixture(t, nil)
		img := &gallery.Image{ID: "i1", ContentType: "image/png", ThumbnailPath: strPtr("thumbs/i1.jpg"), UpdatedAt: updated}
		f.images.On("OpenImage", mock.Anything, testUser, "i1", true).
			Return(io.NopCloser(strings.NewReader("thumb")), img, nil)

		rec := f.do(http.MethodGet, "/api/images/i1/view?thumbnail=true", "")

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "image/jpeg", rec.Header().Get("Content-Type"))
		assert.Equal(t, "private, no-store", rec.Header().Get("Cache-Control"))
	})

	t.Run("hidden from other viewers", func(t *testing.T) {
		f := newFixture(t, nil)
		f.images.On("OpenImage", mock.Anything, testSession, "i1", false).
			Return(nil, nil, gallery.ErrImageNotFound)

		rec := f.do(http.MethodGet, "/api/images/i1/view", "", asSession(testSession))

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestImageURL(t *testing.T) {
	t.Run("public image without session", func(t *testing.T) {
		f := newFixture(t, nil)
		f.images.On("ImageURL", mock.Anything, "", "i1", true).Return("https://store/i1.jpg?sig=abc", nil)

		rec := f.do(http.MethodGet, "/api/images/i1/url?thumbnail=true", "", anonymous)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "https://store/i1.jpg?sig=abc", decodeBody[ImageURLResponse](t, rec).URL)
		assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	})

	t.Run("hidden from other viewers", func(t *testing.T) {
		f := newFixture(t, nil)
		f.images.On("ImageURL", mock.Anything, testUser, "i1", false).Return("", gallery.ErrImageNotFound)

		rec := f.do(http.MethodGet, "/api/images/i1/url", "")

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestImageMutations(t *testing.T) {
	t.Run("update", func(t *testing.T) {
		f := newFixture(t, nil)
		f.images.On("UpdateImage", mock.Anything, mock.MatchedBy(func(req *gallery.UpdateImageRequest) bool {
			return req.ID == "i1" && req.OwnerID == testUser &&
				req.Title != nil && *req.Title == "New" &&
				req.Description == nil &&
				req.IsPublic != nil && !*req.IsPublic
		})).Return(&gallery.Image{ID: "i1", Title: "New"}, nil)

		rec := f.do(http.MethodPut, "/api/images/i1", `{"title":"New","isPublic":false}`)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "New", decodeBody[map[string]any](t, rec)["title"])
	})

	t.Run("delete one", func(t *testing.T) {
		f := newFixture(t, nil)
		f.images.On("DeleteImage", mock.Anything, testUser, "i1").Return(nil)

		rec := f.do(http.MethodDelete, "/api/images/i1", "")

		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("delete selected", func(t *testing.T) {
		f := newFixture(t, nil)
		f.images.On("DeleteImages", mock.Anything, &gallery.DeleteImagesRequest{
			OwnerID:  testUser,
			ImageIDs: []string{"i1", "i2"},
		}).Return(2, nil)

		rec := f.do(http.MethodPost, "/api/images/delete", `{"imageIds":["i1","i2"]}`)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"deleted":2}`, rec.Body.String())
	})

	t.Run("delete selection too large", func(t *testing.T) {
		f := newFixture(t, nil)
		f.images.On("DeleteImages", mock.Anything, mock.Anything).
			Return(0, fmt.Errorf("%w: at most 500 images", gallery.ErrInvalidSelection))

		rec := f.do(http.MethodPost, "/api/images/delete", `{"imageIds":["i1"]}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("move into folder", func(t *testing.T) {
		f := newFixture(t, nil)
		f.images.On("MoveImages", mock.Anything, &gallery.MoveImagesRequest{
			OwnerID:  testUser,
			ImageIDs: []string{"i1"},
			FolderID: strPtr("f1"),
		}).Return(1, nil)

		rec := f.do(http.MethodPost, "/api/images/move", `{"imageIds":["i1"],"folderId":"f1"}`)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"moved":1}`, rec.Body.String())
	})

	t.Run("move out of folders", func(t *testing.T) {
		f := newFixture(t, nil)
		f.images.On("MoveImages", mock.Anything, mock.MatchedBy(func(req *gallery.MoveImagesRequest) bool {
			return req.FolderID == nil
		})).Return(3, nil)

		rec := f.do(http.MethodPost, "/api/images/move", `{"imageIds":["a","b","c"],"folderId":null}`)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"moved":3}`, rec.Body.String())
	})

	t.Run("internal failure hides details", func(t *testing.T) {
		f := newFixture(t, nil)
		f.images.On("DeleteImage", mock.Anything, testUser, "i1").Return(errors.New("pq: connection reset"))

		rec := f.do(http.MethodDelete, "/api/images/i1", "")

		require.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "Internal Server Error", decodeBody[ErrorResponse](t, rec).Error)
	})
}

func TestHidePrivatePreference(t *testing.T) {
	t.Run("get", func(t *testing.T) {
		f := newFixture(t, nil)
		f.preferences.On("HidePrivateImages", mock.Anything, testUser).Return(true, nil)

		rec := f.do(http.MethodGet, "/api/users/preferences/hide-private", "")

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"hidePrivateImages":true}`, rec.Body.String())
	})

	t.Run("toggle", func(t *testing.T) {
		f := newFixture(t, nil)
		f.preferences.On("ToggleHidePrivateImages", mock.Anything, &gallery.TogglePrivateRequest{
			OwnerID:  testUser,
			NewValue: false,
		}).Return(false, nil)

		rec := f.do(http.MethodPut, "/api/users/preferences/hide-private", `{"newValue":false}`)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"hidePrivateImages":false}`, rec.Body.String())
	})

	t.Run("toggle requires value", func(t *testing.T) {
		f := newFixture(t, nil)

		rec := f.do(http.MethodPut, "/api/users/preferences/hide-private", `{}`)

		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "newValue is required", decodeBody[ErrorResponse](t, rec).Error)
	})
}

func TestHealthProbes(t *testing.T) {
	t.Run("liveness", func(t *testing.T) {
		f := newFixture(t, nil)

		rec := f.do(http.MethodGet, "/healthz", "", anonymous)

		require.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody[HealthResponse](t, rec)
		assert.Equal(t, healthStatusOK, body.Status)
		assert.Equal(t, "test", body.Version)
	})

	t.Run("ready", func(t *testing.T) {
		f := newFixture(t, map[string]services.HealthCheck{
			"database": func(context.Context) error { return nil },
		})

		rec := f.do(http.MethodGet, "/readyz", "", anonymous)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, map[string]string{"database": healthStatusHealthy}, decodeBody[HealthResponse](t, rec).Checks)
	})

	t.Run("not ready", func(t *testing.T) {
		f := newFixture(t, map[string]services.HealthCheck{
			"database": func(context.Context) error { return nil },
			"cache":    func(context.Context) error { return errors.New("dial tcp: refused") },
		})

		rec := f.do(http.MethodGet, "/readyz", "", anonymous)

		require.Equal(t, http.StatusServiceUnavailable, rec.Code)
		body := decodeBody[HealthResponse](t, rec)
		assert.Equal(t, healthStatusUnhealthy, body.Status)
		assert.Equal(t, "unhealthy: dial tcp: refused", body.Checks["cache"])
		assert.Equal(t, healthStatusHealthy, body.Checks["database"])
	})
}

func TestParseLastModified(t *testing.T) {
	want := time.Date(2023, 7, 14, 9, 30, 0, 0, time.UTC)

	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "epoch millis", input: fmt.Sprint(want.UnixMilli())},
		{name: "rfc3339", input: "2023-07-14T11:30:00+02:00"},
		{name: "garbage", input: "yesterday", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseLastModified(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, gallery.ErrInvalidRequest)
				return
			}
			require.NoError(t, err)
			assert.True(t, want.Equal(got))
		})
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{errMissingOwner, http.StatusUnauthorized},
		{fmt.Errorf("wrap: %w", gallery.ErrForbidden), http.StatusForbidden},
		{gallery.ErrFolderNotFound, http.StatusNotFound},
		{gallery.ErrImageNotFound, http.StatusNotFound},
		{gallery.ErrInvalidSelection, http.StatusBadRequest},
		{errInvalidJSON, http.StatusBadRequest},
		{&http.MaxBytesError{Limit: 1}, http.StatusRequestEntityTooLarge},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}
