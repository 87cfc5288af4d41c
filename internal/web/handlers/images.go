package handlers

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"image-library/internal/domain/gallery"

	"github.com/go-chi/chi/v5"
)

const multipartMemory = 1 << 20

// SelectionPayload is the body of the bulk delete and move procedures
type SelectionPayload struct {
	ImageIDs []string `json:"imageIds"`
	FolderID *string  `json:"folderId"`
}

// ImagePatch is the body of an image update
type ImagePatch struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	IsPublic    *bool   `json:"isPublic"`
}

// DeleteResponse reports how many images a bulk delete removed
type DeleteResponse struct {
	Deleted int `json:"deleted"`
}

// ImageURLResponse carries a presigned link to an image object
type ImageURLResponse struct {
	URL string `json:"url"`
}

// MoveResponse reports how many images a bulk move touched
type MoveResponse struct {
	Moved int `json:"moved"`
}

// listImagesHandler lists the owner's images. folder=none selects images
// outside any folder.
func (h *Handler) listImagesHandler(w http.ResponseWriter, r *http.Request) {
	req := &gallery.ListImagesRequest{OwnerID: ownerFrom(r.Context())}
	if folder := strings.TrimSpace(r.URL.Query().Get("folder")); folder != "" {
		req.FolderID = &folder
	}
	h.writeImages(w, r, req)
}

func (h *Handler) writeImages(w http.ResponseWriter, r *http.Request, req *gallery.ListImagesRequest) {
	images, err := h.images.ListImages(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if images == nil {
		images = []*gallery.Image{}
	}
	writeJSON(w, http.StatusOK, images)
}

func (h *Handler) uploadImageHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize+multipartMemory)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		h.writeError(w, r, fmt.Errorf("%w: %w", gallery.ErrInvalidRequest, err))
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll() //nolint:errcheck // Temp file cleanup
		}
	}()

	file, header, err := formFile(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	defer file.Close()

	req, err := uploadRequestFromForm(r, header)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	img, err := h.images.UploadImage(r.Context(), req, file)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.logger.Info(r.Context()).
		Str("image_id", img.ID).
		Str("filename", img.Filename).
		Int64("size", img.FileSize).
		Msg("image uploaded")
	writeJSON(w, http.StatusCreated, img)
}

// formFile accepts the upload under "file" or "image"
func formFile(r *http.Request) (multipart.File, *multipart.FileHeader, error) {
	for _, field := range []string{"file", "image"} {
		file, header, err := r.FormFile(field)
		if err == nil {
			return file, header, nil
		}
		if err != http.ErrMissingFile {
			return nil, nil, fmt.Errorf("%w: %w", gallery.ErrInvalidRequest, err)
		}
	}
	return nil, nil, fmt.Errorf("%w: no file uploaded", gallery.ErrInvalidRequest)
}

func uploadRequestFromForm(r *http.Request, header *multipart.FileHeader) (*gallery.UploadImageRequest, error) {
	req := &gallery.UploadImageRequest{
		OwnerID:     ownerFrom(r.Context()),
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		FileSize:    header.Size,
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		IsPublic:    true,
	}

	if v := strings.TrimSpace(r.FormValue("isPublic")); v != "" {
		isPublic, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("%w: isPublic must be a boolean", gallery.ErrInvalidRequest)
		}
		req.IsPublic = isPublic
	}

	if folder := strings.TrimSpace(r.FormValue("folderId")); folder != "" {
		req.FolderID = &folder
	}

	if v := strings.TrimSpace(r.FormValue("lastModified")); v != "" {
		lastModified, err := parseLastModified(v)
		if err != nil {
			return nil, err
		}
		req.LastModified = lastModified
	}

	return req, nil
}

// parseLastModified accepts browser File.lastModified milliseconds or RFC 3339
func parseLastModified(v string) (time.Time, error) {
	if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: lastModified must be epoch milliseconds or RFC 3339", gallery.ErrInvalidRequest)
	}
	return t.UTC(), nil
}

func (h *Handler) viewImageHandler(w http.ResponseWriter, r *http.Request) {
	thumbnail, _ := strconv.ParseBool(r.URL.Query().Get("thumbnail"))

	rc, img, err := h.images.OpenImage(r.Context(), ownerFrom(r.Context()), chi.URLParam(r, "id"), thumbnail)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	defer rc.Close()

	contentType := img.ContentType
	if thumbnail && img.ThumbnailPath != nil {
		contentType = "image/jpeg"
	}
	w.Header().Set("Content-Type", contentType)
	if img.IsPublic {
		w.Header().Set("Cache-Control", "public, max-age=300")
	} else {
		w.Header().Set("Cache-Control", "private, no-store")
	}
	w.Header().Set("Last-Modified", img.UpdatedAt.UTC().Format(http.TimeFormat))

	if _, err := io.Copy(w, rc); err != nil {
		h.logger.Warn(r.Context()).Err(err).Str("image_id", img.ID).Msg("image stream interrupted")
	}
}

// imageURLHandler hands out a short lived direct link to the object store
func (h *Handler) imageURLHandler(w http.ResponseWriter, r *http.Request) {
	thumbnail, _ := strconv.ParseBool(r.URL.Query().Get("thumbnail"))

	url, err := h.images.ImageURL(r.Context(), ownerFrom(r.Context()), chi.URLParam(r, "id"), thumbnail)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, ImageURLResponse{URL: url})
}

func (h *Handler) updateImageHandler(w http.ResponseWriter, r *http.Request) {
	var patch ImagePatch
	if err := decodeJSON(w, r, &patch); err != nil {
		h.writeError(w, r, err)
		return
	}

	img, err := h.images.UpdateImage(r.Context(), &gallery.UpdateImageRequest{
		ID:          chi.URLParam(r, "id"),
		OwnerID:     ownerFrom(r.Context()),
		Title:       patch.Title,
		Description: patch.Description,
		IsPublic:    patch.IsPublic,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, img)
}

func (h *Handler) deleteImageHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.images.DeleteImage(r.Context(), ownerFrom(r.Context()), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) deleteSelectedImagesHandler(w http.ResponseWriter, r *http.Request) {
	var payload SelectionPayload
	if err := decodeJSON(w, r, &payload); err != nil {
		h.writeError(w, r, err)
		return
	}

	deleted, err := h.images.DeleteImages(r.Context(), &gallery.DeleteImagesRequest{
		OwnerID:  ownerFrom(r.Context()),
		ImageIDs: payload.ImageIDs,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, DeleteResponse{Deleted: deleted})
}

// moveSelectedImagesHandler files the selection under folderId, or takes it
// out of any folder when folderId is null.
func (h *Handler) moveSelectedImagesHandler(w http.ResponseWriter, r *http.Request) {
	var payload SelectionPayload
	if err := decodeJSON(w, r, &payload); err != nil {
		h.writeError(w, r, err)
		return
	}

	moved, err := h.images.MoveImages(r.Context(), &gallery.MoveImagesRequest{
		OwnerID:  ownerFrom(r.Context()),
		ImageIDs: payload.ImageIDs,
		FolderID: payload.FolderID,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MoveResponse{Moved: moved})
}
