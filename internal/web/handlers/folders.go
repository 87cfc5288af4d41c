package handlers

import (
	"net/http"

	"image-library/internal/domain/gallery"

	"github.com/go-chi/chi/v5"
)

// FolderPayload is the body of folder create and update requests
type FolderPayload struct {
	Title       string  `json:"title"`
	Description *string `json:"description"`
}

func (h *Handler) listFoldersHandler(w http.ResponseWriter, r *http.Request) {
	folders, err := h.folders.ListFolders(r.Context(), ownerFrom(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if folders == nil {
		folders = []*gallery.Folder{}
	}
	writeJSON(w, http.StatusOK, folders)
}

func (h *Handler) createFolderHandler(w http.ResponseWriter, r *http.Request) {
	var payload FolderPayload
	if err := decodeJSON(w, r, &payload); err != nil {
		h.writeError(w, r, err)
		return
	}

	folder, err := h.folders.CreateFolder(r.Context(), &gallery.CreateFolderRequest{
		OwnerID:     ownerFrom(r.Context()),
		Title:       payload.Title,
		Description: payload.Description,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, folder)
}

func (h *Handler) updateFolderHandler(w http.ResponseWriter, r *http.Request) {
	var payload FolderPayload
	if err := decodeJSON(w, r, &payload); err != nil {
		h.writeError(w, r, err)
		return
	}

	folder, err := h.folders.UpdateFolder(r.Context(), &gallery.UpdateFolderRequest{
		ID:          chi.URLParam(r, "id"),
		OwnerID:     ownerFrom(r.Context()),
		Title:       payload.Title,
		Description: payload.Description,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, folder)
}

func (h *Handler) deleteFolderHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.folders.DeleteFolder(r.Context(), ownerFrom(r.Context()), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// listFolderImagesHandler lists the images filed under one folder
func (h *Handler) listFolderImagesHandler(w http.ResponseWriter, r *http.Request) {
	folderID := chi.URLParam(r, "id")
	h.writeImages(w, r, &gallery.ListImagesRequest{
		OwnerID:  ownerFrom(r.Context()),
		FolderID: &folderID,
	})
}
