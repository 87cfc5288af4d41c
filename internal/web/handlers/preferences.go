package handlers

import (
	"net/http"

	"image-library/internal/domain/gallery"
)

// HidePrivateResponse carries the hide-private-images preference
type HidePrivateResponse struct {
	HidePrivateImages bool `json:"hidePrivateImages"`
}

// TogglePrivatePayload is the body of the hide-private toggle
type TogglePrivatePayload struct {
	NewValue *bool `json:"newValue"`
}

func (h *Handler) getHidePrivateHandler(w http.ResponseWriter, r *http.Request) {
	hide, err := h.preferences.HidePrivateImages(r.Context(), ownerFrom(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, HidePrivateResponse{HidePrivateImages: hide})
}

func (h *Handler) toggleHidePrivateHandler(w http.ResponseWriter, r *http.Request) {
	var payload TogglePrivatePayload
	if err := decodeJSON(w, r, &payload); err != nil {
		h.writeError(w, r, err)
		return
	}
	if payload.NewValue == nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "newValue is required"})
		return
	}

	hide, err := h.preferences.ToggleHidePrivateImages(r.Context(), &gallery.TogglePrivateRequest{
		OwnerID:  ownerFrom(r.Context()),
		NewValue: *payload.NewValue,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, HidePrivateResponse{HidePrivateImages: hide})
}
