package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"image-library/internal/domain/gallery"
)

const (
	defaultMaxUploadSize = 10 << 20
	maxJSONBodySize      = 1 << 20
)

var (
	errMissingOwner = errors.New("missing owner")
	errInvalidJSON  = errors.New("invalid request body")
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v) //nolint:errcheck // Best effort response
}

// statusFor maps service errors onto HTTP status codes
func statusFor(err error) int {
	var maxBytesErr *http.MaxBytesError
	switch {
	case errors.Is(err, errMissingOwner):
		return http.StatusUnauthorized
	case errors.Is(err, gallery.ErrForbidden):
		return http.StatusForbidden
	case gallery.IsNotFound(err):
		return http.StatusNotFound
	case errors.As(err, &maxBytesErr):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, errInvalidJSON), gallery.IsValidationError(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		h.logger.Error(r.Context()).Err(err).
			Str("route", r.URL.Path).
			Msg("request failed")
		message = http.StatusText(status)
	}
	writeJSON(w, status, ErrorResponse{Error: message})
}

// decodeJSON reads a bounded JSON body into v
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, maxJSONBodySize)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return err
		}
		if errors.Is(err, io.EOF) {
			return errInvalidJSON
		}
		return fmt.Errorf("%w: %v", errInvalidJSON, err)
	}
	return nil
}
