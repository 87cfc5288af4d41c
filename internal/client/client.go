// Package client talks to the image library HTTP procedures and keeps a local
// query cache in sync with optimistic updates.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"image-library/internal/domain/gallery"

	"golang.org/x/time/rate"
)

const (
	defaultTimeout = 30 * time.Second
	userHeader     = "X-User-ID"
	sessionHeader  = "X-Session-ID"
)

// APIError is a non-2xx answer from the server
type APIError struct {
	StatusCode int
	Method     string
	Path       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s %s: HTTP %d: %s", e.Method, e.Path, e.StatusCode, e.Message)
}

// IsRetryable reports whether the failure is on the server side or a rate
// limit. The client itself never retries.
func (e *APIError) IsRetryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

// IsNotFound reports whether err is a 404 from the server
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRateLimit spaces requests to at most r per second with the given burst
func WithRateLimit(r rate.Limit, burst int) Option {
	return func(c *Client) { c.limiter = rate.NewLimiter(r, burst) }
}

// WithUser sends requests as an authenticated user
func WithUser(userID string) Option {
	return func(c *Client) { c.userID = userID }
}

// WithSession sends requests with a previously issued anonymous session id
func WithSession(sessionID string) Option {
	return func(c *Client) { c.sessionID = sessionID }
}

// Client is a typed client for the image library procedures
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter

	mu        sync.RWMutex
	userID    string
	sessionID string
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Owner returns the identity requests are sent as
func (c *Client) Owner() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.userID != "" {
		return c.userID
	}
	return c.sessionID
}

// Anonymous reports whether the client has no signed-in user
func (c *Client) Anonymous() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userID == ""
}

// EnsureSession obtains an anonymous session id unless one is already held.
// The id should be persisted by the caller and passed back via WithSession.
func (c *Client) EnsureSession(ctx context.Context) (string, error) {
	if owner := c.Owner(); owner != "" {
		return owner, nil
	}

	var resp struct {
		OwnerID string `json:"ownerId"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/sessions", nil, &resp); err != nil {
		return "", err
	}

	c.mu.Lock()
	c.sessionID = resp.OwnerID
	c.mu.Unlock()
	return resp.OwnerID, nil
}

type folderPayload struct {
	Title       string  `json:"title"`
	Description *string `json:"description"`
}

type selectionPayload struct {
	ImageIDs []string `json:"imageIds"`
	FolderID *string  `json:"folderId"`
}

// Folders lists the owner's folders
func (c *Client) Folders(ctx context.Context) ([]*gallery.Folder, error) {
	var folders []*gallery.Folder
	err := c.do(ctx, http.MethodGet, "/api/folders", nil, &folders)
	return folders, err
}

func (c *Client) CreateFolder(ctx context.Context, title string, description *string) (*gallery.Folder, error) {
	var folder gallery.Folder
	if err := c.do(ctx, http.MethodPost, "/api/folders", folderPayload{Title: title, Description: description}, &folder); err != nil {
		return nil, err
	}
	return &folder, nil
}

func (c *Client) UpdateFolder(ctx context.Context, id, title string, description *string) (*gallery.Folder, error) {
	var folder gallery.Folder
	if err := c.do(ctx, http.MethodPut, "/api/folders/"+url.PathEscape(id), folderPayload{Title: title, Description: description}, &folder); err != nil {
		return nil, err
	}
	return &folder, nil
}

func (c *Client) DeleteFolder(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/folders/"+url.PathEscape(id), nil, nil)
}

// Images lists the owner's images. folder is empty for all images,
// gallery.UnfiledFolderFilter for images outside any folder, or a folder id.
func (c *Client) Images(ctx context.Context, folder string) ([]*gallery.Image, error) {
	path := "/api/images"
	if folder != "" {
		path += "?" + url.Values{"folder": {folder}}.Encode()
	}
	var images []*gallery.Image
	err := c.do(ctx, http.MethodGet, path, nil, &images)
	return images, err
}

// FolderImages lists the images filed under one folder
func (c *Client) FolderImages(ctx context.Context, folderID string) ([]*gallery.Image, error) {
	var images []*gallery.Image
	err := c.do(ctx, http.MethodGet, "/api/folders/"+url.PathEscape(folderID)+"/images", nil, &images)
	return images, err
}

// Upload describes one file sent to UploadImage
type Upload struct {
	Filename     string
	ContentType  string
	LastModified time.Time
	Title        string
	Description  string
	IsPublic     bool
	FolderID     *string
	Data         io.Reader
}

func (c *Client) UploadImage(ctx context.Context, up Upload) (*gallery.Image, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := map[string]string{
		"title":       up.Title,
		"description": up.Description,
		"isPublic":    strconv.FormatBool(up.IsPublic),
	}
	if up.FolderID != nil {
		fields["folderId"] = *up.FolderID
	}
	if !up.LastModified.IsZero() {
		fields["lastModified"] = strconv.FormatInt(up.LastModified.UnixMilli(), 10)
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, fmt.Errorf("failed to write form field %s: %w", k, err)
		}
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, up.Filename))
	header.Set("Content-Type", up.ContentType)
	part, err := w.CreatePart(header)
	if err != nil {
		return nil, fmt.Errorf("failed to create file part: %w", err)
	}
	if _, err := io.Copy(part, up.Data); err != nil {
		return nil, fmt.Errorf("failed to read upload %s: %w", up.Filename, err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish multipart body: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/api/images", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	var img gallery.Image
	if err := c.send(req, &img); err != nil {
		return nil, err
	}
	return &img, nil
}

// ImagePatch edits image metadata; nil fields are left untouched
type ImagePatch struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	IsPublic    *bool   `json:"isPublic,omitempty"`
}

func (c *Client) UpdateImage(ctx context.Context, id string, patch ImagePatch) (*gallery.Image, error) {
	var img gallery.Image
	if err := c.do(ctx, http.MethodPut, "/api/images/"+url.PathEscape(id), patch, &img); err != nil {
		return nil, err
	}
	return &img, nil
}

func (c *Client) DeleteImage(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/images/"+url.PathEscape(id), nil, nil)
}

// DeleteImages removes a selection and returns how many images were deleted
func (c *Client) DeleteImages(ctx context.Context, ids []string) (int, error) {
	var resp struct {
		Deleted int `json:"deleted"`
	}
	err := c.do(ctx, http.MethodPost, "/api/images/delete", selectionPayload{ImageIDs: ids}, &resp)
	return resp.Deleted, err
}

// MoveImages files a selection under folderID, or out of any folder when nil
func (c *Client) MoveImages(ctx context.Context, ids []string, folderID *string) (int, error) {
	var resp struct {
		Moved int `json:"moved"`
	}
	err := c.do(ctx, http.MethodPost, "/api/images/move", selectionPayload{ImageIDs: ids, FolderID: folderID}, &resp)
	return resp.Moved, err
}

type hidePrivate struct {
	HidePrivateImages bool `json:"hidePrivateImages"`
}

func (c *Client) HidePrivateImages(ctx context.Context) (bool, error) {
	var resp hidePrivate
	err := c.do(ctx, http.MethodGet, "/api/users/preferences/hide-private", nil, &resp)
	return resp.HidePrivateImages, err
}

// SetHidePrivateImages stores newValue and returns what the server kept
func (c *Client) SetHidePrivateImages(ctx context.Context, newValue bool) (bool, error) {
	var resp hidePrivate
	body := struct {
		NewValue bool `json:"newValue"`
	}{newValue}
	err := c.do(ctx, http.MethodPut, "/api/users/preferences/hide-private", body, &resp)
	return resp.HidePrivateImages, err
}

// ImageURL is the address of an image (or its thumbnail) for rendering
func (c *Client) ImageURL(id string, thumbnail bool) string {
	u := c.baseURL + "/api/images/" + url.PathEscape(id) + "/view"
	if thumbnail {
		u += "?thumbnail=true"
	}
	return u
}

// SignedImageURL asks the server for a short lived link straight to the
// object store
func (c *Client) SignedImageURL(ctx context.Context, id string, thumbnail bool) (string, error) {
	path := "/api/images/" + url.PathEscape(id) + "/url"
	if thumbnail {
		path += "?thumbnail=true"
	}
	var resp struct {
		URL string `json:"url"`
	}
	err := c.do(ctx, http.MethodGet, path, nil, &resp)
	return resp.URL, err
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req, out)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")

	c.mu.RLock()
	if c.userID != "" {
		req.Header.Set(userHeader, c.userID)
	} else if c.sessionID != "" {
		req.Header.Set(sessionHeader, c.sessionID)
	}
	c.mu.RUnlock()

	return req, nil
}

func (c *Client) send(req *http.Request, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(req.Context()); err != nil {
			return fmt.Errorf("rate limiter wait failed: %w", err)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s failed: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{
			StatusCode: resp.StatusCode,
			Method:     req.Method,
			Path:       req.URL.Path,
			Message:    http.StatusText(resp.StatusCode),
		}
		var body struct {
			Error string `json:"error"`
		}
		if json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&body) == nil && body.Error != "" {
			apiErr.Message = body.Error
		}
		return apiErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s %s response: %w", req.Method, req.URL.Path, err)
	}
	return nil
}
