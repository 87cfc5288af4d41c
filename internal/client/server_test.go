package client

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"sync"
	"testing"
	"time"

	"image-library/internal/domain/gallery"
)

// fakeLibrary is an in-memory stand-in for the HTTP procedures
type fakeLibrary struct {
	mu          sync.Mutex
	folders     map[string]*gallery.Folder
	images      map[string]*gallery.Image
	hidePrivate bool
	nextID      int
	failures    map[string]int
	calls       []string
	owners      []string
}

func newFakeLibrary(t *testing.T) (*fakeLibrary, *httptest.Server) {
	t.Helper()
	f := &fakeLibrary{
		folders:     map[string]*gallery.Folder{},
		images:      map[string]*gallery.Image{},
		hidePrivate: true,
		failures:    map[string]int{},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/sessions", f.session)
	mux.HandleFunc("GET /api/folders", f.listFolders)
	mux.HandleFunc("POST /api/folders", f.createFolder)
	mux.HandleFunc("PUT /api/folders/{id}", f.updateFolder)
	mux.HandleFunc("DELETE /api/folders/{id}", f.deleteFolder)
	mux.HandleFunc("GET /api/folders/{id}/images", f.folderImages)
	mux.HandleFunc("GET /api/images", f.listImages)
	mux.HandleFunc("POST /api/images", f.upload)
	mux.HandleFunc("DELETE /api/images/{id}", f.deleteImage)
	mux.HandleFunc("GET /api/images/{id}/url", f.signedURL)
	mux.HandleFunc("POST /api/images/delete", f.deleteImages)
	mux.HandleFunc("POST /api/images/move", f.moveImages)
	mux.HandleFunc("GET /api/users/preferences/hide-private", f.getHidePrivate)
	mux.HandleFunc("PUT /api/users/preferences/hide-private", f.setHidePrivate)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := r.Method + " " + r.URL.Path
		f.mu.Lock()
		f.calls = append(f.calls, route)
		owner := r.Header.Get("X-User-ID")
		if owner == "" {
			owner = r.Header.Get("X-Session-ID")
		}
		f.owners = append(f.owners, owner)
		status, fail := f.failures[route]
		f.mu.Unlock()

		if fail {
			writeTestJSON(w, status, map[string]string{"error": http.StatusText(status)})
			return
		}
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)
	return f, srv
}

func writeTestJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (f *fakeLibrary) failOn(route string, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[route] = status
}

func (f *fakeLibrary) callCount(route string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == route {
			n++
		}
	}
	return n
}

func (f *fakeLibrary) id(prefix string) string {
	f.nextID++
	return prefix + strconv.Itoa(f.nextID)
}

func (f *fakeLibrary) addFolder(title string) *gallery.Folder {
	f.mu.Lock()
	defer f.mu.Unlock()
	folder := &gallery.Folder{ID: f.id("f"), Title: title}
	f.folders[folder.ID] = folder
	return folder
}

func (f *fakeLibrary) addImage(folderID *string) *gallery.Image {
	f.mu.Lock()
	defer f.mu.Unlock()
	img := &gallery.Image{ID: f.id("i"), FolderID: folderID, IsPublic: true, Filename: "x.png"}
	f.images[img.ID] = img
	return img
}

func (f *fakeLibrary) image(id string) (*gallery.Image, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	img, ok := f.images[id]
	if !ok {
		return nil, false
	}
	cp := *img
	return &cp, true
}

func (f *fakeLibrary) session(w http.ResponseWriter, r *http.Request) {
	writeTestJSON(w, http.StatusCreated, map[string]any{
		"ownerId":   "anon_6f1c2a52-1b7e-4c55-a1e2-8e0b9f3f4d11",
		"anonymous": true,
	})
}

func (f *fakeLibrary) listFolders(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*gallery.Folder, 0, len(f.folders))
	for _, folder := range f.folders {
		out = append(out, folder)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	writeTestJSON(w, http.StatusOK, out)
}

func (f *fakeLibrary) createFolder(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Title       string  `json:"title"`
		Description *string `json:"description"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)
	f.mu.Lock()
	folder := &gallery.Folder{ID: f.id("f"), Title: body.Title, Description: body.Description}
	f.folders[folder.ID] = folder
	f.mu.Unlock()
	writeTestJSON(w, http.StatusCreated, folder)
}

func (f *fakeLibrary) updateFolder(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Title       string  `json:"title"`
		Description *string `json:"description"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)
	f.mu.Lock()
	defer f.mu.Unlock()
	folder, ok := f.folders[r.PathValue("id")]
	if !ok {
		writeTestJSON(w, http.StatusNotFound, map[string]string{"error": "folder not found"})
		return
	}
	folder.Title, folder.Description = body.Title, body.Description
	writeTestJSON(w, http.StatusOK, folder)
}

func (f *fakeLibrary) deleteFolder(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := r.PathValue("id")
	if _, ok := f.folders[id]; !ok {
		writeTestJSON(w, http.StatusNotFound, map[string]string{"error": "folder not found"})
		return
	}
	delete(f.folders, id)
	for _, img := range f.images {
		if img.FolderID != nil && *img.FolderID == id {
			img.FolderID = nil
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (f *fakeLibrary) filterImages(match func(*gallery.Image) bool) []*gallery.Image {
	out := []*gallery.Image{}
	for _, img := range f.images {
		if match(img) {
			cp := *img
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f *fakeLibrary) folderImages(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := r.PathValue("id")
	writeTestJSON(w, http.StatusOK, f.filterImages(func(img *gallery.Image) bool {
		return img.FolderID != nil && *img.FolderID == id
	}))
}

func (f *fakeLibrary) listImages(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	folder := r.URL.Query().Get("folder")
	writeTestJSON(w, http.StatusOK, f.filterImages(func(img *gallery.Image) bool {
		if f.hidePrivate && !img.IsPublic {
			return false
		}
		switch folder {
		case "":
			return true
		case gallery.UnfiledFolderFilter:
			return img.FolderID == nil
		default:
			return img.FolderID != nil && *img.FolderID == folder
		}
	}))
}

func (f *fakeLibrary) upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		writeTestJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeTestJSON(w, http.StatusBadRequest, map[string]string{"error": "no file uploaded"})
		return
	}
	defer file.Close()
	data, _ := io.ReadAll(file)

	isPublic, _ := strconv.ParseBool(r.FormValue("isPublic"))
	img := &gallery.Image{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		FileSize:    int64(len(data)),
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		IsPublic:    isPublic,
	}
	if v := r.FormValue("folderId"); v != "" {
		img.FolderID = &v
	}
	if ms, err := strconv.ParseInt(r.FormValue("lastModified"), 10, 64); err == nil {
		img.LastModified = time.UnixMilli(ms).UTC()
	}

	f.mu.Lock()
	img.ID = f.id("i")
	f.images[img.ID] = img
	f.mu.Unlock()
	writeTestJSON(w, http.StatusCreated, img)
}

func (f *fakeLibrary) signedURL(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := r.PathValue("id")
	if _, ok := f.images[id]; !ok {
		writeTestJSON(w, http.StatusNotFound, map[string]string{"error": "image not found"})
		return
	}
	u := "https://objects.test/" + id
	if r.URL.Query().Get("thumbnail") == "true" {
		u += "/thumbnail"
	}
	writeTestJSON(w, http.StatusOK, map[string]string{"url": u})
}

func (f *fakeLibrary) deleteImage(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := r.PathValue("id")
	if _, ok := f.images[id]; !ok {
		writeTestJSON(w, http.StatusNotFound, map[string]string{"error": "image not found"})
		return
	}
	delete(f.images, id)
	w.WriteHeader(http.StatusNoContent)
}

func (f *fakeLibrary) deleteImages(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ImageIDs []string `json:"imageIds"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range body.ImageIDs {
		if _, ok := f.images[id]; !ok {
			writeTestJSON(w, http.StatusNotFound, map[string]string{"error": fmt.Sprintf("image not found: %s", id)})
			return
		}
	}
	for _, id := range body.ImageIDs {
		delete(f.images, id)
	}
	writeTestJSON(w, http.StatusOK, map[string]int{"deleted": len(body.ImageIDs)})
}

func (f *fakeLibrary) moveImages(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ImageIDs []string `json:"imageIds"`
		FolderID *string  `json:"folderId"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)
	f.mu.Lock()
	defer f.mu.Unlock()
	if body.FolderID != nil {
		if _, ok := f.folders[*body.FolderID]; !ok {
			writeTestJSON(w, http.StatusNotFound, map[string]string{"error": "folder not found"})
			return
		}
	}
	for _, id := range body.ImageIDs {
		if img, ok := f.images[id]; ok {
			img.FolderID = body.FolderID
		}
	}
	writeTestJSON(w, http.StatusOK, map[string]int{"moved": len(body.ImageIDs)})
}

func (f *fakeLibrary) getHidePrivate(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	writeTestJSON(w, http.StatusOK, map[string]bool{"hidePrivateImages": f.hidePrivate})
}

func (f *fakeLibrary) setHidePrivate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		NewValue bool `json:"newValue"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hidePrivate = body.NewValue
	writeTestJSON(w, http.StatusOK, map[string]bool{"hidePrivateImages": f.hidePrivate})
}
