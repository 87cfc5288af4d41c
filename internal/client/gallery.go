package client

import (
	"context"
	"errors"
	"slices"
	"sync"

	"image-library/internal/domain/gallery"
)

// Success messages shown after a mutation settles
const (
	MsgImageDeleted  = "Image deleted"
	MsgImagesDeleted = "Images deleted"
	MsgFolderDeleted = "Folder deleted"
	MsgImagesMoved   = "Images moved"
	MsgFolderSaved   = "Folder saved"
)

// ErrEmptySelection is returned by bulk actions with nothing selected
var ErrEmptySelection = errors.New("no images selected")

// Notifier receives success messages
type Notifier func(message string)

// Gallery keeps the owner's folders, images and preferences in a QueryCache
// and applies every mutation optimistically.
type Gallery struct {
	client    *Client
	cache     *QueryCache
	selection *Selection
	notify    Notifier

	mu             sync.Mutex
	selectedFolder string
}

// GalleryOption configures a Gallery
type GalleryOption func(*Gallery)

// WithNotifier routes success messages to fn
func WithNotifier(fn Notifier) GalleryOption {
	return func(g *Gallery) { g.notify = fn }
}

// WithCache shares a QueryCache between galleries
func WithCache(cache *QueryCache) GalleryOption {
	return func(g *Gallery) { g.cache = cache }
}

func NewGallery(c *Client, opts ...GalleryOption) *Gallery {
	g := &Gallery{
		client:    c,
		cache:     NewQueryCache(),
		selection: NewSelection(),
		notify:    func(string) {},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Gallery) Client() *Client       { return g.client }
func (g *Gallery) Cache() *QueryCache    { return g.cache }
func (g *Gallery) Selection() *Selection { return g.selection }

// SelectFolder records the folder the user is browsing
func (g *Gallery) SelectFolder(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.selectedFolder = id
}

func (g *Gallery) SelectedFolder() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.selectedFolder
}

// Folders returns the owner's folders, fetching when the cache is stale
func (g *Gallery) Folders(ctx context.Context) ([]*gallery.Folder, error) {
	return FetchAs(ctx, g.cache, keyFolders, g.client.Folders)
}

// Images returns the images of folder (see Client.Images for its values)
func (g *Gallery) Images(ctx context.Context, folder string) ([]*gallery.Image, error) {
	return FetchAs(ctx, g.cache, imagesKey(folder), func(ctx context.Context) ([]*gallery.Image, error) {
		return g.client.Images(ctx, folder)
	})
}

// HidePrivate returns the hide-private-images preference
func (g *Gallery) HidePrivate(ctx context.Context) (bool, error) {
	return FetchAs(ctx, g.cache, keyHidePrivate, g.client.HidePrivateImages)
}

type folderVars struct {
	id          string
	title       string
	description *string
}

func (g *Gallery) CreateFolder(ctx context.Context, title string, description *string) (*gallery.Folder, error) {
	m := Mutation[folderVars, *gallery.Folder]{
		Cache: g.cache,
		Keys:  func(folderVars) []string { return []string{keyFolders} },
		Optimistic: func(v folderVars) {
			g.cache.UpdateData(keyFolders, func(data any) any {
				folders, _ := data.([]*gallery.Folder)
				return append(slices.Clone(folders), &gallery.Folder{
					OwnerID:     g.client.Owner(),
					Title:       v.title,
					Description: v.description,
				})
			})
		},
		Fn: func(ctx context.Context, v folderVars) (*gallery.Folder, error) {
			return g.client.CreateFolder(ctx, v.title, v.description)
		},
		Invalidate: []string{keyFolders},
	}
	return m.Run(ctx, folderVars{title: title, description: description})
}

func (g *Gallery) UpdateFolder(ctx context.Context, id, title string, description *string) (*gallery.Folder, error) {
	m := Mutation[folderVars, *gallery.Folder]{
		Cache: g.cache,
		Keys:  func(folderVars) []string { return []string{keyFolders} },
		Optimistic: func(v folderVars) {
			g.cache.UpdateData(keyFolders, func(data any) any {
				folders, _ := data.([]*gallery.Folder)
				out := make([]*gallery.Folder, len(folders))
				for i, f := range folders {
					if f.ID == v.id {
						updated := *f
						updated.Title, updated.Description = v.title, v.description
						f = &updated
					}
					out[i] = f
				}
				return out
			})
		},
		Fn: func(ctx context.Context, v folderVars) (*gallery.Folder, error) {
			return g.client.UpdateFolder(ctx, v.id, v.title, v.description)
		},
		Invalidate: []string{keyFolders},
		OnSuccess:  func(folderVars, *gallery.Folder) { g.notify(MsgFolderSaved) },
	}
	return m.Run(ctx, folderVars{id: id, title: title, description: description})
}

// DeleteFolder removes a folder. Its images stay, detached from any folder,
// so image lists are refetched as well.
func (g *Gallery) DeleteFolder(ctx context.Context, id string) error {
	m := Mutation[string, struct{}]{
		Cache: g.cache,
		Keys: func(id string) []string {
			return []string{keyFolders, imagesKey(id)}
		},
		Optimistic: func(id string) {
			g.cache.UpdateData(keyFolders, func(data any) any {
				folders, _ := data.([]*gallery.Folder)
				return slices.DeleteFunc(slices.Clone(folders), func(f *gallery.Folder) bool { return f.ID == id })
			})
		},
		Fn: func(ctx context.Context, id string) (struct{}, error) {
			return struct{}{}, g.client.DeleteFolder(ctx, id)
		},
		Invalidate: []string{keyFolders, keyImages},
		OnSuccess: func(id string, _ struct{}) {
			g.mu.Lock()
			if g.selectedFolder == id {
				g.selectedFolder = ""
			}
			g.mu.Unlock()
			g.notify(MsgFolderDeleted)
		},
	}
	_, err := m.Run(ctx, id)
	return err
}

// removeImages drops ids from every cached image list
func (g *Gallery) removeImages(ids []string) {
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	for _, key := range g.cache.Keys(keyImages) {
		g.cache.UpdateData(key, func(data any) any {
			images, _ := data.([]*gallery.Image)
			return slices.DeleteFunc(slices.Clone(images), func(img *gallery.Image) bool {
				_, ok := drop[img.ID]
				return ok
			})
		})
	}
}

func (g *Gallery) imageKeys([]string) []string {
	return append(g.cache.Keys(keyImages), keyFolders)
}

func (g *Gallery) DeleteImage(ctx context.Context, id string) error {
	m := Mutation[[]string, struct{}]{
		Cache:      g.cache,
		Keys:       g.imageKeys,
		Optimistic: g.removeImages,
		Fn: func(ctx context.Context, ids []string) (struct{}, error) {
			return struct{}{}, g.client.DeleteImage(ctx, ids[0])
		},
		Invalidate: []string{keyImages, keyFolders},
		OnSuccess: func(ids []string, _ struct{}) {
			g.selection.Remove(ids...)
			g.notify(MsgImageDeleted)
		},
	}
	_, err := m.Run(ctx, []string{id})
	return err
}

// DeleteSelected deletes every selected image and clears the selection
func (g *Gallery) DeleteSelected(ctx context.Context) (int, error) {
	ids := g.selection.IDs()
	if len(ids) == 0 {
		return 0, ErrEmptySelection
	}

	m := Mutation[[]string, int]{
		Cache:      g.cache,
		Keys:       g.imageKeys,
		Optimistic: g.removeImages,
		Fn:         g.client.DeleteImages,
		Invalidate: []string{keyImages, keyFolders},
		OnSuccess:  func([]string, int) { g.notify(MsgImagesDeleted) },
		OnSettled:  func([]string, error) { g.selection.Clear() },
	}
	return m.Run(ctx, ids)
}

type moveVars struct {
	ids      []string
	folderID *string
}

// MoveSelected files the selection under folderID, or out of any folder when
// folderID is nil, and clears the selection.
func (g *Gallery) MoveSelected(ctx context.Context, folderID *string) (int, error) {
	ids := g.selection.IDs()
	if len(ids) == 0 {
		return 0, ErrEmptySelection
	}

	m := Mutation[moveVars, int]{
		Cache: g.cache,
		Keys:  func(moveVars) []string { return g.imageKeys(nil) },
		Optimistic: func(v moveVars) {
			moving := make(map[string]struct{}, len(v.ids))
			for _, id := range v.ids {
				moving[id] = struct{}{}
			}
			for _, key := range g.cache.Keys(keyImages) {
				g.cache.UpdateData(key, func(data any) any {
					images, _ := data.([]*gallery.Image)
					out := make([]*gallery.Image, 0, len(images))
					for _, img := range images {
						if _, ok := moving[img.ID]; ok {
							moved := *img
							moved.FolderID = v.folderID
							if !inImageList(key, &moved) {
								continue
							}
							img = &moved
						}
						out = append(out, img)
					}
					return out
				})
			}
		},
		Fn: func(ctx context.Context, v moveVars) (int, error) {
			return g.client.MoveImages(ctx, v.ids, v.folderID)
		},
		Invalidate: []string{keyImages, keyFolders},
		OnSuccess:  func(moveVars, int) { g.notify(MsgImagesMoved) },
		OnSettled:  func(moveVars, error) { g.selection.Clear() },
	}
	return m.Run(ctx, moveVars{ids: ids, folderID: folderID})
}

// inImageList reports whether img belongs in the list cached under key
func inImageList(key string, img *gallery.Image) bool {
	switch key {
	case imagesKey(""):
		return true
	case imagesKey(gallery.UnfiledFolderFilter):
		return img.FolderID == nil
	default:
		return img.FolderID != nil && imagesKey(*img.FolderID) == key
	}
}

// ToggleHidePrivate stores the hide-private-images preference
func (g *Gallery) ToggleHidePrivate(ctx context.Context, newValue bool) (bool, error) {
	m := Mutation[bool, bool]{
		Cache:      g.cache,
		Keys:       func(bool) []string { return []string{keyHidePrivate} },
		Optimistic: func(v bool) { g.cache.SetData(keyHidePrivate, v) },
		Fn:         g.client.SetHidePrivateImages,
		Invalidate: []string{keyHidePrivate, keyImages},
	}
	return m.Run(ctx, newValue)
}
