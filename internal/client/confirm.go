package client

import (
	"context"
	"errors"
)

// DeleteKind is what a DeleteConfirmation removes
type DeleteKind int

const (
	DeleteOneImage DeleteKind = iota
	DeleteSelectedImages
	DeleteOneFolder
)

// ErrConfirmationClosed is returned when a confirmation is answered twice
var ErrConfirmationClosed = errors.New("confirmation already answered")

// DeleteConfirmation gates a deletion behind an explicit yes
type DeleteConfirmation struct {
	gallery *Gallery
	kind    DeleteKind
	target  string
	open    bool
}

// ConfirmDeleteImage asks before deleting one image
func (g *Gallery) ConfirmDeleteImage(id string) *DeleteConfirmation {
	return &DeleteConfirmation{gallery: g, kind: DeleteOneImage, target: id, open: true}
}

// ConfirmDeleteSelected asks before deleting the current selection
func (g *Gallery) ConfirmDeleteSelected() *DeleteConfirmation {
	return &DeleteConfirmation{gallery: g, kind: DeleteSelectedImages, open: true}
}

// ConfirmDeleteFolder asks before deleting a folder
func (g *Gallery) ConfirmDeleteFolder(id string) *DeleteConfirmation {
	return &DeleteConfirmation{gallery: g, kind: DeleteOneFolder, target: id, open: true}
}

func (c *DeleteConfirmation) Kind() DeleteKind { return c.kind }

// Open reports whether the confirmation still awaits an answer
func (c *DeleteConfirmation) Open() bool { return c.open }

// Prompt is the question shown to the user
func (c *DeleteConfirmation) Prompt() string {
	switch c.kind {
	case DeleteSelectedImages:
		return "Are you sure you want to delete these images?"
	case DeleteOneFolder:
		return "Are you sure you want to delete this folder?"
	default:
		return "Are you sure you want to delete this image?"
	}
}

// Confirm performs the deletion
func (c *DeleteConfirmation) Confirm(ctx context.Context) error {
	if !c.open {
		return ErrConfirmationClosed
	}
	c.open = false

	switch c.kind {
	case DeleteSelectedImages:
		_, err := c.gallery.DeleteSelected(ctx)
		return err
	case DeleteOneFolder:
		return c.gallery.DeleteFolder(ctx, c.target)
	default:
		return c.gallery.DeleteImage(ctx, c.target)
	}
}

// Keep dismisses the confirmation without deleting anything
func (c *DeleteConfirmation) Keep() {
	c.open = false
}
