package client

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"image-library/internal/domain/gallery"
)

// ErrNoTarget is returned when a move is confirmed without a chosen folder
var ErrNoTarget = errors.New("no target folder selected")

// MoveTarget is one choice in the move dialog. Existing folders carry their
// id in Value; a folder typed in by the user has Value equal to Label until
// it is created. Unfiled marks the choice that moves images out of any folder.
type MoveTarget struct {
	Label   string
	Value   string
	Unfiled bool
}

// NewFolderTarget is a target the user typed in
func NewFolderTarget(label string) MoveTarget {
	label = strings.TrimSpace(label)
	return MoveTarget{Label: label, Value: label}
}

// UnfiledTarget moves images out of any folder
func UnfiledTarget() MoveTarget {
	return MoveTarget{Label: "No folder", Value: gallery.UnfiledFolderFilter, Unfiled: true}
}

// IsNew reports whether the folder must be created before moving
func (t MoveTarget) IsNew() bool {
	return !t.Unfiled && t.Value == t.Label
}

// MoveDialog moves the current selection into a folder, creating the folder
// first when the target is new.
type MoveDialog struct {
	gallery *Gallery
	target  *MoveTarget
}

func (g *Gallery) MoveDialog() *MoveDialog {
	return &MoveDialog{gallery: g}
}

// Options lists the existing folders as targets
func (d *MoveDialog) Options(ctx context.Context) ([]MoveTarget, error) {
	folders, err := d.gallery.Folders(ctx)
	if err != nil {
		return nil, err
	}
	targets := make([]MoveTarget, 0, len(folders)+1)
	targets = append(targets, UnfiledTarget())
	for _, f := range folders {
		if f.ID == "" {
			continue
		}
		targets = append(targets, MoveTarget{Label: f.Title, Value: f.ID})
	}
	return targets, nil
}

func (d *MoveDialog) Select(t MoveTarget) {
	d.target = &t
}

func (d *MoveDialog) Clear() {
	d.target = nil
}

// CanConfirm reports whether a target has been chosen
func (d *MoveDialog) CanConfirm() bool {
	return d.target != nil && d.target.Value != ""
}

// Confirm performs the move and returns how many images were moved
func (d *MoveDialog) Confirm(ctx context.Context) (int, error) {
	if !d.CanConfirm() {
		return 0, ErrNoTarget
	}
	if d.gallery.Selection().Len() == 0 {
		return 0, ErrEmptySelection
	}

	target := *d.target
	var folderID *string
	switch {
	case target.Unfiled:
	case target.IsNew():
		folder, err := d.gallery.CreateFolder(ctx, target.Label, nil)
		if err != nil {
			return 0, fmt.Errorf("failed to create folder %q: %w", target.Label, err)
		}
		folderID = &folder.ID
	default:
		folderID = &target.Value
	}

	moved, err := d.gallery.MoveSelected(ctx, folderID)
	if err != nil {
		return 0, err
	}
	d.target = nil
	return moved, nil
}
