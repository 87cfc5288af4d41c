package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"image-library/internal/domain/gallery"
)

var (
	// ErrVisibilityLocked is returned when an anonymous owner tries to make an
	// upload private
	ErrVisibilityLocked = errors.New("sign in to upload private images")
	ErrNoEntries        = errors.New("no files to review")
)

// FileSource is a file picked for upload
type FileSource struct {
	Filename     string
	ContentType  string
	Size         int64
	LastModified time.Time
	Open         func() (io.ReadCloser, error)
}

// ReviewEntry is a picked file plus the metadata the user edits before upload
type ReviewEntry struct {
	File        FileSource
	Title       string
	Description string
	IsPublic    bool
	FolderID    *string
}

// ReviewSession walks the user through the files picked for upload
type ReviewSession struct {
	gallery *Gallery
	entries []*ReviewEntry
	current int
}

// NewReview starts a review of files. Every entry starts public with empty
// title and description.
func (g *Gallery) NewReview(files ...FileSource) *ReviewSession {
	entries := make([]*ReviewEntry, 0, len(files))
	for _, f := range files {
		entries = append(entries, &ReviewEntry{File: f, IsPublic: true})
	}
	return &ReviewSession{gallery: g, entries: entries}
}

func (s *ReviewSession) Len() int   { return len(s.entries) }
func (s *ReviewSession) Index() int { return s.current }

// Current returns the entry under review, or nil when none are left
func (s *ReviewSession) Current() *ReviewEntry {
	if len(s.entries) == 0 {
		return nil
	}
	return s.entries[s.current]
}

// Next advances to the following entry, wrapping to the first
func (s *ReviewSession) Next() {
	if len(s.entries) == 0 {
		return
	}
	s.current = (s.current + 1) % len(s.entries)
}

// Prev steps back to the previous entry, wrapping to the last
func (s *ReviewSession) Prev() {
	if len(s.entries) == 0 {
		return
	}
	s.current = (s.current - 1 + len(s.entries)) % len(s.entries)
}

// Remove drops the entry at index
func (s *ReviewSession) Remove(index int) error {
	if index < 0 || index >= len(s.entries) {
		return fmt.Errorf("review entry %d out of range [0,%d)", index, len(s.entries))
	}
	s.entries = append(s.entries[:index], s.entries[index+1:]...)
	if s.current >= len(s.entries) && s.current > 0 {
		s.current = len(s.entries) - 1
	}
	return nil
}

func (s *ReviewSession) SetTitle(title string) {
	if e := s.Current(); e != nil {
		e.Title = title
	}
}

func (s *ReviewSession) SetDescription(description string) {
	if e := s.Current(); e != nil {
		e.Description = description
	}
}

// SetFolder files the current entry under folderID, nil for no folder
func (s *ReviewSession) SetFolder(folderID *string) {
	if e := s.Current(); e != nil {
		e.FolderID = folderID
	}
}

// SetVisibility changes whether the current entry is public. Anonymous owners
// can only upload public images.
func (s *ReviewSession) SetVisibility(isPublic bool) error {
	e := s.Current()
	if e == nil {
		return ErrNoEntries
	}
	if !isPublic && s.gallery.Client().Anonymous() {
		return ErrVisibilityLocked
	}
	e.IsPublic = isPublic
	return nil
}

// Upload sends the entries one at a time in order. It stops at the first
// failure, keeps the entries not yet uploaded and returns the images uploaded
// so far.
func (s *ReviewSession) Upload(ctx context.Context) ([]*gallery.Image, error) {
	if len(s.entries) == 0 {
		return nil, ErrNoEntries
	}
	defer s.gallery.Cache().Invalidate(keyImages, keyFolders)

	uploaded := make([]*gallery.Image, 0, len(s.entries))
	for i, e := range s.entries {
		img, err := s.uploadEntry(ctx, e)
		if err != nil {
			s.entries, s.current = s.entries[i:], 0
			return uploaded, fmt.Errorf("failed to upload %s: %w", e.File.Filename, err)
		}
		uploaded = append(uploaded, img)
	}

	s.entries, s.current = nil, 0
	return uploaded, nil
}

func (s *ReviewSession) uploadEntry(ctx context.Context, e *ReviewEntry) (*gallery.Image, error) {
	rc, err := e.File.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	return s.gallery.Client().UploadImage(ctx, Upload{
		Filename:     e.File.Filename,
		ContentType:  e.File.ContentType,
		LastModified: e.File.LastModified,
		Title:        e.Title,
		Description:  e.Description,
		IsPublic:     e.IsPublic,
		FolderID:     e.FolderID,
		Data:         rc,
	})
}
