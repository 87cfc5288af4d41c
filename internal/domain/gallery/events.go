package gallery

import (
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of domain event
type EventType string

const (
	EventFolderCreated      EventType = "folder.created"
	EventFolderUpdated      EventType = "folder.updated"
	EventFolderDeleted      EventType = "folder.deleted"
	EventImageUploaded      EventType = "image.uploaded"
	EventImageUpdated       EventType = "image.updated"
	EventImageDeleted       EventType = "image.deleted"
	EventImagesDeleted      EventType = "images.deleted"
	EventImagesMoved        EventType = "images.moved"
	EventPreferencesUpdated EventType = "preferences.updated"
)

// Event is a domain event in the image library
type Event struct {
	ID          string                 `json:"id"`
	Type        EventType              `json:"type"`
	AggregateID string                 `json:"aggregate_id"`
	OwnerID     string                 `json:"owner_id"`
	Data        map[string]interface{} `json:"data"`
	Timestamp   time.Time              `json:"timestamp"`
}

// NewEvent stamps an event with a fresh id and the current time
func NewEvent(eventType EventType, aggregateID, ownerID string, data map[string]interface{}) *Event {
	if data == nil {
		data = map[string]interface{}{}
	}
	return &Event{
		ID:          uuid.NewString(),
		Type:        eventType,
		AggregateID: aggregateID,
		OwnerID:     ownerID,
		Data:        data,
		Timestamp:   time.Now().UTC(),
	}
}

func NewFolderCreatedEvent(f *Folder) *Event {
	return NewEvent(EventFolderCreated, f.ID, f.OwnerID, map[string]interface{}{
		"title": f.Title,
	})
}

func NewFolderUpdatedEvent(f *Folder) *Event {
	return NewEvent(EventFolderUpdated, f.ID, f.OwnerID, map[string]interface{}{
		"title": f.Title,
	})
}

func NewFolderDeletedEvent(ownerID, folderID string, detached int64) *Event {
	return NewEvent(EventFolderDeleted, folderID, ownerID, map[string]interface{}{
		"detached_images": detached,
	})
}

func NewImageUploadedEvent(img *Image) *Event {
	data := map[string]interface{}{
		"filename":     img.Filename,
		"content_type": img.ContentType,
		"file_size":    img.FileSize,
		"is_public":    img.IsPublic,
	}
	if img.FolderID != nil {
		data["folder_id"] = *img.FolderID
	}
	return NewEvent(EventImageUploaded, img.ID, img.OwnerID, data)
}

func NewImageUpdatedEvent(img *Image) *Event {
	return NewEvent(EventImageUpdated, img.ID, img.OwnerID, map[string]interface{}{
		"title":     img.Title,
		"is_public": img.IsPublic,
	})
}

func NewImageDeletedEvent(img *Image) *Event {
	return NewEvent(EventImageDeleted, img.ID, img.OwnerID, map[string]interface{}{
		"filename":     img.Filename,
		"storage_path": img.StoragePath,
	})
}

// NewImagesDeletedEvent covers a bulk deletion; the aggregate is the owner
func NewImagesDeletedEvent(ownerID string, ids []string) *Event {
	return NewEvent(EventImagesDeleted, ownerID, ownerID, map[string]interface{}{
		"image_ids": ids,
		"count":     len(ids),
	})
}

func NewImagesMovedEvent(ownerID string, ids []string, folderID *string) *Event {
	data := map[string]interface{}{
		"image_ids": ids,
		"count":     len(ids),
	}
	if folderID != nil {
		data["folder_id"] = *folderID
	}
	return NewEvent(EventImagesMoved, ownerID, ownerID, data)
}

func NewPreferencesUpdatedEvent(p *Preferences) *Event {
	return NewEvent(EventPreferencesUpdated, p.OwnerID, p.OwnerID, map[string]interface{}{
		"hide_private_images": p.HidePrivateImages,
	})
}
