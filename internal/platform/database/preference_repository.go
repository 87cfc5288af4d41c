package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"image-library/internal/domain/gallery"
)

type preferenceRepository struct {
	db *sql.DB
}

// NewPreferenceRepository returns a Postgres backed gallery.PreferenceRepository
func NewPreferenceRepository(db *sql.DB) gallery.PreferenceRepository {
	return &preferenceRepository{db: db}
}

func (r *preferenceRepository) Get(ctx context.Context, ownerID string) (*gallery.Preferences, error) {
	prefs := &gallery.Preferences{}
	err := r.db.QueryRowContext(ctx,
		`SELECT owner_id, hide_private_images, updated_at FROM owner_preferences WHERE owner_id = $1`,
		ownerID,
	).Scan(&prefs.OwnerID, &prefs.HidePrivateImages, &prefs.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return gallery.DefaultPreferences(ownerID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get preferences: %w", err)
	}
	return prefs, nil
}

func (r *preferenceRepository) SetHidePrivateImages(ctx context.Context, ownerID string, hide bool) (*gallery.Preferences, error) {
	query := `
		INSERT INTO owner_preferences (owner_id, hide_private_images)
		VALUES ($1, $2)
		ON CONFLICT (owner_id) DO UPDATE
			SET hide_private_images = EXCLUDED.hide_private_images, updated_at = NOW()
		RETURNING owner_id, hide_private_images, updated_at
	`

	prefs := &gallery.Preferences{}
	if err := r.db.QueryRowContext(ctx, query, ownerID, hide).
		Scan(&prefs.OwnerID, &prefs.HidePrivateImages, &prefs.UpdatedAt); err != nil {
		return nil, fmt.Errorf("failed to save preferences: %w", err)
	}
	return prefs, nil
}
