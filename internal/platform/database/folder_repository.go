package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"image-library/internal/domain/gallery"
)

type folderRepository struct {
	db *sql.DB
}

// NewFolderRepository returns a Postgres backed gallery.FolderRepository
func NewFolderRepository(db *sql.DB) gallery.FolderRepository {
	return &folderRepository{db: db}
}

func (r *folderRepository) Create(ctx context.Context, folder *gallery.Folder) error {
	query := `
		INSERT INTO folders (id, owner_id, title, description)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		folder.ID,
		folder.OwnerID,
		folder.Title,
		folder.Description,
	).Scan(&folder.CreatedAt, &folder.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: folder %s already exists", gallery.ErrInvalidRequest, folder.ID)
		}
		return fmt.Errorf("failed to create folder: %w", err)
	}
	return nil
}

func (r *folderRepository) GetByID(ctx context.Context, ownerID, id string) (*gallery.Folder, error) {
	query := `
		SELECT f.id, f.owner_id, f.title, f.description, f.created_at, f.updated_at,
			   (SELECT COUNT(*) FROM images i WHERE i.folder_id = f.id AND i.owner_id = f.owner_id)
		FROM folders f
		WHERE f.owner_id = $1 AND f.id = $2
	`

	folder := &gallery.Folder{}
	err := r.db.QueryRowContext(ctx, query, ownerID, id).Scan(
		&folder.ID,
		&folder.OwnerID,
		&folder.Title,
		&folder.Description,
		&folder.CreatedAt,
		&folder.UpdatedAt,
		&folder.ImageCount,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, gallery.ErrFolderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get folder: %w", err)
	}
	return folder, nil
}

func (r *folderRepository) ListByOwner(ctx context.Context, ownerID string) ([]*gallery.Folder, error) {
	query := `
		SELECT f.id, f.owner_id, f.title, f.description, f.created_at, f.updated_at,
			   COUNT(i.id) AS image_count
		FROM folders f
		LEFT JOIN images i ON i.folder_id = f.id AND i.owner_id = f.owner_id
		WHERE f.owner_id = $1
		GROUP BY f.id
		ORDER BY LOWER(f.title), f.created_at
	`

	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list folders: %w", err)
	}
	defer rows.Close()

	folders := make([]*gallery.Folder, 0)
	for rows.Next() {
		folder := &gallery.Folder{}
		if err := rows.Scan(
			&folder.ID,
			&folder.OwnerID,
			&folder.Title,
			&folder.Description,
			&folder.CreatedAt,
			&folder.UpdatedAt,
			&folder.ImageCount,
		); err != nil {
			return nil, fmt.Errorf("failed to scan folder: %w", err)
		}
		folders = append(folders, folder)
	}
	return folders, rows.Err()
}

func (r *folderRepository) Update(ctx context.Context, folder *gallery.Folder) error {
	query := `
		UPDATE folders SET title = $3, description = $4
		WHERE owner_id = $1 AND id = $2
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		folder.OwnerID,
		folder.ID,
		folder.Title,
		folder.Description,
	).Scan(&folder.CreatedAt, &folder.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return gallery.ErrFolderNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update folder: %w", err)
	}
	return nil
}

// Delete detaches the folder's images before removing it so no image is
// ever deleted along with its folder.
func (r *folderRepository) Delete(ctx context.Context, ownerID, id string) (int64, error) {
	var detached int64

	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			`UPDATE images SET folder_id = NULL WHERE owner_id = $1 AND folder_id = $2`,
			ownerID, id,
		)
		if err != nil {
			return fmt.Errorf("failed to detach images: %w", err)
		}
		if detached, err = result.RowsAffected(); err != nil {
			return err
		}

		result, err = tx.ExecContext(ctx,
			`DELETE FROM folders WHERE owner_id = $1 AND id = $2`,
			ownerID, id,
		)
		if err != nil {
			return fmt.Errorf("failed to delete folder: %w", err)
		}
		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if rowsAffected == 0 {
			return gallery.ErrFolderNotFound
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return detached, nil
}
