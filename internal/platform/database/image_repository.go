package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"image-library/internal/domain/gallery"
)

const imageColumns = `id, owner_id, folder_id, filename, content_type, file_size,
	storage_path, thumbnail_path, width, height, title, description,
	is_public, last_modified, created_at, updated_at`

type imageRepository struct {
	db *sql.DB
}

// NewImageRepository returns a Postgres backed gallery.ImageRepository
func NewImageRepository(db *sql.DB) gallery.ImageRepository {
	return &imageRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanImage(row rowScanner) (*gallery.Image, error) {
	img := &gallery.Image{}
	err := row.Scan(
		&img.ID,
		&img.OwnerID,
		&img.FolderID,
		&img.Filename,
		&img.ContentType,
		&img.FileSize,
		&img.StoragePath,
		&img.ThumbnailPath,
		&img.Width,
		&img.Height,
		&img.Title,
		&img.Description,
		&img.IsPublic,
		&img.LastModified,
		&img.CreatedAt,
		&img.UpdatedAt,
	)
	return img, err
}

func scanImages(rows *sql.Rows) ([]*gallery.Image, error) {
	defer rows.Close()

	images := make([]*gallery.Image, 0)
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan image: %w", err)
		}
		images = append(images, img)
	}
	return images, rows.Err()
}

func (r *imageRepository) Create(ctx context.Context, img *gallery.Image) error {
	query := `
		INSERT INTO images (
			id, owner_id, folder_id, filename, content_type, file_size,
			storage_path, thumbnail_path, width, height, title, description,
			is_public, last_modified
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		img.ID,
		img.OwnerID,
		img.FolderID,
		img.Filename,
		img.ContentType,
		img.FileSize,
		img.StoragePath,
		img.ThumbnailPath,
		img.Width,
		img.Height,
		img.Title,
		img.Description,
		img.IsPublic,
		img.LastModified,
	).Scan(&img.CreatedAt, &img.UpdatedAt)
	if err != nil {
		switch {
		case isForeignKeyViolation(err):
			return gallery.ErrFolderNotFound
		case isUniqueViolation(err):
			return fmt.Errorf("%w: image %s already exists", gallery.ErrInvalidRequest, img.ID)
		}
		return fmt.Errorf("failed to create image: %w", err)
	}
	return nil
}

func (r *imageRepository) GetByID(ctx context.Context, id string) (*gallery.Image, error) {
	query := `SELECT ` + imageColumns + ` FROM images WHERE id = $1`

	img, err := scanImage(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, gallery.ErrImageNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get image: %w", err)
	}
	return img, nil
}

// buildListQuery assembles the filtered listing for req
func buildListQuery(req *gallery.ListImagesRequest) (string, []interface{}) {
	conditions := []string{"owner_id = $1"}
	args := []interface{}{req.OwnerID}

	switch {
	case req.FolderID != nil:
		args = append(args, *req.FolderID)
		conditions = append(conditions, fmt.Sprintf("folder_id = $%d", len(args)))
	case req.Unfiled:
		conditions = append(conditions, "folder_id IS NULL")
	}

	if !req.IncludePrivate {
		conditions = append(conditions, "is_public = TRUE")
	}

	query := `SELECT ` + imageColumns + ` FROM images WHERE ` +
		strings.Join(conditions, " AND ") +
		` ORDER BY created_at DESC, id`
	return query, args
}

func (r *imageRepository) List(ctx context.Context, req *gallery.ListImagesRequest) ([]*gallery.Image, error) {
	query, args := buildListQuery(req)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}
	return scanImages(rows)
}

func (r *imageRepository) Update(ctx context.Context, img *gallery.Image) error {
	query := `
		UPDATE images SET title = $3, description = $4, is_public = $5
		WHERE owner_id = $1 AND id = $2
		RETURNING updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		img.OwnerID,
		img.ID,
		img.Title,
		img.Description,
		img.IsPublic,
	).Scan(&img.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return gallery.ErrImageNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update image: %w", err)
	}
	return nil
}

func (r *imageRepository) Delete(ctx context.Context, ownerID, id string) (*gallery.Image, error) {
	query := `DELETE FROM images WHERE owner_id = $1 AND id = $2 RETURNING ` + imageColumns

	img, err := scanImage(r.db.QueryRowContext(ctx, query, ownerID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, gallery.ErrImageNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to delete image: %w", err)
	}
	return img, nil
}

func (r *imageRepository) DeleteMany(ctx context.Context, ownerID string, ids []string) ([]*gallery.Image, error) {
	var deleted []*gallery.Image

	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx,
			`DELETE FROM images WHERE owner_id = $1 AND id = ANY($2) RETURNING `+imageColumns,
			ownerID, pq.Array(ids),
		)
		if err != nil {
			return fmt.Errorf("failed to delete images: %w", err)
		}
		if deleted, err = scanImages(rows); err != nil {
			return err
		}
		if len(deleted) != len(ids) {
			return fmt.Errorf("%w: %d of %d selected images exist", gallery.ErrImageNotFound, len(deleted), len(ids))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}

func (r *imageRepository) MoveMany(ctx context.Context, ownerID string, ids []string, folderID *string) (int64, error) {
	var moved int64

	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		if folderID != nil {
			var exists bool
			if err := tx.QueryRowContext(ctx,
				`SELECT EXISTS(SELECT 1 FROM folders WHERE owner_id = $1 AND id = $2)`,
				ownerID, *folderID,
			).Scan(&exists); err != nil {
				return fmt.Errorf("failed to check folder: %w", err)
			}
			if !exists {
				return gallery.ErrFolderNotFound
			}
		}

		result, err := tx.ExecContext(ctx,
			`UPDATE images SET folder_id = $3 WHERE owner_id = $1 AND id = ANY($2)`,
			ownerID, pq.Array(ids), folderID,
		)
		if err != nil {
			if isForeignKeyViolation(err) {
				return gallery.ErrFolderNotFound
			}
			return fmt.Errorf("failed to move images: %w", err)
		}
		if moved, err = result.RowsAffected(); err != nil {
			return err
		}
		if moved != int64(len(ids)) {
			return fmt.Errorf("%w: %d of %d selected images exist", gallery.ErrImageNotFound, moved, len(ids))
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return moved, nil
}
