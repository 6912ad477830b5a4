package sqlite

import (
	"database/sql"
	"fmt"

	"github.com/glebk/pizza-bot/internal/domain"
)

// ImageRepository implements domain.ImageRepository using SQLite
type ImageRepository struct {
	db *Database
}

// NewImageRepository creates a new ImageRepository
func NewImageRepository(db *Database) *ImageRepository {
	return &ImageRepository{db: db}
}

// Get retrieves a cached image record
func (r *ImageRepository) Get(imageID string) (*domain.ProductImage, error) {
	query := `
		SELECT image_id, path, source_url
		FROM product_images
		WHERE image_id = ?
	`

	image := &domain.ProductImage{}
	err := r.db.GetDB().QueryRow(query, imageID).Scan(
		&image.ImageID,
		&image.Path,
		&image.SourceURL,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get image: %w", err)
	}

	return image, nil
}

// Save inserts or replaces a cached image record
func (r *ImageRepository) Save(image *domain.ProductImage) error {
	query := `
		INSERT INTO product_images (image_id, path, source_url)
		VALUES (?, ?, ?)
		ON CONFLICT(image_id) DO UPDATE SET path = ?, source_url = ?
	`

	_, err := r.db.GetDB().Exec(query,
		image.ImageID,
		image.Path,
		image.SourceURL,
		image.Path,
		image.SourceURL,
	)
	if err != nil {
		return fmt.Errorf("failed to save image: %w", err)
	}

	return nil
}

// Delete removes a cached image record
func (r *ImageRepository) Delete(imageID string) error {
	_, err := r.db.GetDB().Exec(`DELETE FROM product_images WHERE image_id = ?`, imageID)
	if err != nil {
		return fmt.Errorf("failed to delete image: %w", err)
	}
	return nil
}
