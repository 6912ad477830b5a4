package domain

// Product represents a catalog product.
// Price is not part of the product record; it is resolved from the price book by SKU.
type Product struct {
	ID          string
	Name        string
	Description string
	SKU         string
	ImageID     string
}

// ProductImage is a locally cached copy of a product's main image
type ProductImage struct {
	ImageID   string
	Path      string
	SourceURL string
}

// ImageRepository defines the interface for the image cache index
type ImageRepository interface {
	Get(imageID string) (*ProductImage, error)
	Save(image *ProductImage) error
	Delete(imageID string) error
}
