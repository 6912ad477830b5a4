// Package loader seeds the commerce backend with the menu and the pizzeria directory.
package loader

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strconv"

	"github.com/gosimple/slug"
	"gopkg.in/yaml.v3"

	"github.com/glebk/pizza-bot/internal/commerce"
)

// Backend is the part of the commerce client the loader writes through
type Backend interface {
	ProductSKUs(ctx context.Context) ([]string, error)
	CreateProduct(ctx context.Context, spec commerce.ProductSpec) (string, error)
	AddPrice(ctx context.Context, sku string, amount int) error
	CreateFileFromURL(ctx context.Context, fileURL string) (string, error)
	RelateMainImage(ctx context.Context, productID, fileID string) error
	CreateEntry(ctx context.Context, slug string, fields map[string]any) error
	CreateFlow(ctx context.Context, spec commerce.FlowSpec) (string, error)
	CreateField(ctx context.Context, spec commerce.FieldSpec) (string, error)
}

// MenuItem is one record of the menu file
type MenuItem struct {
	ID          int    `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Price       int    `yaml:"price"`
	Image       struct {
		URL string `yaml:"url"`
	} `yaml:"product_image"`
}

// Pizzeria is one record of the addresses file
type Pizzeria struct {
	Alias   string `yaml:"alias"`
	Address struct {
		Full string `yaml:"full"`
	} `yaml:"address"`
	Coordinates struct {
		Lat Degrees `yaml:"lat"`
		Lon Degrees `yaml:"lon"`
	} `yaml:"coordinates"`
}

// Degrees accepts both numeric and quoted coordinates
type Degrees float64

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Degrees) UnmarshalYAML(node *yaml.Node) error {
	v, err := strconv.ParseFloat(node.Value, 64)
	if err != nil {
		return fmt.Errorf("invalid coordinate %q: %w", node.Value, err)
	}
	*d = Degrees(v)
	return nil
}

// ReadFile decodes a JSON or YAML list from path into out
func ReadFile(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	// JSON documents are valid YAML
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}

// Loader writes seed data to the backend
type Loader struct {
	backend Backend
	logger  *slog.Logger
}

// New creates a new Loader
func New(backend Backend, logger *slog.Logger) *Loader {
	return &Loader{backend: backend, logger: logger.With("component", "loader")}
}

// LoadProducts creates every menu item whose SKU is not in the catalog yet.
// It returns the number of products created.
func (l *Loader) LoadProducts(ctx context.Context, menu []MenuItem) (int, error) {
	existing, err := l.backend.ProductSKUs(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list products: %w", err)
	}

	created := 0
	for _, item := range menu {
		sku := strconv.Itoa(item.ID)
		if slices.Contains(existing, sku) {
			l.logger.Debug("product exists", "sku", sku)
			continue
		}
		if err := l.loadProduct(ctx, sku, item); err != nil {
			return created, fmt.Errorf("failed to load product %s: %w", sku, err)
		}
		existing = append(existing, sku)
		created++
		l.logger.Info("product created", "sku", sku, "name", item.Name)
	}
	return created, nil
}

func (l *Loader) loadProduct(ctx context.Context, sku string, item MenuItem) error {
	productID, err := l.backend.CreateProduct(ctx, commerce.ProductSpec{
		Name:        item.Name,
		SKU:         sku,
		Slug:        slug.Make(sku + " " + item.Name),
		Description: item.Description,
	})
	if err != nil {
		return err
	}
	if err := l.backend.AddPrice(ctx, sku, item.Price); err != nil {
		return err
	}
	if item.Image.URL == "" {
		return nil
	}
	fileID, err := l.backend.CreateFileFromURL(ctx, item.Image.URL)
	if err != nil {
		return err
	}
	return l.backend.RelateMainImage(ctx, productID, fileID)
}

// LoadPizzerias creates a pizzeria flow entry per record.
// Carriers are assigned later by editing the entries.
func (l *Loader) LoadPizzerias(ctx context.Context, pizzerias []Pizzeria) error {
	for _, p := range pizzerias {
		err := l.backend.CreateEntry(ctx, commerce.PizzeriaFlow, map[string]any{
			"address":    p.Address.Full,
			"alias":      p.Alias,
			"lat":        float64(p.Coordinates.Lat),
			"lon":        float64(p.Coordinates.Lon),
			"carrier-id": 0,
		})
		if err != nil {
			return fmt.Errorf("failed to create pizzeria %q: %w", p.Alias, err)
		}
		l.logger.Info("pizzeria created", "alias", p.Alias)
	}
	return nil
}

// CreateFlow creates an enabled flow and returns its ID
func (l *Loader) CreateFlow(ctx context.Context, name, flowSlug, description string) (string, error) {
	id, err := l.backend.CreateFlow(ctx, commerce.FlowSpec{
		Name:        name,
		Slug:        flowSlug,
		Description: description,
		Enabled:     true,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create flow: %w", err)
	}
	return id, nil
}

// CreateField creates a required, enabled field on a flow and returns its ID
func (l *Loader) CreateField(ctx context.Context, flowID, name, fieldSlug, fieldType, description string) (string, error) {
	id, err := l.backend.CreateField(ctx, commerce.FieldSpec{
		FlowID:      flowID,
		Name:        name,
		Slug:        fieldSlug,
		FieldType:   fieldType,
		Description: description,
		Required:    true,
		Enabled:     true,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create field: %w", err)
	}
	return id, nil
}
