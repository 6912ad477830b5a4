package commerce

import (
	"context"
	"net/http"
	"net/url"
)

// ProductSpec describes a product to create in the catalog
type ProductSpec struct {
	Name        string
	SKU         string
	Slug        string
	Description string
}

// CreateProduct creates a live physical product and returns its ID
func (c *Client) CreateProduct(ctx context.Context, spec ProductSpec) (string, error) {
	var resp struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	err := c.do(ctx, request{
		op:     "create product",
		method: http.MethodPost,
		path:   "/pcm/products",
		body: map[string]any{"data": map[string]any{
			"type": "product",
			"attributes": map[string]any{
				"name":           spec.Name,
				"sku":            spec.SKU,
				"slug":           spec.Slug,
				"description":    spec.Description,
				"commodity_type": "physical",
				"status":         "live",
			},
		}},
	}, &resp)
	if err != nil {
		return "", err
	}
	return resp.Data.ID, nil
}

// ProductSKUs lists the SKUs of every catalog product regardless of channel
func (c *Client) ProductSKUs(ctx context.Context) ([]string, error) {
	var resp struct {
		Data []productData `json:"data"`
	}
	err := c.do(ctx, request{
		op:     "list product skus",
		method: http.MethodGet,
		path:   "/pcm/products",
		query:  url.Values{"page[limit]": {"100"}},
	}, &resp)
	if err != nil {
		return nil, err
	}

	skus := make([]string, 0, len(resp.Data))
	for _, p := range resp.Data {
		skus = append(skus, p.Attributes.SKU)
	}
	return skus, nil
}

// AddPrice adds a tax-inclusive price for sku to the price book
func (c *Client) AddPrice(ctx context.Context, sku string, amount int) error {
	return c.do(ctx, request{
		op:     "add product price",
		method: http.MethodPost,
		path:   "/pcm/pricebooks/" + url.PathEscape(c.priceBookID) + "/prices",
		body: map[string]any{"data": map[string]any{
			"type": "product-price",
			"attributes": map[string]any{
				"sku": sku,
				"currencies": map[string]any{
					priceCurrency: map[string]any{
						"amount":       amount,
						"includes_tax": true,
					},
				},
			},
		}},
	}, nil)
}

// RelateMainImage attaches a file as the product's main image
func (c *Client) RelateMainImage(ctx context.Context, productID, fileID string) error {
	return c.do(ctx, request{
		op:     "relate main image",
		method: http.MethodPost,
		path:   "/pcm/products/" + url.PathEscape(productID) + "/relationships/main_image",
		body: map[string]any{"data": map[string]any{
			"type": "file",
			"id":   fileID,
		}},
	}, nil)
}
