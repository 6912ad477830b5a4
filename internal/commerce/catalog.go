package commerce

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/glebk/pizza-bot/internal/domain"
)

// ErrPriceNotFound is returned when the price book has no price for a SKU
var ErrPriceNotFound = errors.New("price not found")

const (
	pricePageLimit = 50
	priceCurrency  = "RUB"
)

type productData struct {
	ID         string `json:"id"`
	Attributes struct {
		Name        string `json:"name"`
		SKU         string `json:"sku"`
		Slug        string `json:"slug"`
		Description string `json:"description"`
	} `json:"attributes"`
	Relationships struct {
		MainImage struct {
			Data *struct {
				ID string `json:"id"`
			} `json:"data"`
		} `json:"main_image"`
	} `json:"relationships"`
}

func (p productData) toDomain() domain.Product {
	product := domain.Product{
		ID:          p.ID,
		Name:        p.Attributes.Name,
		Description: p.Attributes.Description,
		SKU:         p.Attributes.SKU,
	}
	if p.Relationships.MainImage.Data != nil {
		product.ImageID = p.Relationships.MainImage.Data.ID
	}
	return product
}

// Products returns every product published to the configured channel
func (c *Client) Products(ctx context.Context) ([]domain.Product, error) {
	var resp struct {
		Data []productData `json:"data"`
	}
	err := c.do(ctx, request{
		op:      "list products",
		method:  http.MethodGet,
		path:    "/pcm/products",
		headers: map[string]string{"EP-Channel": c.channel},
	}, &resp)
	if err != nil {
		return nil, err
	}

	products := make([]domain.Product, 0, len(resp.Data))
	for _, p := range resp.Data {
		products = append(products, p.toDomain())
	}
	return products, nil
}

// Product returns a single product by ID
func (c *Client) Product(ctx context.Context, id string) (domain.Product, error) {
	var resp struct {
		Data productData `json:"data"`
	}
	err := c.do(ctx, request{
		op:     "get product",
		method: http.MethodGet,
		path:   "/pcm/products/" + url.PathEscape(id),
	}, &resp)
	if err != nil {
		return domain.Product{}, err
	}
	return resp.Data.toDomain(), nil
}

type priceData struct {
	Attributes struct {
		SKU        string `json:"sku"`
		Currencies map[string]struct {
			Amount      int  `json:"amount"`
			IncludesTax bool `json:"includes_tax"`
		} `json:"currencies"`
	} `json:"attributes"`
}

// PriceBySKU walks the price book until it finds the price for sku
func (c *Client) PriceBySKU(ctx context.Context, sku string) (int, error) {
	for offset := 0; ; offset += pricePageLimit {
		var resp struct {
			Data []priceData `json:"data"`
		}
		err := c.do(ctx, request{
			op:     "list prices",
			method: http.MethodGet,
			path:   "/pcm/pricebooks/" + url.PathEscape(c.priceBookID) + "/prices",
			query: url.Values{
				"page[limit]":  {strconv.Itoa(pricePageLimit)},
				"page[offset]": {strconv.Itoa(offset)},
			},
		}, &resp)
		if err != nil {
			return 0, err
		}

		for _, p := range resp.Data {
			if p.Attributes.SKU != sku {
				continue
			}
			cur, ok := p.Attributes.Currencies[priceCurrency]
			if !ok {
				return 0, fmt.Errorf("%w: sku %s has no %s price", ErrPriceNotFound, sku, priceCurrency)
			}
			return cur.Amount, nil
		}

		if len(resp.Data) < pricePageLimit {
			return 0, fmt.Errorf("%w: sku %s", ErrPriceNotFound, sku)
		}
	}
}
