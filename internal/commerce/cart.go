package commerce

import (
	"context"
	"net/http"
	"net/url"

	"github.com/glebk/pizza-bot/internal/domain"
)

type displayPrice struct {
	Amount    int    `json:"amount"`
	Formatted string `json:"formatted"`
}

type cartItemData struct {
	ID        string `json:"id"`
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	Meta      struct {
		DisplayPrice struct {
			WithTax struct {
				Unit  displayPrice `json:"unit"`
				Value displayPrice `json:"value"`
			} `json:"with_tax"`
		} `json:"display_price"`
	} `json:"meta"`
}

// AddToCart adds one unit of a product to the cart.
// A backend error payload is reported as an *APIError.
func (c *Client) AddToCart(ctx context.Context, cartID, productID string, quantity int) error {
	body := map[string]any{
		"data": map[string]any{
			"id":       productID,
			"type":     "cart_item",
			"quantity": quantity,
		},
	}
	return c.do(ctx, request{
		op:     "add cart item",
		method: http.MethodPost,
		path:   "/v2/carts/" + url.PathEscape(cartID) + "/items",
		body:   body,
	}, nil)
}

// RemoveFromCart removes a cart item
func (c *Client) RemoveFromCart(ctx context.Context, cartID, itemID string) error {
	return c.do(ctx, request{
		op:     "remove cart item",
		method: http.MethodDelete,
		path:   "/v2/carts/" + url.PathEscape(cartID) + "/items/" + url.PathEscape(itemID),
	}, nil)
}

// Cart returns the cart contents and the backend computed total
func (c *Client) Cart(ctx context.Context, cartID string) (domain.Cart, error) {
	var resp struct {
		Data []cartItemData `json:"data"`
		Meta struct {
			DisplayPrice struct {
				WithTax displayPrice `json:"with_tax"`
			} `json:"display_price"`
		} `json:"meta"`
	}
	err := c.do(ctx, request{
		op:     "get cart items",
		method: http.MethodGet,
		path:   "/v2/carts/" + url.PathEscape(cartID) + "/items",
	}, &resp)
	if err != nil {
		return domain.Cart{}, err
	}

	cart := domain.Cart{
		Items:          make([]domain.CartItem, 0, len(resp.Data)),
		Total:          resp.Meta.DisplayPrice.WithTax.Amount,
		TotalFormatted: resp.Meta.DisplayPrice.WithTax.Formatted,
	}
	for _, item := range resp.Data {
		cart.Items = append(cart.Items, domain.CartItem{
			ID:                 item.ID,
			ProductID:          item.ProductID,
			Name:               item.Name,
			Quantity:           item.Quantity,
			UnitPriceFormatted: item.Meta.DisplayPrice.WithTax.Unit.Formatted,
			LineTotalFormatted: item.Meta.DisplayPrice.WithTax.Value.Formatted,
		})
	}
	return cart, nil
}
