package domain

// CartItem represents a single line in a customer's cart
type CartItem struct {
	ID                 string
	ProductID          string
	Name               string
	Quantity           int
	UnitPriceFormatted string
	LineTotalFormatted string
}

// Cart aggregates the items of a cart with the totals computed by the backend.
// Total is the raw integer amount used for fee arithmetic; TotalFormatted is for display.
type Cart struct {
	Items          []CartItem
	Total          int
	TotalFormatted string
}

// IsEmpty reports whether the cart has no items
func (c Cart) IsEmpty() bool {
	return len(c.Items) == 0
}
