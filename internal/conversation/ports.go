package conversation

import (
	"context"

	"github.com/glebk/pizza-bot/internal/domain"
)

// Button is an inline keyboard button
type Button struct {
	Text string
	Data string
}

// Keyboard is an inline keyboard, one slice per row
type Keyboard [][]Button

// Row builds a single-button row from an action
func Row(text string, a Action) []Button {
	return []Button{{Text: text, Data: a.Data()}}
}

// Invoice is a payment request. Amount is in minor currency units.
type Invoice struct {
	Title       string
	Description string
	Payload     string
	Currency    string
	Label       string
	Amount      int
}

// Messenger sends outbound messages to the transport
type Messenger interface {
	SendMessage(chatID int64, text string, kb Keyboard) error
	SendPhoto(chatID int64, path, caption string, kb Keyboard) error
	DeleteMessage(chatID int64, messageID int) error
	AnswerCallback(callbackID, text string, alert bool) error
	SendInvoice(chatID int64, invoice Invoice) error
	AnswerPreCheckout(queryID string, ok bool, errorMessage string) error
}

// Catalog reads products and their prices
type Catalog interface {
	Products(ctx context.Context) ([]domain.Product, error)
	Product(ctx context.Context, id string) (domain.Product, error)
	PriceBySKU(ctx context.Context, sku string) (int, error)
}

// Carts manages the backend cart of a customer
type Carts interface {
	AddToCart(ctx context.Context, cartID, productID string, quantity int) error
	RemoveFromCart(ctx context.Context, cartID, itemID string) error
	Cart(ctx context.Context, cartID string) (domain.Cart, error)
}

// Images resolves a product image to a local file path
type Images interface {
	Path(ctx context.Context, imageID string) (string, error)
}

// Locator resolves free text to coordinates. A nil result means no match.
type Locator interface {
	Resolve(ctx context.Context, text string) (*domain.Coordinates, error)
}

// Checkout quotes delivery and fulfills paid orders
type Checkout interface {
	Quote(ctx context.Context, pos domain.Coordinates) (domain.DeliveryQuote, error)
	CompleteOrder(ctx context.Context, order *domain.Order) error
}
