package conversation

import (
	"github.com/glebk/pizza-bot/internal/domain"
)

// EventKind classifies inbound events
type EventKind int

const (
	EventCommand EventKind = iota
	EventCallback
	EventText
	EventLocation
	EventPreCheckout
	EventPaymentSuccess
)

var eventKindNames = map[EventKind]string{
	EventCommand:        "command",
	EventCallback:       "callback",
	EventText:           "text",
	EventLocation:       "location",
	EventPreCheckout:    "pre_checkout",
	EventPaymentSuccess: "payment_success",
}

// String implements fmt.Stringer
func (k EventKind) String() string {
	if name, ok := eventKindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Event is an inbound transport event, already stripped of transport types
type Event struct {
	Kind      EventKind
	UserID    int64
	ChatID    int64
	FirstName string

	// Command is set for EventCommand, without the leading slash
	Command string

	// CallbackID and Data are set for EventCallback.
	// MessageID is the message carrying the pressed button.
	CallbackID string
	Data       string
	MessageID  int

	// Text is set for EventText
	Text string

	// Location is set for EventLocation
	Location *domain.Coordinates

	// PreCheckoutID is set for EventPreCheckout.
	// Payload is the invoice payload for EventPreCheckout and EventPaymentSuccess.
	PreCheckoutID string
	Payload       string
}
