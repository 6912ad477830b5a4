package conversation

// State is a dialogue state of a session
type State int

const (
	AwaitingStart State = iota
	ShowingMenu
	BrowsingMenu
	ViewingProduct
	ViewingCart
	AwaitingLocation
	ChoosingDeliveryMethod
	AwaitingPayment
	// Done is terminal. A session reaching it is reset to AwaitingStart.
	Done
)

var stateNames = map[State]string{
	AwaitingStart:          "awaiting_start",
	ShowingMenu:            "showing_menu",
	BrowsingMenu:           "browsing_menu",
	ViewingProduct:         "viewing_product",
	ViewingCart:            "viewing_cart",
	AwaitingLocation:       "awaiting_location",
	ChoosingDeliveryMethod: "choosing_delivery_method",
	AwaitingPayment:        "awaiting_payment",
	Done:                   "done",
}

// String implements fmt.Stringer
func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}
