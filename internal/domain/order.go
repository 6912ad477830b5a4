package domain

import "time"

// DeliveryMethod represents how an order reaches the customer
type DeliveryMethod string

const (
	DeliveryMethodDelivery DeliveryMethod = "delivery"
	DeliveryMethodPickup   DeliveryMethod = "self_pickup"
)

// Order represents a paid order recorded in the local journal
type Order struct {
	ID          string
	CustomerID  int64
	Method      DeliveryMethod
	CartTotal   int
	DeliveryFee int
	Position    Coordinates
	SiteAddress string
	CarrierID   int64
	CreatedAt   time.Time
}

// Sum returns the amount charged for the order
func (o *Order) Sum() int {
	return o.CartTotal + o.DeliveryFee
}

// OrderRepository defines the interface for order storage
type OrderRepository interface {
	Create(order *Order) error
	GetByID(id string) (*Order, error)
	ListByCustomer(customerID int64) ([]*Order, error)
}
