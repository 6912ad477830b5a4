package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/glebk/pizza-bot/internal/delivery"
	"github.com/glebk/pizza-bot/internal/domain"
)

// DeliveredText is sent to the customer once the delivery time has passed
const DeliveredText = "Приятного аппетита!\n\n*что делать если пицца не пришла*"

// NearestSiteFinder finds the site closest to a position
type NearestSiteFinder interface {
	Nearest(ctx context.Context, pos domain.Coordinates) (domain.NearestSite, error)
}

// AddressBook stores and reads customer delivery addresses
type AddressBook interface {
	SaveCustomerAddress(ctx context.Context, addr domain.CustomerAddress) error
	CustomerAddresses(ctx context.Context, customerID int64) ([]domain.CustomerAddress, error)
}

// LocationSender shares a position with a chat
type LocationSender interface {
	SendLocation(chatID int64, pos domain.Coordinates) error
}

// Scheduler queues a delayed message
type Scheduler interface {
	Schedule(chatID int64, delay time.Duration, text string)
}

// OrderObserver is told about every fulfilled order
type OrderObserver func(order *domain.Order)

// CheckoutService handles delivery quoting and fulfillment of paid orders
type CheckoutService struct {
	sites     NearestSiteFinder
	addresses AddressBook
	carrier   LocationSender
	orders    domain.OrderRepository
	notifier  Scheduler
	delay     time.Duration
	observers []OrderObserver
	logger    *slog.Logger
}

// NewCheckoutService creates a new CheckoutService.
// delay is the time between fulfillment and the follow-up message.
func NewCheckoutService(
	sites NearestSiteFinder,
	addresses AddressBook,
	carrier LocationSender,
	orders domain.OrderRepository,
	notifier Scheduler,
	delay time.Duration,
	logger *slog.Logger,
) *CheckoutService {
	return &CheckoutService{
		sites:     sites,
		addresses: addresses,
		carrier:   carrier,
		orders:    orders,
		notifier:  notifier,
		delay:     delay,
		logger:    logger.With("component", "checkout"),
	}
}

// OnOrder registers an observer for fulfilled orders
func (s *CheckoutService) OnOrder(observer OrderObserver) {
	s.observers = append(s.observers, observer)
}

// Quote prices delivery to pos from the nearest site
func (s *CheckoutService) Quote(ctx context.Context, pos domain.Coordinates) (domain.DeliveryQuote, error) {
	site, err := s.sites.Nearest(ctx, pos)
	if err != nil {
		return domain.DeliveryQuote{}, fmt.Errorf("failed to find nearest site: %w", err)
	}
	return delivery.NewQuote(site), nil
}

// CompleteOrder fulfills a paid delivery order or records a pickup order.
// For delivery the address is saved, the carrier receives the customer position and
// a follow-up message is scheduled. The order is always journaled. Every step runs
// even if an earlier one fails; the failures are returned together.
func (s *CheckoutService) CompleteOrder(ctx context.Context, order *domain.Order) error {
	var errs []error

	if order.Method == domain.DeliveryMethodDelivery {
		addr := domain.CustomerAddress{CustomerID: order.CustomerID, Position: order.Position}
		if err := s.addresses.SaveCustomerAddress(ctx, addr); err != nil {
			errs = append(errs, fmt.Errorf("failed to save customer address: %w", err))
		}

		if order.CarrierID != 0 {
			if err := s.carrier.SendLocation(order.CarrierID, order.Position); err != nil {
				errs = append(errs, fmt.Errorf("failed to notify carrier %d: %w", order.CarrierID, err))
			}
		} else {
			s.logger.Warn("site has no carrier assigned", "order_id", order.ID, "site", order.SiteAddress)
		}

		s.notifier.Schedule(order.CustomerID, s.delay, DeliveredText)
	}

	if err := s.orders.Create(order); err != nil {
		errs = append(errs, fmt.Errorf("failed to record order: %w", err))
	}

	for _, observe := range s.observers {
		observe(order)
	}

	s.logger.Info("order completed",
		"order_id", order.ID,
		"customer_id", order.CustomerID,
		"method", string(order.Method),
		"sum", order.Sum(),
	)

	return errors.Join(errs...)
}

// Orders returns the journaled orders of a customer
func (s *CheckoutService) Orders(customerID int64) ([]*domain.Order, error) {
	orders, err := s.orders.ListByCustomer(customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

// Addresses returns the delivery addresses saved for a customer
func (s *CheckoutService) Addresses(ctx context.Context, customerID int64) ([]domain.CustomerAddress, error) {
	addrs, err := s.addresses.CustomerAddresses(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list addresses: %w", err)
	}
	return addrs, nil
}
