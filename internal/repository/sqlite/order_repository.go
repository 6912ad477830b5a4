package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/glebk/pizza-bot/internal/domain"
)

// OrderRepository implements domain.OrderRepository using SQLite
type OrderRepository struct {
	db *Database
}

// NewOrderRepository creates a new OrderRepository
func NewOrderRepository(db *Database) *OrderRepository {
	return &OrderRepository{db: db}
}

// Create records a new order
func (r *OrderRepository) Create(order *domain.Order) error {
	query := `
		INSERT INTO orders (id, customer_id, method, cart_total, delivery_fee, lat, lon, site_address, carrier_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.GetDB().Exec(query,
		order.ID,
		order.CustomerID,
		order.Method,
		order.CartTotal,
		order.DeliveryFee,
		order.Position.Lat,
		order.Position.Lon,
		order.SiteAddress,
		order.CarrierID,
		order.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}

	return nil
}

// GetByID retrieves an order by ID
func (r *OrderRepository) GetByID(id string) (*domain.Order, error) {
	query := `
		SELECT id, customer_id, method, cart_total, delivery_fee, lat, lon, site_address, carrier_id, created_at
		FROM orders
		WHERE id = ?
	`

	order, err := scanOrder(r.db.GetDB().QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	return order, nil
}

// ListByCustomer retrieves all orders of a customer, oldest first
func (r *OrderRepository) ListByCustomer(customerID int64) ([]*domain.Order, error) {
	query := `
		SELECT id, customer_id, method, cart_total, delivery_fee, lat, lon, site_address, carrier_id, created_at
		FROM orders
		WHERE customer_id = ?
		ORDER BY created_at
	`

	rows, err := r.db.GetDB().Query(query, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	var orders []*domain.Order

	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}

	return orders, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOrder(row scanner) (*domain.Order, error) {
	order := &domain.Order{}
	err := row.Scan(
		&order.ID,
		&order.CustomerID,
		&order.Method,
		&order.CartTotal,
		&order.DeliveryFee,
		&order.Position.Lat,
		&order.Position.Lon,
		&order.SiteAddress,
		&order.CarrierID,
		&order.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return order, nil
}
