package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/alpacabot/internal/domain"
)

// OrderStore implements domain.OrderStore using PostgreSQL.
type OrderStore struct {
	pool *pgxpool.Pool
}

// NewOrderStore creates a new OrderStore backed by the given connection pool.
func NewOrderStore(pool *pgxpool.Pool) *OrderStore {
	return &OrderStore{pool: pool}
}

// Create inserts a new order row keyed by the broker-assigned order ID.
func (s *OrderStore) Create(ctx context.Context, rec domain.OrderRecord) error {
	const query = `
		INSERT INTO orders (order_id, symbol, status, quantity_ordered, quantity_filled, created_at)
		VALUES ($1, $2, $3, $4, $5, COALESCE($6, NOW()))`

	var createdAt any
	if !rec.CreatedAt.IsZero() {
		createdAt = rec.CreatedAt
	}

	_, err := s.pool.Exec(ctx, query,
		rec.OrderID, rec.Symbol, string(rec.Status),
		rec.QuantityOrdered, rec.QuantityFilled, createdAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: create order %s: %w", rec.OrderID, err)
	}
	return nil
}

// UpdateStatus changes the status and filled quantity of an existing order.
func (s *OrderStore) UpdateStatus(ctx context.Context, orderID string, status domain.OrderStatus, quantityFilled float64) error {
	const query = `
		UPDATE orders SET status = $2, quantity_filled = $3
		WHERE order_id = $1`

	tag, err := s.pool.Exec(ctx, query, orderID, string(status), quantityFilled)
	if err != nil {
		return fmt.Errorf("postgres: update order status %s: %w", orderID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// GetByID retrieves an order row by its broker-assigned ID.
func (s *OrderStore) GetByID(ctx context.Context, orderID string) (domain.OrderRecord, error) {
	const query = `
		SELECT order_id, symbol, status, quantity_ordered, quantity_filled, created_at
		FROM orders WHERE order_id = $1`

	var rec domain.OrderRecord
	var status string
	err := s.pool.QueryRow(ctx, query, orderID).Scan(
		&rec.OrderID, &rec.Symbol, &status,
		&rec.QuantityOrdered, &rec.QuantityFilled, &rec.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.OrderRecord{}, domain.ErrNotFound
		}
		return domain.OrderRecord{}, fmt.Errorf("postgres: get order %s: %w", orderID, err)
	}
	rec.Status = domain.OrderStatus(status)
	return rec, nil
}

var _ domain.OrderStore = (*OrderStore)(nil)
