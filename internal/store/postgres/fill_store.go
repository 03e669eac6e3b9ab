package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/alpacabot/internal/domain"
)

// FillStore implements domain.FillStore using PostgreSQL.
type FillStore struct {
	pool *pgxpool.Pool
}

// NewFillStore creates a new FillStore backed by the given connection pool.
func NewFillStore(pool *pgxpool.Pool) *FillStore {
	return &FillStore{pool: pool}
}

// Create inserts a new fill row.
func (s *FillStore) Create(ctx context.Context, rec domain.FillRecord) error {
	const query = `
		INSERT INTO fills (order_id, quantity, price, filled_at)
		VALUES ($1, $2, $3, COALESCE($4, NOW()))`

	var filledAt any
	if !rec.FilledAt.IsZero() {
		filledAt = rec.FilledAt
	}

	_, err := s.pool.Exec(ctx, query, rec.OrderID, rec.Quantity, rec.Price, filledAt)
	if err != nil {
		return fmt.Errorf("postgres: create fill for order %s: %w", rec.OrderID, err)
	}
	return nil
}

func scanFillRows(rows pgx.Rows) ([]domain.FillRecord, error) {
	var recs []domain.FillRecord
	for rows.Next() {
		var rec domain.FillRecord
		if err := rows.Scan(&rec.FillID, &rec.OrderID, &rec.Quantity, &rec.Price, &rec.FilledAt); err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// ListByOrder returns all fills recorded against the given order.
func (s *FillStore) ListByOrder(ctx context.Context, orderID string) ([]domain.FillRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT fill_id, order_id, quantity, price, filled_at
		 FROM fills WHERE order_id = $1 ORDER BY filled_at ASC`, orderID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list fills for order %s: %w", orderID, err)
	}
	defer rows.Close()

	recs, err := scanFillRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan fills for order %s: %w", orderID, err)
	}
	return recs, nil
}

// ListBefore returns fills recorded before the cutoff, oldest first.
func (s *FillStore) ListBefore(ctx context.Context, cutoff time.Time) ([]domain.FillRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT fill_id, order_id, quantity, price, filled_at
		 FROM fills WHERE filled_at < $1 ORDER BY filled_at ASC`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("postgres: list fills before %s: %w", cutoff, err)
	}
	defer rows.Close()

	recs, err := scanFillRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan fills before %s: %w", cutoff, err)
	}
	return recs, nil
}

var _ domain.FillStore = (*FillStore)(nil)
