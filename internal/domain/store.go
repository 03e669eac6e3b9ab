package domain

import (
	"context"
	"time"
)

// PositionStore persists position records.
type PositionStore interface {
	Create(ctx context.Context, rec PositionRecord) error
	Close(ctx context.Context, id string, closeTime time.Time, closePrice, commission float64) error
	GetOpen(ctx context.Context) ([]PositionRecord, error)
	GetByID(ctx context.Context, id string) (PositionRecord, error)
	ListClosedBefore(ctx context.Context, cutoff time.Time) ([]PositionRecord, error)
}

// OrderStore persists broker-acknowledged orders.
type OrderStore interface {
	Create(ctx context.Context, rec OrderRecord) error
	UpdateStatus(ctx context.Context, orderID string, status OrderStatus, quantityFilled float64) error
	GetByID(ctx context.Context, orderID string) (OrderRecord, error)
}

// FillStore persists executions.
type FillStore interface {
	Create(ctx context.Context, rec FillRecord) error
	ListByOrder(ctx context.Context, orderID string) ([]FillRecord, error)
	ListBefore(ctx context.Context, cutoff time.Time) ([]FillRecord, error)
}

// UniverseStore reads the tradable universe for a week.
type UniverseStore interface {
	ActiveUniverse(ctx context.Context, weekStart time.Time) ([]UniverseEntry, error)
}

// BarStore reads time-ordered price history. The table name is data-driven:
// each universe entry names the table its bars live in.
type BarStore interface {
	LatestBars(ctx context.Context, table, symbol string, n int) ([]Bar, error)
}
