package domain

import "time"

// PositionStatus tracks whether a persisted position is open or closed.
type PositionStatus string

const (
	PositionStatusOpen   PositionStatus = "OPEN"
	PositionStatusClosed PositionStatus = "CLOSED"
)

// Position is a live ledger entry. The ledger holds at most one Position per
// symbol; a position is created by the opening fill and evicted by the
// closing fill.
type Position struct {
	Symbol     string
	PositionID string
	Quantity   float64
	EntryPrice float64
	EntryTime  time.Time
}

// PositionRecord is the persisted superset of Position. The live ledger is a
// cache of the records with status OPEN; on startup the ledger is rehydrated
// from them.
type PositionRecord struct {
	ID              string
	Symbol          string
	StrategyTag     string
	Status          PositionStatus
	Side            Direction
	OpenTime        time.Time
	OpenPrice       float64
	Quantity        float64
	CommissionOpen  float64
	CloseTime       *time.Time
	ClosePrice      *float64
	CommissionClose float64
	Tags            map[string]string
	Notes           string
}

// Live projects the persisted record onto a live ledger entry.
func (r PositionRecord) Live() Position {
	return Position{
		Symbol:     r.Symbol,
		PositionID: r.ID,
		Quantity:   r.Quantity,
		EntryPrice: r.OpenPrice,
		EntryTime:  r.OpenTime,
	}
}

// OrderStatus tracks the persisted order lifecycle.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPartial   OrderStatus = "partial"
	OrderStatusFilled    OrderStatus = "filled"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// OrderRecord is the persisted row for a broker-acknowledged order.
type OrderRecord struct {
	OrderID         string
	Symbol          string
	QuantityOrdered float64
	QuantityFilled  float64
	Status          OrderStatus
	CreatedAt       time.Time
}

// FillRecord is the persisted row for a single execution.
type FillRecord struct {
	FillID   int64
	OrderID  string
	Quantity float64
	Price    float64
	FilledAt time.Time
}

// Bar is one OHLCV price bar.
type Bar struct {
	Symbol string
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// UniverseEntry is one symbol eligible for strategy evaluation in a given
// week, together with the table its price history lives in.
type UniverseEntry struct {
	Symbol           string
	PriceSourceTable string
}
