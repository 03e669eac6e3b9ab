// Package domain holds the core types shared by the engine, portfolio,
// strategy, and executor: the event variants that flow through the dispatch
// loop, the position ledger types, and the store interfaces they persist
// through.
package domain

import "time"

// EventKind identifies an event variant.
type EventKind string

const (
	EventKindMarket EventKind = "MARKET"
	EventKindSignal EventKind = "SIGNAL"
	EventKindOrder  EventKind = "ORDER"
	EventKindFill   EventKind = "FILL"
)

// Event is the closed set of messages flowing through the dispatch loop.
// The unexported marker method seals the set: every variant lives in this
// package, so the engine's type switch can treat an unknown variant as a
// programming error rather than a runtime condition.
type Event interface {
	Kind() EventKind
	Time() time.Time

	sealed()
}

// MarketEvent marks the start of a new evaluation cycle. It carries no
// payload beyond its timestamp.
type MarketEvent struct {
	At time.Time
}

func (e MarketEvent) Kind() EventKind { return EventKindMarket }
func (e MarketEvent) Time() time.Time { return e.At }
func (MarketEvent) sealed()           {}

// SignalEvent carries a strategy's trade proposal.
type SignalEvent struct {
	At     time.Time
	Signal Signal
}

func (e SignalEvent) Kind() EventKind { return EventKindSignal }
func (e SignalEvent) Time() time.Time { return e.At }
func (SignalEvent) sealed()           {}

// OrderEvent carries an order request produced by the portfolio.
type OrderEvent struct {
	At    time.Time
	Order Order
}

func (e OrderEvent) Kind() EventKind { return EventKindOrder }
func (e OrderEvent) Time() time.Time { return e.At }
func (OrderEvent) sealed()           {}

// FillEvent carries a broker-confirmed execution, full or partial.
type FillEvent struct {
	At   time.Time
	Fill Fill
}

func (e FillEvent) Kind() EventKind { return EventKindFill }
func (e FillEvent) Time() time.Time { return e.At }
func (FillEvent) sealed()           {}

// EventSink lets any component enqueue a new event without knowing who
// consumes it. The engine implements it; components receive it at wiring
// time.
type EventSink interface {
	Publish(event Event)
}

// Signal is a strategy's proposal to trade a symbol. Value is
// strategy-defined; the sniper strategy uses it as the target entry price.
type Signal struct {
	ID         string
	StrategyID string
	Symbol     string
	Value      float64
}

// Direction indicates the side of a position or order.
type Direction string

const (
	DirectionLong  Direction = "LONG"
	DirectionShort Direction = "SHORT"
)

// OrderType distinguishes market from limit orders.
type OrderType string

const (
	OrderTypeMarket OrderType = "MARKET"
	OrderTypeLimit  OrderType = "LIMIT"
)

// OrderIntent says whether an order opens or closes a position.
type OrderIntent string

const (
	OrderIntentOpen  OrderIntent = "OPEN"
	OrderIntentClose OrderIntent = "CLOSE"
)

// Order is a transient order request. OrderID stays empty until the broker
// assigns one.
type Order struct {
	OrderID   string
	Type      OrderType
	Symbol    string
	Quantity  float64
	Direction Direction
	Price     float64
	Intent    OrderIntent
}

// Fill is a broker-confirmed execution against a submitted order.
type Fill struct {
	Symbol     string
	Quantity   float64
	Side       Direction
	FillPrice  float64
	Commission float64
}
