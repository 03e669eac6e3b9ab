// Package engine implements the event dispatch loop at the core of the bot.
// Every event flows through a single FIFO queue; a dispatch cycle drains the
// queue to completion before returning, so any events a handler publishes
// mid-cycle are handled in the same cycle, in publication order.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/alanyoungcy/alpacabot/internal/domain"
)

// MarketConsumer receives the market event that opens an evaluation cycle.
// Strategies implement it.
type MarketConsumer interface {
	OnMarket(ctx context.Context, ev domain.MarketEvent)
}

// PositionManager is the portfolio's view from the engine: it observes
// market events, acts on signals, and applies fills to the ledger.
type PositionManager interface {
	OnMarketUpdate(ctx context.Context, ev domain.MarketEvent)
	OnSignal(ctx context.Context, sig domain.Signal)
	OnFill(ctx context.Context, fill domain.Fill)
}

// OrderSubmitter sends order requests to the broker.
type OrderSubmitter interface {
	OnOrder(ctx context.Context, ord domain.Order)
}

// Engine owns the event queue and routes each variant to its handler. It
// implements domain.EventSink, so components constructed before Attach can
// already hold a reference to it.
//
// Dispatch cycles are serialized by a mutex: handlers never run concurrently
// with each other, which is what lets the portfolio ledger go lock-free.
type Engine struct {
	logger *slog.Logger

	queueMu sync.Mutex
	queue   []domain.Event

	dispatchMu sync.Mutex
	strategies []MarketConsumer
	positions  PositionManager
	orders     OrderSubmitter
}

// New creates an Engine with no handlers attached. Call Attach before the
// first HandleUpdate.
func New(logger *slog.Logger) *Engine {
	return &Engine{
		logger: logger.With(slog.String("component", "engine")),
	}
}

// Attach wires the routing targets. It must be called once, before any
// dispatch; it exists separately from New because the handlers themselves
// are constructed with the engine as their event sink.
func (e *Engine) Attach(positions PositionManager, orders OrderSubmitter, strategies ...MarketConsumer) {
	e.positions = positions
	e.orders = orders
	e.strategies = strategies
}

// Publish enqueues an event. Called from inside a dispatch cycle, the event
// is drained before that cycle's HandleUpdate returns; called from outside,
// it waits for the next cycle.
func (e *Engine) Publish(event domain.Event) {
	e.queueMu.Lock()
	e.queue = append(e.queue, event)
	e.queueMu.Unlock()
}

// HandleUpdate enqueues event and runs a dispatch cycle: events are popped
// in FIFO order and routed until the queue is empty. The chain of events a
// handler triggers is fully processed before HandleUpdate returns.
func (e *Engine) HandleUpdate(ctx context.Context, event domain.Event) {
	e.dispatchMu.Lock()
	defer e.dispatchMu.Unlock()

	e.Publish(event)
	for {
		next, ok := e.pop()
		if !ok {
			return
		}
		e.dispatch(ctx, next)
	}
}

func (e *Engine) pop() (domain.Event, bool) {
	e.queueMu.Lock()
	defer e.queueMu.Unlock()

	if len(e.queue) == 0 {
		return nil, false
	}
	ev := e.queue[0]
	e.queue = e.queue[1:]
	return ev, true
}

// dispatch routes one event. The event set is sealed in the domain package,
// so an unmatched variant can only mean a routing case was forgotten; that
// is a programming error and panics rather than being logged away.
func (e *Engine) dispatch(ctx context.Context, event domain.Event) {
	e.logger.DebugContext(ctx, "dispatching event",
		slog.String("kind", string(event.Kind())),
		slog.Time("at", event.Time()),
	)

	switch ev := event.(type) {
	case domain.MarketEvent:
		for _, s := range e.strategies {
			s.OnMarket(ctx, ev)
		}
		e.positions.OnMarketUpdate(ctx, ev)
	case domain.SignalEvent:
		e.positions.OnSignal(ctx, ev.Signal)
	case domain.OrderEvent:
		e.orders.OnOrder(ctx, ev.Order)
	case domain.FillEvent:
		e.positions.OnFill(ctx, ev.Fill)
	default:
		panic(fmt.Sprintf("engine: no route for event type %T", event))
	}
}

var _ domain.EventSink = (*Engine)(nil)
