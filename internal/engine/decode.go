package engine

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/alanyoungcy/alpacabot/internal/domain"
	"github.com/alanyoungcy/alpacabot/internal/notify"
	"github.com/alanyoungcy/alpacabot/internal/platform/alpaca"
)

// Dispatcher runs a dispatch cycle for an externally sourced event. The
// Engine implements it.
type Dispatcher interface {
	HandleUpdate(ctx context.Context, event domain.Event)
}

// OrderReleaser is told when an order reaches a terminal state so that a new
// order for the symbol may be submitted. The executor implements it.
type OrderReleaser interface {
	Release(symbol string)
}

// Decoder translates raw trade-update notifications from the broker stream
// into order and fill rows plus fill events for the dispatch loop. Broker
// payload problems are reported and dropped; they never take the stream
// down.
type Decoder struct {
	orders     domain.OrderStore
	fills      domain.FillStore
	dispatcher Dispatcher
	releaser   OrderReleaser
	alerts     *notify.Notifier
	logger     *slog.Logger
}

// NewDecoder creates a Decoder writing through the given stores and feeding
// fill events into dispatcher. releaser may be nil.
func NewDecoder(
	orders domain.OrderStore,
	fills domain.FillStore,
	dispatcher Dispatcher,
	releaser OrderReleaser,
	alerts *notify.Notifier,
	logger *slog.Logger,
) *Decoder {
	return &Decoder{
		orders:     orders,
		fills:      fills,
		dispatcher: dispatcher,
		releaser:   releaser,
		alerts:     alerts,
		logger:     logger.With(slog.String("component", "decoder")),
	}
}

// HandleTradeUpdate processes one stream notification. Unrecognized event
// kinds are ignored; the broker adds kinds over time and old bots must keep
// running.
func (d *Decoder) HandleTradeUpdate(ctx context.Context, u alpaca.TradeUpdate) {
	switch u.Event {
	case alpaca.TradeEventNew:
		d.orderAccepted(ctx, u)
	case alpaca.TradeEventFill, alpaca.TradeEventPartialFill:
		d.orderFilled(ctx, u)
	case alpaca.TradeEventCanceled, alpaca.TradeEventRejected:
		d.orderDead(ctx, u)
	default:
		d.logger.DebugContext(ctx, "ignoring trade update",
			slog.String("event", u.Event),
			slog.String("order_id", u.Order.ID),
		)
	}
}

func (d *Decoder) orderAccepted(ctx context.Context, u alpaca.TradeUpdate) {
	qty, err := strconv.ParseFloat(u.Order.Qty, 64)
	if err != nil {
		d.drop(ctx, u, "qty", err)
		return
	}

	rec := domain.OrderRecord{
		OrderID:         u.Order.ID,
		Symbol:          u.Order.Symbol,
		QuantityOrdered: qty,
		Status:          domain.OrderStatusPending,
		CreatedAt:       eventTime(u.Timestamp),
	}
	if err := d.orders.Create(ctx, rec); err != nil {
		d.logger.ErrorContext(ctx, "order persist failed",
			slog.String("order_id", u.Order.ID),
			slog.String("error", err.Error()),
		)
		d.alerts.Alert(ctx, "error", "decoder: persist order failed: "+err.Error())
	}
}

func (d *Decoder) orderFilled(ctx context.Context, u alpaca.TradeUpdate) {
	price, err := strconv.ParseFloat(u.Price, 64)
	if err != nil {
		d.drop(ctx, u, "price", err)
		return
	}
	qty, err := strconv.ParseFloat(u.Qty, 64)
	if err != nil {
		d.drop(ctx, u, "qty", err)
		return
	}
	filledQty, err := strconv.ParseFloat(u.Order.FilledQty, 64)
	if err != nil {
		d.drop(ctx, u, "filled_qty", err)
		return
	}
	side, ok := NormalizeSide(u.Order.Side)
	if !ok {
		d.logger.WarnContext(ctx, "dropping trade update with unknown side",
			slog.String("order_id", u.Order.ID),
			slog.String("side", u.Order.Side),
		)
		d.alerts.Alert(ctx, "error", "decoder: unknown order side "+u.Order.Side)
		return
	}

	at := eventTime(u.Timestamp)

	if err := d.fills.Create(ctx, domain.FillRecord{
		OrderID:  u.Order.ID,
		Quantity: qty,
		Price:    price,
		FilledAt: at,
	}); err != nil {
		d.logger.ErrorContext(ctx, "fill persist failed",
			slog.String("order_id", u.Order.ID),
			slog.String("error", err.Error()),
		)
		d.alerts.Alert(ctx, "error", "decoder: persist fill failed: "+err.Error())
	}

	status := domain.OrderStatusPartial
	if u.Event == alpaca.TradeEventFill {
		status = domain.OrderStatusFilled
	}
	if err := d.orders.UpdateStatus(ctx, u.Order.ID, status, filledQty); err != nil {
		d.logger.ErrorContext(ctx, "order status update failed",
			slog.String("order_id", u.Order.ID),
			slog.String("error", err.Error()),
		)
	}
	if u.Event == alpaca.TradeEventFill && d.releaser != nil {
		d.releaser.Release(u.Order.Symbol)
	}

	d.dispatcher.HandleUpdate(ctx, domain.FillEvent{
		At: at,
		Fill: domain.Fill{
			Symbol:    u.Order.Symbol,
			Quantity:  qty,
			Side:      side,
			FillPrice: price,
		},
	})
}

func (d *Decoder) orderDead(ctx context.Context, u alpaca.TradeUpdate) {
	filledQty, err := strconv.ParseFloat(u.Order.FilledQty, 64)
	if err != nil {
		filledQty = 0
	}
	if err := d.orders.UpdateStatus(ctx, u.Order.ID, domain.OrderStatusCancelled, filledQty); err != nil {
		d.logger.ErrorContext(ctx, "order status update failed",
			slog.String("order_id", u.Order.ID),
			slog.String("error", err.Error()),
		)
	}
	if d.releaser != nil {
		d.releaser.Release(u.Order.Symbol)
	}
	d.alerts.Alert(ctx, "order_dead", "order "+u.Order.ID+" for "+u.Order.Symbol+" "+u.Event)
}

func (d *Decoder) drop(ctx context.Context, u alpaca.TradeUpdate, field string, err error) {
	d.logger.WarnContext(ctx, "dropping undecodable trade update",
		slog.String("event", u.Event),
		slog.String("order_id", u.Order.ID),
		slog.String("field", field),
		slog.String("error", err.Error()),
	)
	d.alerts.Alert(ctx, "error", "decoder: undecodable trade update for order "+u.Order.ID)
}

// NormalizeSide maps every side spelling the broker emits onto a position
// direction: buys open long exposure, sells short.
func NormalizeSide(side string) (domain.Direction, bool) {
	switch strings.ToUpper(side) {
	case "BUY", "LONG":
		return domain.DirectionLong, true
	case "SELL", "SHORT":
		return domain.DirectionShort, true
	default:
		return "", false
	}
}

func eventTime(ts string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return time.Now().UTC()
	}
	return t.UTC()
}
