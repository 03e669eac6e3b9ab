// Package executor translates order events into broker API calls. It is the
// only component that talks to the trading endpoint; submission failures are
// reported through the notifier and never propagate back into the dispatch
// loop.
package executor

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/alpacabot/internal/domain"
	"github.com/alanyoungcy/alpacabot/internal/notify"
	"github.com/alanyoungcy/alpacabot/internal/platform/alpaca"
)

// TradingClient is the broker surface the executor needs. The alpaca REST
// client implements it.
type TradingClient interface {
	SubmitOrder(ctx context.Context, req alpaca.OrderRequest) (alpaca.OrderResponse, error)
}

// Executor submits orders produced by the portfolio. A per-symbol guard
// suppresses resubmission while an order for the same symbol is still
// resting, since the evaluation cycle can re-propose the same entry on
// consecutive days.
type Executor struct {
	client TradingClient
	guard  *Dedup
	alerts *notify.Notifier
	logger *slog.Logger
}

// NewExecutor creates an Executor submitting through client.
func NewExecutor(client TradingClient, alerts *notify.Notifier, logger *slog.Logger) *Executor {
	return &Executor{
		client: client,
		guard:  NewDedup(24 * time.Hour),
		alerts: alerts,
		logger: logger.With(slog.String("component", "executor")),
	}
}

// intentFor maps a position direction and open/close intent onto the
// broker's position_intent values. Opening long exposure and closing short
// exposure are buys; the other two cells are sells.
func intentFor(direction domain.Direction, intent domain.OrderIntent) (side, positionIntent string) {
	if direction == domain.DirectionLong {
		if intent == domain.OrderIntentOpen {
			return alpaca.SideBuy, "buy_to_open"
		}
		return alpaca.SideSell, "sell_to_close"
	}
	if intent == domain.OrderIntentOpen {
		return alpaca.SideSell, "sell_to_open"
	}
	return alpaca.SideBuy, "buy_to_close"
}

// OnOrder submits one order. Limit orders rest for the day only; market
// orders are good-till-cancel.
func (e *Executor) OnOrder(ctx context.Context, ord domain.Order) {
	log := e.logger.With(
		slog.String("symbol", ord.Symbol),
		slog.String("type", string(ord.Type)),
		slog.String("intent", string(ord.Intent)),
	)

	if e.guard.IsDuplicate(ord.Symbol) {
		log.Debug("order already in flight for symbol, skipping")
		return
	}

	side, positionIntent := intentFor(ord.Direction, ord.Intent)

	req := alpaca.OrderRequest{
		Symbol:         ord.Symbol,
		Qty:            strconv.FormatFloat(ord.Quantity, 'f', -1, 64),
		Side:           side,
		PositionIntent: positionIntent,
		ClientOrderID:  uuid.New().String(),
	}
	switch ord.Type {
	case domain.OrderTypeLimit:
		req.Type = alpaca.OrderTypeLimit
		req.TimeInForce = alpaca.TimeInForceDay
		req.LimitPrice = strconv.FormatFloat(ord.Price, 'f', 2, 64)
	case domain.OrderTypeMarket:
		req.Type = alpaca.OrderTypeMarket
		req.TimeInForce = alpaca.TimeInForceGTC
	}

	resp, err := e.client.SubmitOrder(ctx, req)
	if err != nil {
		log.Error("order submission failed", slog.String("error", err.Error()))
		e.alerts.Alert(ctx, "error", "executor: submit order for "+ord.Symbol+" failed: "+err.Error())
		e.guard.Forget(ord.Symbol)
		return
	}

	log.Info("order submitted",
		slog.String("order_id", resp.ID),
		slog.String("status", resp.Status),
		slog.String("qty", req.Qty),
	)
	e.alerts.Alert(ctx, "order_submitted", "submitted "+side+" "+req.Qty+" "+ord.Symbol)
}

// Release clears the in-flight guard for a symbol, letting a new order be
// submitted. Called when the resting order terminates.
func (e *Executor) Release(symbol string) {
	e.guard.Forget(symbol)
}

// guardSweepInterval is how often expired in-flight entries are removed.
// Entries normally leave via Release; the sweep catches symbols whose
// terminal trade update never arrived.
const guardSweepInterval = time.Hour

// Run sweeps the in-flight guard until ctx is cancelled.
func (e *Executor) Run(ctx context.Context) error {
	ticker := time.NewTicker(guardSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			e.guard.Cleanup()
		}
	}
}
