// Package portfolio owns the live position ledger and its lifecycle state
// machine. Per symbol the ledger moves absent → open → absent: the first
// fill for a symbol opens a position, the next fill closes it. The ledger is
// mirrored synchronously to the position store; the store is only the source
// of truth at startup rehydration.
package portfolio

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/alpacabot/internal/domain"
	"github.com/alanyoungcy/alpacabot/internal/notify"
)

// CashSource reads the account's available cash. It is queried fresh on
// every signal, never cached.
type CashSource interface {
	Cash(ctx context.Context) (float64, error)
}

// Config holds portfolio parameters.
type Config struct {
	// StrategyID names the strategy whose signals this portfolio acts on;
	// signals from other strategies are ignored.
	StrategyID string
	// MaxPositions caps concurrent open positions.
	MaxPositions int
}

// Portfolio is the position lifecycle state machine. Its methods are only
// called from within a dispatch cycle, which the engine serializes, so the
// ledger needs no internal locking.
type Portfolio struct {
	store  domain.PositionStore
	cash   CashSource
	sink   domain.EventSink
	sizer  Sizer
	alerts *notify.Notifier
	logger *slog.Logger
	cfg    Config

	positions map[string]domain.Position
}

// New creates a Portfolio with an empty ledger. Call Rehydrate before the
// engine starts dispatching.
func New(
	store domain.PositionStore,
	cash CashSource,
	sink domain.EventSink,
	sizer Sizer,
	alerts *notify.Notifier,
	cfg Config,
	logger *slog.Logger,
) *Portfolio {
	if cfg.MaxPositions <= 0 {
		cfg.MaxPositions = 5
	}
	if sizer == nil {
		sizer = CashQuantitySizer{}
	}
	return &Portfolio{
		store:     store,
		cash:      cash,
		sink:      sink,
		sizer:     sizer,
		alerts:    alerts,
		logger:    logger.With(slog.String("component", "portfolio")),
		cfg:       cfg,
		positions: make(map[string]domain.Position),
	}
}

// Rehydrate loads every OPEN position record into the live ledger. The
// ledger is replaced wholesale, so Rehydrate is also safe to call for a
// restart-style reconcile.
func (p *Portfolio) Rehydrate(ctx context.Context) error {
	recs, err := p.store.GetOpen(ctx)
	if err != nil {
		return fmt.Errorf("portfolio: rehydrate: %w", err)
	}

	positions := make(map[string]domain.Position, len(recs))
	for _, rec := range recs {
		positions[rec.Symbol] = rec.Live()
	}
	p.positions = positions

	p.logger.InfoContext(ctx, "ledger rehydrated", slog.Int("open_positions", len(positions)))
	return nil
}

// OnMarketUpdate is the per-cycle hook reserved for mark-to-market and risk
// checks.
func (p *Portfolio) OnMarketUpdate(ctx context.Context, ev domain.MarketEvent) {
	p.logger.DebugContext(ctx, "market update",
		slog.Time("at", ev.At),
		slog.Int("open_positions", len(p.positions)),
	)
}

// OnSignal turns an accepted signal into a limit order to open a long
// position. Signals are rejected when the ledger is at capacity, and ignored
// when they come from a strategy this portfolio is not wired to.
func (p *Portfolio) OnSignal(ctx context.Context, sig domain.Signal) {
	if len(p.positions) >= p.cfg.MaxPositions {
		msg := fmt.Sprintf("signal for %s rejected: %d positions already open", sig.Symbol, len(p.positions))
		p.logger.WarnContext(ctx, "signal rejected at capacity",
			slog.String("symbol", sig.Symbol),
			slog.Int("max_positions", p.cfg.MaxPositions),
		)
		p.alerts.Alert(ctx, "signal_rejected", msg)
		return
	}

	if sig.StrategyID != p.cfg.StrategyID {
		p.logger.DebugContext(ctx, "ignoring signal from unwired strategy",
			slog.String("strategy_id", sig.StrategyID),
		)
		return
	}

	cash, err := p.cash.Cash(ctx)
	if err != nil {
		p.logger.ErrorContext(ctx, "cash lookup failed", slog.String("error", err.Error()))
		p.alerts.Alert(ctx, "error", "portfolio: cash lookup failed: "+err.Error())
		return
	}

	quantity := p.sizer.Quantity(cash, sig.Value)
	if quantity <= 0 {
		p.logger.WarnContext(ctx, "sized to zero, dropping signal",
			slog.String("symbol", sig.Symbol),
			slog.Float64("cash", cash),
			slog.Float64("value", sig.Value),
		)
		return
	}

	p.sink.Publish(domain.OrderEvent{
		At: time.Now().UTC(),
		Order: domain.Order{
			Type:      domain.OrderTypeLimit,
			Symbol:    sig.Symbol,
			Quantity:  quantity,
			Direction: domain.DirectionLong,
			Price:     round2(sig.Value),
			Intent:    domain.OrderIntentOpen,
		},
	})
}

// OnFill applies a broker-confirmed execution to the ledger. A fill for a
// symbol not in the ledger opens a position; a fill for a held symbol always
// closes it — this model trades full open/close pairs, never scaling.
//
// The persistent write happens before the ledger mutation. If the write
// fails the ledger is left untouched and the fill is reported; startup
// rehydration from OPEN rows bounds the resulting inconsistency window.
func (p *Portfolio) OnFill(ctx context.Context, fill domain.Fill) {
	now := time.Now().UTC()

	pos, held := p.positions[fill.Symbol]
	if !held {
		rec := domain.PositionRecord{
			ID:             uuid.New().String(),
			Symbol:         fill.Symbol,
			StrategyTag:    p.cfg.StrategyID,
			Status:         domain.PositionStatusOpen,
			Side:           fill.Side,
			OpenTime:       now,
			OpenPrice:      fill.FillPrice,
			Quantity:       fill.Quantity,
			CommissionOpen: fill.Commission,
		}
		if err := p.store.Create(ctx, rec); err != nil {
			p.logger.ErrorContext(ctx, "position persist failed",
				slog.String("symbol", fill.Symbol),
				slog.String("error", err.Error()),
			)
			p.alerts.Alert(ctx, "error", "portfolio: persist open position failed: "+err.Error())
			return
		}

		p.positions[fill.Symbol] = rec.Live()
		p.logger.InfoContext(ctx, "position opened",
			slog.String("symbol", fill.Symbol),
			slog.Float64("quantity", fill.Quantity),
			slog.Float64("price", fill.FillPrice),
		)
		return
	}

	if err := p.store.Close(ctx, pos.PositionID, now, fill.FillPrice, fill.Commission); err != nil {
		p.logger.ErrorContext(ctx, "position close persist failed",
			slog.String("symbol", fill.Symbol),
			slog.String("position_id", pos.PositionID),
			slog.String("error", err.Error()),
		)
		p.alerts.Alert(ctx, "error", "portfolio: persist close position failed: "+err.Error())
		return
	}

	delete(p.positions, fill.Symbol)
	p.logger.InfoContext(ctx, "position closed",
		slog.String("symbol", fill.Symbol),
		slog.Float64("price", fill.FillPrice),
	)
}

// OpenPositions returns a snapshot of the live ledger.
func (p *Portfolio) OpenPositions() map[string]domain.Position {
	out := make(map[string]domain.Position, len(p.positions))
	for sym, pos := range p.positions {
		out[sym] = pos
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
