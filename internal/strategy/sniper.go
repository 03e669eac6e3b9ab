package strategy

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/alpacabot/internal/domain"
	"github.com/alanyoungcy/alpacabot/internal/notify"
)

// SniperName is the registry name and signal strategy ID of the sniper
// strategy.
const SniperName = "sniper"

// SniperConfig tunes the sniper entry rule. Zero values fall back to the
// defaults the strategy was designed around.
type SniperConfig struct {
	// BarWindow is how many bars to fetch per symbol; symbols with fewer
	// bars are skipped for the cycle.
	BarWindow int
	// RSIPeriod and RSIThreshold define the oversold trigger.
	RSIPeriod    int
	RSIThreshold float64
	// ATRPeriod sizes the discount below the last close used as the
	// target entry price.
	ATRPeriod int
}

func (c SniperConfig) withDefaults() SniperConfig {
	if c.BarWindow <= 0 {
		c.BarWindow = 30
	}
	if c.RSIPeriod <= 0 {
		c.RSIPeriod = 2
	}
	if c.RSIThreshold <= 0 {
		c.RSIThreshold = 10
	}
	if c.ATRPeriod <= 0 {
		c.ATRPeriod = 14
	}
	return c
}

// Sniper is a mean-reversion entry strategy: when a universe symbol's
// short-period RSI is deeply oversold, it proposes a limit entry one ATR
// below the last close.
type Sniper struct {
	universe domain.UniverseStore
	bars     domain.BarStore
	sink     domain.EventSink
	alerts   *notify.Notifier
	logger   *slog.Logger
	cfg      SniperConfig
}

// NewSniper creates a Sniper reading its universe and price history from the
// given stores and publishing signals through sink.
func NewSniper(
	universe domain.UniverseStore,
	bars domain.BarStore,
	sink domain.EventSink,
	alerts *notify.Notifier,
	cfg SniperConfig,
	logger *slog.Logger,
) *Sniper {
	return &Sniper{
		universe: universe,
		bars:     bars,
		sink:     sink,
		alerts:   alerts,
		logger:   logger.With(slog.String("component", "sniper")),
		cfg:      cfg.withDefaults(),
	}
}

// Name returns the registry name, which doubles as the strategy ID carried
// on every signal.
func (s *Sniper) Name() string { return SniperName }

// OnMarket evaluates every symbol in this week's universe and publishes a
// signal for each one whose entry criteria hold. Symbols with insufficient
// history are skipped silently; store failures are reported and abandon the
// affected unit of work only.
func (s *Sniper) OnMarket(ctx context.Context, ev domain.MarketEvent) {
	weekStart := StartOfWeek(ev.At)

	entries, err := s.universe.ActiveUniverse(ctx, weekStart)
	if err != nil {
		s.logger.ErrorContext(ctx, "universe lookup failed", slog.String("error", err.Error()))
		s.alerts.Alert(ctx, "error", "sniper: universe lookup failed: "+err.Error())
		return
	}
	if len(entries) == 0 {
		s.logger.DebugContext(ctx, "no active universe entries this week",
			slog.Time("week_start", weekStart))
		return
	}

	for _, entry := range entries {
		s.evaluate(ctx, entry, ev.At)
	}
}

func (s *Sniper) evaluate(ctx context.Context, entry domain.UniverseEntry, at time.Time) {
	bars, err := s.bars.LatestBars(ctx, entry.PriceSourceTable, entry.Symbol, s.cfg.BarWindow)
	if err != nil {
		s.logger.WarnContext(ctx, "bar fetch failed",
			slog.String("symbol", entry.Symbol),
			slog.String("error", err.Error()),
		)
		return
	}
	if len(bars) < s.cfg.BarWindow {
		s.logger.DebugContext(ctx, "insufficient history, skipping",
			slog.String("symbol", entry.Symbol),
			slog.Int("bars", len(bars)),
		)
		return
	}

	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}

	rsi, ok := RSI(closes, s.cfg.RSIPeriod)
	if !ok || rsi > s.cfg.RSIThreshold {
		return
	}

	atr, ok := ATR(bars, s.cfg.ATRPeriod)
	if !ok {
		return
	}
	target := closes[len(closes)-1] - atr

	s.logger.InfoContext(ctx, "entry criteria met",
		slog.String("symbol", entry.Symbol),
		slog.Float64("rsi", rsi),
		slog.Float64("target", target),
	)

	s.sink.Publish(domain.SignalEvent{
		At: at,
		Signal: domain.Signal{
			ID:         uuid.New().String(),
			StrategyID: s.Name(),
			Symbol:     entry.Symbol,
			Value:      target,
		},
	})
}

// StartOfWeek returns Monday 00:00:00 UTC of the week containing t.
func StartOfWeek(t time.Time) time.Time {
	t = t.UTC()
	weekday := int(t.Weekday())
	// time.Weekday counts Sunday as 0; shift so Monday is the week start.
	offset := (weekday + 6) % 7
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return day.AddDate(0, 0, -offset)
}

var _ Strategy = (*Sniper)(nil)
