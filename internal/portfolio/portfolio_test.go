package portfolio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/alanyoungcy/alpacabot/internal/domain"
	"github.com/alanyoungcy/alpacabot/internal/notify"
)

type memPositionStore struct {
	recs      map[string]domain.PositionRecord
	createErr error
	closeErr  error
}

func newMemPositionStore() *memPositionStore {
	return &memPositionStore{recs: make(map[string]domain.PositionRecord)}
}

func (s *memPositionStore) Create(ctx context.Context, rec domain.PositionRecord) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.recs[rec.ID] = rec
	return nil
}

func (s *memPositionStore) Close(ctx context.Context, id string, closeTime time.Time, closePrice, commission float64) error {
	if s.closeErr != nil {
		return s.closeErr
	}
	rec, ok := s.recs[id]
	if !ok || rec.Status != domain.PositionStatusOpen {
		return domain.ErrNotFound
	}
	rec.Status = domain.PositionStatusClosed
	rec.CloseTime = &closeTime
	rec.ClosePrice = &closePrice
	rec.CommissionClose = commission
	s.recs[id] = rec
	return nil
}

func (s *memPositionStore) GetOpen(ctx context.Context) ([]domain.PositionRecord, error) {
	var out []domain.PositionRecord
	for _, rec := range s.recs {
		if rec.Status == domain.PositionStatusOpen {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (s *memPositionStore) GetByID(ctx context.Context, id string) (domain.PositionRecord, error) {
	rec, ok := s.recs[id]
	if !ok {
		return domain.PositionRecord{}, domain.ErrNotFound
	}
	return rec, nil
}

func (s *memPositionStore) ListClosedBefore(ctx context.Context, cutoff time.Time) ([]domain.PositionRecord, error) {
	var out []domain.PositionRecord
	for _, rec := range s.recs {
		if rec.Status == domain.PositionStatusClosed && rec.CloseTime != nil && rec.CloseTime.Before(cutoff) {
			out = append(out, rec)
		}
	}
	return out, nil
}

type fixedCash struct {
	cash float64
	err  error
}

func (c fixedCash) Cash(ctx context.Context) (float64, error) {
	return c.cash, c.err
}

type captureSink struct {
	events []domain.Event
}

func (s *captureSink) Publish(ev domain.Event) {
	s.events = append(s.events, ev)
}

func newTestPortfolio(store domain.PositionStore, cash CashSource) (*Portfolio, *captureSink) {
	sink := &captureSink{}
	alerts := notify.NewNotifier(nil, nil, slog.Default())
	p := New(store, cash, sink, nil, alerts, Config{StrategyID: "sniper", MaxPositions: 5}, slog.Default())
	return p, sink
}

func sniperSignal(symbol string, value float64) domain.Signal {
	return domain.Signal{ID: "sig-" + symbol, StrategyID: "sniper", Symbol: symbol, Value: value}
}

func TestSignalProducesLimitOrder(t *testing.T) {
	p, sink := newTestPortfolio(newMemPositionStore(), fixedCash{cash: 15000})

	p.OnSignal(context.Background(), sniperSignal("AAPL", 150))

	if len(sink.events) != 1 {
		t.Fatalf("published %d events, want 1", len(sink.events))
	}
	oe, ok := sink.events[0].(domain.OrderEvent)
	if !ok {
		t.Fatalf("published %T, want OrderEvent", sink.events[0])
	}
	ord := oe.Order
	if ord.Quantity != 100 {
		t.Fatalf("quantity = %v, want 100", ord.Quantity)
	}
	if ord.Type != domain.OrderTypeLimit || ord.Direction != domain.DirectionLong || ord.Intent != domain.OrderIntentOpen {
		t.Fatalf("unexpected order %+v", ord)
	}
	if ord.Price != 150 {
		t.Fatalf("price = %v, want 150", ord.Price)
	}
}

func TestSignalPriceRoundedToCents(t *testing.T) {
	p, sink := newTestPortfolio(newMemPositionStore(), fixedCash{cash: 10000})

	p.OnSignal(context.Background(), sniperSignal("AAPL", 149.98765))

	oe := sink.events[0].(domain.OrderEvent)
	if oe.Order.Price != 149.99 {
		t.Fatalf("price = %v, want 149.99", oe.Order.Price)
	}
}

func TestSignalRejectedAtCapacity(t *testing.T) {
	p, sink := newTestPortfolio(newMemPositionStore(), fixedCash{cash: 15000})

	for i := 0; i < 5; i++ {
		p.OnFill(context.Background(), domain.Fill{
			Symbol:    fmt.Sprintf("SYM%d", i),
			Quantity:  10,
			Side:      domain.DirectionLong,
			FillPrice: 100,
		})
	}
	if got := len(p.OpenPositions()); got != 5 {
		t.Fatalf("open positions = %d, want 5", got)
	}

	p.OnSignal(context.Background(), sniperSignal("EXTRA", 150))

	if len(sink.events) != 0 {
		t.Fatalf("signal at capacity published %d events, want 0", len(sink.events))
	}
}

func TestSignalFromUnwiredStrategyIgnored(t *testing.T) {
	p, sink := newTestPortfolio(newMemPositionStore(), fixedCash{cash: 15000})

	p.OnSignal(context.Background(), domain.Signal{
		ID: "sig-1", StrategyID: "momentum", Symbol: "AAPL", Value: 150,
	})

	if len(sink.events) != 0 {
		t.Fatalf("foreign signal published %d events, want 0", len(sink.events))
	}
}

func TestSignalDroppedWhenCashUnavailable(t *testing.T) {
	p, sink := newTestPortfolio(newMemPositionStore(), fixedCash{err: errors.New("account endpoint down")})

	p.OnSignal(context.Background(), sniperSignal("AAPL", 150))

	if len(sink.events) != 0 {
		t.Fatalf("signal without cash published %d events, want 0", len(sink.events))
	}
}

func TestSignalDroppedWhenSizedToZero(t *testing.T) {
	p, sink := newTestPortfolio(newMemPositionStore(), fixedCash{cash: 50})

	p.OnSignal(context.Background(), sniperSignal("AAPL", 150))

	if len(sink.events) != 0 {
		t.Fatalf("zero-quantity signal published %d events, want 0", len(sink.events))
	}
}

func TestFillOpensThenClosesPosition(t *testing.T) {
	store := newMemPositionStore()
	p, _ := newTestPortfolio(store, fixedCash{cash: 15000})
	ctx := context.Background()

	p.OnFill(ctx, domain.Fill{Symbol: "AAPL", Quantity: 100, Side: domain.DirectionLong, FillPrice: 150})

	open := p.OpenPositions()
	pos, ok := open["AAPL"]
	if !ok || len(open) != 1 {
		t.Fatalf("ledger after opening fill = %v, want one AAPL entry", open)
	}
	if pos.Quantity != 100 || pos.EntryPrice != 150 {
		t.Fatalf("unexpected position %+v", pos)
	}
	rec, err := store.GetByID(ctx, pos.PositionID)
	if err != nil {
		t.Fatalf("open position not persisted: %v", err)
	}
	if rec.Status != domain.PositionStatusOpen {
		t.Fatalf("persisted status = %q, want OPEN", rec.Status)
	}

	p.OnFill(ctx, domain.Fill{Symbol: "AAPL", Quantity: 100, Side: domain.DirectionShort, FillPrice: 160})

	if got := len(p.OpenPositions()); got != 0 {
		t.Fatalf("ledger after closing fill has %d entries, want 0", got)
	}
	rec, err = store.GetByID(ctx, pos.PositionID)
	if err != nil {
		t.Fatalf("closed position not persisted: %v", err)
	}
	if rec.Status != domain.PositionStatusClosed {
		t.Fatalf("persisted status = %q, want CLOSED", rec.Status)
	}
	if rec.ClosePrice == nil || *rec.ClosePrice != 160 {
		t.Fatalf("close price not recorded: %+v", rec)
	}
}

func TestFillLeavesLedgerUntouchedOnStoreError(t *testing.T) {
	store := newMemPositionStore()
	store.createErr = errors.New("connection refused")
	p, _ := newTestPortfolio(store, fixedCash{cash: 15000})

	p.OnFill(context.Background(), domain.Fill{Symbol: "AAPL", Quantity: 100, Side: domain.DirectionLong, FillPrice: 150})

	if got := len(p.OpenPositions()); got != 0 {
		t.Fatalf("ledger mutated despite persist failure: %d entries", got)
	}
}

func TestCloseLeavesLedgerUntouchedOnStoreError(t *testing.T) {
	store := newMemPositionStore()
	p, _ := newTestPortfolio(store, fixedCash{cash: 15000})
	ctx := context.Background()

	p.OnFill(ctx, domain.Fill{Symbol: "AAPL", Quantity: 100, Side: domain.DirectionLong, FillPrice: 150})
	store.closeErr = errors.New("connection refused")
	p.OnFill(ctx, domain.Fill{Symbol: "AAPL", Quantity: 100, Side: domain.DirectionShort, FillPrice: 160})

	if got := len(p.OpenPositions()); got != 1 {
		t.Fatalf("ledger evicted despite persist failure: %d entries", got)
	}
}

func TestRehydrateRestoresOpenPositions(t *testing.T) {
	store := newMemPositionStore()
	p, _ := newTestPortfolio(store, fixedCash{cash: 15000})
	ctx := context.Background()

	p.OnFill(ctx, domain.Fill{Symbol: "AAPL", Quantity: 100, Side: domain.DirectionLong, FillPrice: 150})
	p.OnFill(ctx, domain.Fill{Symbol: "MSFT", Quantity: 50, Side: domain.DirectionLong, FillPrice: 300})
	want := p.OpenPositions()

	// A fresh portfolio over the same store sees the same ledger.
	restarted, _ := newTestPortfolio(store, fixedCash{cash: 15000})
	if err := restarted.Rehydrate(ctx); err != nil {
		t.Fatalf("Rehydrate: %v", err)
	}

	got := restarted.OpenPositions()
	if len(got) != len(want) {
		t.Fatalf("rehydrated %d positions, want %d", len(got), len(want))
	}
	for sym, pos := range want {
		r, ok := got[sym]
		if !ok {
			t.Fatalf("rehydrated ledger missing %s", sym)
		}
		if r.PositionID != pos.PositionID || r.Quantity != pos.Quantity || r.EntryPrice != pos.EntryPrice {
			t.Fatalf("rehydrated %s = %+v, want %+v", sym, r, pos)
		}
	}
}
