package strategy

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/alanyoungcy/alpacabot/internal/domain"
	"github.com/alanyoungcy/alpacabot/internal/notify"
)

type fakeUniverseStore struct {
	entries []domain.UniverseEntry
	err     error

	gotWeekStart time.Time
}

func (s *fakeUniverseStore) ActiveUniverse(ctx context.Context, weekStart time.Time) ([]domain.UniverseEntry, error) {
	s.gotWeekStart = weekStart
	return s.entries, s.err
}

type fakeBarStore struct {
	bars map[string][]domain.Bar
	err  error
}

func (s *fakeBarStore) LatestBars(ctx context.Context, table, symbol string, n int) ([]domain.Bar, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.bars[symbol], nil
}

type signalSink struct {
	events []domain.Event
}

func (s *signalSink) Publish(ev domain.Event) {
	s.events = append(s.events, ev)
}

func newTestSniper(universe *fakeUniverseStore, bars *fakeBarStore) (*Sniper, *signalSink) {
	sink := &signalSink{}
	alerts := notify.NewNotifier(nil, nil, slog.Default())
	return NewSniper(universe, bars, sink, alerts, SniperConfig{}, slog.Default()), sink
}

func entry(symbol string) domain.UniverseEntry {
	return domain.UniverseEntry{Symbol: symbol, PriceSourceTable: "bars_daily"}
}

func TestSniperEmitsSignalWhenOversold(t *testing.T) {
	universe := &fakeUniverseStore{entries: []domain.UniverseEntry{entry("AAPL")}}
	bars := &fakeBarStore{bars: map[string][]domain.Bar{
		// Monotonic decline: RSI(2) is 0, well under the threshold.
		"AAPL": flatRangeBars(30, 100),
	}}
	s, sink := newTestSniper(universe, bars)

	at := time.Date(2026, 1, 7, 9, 30, 0, 0, time.UTC) // Wednesday
	s.OnMarket(context.Background(), domain.MarketEvent{At: at})

	if len(sink.events) != 1 {
		t.Fatalf("published %d events, want 1", len(sink.events))
	}
	se, ok := sink.events[0].(domain.SignalEvent)
	if !ok {
		t.Fatalf("published %T, want SignalEvent", sink.events[0])
	}
	sig := se.Signal
	if sig.StrategyID != SniperName || sig.Symbol != "AAPL" {
		t.Fatalf("unexpected signal %+v", sig)
	}
	if sig.ID == "" {
		t.Fatal("signal has no ID")
	}
	// Last close is 71 and the constant true range makes ATR(14) exactly 2.
	if !almostEqual(sig.Value, 69) {
		t.Fatalf("target = %v, want 69", sig.Value)
	}

	wantWeek := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC) // Monday of that week
	if !universe.gotWeekStart.Equal(wantWeek) {
		t.Fatalf("universe queried for %v, want %v", universe.gotWeekStart, wantWeek)
	}
}

func TestSniperSkipsWhenNotOversold(t *testing.T) {
	rising := flatRangeBars(30, 100)
	for i := range rising {
		rising[i].Close = 100 + float64(i)
		rising[i].High = rising[i].Close + 1
		rising[i].Low = rising[i].Close - 1
	}
	universe := &fakeUniverseStore{entries: []domain.UniverseEntry{entry("AAPL")}}
	bars := &fakeBarStore{bars: map[string][]domain.Bar{"AAPL": rising}}
	s, sink := newTestSniper(universe, bars)

	s.OnMarket(context.Background(), domain.MarketEvent{At: time.Now()})

	if len(sink.events) != 0 {
		t.Fatalf("published %d events for a rising symbol, want 0", len(sink.events))
	}
}

func TestSniperSkipsShortHistory(t *testing.T) {
	universe := &fakeUniverseStore{entries: []domain.UniverseEntry{entry("AAPL")}}
	bars := &fakeBarStore{bars: map[string][]domain.Bar{"AAPL": flatRangeBars(10, 100)}}
	s, sink := newTestSniper(universe, bars)

	s.OnMarket(context.Background(), domain.MarketEvent{At: time.Now()})

	if len(sink.events) != 0 {
		t.Fatalf("published %d events with short history, want 0", len(sink.events))
	}
}

func TestSniperContinuesPastBarFetchFailure(t *testing.T) {
	universe := &fakeUniverseStore{entries: []domain.UniverseEntry{entry("BROKEN"), entry("AAPL")}}
	bars := &fakeBarStore{bars: map[string][]domain.Bar{
		"AAPL": flatRangeBars(30, 100),
		// BROKEN has no bars at all, which reads as short history.
	}}
	s, sink := newTestSniper(universe, bars)

	s.OnMarket(context.Background(), domain.MarketEvent{At: time.Now()})

	if len(sink.events) != 1 {
		t.Fatalf("published %d events, want 1 for the healthy symbol", len(sink.events))
	}
}

func TestSniperAbortsOnUniverseError(t *testing.T) {
	universe := &fakeUniverseStore{err: errors.New("relation does not exist")}
	s, sink := newTestSniper(universe, &fakeBarStore{})

	s.OnMarket(context.Background(), domain.MarketEvent{At: time.Now()})

	if len(sink.events) != 0 {
		t.Fatalf("published %d events despite universe error, want 0", len(sink.events))
	}
}

func TestStartOfWeek(t *testing.T) {
	cases := []struct {
		name string
		in   time.Time
		want time.Time
	}{
		{
			name: "wednesday",
			in:   time.Date(2026, 1, 7, 15, 4, 5, 0, time.UTC),
			want: time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "monday maps to itself",
			in:   time.Date(2026, 1, 5, 0, 0, 1, 0, time.UTC),
			want: time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "sunday maps to previous monday",
			in:   time.Date(2026, 1, 11, 23, 59, 0, 0, time.UTC),
			want: time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := StartOfWeek(tc.in); !got.Equal(tc.want) {
				t.Fatalf("StartOfWeek(%v) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	universe := &fakeUniverseStore{}
	s, _ := newTestSniper(universe, &fakeBarStore{})
	reg.Register(s)

	got, err := reg.Get(SniperName)
	if err != nil {
		t.Fatalf("Get(%q): %v", SniperName, err)
	}
	if got.Name() != SniperName {
		t.Fatalf("registered strategy name = %q, want %q", got.Name(), SniperName)
	}

	if _, err := reg.Get("momentum"); err == nil {
		t.Fatal("Get of unregistered strategy succeeded")
	}

	names := reg.List()
	if len(names) != 1 || names[0] != SniperName {
		t.Fatalf("List() = %v, want [%s]", names, SniperName)
	}
}
