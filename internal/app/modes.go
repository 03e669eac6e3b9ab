package app

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/alpacabot/internal/archive"
	"github.com/alanyoungcy/alpacabot/internal/engine"
	"github.com/alanyoungcy/alpacabot/internal/executor"
	"github.com/alanyoungcy/alpacabot/internal/platform/alpaca"
	"github.com/alanyoungcy/alpacabot/internal/portfolio"
	"github.com/alanyoungcy/alpacabot/internal/strategy"
)

// TradeMode runs the trading loop: the scheduler fires daily evaluation
// cycles, the trade-update stream feeds fills back in, and the dispatch loop
// routes everything in between.
func (a *App) TradeMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting trade mode")

	g, ctx := errgroup.WithContext(ctx)
	if err := a.startTrading(ctx, g, deps); err != nil {
		return fmt.Errorf("trade mode: %w", err)
	}
	return g.Wait()
}

// ArchiveMode runs only the cold-storage archiver on its cron schedule.
func (a *App) ArchiveMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting archive mode")

	g, ctx := errgroup.WithContext(ctx)
	if err := a.startArchiver(ctx, g, deps); err != nil {
		return fmt.Errorf("archive mode: %w", err)
	}
	return g.Wait()
}

// FullMode runs trading plus, when enabled, the archiver.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	g, ctx := errgroup.WithContext(ctx)

	if err := a.startTrading(ctx, g, deps); err != nil {
		return fmt.Errorf("full mode: %w", err)
	}
	if a.cfg.Archive.Enabled {
		if err := a.startArchiver(ctx, g, deps); err != nil {
			return fmt.Errorf("full mode: %w", err)
		}
	}

	return g.Wait()
}

// startTrading assembles the dispatch loop and its handlers and adds the
// long-running goroutines (trade-update stream, evaluation scheduler) to g.
//
// Construction order matters: the engine is built first because the
// portfolio and strategies publish through it, then the handlers, and
// finally Attach closes the loop.
func (a *App) startTrading(ctx context.Context, g *errgroup.Group, deps *Dependencies) error {
	if deps.Broker == nil {
		return fmt.Errorf("trading requires broker credentials")
	}

	eng := engine.New(a.logger)

	port := portfolio.New(
		deps.PositionStore,
		deps.Broker,
		eng,
		portfolio.CashQuantitySizer{},
		deps.Notifier,
		portfolio.Config{
			StrategyID:   a.cfg.Strategy.Name,
			MaxPositions: a.cfg.Portfolio.MaxPositions,
		},
		a.logger,
	)

	reg := strategy.NewRegistry()
	reg.Register(strategy.NewSniper(
		deps.UniverseStore,
		deps.BarStore,
		eng,
		deps.Notifier,
		strategy.SniperConfig{
			BarWindow:    a.cfg.Strategy.Sniper.BarWindow,
			RSIPeriod:    a.cfg.Strategy.Sniper.RSIPeriod,
			RSIThreshold: a.cfg.Strategy.Sniper.RSIThreshold,
			ATRPeriod:    a.cfg.Strategy.Sniper.ATRPeriod,
		},
		a.logger,
	))
	active, err := reg.Get(a.cfg.Strategy.Name)
	if err != nil {
		return fmt.Errorf("select strategy: %w", err)
	}

	exec := executor.NewExecutor(deps.Broker, deps.Notifier, a.logger)
	eng.Attach(port, exec, active)
	g.Go(func() error {
		return exec.Run(ctx)
	})

	// Rebuild the live ledger from persisted open positions before any
	// event is dispatched.
	if err := port.Rehydrate(ctx); err != nil {
		return err
	}

	decoder := engine.NewDecoder(deps.OrderStore, deps.FillStore, eng, exec, deps.Notifier, a.logger)
	stream := alpaca.NewStream(
		a.cfg.Alpaca.StreamURL,
		a.cfg.Alpaca.ApiKey,
		a.cfg.Alpaca.ApiSecret,
		func(u alpaca.TradeUpdate) { decoder.HandleTradeUpdate(ctx, u) },
		a.logger,
	)
	g.Go(func() error {
		return stream.Run(ctx)
	})

	sched, err := engine.NewScheduler(eng, engine.SchedulerConfig{
		OpenTime: a.cfg.Scheduler.OpenTime,
		Timezone: a.cfg.Scheduler.Timezone,
	}, a.logger)
	if err != nil {
		return err
	}
	g.Go(func() error {
		return sched.Run(ctx)
	})

	return nil
}

// startArchiver adds the cron-scheduled archive loop to g.
func (a *App) startArchiver(ctx context.Context, g *errgroup.Group, deps *Dependencies) error {
	if deps.Archiver == nil {
		return fmt.Errorf("archiving requires object storage")
	}

	arch := archive.NewArchiver(deps.Archiver, a.cfg.Archive.RetentionDays, a.logger)
	g.Go(func() error {
		return arch.RunCron(ctx, a.cfg.Archive.Cron)
	})
	return nil
}
