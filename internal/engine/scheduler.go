package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/alpacabot/internal/domain"
)

// SchedulerConfig sets when the daily evaluation cycle fires.
type SchedulerConfig struct {
	// OpenTime is the wall-clock trigger in "HH:MM" form.
	OpenTime string
	// Timezone is the IANA zone OpenTime is read in.
	Timezone string
}

// Scheduler fires one market event per weekday at the configured open time,
// driving the strategy evaluation cycle. Weekends are skipped; exchange
// holidays are not tracked, those cycles simply find no trades to make.
type Scheduler struct {
	dispatcher Dispatcher
	logger     *slog.Logger

	loc       *time.Location
	hour, min int
}

// NewScheduler parses cfg and returns a ready Scheduler. OpenTime defaults
// to 09:30 and Timezone to America/New_York.
func NewScheduler(dispatcher Dispatcher, cfg SchedulerConfig, logger *slog.Logger) (*Scheduler, error) {
	if cfg.OpenTime == "" {
		cfg.OpenTime = "09:30"
	}
	if cfg.Timezone == "" {
		cfg.Timezone = "America/New_York"
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("scheduler: load timezone %q: %w", cfg.Timezone, err)
	}

	var hour, min int
	if _, err := fmt.Sscanf(cfg.OpenTime, "%d:%d", &hour, &min); err != nil {
		return nil, fmt.Errorf("scheduler: parse open time %q: %w", cfg.OpenTime, err)
	}
	if hour < 0 || hour > 23 || min < 0 || min > 59 {
		return nil, fmt.Errorf("scheduler: open time %q out of range", cfg.OpenTime)
	}

	return &Scheduler{
		dispatcher: dispatcher,
		logger:     logger.With(slog.String("component", "scheduler")),
		loc:        loc,
		hour:       hour,
		min:        min,
	}, nil
}

// Run blocks until ctx is cancelled, firing a market event at each trigger.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		next := s.NextTrigger(time.Now())
		s.logger.Info("next evaluation cycle scheduled", slog.Time("at", next))

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case now := <-timer.C:
			s.logger.Info("evaluation cycle starting", slog.Time("at", now))
			s.dispatcher.HandleUpdate(ctx, domain.MarketEvent{At: now.UTC()})
		}
	}
}

// NextTrigger returns the first weekday open time strictly after now.
func (s *Scheduler) NextTrigger(now time.Time) time.Time {
	now = now.In(s.loc)
	next := time.Date(now.Year(), now.Month(), now.Day(), s.hour, s.min, 0, 0, s.loc)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	for next.Weekday() == time.Saturday || next.Weekday() == time.Sunday {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
