// Package notify delivers operator alerts over one or more channels
// (Telegram, Discord). The engine treats delivery as fire-and-forget: a
// failed alert is logged and never propagates into the dispatch loop.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Sender is the interface each notification channel implements.
type Sender interface {
	// Send delivers a single alert message.
	Send(ctx context.Context, message string) error
	// Name identifies the channel (e.g. "telegram").
	Name() string
}

// Notifier fans alerts out to its senders, optionally filtered by event
// type. An empty event list allows everything.
type Notifier struct {
	senders []Sender
	events  map[string]bool
	logger  *slog.Logger
}

// NewNotifier creates a Notifier delivering to the given senders. Only
// events named in the events slice pass the filter; an empty slice lets all
// events through.
func NewNotifier(senders []Sender, events []string, logger *slog.Logger) *Notifier {
	allowed := make(map[string]bool, len(events))
	for _, e := range events {
		allowed[strings.TrimSpace(e)] = true
	}
	return &Notifier{
		senders: senders,
		events:  allowed,
		logger:  logger.With(slog.String("component", "notifier")),
	}
}

// Alert delivers a message tagged with an event type. Delivery failures are
// logged, never returned: callers inside the dispatch loop must not fail on a
// dead notification channel.
func (n *Notifier) Alert(ctx context.Context, event, message string) {
	if len(n.events) > 0 && !n.events[event] {
		n.logger.DebugContext(ctx, "alert filtered out", slog.String("event", event))
		return
	}

	for _, s := range n.senders {
		if err := s.Send(ctx, fmt.Sprintf("[%s] %s", event, message)); err != nil {
			n.logger.ErrorContext(ctx, "alert delivery failed",
				slog.String("sender", s.Name()),
				slog.String("event", event),
				slog.String("error", err.Error()),
			)
		}
	}
}
