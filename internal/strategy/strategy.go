// Package strategy defines the pluggable signal source contract and the
// concrete strategies shipped with the engine. A strategy consumes market
// events and publishes zero or more signal events through the event sink; it
// never touches the ledger or the broker directly.
package strategy

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/alanyoungcy/alpacabot/internal/domain"
)

// Strategy is the contract every signal source implements. OnMarket is
// invoked once per evaluation cycle from the dispatch loop; implementations
// publish SignalEvents through the sink they were constructed with.
type Strategy interface {
	Name() string
	OnMarket(ctx context.Context, ev domain.MarketEvent)
}

// Registry manages a named collection of strategies. It is safe for
// concurrent use.
type Registry struct {
	mu         sync.RWMutex
	strategies map[string]Strategy
}

// NewRegistry returns an empty, ready-to-use Registry.
func NewRegistry() *Registry {
	return &Registry{
		strategies: make(map[string]Strategy),
	}
}

// Register adds a strategy under its own name, replacing any previous entry.
func (r *Registry) Register(s Strategy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.strategies[s.Name()] = s
}

// Get retrieves a strategy by name.
func (r *Registry) Get(name string) (Strategy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.strategies[name]
	if !ok {
		return nil, fmt.Errorf("strategy %q: not registered", name)
	}
	return s, nil
}

// List returns the names of all registered strategies in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.strategies))
	for n := range r.strategies {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
