// Package strategy defines the contract a concrete quoting strategy
// implements against a bot's set of running exchanges, plus the
// compile-time registry bot profiles name a strategy from. Concrete
// strategy bodies are out of scope; this package ships only the contract
// and a minimal reference implementation that exercises it end to end.
package strategy

import (
	"context"
	"fmt"
	"log/slog"

	"spotbot/internal/errs"
	"spotbot/internal/exchange"
)

// Strategy is constructed once per bot from its full set of running
// exchanges and driven by each exchange's per-interval hook
// (exchange.StrategyFunc). It owns no lifecycle of its own: exchanges call
// back into it, not the other way around.
type Strategy interface {
	// OnInterval runs one strategy pass against ex once ex's market data is
	// fresh for this interval.
	OnInterval(ctx context.Context, ex *exchange.SpotExchange) error
}

// Factory builds a Strategy from its full exchange set and a logger.
type Factory func(exchanges []*exchange.SpotExchange, logger *slog.Logger) (Strategy, error)

var registry = map[string]Factory{}

// Register adds a strategy factory under name, read from a bot profile's
// strategy field (spec §6/§9).
func Register(name string, f Factory) {
	registry[name] = f
}

// New looks up and invokes the factory registered under name. An unknown
// strategy name is surfaced as errs.ErrStrategyNoExist.
func New(name string, exchanges []*exchange.SpotExchange, logger *slog.Logger) (Strategy, error) {
	f, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("strategy %q: %w", name, errs.ErrStrategyNoExist)
	}
	return f(exchanges, logger)
}

// Hook adapts a Strategy into the exchange.StrategyFunc each SpotExchange
// invokes on its own interval.
func Hook(s Strategy) exchange.StrategyFunc {
	return func(ctx context.Context, ex *exchange.SpotExchange) error {
		return s.OnInterval(ctx, ex)
	}
}
