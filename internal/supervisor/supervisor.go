// Package supervisor constructs and runs one bot from its profile: one
// connector and exchange loop per exchange_bases entry, one strategy shared
// across all of them, and the goroutine fan-out/shutdown sequence that
// drives them until the process is asked to stop. Grounded on the teacher's
// internal/engine/engine.go (context+cancel, sync.WaitGroup goroutine
// fan-out, safety-net cancel-all on shutdown) generalized from "one engine
// per Polymarket market slot" to "one exchange loop per exchange_bases
// entry per bot profile" (spec §6/§12), and on original_source/market_maker/
// market_maker.py's MarketMaker (one SpotExchange per market_info, a single
// strategy instance constructed from the full exchange_bases list).
package supervisor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"spotbot/internal/config"
	"spotbot/internal/connector"
	"spotbot/internal/domain"
	"spotbot/internal/exchange"
	"spotbot/internal/strategy"
)

// Bot runs every exchange loop named by one bot profile plus the strategy
// shared across them.
type Bot struct {
	id        string
	exchanges []*exchange.SpotExchange
	logger    *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New constructs a Bot from profile: one Connector (registry §9, wrapped in
// DryRun when dryRun is set) and one SpotExchange per exchange base, a
// shared Strategy wired to every exchange via SetStrategy. venueSettings is
// keyed by exchange name, then by trading-pair symbol (spec §6).
func New(profile *config.Profile, venueSettings map[string]map[string]config.VenueSettings, dryRun bool, logger *slog.Logger) (*Bot, error) {
	if err := profile.Validate(); err != nil {
		return nil, fmt.Errorf("bot %q: %w", profile.BotID, err)
	}

	exchanges := make([]*exchange.SpotExchange, 0, len(profile.ExchangeBases))
	for _, eb := range profile.ExchangeBases {
		pairs := make([]*domain.Pair, 0, len(eb.Pairs))
		for _, pc := range eb.Pairs {
			pairs = append(pairs, domain.NewPair(domain.NewToken(pc.BaseAsset), domain.NewToken(pc.QuoteAsset), "", 0))
		}
		if vs, ok := venueSettings[eb.ExchangeName]; ok {
			config.Apply(vs, pairs)
		}

		conn, err := connector.New(connector.VenueConfig{
			Name:           eb.ExchangeName,
			APIEndpoint:    eb.APIEndpoint,
			APIKey:         eb.Account.APIKey,
			SecretKey:      eb.Account.SecretKey,
			Pairs:          pairs,
			Retries:        eb.Retries,
			RequestTimeout: secondsOr(eb.RequestTimeoutSec, 5*time.Second),
			ProcessTimeout: secondsOr(eb.ProcessTimeoutSec, 2*time.Second),
			Logger:         logger,
		})
		if err != nil {
			return nil, fmt.Errorf("bot %q: exchange base %q: %w", profile.BotID, eb.ExchangeName, err)
		}
		if dryRun {
			conn = connector.DryRun(conn, logger)
		}

		ex := exchange.New(exchange.Config{
			BotID:        profile.BotID,
			Connector:    conn,
			Pairs:        pairs,
			LoopInterval: secondsOr(eb.LoopIntervalSec, exchange.DefaultLoopInterval),
			Logger:       logger,
		})
		exchanges = append(exchanges, ex)
	}

	strat, err := strategy.New(profile.Strategy, exchanges, logger)
	if err != nil {
		return nil, fmt.Errorf("bot %q: %w", profile.BotID, err)
	}
	hook := strategy.Hook(strat)
	for _, ex := range exchanges {
		ex.SetStrategy(hook)
	}

	return &Bot{id: profile.BotID, exchanges: exchanges, logger: logger}, nil
}

func secondsOr(sec int, fallback time.Duration) time.Duration {
	if sec <= 0 {
		return fallback
	}
	return time.Duration(sec) * time.Second
}

// ID returns the bot's profile ID (for a status server to key snapshots by).
func (b *Bot) ID() string { return b.id }

// Exchanges returns the bot's running exchange loops (for a status server
// to read snapshots from).
func (b *Bot) Exchanges() []*exchange.SpotExchange { return b.exchanges }

// Start runs every exchange loop in its own goroutine and returns
// immediately; call Stop (or cancel parent) to shut down, then Wait to
// block until every loop has returned.
func (b *Bot) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	b.cancel = cancel

	for _, ex := range b.exchanges {
		ex := ex
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			if err := ex.Run(ctx); err != nil && ctx.Err() == nil {
				b.logger.Error("exchange loop exited", "bot_id", b.id, "exchange", ex.Name(), "error", err)
			}
		}()
	}
}

// Stop cancels every running exchange loop's context and, as a safety net,
// marks every resting order for cancellation and flushes that batch to each
// venue before returning. It does not block until the loop goroutines exit;
// call Wait for that.
func (b *Bot) Stop() {
	b.logger.Info("stopping bot", "bot_id", b.id)
	if b.cancel != nil {
		b.cancel()
	}

	cancelCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, ex := range b.exchanges {
		ex.CancelAllSpotOrders()
		ex.Reconcile(cancelCtx)
	}
}

// Wait blocks until every exchange loop goroutine has returned.
func (b *Bot) Wait() {
	b.wg.Wait()
}
