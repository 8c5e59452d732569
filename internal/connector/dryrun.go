package connector

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"spotbot/internal/domain"
)

// dryRun wraps a venue Connector and fakes every mutating call instead of
// reaching the network, while passing the balance, market-data and
// active-order reads straight through to inner. QueryOrder does not reach
// the venue either: it echoes the given order back unchanged. Grounded on the teacher's per-method `if c.dryRun { ... }` branches
// in its REST client, generalized into a decorator since Connector here is
// an interface any venue can implement rather than one monolithic client.
type dryRun struct {
	inner  Connector
	logger *slog.Logger
}

// DryRun wraps inner so CreateSpotOrder(s)/CancelSpotOrder(s) report fake
// success without calling the venue, per the bot supervisor's --dry-run flag
// (spec §6/§12).
func DryRun(inner Connector, logger *slog.Logger) Connector {
	return &dryRun{inner: inner, logger: logger}
}

func (d *dryRun) Name() string                 { return d.inner.Name() }
func (d *dryRun) Pairs() []*domain.Pair         { return d.inner.Pairs() }
func (d *dryRun) GetPair(symbol string) (*domain.Pair, error) { return d.inner.GetPair(symbol) }

func (d *dryRun) GetInventoryBalance(ctx context.Context) (map[domain.Token]domain.Balance, error) {
	return d.inner.GetInventoryBalance(ctx)
}

func (d *dryRun) GetOrderBook(ctx context.Context) (map[string]*domain.OrderBook, error) {
	return d.inner.GetOrderBook(ctx)
}

func (d *dryRun) GetTickers(ctx context.Context) (map[string]*domain.Tickers, error) {
	return d.inner.GetTickers(ctx)
}

func (d *dryRun) GetTradingCandles(ctx context.Context, period domain.CandlePeriod) (map[string]*domain.PriceCandles, error) {
	return d.inner.GetTradingCandles(ctx, period)
}

func (d *dryRun) GetActiveSpotOrders(ctx context.Context) ([]*domain.SpotOrder, error) {
	return d.inner.GetActiveSpotOrders(ctx)
}

func (d *dryRun) CreateSpotOrder(ctx context.Context, order *domain.SpotOrder) (*domain.SpotOrder, error) {
	d.logger.Info("dry-run: would create spot order", "exchange", d.inner.Name(), "pair", order.Pair.TradingPair(), "side", order.Side)
	return d.fakeAccepted(order), nil
}

func (d *dryRun) CreateSpotOrders(ctx context.Context, orders []*domain.SpotOrder) ([]*domain.SpotOrder, error) {
	if len(orders) == 0 {
		return nil, nil
	}
	d.logger.Info("dry-run: would create spot orders", "exchange", d.inner.Name(), "count", len(orders))
	out := make([]*domain.SpotOrder, len(orders))
	for i, o := range orders {
		out[i] = d.fakeAccepted(o)
	}
	return out, nil
}

func (d *dryRun) CancelSpotOrder(ctx context.Context, order *domain.SpotOrder) (*domain.SpotOrder, error) {
	d.logger.Info("dry-run: would cancel spot order", "exchange", d.inner.Name(), "order_id", order.OrderID)
	return d.fakeCancelled(order), nil
}

func (d *dryRun) CancelSpotOrders(ctx context.Context, orders []*domain.SpotOrder) ([]*domain.SpotOrder, error) {
	if len(orders) == 0 {
		return nil, nil
	}
	d.logger.Info("dry-run: would cancel spot orders", "exchange", d.inner.Name(), "count", len(orders))
	out := make([]*domain.SpotOrder, len(orders))
	for i, o := range orders {
		out[i] = d.fakeCancelled(o)
	}
	return out, nil
}

func (d *dryRun) QueryOrder(ctx context.Context, order *domain.SpotOrder) (*domain.SpotOrder, error) {
	return order, nil
}

func (d *dryRun) fakeAccepted(o *domain.SpotOrder) *domain.SpotOrder {
	clone := *o
	if clone.OrderID == "" {
		clone.OrderID = fmt.Sprintf("dry-run-%s", uuid.New().String())
	}
	clone.Status = domain.StatusNew
	return &clone
}

func (d *dryRun) fakeCancelled(o *domain.SpotOrder) *domain.SpotOrder {
	clone := *o
	clone.Status = domain.StatusCanceled
	return &clone
}

var _ Connector = (*dryRun)(nil)
