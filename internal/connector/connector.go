// Package connector adapts one venue's REST API to the uniform Connector
// contract: balance, order book, tickers, candles, active orders, and
// create/cancel/query order. Concrete connectors (FMFW-style, BITRUE-style)
// embed *base, which implements the template-method wrapper methods that
// log and nil-out an empty/absent result before delegating to the venue's
// own fetch* methods — the same shape as the Python ABC this is grounded on.
package connector

import (
	"context"
	"fmt"
	"log/slog"

	"spotbot/internal/domain"
)

// Connector is the uniform surface the exchange loop talks to. Every method
// returns a nil/empty result on definitive failure after retries; partial
// batches return the subset that succeeded.
type Connector interface {
	Name() string
	Pairs() []*domain.Pair

	GetInventoryBalance(ctx context.Context) (map[domain.Token]domain.Balance, error)
	GetOrderBook(ctx context.Context) (map[string]*domain.OrderBook, error)
	GetTickers(ctx context.Context) (map[string]*domain.Tickers, error)
	GetTradingCandles(ctx context.Context, period domain.CandlePeriod) (map[string]*domain.PriceCandles, error)
	GetActiveSpotOrders(ctx context.Context) ([]*domain.SpotOrder, error)

	CreateSpotOrder(ctx context.Context, order *domain.SpotOrder) (*domain.SpotOrder, error)
	CreateSpotOrders(ctx context.Context, orders []*domain.SpotOrder) ([]*domain.SpotOrder, error)
	CancelSpotOrder(ctx context.Context, order *domain.SpotOrder) (*domain.SpotOrder, error)
	CancelSpotOrders(ctx context.Context, orders []*domain.SpotOrder) ([]*domain.SpotOrder, error)
	QueryOrder(ctx context.Context, order *domain.SpotOrder) (*domain.SpotOrder, error)

	// GetPair resolves a venue symbol back to its configured Pair by
	// positional lookup on the ordered pair list (spec §4.1 symbol resolution).
	GetPair(symbol string) (*domain.Pair, error)
}

// venueImpl is what a concrete connector (FMFW, BITRUE, ...) must supply to
// base; base handles the uniform logging/nil-on-empty/pair-resolution
// wrapper behavior common to every venue.
type venueImpl interface {
	fetchInventoryBalance(ctx context.Context) (map[domain.Token]domain.Balance, error)
	fetchOrderBook(ctx context.Context) (map[string]*domain.OrderBook, error)
	fetchTickers(ctx context.Context) (map[string]*domain.Tickers, error)
	fetchTradingCandles(ctx context.Context, period domain.CandlePeriod) (map[string]*domain.PriceCandles, error)
	fetchActiveSpotOrders(ctx context.Context) ([]*domain.SpotOrder, error)
	postSpotOrder(ctx context.Context, order *domain.SpotOrder) (*domain.SpotOrder, error)
	deleteSpotOrder(ctx context.Context, order *domain.SpotOrder) (*domain.SpotOrder, error)
	fetchOrderStatus(ctx context.Context, order *domain.SpotOrder) (*domain.SpotOrder, error)
}

// base implements Connector's template-method wrappers on top of a venueImpl,
// grounded on base_connector.py's get_inventory_balance/get_order_book/...
// The balance, order book, ticker and candle wrappers log and return nil on
// an empty/absent result; the batch create/cancel wrappers log and skip each
// failed order; the single-order calls and GetActiveSpotOrders return the
// venue result as is.
type base struct {
	name        string
	tradingPairs []string
	pairs       []*domain.Pair
	logger      *slog.Logger
	impl        venueImpl
}

func (b *base) Name() string            { return b.name }
func (b *base) Pairs() []*domain.Pair   { return b.pairs }

func (b *base) GetInventoryBalance(ctx context.Context) (map[domain.Token]domain.Balance, error) {
	res, err := b.impl.fetchInventoryBalance(ctx)
	if err != nil {
		return nil, err
	}
	if len(res) == 0 {
		b.logger.Warn("fail to fetch inventory balance", "exchange", b.name)
		return nil, nil
	}
	b.logger.Info("fetched inventory balance", "exchange", b.name)
	return res, nil
}

func (b *base) GetOrderBook(ctx context.Context) (map[string]*domain.OrderBook, error) {
	res, err := b.impl.fetchOrderBook(ctx)
	if err != nil {
		return nil, err
	}
	if len(res) == 0 {
		b.logger.Warn("fail to fetch order book", "exchange", b.name, "pairs", b.tradingPairs)
		return nil, nil
	}
	return res, nil
}

func (b *base) GetTickers(ctx context.Context) (map[string]*domain.Tickers, error) {
	res, err := b.impl.fetchTickers(ctx)
	if err != nil {
		return nil, err
	}
	if len(res) == 0 {
		b.logger.Warn("fail to fetch tickers", "exchange", b.name, "pairs", b.tradingPairs)
		return nil, nil
	}
	return res, nil
}

func (b *base) GetTradingCandles(ctx context.Context, period domain.CandlePeriod) (map[string]*domain.PriceCandles, error) {
	if period == "" {
		period = domain.PeriodM1
	}
	res, err := b.impl.fetchTradingCandles(ctx, period)
	if err != nil {
		return nil, err
	}
	if len(res) == 0 {
		b.logger.Warn("fail to fetch candles", "exchange", b.name, "pairs", b.tradingPairs)
		return nil, nil
	}
	return res, nil
}

func (b *base) GetActiveSpotOrders(ctx context.Context) ([]*domain.SpotOrder, error) {
	res, err := b.impl.fetchActiveSpotOrders(ctx)
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (b *base) CreateSpotOrder(ctx context.Context, order *domain.SpotOrder) (*domain.SpotOrder, error) {
	return b.impl.postSpotOrder(ctx, order)
}

func (b *base) CreateSpotOrders(ctx context.Context, orders []*domain.SpotOrder) ([]*domain.SpotOrder, error) {
	if len(orders) == 0 {
		return nil, nil
	}
	out := make([]*domain.SpotOrder, 0, len(orders))
	for _, o := range orders {
		res, err := b.impl.postSpotOrder(ctx, o)
		if err != nil {
			b.logger.Error("create spot order failed", "exchange", b.name, "order_id", o.OrderID, "error", err)
			continue
		}
		if res != nil {
			out = append(out, res)
		}
	}
	return out, nil
}

func (b *base) CancelSpotOrder(ctx context.Context, order *domain.SpotOrder) (*domain.SpotOrder, error) {
	return b.impl.deleteSpotOrder(ctx, order)
}

func (b *base) CancelSpotOrders(ctx context.Context, orders []*domain.SpotOrder) ([]*domain.SpotOrder, error) {
	if len(orders) == 0 {
		return nil, nil
	}
	out := make([]*domain.SpotOrder, 0, len(orders))
	for _, o := range orders {
		res, err := b.impl.deleteSpotOrder(ctx, o)
		if err != nil {
			b.logger.Error("cancel spot order failed", "exchange", b.name, "order_id", o.OrderID, "error", err)
			continue
		}
		if res != nil {
			out = append(out, res)
		}
	}
	return out, nil
}

func (b *base) QueryOrder(ctx context.Context, order *domain.SpotOrder) (*domain.SpotOrder, error) {
	return b.impl.fetchOrderStatus(ctx, order)
}

func (b *base) GetPair(symbol string) (*domain.Pair, error) {
	for i, tp := range b.tradingPairs {
		if tp == symbol {
			return b.pairs[i], nil
		}
	}
	return nil, fmt.Errorf("connector %s: no configured pair for symbol %q", b.name, symbol)
}
