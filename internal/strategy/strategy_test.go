package strategy

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"spotbot/internal/domain"
	"spotbot/internal/errs"
	"spotbot/internal/exchange"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeConnector struct{ name string }

func (f *fakeConnector) Name() string         { return f.name }
func (f *fakeConnector) Pairs() []*domain.Pair { return nil }
func (f *fakeConnector) GetInventoryBalance(ctx context.Context) (map[domain.Token]domain.Balance, error) {
	return nil, nil
}
func (f *fakeConnector) GetOrderBook(ctx context.Context) (map[string]*domain.OrderBook, error) {
	return nil, nil
}
func (f *fakeConnector) GetTickers(ctx context.Context) (map[string]*domain.Tickers, error) {
	return nil, nil
}
func (f *fakeConnector) GetTradingCandles(ctx context.Context, period domain.CandlePeriod) (map[string]*domain.PriceCandles, error) {
	return nil, nil
}
func (f *fakeConnector) GetActiveSpotOrders(ctx context.Context) ([]*domain.SpotOrder, error) {
	return nil, nil
}
func (f *fakeConnector) CreateSpotOrder(ctx context.Context, order *domain.SpotOrder) (*domain.SpotOrder, error) {
	return order, nil
}
func (f *fakeConnector) CreateSpotOrders(ctx context.Context, orders []*domain.SpotOrder) ([]*domain.SpotOrder, error) {
	return orders, nil
}
func (f *fakeConnector) CancelSpotOrder(ctx context.Context, order *domain.SpotOrder) (*domain.SpotOrder, error) {
	return order, nil
}
func (f *fakeConnector) CancelSpotOrders(ctx context.Context, orders []*domain.SpotOrder) ([]*domain.SpotOrder, error) {
	return orders, nil
}
func (f *fakeConnector) QueryOrder(ctx context.Context, order *domain.SpotOrder) (*domain.SpotOrder, error) {
	return order, nil
}
func (f *fakeConnector) GetPair(symbol string) (*domain.Pair, error) { return nil, nil }

func TestNewUnknownStrategyIsError(t *testing.T) {
	t.Parallel()

	_, err := New("not-a-strategy", nil, discardLogger())
	if !errors.Is(err, errs.ErrStrategyNoExist) {
		t.Fatalf("err = %v, want wrapping errs.ErrStrategyNoExist", err)
	}
}

func TestPegStrategyQuotesWhenNoActiveOrders(t *testing.T) {
	t.Parallel()

	pair := domain.NewPair(domain.NewToken("BTC"), domain.NewToken("USD"), "BTCUSD", 0)
	pair.AddTicker(&domain.Tickers{Bid: decimal.NewFromInt(100), Ask: decimal.NewFromInt(102)})

	ex := exchange.New(exchange.Config{
		Connector: &fakeConnector{name: "FAKE"},
		Pairs:     []*domain.Pair{pair},
		Logger:    discardLogger(),
	})
	ex.Inventory().Update(map[domain.Token]domain.Balance{
		domain.NewToken("USD"): {Free: decimal.NewFromInt(100000)},
		domain.NewToken("BTC"): {Free: decimal.NewFromInt(100)},
	}, time.Now().Unix())

	s, err := New("peg", []*exchange.SpotExchange{ex}, discardLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := s.OnInterval(context.Background(), ex); err != nil {
		t.Fatalf("OnInterval error: %v", err)
	}

	if got := len(ex.OrderManager().Pair(pair).InitializedOrders()); got != 2 {
		t.Fatalf("len(InitializedOrders) = %d, want 2 (one bid, one ask)", got)
	}
}

func TestPegStrategySkipsPairWithActiveOrders(t *testing.T) {
	t.Parallel()

	pair := domain.NewPair(domain.NewToken("BTC"), domain.NewToken("USD"), "BTCUSD", 0)
	pair.AddTicker(&domain.Tickers{Bid: decimal.NewFromInt(100), Ask: decimal.NewFromInt(102)})

	ex := exchange.New(exchange.Config{
		Connector: &fakeConnector{name: "FAKE"},
		Pairs:     []*domain.Pair{pair},
		Logger:    discardLogger(),
	})
	ex.OrderManager().InsertActiveOrders([]*domain.SpotOrder{
		{OrderID: "existing", Pair: pair, Side: domain.SideBuy, Quantity: decimal.NewFromInt(1), Price: decimal.NewFromInt(100)},
	})

	s, err := New("peg", []*exchange.SpotExchange{ex}, discardLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.OnInterval(context.Background(), ex); err != nil {
		t.Fatalf("OnInterval error: %v", err)
	}

	if got := len(ex.OrderManager().Pair(pair).InitializedOrders()); got != 0 {
		t.Fatalf("len(InitializedOrders) = %d, want 0 (pair already has an active order)", got)
	}
}
