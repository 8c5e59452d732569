package status

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"spotbot/internal/domain"
	"spotbot/internal/exchange"
)

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
func (f *fakeConnector) CreateSpotOrder(ctx context.Context, o *domain.SpotOrder) (*domain.SpotOrder, error) {
	return o, nil
}
func (f *fakeConnector) CreateSpotOrders(ctx context.Context, o []*domain.SpotOrder) ([]*domain.SpotOrder, error) {
	return o, nil
}
func (f *fakeConnector) CancelSpotOrder(ctx context.Context, o *domain.SpotOrder) (*domain.SpotOrder, error) {
	return o, nil
}
func (f *fakeConnector) CancelSpotOrders(ctx context.Context, o []*domain.SpotOrder) ([]*domain.SpotOrder, error) {
	return o, nil
}
func (f *fakeConnector) QueryOrder(ctx context.Context, o *domain.SpotOrder) (*domain.SpotOrder, error) {
	return o, nil
}
func (f *fakeConnector) GetPair(symbol string) (*domain.Pair, error) { return nil, nil }

type fakeBot struct {
	id string
	ex []*exchange.SpotExchange
}

func (b *fakeBot) ID() string                          { return b.id }
func (b *fakeBot) Exchanges() []*exchange.SpotExchange { return b.ex }

func TestBuildSnapshotAggregatesBotsAndExchanges(t *testing.T) {
	t.Parallel()

	pair := domain.NewPair(domain.NewToken("BTC"), domain.NewToken("USD"), "BTCUSD", 0)
	pair.SetTickSize(decimal.NewFromFloat(0.01))
	pair.SetQuantityIncrement(decimal.NewFromFloat(0.001))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ex := exchange.New(exchange.Config{
		Connector: &fakeConnector{name: "FAKE"},
		Pairs:     []*domain.Pair{pair},
		Logger:    logger,
	})
	ex.Inventory().Update(map[domain.Token]domain.Balance{
		domain.NewToken("USD"): {Free: decimal.NewFromInt(500), Total: decimal.NewFromInt(500)},
	}, time.Now().Unix())

	bots := []BotView{&fakeBot{id: "bot-1", ex: []*exchange.SpotExchange{ex}}}

	snap := BuildSnapshot(bots)

	if len(snap.Bots) != 1 {
		t.Fatalf("len(Bots) = %d, want 1", len(snap.Bots))
	}
	bot := snap.Bots[0]
	if bot.BotID != "bot-1" {
		t.Fatalf("BotID = %q, want bot-1", bot.BotID)
	}
	if len(bot.Exchanges) != 1 {
		t.Fatalf("len(Exchanges) = %d, want 1", len(bot.Exchanges))
	}
	exSnap := bot.Exchanges[0]
	if exSnap.Name != "FAKE" {
		t.Fatalf("Name = %q, want FAKE", exSnap.Name)
	}
	if len(exSnap.Pairs) != 1 || exSnap.Pairs[0].Symbol != "BTCUSD" {
		t.Fatalf("Pairs = %+v, want one BTCUSD entry", exSnap.Pairs)
	}
	bal, ok := exSnap.Balances["USD"]
	if !ok || bal.Free != "500" {
		t.Fatalf("Balances[USD] = %+v, ok=%v, want Free=500", bal, ok)
	}
}
