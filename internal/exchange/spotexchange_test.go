package exchange

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"spotbot/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testPair() *domain.Pair {
	p := domain.NewPair(domain.NewToken("BTC"), domain.NewToken("USD"), "BTCUSD", 0)
	p.SetTickSize(decimal.NewFromFloat(0.01))
	p.SetQuantityIncrement(decimal.NewFromFloat(0.001))
	return p
}

// fakeConnector lets tests script exactly what each fetch call returns.
type fakeConnector struct {
	name string

	balance      map[domain.Token]domain.Balance
	book         map[string]*domain.OrderBook
	candles      map[string]*domain.PriceCandles
	tickers      map[string]*domain.Tickers
	activeOrders []*domain.SpotOrder

	queryResult *domain.SpotOrder
	calls       atomic.Int32
	createCalls atomic.Int32
	cancelCalls atomic.Int32
}

func (f *fakeConnector) Name() string                 { return f.name }
func (f *fakeConnector) Pairs() []*domain.Pair         { return nil }
func (f *fakeConnector) GetInventoryBalance(ctx context.Context) (map[domain.Token]domain.Balance, error) {
	return f.balance, nil
}
func (f *fakeConnector) GetOrderBook(ctx context.Context) (map[string]*domain.OrderBook, error) {
	return f.book, nil
}
func (f *fakeConnector) GetTickers(ctx context.Context) (map[string]*domain.Tickers, error) {
	return f.tickers, nil
}
func (f *fakeConnector) GetTradingCandles(ctx context.Context, period domain.CandlePeriod) (map[string]*domain.PriceCandles, error) {
	return f.candles, nil
}
func (f *fakeConnector) GetActiveSpotOrders(ctx context.Context) ([]*domain.SpotOrder, error) {
	return f.activeOrders, nil
}
func (f *fakeConnector) CreateSpotOrder(ctx context.Context, order *domain.SpotOrder) (*domain.SpotOrder, error) {
	return order, nil
}
func (f *fakeConnector) CreateSpotOrders(ctx context.Context, orders []*domain.SpotOrder) ([]*domain.SpotOrder, error) {
	f.createCalls.Add(1)
	return orders, nil
}
func (f *fakeConnector) CancelSpotOrder(ctx context.Context, order *domain.SpotOrder) (*domain.SpotOrder, error) {
	return order, nil
}
func (f *fakeConnector) CancelSpotOrders(ctx context.Context, orders []*domain.SpotOrder) ([]*domain.SpotOrder, error) {
	f.cancelCalls.Add(1)
	for _, o := range orders {
		o.Status = domain.StatusCanceled
	}
	return orders, nil
}
func (f *fakeConnector) QueryOrder(ctx context.Context, order *domain.SpotOrder) (*domain.SpotOrder, error) {
	f.calls.Add(1)
	return f.queryResult, nil
}
func (f *fakeConnector) GetPair(symbol string) (*domain.Pair, error) { return nil, nil }

func newTestExchange(t *testing.T, conn *fakeConnector, pair *domain.Pair) *SpotExchange {
	t.Helper()
	return New(Config{
		Connector: conn,
		Pairs:     []*domain.Pair{pair},
		Logger:    discardLogger(),
	})
}

func TestColdStartRequiresAllFiveDataKinds(t *testing.T) {
	t.Parallel()

	pair := testPair()
	conn := &fakeConnector{name: "FAKE"} // everything nil
	ex := newTestExchange(t, conn, pair)

	if err := ex.fetchDataProcess(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ex.Snapshot().MarketReady {
		t.Fatal("MarketReady = true, want false when any data kind is absent")
	}
}

func TestColdStartBecomesReadyWhenAllDataPresent(t *testing.T) {
	t.Parallel()

	pair := testPair()
	conn := &fakeConnector{
		name:         "FAKE",
		balance:      map[domain.Token]domain.Balance{domain.NewToken("USD"): {Free: decimal.NewFromInt(1000)}},
		book:         map[string]*domain.OrderBook{"BTCUSD": domain.NewOrderBook(nil, nil, 0)},
		candles:      map[string]*domain.PriceCandles{"BTCUSD": {}},
		tickers:      map[string]*domain.Tickers{"BTCUSD": {Bid: decimal.NewFromInt(1), Ask: decimal.NewFromInt(2)}},
		activeOrders: []*domain.SpotOrder{},
	}
	ex := newTestExchange(t, conn, pair)

	if err := ex.fetchDataProcess(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	snap := ex.Snapshot()
	if !snap.MarketReady {
		t.Fatal("MarketReady = false, want true")
	}
	if !snap.ReadyForStrategy {
		t.Fatal("ReadyForStrategy = false, want true")
	}
}

func TestWarmFetchSkipsReconciliationOnMissingInventory(t *testing.T) {
	t.Parallel()

	pair := testPair()
	conn := &fakeConnector{name: "FAKE"} // balance nil
	ex := newTestExchange(t, conn, pair)
	ex.setStatus(func(s *Status) { s.MarketReady = true })

	if err := ex.fetchDataProcess(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if conn.calls.Load() != 0 {
		t.Fatalf("QueryOrder was called %d times, want 0 (reconciliation skipped)", conn.calls.Load())
	}
	if ex.Snapshot().ReadyForStrategy {
		t.Fatal("ReadyForStrategy = true, want false when inventory is missing")
	}
}

func TestCreateSpotOrderRejectsInsufficientQuoteBalance(t *testing.T) {
	t.Parallel()

	pair := testPair()
	conn := &fakeConnector{name: "FAKE"}
	ex := newTestExchange(t, conn, pair)
	ex.inventory.Update(map[domain.Token]domain.Balance{
		domain.NewToken("USD"): {Free: decimal.NewFromInt(10)},
	}, time.Now().Unix())

	order := &domain.SpotOrder{
		Pair:     pair,
		Side:     domain.SideBuy,
		Quantity: decimal.NewFromInt(1),
		Price:    decimal.NewFromInt(100), // value 100 >> 10 available
	}
	if err := ex.CreateSpotOrder(order); err == nil {
		t.Fatal("expected an error for insufficient quote balance")
	}
}

func TestCreateSpotOrderAcceptsSufficientBalance(t *testing.T) {
	t.Parallel()

	pair := testPair()
	conn := &fakeConnector{name: "FAKE"}
	ex := newTestExchange(t, conn, pair)
	ex.inventory.Update(map[domain.Token]domain.Balance{
		domain.NewToken("USD"): {Free: decimal.NewFromInt(1000)},
	}, time.Now().Unix())

	order := &domain.SpotOrder{
		Pair:     pair,
		Side:     domain.SideBuy,
		Quantity: decimal.NewFromInt(1),
		Price:    decimal.NewFromInt(100),
	}
	if err := ex.CreateSpotOrder(order); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := len(ex.orders.Pair(pair).InitializedOrders()); got != 1 {
		t.Fatalf("len(InitializedOrders) = %d, want 1", got)
	}
}

func TestCreateSpotOrdersRejectsBatchExceedingSellInventory(t *testing.T) {
	t.Parallel()

	pair := testPair()
	conn := &fakeConnector{name: "FAKE"}
	ex := newTestExchange(t, conn, pair)
	ex.inventory.Update(map[domain.Token]domain.Balance{
		domain.NewToken("BTC"): {Free: decimal.NewFromInt(1)},
		domain.NewToken("USD"): {Free: decimal.NewFromInt(100000)},
	}, time.Now().Unix())

	orders := []*domain.SpotOrder{
		{Pair: pair, Side: domain.SideSell, Quantity: decimal.NewFromInt(5), Price: decimal.NewFromInt(100)},
	}
	if err := ex.CreateSpotOrders(orders); err == nil {
		t.Fatal("expected an error: selling 5 BTC against a 1 BTC balance")
	}
}

func TestReconcilePostsInitializedOrdersAndActivatesThem(t *testing.T) {
	t.Parallel()

	pair := testPair()
	conn := &fakeConnector{name: "FAKE"}
	ex := newTestExchange(t, conn, pair)
	ex.inventory.Update(map[domain.Token]domain.Balance{
		domain.NewToken("USD"): {Free: decimal.NewFromInt(1000)},
	}, time.Now().Unix())

	order := &domain.SpotOrder{
		Pair:     pair,
		Side:     domain.SideBuy,
		Quantity: decimal.NewFromInt(1),
		Price:    decimal.NewFromInt(100),
	}
	if err := ex.CreateSpotOrder(order); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ex.Reconcile(context.Background())

	if got := len(ex.orders.Pair(pair).InitializedOrders()); got != 0 {
		t.Fatalf("len(InitializedOrders) = %d, want 0 after reconcile", got)
	}
	if got := len(ex.orders.Pair(pair).ActiveOrders()); got != 1 {
		t.Fatalf("len(ActiveOrders) = %d, want 1 after reconcile", got)
	}
	if conn.createCalls.Load() != 1 {
		t.Fatalf("CreateSpotOrders called %d times, want 1", conn.createCalls.Load())
	}
	if status := ex.Snapshot().ProcessActionStatus; status != StatusProcessed {
		t.Fatalf("ProcessActionStatus = %q, want %q", status, StatusProcessed)
	}
}

func TestReconcileWithNoQueuedOrdersMarksProcessedWithoutCallingConnector(t *testing.T) {
	t.Parallel()

	pair := testPair()
	conn := &fakeConnector{name: "FAKE"}
	ex := newTestExchange(t, conn, pair)

	ex.Reconcile(context.Background())

	if conn.createCalls.Load() != 0 || conn.cancelCalls.Load() != 0 {
		t.Fatalf("connector called with nothing queued: create=%d cancel=%d", conn.createCalls.Load(), conn.cancelCalls.Load())
	}
	if status := ex.Snapshot().ProcessActionStatus; status != StatusProcessed {
		t.Fatalf("ProcessActionStatus = %q, want %q", status, StatusProcessed)
	}
}

func TestReconcileCancelsQueuedCancellations(t *testing.T) {
	t.Parallel()

	pair := testPair()
	conn := &fakeConnector{name: "FAKE"}
	ex := newTestExchange(t, conn, pair)
	ex.inventory.Update(map[domain.Token]domain.Balance{
		domain.NewToken("USD"): {Free: decimal.NewFromInt(1000)},
	}, time.Now().Unix())

	order := &domain.SpotOrder{
		Pair:     pair,
		Side:     domain.SideBuy,
		Quantity: decimal.NewFromInt(1),
		Price:    decimal.NewFromInt(100),
	}
	if err := ex.CreateSpotOrder(order); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ex.Reconcile(context.Background()) // post and activate first

	ex.CancelAllSpotOrders()
	ex.Reconcile(context.Background())

	if got := len(ex.orders.Pair(pair).ActiveOrders()); got != 0 {
		t.Fatalf("len(ActiveOrders) = %d, want 0 after cancel reconcile", got)
	}
	if conn.cancelCalls.Load() != 1 {
		t.Fatalf("CancelSpotOrders called %d times, want 1", conn.cancelCalls.Load())
	}
}
