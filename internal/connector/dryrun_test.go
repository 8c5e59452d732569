package connector

import (
	"context"
	"testing"

	"spotbot/internal/domain"
)

func TestDryRunCreateSpotOrdersFakesAcceptanceWithoutCallingInner(t *testing.T) {
	t.Parallel()

	pair := domain.NewPair(domain.NewToken("BTC"), domain.NewToken("USD"), "BTCUSD", 0)
	inner := &fakeVenueConnector{name: "FMFW"}
	d := DryRun(inner, discardLogger())

	orders := []*domain.SpotOrder{
		{Pair: pair, Side: domain.SideBuy, Quantity: dec("1"), Price: dec("100")},
		{Pair: pair, Side: domain.SideSell, Quantity: dec("1"), Price: dec("102")},
	}
	out, err := d.CreateSpotOrders(context.Background(), orders)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.createCalls != 0 {
		t.Fatalf("inner.createCalls = %d, want 0 (dry-run must not call the venue)", inner.createCalls)
	}
	if len(out) != 2 {
		t.Fatalf("len(out) = %d, want 2", len(out))
	}
	if out[0].OrderID == "" || out[1].OrderID == "" {
		t.Fatal("fake orders must carry a non-empty OrderID")
	}
	if out[0].OrderID == out[1].OrderID {
		t.Fatal("fake order IDs must be unique across a batch")
	}
	for _, o := range out {
		if o.Status != domain.StatusNew {
			t.Fatalf("Status = %q, want NEW", o.Status)
		}
	}
}

func TestDryRunCancelSpotOrderFakesCancellation(t *testing.T) {
	t.Parallel()

	pair := domain.NewPair(domain.NewToken("BTC"), domain.NewToken("USD"), "BTCUSD", 0)
	inner := &fakeVenueConnector{name: "FMFW"}
	d := DryRun(inner, discardLogger())

	order := &domain.SpotOrder{OrderID: "abc", Pair: pair}
	out, err := d.CancelSpotOrder(context.Background(), order)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.cancelCalls != 0 {
		t.Fatalf("inner.cancelCalls = %d, want 0", inner.cancelCalls)
	}
	if out.Status != domain.StatusCanceled {
		t.Fatalf("Status = %q, want CANCELED", out.Status)
	}
}

func TestDryRunPassesReadsThroughToInner(t *testing.T) {
	t.Parallel()

	inner := &fakeVenueConnector{name: "FMFW", balance: map[domain.Token]domain.Balance{
		domain.NewToken("USD"): {Free: dec("100")},
	}}
	d := DryRun(inner, discardLogger())

	bal, err := d.GetInventoryBalance(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(bal) != 1 {
		t.Fatalf("len(bal) = %d, want 1 (read-only calls pass through)", len(bal))
	}
}

// fakeVenueConnector is a minimal hand-rolled Connector used only to verify
// the dry-run decorator never reaches the wrapped venue on mutating calls.
type fakeVenueConnector struct {
	name        string
	balance     map[domain.Token]domain.Balance
	createCalls int
	cancelCalls int
}

func (f *fakeVenueConnector) Name() string         { return f.name }
func (f *fakeVenueConnector) Pairs() []*domain.Pair { return nil }
func (f *fakeVenueConnector) GetInventoryBalance(ctx context.Context) (map[domain.Token]domain.Balance, error) {
	return f.balance, nil
}
func (f *fakeVenueConnector) GetOrderBook(ctx context.Context) (map[string]*domain.OrderBook, error) {
	return nil, nil
}
func (f *fakeVenueConnector) GetTickers(ctx context.Context) (map[string]*domain.Tickers, error) {
	return nil, nil
}
func (f *fakeVenueConnector) GetTradingCandles(ctx context.Context, period domain.CandlePeriod) (map[string]*domain.PriceCandles, error) {
	return nil, nil
}
func (f *fakeVenueConnector) GetActiveSpotOrders(ctx context.Context) ([]*domain.SpotOrder, error) {
	return nil, nil
}
func (f *fakeVenueConnector) CreateSpotOrder(ctx context.Context, order *domain.SpotOrder) (*domain.SpotOrder, error) {
	f.createCalls++
	return order, nil
}
func (f *fakeVenueConnector) CreateSpotOrders(ctx context.Context, orders []*domain.SpotOrder) ([]*domain.SpotOrder, error) {
	f.createCalls++
	return orders, nil
}
func (f *fakeVenueConnector) CancelSpotOrder(ctx context.Context, order *domain.SpotOrder) (*domain.SpotOrder, error) {
	f.cancelCalls++
	return order, nil
}
func (f *fakeVenueConnector) CancelSpotOrders(ctx context.Context, orders []*domain.SpotOrder) ([]*domain.SpotOrder, error) {
	f.cancelCalls++
	return orders, nil
}
func (f *fakeVenueConnector) QueryOrder(ctx context.Context, order *domain.SpotOrder) (*domain.SpotOrder, error) {
	return order, nil
}
func (f *fakeVenueConnector) GetPair(symbol string) (*domain.Pair, error) { return nil, nil }
