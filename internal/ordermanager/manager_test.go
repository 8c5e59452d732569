package ordermanager

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"spotbot/internal/domain"
	"spotbot/internal/errs"
)

func TestManagerDividesOrdersByPair(t *testing.T) {
	t.Parallel()

	btc := domain.NewPair(domain.NewToken("BTC"), domain.NewToken("USD"), "BTCUSD", 0)
	eth := domain.NewPair(domain.NewToken("ETH"), domain.NewToken("USD"), "ETHUSD", 0)
	m := NewManager("FMFW", []*domain.Pair{btc, eth})

	o1 := newOrder("o1", "1", "0", domain.StatusNew)
	o1.Pair = btc
	o2 := newOrder("o2", "1", "0", domain.StatusNew)
	o2.Pair = eth

	m.AddPostOrders([]*domain.SpotOrder{o1, o2})

	if got := len(m.Pair(btc).InitializedOrders()); got != 1 {
		t.Fatalf("btc InitializedOrders = %d, want 1", got)
	}
	if got := len(m.Pair(eth).InitializedOrders()); got != 1 {
		t.Fatalf("eth InitializedOrders = %d, want 1", got)
	}
}

func TestManagerAggregatesAcrossPairs(t *testing.T) {
	t.Parallel()

	btc := domain.NewPair(domain.NewToken("BTC"), domain.NewToken("USD"), "BTCUSD", 0)
	eth := domain.NewPair(domain.NewToken("ETH"), domain.NewToken("USD"), "ETHUSD", 0)
	m := NewManager("FMFW", []*domain.Pair{btc, eth})

	o1 := newOrder("o1", "1", "0", domain.StatusNew)
	o1.Pair = btc
	o2 := newOrder("o2", "1", "0", domain.StatusNew)
	o2.Pair = eth

	m.InsertActiveOrders([]*domain.SpotOrder{o1, o2})

	if got := len(m.ActiveOrders()); got != 2 {
		t.Fatalf("len(ActiveOrders) = %d, want 2", got)
	}
	if got := len(m.TrackedOrders()); got != 2 {
		t.Fatalf("len(TrackedOrders) = %d, want 2", got)
	}
}

func TestManagerInitializedAndCancelledListOrdersAggregateAcrossPairs(t *testing.T) {
	t.Parallel()

	btc := domain.NewPair(domain.NewToken("BTC"), domain.NewToken("USD"), "BTCUSD", 0)
	eth := domain.NewPair(domain.NewToken("ETH"), domain.NewToken("USD"), "ETHUSD", 0)
	m := NewManager("FMFW", []*domain.Pair{btc, eth})

	o1 := newOrder("o1", "1", "0", domain.StatusNew)
	o1.Pair = btc
	o2 := newOrder("o2", "1", "0", domain.StatusNew)
	o2.Pair = eth
	m.AddPostOrders([]*domain.SpotOrder{o1, o2})

	if got := len(m.InitializedOrders()); got != 2 {
		t.Fatalf("len(InitializedOrders) = %d, want 2", got)
	}

	o3 := newOrder("o3", "1", "0", domain.StatusNew)
	o3.Pair = btc
	m.InsertActiveOrders([]*domain.SpotOrder{o3})
	m.AddCancelOrders([]*domain.SpotOrder{o3})

	if got := len(m.CancelledListOrders()); got != 1 {
		t.Fatalf("len(CancelledListOrders) = %d, want 1", got)
	}
}

func TestManagerCreateIDIsNamespacedPerExchange(t *testing.T) {
	t.Parallel()

	m := NewManager("BITRUE", nil)
	id := m.CreateID()
	if id[:12] != "meld_bitrue_" {
		t.Fatalf("id = %q, want prefix meld_bitrue_", id)
	}
}

func TestManagerUpdateStateSurfacesInsufficientOrders(t *testing.T) {
	t.Parallel()

	btc := domain.NewPair(domain.NewToken("BTC"), domain.NewToken("USD"), "BTCUSD", 0)
	m := NewManager("FMFW", []*domain.Pair{btc})

	tracked := newOrder("o1", "1", "0", domain.StatusNew)
	tracked.Pair = btc

	err := m.UpdateState([]*domain.SpotOrder{tracked}, []*domain.SpotOrder{nil})
	if !errors.Is(err, errs.ErrInsufficientOrders) {
		t.Fatalf("err = %v, want wrapping errs.ErrInsufficientOrders", err)
	}
}

func TestManagerUpdateStateScopesInsufficientOrdersToAffectedPair(t *testing.T) {
	t.Parallel()

	btc := domain.NewPair(domain.NewToken("BTC"), domain.NewToken("USD"), "BTCUSD", 0)
	eth := domain.NewPair(domain.NewToken("ETH"), domain.NewToken("USD"), "ETHUSD", 0)
	m := NewManager("FMFW", []*domain.Pair{btc, eth})

	btcOrder := newOrder("o1", "1", "0", domain.StatusNew)
	btcOrder.Pair = btc
	ethOrder := newOrder("o2", "1", "0", domain.StatusNew)
	ethOrder.Pair = eth
	m.InsertActiveOrders([]*domain.SpotOrder{btcOrder, ethOrder})

	ethUpdated := newOrder("o2", "1", "0.5", domain.StatusNew)
	ethUpdated.Pair = eth

	err := m.UpdateState(
		[]*domain.SpotOrder{btcOrder, ethOrder},
		[]*domain.SpotOrder{nil, ethUpdated},
	)
	if !errors.Is(err, errs.ErrInsufficientOrders) {
		t.Fatalf("err = %v, want wrapping errs.ErrInsufficientOrders", err)
	}
	got := m.Pair(eth).TrackedOrders()
	if len(got) != 1 || !got[0].QuantityCumulative.Equal(decimal.NewFromFloat(0.5)) {
		t.Fatalf("eth tracked orders = %+v, want one order with cumulative 0.5: btc's missing query should not block eth's update", got)
	}
}
