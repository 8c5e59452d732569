package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestInventoryUpdateAndSingleBalance(t *testing.T) {
	t.Parallel()

	inv := NewInventory([]Token{"USDT", "ETH"}, 0)

	if b, ok := inv.SingleBalance("USDT"); !ok || !b.Free.IsZero() {
		t.Fatalf("expected seeded zero balance for USDT, got %+v ok=%v", b, ok)
	}

	inv.Update(map[Token]Balance{
		"USDT": {Free: decimal.NewFromInt(100), Used: decimal.Zero, Total: decimal.NewFromInt(100)},
	}, 1000)

	b, ok := inv.SingleBalance("USDT")
	if !ok || !b.Free.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("USDT free = %v, ok=%v, want 100", b.Free, ok)
	}
	if inv.Free("ETH").Sign() != 0 {
		t.Fatalf("ETH free should still be zero after an USDT-only update snapshot replaced the map, got %v", inv.Free("ETH"))
	}
}

func TestInventoryFreeUnknownTokenIsZero(t *testing.T) {
	t.Parallel()

	inv := NewInventory(nil, 0)
	if !inv.Free("DOGE").IsZero() {
		t.Fatal("Free on an untracked token should return zero, not panic or error")
	}
}

func TestInventoryHistoryBounded(t *testing.T) {
	t.Parallel()

	inv := NewInventory([]Token{"USDT"}, 2)
	for i := 0; i < 5; i++ {
		inv.Update(map[Token]Balance{"USDT": {Free: decimal.NewFromInt(int64(i))}}, int64(i))
	}
	if inv.HistoryLen() != 2 {
		t.Fatalf("history length = %d, want bounded to 2", inv.HistoryLen())
	}
}
