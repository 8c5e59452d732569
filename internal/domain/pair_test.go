package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestPairHistoryEvictsFIFO(t *testing.T) {
	t.Parallel()

	p := NewPair(NewToken("eth"), NewToken("usdt"), "", 3)

	for i := 0; i < 5; i++ {
		p.AddOrderBook(NewOrderBook(nil, nil, int64(i)))
	}

	hist := p.OrderBookHistory()
	if len(hist) != 3 {
		t.Fatalf("len(history) = %d, want 3", len(hist))
	}
	// Oldest two (timestamps 0,1) should have been evicted; 2,3,4 remain.
	if hist[0].Timestamp != 2 || hist[2].Timestamp != 4 {
		t.Fatalf("unexpected history window: %+v", hist)
	}
	if p.CurrentOrderBook().Timestamp != 4 {
		t.Fatalf("current book timestamp = %d, want 4 (last appended)", p.CurrentOrderBook().Timestamp)
	}
}

func TestPairDefaultTradingPair(t *testing.T) {
	t.Parallel()

	p := NewPair(NewToken("eth"), NewToken("usdt"), "", 0)
	if p.TradingPair() != "ETHUSDT" {
		t.Fatalf("trading pair = %q, want ETHUSDT", p.TradingPair())
	}
}

func TestPairOverriddenSymbol(t *testing.T) {
	t.Parallel()

	p := NewPair(NewToken("eth"), NewToken("usdt"), "ETH-USDT", 0)
	if p.TradingPair() != "ETH-USDT" {
		t.Fatalf("trading pair = %q, want override ETH-USDT", p.TradingPair())
	}
}

func TestPairMidPriceFromTicker(t *testing.T) {
	t.Parallel()

	p := NewPair(NewToken("eth"), NewToken("usdt"), "", 0)
	if _, ok := p.MidPrice(); ok {
		t.Fatal("expected no mid price before any ticker arrives")
	}

	p.AddTicker(&Tickers{Bid: decimal.NewFromFloat(100), Ask: decimal.NewFromFloat(102)})
	mid, ok := p.MidPrice()
	if !ok || !mid.Equal(decimal.NewFromFloat(101)) {
		t.Fatalf("mid = %v, ok=%v, want 101", mid, ok)
	}
}

func TestPairIgnoresNilSnapshots(t *testing.T) {
	t.Parallel()

	p := NewPair(NewToken("eth"), NewToken("usdt"), "", 0)
	p.AddOrderBook(nil)
	if p.CurrentOrderBook() != nil {
		t.Fatal("nil order book snapshot must be ignored, not stored")
	}
}
