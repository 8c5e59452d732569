package domain

import (
	"sort"

	"github.com/shopspring/decimal"
)

// PriceLevel is one (price, size) entry of an order book side.
type PriceLevel struct {
	Price decimal.Decimal
	Size  decimal.Decimal
}

// OrderBook is an immutable snapshot of one pair's book at Timestamp.
// Bids are sorted descending by price, asks ascending, at construction time.
type OrderBook struct {
	bids      []PriceLevel
	asks      []PriceLevel
	Timestamp int64
}

// NewOrderBook sorts bids descending and asks ascending and returns the snapshot.
func NewOrderBook(bids, asks []PriceLevel, timestamp int64) *OrderBook {
	b := make([]PriceLevel, len(bids))
	copy(b, bids)
	sort.Slice(b, func(i, j int) bool { return b[i].Price.GreaterThan(b[j].Price) })

	a := make([]PriceLevel, len(asks))
	copy(a, asks)
	sort.Slice(a, func(i, j int) bool { return a[i].Price.LessThan(a[j].Price) })

	return &OrderBook{bids: b, asks: a, Timestamp: timestamp}
}

// Bids returns the descending-by-price bid levels.
func (b *OrderBook) Bids() []PriceLevel { return b.bids }

// Asks returns the ascending-by-price ask levels.
func (b *OrderBook) Asks() []PriceLevel { return b.asks }

// BestBid returns the highest bid, or false if the book has no bids.
func (b *OrderBook) BestBid() (PriceLevel, bool) {
	if len(b.bids) == 0 {
		return PriceLevel{}, false
	}
	return b.bids[0], true
}

// BestAsk returns the lowest ask, or false if the book has no asks.
func (b *OrderBook) BestAsk() (PriceLevel, bool) {
	if len(b.asks) == 0 {
		return PriceLevel{}, false
	}
	return b.asks[0], true
}

// NthBestBid returns the n-th best bid (0-indexed), clamped to the last entry
// if n exceeds the book depth. Returns false on an empty book.
func (b *OrderBook) NthBestBid(n int) (PriceLevel, bool) {
	return nthBest(b.bids, n)
}

// NthBestAsk returns the n-th best ask (0-indexed), clamped like NthBestBid.
func (b *OrderBook) NthBestAsk(n int) (PriceLevel, bool) {
	return nthBest(b.asks, n)
}

func nthBest(levels []PriceLevel, n int) (PriceLevel, bool) {
	if len(levels) == 0 {
		return PriceLevel{}, false
	}
	if n < 0 {
		n = 0
	}
	if n >= len(levels) {
		n = len(levels) - 1
	}
	return levels[n], true
}

// MidPrice returns (best_bid+best_ask)/2 when both sides are present.
func (b *OrderBook) MidPrice() (decimal.Decimal, bool) {
	bid, ok := b.BestBid()
	if !ok {
		return decimal.Zero, false
	}
	ask, ok := b.BestAsk()
	if !ok {
		return decimal.Zero, false
	}
	two := decimal.NewFromInt(2)
	return bid.Price.Add(ask.Price).Div(two), true
}
