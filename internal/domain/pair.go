package domain

import (
	"sync"

	"github.com/shopspring/decimal"
)

// DefaultDataMaxLength is the default bounded-history capacity for a Pair's
// order book / ticker / candle ring buffers (spec default: 5000).
const DefaultDataMaxLength = 5000

// Pair is an ordered (base, quote) market. It holds the latest snapshot of
// each data kind plus a FIFO-bounded history, all guarded by a mutex since
// the exchange loop writes from its own goroutine while the status server
// and tests read concurrently.
type Pair struct {
	mu sync.RWMutex

	base, quote Token
	tradingPair string
	maxLength   int

	tickSize          decimal.Decimal
	quantityIncrement decimal.Decimal
	takerRate         decimal.Decimal
	makerRate         decimal.Decimal

	currentBook   *OrderBook
	currentCandle *PriceCandles
	currentTicker *Tickers

	books   []*OrderBook
	candles []*PriceCandles
	tickers []*Tickers
}

// NewPair builds a Pair. If symbol is empty, trading_pair defaults to
// base+quote. maxLength <= 0 falls back to DefaultDataMaxLength.
func NewPair(base, quote Token, symbol string, maxLength int) *Pair {
	if symbol == "" {
		symbol = base.String() + quote.String()
	}
	if maxLength <= 0 {
		maxLength = DefaultDataMaxLength
	}
	return &Pair{
		base:        base,
		quote:       quote,
		tradingPair: symbol,
		maxLength:   maxLength,
	}
}

func (p *Pair) BaseAsset() Token  { return p.base }
func (p *Pair) QuoteAsset() Token { return p.quote }
func (p *Pair) TradingPair() string {
	return p.tradingPair
}

// SetRates sets the taker/maker fee rates loaded from venue settings.
func (p *Pair) SetRates(taker, maker decimal.Decimal) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.takerRate, p.makerRate = taker, maker
}

func (p *Pair) TakerRate() decimal.Decimal {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.takerRate
}

func (p *Pair) MakerRate() decimal.Decimal {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.makerRate
}

// SetTickSize overrides the venue tick size (settable, per spec §3).
func (p *Pair) SetTickSize(v decimal.Decimal) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tickSize = v
}

func (p *Pair) TickSize() decimal.Decimal {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.tickSize
}

// SetQuantityIncrement overrides the venue quantity increment (settable).
func (p *Pair) SetQuantityIncrement(v decimal.Decimal) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.quantityIncrement = v
}

func (p *Pair) QuantityIncrement() decimal.Decimal {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.quantityIncrement
}

// AddOrderBook appends a snapshot to history, evicting the oldest entry on
// overflow, and updates the current pointer. A nil book is ignored.
func (p *Pair) AddOrderBook(b *OrderBook) {
	if b == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.currentBook = b
	p.books = appendBounded(p.books, b, p.maxLength)
}

// AddTradingCandle appends a candle snapshot to history, same eviction rule.
func (p *Pair) AddTradingCandle(c *PriceCandles) {
	if c == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.currentCandle = c
	p.candles = appendBounded(p.candles, c, p.maxLength)
}

// AddTicker appends a ticker snapshot to history, same eviction rule.
func (p *Pair) AddTicker(t *Tickers) {
	if t == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.currentTicker = t
	p.tickers = appendBounded(p.tickers, t, p.maxLength)
}

func appendBounded[T any](list []T, v T, max int) []T {
	if len(list) < max {
		return append(list, v)
	}
	// FIFO eviction: drop oldest, keep the ring at exactly max.
	out := make([]T, 0, max)
	out = append(out, list[1:]...)
	return append(out, v)
}

func (p *Pair) CurrentOrderBook() *OrderBook {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.currentBook
}

func (p *Pair) CurrentCandle() *PriceCandles {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.currentCandle
}

func (p *Pair) CurrentTicker() *Tickers {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.currentTicker
}

// OrderBookHistory returns a copy of the bounded order book history.
func (p *Pair) OrderBookHistory() []*OrderBook {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]*OrderBook, len(p.books))
	copy(out, p.books)
	return out
}

// CandleHistory returns a copy of the bounded candle history.
func (p *Pair) CandleHistory() []*PriceCandles {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]*PriceCandles, len(p.candles))
	copy(out, p.candles)
	return out
}

// TickerHistory returns a copy of the bounded ticker history.
func (p *Pair) TickerHistory() []*Tickers {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]*Tickers, len(p.tickers))
	copy(out, p.tickers)
	return out
}

// MidPrice returns (ask+bid)/2 from the current ticker, if present.
func (p *Pair) MidPrice() (decimal.Decimal, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.currentTicker == nil {
		return decimal.Zero, false
	}
	two := decimal.NewFromInt(2)
	return p.currentTicker.Ask.Add(p.currentTicker.Bid).Div(two), true
}

// ReferencePrice returns the current ticker's close price, if present.
func (p *Pair) ReferencePrice() (decimal.Decimal, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.currentTicker == nil {
		return decimal.Zero, false
	}
	return p.currentTicker.Close, true
}
