package domain

import (
	"sync"

	"github.com/shopspring/decimal"
)

// Balance is the plain {free, used, total} struct spec §9 mandates in place
// of the source's attribute-style dict access ("dot-dict").
type Balance struct {
	Free  decimal.Decimal
	Used  decimal.Decimal
	Total decimal.Decimal
}

// balanceSnapshot tags a captured balance map with when it was fetched.
type balanceSnapshot struct {
	timestamp int64
	balances  map[Token]Balance
}

// Inventory tracks the current per-token balance plus a bounded history of
// past snapshots, each tagged with its capture timestamp.
type Inventory struct {
	mu        sync.RWMutex
	maxLength int
	current   map[Token]Balance
	history   []balanceSnapshot
}

// NewInventory seeds a zero balance for every tracked token.
func NewInventory(tokens []Token, maxLength int) *Inventory {
	if maxLength <= 0 {
		maxLength = DefaultDataMaxLength
	}
	current := make(map[Token]Balance, len(tokens))
	for _, t := range tokens {
		current[t] = Balance{}
	}
	return &Inventory{maxLength: maxLength, current: current}
}

// Update replaces the current balance map and appends a timestamped snapshot
// to history, evicting the oldest entry on overflow.
func (inv *Inventory) Update(balances map[Token]Balance, timestamp int64) {
	inv.mu.Lock()
	defer inv.mu.Unlock()

	current := make(map[Token]Balance, len(balances))
	for tok, bal := range balances {
		current[tok] = bal
	}
	inv.current = current
	inv.history = appendBounded(inv.history, balanceSnapshot{timestamp: timestamp, balances: current}, inv.maxLength)
}

// CurrentBalances returns a copy of the current per-token balance map.
func (inv *Inventory) CurrentBalances() map[Token]Balance {
	inv.mu.RLock()
	defer inv.mu.RUnlock()
	out := make(map[Token]Balance, len(inv.current))
	for k, v := range inv.current {
		out[k] = v
	}
	return out
}

// SingleBalance returns the current balance for one token.
func (inv *Inventory) SingleBalance(token Token) (Balance, bool) {
	inv.mu.RLock()
	defer inv.mu.RUnlock()
	b, ok := inv.current[token]
	return b, ok
}

// Free is a convenience accessor returning the free amount for one token
// (zero if the token is unknown), used throughout the sufficiency checks.
func (inv *Inventory) Free(token Token) decimal.Decimal {
	b, ok := inv.SingleBalance(token)
	if !ok {
		return decimal.Zero
	}
	return b.Free
}

// HistoryLen returns the number of snapshots in the bounded balance history.
func (inv *Inventory) HistoryLen() int {
	inv.mu.RLock()
	defer inv.mu.RUnlock()
	return len(inv.history)
}
