// Package domain holds the value types shared across the connector, order
// manager, and exchange loop: tokens, pairs, order book snapshots, tickers,
// candles, inventory balances, and the protocol-level order entity.
package domain

import "strings"

// Token is a trading asset symbol, always uppercased.
type Token string

// NewToken normalizes a raw symbol into a Token.
func NewToken(symbol string) Token {
	return Token(strings.ToUpper(symbol))
}

func (t Token) String() string {
	return string(t)
}
