package strategy

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"spotbot/internal/domain"
	"spotbot/internal/errs"
	"spotbot/internal/exchange"
)

// pegOffset is how far each quote sits from the pair's mid price, expressed
// as a fraction (0.001 = 10 bps).
var pegOffset = decimal.NewFromFloat(0.001)

// pegQuantity is the fixed size quoted on each side.
var pegQuantity = decimal.NewFromFloat(0.01)

// PegStrategy quotes a single symmetric bid/ask around each exchange's pairs'
// mid price whenever that pair has no resting active orders. It exists to
// exercise the Strategy contract end to end, not as a production quoting
// strategy (concrete strategy bodies are out of scope).
type PegStrategy struct {
	exchanges []*exchange.SpotExchange
	logger    *slog.Logger
}

func init() {
	Register("peg", func(exchanges []*exchange.SpotExchange, logger *slog.Logger) (Strategy, error) {
		if len(exchanges) == 0 {
			return nil, fmt.Errorf("peg strategy: %w", errs.ErrStrategyNoExist)
		}
		return &PegStrategy{exchanges: exchanges, logger: logger}, nil
	})
}

// OnInterval quotes a fresh bid/ask pair for every pair on ex that has no
// active orders and a known mid price.
func (s *PegStrategy) OnInterval(ctx context.Context, ex *exchange.SpotExchange) error {
	for _, pair := range ex.Pairs() {
		mid, ok := pair.MidPrice()
		if !ok {
			continue
		}
		if len(ex.OrderManager().Pair(pair).ActiveOrders()) > 0 {
			continue
		}

		bidPrice := mid.Sub(mid.Mul(pegOffset))
		askPrice := mid.Add(mid.Mul(pegOffset))

		orders := []*domain.SpotOrder{
			{Pair: pair, Side: domain.SideBuy, OrderType: domain.OrderTypeLimit, Quantity: pegQuantity, Price: bidPrice},
			{Pair: pair, Side: domain.SideSell, OrderType: domain.OrderTypeLimit, Quantity: pegQuantity, Price: askPrice},
		}
		if err := ex.CreateSpotOrders(orders); err != nil {
			s.logger.Warn("peg strategy skipped a quote", "pair", pair.TradingPair(), "error", err)
			continue
		}
	}
	return nil
}
