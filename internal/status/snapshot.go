package status

import (
	"time"

	"spotbot/internal/exchange"
)

// BotView is the slice of *supervisor.Bot a snapshot needs; accepting the
// interface rather than the concrete type keeps this package testable
// without a live connector registry.
type BotView interface {
	ID() string
	Exchanges() []*exchange.SpotExchange
}

// BuildSnapshot walks every bot's exchanges and assembles the dashboard
// state, grounded on api.BuildSnapshot's aggregation shape (pull every
// component's own state, don't own any of it).
func BuildSnapshot(bots []BotView) Snapshot {
	out := Snapshot{Timestamp: time.Now(), Bots: make([]BotSnapshot, 0, len(bots))}
	for _, b := range bots {
		out.Bots = append(out.Bots, buildBotSnapshot(b))
	}
	return out
}

func buildBotSnapshot(b BotView) BotSnapshot {
	exs := b.Exchanges()
	bs := BotSnapshot{BotID: b.ID(), Exchanges: make([]ExchangeSnapshot, 0, len(exs))}
	for _, ex := range exs {
		bs.Exchanges = append(bs.Exchanges, buildExchangeSnapshot(ex))
	}
	return bs
}

// forBot narrows a Snapshot down to the single bot named by id, leaving
// Timestamp untouched. An empty id returns snap unchanged. Used to give each
// WebSocket client its own view of a process that may supervise many bots,
// instead of shipping every bot's state to every client regardless of which
// one it asked about.
func (snap Snapshot) forBot(id string) Snapshot {
	if id == "" {
		return snap
	}
	out := Snapshot{Timestamp: snap.Timestamp}
	for _, b := range snap.Bots {
		if b.BotID == id {
			out.Bots = []BotSnapshot{b}
			break
		}
	}
	return out
}

func buildExchangeSnapshot(ex *exchange.SpotExchange) ExchangeSnapshot {
	snap := ex.Snapshot()
	om := ex.OrderManager()

	es := ExchangeSnapshot{
		Name:                      ex.Name(),
		MarketReady:               snap.MarketReady,
		FetchDataStatus:           string(snap.FetchDataStatus),
		StrategyCalculationStatus: string(snap.StrategyCalculationStatus),
		ReadyForStrategy:          snap.ReadyForStrategy,
		MainProcessStatus:         string(snap.MainProcessStatus),
		ProcessActionStatus:       string(snap.ProcessActionStatus),
		LoopCount:                 snap.LoopCount,
		LastIntervalAt:            snap.LastIntervalAt,
		Pairs:                     make([]PairSnapshot, 0, len(ex.Pairs())),
		Orders: OrdersSnapshot{
			Initialized: len(om.InitializedOrders()),
			Active:      len(om.ActiveOrders()),
			Tracked:     len(om.TrackedOrders()),
			Backlog:     len(om.BacklogOrders()),
		},
		Balances: make(map[string]BalanceSnapshot),
	}

	for _, p := range ex.Pairs() {
		ps := PairSnapshot{
			Symbol:            p.TradingPair(),
			TickSize:          p.TickSize().String(),
			QuantityIncrement: p.QuantityIncrement().String(),
		}
		if mid, ok := p.MidPrice(); ok {
			ps.MidPrice = mid.String()
		}
		es.Pairs = append(es.Pairs, ps)
	}

	for token, bal := range ex.Inventory().CurrentBalances() {
		es.Balances[string(token)] = BalanceSnapshot{
			Free:  bal.Free.String(),
			Used:  bal.Used.String(),
			Total: bal.Total.String(),
		}
	}

	return es
}
