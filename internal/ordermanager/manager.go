package ordermanager

import (
	"fmt"

	"spotbot/internal/domain"
	"spotbot/internal/errs"
)

// Manager fans a batch of orders out to the right per-pair SubManager and
// exposes the aggregate view the exchange loop and status server need.
// Grounded on order_manger.py::OrderManager (__divide_orders, _create_id,
// the __call__ pair indexer).
type Manager struct {
	exchangeName string
	subs         map[*domain.Pair]*SubManager
	order        []*domain.Pair // preserves configured pair order for iteration
}

// NewManager builds a Manager with one SubManager per pair.
func NewManager(exchangeName string, pairs []*domain.Pair) *Manager {
	subs := make(map[*domain.Pair]*SubManager, len(pairs))
	for _, p := range pairs {
		subs[p] = NewSubManager(p)
	}
	return &Manager{exchangeName: exchangeName, subs: subs, order: pairs}
}

// Pair returns the SubManager for pair, or nil if pair isn't configured on
// this exchange.
func (m *Manager) Pair(pair *domain.Pair) *SubManager {
	return m.subs[pair]
}

// CreateID mints a fresh client order ID namespaced to this exchange.
func (m *Manager) CreateID() string {
	return newClientOrderID(m.exchangeName)
}

// divide groups orders by their Pair, skipping any nil order and any order
// whose pair isn't configured on this exchange.
func (m *Manager) divide(orders []*domain.SpotOrder) map[*domain.Pair][]*domain.SpotOrder {
	out := make(map[*domain.Pair][]*domain.SpotOrder, len(m.order))
	for _, p := range m.order {
		out[p] = nil
	}
	for _, o := range orders {
		if o == nil {
			continue
		}
		if _, ok := out[o.Pair]; !ok {
			continue
		}
		out[o.Pair] = append(out[o.Pair], o)
	}
	return out
}

func (m *Manager) ActiveOrders() []*domain.SpotOrder {
	out := make([]*domain.SpotOrder, 0)
	for _, p := range m.order {
		out = append(out, m.subs[p].ActiveOrders()...)
	}
	return out
}

// InitializedOrders returns every pair's not-yet-posted orders, flattened.
func (m *Manager) InitializedOrders() []*domain.SpotOrder {
	out := make([]*domain.SpotOrder, 0)
	for _, p := range m.order {
		out = append(out, m.subs[p].InitializedOrders()...)
	}
	return out
}

// CancelledListOrders returns every pair's not-yet-cancelled orders, flattened.
func (m *Manager) CancelledListOrders() []*domain.SpotOrder {
	out := make([]*domain.SpotOrder, 0)
	for _, p := range m.order {
		out = append(out, m.subs[p].CancelledListOrders()...)
	}
	return out
}

func (m *Manager) BacklogOrders() []*domain.SpotOrder {
	out := make([]*domain.SpotOrder, 0)
	for _, p := range m.order {
		out = append(out, m.subs[p].BacklogOrders()...)
	}
	return out
}

func (m *Manager) TrackedOrders() []*domain.SpotOrder {
	out := make([]*domain.SpotOrder, 0)
	for _, p := range m.order {
		out = append(out, m.subs[p].TrackedOrders()...)
	}
	return out
}

func (m *Manager) AddPostOrders(orders []*domain.SpotOrder) {
	if len(orders) == 0 {
		return
	}
	byPair := m.divide(orders)
	for _, p := range m.order {
		m.subs[p].AddPostOrder(byPair[p])
	}
}

func (m *Manager) PostingOrders() {
	for _, p := range m.order {
		m.subs[p].PostingOrders()
	}
}

func (m *Manager) PostedOrders(orders []*domain.SpotOrder) {
	byPair := m.divide(orders)
	for _, p := range m.order {
		m.subs[p].PostedOrders(byPair[p])
	}
}

func (m *Manager) AddCancelOrders(orders []*domain.SpotOrder) {
	if len(orders) == 0 {
		return
	}
	byPair := m.divide(orders)
	for _, p := range m.order {
		m.subs[p].AddCancelOrder(byPair[p])
	}
}

func (m *Manager) CancelAllOrders() {
	for _, p := range m.order {
		m.subs[p].CancelAllOrders()
	}
}

func (m *Manager) CancellingOrders() {
	for _, p := range m.order {
		m.subs[p].CancellingOrders()
	}
}

func (m *Manager) CancelledOrders(orders []*domain.SpotOrder) {
	byPair := m.divide(orders)
	for _, p := range m.order {
		m.subs[p].CancelledOrders(byPair[p])
	}
}

// UpdateState reconciles one query_order response per tracked order against
// tracked state. tracked and queried must be index-aligned and the same
// length: queried[i] is the venue's response to tracked[i], nil if that
// venue query came back absent. A pair with any nil response among its own
// tracked orders is short — it raises errs.ErrInsufficientOrders and skips
// its own update this interval, matching order_manger.py::update_state's
// explicit raise, but every other pair with a complete response set still
// updates; one pair's missing query must not stall every pair's state.
func (m *Manager) UpdateState(tracked, queried []*domain.SpotOrder) error {
	if len(tracked) != len(queried) {
		return fmt.Errorf("update state: tracked/queried length mismatch: %d != %d", len(tracked), len(queried))
	}
	if len(tracked) == 0 {
		return nil
	}

	type pairBatch struct {
		results []*domain.SpotOrder
		short   bool
	}
	byPair := make(map[*domain.Pair]*pairBatch, len(m.order))
	for i, o := range tracked {
		if o == nil {
			continue
		}
		pb, ok := byPair[o.Pair]
		if !ok {
			pb = &pairBatch{}
			byPair[o.Pair] = pb
		}
		if queried[i] == nil {
			pb.short = true
			continue
		}
		pb.results = append(pb.results, queried[i])
	}

	var firstErr error
	for _, p := range m.order {
		pb, ok := byPair[p]
		if !ok {
			continue
		}
		if pb.short {
			if firstErr == nil {
				firstErr = fmt.Errorf("pair %s: %w", p.TradingPair(), errs.ErrInsufficientOrders)
			}
			continue
		}
		m.subs[p].UpdateState(pb.results)
	}
	return firstErr
}

func (m *Manager) InsertActiveOrders(orders []*domain.SpotOrder) {
	if len(orders) == 0 {
		return
	}
	byPair := m.divide(orders)
	for _, p := range m.order {
		m.subs[p].InsertActiveOrders(byPair[p])
	}
}

// AddBacklog backlogs either the given orders or, if all is true, every
// currently-active order across every pair.
func (m *Manager) AddBacklog(orders []*domain.SpotOrder, all bool) {
	if all {
		for _, p := range m.order {
			m.subs[p].AddBacklog(nil, true)
		}
		return
	}
	if len(orders) == 0 {
		return
	}
	byPair := m.divide(orders)
	for _, p := range m.order {
		m.subs[p].AddBacklog(byPair[p], false)
	}
}

// BacklogRecover drops the given orders out of their pair's backlog once
// they've been re-submitted to the venue.
func (m *Manager) BacklogRecover(orders []*domain.SpotOrder) {
	if len(orders) == 0 {
		return
	}
	byPair := m.divide(orders)
	for _, p := range m.order {
		m.subs[p].BacklogRecover(byPair[p])
	}
}
