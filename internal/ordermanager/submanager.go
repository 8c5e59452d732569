// Package ordermanager tracks the lifecycle of every spot order the bot has
// submitted, per pair, through the INITIALIZED -> HANGING_POSTING -> ACTIVE
// -> (CANCELLED_LIST -> HANGING_CANCELLING ->)? COMPLETED state machine.
package ordermanager

import (
	"sync"

	"github.com/shopspring/decimal"

	"spotbot/internal/domain"
)

// SubManager tracks one pair's orders. All mutating methods are called from
// the exchange loop's single goroutine; the mutex exists so Snapshot-style
// readers (status server, tests) never race a concurrent transition.
type SubManager struct {
	mu sync.RWMutex

	pair *domain.Pair

	// buckets[state][orderID] holds every order currently in that state.
	buckets map[domain.LifecycleState]map[string]*domain.SpotOrder
	// stateOf is the reverse index: orderID -> its current bucket.
	stateOf map[string]domain.LifecycleState

	tracked map[string]*domain.SpotOrder
	backlog map[string]*domain.SpotOrder
}

// NewSubManager builds an empty SubManager for pair.
func NewSubManager(pair *domain.Pair) *SubManager {
	buckets := make(map[domain.LifecycleState]map[string]*domain.SpotOrder, 6)
	for _, s := range allStates {
		buckets[s] = make(map[string]*domain.SpotOrder)
	}
	return &SubManager{
		pair:    pair,
		buckets: buckets,
		stateOf: make(map[string]domain.LifecycleState),
		tracked: make(map[string]*domain.SpotOrder),
		backlog: make(map[string]*domain.SpotOrder),
	}
}

var allStates = []domain.LifecycleState{
	domain.StateInitialized,
	domain.StateHangingPosting,
	domain.StateActive,
	domain.StateCancelledList,
	domain.StateHangingCancelling,
	domain.StateCompleted,
}

func (m *SubManager) Pair() *domain.Pair { return m.pair }

func (m *SubManager) ordersIn(state domain.LifecycleState) []*domain.SpotOrder {
	bucket := m.buckets[state]
	out := make([]*domain.SpotOrder, 0, len(bucket))
	for _, o := range bucket {
		out = append(out, o)
	}
	return out
}

func (m *SubManager) HangingPostingOrders() []*domain.SpotOrder {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ordersIn(domain.StateHangingPosting)
}

func (m *SubManager) HangingCancellingOrders() []*domain.SpotOrder {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ordersIn(domain.StateHangingCancelling)
}

func (m *SubManager) ActiveOrders() []*domain.SpotOrder {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ordersIn(domain.StateActive)
}

func (m *SubManager) InitializedOrders() []*domain.SpotOrder {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ordersIn(domain.StateInitialized)
}

func (m *SubManager) CancelledListOrders() []*domain.SpotOrder {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ordersIn(domain.StateCancelledList)
}

func (m *SubManager) CompletedOrders() []*domain.SpotOrder {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ordersIn(domain.StateCompleted)
}

func (m *SubManager) BacklogOrders() []*domain.SpotOrder {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*domain.SpotOrder, 0, len(m.backlog))
	for _, o := range m.backlog {
		out = append(out, o)
	}
	return out
}

func (m *SubManager) TrackedOrders() []*domain.SpotOrder {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*domain.SpotOrder, 0, len(m.tracked))
	for _, o := range m.tracked {
		out = append(out, o)
	}
	return out
}

// changeState moves an order between buckets and updates the reverse index.
// A no-op if it's already in target. Caller must hold mu.
func (m *SubManager) changeState(order *domain.SpotOrder, target domain.LifecycleState) {
	id := order.OrderID
	current, ok := m.stateOf[id]
	if ok && current == target {
		return
	}
	m.buckets[target][id] = order
	if ok {
		delete(m.buckets[current], id)
	}
	m.stateOf[id] = target
}

// AddPostOrder registers freshly-created orders as INITIALIZED, the entry
// point into the state machine.
func (m *SubManager) AddPostOrder(orders []*domain.SpotOrder) {
	if len(orders) == 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range orders {
		m.buckets[domain.StateInitialized][o.OrderID] = o
		m.stateOf[o.OrderID] = domain.StateInitialized
	}
}

// PostingOrders moves every INITIALIZED order to HANGING_POSTING, marking it
// as in flight to the venue's POST endpoint.
func (m *SubManager) PostingOrders() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.ordersIn(domain.StateInitialized) {
		m.changeState(o, domain.StateHangingPosting)
	}
}

// PostedOrders processes the venue's POST responses: a non-terminal order
// becomes ACTIVE and tracked; a terminal one (already filled or canceled at
// submission) becomes COMPLETED directly. Any HANGING_POSTING order absent
// from the response (the venue never acknowledged it) is re-demoted to
// INITIALIZED so the next interval retries the POST.
func (m *SubManager) PostedOrders(orders []*domain.SpotOrder) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range orders {
		if !o.Status.IsTerminal() {
			m.changeState(o, domain.StateActive)
			m.tracked[o.OrderID] = o
		} else {
			m.changeState(o, domain.StateCompleted)
		}
	}
	for _, o := range m.ordersIn(domain.StateHangingPosting) {
		m.changeState(o, domain.StateInitialized)
	}
}

// AddCancelOrder marks the given ACTIVE orders for cancellation. Orders not
// currently ACTIVE are ignored.
func (m *SubManager) AddCancelOrder(orders []*domain.SpotOrder) {
	if len(orders) == 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range orders {
		if m.stateOf[o.OrderID] == domain.StateActive {
			m.changeState(o, domain.StateCancelledList)
		}
	}
}

// CancelAllOrders marks every ACTIVE order for cancellation.
func (m *SubManager) CancelAllOrders() {
	m.AddCancelOrder(m.ActiveOrders())
}

// CancellingOrders moves every CANCELLED_LIST order to HANGING_CANCELLING,
// marking it as in flight to the venue's DELETE endpoint.
func (m *SubManager) CancellingOrders() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.ordersIn(domain.StateCancelledList) {
		m.changeState(o, domain.StateHangingCancelling)
	}
}

// CancelledOrders processes the venue's DELETE responses: each becomes
// COMPLETED and stops being tracked. Any HANGING_CANCELLING order absent from
// the response is put back in CANCELLED_LIST so the next interval retries
// the DELETE.
func (m *SubManager) CancelledOrders(orders []*domain.SpotOrder) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range orders {
		m.changeState(o, domain.StateCompleted)
		delete(m.tracked, o.OrderID)
	}
	for _, o := range m.ordersIn(domain.StateHangingCancelling) {
		m.changeState(o, domain.StateCancelledList)
	}
}

// AddBacklog moves orders into the backlog for later re-submission. When all
// is true every ACTIVE order is backlogged and cancelled; otherwise only the
// given orders that are currently ACTIVE are. In both cases the backlogged
// copy's quantity is reduced to the unfilled remainder and its cumulative
// fill reset, ready to be reposted as a fresh order.
func (m *SubManager) AddBacklog(orders []*domain.SpotOrder, all bool) {
	m.mu.Lock()
	if all {
		active := m.ordersIn(domain.StateActive)
		if len(active) == 0 {
			m.mu.Unlock()
			return
		}
		for _, o := range active {
			m.backlogify(o)
		}
		m.mu.Unlock()
		m.CancelAllOrders()
		return
	}

	if len(orders) == 0 {
		m.mu.Unlock()
		return
	}
	toCancel := make([]*domain.SpotOrder, 0, len(orders))
	for _, o := range orders {
		if m.stateOf[o.OrderID] == domain.StateActive {
			m.backlogify(o)
			toCancel = append(toCancel, o)
		}
	}
	m.mu.Unlock()
	m.AddCancelOrder(toCancel)
}

// backlogify stores a copy of o, reduced to its unfilled remainder with the
// cumulative fill reset, in the backlog map; o itself is left unchanged.
// Caller must hold mu.
func (m *SubManager) backlogify(o *domain.SpotOrder) {
	cp := o.Clone()
	cp.Quantity = o.Unfilled()
	cp.QuantityCumulative = decimal.Zero
	m.backlog[o.OrderID] = cp
}

// BacklogRecover removes orders from the backlog once they've been
// re-submitted.
func (m *SubManager) BacklogRecover(orders []*domain.SpotOrder) {
	if len(orders) == 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range orders {
		delete(m.backlog, o.OrderID)
	}
}

// UpdateState reconciles a batch of queried orders against their tracked
// state. A CANCELLED_LIST or ACTIVE order that has reached a terminal status
// completes and stops being tracked; otherwise the stored snapshot for an
// ACTIVE order is refreshed (e.g. a partial fill bumping cumulative
// quantity).
func (m *SubManager) UpdateState(orders []*domain.SpotOrder) {
	if len(orders) == 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range orders {
		id := o.OrderID
		current := m.stateOf[id]
		switch current {
		case domain.StateCancelledList:
			if o.Status.IsTerminal() {
				m.changeState(o, domain.StateCompleted)
				delete(m.tracked, id)
			}
		case domain.StateActive:
			if o.Status.IsTerminal() {
				m.changeState(o, domain.StateCompleted)
				delete(m.tracked, id)
			} else {
				m.buckets[current][id] = o
				m.tracked[id] = o
			}
		}
	}
}

// InsertActiveOrders seeds orders directly into ACTIVE and tracked, bypassing
// the normal INITIALIZED->HANGING_POSTING->ACTIVE flow. Used on cold start to
// adopt orders that were already resting on the venue.
func (m *SubManager) InsertActiveOrders(orders []*domain.SpotOrder) {
	if len(orders) == 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range orders {
		m.buckets[domain.StateActive][o.OrderID] = o
		m.stateOf[o.OrderID] = domain.StateActive
		m.tracked[o.OrderID] = o
	}
}
