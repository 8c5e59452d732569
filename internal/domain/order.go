package domain

import "github.com/shopspring/decimal"

// Side is the direction of a SpotOrder.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// OrderType distinguishes how a SpotOrder is matched at the venue.
type OrderType string

const (
	OrderTypeLimit  OrderType = "LIMIT"
	OrderTypeMarket OrderType = "MARKET"
)

// OrderStatus is the venue-reported status of a SpotOrder.
type OrderStatus string

const (
	StatusNew             OrderStatus = "NEW"
	StatusPartiallyFilled OrderStatus = "PARTIALLY_FILLED"
	StatusFilled          OrderStatus = "FILLED"
	StatusCanceled        OrderStatus = "CANCELED"
)

// IsTerminal reports whether the venue considers the order done.
func (s OrderStatus) IsTerminal() bool {
	return s == StatusFilled || s == StatusCanceled
}

// LifecycleState is the Order Manager's internal bucket, distinct from the
// venue-reported OrderStatus.
type LifecycleState string

const (
	StateInitialized       LifecycleState = "INITIALIZED"
	StateHangingPosting    LifecycleState = "HANGING_POSTING"
	StateActive            LifecycleState = "ACTIVE"
	StateCancelledList     LifecycleState = "CANCELLED_LIST"
	StateHangingCancelling LifecycleState = "HANGING_CANCELLING"
	StateCompleted         LifecycleState = "COMPLETED"
)

// SpotOrder is the protocol-level order entity tracked by the Order Manager
// and exchanged with a Connector.
type SpotOrder struct {
	OrderID            string
	Pair               *Pair
	Quantity           decimal.Decimal
	Price              decimal.Decimal
	Side               Side
	OrderType          OrderType
	QuantityCumulative decimal.Decimal
	Status             OrderStatus
	CreatedAt          int64
	UpdatedAt          int64
}

// Unfilled returns the remainder not yet filled (quantity - cumulative),
// used by the backlog to compute the re-submittable amount.
func (o *SpotOrder) Unfilled() decimal.Decimal {
	return o.Quantity.Sub(o.QuantityCumulative)
}

// Clone returns a shallow copy. The backlog uses it so the original and its
// backlog entry don't alias the same struct, and the connectors use it to
// build a POST result without mutating the submitted order.
func (o *SpotOrder) Clone() *SpotOrder {
	cp := *o
	return &cp
}
