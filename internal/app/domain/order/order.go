// Package order defines purchase records and the checkout pricing
// arithmetic. Order items are frozen snapshots of the product at purchase
// time and are never recomputed from the live catalog.
package order

import (
	"errors"
	"time"
)

// Status is the order fulfilment state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusShipped   Status = "shipped"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
)

// ErrInvalidTransition is returned for status changes the fulfilment flow
// does not allow.
var ErrInvalidTransition = errors.New("invalid order status transition")

// Terminal reports whether no further transitions are allowed.
func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// CanTransition reports whether an order may move from s to next. Forward
// progress is linear; cancellation is reachable from any non-terminal state.
func (s Status) CanTransition(next Status) bool {
	if s.Terminal() {
		return false
	}
	if next == StatusCancelled {
		return true
	}
	switch s {
	case StatusPending:
		return next == StatusConfirmed
	case StatusConfirmed:
		return next == StatusShipped
	case StatusShipped:
		return next == StatusDelivered
	}
	return false
}

// Item is a frozen snapshot of one purchased line.
type Item struct {
	ID             string `json:"id"`
	OrderID        string `json:"order_id"`
	ProductID      string `json:"product_id"`
	ProductName    string `json:"product_name"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	Quantity       int64  `json:"quantity"`
}

// Order is a snapshot purchase.
type Order struct {
	ID              string    `json:"id"`
	CustomerID      string    `json:"customer_id"`
	Status          Status    `json:"status"`
	Currency        string    `json:"currency"`
	SubtotalCents   int64     `json:"subtotal_cents"`
	DiscountCents   int64     `json:"discount_cents"`
	TotalCents      int64     `json:"total_cents"`
	CouponCode      string    `json:"coupon_code,omitempty"`
	PointsRedeemed  int64     `json:"points_redeemed,omitempty"`
	ShippingAddress string    `json:"shipping_address"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
