// Package payment defines payment attempts against orders and the status
// state machine the service layer enforces.
package payment

import (
	"errors"
	"time"
)

// Method is the payment instrument.
type Method string

const (
	MethodMpesa       Method = "mpesa"
	MethodOrangeMoney Method = "orange_money"
	MethodAirtelMoney Method = "airtel_money"
	MethodCard        Method = "card"
	MethodCash        Method = "cash"
)

// Valid reports whether the method is one of the known values.
func (m Method) Valid() bool {
	switch m {
	case MethodMpesa, MethodOrangeMoney, MethodAirtelMoney, MethodCard, MethodCash:
		return true
	}
	return false
}

// MobileMoney reports whether the method settles through a mobile-money
// provider and therefore needs a phone number and provider round-trip.
func (m Method) MobileMoney() bool {
	return m == MethodMpesa || m == MethodOrangeMoney || m == MethodAirtelMoney
}

// Status is the payment lifecycle state.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
	StatusRefunded   Status = "refunded"
)

// ErrInvalidTransition is returned for status changes the state machine does
// not allow.
var ErrInvalidTransition = errors.New("invalid payment status transition")

// Terminal reports whether no further transitions are allowed.
func (s Status) Terminal() bool {
	return s == StatusFailed || s == StatusCancelled || s == StatusRefunded
}

// CanTransition reports whether a payment may move from s to next:
// pending -> processing -> completed|failed, completed -> refunded, and
// cancellation from any state that has not settled.
func (s Status) CanTransition(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusProcessing || next == StatusFailed || next == StatusCancelled
	case StatusProcessing:
		return next == StatusCompleted || next == StatusFailed || next == StatusCancelled
	case StatusCompleted:
		return next == StatusRefunded
	}
	return false
}

// Payment is one attempt to settle an order.
type Payment struct {
	ID            string    `json:"id"`
	OrderID       string    `json:"order_id"`
	CustomerID    string    `json:"customer_id"`
	Method        Method    `json:"method"`
	Status        Status    `json:"status"`
	AmountCents   int64     `json:"amount_cents"`
	Currency      string    `json:"currency"`
	Phone         string    `json:"phone,omitempty"`
	ProviderRef   string    `json:"provider_ref,omitempty"`
	FailureReason string    `json:"failure_reason,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	CompletedAt   time.Time `json:"completed_at,omitempty"`
}
