// Package support defines customer service requests handled by the
// back-office.
package support

import (
	"errors"
	"time"
)

// Status is the service request lifecycle state.
type Status string

const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in_progress"
	StatusResolved   Status = "resolved"
	StatusClosed     Status = "closed"
)

// ErrInvalidTransition is returned for status changes the workflow does not
// allow.
var ErrInvalidTransition = errors.New("invalid service request status transition")

// CanTransition reports whether a request may move from s to next. Closed is
// terminal; resolved requests may be reopened.
func (s Status) CanTransition(next Status) bool {
	switch s {
	case StatusOpen:
		return next == StatusInProgress || next == StatusResolved || next == StatusClosed
	case StatusInProgress:
		return next == StatusResolved || next == StatusClosed
	case StatusResolved:
		return next == StatusOpen || next == StatusClosed
	}
	return false
}

// Request is a customer service ticket, optionally tied to an order.
type Request struct {
	ID         string    `json:"id"`
	CustomerID string    `json:"customer_id"`
	OrderID    string    `json:"order_id,omitempty"`
	Subject    string    `json:"subject"`
	Body       string    `json:"body"`
	Status     Status    `json:"status"`
	AdminReply string    `json:"admin_reply,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
