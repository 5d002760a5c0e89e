// Package coupon defines discount codes and the discount arithmetic applied
// at checkout.
package coupon

import (
	"errors"
	"fmt"
	"time"
)

// Type discriminates how Value is interpreted.
type Type string

const (
	// TypePercentage discounts Value percent of the subtotal.
	TypePercentage Type = "percentage"
	// TypeFixed discounts Value cents.
	TypeFixed Type = "fixed"
)

// Valid reports whether the type is one of the known values.
func (t Type) Valid() bool {
	return t == TypePercentage || t == TypeFixed
}

var (
	// ErrExhausted is returned when a coupon's usage limit has been reached.
	ErrExhausted = errors.New("coupon usage limit reached")
	// ErrInactive is returned for disabled coupons.
	ErrInactive = errors.New("coupon is not active")
	// ErrNotStarted is returned before the validity window opens.
	ErrNotStarted = errors.New("coupon is not yet valid")
	// ErrExpired is returned after the validity window closes.
	ErrExpired = errors.New("coupon has expired")
	// ErrMinPurchase is returned when the subtotal is below the coupon's
	// minimum purchase requirement.
	ErrMinPurchase = errors.New("subtotal below coupon minimum purchase")
)

// Coupon is a discount code. UsageLimit of zero means unlimited.
// MaxDiscountCents of zero means uncapped. The used_count <= usage_limit
// invariant is enforced by the storage layer with a conditional update.
type Coupon struct {
	ID               string    `json:"id"`
	Code             string    `json:"code"`
	Type             Type      `json:"type"`
	Value            int64     `json:"value"`
	MinPurchaseCents int64     `json:"min_purchase_cents"`
	MaxDiscountCents int64     `json:"max_discount_cents"`
	UsageLimit       int64     `json:"usage_limit"`
	UsedCount        int64     `json:"used_count"`
	ValidFrom        time.Time `json:"valid_from,omitempty"`
	ValidUntil       time.Time `json:"valid_until,omitempty"`
	Active           bool      `json:"active"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Validate checks whether the coupon may be applied to the given subtotal at
// the given instant. Usage-limit enforcement is deliberately left to the
// storage layer so concurrent checkouts cannot oversell the coupon.
func (c Coupon) Validate(now time.Time, subtotalCents int64) error {
	if !c.Active {
		return ErrInactive
	}
	if !c.ValidFrom.IsZero() && now.Before(c.ValidFrom) {
		return ErrNotStarted
	}
	if !c.ValidUntil.IsZero() && now.After(c.ValidUntil) {
		return ErrExpired
	}
	if subtotalCents < c.MinPurchaseCents {
		return fmt.Errorf("%w: need %d cents", ErrMinPurchase, c.MinPurchaseCents)
	}
	if c.UsageLimit > 0 && c.UsedCount >= c.UsageLimit {
		return ErrExhausted
	}
	return nil
}

// DiscountCents computes the discount for a subtotal. Percentage discounts
// floor the integer division. The result is clamped to MaxDiscountCents when
// set and always to the subtotal, so applying a coupon can never produce a
// negative total.
func (c Coupon) DiscountCents(subtotalCents int64) int64 {
	if subtotalCents <= 0 {
		return 0
	}
	var discount int64
	switch c.Type {
	case TypePercentage:
		discount = subtotalCents * c.Value / 100
	case TypeFixed:
		discount = c.Value
	default:
		return 0
	}
	if c.MaxDiscountCents > 0 && discount > c.MaxDiscountCents {
		discount = c.MaxDiscountCents
	}
	if discount > subtotalCents {
		discount = subtotalCents
	}
	if discount < 0 {
		discount = 0
	}
	return discount
}
