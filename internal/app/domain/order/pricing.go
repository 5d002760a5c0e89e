package order

import (
	"errors"
	"fmt"
	"time"

	"github.com/sokoni-labs/commerce_layer/internal/app/domain/coupon"
	"github.com/sokoni-labs/commerce_layer/internal/app/domain/loyalty"
)

// ErrNegativeLine is returned when a cart line carries a negative price or a
// non-positive quantity.
var ErrNegativeLine = errors.New("line price must be non-negative and quantity positive")

// Pricing is the fully computed cost breakdown for a cart.
type Pricing struct {
	SubtotalCents       int64
	CouponDiscountCents int64
	PointsDiscountCents int64
	TotalCents          int64
}

// DiscountCents returns the combined discount applied to the subtotal.
func (p Pricing) DiscountCents() int64 {
	return p.CouponDiscountCents + p.PointsDiscountCents
}

// Subtotal sums the item snapshots in exact integer cents.
func Subtotal(items []Item) (int64, error) {
	var subtotal int64
	for _, it := range items {
		if it.UnitPriceCents < 0 || it.Quantity <= 0 {
			return 0, fmt.Errorf("%w: product %s", ErrNegativeLine, it.ProductID)
		}
		subtotal += it.UnitPriceCents * it.Quantity
	}
	return subtotal, nil
}

// Price computes the checkout breakdown for a cart: subtotal, coupon
// discount, loyalty redemption discount and the final total. The coupon may
// be nil and redeemPoints zero. The total is floored at zero; discounts can
// never drive it negative.
func Price(items []Item, c *coupon.Coupon, redeemPoints int64, now time.Time) (Pricing, error) {
	subtotal, err := Subtotal(items)
	if err != nil {
		return Pricing{}, err
	}

	p := Pricing{SubtotalCents: subtotal}

	if c != nil {
		if err := c.Validate(now, subtotal); err != nil {
			return Pricing{}, err
		}
		p.CouponDiscountCents = c.DiscountCents(subtotal)
	}

	if redeemPoints > 0 {
		cents, err := loyalty.RedemptionDiscountCents(redeemPoints)
		if err != nil {
			return Pricing{}, err
		}
		remaining := subtotal - p.CouponDiscountCents
		if cents > remaining {
			cents = remaining
		}
		p.PointsDiscountCents = cents
	}

	p.TotalCents = subtotal - p.CouponDiscountCents - p.PointsDiscountCents
	if p.TotalCents < 0 {
		p.TotalCents = 0
	}
	return p, nil
}
