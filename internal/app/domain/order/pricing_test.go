package order

import (
	"errors"
	"testing"
	"time"

	"github.com/sokoni-labs/commerce_layer/internal/app/domain/coupon"
	"github.com/sokoni-labs/commerce_layer/internal/app/domain/loyalty"
)

func items(priceCents, qty int64) []Item {
	return []Item{{ProductID: "p1", UnitPriceCents: priceCents, Quantity: qty}}
}

func TestPricePercentageCouponFloors(t *testing.T) {
	now := time.Now()
	c := &coupon.Coupon{Type: coupon.TypePercentage, Value: 10, Active: true}

	p, err := Price(items(10000, 1), c, 0, now)
	if err != nil {
		t.Fatalf("price: %v", err)
	}
	if p.TotalCents != 9000 || p.CouponDiscountCents != 1000 {
		t.Fatalf("10%% of 10000: total=%d discount=%d", p.TotalCents, p.CouponDiscountCents)
	}

	// 15% of 999 is 149.85; integer math floors to 149.
	c.Value = 15
	p, err = Price(items(999, 1), c, 0, now)
	if err != nil {
		t.Fatalf("price: %v", err)
	}
	if p.CouponDiscountCents != 149 {
		t.Fatalf("15%% of 999: discount=%d, want 149", p.CouponDiscountCents)
	}
}

func TestPriceFixedCouponCapAndClamp(t *testing.T) {
	now := time.Now()

	capped := &coupon.Coupon{Type: coupon.TypeFixed, Value: 2000, MaxDiscountCents: 1500, Active: true}
	p, err := Price(items(5000, 1), capped, 0, now)
	if err != nil {
		t.Fatalf("price: %v", err)
	}
	if p.CouponDiscountCents != 1500 || p.TotalCents != 3500 {
		t.Fatalf("capped fixed: discount=%d total=%d", p.CouponDiscountCents, p.TotalCents)
	}

	oversized := &coupon.Coupon{Type: coupon.TypeFixed, Value: 9000, Active: true}
	p, err = Price(items(5000, 1), oversized, 0, now)
	if err != nil {
		t.Fatalf("price: %v", err)
	}
	if p.CouponDiscountCents != 5000 || p.TotalCents != 0 {
		t.Fatalf("oversized fixed: discount=%d total=%d", p.CouponDiscountCents, p.TotalCents)
	}
}

func TestPricePointsClampToRemainder(t *testing.T) {
	now := time.Now()
	c := &coupon.Coupon{Type: coupon.TypeFixed, Value: 900, Active: true}

	// Subtotal 1000, coupon leaves 100; a 200-point redemption only covers
	// what remains.
	p, err := Price(items(1000, 1), c, 200, now)
	if err != nil {
		t.Fatalf("price: %v", err)
	}
	if p.PointsDiscountCents != 100 || p.TotalCents != 0 {
		t.Fatalf("clamped points: points=%d total=%d", p.PointsDiscountCents, p.TotalCents)
	}
}

func TestPriceRejectsBadRedemption(t *testing.T) {
	if _, err := Price(items(1000, 1), nil, 150, time.Now()); !errors.Is(err, loyalty.ErrInvalidRedemption) {
		t.Fatalf("non-multiple redemption: got %v", err)
	}
}

func TestPriceCouponWindowEnforced(t *testing.T) {
	now := time.Now()

	future := &coupon.Coupon{Type: coupon.TypeFixed, Value: 100, Active: true, ValidFrom: now.Add(time.Hour)}
	if _, err := Price(items(1000, 1), future, 0, now); !errors.Is(err, coupon.ErrNotStarted) {
		t.Fatalf("not yet valid: got %v", err)
	}

	past := &coupon.Coupon{Type: coupon.TypeFixed, Value: 100, Active: true, ValidUntil: now.Add(-time.Hour)}
	if _, err := Price(items(1000, 1), past, 0, now); !errors.Is(err, coupon.ErrExpired) {
		t.Fatalf("expired: got %v", err)
	}

	short := &coupon.Coupon{Type: coupon.TypeFixed, Value: 100, MinPurchaseCents: 2000, Active: true}
	if _, err := Price(items(1000, 1), short, 0, now); !errors.Is(err, coupon.ErrMinPurchase) {
		t.Fatalf("below minimum: got %v", err)
	}
}

func TestSubtotalRejectsBadLines(t *testing.T) {
	if _, err := Subtotal([]Item{{ProductID: "p1", UnitPriceCents: -1, Quantity: 1}}); !errors.Is(err, ErrNegativeLine) {
		t.Fatalf("negative price: got %v", err)
	}
	if _, err := Subtotal([]Item{{ProductID: "p1", UnitPriceCents: 100, Quantity: 0}}); !errors.Is(err, ErrNegativeLine) {
		t.Fatalf("zero quantity: got %v", err)
	}
}

func TestStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to Status
		ok       bool
	}{
		{StatusPending, StatusConfirmed, true},
		{StatusConfirmed, StatusShipped, true},
		{StatusShipped, StatusDelivered, true},
		{StatusPending, StatusShipped, false},
		{StatusPending, StatusDelivered, false},
		{StatusPending, StatusCancelled, true},
		{StatusShipped, StatusCancelled, true},
		{StatusDelivered, StatusCancelled, false},
		{StatusCancelled, StatusConfirmed, false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransition(tc.to); got != tc.ok {
			t.Errorf("%s -> %s: got %v, want %v", tc.from, tc.to, got, tc.ok)
		}
	}
}
