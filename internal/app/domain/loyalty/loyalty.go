// Package loyalty defines the per-customer reward point account and the
// point/currency conversion rules.
package loyalty

import (
	"errors"
	"time"
)

// PointsToDollar is the fixed exchange rate: 100 points redeem for one
// dollar. At 100 cents to the dollar this makes one point worth exactly one
// cent, so RedemptionDiscountCents(n) == n.
const PointsToDollar = 100

var (
	// ErrInsufficientPoints is returned when a redemption exceeds the balance.
	ErrInsufficientPoints = errors.New("insufficient loyalty points")
	// ErrInvalidRedemption is returned for redemption amounts that are not a
	// positive multiple of PointsToDollar.
	ErrInvalidRedemption = errors.New("redemption must be a positive multiple of 100 points")
)

// Account tracks a customer's reward balance. The points field always equals
// TotalEarned - TotalRedeemed; every write moves the balance and the matching
// counter together.
type Account struct {
	CustomerID    string    `json:"customer_id"`
	Points        int64     `json:"points"`
	TotalEarned   int64     `json:"total_earned"`
	TotalRedeemed int64     `json:"total_redeemed"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// RedemptionDiscountCents converts a point redemption into a cents discount.
func RedemptionDiscountCents(points int64) (int64, error) {
	if points <= 0 || points%PointsToDollar != 0 {
		return 0, ErrInvalidRedemption
	}
	// points/100 dollars, 100 cents per dollar.
	return points / PointsToDollar * 100, nil
}

// EarnedPoints computes the points accrued for a paid order total at the
// given earn rate (points per whole dollar spent).
func EarnedPoints(totalCents int64, ratePerDollar int64) int64 {
	if totalCents <= 0 || ratePerDollar <= 0 {
		return 0
	}
	return totalCents / 100 * ratePerDollar
}
