// Package loyalty manages customer loyalty point balances.
package loyalty

import (
	"context"
	"fmt"
	"strings"

	"github.com/sokoni-labs/commerce_layer/internal/app/domain/loyalty"
	"github.com/sokoni-labs/commerce_layer/internal/app/storage"
	"github.com/sokoni-labs/commerce_layer/pkg/logger"
)

// Service manages loyalty accounts. Balance checks at checkout happen in the
// order store's transaction; this service covers account reads, accrual and
// manual adjustments.
type Service struct {
	store    storage.LoyaltyStore
	earnRate int64
	log      *logger.Logger
}

// New constructs a loyalty service. earnRate is points granted per whole
// dollar of a delivered order.
func New(store storage.LoyaltyStore, earnRate int64, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("loyalty")
	}
	if earnRate <= 0 {
		earnRate = 1
	}
	return &Service{store: store, earnRate: earnRate, log: log}
}

// Account returns the customer's loyalty account, creating an empty one on
// first touch.
func (s *Service) Account(ctx context.Context, customerID string) (loyalty.Account, error) {
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return loyalty.Account{}, fmt.Errorf("customer_id is required")
	}
	return s.store.GetLoyaltyAccount(ctx, customerID)
}

// AccrueForOrder grants points for a delivered order total.
func (s *Service) AccrueForOrder(ctx context.Context, customerID string, totalCents int64) (loyalty.Account, error) {
	points := loyalty.EarnedPoints(totalCents, s.earnRate)
	if points <= 0 {
		return s.store.GetLoyaltyAccount(ctx, customerID)
	}

	account, err := s.store.EarnPoints(ctx, customerID, points)
	if err != nil {
		return loyalty.Account{}, err
	}
	s.log.WithField("customer_id", customerID).
		WithField("points", points).
		WithField("balance", account.Points).
		Info("loyalty points accrued")
	return account, nil
}

// Grant applies a manual point adjustment from the back office.
func (s *Service) Grant(ctx context.Context, customerID string, points int64) (loyalty.Account, error) {
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return loyalty.Account{}, fmt.Errorf("customer_id is required")
	}
	if points <= 0 {
		return loyalty.Account{}, fmt.Errorf("points must be positive")
	}

	account, err := s.store.EarnPoints(ctx, customerID, points)
	if err != nil {
		return loyalty.Account{}, err
	}
	s.log.WithField("customer_id", customerID).
		WithField("points", points).
		Info("loyalty points granted")
	return account, nil
}

// Refund returns previously redeemed points after an order cancellation.
func (s *Service) Refund(ctx context.Context, customerID string, points int64) (loyalty.Account, error) {
	if points <= 0 {
		return s.store.GetLoyaltyAccount(ctx, customerID)
	}
	account, err := s.store.EarnPoints(ctx, customerID, points)
	if err != nil {
		return loyalty.Account{}, err
	}
	s.log.WithField("customer_id", customerID).
		WithField("points", points).
		Info("redeemed points refunded")
	return account, nil
}

// PreviewRedemption reports the discount a redemption would grant against the
// customer's current balance without spending anything.
func (s *Service) PreviewRedemption(ctx context.Context, customerID string, points int64) (int64, error) {
	discount, err := loyalty.RedemptionDiscountCents(points)
	if err != nil {
		return 0, err
	}
	account, err := s.store.GetLoyaltyAccount(ctx, customerID)
	if err != nil {
		return 0, err
	}
	if account.Points < points {
		return 0, fmt.Errorf("%w: have %d, want %d", loyalty.ErrInsufficientPoints, account.Points, points)
	}
	return discount, nil
}
