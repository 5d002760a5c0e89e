// Package coupons manages discount coupons and their lifecycle.
package coupons

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sokoni-labs/commerce_layer/internal/app/domain/coupon"
	"github.com/sokoni-labs/commerce_layer/internal/app/storage"
	"github.com/sokoni-labs/commerce_layer/pkg/logger"
)

// Service manages coupon definitions.
type Service struct {
	store storage.CouponStore
	log   *logger.Logger
}

// New constructs a coupon service.
func New(store storage.CouponStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("coupons")
	}
	return &Service{store: store, log: log}
}

// Params carries the fields for creating a coupon.
type Params struct {
	Code             string
	Type             string
	Value            int64
	MinPurchaseCents int64
	MaxDiscountCents int64
	UsageLimit       int64
	ValidFrom        time.Time
	ValidUntil       time.Time
}

// Create registers a new coupon. Codes are stored uppercase and must be
// unique.
func (s *Service) Create(ctx context.Context, params Params) (coupon.Coupon, error) {
	code := strings.ToUpper(strings.TrimSpace(params.Code))
	if code == "" {
		return coupon.Coupon{}, fmt.Errorf("code is required")
	}

	typ := coupon.Type(strings.ToLower(strings.TrimSpace(params.Type)))
	if !typ.Valid() {
		return coupon.Coupon{}, fmt.Errorf("invalid coupon type %q", params.Type)
	}
	if params.Value <= 0 {
		return coupon.Coupon{}, fmt.Errorf("value must be positive")
	}
	if typ == coupon.TypePercentage && params.Value > 100 {
		return coupon.Coupon{}, fmt.Errorf("percentage value cannot exceed 100")
	}
	if params.MinPurchaseCents < 0 || params.MaxDiscountCents < 0 || params.UsageLimit < 0 {
		return coupon.Coupon{}, fmt.Errorf("min_purchase_cents, max_discount_cents and usage_limit cannot be negative")
	}
	if !params.ValidFrom.IsZero() && !params.ValidUntil.IsZero() && params.ValidUntil.Before(params.ValidFrom) {
		return coupon.Coupon{}, fmt.Errorf("valid_until must not precede valid_from")
	}

	c := coupon.Coupon{
		Code:             code,
		Type:             typ,
		Value:            params.Value,
		MinPurchaseCents: params.MinPurchaseCents,
		MaxDiscountCents: params.MaxDiscountCents,
		UsageLimit:       params.UsageLimit,
		ValidFrom:        params.ValidFrom,
		ValidUntil:       params.ValidUntil,
		Active:           true,
	}
	c, err := s.store.CreateCoupon(ctx, c)
	if err != nil {
		return coupon.Coupon{}, err
	}
	s.log.WithField("coupon_id", c.ID).
		WithField("code", c.Code).
		Info("coupon created")
	return c, nil
}

// Update carries the optional fields for updating a coupon. Code and usage
// counts are immutable.
type Update struct {
	Value            *int64
	MinPurchaseCents *int64
	MaxDiscountCents *int64
	UsageLimit       *int64
	ValidFrom        *time.Time
	ValidUntil       *time.Time
	Active           *bool
}

// Apply updates mutable fields on a coupon.
func (s *Service) Apply(ctx context.Context, id string, update Update) (coupon.Coupon, error) {
	c, err := s.store.GetCoupon(ctx, id)
	if err != nil {
		return coupon.Coupon{}, err
	}

	if update.Value != nil {
		if *update.Value <= 0 {
			return coupon.Coupon{}, fmt.Errorf("value must be positive")
		}
		if c.Type == coupon.TypePercentage && *update.Value > 100 {
			return coupon.Coupon{}, fmt.Errorf("percentage value cannot exceed 100")
		}
		c.Value = *update.Value
	}
	if update.MinPurchaseCents != nil {
		if *update.MinPurchaseCents < 0 {
			return coupon.Coupon{}, fmt.Errorf("min_purchase_cents cannot be negative")
		}
		c.MinPurchaseCents = *update.MinPurchaseCents
	}
	if update.MaxDiscountCents != nil {
		if *update.MaxDiscountCents < 0 {
			return coupon.Coupon{}, fmt.Errorf("max_discount_cents cannot be negative")
		}
		c.MaxDiscountCents = *update.MaxDiscountCents
	}
	if update.UsageLimit != nil {
		if *update.UsageLimit < 0 {
			return coupon.Coupon{}, fmt.Errorf("usage_limit cannot be negative")
		}
		c.UsageLimit = *update.UsageLimit
	}
	if update.ValidFrom != nil {
		c.ValidFrom = *update.ValidFrom
	}
	if update.ValidUntil != nil {
		c.ValidUntil = *update.ValidUntil
	}
	if !c.ValidFrom.IsZero() && !c.ValidUntil.IsZero() && c.ValidUntil.Before(c.ValidFrom) {
		return coupon.Coupon{}, fmt.Errorf("valid_until must not precede valid_from")
	}
	if update.Active != nil {
		c.Active = *update.Active
	}

	c, err = s.store.UpdateCoupon(ctx, c)
	if err != nil {
		return coupon.Coupon{}, err
	}
	s.log.WithField("coupon_id", c.ID).Info("coupon updated")
	return c, nil
}

// Get returns a coupon by ID.
func (s *Service) Get(ctx context.Context, id string) (coupon.Coupon, error) {
	return s.store.GetCoupon(ctx, id)
}

// List returns all coupons.
func (s *Service) List(ctx context.Context) ([]coupon.Coupon, error) {
	return s.store.ListCoupons(ctx)
}

// Delete removes a coupon.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteCoupon(ctx, id); err != nil {
		return err
	}
	s.log.WithField("coupon_id", id).Info("coupon deleted")
	return nil
}

// Preview validates a coupon against a subtotal without consuming a use, and
// returns the discount it would grant.
func (s *Service) Preview(ctx context.Context, code string, subtotalCents int64) (coupon.Coupon, int64, error) {
	c, err := s.store.GetCouponByCode(ctx, strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		return coupon.Coupon{}, 0, err
	}
	if err := c.Validate(time.Now().UTC(), subtotalCents); err != nil {
		return coupon.Coupon{}, 0, err
	}
	return c, c.DiscountCents(subtotalCents), nil
}

// DeactivateExpired disables coupons whose validity window has closed and
// returns how many were touched.
func (s *Service) DeactivateExpired(ctx context.Context) (int64, error) {
	count, err := s.store.DeactivateExpired(ctx, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	if count > 0 {
		s.log.WithField("count", count).Info("expired coupons deactivated")
	}
	return count, nil
}
