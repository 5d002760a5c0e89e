// Package orders implements checkout and order lifecycle management.
package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sokoni-labs/commerce_layer/internal/app/cache"
	"github.com/sokoni-labs/commerce_layer/internal/app/domain/coupon"
	"github.com/sokoni-labs/commerce_layer/internal/app/domain/loyalty"
	"github.com/sokoni-labs/commerce_layer/internal/app/domain/order"
	"github.com/sokoni-labs/commerce_layer/internal/app/storage"
	"github.com/sokoni-labs/commerce_layer/pkg/logger"
)

// idempotencyTTL bounds how long a replayed Idempotency-Key returns the
// original order.
const idempotencyTTL = 24 * time.Hour

// LoyaltyAccruer grants points for a delivered order.
type LoyaltyAccruer interface {
	AccrueForOrder(ctx context.Context, customerID string, totalCents int64) (loyalty.Account, error)
	Refund(ctx context.Context, customerID string, points int64) (loyalty.Account, error)
}

// Service manages orders from checkout through delivery.
type Service struct {
	catalog storage.CatalogStore
	orders  storage.OrderStore
	coupons storage.CouponStore
	loyalty LoyaltyAccruer
	idem    cache.IdempotencyStore
	log     *logger.Logger
}

// New constructs an order service.
func New(catalog storage.CatalogStore, orders storage.OrderStore, coupons storage.CouponStore, loyaltySvc LoyaltyAccruer, idem cache.IdempotencyStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("orders")
	}
	if idem == nil {
		idem = cache.NewMemoryStore()
	}
	return &Service{
		catalog: catalog,
		orders:  orders,
		coupons: coupons,
		loyalty: loyaltySvc,
		idem:    idem,
		log:     log,
	}
}

// Line is one requested product in a checkout.
type Line struct {
	ProductID string
	Quantity  int64
}

// CheckoutParams carries a checkout request.
type CheckoutParams struct {
	CustomerID      string
	Lines           []Line
	CouponCode      string
	RedeemPoints    int64
	ShippingAddress string
	Currency        string
	IdempotencyKey  string
}

// PlaceOrder prices the cart and creates the order. Stock decrements, coupon
// usage and point redemption are committed atomically by the store; a
// failure of any one leaves nothing applied. When an idempotency key is
// supplied, a replay returns the originally created order.
func (s *Service) PlaceOrder(ctx context.Context, params CheckoutParams) (order.Order, error) {
	params.CustomerID = strings.TrimSpace(params.CustomerID)
	params.CouponCode = strings.ToUpper(strings.TrimSpace(params.CouponCode))
	params.ShippingAddress = strings.TrimSpace(params.ShippingAddress)
	params.Currency = strings.ToUpper(strings.TrimSpace(params.Currency))

	if params.CustomerID == "" {
		return order.Order{}, fmt.Errorf("customer_id is required")
	}
	if len(params.Lines) == 0 {
		return order.Order{}, fmt.Errorf("order must contain at least one item")
	}
	if params.ShippingAddress == "" {
		return order.Order{}, fmt.Errorf("shipping_address is required")
	}
	if params.Currency == "" {
		params.Currency = "USD"
	}
	for _, line := range params.Lines {
		if strings.TrimSpace(line.ProductID) == "" {
			return order.Order{}, fmt.Errorf("product_id is required on every line")
		}
		if line.Quantity <= 0 {
			return order.Order{}, fmt.Errorf("quantity must be positive")
		}
	}
	if params.RedeemPoints < 0 {
		return order.Order{}, loyalty.ErrInvalidRedemption
	}

	orderID := uuid.NewString()
	if params.IdempotencyKey != "" {
		key := "order:" + params.CustomerID + ":" + params.IdempotencyKey
		stored, created, err := s.idem.Remember(ctx, key, orderID, idempotencyTTL)
		if err != nil {
			return order.Order{}, fmt.Errorf("idempotency check: %w", err)
		}
		if !created {
			existing, err := s.orders.GetOrder(ctx, stored)
			if err == nil {
				return existing, nil
			}
			if !errors.Is(err, storage.ErrNotFound) {
				return order.Order{}, err
			}
			// Reservation without an order means the first attempt died
			// mid-flight; take it over under the reserved ID.
			orderID = stored
		}
		defer func() {
			if _, err := s.orders.GetOrder(ctx, orderID); errors.Is(err, storage.ErrNotFound) {
				_ = s.idem.Forget(ctx, key)
			}
		}()
	}

	items, err := s.buildItems(ctx, params.Lines)
	if err != nil {
		return order.Order{}, err
	}

	var cpn *coupon.Coupon
	if params.CouponCode != "" {
		c, err := s.coupons.GetCouponByCode(ctx, params.CouponCode)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return order.Order{}, fmt.Errorf("coupon %s: %w", params.CouponCode, storage.ErrNotFound)
			}
			return order.Order{}, err
		}
		cpn = &c
	}

	pricing, err := order.Price(items, cpn, params.RedeemPoints, time.Now().UTC())
	if err != nil {
		return order.Order{}, err
	}

	ord := order.Order{
		ID:              orderID,
		CustomerID:      params.CustomerID,
		Status:          order.StatusPending,
		Currency:        params.Currency,
		SubtotalCents:   pricing.SubtotalCents,
		DiscountCents:   pricing.DiscountCents(),
		TotalCents:      pricing.TotalCents,
		CouponCode:      params.CouponCode,
		PointsRedeemed:  params.RedeemPoints,
		ShippingAddress: params.ShippingAddress,
	}

	storeParams := storage.PlaceOrderParams{
		CouponCode:     params.CouponCode,
		PointsRedeemed: params.RedeemPoints,
	}
	ord, err = s.orders.PlaceOrder(ctx, ord, items, storeParams)
	if err != nil {
		return order.Order{}, err
	}

	s.log.WithField("order_id", ord.ID).
		WithField("customer_id", ord.CustomerID).
		WithField("total_cents", ord.TotalCents).
		Info("order placed")
	return ord, nil
}

// buildItems resolves the requested lines against the catalog, snapshotting
// name and unit price at order time. Duplicate lines for a product merge.
func (s *Service) buildItems(ctx context.Context, lines []Line) ([]order.Item, error) {
	merged := make(map[string]int64, len(lines))
	var ordered []string
	for _, line := range lines {
		id := strings.TrimSpace(line.ProductID)
		if _, seen := merged[id]; !seen {
			ordered = append(ordered, id)
		}
		merged[id] += line.Quantity
	}

	items := make([]order.Item, 0, len(ordered))
	for _, productID := range ordered {
		product, err := s.catalog.GetProduct(ctx, productID)
		if err != nil {
			return nil, fmt.Errorf("product %s: %w", productID, err)
		}
		if !product.Active {
			return nil, fmt.Errorf("product %s is not available", productID)
		}
		items = append(items, order.Item{
			ProductID:      product.ID,
			ProductName:    product.Name,
			UnitPriceCents: product.PriceCents,
			Quantity:       merged[productID],
		})
	}
	return items, nil
}

// Get returns an order by ID.
func (s *Service) Get(ctx context.Context, id string) (order.Order, error) {
	return s.orders.GetOrder(ctx, id)
}

// GetForCustomer returns the order only when it belongs to the customer.
func (s *Service) GetForCustomer(ctx context.Context, id, customerID string) (order.Order, error) {
	ord, err := s.orders.GetOrder(ctx, id)
	if err != nil {
		return order.Order{}, err
	}
	if ord.CustomerID != customerID {
		return order.Order{}, storage.ErrNotFound
	}
	return ord, nil
}

// List returns orders, optionally filtered by customer. An empty customerID
// lists every order (back office only).
func (s *Service) List(ctx context.Context, customerID string) ([]order.Order, error) {
	return s.orders.ListOrders(ctx, customerID)
}

// Items returns the line items of an order.
func (s *Service) Items(ctx context.Context, orderID string) ([]order.Item, error) {
	if _, err := s.orders.GetOrder(ctx, orderID); err != nil {
		return nil, err
	}
	return s.orders.ListOrderItems(ctx, orderID)
}

// Transition moves an order to a new status. Cancellation restores stock,
// releases the coupon use and refunds redeemed points; delivery accrues
// loyalty points on the order total.
func (s *Service) Transition(ctx context.Context, orderID string, next order.Status) (order.Order, error) {
	ord, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return order.Order{}, err
	}
	if !ord.Status.CanTransition(next) {
		return order.Order{}, fmt.Errorf("%w: %s -> %s", order.ErrInvalidTransition, ord.Status, next)
	}

	ord.Status = next
	ord, err = s.orders.UpdateOrder(ctx, ord)
	if err != nil {
		return order.Order{}, err
	}

	switch next {
	case order.StatusCancelled:
		s.compensateCancellation(ctx, ord)
	case order.StatusDelivered:
		if s.loyalty != nil {
			if _, err := s.loyalty.AccrueForOrder(ctx, ord.CustomerID, ord.TotalCents); err != nil {
				s.log.WithError(err).
					WithField("order_id", ord.ID).
					Warn("loyalty accrual failed")
			}
		}
	}

	s.log.WithField("order_id", ord.ID).
		WithField("status", string(ord.Status)).
		Info("order status changed")
	return ord, nil
}

// Cancel is the storefront cancellation path: only the owning customer and
// only while the order is still pending.
func (s *Service) Cancel(ctx context.Context, orderID, customerID string) (order.Order, error) {
	ord, err := s.GetForCustomer(ctx, orderID, customerID)
	if err != nil {
		return order.Order{}, err
	}
	if ord.Status != order.StatusPending {
		return order.Order{}, fmt.Errorf("%w: %s -> %s", order.ErrInvalidTransition, ord.Status, order.StatusCancelled)
	}
	return s.Transition(ctx, orderID, order.StatusCancelled)
}

// compensateCancellation undoes the checkout side effects. Each compensation
// is independent; a failure is logged and the rest still run.
func (s *Service) compensateCancellation(ctx context.Context, ord order.Order) {
	items, err := s.orders.ListOrderItems(ctx, ord.ID)
	if err != nil {
		s.log.WithError(err).WithField("order_id", ord.ID).Warn("load items for stock restore failed")
	} else {
		for _, item := range items {
			if _, err := s.catalog.AdjustStock(ctx, item.ProductID, item.Quantity); err != nil {
				s.log.WithError(err).
					WithField("order_id", ord.ID).
					WithField("product_id", item.ProductID).
					Warn("stock restore failed")
			}
		}
	}

	if ord.CouponCode != "" {
		if err := s.coupons.ReleaseCoupon(ctx, ord.CouponCode); err != nil {
			s.log.WithError(err).
				WithField("order_id", ord.ID).
				WithField("code", ord.CouponCode).
				Warn("coupon release failed")
		}
	}

	if ord.PointsRedeemed > 0 && s.loyalty != nil {
		if _, err := s.loyalty.Refund(ctx, ord.CustomerID, ord.PointsRedeemed); err != nil {
			s.log.WithError(err).
				WithField("order_id", ord.ID).
				Warn("points refund failed")
		}
	}
}
