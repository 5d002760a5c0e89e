// Package memory provides a thread-safe in-memory implementation of the
// storage interfaces. It is intended for tests and prototyping and keeps the
// implementation deliberately simple; the one non-trivial piece is PlaceOrder,
// which validates every side effect before mutating anything so a checkout is
// all-or-nothing under the single lock.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sokoni-labs/commerce_layer/internal/app/domain/catalog"
	"github.com/sokoni-labs/commerce_layer/internal/app/domain/coupon"
	"github.com/sokoni-labs/commerce_layer/internal/app/domain/customer"
	"github.com/sokoni-labs/commerce_layer/internal/app/domain/loyalty"
	"github.com/sokoni-labs/commerce_layer/internal/app/domain/order"
	"github.com/sokoni-labs/commerce_layer/internal/app/domain/payment"
	"github.com/sokoni-labs/commerce_layer/internal/app/domain/review"
	"github.com/sokoni-labs/commerce_layer/internal/app/domain/support"
	"github.com/sokoni-labs/commerce_layer/internal/app/domain/wishlist"
	"github.com/sokoni-labs/commerce_layer/internal/app/storage"
)

// Store is the in-memory backend.
type Store struct {
	mu     sync.RWMutex
	nextID int64

	categories map[string]catalog.Category
	products   map[string]catalog.Product
	orders     map[string]order.Order
	orderItems map[string][]order.Item
	coupons    map[string]coupon.Coupon
	loyalty    map[string]loyalty.Account
	payments   map[string]payment.Payment
	reviews    map[string]review.Review
	wishlists  map[string][]wishlist.Item
	requests   map[string]support.Request
	customers  map[string]customer.Customer
}

var (
	_ storage.CatalogStore  = (*Store)(nil)
	_ storage.OrderStore    = (*Store)(nil)
	_ storage.CouponStore   = (*Store)(nil)
	_ storage.LoyaltyStore  = (*Store)(nil)
	_ storage.PaymentStore  = (*Store)(nil)
	_ storage.ReviewStore   = (*Store)(nil)
	_ storage.WishlistStore = (*Store)(nil)
	_ storage.SupportStore  = (*Store)(nil)
	_ storage.CustomerStore = (*Store)(nil)
	_ storage.StatsStore    = (*Store)(nil)
)

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		nextID:     1,
		categories: make(map[string]catalog.Category),
		products:   make(map[string]catalog.Product),
		orders:     make(map[string]order.Order),
		orderItems: make(map[string][]order.Item),
		coupons:    make(map[string]coupon.Coupon),
		loyalty:    make(map[string]loyalty.Account),
		payments:   make(map[string]payment.Payment),
		reviews:    make(map[string]review.Review),
		wishlists:  make(map[string][]wishlist.Item),
		requests:   make(map[string]support.Request),
		customers:  make(map[string]customer.Customer),
	}
}

func (s *Store) nextIDLocked() string {
	id := s.nextID
	s.nextID++
	return fmt.Sprintf("%d", id)
}

// --- CatalogStore -----------------------------------------------------------

func (s *Store) CreateCategory(_ context.Context, cat catalog.Category) (catalog.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.categories {
		if existing.Slug == cat.Slug {
			return catalog.Category{}, fmt.Errorf("category slug %s: %w", cat.Slug, storage.ErrConflict)
		}
	}
	if cat.ID == "" {
		cat.ID = s.nextIDLocked()
	}
	now := time.Now().UTC()
	cat.CreatedAt = now
	cat.UpdatedAt = now
	s.categories[cat.ID] = cat
	return cat, nil
}

func (s *Store) UpdateCategory(_ context.Context, cat catalog.Category) (catalog.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.categories[cat.ID]
	if !ok {
		return catalog.Category{}, fmt.Errorf("category %s: %w", cat.ID, storage.ErrNotFound)
	}
	cat.CreatedAt = existing.CreatedAt
	cat.UpdatedAt = time.Now().UTC()
	s.categories[cat.ID] = cat
	return cat, nil
}

func (s *Store) GetCategory(_ context.Context, id string) (catalog.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cat, ok := s.categories[id]
	if !ok {
		return catalog.Category{}, fmt.Errorf("category %s: %w", id, storage.ErrNotFound)
	}
	return cat, nil
}

func (s *Store) ListCategories(_ context.Context) ([]catalog.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]catalog.Category, 0, len(s.categories))
	for _, cat := range s.categories {
		result = append(result, cat)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (s *Store) DeleteCategory(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.categories[id]; !ok {
		return fmt.Errorf("category %s: %w", id, storage.ErrNotFound)
	}
	for _, p := range s.products {
		if p.CategoryID == id {
			return fmt.Errorf("category %s has products: %w", id, storage.ErrConflict)
		}
	}
	delete(s.categories, id)
	return nil
}

func (s *Store) CreateProduct(_ context.Context, p catalog.Product) (catalog.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.CategoryID != "" {
		if _, ok := s.categories[p.CategoryID]; !ok {
			return catalog.Product{}, fmt.Errorf("category %s: %w", p.CategoryID, storage.ErrNotFound)
		}
	}
	if p.ID == "" {
		p.ID = s.nextIDLocked()
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	s.products[p.ID] = p
	return p, nil
}

func (s *Store) UpdateProduct(_ context.Context, p catalog.Product) (catalog.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.products[p.ID]
	if !ok {
		return catalog.Product{}, fmt.Errorf("product %s: %w", p.ID, storage.ErrNotFound)
	}
	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = time.Now().UTC()
	s.products[p.ID] = p
	return p, nil
}

func (s *Store) GetProduct(_ context.Context, id string) (catalog.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return catalog.Product{}, fmt.Errorf("product %s: %w", id, storage.ErrNotFound)
	}
	return p, nil
}

func (s *Store) ListProducts(_ context.Context, filter storage.ProductFilter) ([]catalog.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []catalog.Product
	for _, p := range s.products {
		if filter.CategoryID != "" && p.CategoryID != filter.CategoryID {
			continue
		}
		if filter.ActiveOnly && !p.Active {
			continue
		}
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (s *Store) DeleteProduct(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok {
		return fmt.Errorf("product %s: %w", id, storage.ErrNotFound)
	}
	// Soft-hide so order item snapshots keep a referent.
	p.Active = false
	p.UpdatedAt = time.Now().UTC()
	s.products[id] = p
	return nil
}

func (s *Store) AdjustStock(_ context.Context, productID string, delta int64) (catalog.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.adjustStockLocked(productID, delta)
}

func (s *Store) adjustStockLocked(productID string, delta int64) (catalog.Product, error) {
	p, ok := s.products[productID]
	if !ok {
		return catalog.Product{}, fmt.Errorf("product %s: %w", productID, storage.ErrNotFound)
	}
	if p.Stock+delta < 0 {
		return catalog.Product{}, fmt.Errorf("product %s: %w", productID, catalog.ErrInsufficientStock)
	}
	p.Stock += delta
	p.UpdatedAt = time.Now().UTC()
	s.products[productID] = p
	return p, nil
}

// --- OrderStore -------------------------------------------------------------

func (s *Store) PlaceOrder(_ context.Context, ord order.Order, items []order.Item, params storage.PlaceOrderParams) (order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Validate everything first so a failed checkout mutates nothing. This is
	// the in-process stand-in for the postgres transaction.
	for _, it := range items {
		p, ok := s.products[it.ProductID]
		if !ok {
			return order.Order{}, fmt.Errorf("product %s: %w", it.ProductID, storage.ErrNotFound)
		}
		if p.Stock < it.Quantity {
			return order.Order{}, fmt.Errorf("product %s: %w", it.ProductID, catalog.ErrInsufficientStock)
		}
	}

	var cpn coupon.Coupon
	var haveCoupon bool
	if params.CouponCode != "" {
		for _, c := range s.coupons {
			if c.Code == params.CouponCode {
				cpn, haveCoupon = c, true
				break
			}
		}
		if !haveCoupon {
			return order.Order{}, fmt.Errorf("coupon %s: %w", params.CouponCode, storage.ErrNotFound)
		}
		if cpn.UsageLimit > 0 && cpn.UsedCount >= cpn.UsageLimit {
			return order.Order{}, coupon.ErrExhausted
		}
	}

	if params.PointsRedeemed > 0 {
		acct := s.loyaltyAccountLocked(ord.CustomerID)
		if acct.Points < params.PointsRedeemed {
			return order.Order{}, loyalty.ErrInsufficientPoints
		}
	}

	// Apply.
	for _, it := range items {
		if _, err := s.adjustStockLocked(it.ProductID, -it.Quantity); err != nil {
			return order.Order{}, err
		}
	}
	if haveCoupon {
		cpn.UsedCount++
		cpn.UpdatedAt = time.Now().UTC()
		s.coupons[cpn.ID] = cpn
	}
	if params.PointsRedeemed > 0 {
		acct := s.loyaltyAccountLocked(ord.CustomerID)
		acct.Points -= params.PointsRedeemed
		acct.TotalRedeemed += params.PointsRedeemed
		acct.UpdatedAt = time.Now().UTC()
		s.loyalty[ord.CustomerID] = acct
	}

	if ord.ID == "" {
		ord.ID = s.nextIDLocked()
	}
	now := time.Now().UTC()
	ord.CreatedAt = now
	ord.UpdatedAt = now
	s.orders[ord.ID] = ord

	stored := make([]order.Item, len(items))
	for i, it := range items {
		if it.ID == "" {
			it.ID = s.nextIDLocked()
		}
		it.OrderID = ord.ID
		stored[i] = it
	}
	s.orderItems[ord.ID] = stored

	return ord, nil
}

func (s *Store) UpdateOrder(_ context.Context, ord order.Order) (order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.orders[ord.ID]
	if !ok {
		return order.Order{}, fmt.Errorf("order %s: %w", ord.ID, storage.ErrNotFound)
	}
	ord.CustomerID = existing.CustomerID
	ord.CreatedAt = existing.CreatedAt
	ord.UpdatedAt = time.Now().UTC()
	s.orders[ord.ID] = ord
	return ord, nil
}

func (s *Store) GetOrder(_ context.Context, id string) (order.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ord, ok := s.orders[id]
	if !ok {
		return order.Order{}, fmt.Errorf("order %s: %w", id, storage.ErrNotFound)
	}
	return ord, nil
}

func (s *Store) ListOrders(_ context.Context, customerID string) ([]order.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []order.Order
	for _, ord := range s.orders {
		if customerID != "" && ord.CustomerID != customerID {
			continue
		}
		result = append(result, ord)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}

func (s *Store) ListOrderItems(_ context.Context, orderID string) ([]order.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items, ok := s.orderItems[orderID]
	if !ok {
		return nil, fmt.Errorf("order %s: %w", orderID, storage.ErrNotFound)
	}
	out := make([]order.Item, len(items))
	copy(out, items)
	return out, nil
}

// --- CouponStore ------------------------------------------------------------

func (s *Store) CreateCoupon(_ context.Context, c coupon.Coupon) (coupon.Coupon, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.coupons {
		if existing.Code == c.Code {
			return coupon.Coupon{}, fmt.Errorf("coupon code %s: %w", c.Code, storage.ErrConflict)
		}
	}
	if c.ID == "" {
		c.ID = s.nextIDLocked()
	}
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now
	s.coupons[c.ID] = c
	return c, nil
}

func (s *Store) UpdateCoupon(_ context.Context, c coupon.Coupon) (coupon.Coupon, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.coupons[c.ID]
	if !ok {
		return coupon.Coupon{}, fmt.Errorf("coupon %s: %w", c.ID, storage.ErrNotFound)
	}
	c.Code = existing.Code
	c.UsedCount = existing.UsedCount
	c.CreatedAt = existing.CreatedAt
	c.UpdatedAt = time.Now().UTC()
	s.coupons[c.ID] = c
	return c, nil
}

func (s *Store) GetCoupon(_ context.Context, id string) (coupon.Coupon, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.coupons[id]
	if !ok {
		return coupon.Coupon{}, fmt.Errorf("coupon %s: %w", id, storage.ErrNotFound)
	}
	return c, nil
}

func (s *Store) GetCouponByCode(_ context.Context, code string) (coupon.Coupon, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.coupons {
		if strings.EqualFold(c.Code, code) {
			return c, nil
		}
	}
	return coupon.Coupon{}, fmt.Errorf("coupon code %s: %w", code, storage.ErrNotFound)
}

func (s *Store) ListCoupons(_ context.Context) ([]coupon.Coupon, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]coupon.Coupon, 0, len(s.coupons))
	for _, c := range s.coupons {
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (s *Store) DeleteCoupon(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.coupons[id]; !ok {
		return fmt.Errorf("coupon %s: %w", id, storage.ErrNotFound)
	}
	delete(s.coupons, id)
	return nil
}

func (s *Store) ReleaseCoupon(_ context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, c := range s.coupons {
		if strings.EqualFold(c.Code, code) {
			if c.UsedCount > 0 {
				c.UsedCount--
				c.UpdatedAt = time.Now().UTC()
				s.coupons[id] = c
			}
			return nil
		}
	}
	return fmt.Errorf("coupon code %s: %w", code, storage.ErrNotFound)
}

func (s *Store) DeactivateExpired(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var changed int64
	for id, c := range s.coupons {
		if c.Active && !c.ValidUntil.IsZero() && now.After(c.ValidUntil) {
			c.Active = false
			c.UpdatedAt = time.Now().UTC()
			s.coupons[id] = c
			changed++
		}
	}
	return changed, nil
}

// --- LoyaltyStore -----------------------------------------------------------

func (s *Store) loyaltyAccountLocked(customerID string) loyalty.Account {
	acct, ok := s.loyalty[customerID]
	if !ok {
		now := time.Now().UTC()
		acct = loyalty.Account{CustomerID: customerID, CreatedAt: now, UpdatedAt: now}
		s.loyalty[customerID] = acct
	}
	return acct
}

func (s *Store) GetLoyaltyAccount(_ context.Context, customerID string) (loyalty.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loyaltyAccountLocked(customerID), nil
}

func (s *Store) EarnPoints(_ context.Context, customerID string, points int64) (loyalty.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acct := s.loyaltyAccountLocked(customerID)
	acct.Points += points
	acct.TotalEarned += points
	acct.UpdatedAt = time.Now().UTC()
	s.loyalty[customerID] = acct
	return acct, nil
}

func (s *Store) RedeemPoints(_ context.Context, customerID string, points int64) (loyalty.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acct := s.loyaltyAccountLocked(customerID)
	if acct.Points < points {
		return loyalty.Account{}, loyalty.ErrInsufficientPoints
	}
	acct.Points -= points
	acct.TotalRedeemed += points
	acct.UpdatedAt = time.Now().UTC()
	s.loyalty[customerID] = acct
	return acct, nil
}

// --- PaymentStore -----------------------------------------------------------

func (s *Store) CreatePayment(_ context.Context, p payment.Payment) (payment.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.orders[p.OrderID]; !ok {
		return payment.Payment{}, fmt.Errorf("order %s: %w", p.OrderID, storage.ErrNotFound)
	}
	if p.ID == "" {
		p.ID = s.nextIDLocked()
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	s.payments[p.ID] = p
	return p, nil
}

func (s *Store) UpdatePayment(_ context.Context, p payment.Payment) (payment.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.payments[p.ID]
	if !ok {
		return payment.Payment{}, fmt.Errorf("payment %s: %w", p.ID, storage.ErrNotFound)
	}
	p.OrderID = existing.OrderID
	p.CustomerID = existing.CustomerID
	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = time.Now().UTC()
	s.payments[p.ID] = p
	return p, nil
}

func (s *Store) GetPayment(_ context.Context, id string) (payment.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.payments[id]
	if !ok {
		return payment.Payment{}, fmt.Errorf("payment %s: %w", id, storage.ErrNotFound)
	}
	return p, nil
}

func (s *Store) GetPaymentByProviderRef(_ context.Context, ref string) (payment.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.payments {
		if p.ProviderRef == ref {
			return p, nil
		}
	}
	return payment.Payment{}, fmt.Errorf("payment ref %s: %w", ref, storage.ErrNotFound)
}

func (s *Store) ListPayments(_ context.Context, orderID string) ([]payment.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []payment.Payment
	for _, p := range s.payments {
		if orderID != "" && p.OrderID != orderID {
			continue
		}
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (s *Store) ListProcessingPayments(_ context.Context) ([]payment.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []payment.Payment
	for _, p := range s.payments {
		if p.Status == payment.StatusProcessing {
			result = append(result, p)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

// --- ReviewStore ------------------------------------------------------------

func (s *Store) CreateReview(_ context.Context, r review.Review) (review.Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[r.ProductID]; !ok {
		return review.Review{}, fmt.Errorf("product %s: %w", r.ProductID, storage.ErrNotFound)
	}
	for _, existing := range s.reviews {
		if existing.ProductID == r.ProductID && existing.CustomerID == r.CustomerID {
			return review.Review{}, review.ErrDuplicate
		}
	}
	if r.ID == "" {
		r.ID = s.nextIDLocked()
	}
	now := time.Now().UTC()
	r.CreatedAt = now
	r.UpdatedAt = now
	s.reviews[r.ID] = r
	return r, nil
}

func (s *Store) UpdateReview(_ context.Context, r review.Review) (review.Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.reviews[r.ID]
	if !ok {
		return review.Review{}, fmt.Errorf("review %s: %w", r.ID, storage.ErrNotFound)
	}
	r.ProductID = existing.ProductID
	r.CustomerID = existing.CustomerID
	r.CreatedAt = existing.CreatedAt
	r.UpdatedAt = time.Now().UTC()
	s.reviews[r.ID] = r
	return r, nil
}

func (s *Store) GetReview(_ context.Context, id string) (review.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.reviews[id]
	if !ok {
		return review.Review{}, fmt.Errorf("review %s: %w", id, storage.ErrNotFound)
	}
	return r, nil
}

func (s *Store) ListReviews(_ context.Context, productID string, approvedOnly bool) ([]review.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []review.Review
	for _, r := range s.reviews {
		if r.ProductID != productID {
			continue
		}
		if approvedOnly && !r.Approved {
			continue
		}
		result = append(result, r)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}

func (s *Store) DeleteReview(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.reviews[id]; !ok {
		return fmt.Errorf("review %s: %w", id, storage.ErrNotFound)
	}
	delete(s.reviews, id)
	return nil
}

func (s *Store) AverageRating(_ context.Context, productID string) (float64, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sum, count int64
	for _, r := range s.reviews {
		if r.ProductID == productID && r.Approved {
			sum += int64(r.Rating)
			count++
		}
	}
	if count == 0 {
		return 0, 0, nil
	}
	return float64(sum) / float64(count), count, nil
}

// --- WishlistStore ----------------------------------------------------------

func (s *Store) AddWishlistItem(_ context.Context, item wishlist.Item) (wishlist.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[item.ProductID]; !ok {
		return wishlist.Item{}, fmt.Errorf("product %s: %w", item.ProductID, storage.ErrNotFound)
	}
	for _, existing := range s.wishlists[item.CustomerID] {
		if existing.ProductID == item.ProductID {
			return existing, nil
		}
	}
	item.AddedAt = time.Now().UTC()
	s.wishlists[item.CustomerID] = append(s.wishlists[item.CustomerID], item)
	return item, nil
}

func (s *Store) RemoveWishlistItem(_ context.Context, customerID, productID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.wishlists[customerID]
	for i, existing := range items {
		if existing.ProductID == productID {
			s.wishlists[customerID] = append(items[:i], items[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("wishlist item %s: %w", productID, storage.ErrNotFound)
}

func (s *Store) ListWishlist(_ context.Context, customerID string) ([]wishlist.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := s.wishlists[customerID]
	out := make([]wishlist.Item, len(items))
	copy(out, items)
	return out, nil
}

// --- SupportStore -----------------------------------------------------------

func (s *Store) CreateRequest(_ context.Context, req support.Request) (support.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if req.ID == "" {
		req.ID = s.nextIDLocked()
	}
	now := time.Now().UTC()
	req.CreatedAt = now
	req.UpdatedAt = now
	s.requests[req.ID] = req
	return req, nil
}

func (s *Store) UpdateRequest(_ context.Context, req support.Request) (support.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.requests[req.ID]
	if !ok {
		return support.Request{}, fmt.Errorf("request %s: %w", req.ID, storage.ErrNotFound)
	}
	req.CustomerID = existing.CustomerID
	req.CreatedAt = existing.CreatedAt
	req.UpdatedAt = time.Now().UTC()
	s.requests[req.ID] = req
	return req, nil
}

func (s *Store) GetRequest(_ context.Context, id string) (support.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	req, ok := s.requests[id]
	if !ok {
		return support.Request{}, fmt.Errorf("request %s: %w", id, storage.ErrNotFound)
	}
	return req, nil
}

func (s *Store) ListRequests(_ context.Context, customerID string) ([]support.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []support.Request
	for _, req := range s.requests {
		if customerID != "" && req.CustomerID != customerID {
			continue
		}
		result = append(result, req)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}

// --- CustomerStore ----------------------------------------------------------

func (s *Store) UpsertCustomer(_ context.Context, c customer.Customer) (customer.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if c.ID == "" {
		c.ID = s.nextIDLocked()
	}
	if existing, ok := s.customers[c.ID]; ok {
		c.CreatedAt = existing.CreatedAt
	} else {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	s.customers[c.ID] = c
	return c, nil
}

func (s *Store) GetCustomer(_ context.Context, id string) (customer.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.customers[id]
	if !ok {
		return customer.Customer{}, fmt.Errorf("customer %s: %w", id, storage.ErrNotFound)
	}
	return c, nil
}

func (s *Store) ListCustomers(_ context.Context) ([]customer.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]customer.Customer, 0, len(s.customers))
	for _, c := range s.customers {
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

// --- StatsStore -------------------------------------------------------------

func (s *Store) Stats(_ context.Context, lowStockThreshold int64) (storage.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := storage.Stats{OrdersByStatus: make(map[string]int64)}
	stats.Products = int64(len(s.products))
	for _, p := range s.products {
		if p.Active && p.Stock <= lowStockThreshold {
			stats.LowStockProducts++
		}
	}
	stats.Customers = int64(len(s.customers))
	for _, ord := range s.orders {
		stats.OrdersByStatus[string(ord.Status)]++
	}
	for _, p := range s.payments {
		if p.Status == payment.StatusCompleted {
			stats.RevenueCents += p.AmountCents
		}
	}
	for _, req := range s.requests {
		if req.Status == support.StatusOpen || req.Status == support.StatusInProgress {
			stats.OpenRequests++
		}
	}
	for _, c := range s.coupons {
		stats.CouponRedemptions += c.UsedCount
	}
	for _, acct := range s.loyalty {
		stats.PointsOutstanding += acct.Points
	}
	return stats, nil
}
