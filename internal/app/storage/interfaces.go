// Package storage defines the persistence interfaces implemented by the
// memory and postgres backends.
package storage

import (
	"context"
	"errors"
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
)

// ErrNotFound is returned by all stores when the requested row does not
// exist. The postgres backend maps sql.ErrNoRows onto it.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned for uniqueness violations such as duplicate
// category slugs or coupon codes.
var ErrConflict = errors.New("already exists")

// ProductFilter narrows product listings.
type ProductFilter struct {
	CategoryID string
	// ActiveOnly hides soft-deleted products; admin listings pass false.
	ActiveOnly bool
}

// CatalogStore persists products and categories.
type CatalogStore interface {
	CreateCategory(ctx context.Context, cat catalog.Category) (catalog.Category, error)
	UpdateCategory(ctx context.Context, cat catalog.Category) (catalog.Category, error)
	GetCategory(ctx context.Context, id string) (catalog.Category, error)
	ListCategories(ctx context.Context) ([]catalog.Category, error)
	// DeleteCategory fails with ErrConflict while products reference it.
	DeleteCategory(ctx context.Context, id string) error

	CreateProduct(ctx context.Context, p catalog.Product) (catalog.Product, error)
	UpdateProduct(ctx context.Context, p catalog.Product) (catalog.Product, error)
	GetProduct(ctx context.Context, id string) (catalog.Product, error)
	ListProducts(ctx context.Context, filter ProductFilter) ([]catalog.Product, error)
	DeleteProduct(ctx context.Context, id string) error
	// AdjustStock applies a delta; a decrement past zero fails with
	// catalog.ErrInsufficientStock and leaves the row untouched.
	AdjustStock(ctx context.Context, productID string, delta int64) (catalog.Product, error)
}

// PlaceOrderParams carries the side effects committed atomically with an
// order: stock decrements for its items, one coupon usage, and a loyalty
// redemption.
type PlaceOrderParams struct {
	CouponCode     string
	PointsRedeemed int64
}

// OrderStore persists orders and their item snapshots.
type OrderStore interface {
	// PlaceOrder writes the order, its items, the stock decrements, the
	// coupon usage increment and the loyalty redemption in one transaction.
	// Conditional updates surface catalog.ErrInsufficientStock,
	// coupon.ErrExhausted and loyalty.ErrInsufficientPoints.
	PlaceOrder(ctx context.Context, ord order.Order, items []order.Item, params PlaceOrderParams) (order.Order, error)
	UpdateOrder(ctx context.Context, ord order.Order) (order.Order, error)
	GetOrder(ctx context.Context, id string) (order.Order, error)
	ListOrders(ctx context.Context, customerID string) ([]order.Order, error)
	ListOrderItems(ctx context.Context, orderID string) ([]order.Item, error)
}

// CouponStore persists coupons.
type CouponStore interface {
	CreateCoupon(ctx context.Context, c coupon.Coupon) (coupon.Coupon, error)
	UpdateCoupon(ctx context.Context, c coupon.Coupon) (coupon.Coupon, error)
	GetCoupon(ctx context.Context, id string) (coupon.Coupon, error)
	GetCouponByCode(ctx context.Context, code string) (coupon.Coupon, error)
	ListCoupons(ctx context.Context) ([]coupon.Coupon, error)
	DeleteCoupon(ctx context.Context, id string) error
	// ReleaseCoupon decrements used_count when a couponed order is cancelled.
	ReleaseCoupon(ctx context.Context, code string) error
	// DeactivateExpired disables coupons whose window has closed and returns
	// how many rows changed.
	DeactivateExpired(ctx context.Context, now time.Time) (int64, error)
}

// LoyaltyStore persists loyalty accounts.
type LoyaltyStore interface {
	// GetLoyaltyAccount creates an empty account on first touch.
	GetLoyaltyAccount(ctx context.Context, customerID string) (loyalty.Account, error)
	// EarnPoints credits the balance and TotalEarned together.
	EarnPoints(ctx context.Context, customerID string, points int64) (loyalty.Account, error)
	// RedeemPoints debits the balance and credits TotalRedeemed in a single
	// conditional write; an overdraw fails with loyalty.ErrInsufficientPoints.
	RedeemPoints(ctx context.Context, customerID string, points int64) (loyalty.Account, error)
}

// PaymentStore persists payment attempts.
type PaymentStore interface {
	CreatePayment(ctx context.Context, p payment.Payment) (payment.Payment, error)
	UpdatePayment(ctx context.Context, p payment.Payment) (payment.Payment, error)
	GetPayment(ctx context.Context, id string) (payment.Payment, error)
	GetPaymentByProviderRef(ctx context.Context, ref string) (payment.Payment, error)
	ListPayments(ctx context.Context, orderID string) ([]payment.Payment, error)
	// ListProcessingPayments feeds the settlement poller.
	ListProcessingPayments(ctx context.Context) ([]payment.Payment, error)
}

// ReviewStore persists product reviews.
type ReviewStore interface {
	// CreateReview fails with review.ErrDuplicate for a second review of the
	// same product by the same customer.
	CreateReview(ctx context.Context, r review.Review) (review.Review, error)
	UpdateReview(ctx context.Context, r review.Review) (review.Review, error)
	GetReview(ctx context.Context, id string) (review.Review, error)
	ListReviews(ctx context.Context, productID string, approvedOnly bool) ([]review.Review, error)
	DeleteReview(ctx context.Context, id string) error
	// AverageRating covers approved reviews only.
	AverageRating(ctx context.Context, productID string) (avg float64, count int64, err error)
}

// WishlistStore persists wishlist items.
type WishlistStore interface {
	AddWishlistItem(ctx context.Context, item wishlist.Item) (wishlist.Item, error)
	RemoveWishlistItem(ctx context.Context, customerID, productID string) error
	ListWishlist(ctx context.Context, customerID string) ([]wishlist.Item, error)
}

// SupportStore persists service requests.
type SupportStore interface {
	CreateRequest(ctx context.Context, req support.Request) (support.Request, error)
	UpdateRequest(ctx context.Context, req support.Request) (support.Request, error)
	GetRequest(ctx context.Context, id string) (support.Request, error)
	ListRequests(ctx context.Context, customerID string) ([]support.Request, error)
}

// CustomerStore persists customer records.
type CustomerStore interface {
	UpsertCustomer(ctx context.Context, c customer.Customer) (customer.Customer, error)
	GetCustomer(ctx context.Context, id string) (customer.Customer, error)
	ListCustomers(ctx context.Context) ([]customer.Customer, error)
}

// Stats is the admin dashboard aggregate.
type Stats struct {
	Products          int64            `json:"products"`
	LowStockProducts  int64            `json:"low_stock_products"`
	Customers         int64            `json:"customers"`
	OrdersByStatus    map[string]int64 `json:"orders_by_status"`
	RevenueCents      int64            `json:"revenue_cents"`
	OpenRequests      int64            `json:"open_requests"`
	CouponRedemptions int64            `json:"coupon_redemptions"`
	PointsOutstanding int64            `json:"points_outstanding"`
}

// StatsStore aggregates dashboard counters from the same tables the other
// stores write.
type StatsStore interface {
	Stats(ctx context.Context, lowStockThreshold int64) (Stats, error)
}
