package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sokoni-labs/commerce_layer/internal/app/domain/catalog"
	"github.com/sokoni-labs/commerce_layer/internal/app/domain/coupon"
	"github.com/sokoni-labs/commerce_layer/internal/app/domain/customer"
	"github.com/sokoni-labs/commerce_layer/internal/app/domain/loyalty"
	"github.com/sokoni-labs/commerce_layer/internal/app/domain/order"
	"github.com/sokoni-labs/commerce_layer/internal/app/domain/review"
	"github.com/sokoni-labs/commerce_layer/internal/app/domain/wishlist"
	"github.com/sokoni-labs/commerce_layer/internal/app/storage"
)

func seedProduct(t *testing.T, s *Store, stock int64) catalog.Product {
	t.Helper()
	p, err := s.CreateProduct(context.Background(), catalog.Product{
		Name:       "Widget",
		PriceCents: 1000,
		Stock:      stock,
		Condition:  catalog.ConditionNew,
		Active:     true,
	})
	require.NoError(t, err)
	return p
}

func TestPlaceOrderIsAtomic(t *testing.T) {
	ctx := context.Background()
	s := New()
	p := seedProduct(t, s, 2)

	_, err := s.CreateCoupon(ctx, coupon.Coupon{
		Code:       "SAVE10",
		Type:       coupon.TypePercentage,
		Value:      10,
		UsageLimit: 1,
		UsedCount:  1,
		Active:     true,
	})
	require.NoError(t, err)

	// Coupon is exhausted, so nothing else may change either.
	_, err = s.PlaceOrder(ctx, order.Order{CustomerID: "cust-1", TotalCents: 2000},
		[]order.Item{{ProductID: p.ID, Quantity: 2, UnitPriceCents: 1000}},
		storage.PlaceOrderParams{CouponCode: "SAVE10"})
	require.ErrorIs(t, err, coupon.ErrExhausted)

	got, err := s.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.Stock)
	orders, err := s.ListOrders(ctx, "cust-1")
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestPlaceOrderRejectsOverdrawnPoints(t *testing.T) {
	ctx := context.Background()
	s := New()
	p := seedProduct(t, s, 5)

	_, err := s.EarnPoints(ctx, "cust-1", 100)
	require.NoError(t, err)

	_, err = s.PlaceOrder(ctx, order.Order{CustomerID: "cust-1", TotalCents: 1000},
		[]order.Item{{ProductID: p.ID, Quantity: 1, UnitPriceCents: 1000}},
		storage.PlaceOrderParams{PointsRedeemed: 200})
	require.ErrorIs(t, err, loyalty.ErrInsufficientPoints)

	got, err := s.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(5), got.Stock)
}

func TestPlaceOrderConsumesStockCouponAndPoints(t *testing.T) {
	ctx := context.Background()
	s := New()
	p := seedProduct(t, s, 5)

	cpn, err := s.CreateCoupon(ctx, coupon.Coupon{
		Code:       "SAVE10",
		Type:       coupon.TypePercentage,
		Value:      10,
		UsageLimit: 3,
		Active:     true,
	})
	require.NoError(t, err)
	_, err = s.EarnPoints(ctx, "cust-1", 500)
	require.NoError(t, err)

	ord, err := s.PlaceOrder(ctx, order.Order{CustomerID: "cust-1", Status: order.StatusPending, TotalCents: 600},
		[]order.Item{{ProductID: p.ID, Quantity: 2, UnitPriceCents: 1000}},
		storage.PlaceOrderParams{CouponCode: "SAVE10", PointsRedeemed: 300})
	require.NoError(t, err)
	require.NotEmpty(t, ord.ID)

	got, err := s.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), got.Stock)

	storedCpn, err := s.GetCoupon(ctx, cpn.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), storedCpn.UsedCount)

	acct, err := s.GetLoyaltyAccount(ctx, "cust-1")
	require.NoError(t, err)
	assert.Equal(t, int64(200), acct.Points)
	assert.Equal(t, int64(300), acct.TotalRedeemed)

	items, err := s.ListOrderItems(ctx, ord.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, ord.ID, items[0].OrderID)
}

func TestAdjustStockGuardsOverdraw(t *testing.T) {
	ctx := context.Background()
	s := New()
	p := seedProduct(t, s, 1)

	_, err := s.AdjustStock(ctx, p.ID, -2)
	require.ErrorIs(t, err, catalog.ErrInsufficientStock)

	got, err := s.AdjustStock(ctx, p.ID, -1)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.Stock)
}

func TestDeleteProductSoftHides(t *testing.T) {
	ctx := context.Background()
	s := New()
	p := seedProduct(t, s, 1)

	require.NoError(t, s.DeleteProduct(ctx, p.ID))

	got, err := s.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.False(t, got.Active)

	listed, err := s.ListProducts(ctx, storage.ProductFilter{ActiveOnly: true})
	require.NoError(t, err)
	assert.Empty(t, listed)
}

func TestDeleteCategoryWithProductsConflicts(t *testing.T) {
	ctx := context.Background()
	s := New()
	cat, err := s.CreateCategory(ctx, catalog.Category{Name: "Audio", Slug: "audio"})
	require.NoError(t, err)

	_, err = s.CreateProduct(ctx, catalog.Product{
		Name:       "Speaker",
		CategoryID: cat.ID,
		PriceCents: 500,
		Condition:  catalog.ConditionNew,
		Active:     true,
	})
	require.NoError(t, err)

	err = s.DeleteCategory(ctx, cat.ID)
	require.ErrorIs(t, err, storage.ErrConflict)
}

func TestCreateCouponDuplicateCode(t *testing.T) {
	ctx := context.Background()
	s := New()
	_, err := s.CreateCoupon(ctx, coupon.Coupon{Code: "SAVE10", Type: coupon.TypeFixed, Value: 100, Active: true})
	require.NoError(t, err)

	_, err = s.CreateCoupon(ctx, coupon.Coupon{Code: "SAVE10", Type: coupon.TypeFixed, Value: 200, Active: true})
	require.ErrorIs(t, err, storage.ErrConflict)
}

func TestReleaseCouponDecrementsButNotBelowZero(t *testing.T) {
	ctx := context.Background()
	s := New()
	cpn, err := s.CreateCoupon(ctx, coupon.Coupon{Code: "SAVE10", Type: coupon.TypeFixed, Value: 100, UsedCount: 1, Active: true})
	require.NoError(t, err)

	require.NoError(t, s.ReleaseCoupon(ctx, "save10"))
	require.NoError(t, s.ReleaseCoupon(ctx, "SAVE10"))

	got, err := s.GetCoupon(ctx, cpn.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.UsedCount)

	err = s.ReleaseCoupon(ctx, "MISSING")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestDeactivateExpired(t *testing.T) {
	ctx := context.Background()
	s := New()
	now := time.Now().UTC()

	old, err := s.CreateCoupon(ctx, coupon.Coupon{Code: "OLD", Type: coupon.TypeFixed, Value: 100, ValidUntil: now.Add(-time.Hour), Active: true})
	require.NoError(t, err)
	fresh, err := s.CreateCoupon(ctx, coupon.Coupon{Code: "FRESH", Type: coupon.TypeFixed, Value: 100, ValidUntil: now.Add(time.Hour), Active: true})
	require.NoError(t, err)

	changed, err := s.DeactivateExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), changed)

	gotOld, err := s.GetCoupon(ctx, old.ID)
	require.NoError(t, err)
	assert.False(t, gotOld.Active)
	gotFresh, err := s.GetCoupon(ctx, fresh.ID)
	require.NoError(t, err)
	assert.True(t, gotFresh.Active)
}

func TestRedeemPointsInsufficient(t *testing.T) {
	ctx := context.Background()
	s := New()

	_, err := s.EarnPoints(ctx, "cust-1", 100)
	require.NoError(t, err)

	_, err = s.RedeemPoints(ctx, "cust-1", 200)
	require.ErrorIs(t, err, loyalty.ErrInsufficientPoints)

	acct, err := s.RedeemPoints(ctx, "cust-1", 100)
	require.NoError(t, err)
	assert.Equal(t, int64(0), acct.Points)
	assert.Equal(t, int64(100), acct.TotalRedeemed)
}

func TestCreateReviewRejectsDuplicatePerCustomer(t *testing.T) {
	ctx := context.Background()
	s := New()
	p := seedProduct(t, s, 1)

	_, err := s.CreateReview(ctx, review.Review{ProductID: p.ID, CustomerID: "cust-1", Rating: 5})
	require.NoError(t, err)

	_, err = s.CreateReview(ctx, review.Review{ProductID: p.ID, CustomerID: "cust-1", Rating: 4})
	require.ErrorIs(t, err, review.ErrDuplicate)

	_, err = s.CreateReview(ctx, review.Review{ProductID: p.ID, CustomerID: "cust-2", Rating: 4})
	require.NoError(t, err)
}

func TestAverageRatingCountsApprovedOnly(t *testing.T) {
	ctx := context.Background()
	s := New()
	p := seedProduct(t, s, 1)

	r1, err := s.CreateReview(ctx, review.Review{ProductID: p.ID, CustomerID: "cust-1", Rating: 5})
	require.NoError(t, err)
	r1.Approved = true
	_, err = s.UpdateReview(ctx, r1)
	require.NoError(t, err)

	_, err = s.CreateReview(ctx, review.Review{ProductID: p.ID, CustomerID: "cust-2", Rating: 1})
	require.NoError(t, err)

	avg, count, err := s.AverageRating(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, float64(5), avg)
	assert.Equal(t, int64(1), count)
}

func TestAddWishlistItemIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := New()
	p := seedProduct(t, s, 1)

	first, err := s.AddWishlistItem(ctx, wishlist.Item{CustomerID: "cust-1", ProductID: p.ID})
	require.NoError(t, err)
	second, err := s.AddWishlistItem(ctx, wishlist.Item{CustomerID: "cust-1", ProductID: p.ID})
	require.NoError(t, err)
	assert.Equal(t, first.AddedAt, second.AddedAt)

	items, err := s.ListWishlist(ctx, "cust-1")
	require.NoError(t, err)
	assert.Len(t, items, 1)

	require.NoError(t, s.RemoveWishlistItem(ctx, "cust-1", p.ID))
	err = s.RemoveWishlistItem(ctx, "cust-1", p.ID)
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestUpsertCustomerCreatesThenUpdates(t *testing.T) {
	ctx := context.Background()
	s := New()

	created, err := s.UpsertCustomer(ctx, customer.Customer{ID: "cust-1", Email: "a@example.com", Name: "Ada"})
	require.NoError(t, err)
	require.False(t, created.CreatedAt.IsZero())

	updated, err := s.UpsertCustomer(ctx, customer.Customer{ID: "cust-1", Email: "b@example.com", Name: "Ada L."})
	require.NoError(t, err)
	assert.Equal(t, "b@example.com", updated.Email)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)

	all, err := s.ListCustomers(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestUpdateOrderUnknownID(t *testing.T) {
	ctx := context.Background()
	s := New()
	_, err := s.UpdateOrder(ctx, order.Order{ID: "missing"})
	require.True(t, errors.Is(err, storage.ErrNotFound))
}
