package orders

import (
	"context"
	"errors"
	"testing"

	"github.com/sokoni-labs/commerce_layer/internal/app/domain/catalog"
	"github.com/sokoni-labs/commerce_layer/internal/app/domain/coupon"
	"github.com/sokoni-labs/commerce_layer/internal/app/domain/loyalty"
	"github.com/sokoni-labs/commerce_layer/internal/app/domain/order"
	loyaltysvc "github.com/sokoni-labs/commerce_layer/internal/app/services/loyalty"
	"github.com/sokoni-labs/commerce_layer/internal/app/storage/memory"
)

type fixture struct {
	store   *memory.Store
	loyalty *loyaltysvc.Service
	svc     *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.New()
	ls := loyaltysvc.New(store, 1, nil)
	return &fixture{
		store:   store,
		loyalty: ls,
		svc:     New(store, store, store, ls, nil, nil),
	}
}

func (f *fixture) seedProduct(t *testing.T, priceCents, stock int64) catalog.Product {
	t.Helper()
	ctx := context.Background()
	cat, err := f.store.CreateCategory(ctx, catalog.Category{Name: "Audio", Slug: "audio", Active: true})
	if err != nil {
		t.Fatalf("seed category: %v", err)
	}
	p, err := f.store.CreateProduct(ctx, catalog.Product{
		CategoryID: cat.ID,
		Name:       "Headphones",
		PriceCents: priceCents,
		Stock:      stock,
		Condition:  catalog.ConditionNew,
		Active:     true,
	})
	if err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return p
}

func (f *fixture) seedCoupon(t *testing.T, c coupon.Coupon) coupon.Coupon {
	t.Helper()
	c.Active = true
	created, err := f.store.CreateCoupon(context.Background(), c)
	if err != nil {
		t.Fatalf("seed coupon: %v", err)
	}
	return created
}

func TestPlaceOrderPercentageCoupon(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.seedProduct(t, 10000, 5)
	f.seedCoupon(t, coupon.Coupon{Code: "SAVE10", Type: coupon.TypePercentage, Value: 10})

	ord, err := f.svc.PlaceOrder(ctx, CheckoutParams{
		CustomerID: "cust-1",
		ShippingAddress: "1 Main St",
		Lines:      []Line{{ProductID: p.ID, Quantity: 1}},
		CouponCode: "save10",
	})
	if err != nil {
		t.Fatalf("place order: %v", err)
	}
	if ord.SubtotalCents != 10000 || ord.DiscountCents != 1000 || ord.TotalCents != 9000 {
		t.Fatalf("pricing: subtotal=%d discount=%d total=%d", ord.SubtotalCents, ord.DiscountCents, ord.TotalCents)
	}
	if ord.Status != order.StatusPending {
		t.Fatalf("new order status: got %s", ord.Status)
	}

	got, err := f.store.GetProduct(ctx, p.ID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if got.Stock != 4 {
		t.Fatalf("stock after order: got %d, want 4", got.Stock)
	}

	c, err := f.store.GetCouponByCode(ctx, "SAVE10")
	if err != nil {
		t.Fatalf("get coupon: %v", err)
	}
	if c.UsedCount != 1 {
		t.Fatalf("used count: got %d, want 1", c.UsedCount)
	}
}

func TestPlaceOrderFixedCouponIsCapped(t *testing.T) {
	f := newFixture(t)
	p := f.seedProduct(t, 5000, 5)
	f.seedCoupon(t, coupon.Coupon{Code: "FLAT20", Type: coupon.TypeFixed, Value: 2000, MaxDiscountCents: 1500})

	ord, err := f.svc.PlaceOrder(context.Background(), CheckoutParams{
		CustomerID: "cust-1",
		ShippingAddress: "1 Main St",
		Lines:      []Line{{ProductID: p.ID, Quantity: 1}},
		CouponCode: "FLAT20",
	})
	if err != nil {
		t.Fatalf("place order: %v", err)
	}
	if ord.DiscountCents != 1500 || ord.TotalCents != 3500 {
		t.Fatalf("capped discount: discount=%d total=%d", ord.DiscountCents, ord.TotalCents)
	}
}

func TestPlaceOrderDiscountNeverExceedsSubtotal(t *testing.T) {
	f := newFixture(t)
	p := f.seedProduct(t, 1500, 5)
	f.seedCoupon(t, coupon.Coupon{Code: "BIG", Type: coupon.TypeFixed, Value: 2000})

	ord, err := f.svc.PlaceOrder(context.Background(), CheckoutParams{
		CustomerID: "cust-1",
		ShippingAddress: "1 Main St",
		Lines:      []Line{{ProductID: p.ID, Quantity: 1}},
		CouponCode: "BIG",
	})
	if err != nil {
		t.Fatalf("place order: %v", err)
	}
	if ord.DiscountCents != 1500 || ord.TotalCents != 0 {
		t.Fatalf("floor at zero: discount=%d total=%d", ord.DiscountCents, ord.TotalCents)
	}
}

func TestPlaceOrderRedemptionDebitsBalance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.seedProduct(t, 10000, 5)
	if _, err := f.loyalty.Grant(ctx, "cust-1", 500); err != nil {
		t.Fatalf("grant points: %v", err)
	}

	ord, err := f.svc.PlaceOrder(ctx, CheckoutParams{
		CustomerID:   "cust-1",
		ShippingAddress: "1 Main St",
		Lines:        []Line{{ProductID: p.ID, Quantity: 1}},
		RedeemPoints: 300,
	})
	if err != nil {
		t.Fatalf("place order: %v", err)
	}
	if ord.DiscountCents != 300 || ord.TotalCents != 9700 {
		t.Fatalf("redemption pricing: discount=%d total=%d", ord.DiscountCents, ord.TotalCents)
	}

	account, err := f.loyalty.Account(ctx, "cust-1")
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	if account.Points != 200 || account.TotalRedeemed != 300 {
		t.Fatalf("balance after redeem: points=%d redeemed=%d", account.Points, account.TotalRedeemed)
	}
}

func TestPlaceOrderRejectsOverdrawnRedemption(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.seedProduct(t, 10000, 5)
	if _, err := f.loyalty.Grant(ctx, "cust-1", 250); err != nil {
		t.Fatalf("grant points: %v", err)
	}

	_, err := f.svc.PlaceOrder(ctx, CheckoutParams{
		CustomerID:   "cust-1",
		ShippingAddress: "1 Main St",
		Lines:        []Line{{ProductID: p.ID, Quantity: 1}},
		RedeemPoints: 300,
	})
	if !errors.Is(err, loyalty.ErrInsufficientPoints) {
		t.Fatalf("overdrawn redemption: got %v", err)
	}

	// The failed checkout must leave stock and balance untouched.
	got, _ := f.store.GetProduct(ctx, p.ID)
	if got.Stock != 5 {
		t.Fatalf("stock after failed order: got %d, want 5", got.Stock)
	}
	account, _ := f.loyalty.Account(ctx, "cust-1")
	if account.Points != 250 {
		t.Fatalf("balance after failed order: got %d, want 250", account.Points)
	}
}

func TestPlaceOrderRejectsNonMultipleRedemption(t *testing.T) {
	f := newFixture(t)
	p := f.seedProduct(t, 10000, 5)

	_, err := f.svc.PlaceOrder(context.Background(), CheckoutParams{
		CustomerID:   "cust-1",
		ShippingAddress: "1 Main St",
		Lines:        []Line{{ProductID: p.ID, Quantity: 1}},
		RedeemPoints: 150,
	})
	if !errors.Is(err, loyalty.ErrInvalidRedemption) {
		t.Fatalf("non-multiple redemption: got %v", err)
	}
}

func TestPlaceOrderInsufficientStock(t *testing.T) {
	f := newFixture(t)
	p := f.seedProduct(t, 1000, 2)

	_, err := f.svc.PlaceOrder(context.Background(), CheckoutParams{
		CustomerID: "cust-1",
		ShippingAddress: "1 Main St",
		Lines:      []Line{{ProductID: p.ID, Quantity: 3}},
	})
	if !errors.Is(err, catalog.ErrInsufficientStock) {
		t.Fatalf("oversell: got %v", err)
	}
}

func TestPlaceOrderMergesDuplicateLines(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.seedProduct(t, 1000, 5)

	ord, err := f.svc.PlaceOrder(ctx, CheckoutParams{
		CustomerID: "cust-1",
		ShippingAddress: "1 Main St",
		Lines: []Line{
			{ProductID: p.ID, Quantity: 1},
			{ProductID: p.ID, Quantity: 2},
		},
	})
	if err != nil {
		t.Fatalf("place order: %v", err)
	}
	items, err := f.svc.Items(ctx, ord.ID)
	if err != nil {
		t.Fatalf("items: %v", err)
	}
	if len(items) != 1 || items[0].Quantity != 3 {
		t.Fatalf("merged lines: got %d items, qty %d", len(items), items[0].Quantity)
	}
	if ord.SubtotalCents != 3000 {
		t.Fatalf("merged subtotal: got %d", ord.SubtotalCents)
	}
}

func TestPlaceOrderRejectsInactiveProduct(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.seedProduct(t, 1000, 5)
	if err := f.store.DeleteProduct(ctx, p.ID); err != nil {
		t.Fatalf("hide product: %v", err)
	}

	_, err := f.svc.PlaceOrder(ctx, CheckoutParams{
		CustomerID: "cust-1",
		ShippingAddress: "1 Main St",
		Lines:      []Line{{ProductID: p.ID, Quantity: 1}},
	})
	if err == nil {
		t.Fatal("expected error ordering a hidden product")
	}
}

func TestIdempotencyKeyReplaysOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.seedProduct(t, 1000, 5)

	params := CheckoutParams{
		CustomerID:     "cust-1",
		ShippingAddress: "1 Main St",
		Lines:          []Line{{ProductID: p.ID, Quantity: 1}},
		IdempotencyKey: "retry-1",
	}
	first, err := f.svc.PlaceOrder(ctx, params)
	if err != nil {
		t.Fatalf("first order: %v", err)
	}
	second, err := f.svc.PlaceOrder(ctx, params)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("replay created new order: %s vs %s", first.ID, second.ID)
	}

	got, _ := f.store.GetProduct(ctx, p.ID)
	if got.Stock != 4 {
		t.Fatalf("stock after replay: got %d, want 4", got.Stock)
	}
}

func TestCancellationRestoresStockCouponAndPoints(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.seedProduct(t, 10000, 5)
	f.seedCoupon(t, coupon.Coupon{Code: "SAVE10", Type: coupon.TypePercentage, Value: 10})
	if _, err := f.loyalty.Grant(ctx, "cust-1", 500); err != nil {
		t.Fatalf("grant points: %v", err)
	}

	ord, err := f.svc.PlaceOrder(ctx, CheckoutParams{
		CustomerID:   "cust-1",
		ShippingAddress: "1 Main St",
		Lines:        []Line{{ProductID: p.ID, Quantity: 2}},
		CouponCode:   "SAVE10",
		RedeemPoints: 200,
	})
	if err != nil {
		t.Fatalf("place order: %v", err)
	}

	if _, err := f.svc.Transition(ctx, ord.ID, order.StatusCancelled); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	got, _ := f.store.GetProduct(ctx, p.ID)
	if got.Stock != 5 {
		t.Fatalf("stock after cancel: got %d, want 5", got.Stock)
	}
	c, _ := f.store.GetCouponByCode(ctx, "SAVE10")
	if c.UsedCount != 0 {
		t.Fatalf("used count after cancel: got %d, want 0", c.UsedCount)
	}
	account, _ := f.loyalty.Account(ctx, "cust-1")
	if account.Points != 500 {
		t.Fatalf("points after cancel: got %d, want 500", account.Points)
	}
}

func TestDeliveryAccruesLoyaltyPoints(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.seedProduct(t, 2550, 5)

	ord, err := f.svc.PlaceOrder(ctx, CheckoutParams{
		CustomerID: "cust-1",
		ShippingAddress: "1 Main St",
		Lines:      []Line{{ProductID: p.ID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("place order: %v", err)
	}

	for _, next := range []order.Status{order.StatusConfirmed, order.StatusShipped, order.StatusDelivered} {
		if _, err := f.svc.Transition(ctx, ord.ID, next); err != nil {
			t.Fatalf("transition to %s: %v", next, err)
		}
	}

	// $25.50 at one point per whole dollar floors to 25.
	account, err := f.loyalty.Account(ctx, "cust-1")
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	if account.Points != 25 {
		t.Fatalf("accrued points: got %d, want 25", account.Points)
	}
}

func TestTransitionRejectsSkippedStates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.seedProduct(t, 1000, 5)

	ord, err := f.svc.PlaceOrder(ctx, CheckoutParams{
		CustomerID: "cust-1",
		ShippingAddress: "1 Main St",
		Lines:      []Line{{ProductID: p.ID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("place order: %v", err)
	}

	if _, err := f.svc.Transition(ctx, ord.ID, order.StatusDelivered); !errors.Is(err, order.ErrInvalidTransition) {
		t.Fatalf("pending->delivered: got %v", err)
	}
}

func TestCustomerCancelAllowedOnlyWhilePending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.seedProduct(t, 1000, 5)

	ord, err := f.svc.PlaceOrder(ctx, CheckoutParams{
		CustomerID: "cust-1",
		ShippingAddress: "1 Main St",
		Lines:      []Line{{ProductID: p.ID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("place order: %v", err)
	}
	if _, err := f.svc.Transition(ctx, ord.ID, order.StatusConfirmed); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	if _, err := f.svc.Cancel(ctx, ord.ID, "cust-1"); !errors.Is(err, order.ErrInvalidTransition) {
		t.Fatalf("cancel confirmed order: got %v", err)
	}
}
