package stats

import (
	"context"
	"testing"

	"github.com/sokoni-labs/commerce_layer/internal/app/domain/catalog"
	"github.com/sokoni-labs/commerce_layer/internal/app/domain/customer"
	"github.com/sokoni-labs/commerce_layer/internal/app/domain/order"
	"github.com/sokoni-labs/commerce_layer/internal/app/domain/payment"
	"github.com/sokoni-labs/commerce_layer/internal/app/domain/support"
	"github.com/sokoni-labs/commerce_layer/internal/app/storage"
	"github.com/sokoni-labs/commerce_layer/internal/app/storage/memory"
)

func TestSnapshotAggregates(t *testing.T) {
	store := memory.New()
	svc := New(store, 5, nil)
	ctx := context.Background()

	cat, err := store.CreateCategory(ctx, catalog.Category{Name: "Misc", Slug: "misc", Active: true})
	if err != nil {
		t.Fatalf("seed category: %v", err)
	}
	low, err := store.CreateProduct(ctx, catalog.Product{
		CategoryID: cat.ID, Name: "Scarce", PriceCents: 1000, Stock: 2,
		Condition: catalog.ConditionNew, Active: true,
	})
	if err != nil {
		t.Fatalf("seed product: %v", err)
	}
	if _, err := store.CreateProduct(ctx, catalog.Product{
		CategoryID: cat.ID, Name: "Plenty", PriceCents: 1000, Stock: 50,
		Condition: catalog.ConditionNew, Active: true,
	}); err != nil {
		t.Fatalf("seed product: %v", err)
	}

	if _, err := store.UpsertCustomer(ctx, customer.Customer{ID: "cust-1", Email: "a@b.c"}); err != nil {
		t.Fatalf("seed customer: %v", err)
	}

	ord, err := store.PlaceOrder(ctx, order.Order{
		CustomerID: "cust-1", Status: order.StatusPending,
		Currency: "USD", SubtotalCents: 1000, TotalCents: 1000,
	}, []order.Item{{ProductID: low.ID, ProductName: low.Name, UnitPriceCents: 1000, Quantity: 1}}, storage.PlaceOrderParams{})
	if err != nil {
		t.Fatalf("seed order: %v", err)
	}

	if _, err := store.CreatePayment(ctx, payment.Payment{
		OrderID: ord.ID, CustomerID: "cust-1", Method: payment.MethodCash,
		Status: payment.StatusCompleted, AmountCents: 1000, Currency: "USD",
	}); err != nil {
		t.Fatalf("seed payment: %v", err)
	}

	if _, err := store.CreateRequest(ctx, support.Request{
		CustomerID: "cust-1", Subject: "Hello", Body: "Body", Status: support.StatusOpen,
	}); err != nil {
		t.Fatalf("seed request: %v", err)
	}

	snap, err := svc.Snapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snap.Products != 2 {
		t.Fatalf("products: got %d", snap.Products)
	}
	if snap.LowStockProducts != 1 {
		t.Fatalf("low stock: got %d", snap.LowStockProducts)
	}
	if snap.Customers != 1 {
		t.Fatalf("customers: got %d", snap.Customers)
	}
	if snap.OrdersByStatus["pending"] != 1 {
		t.Fatalf("orders by status: %v", snap.OrdersByStatus)
	}
	if snap.RevenueCents != 1000 {
		t.Fatalf("revenue: got %d", snap.RevenueCents)
	}
	if snap.OpenRequests != 1 {
		t.Fatalf("open requests: got %d", snap.OpenRequests)
	}
}
