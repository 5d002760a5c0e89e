package catalog

import (
	"context"
	"errors"
	"testing"

	domain "github.com/sokoni-labs/commerce_layer/internal/app/domain/catalog"
	"github.com/sokoni-labs/commerce_layer/internal/app/storage"
	"github.com/sokoni-labs/commerce_layer/internal/app/storage/memory"
)

func newService(t *testing.T) *Service {
	t.Helper()
	return New(memory.New(), nil, nil)
}

func seed(t *testing.T, svc *Service) (domain.Category, domain.Product) {
	t.Helper()
	ctx := context.Background()
	cat, err := svc.CreateCategory(ctx, "Home Audio", "", "speakers and amps")
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	p, err := svc.CreateProduct(ctx, ProductParams{
		CategoryID: cat.ID,
		Name:       "Bookshelf Speaker",
		PriceCents: 19900,
		Stock:      10,
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	return cat, p
}

func TestCreateCategorySlugifies(t *testing.T) {
	svc := newService(t)
	cat, err := svc.CreateCategory(context.Background(), "Home Audio", "", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if cat.Slug != "home-audio" {
		t.Fatalf("slug: got %q, want home-audio", cat.Slug)
	}
	if !cat.Active {
		t.Fatal("new category not active")
	}
}

func TestCreateProductValidation(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	cat, _ := seed(t, svc)

	if _, err := svc.CreateProduct(ctx, ProductParams{CategoryID: cat.ID, Name: "Free", PriceCents: 0}); err == nil {
		t.Fatal("expected error for zero price")
	}
	if _, err := svc.CreateProduct(ctx, ProductParams{CategoryID: "missing", Name: "Orphan", PriceCents: 100}); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("unknown category: got %v", err)
	}

	p, err := svc.CreateProduct(ctx, ProductParams{CategoryID: cat.ID, Name: "Amp", PriceCents: 100})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if p.Condition != domain.ConditionNew {
		t.Fatalf("default condition: got %s", p.Condition)
	}
}

func TestDeleteCategoryWithProductsConflicts(t *testing.T) {
	svc := newService(t)
	cat, _ := seed(t, svc)

	err := svc.DeleteCategory(context.Background(), cat.ID)
	if !errors.Is(err, storage.ErrConflict) {
		t.Fatalf("delete non-empty category: got %v, want conflict", err)
	}
}

func TestAdjustStockGuardsAgainstOverdraw(t *testing.T) {
	svc := newService(t)
	_, p := seed(t, svc)
	ctx := context.Background()

	updated, err := svc.AdjustStock(ctx, p.ID, -4)
	if err != nil {
		t.Fatalf("adjust: %v", err)
	}
	if updated.Stock != 6 {
		t.Fatalf("stock: got %d, want 6", updated.Stock)
	}

	if _, err := svc.AdjustStock(ctx, p.ID, -7); !errors.Is(err, domain.ErrInsufficientStock) {
		t.Fatalf("overdraw: got %v", err)
	}
	if _, err := svc.AdjustStock(ctx, p.ID, 0); err == nil {
		t.Fatal("expected error for zero delta")
	}
}

func TestDeleteProductSoftHides(t *testing.T) {
	svc := newService(t)
	_, p := seed(t, svc)
	ctx := context.Background()

	if err := svc.DeleteProduct(ctx, p.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	// Hidden from the storefront but still resolvable for order history.
	visible, err := svc.ListProducts(ctx, storage.ProductFilter{ActiveOnly: true})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(visible) != 0 {
		t.Fatalf("hidden product listed: %d", len(visible))
	}
	got, err := svc.GetProduct(ctx, p.ID)
	if err != nil {
		t.Fatalf("get after delete: %v", err)
	}
	if got.Active {
		t.Fatal("deleted product still active")
	}
}

func TestUpdateProductPartial(t *testing.T) {
	svc := newService(t)
	_, p := seed(t, svc)

	price := int64(17900)
	updated, err := svc.UpdateProduct(context.Background(), p.ID, ProductUpdate{PriceCents: &price})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.PriceCents != 17900 {
		t.Fatalf("price: got %d", updated.PriceCents)
	}
	if updated.Name != p.Name || updated.Stock != p.Stock {
		t.Fatal("untouched fields changed")
	}
}

type fakeCache struct {
	entries map[string]domain.Product
	hits    int
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string]domain.Product)}
}

func (c *fakeCache) GetProduct(_ context.Context, id string) (domain.Product, bool) {
	p, ok := c.entries[id]
	if ok {
		c.hits++
	}
	return p, ok
}

func (c *fakeCache) SetProduct(_ context.Context, p domain.Product) {
	c.entries[p.ID] = p
}

func (c *fakeCache) InvalidateProduct(_ context.Context, ids ...string) {
	for _, id := range ids {
		delete(c.entries, id)
	}
}

func TestGetProductReadsThroughCache(t *testing.T) {
	cache := newFakeCache()
	svc := New(memory.New(), cache, nil)
	_, p := seed(t, svc)
	ctx := context.Background()

	if _, err := svc.GetProduct(ctx, p.ID); err != nil {
		t.Fatalf("first get: %v", err)
	}
	if _, ok := cache.entries[p.ID]; !ok {
		t.Fatal("product not cached after miss")
	}
	if _, err := svc.GetProduct(ctx, p.ID); err != nil {
		t.Fatalf("second get: %v", err)
	}
	if cache.hits != 1 {
		t.Fatalf("cache hits: got %d, want 1", cache.hits)
	}
}

func TestProductMutationsInvalidateCache(t *testing.T) {
	cache := newFakeCache()
	svc := New(memory.New(), cache, nil)
	_, p := seed(t, svc)
	ctx := context.Background()

	if _, err := svc.GetProduct(ctx, p.ID); err != nil {
		t.Fatalf("warm cache: %v", err)
	}
	if _, err := svc.AdjustStock(ctx, p.ID, 1); err != nil {
		t.Fatalf("adjust stock: %v", err)
	}
	if _, ok := cache.entries[p.ID]; ok {
		t.Fatal("cache entry survived stock adjustment")
	}

	if _, err := svc.GetProduct(ctx, p.ID); err != nil {
		t.Fatalf("rewarm cache: %v", err)
	}
	if err := svc.DeleteProduct(ctx, p.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok := cache.entries[p.ID]; ok {
		t.Fatal("cache entry survived delete")
	}
}
