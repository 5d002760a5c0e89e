package postgres

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sokoni-labs/commerce_layer/internal/app/domain/catalog"
	"github.com/sokoni-labs/commerce_layer/internal/app/domain/coupon"
	"github.com/sokoni-labs/commerce_layer/internal/app/domain/loyalty"
	"github.com/sokoni-labs/commerce_layer/internal/app/domain/order"
	"github.com/sokoni-labs/commerce_layer/internal/app/storage"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(sqlx.NewDb(db, "postgres")), mock
}

var productColumns = []string{
	"id", "category_id", "name", "description", "price_cents", "compare_at_cents",
	"stock", "condition", "active", "image_url", "created_at", "updated_at",
}

func productRowData(id string, stock int64) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows(productColumns).
		AddRow(id, "", "Widget", "", int64(1000), int64(0), stock, "new", true, "", now, now)
}

func TestTranslate(t *testing.T) {
	assert.NoError(t, translate(nil))
	assert.ErrorIs(t, translate(sql.ErrNoRows), storage.ErrNotFound)
	assert.ErrorIs(t, translate(&pq.Error{Code: "23505", Constraint: "shop_coupons_code_key"}), storage.ErrConflict)
	assert.ErrorIs(t, translate(&pq.Error{Code: "23503", Constraint: "shop_products_category_id_fkey"}), storage.ErrConflict)

	opaque := errors.New("connection reset")
	assert.Equal(t, opaque, translate(opaque))
}

func TestGetProductNotFound(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery("SELECT (.+) FROM shop_products WHERE id").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := store.GetProduct(context.Background(), "missing")
	require.ErrorIs(t, err, storage.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateCategoryDuplicateSlug(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec("INSERT INTO shop_categories").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "shop_categories_slug_key"})

	_, err := store.CreateCategory(context.Background(), catalog.Category{Name: "Audio", Slug: "audio"})
	require.ErrorIs(t, err, storage.ErrConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdjustStockOverdraw(t *testing.T) {
	store, mock := newMockStore(t)

	// No row back from the conditional update, but the product exists, so the
	// decrement must have gone negative.
	mock.ExpectQuery("UPDATE shop_products").
		WithArgs("prod-1", int64(-5)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery("SELECT (.+) FROM shop_products WHERE id").
		WithArgs("prod-1").
		WillReturnRows(productRowData("prod-1", 2))

	_, err := store.AdjustStock(context.Background(), "prod-1", -5)
	require.ErrorIs(t, err, catalog.ErrInsufficientStock)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdjustStockUnknownProduct(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("UPDATE shop_products").
		WithArgs("missing", int64(1)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery("SELECT (.+) FROM shop_products WHERE id").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := store.AdjustStock(context.Background(), "missing", 1)
	require.ErrorIs(t, err, storage.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteProductSoftHides(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec("UPDATE shop_products SET active = FALSE").
		WithArgs("prod-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.DeleteProduct(context.Background(), "prod-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPlaceOrderCommitsAllWrites(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE shop_products SET stock = stock -").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE shop_coupons SET used_count = used_count \\+ 1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE shop_loyalty_accounts").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO shop_orders").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO shop_order_items").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	ord, err := store.PlaceOrder(context.Background(),
		order.Order{CustomerID: "cust-1", Status: order.StatusPending, Currency: "USD", SubtotalCents: 2000, TotalCents: 1500},
		[]order.Item{{ProductID: "prod-1", ProductName: "Widget", UnitPriceCents: 1000, Quantity: 2}},
		storage.PlaceOrderParams{CouponCode: "SAVE10", PointsRedeemed: 300})
	require.NoError(t, err)
	assert.NotEmpty(t, ord.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPlaceOrderInsufficientStockRollsBack(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE shop_products SET stock = stock -").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := store.PlaceOrder(context.Background(),
		order.Order{CustomerID: "cust-1", Status: order.StatusPending},
		[]order.Item{{ProductID: "prod-1", ProductName: "Widget", UnitPriceCents: 1000, Quantity: 5}},
		storage.PlaceOrderParams{})
	require.ErrorIs(t, err, catalog.ErrInsufficientStock)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPlaceOrderExhaustedCouponRollsBack(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE shop_products SET stock = stock -").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE shop_coupons SET used_count = used_count \\+ 1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := store.PlaceOrder(context.Background(),
		order.Order{CustomerID: "cust-1", Status: order.StatusPending},
		[]order.Item{{ProductID: "prod-1", ProductName: "Widget", UnitPriceCents: 1000, Quantity: 1}},
		storage.PlaceOrderParams{CouponCode: "SAVE10"})
	require.ErrorIs(t, err, coupon.ErrExhausted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPlaceOrderOverdrawnPointsRollsBack(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE shop_products SET stock = stock -").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE shop_loyalty_accounts").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := store.PlaceOrder(context.Background(),
		order.Order{CustomerID: "cust-1", Status: order.StatusPending},
		[]order.Item{{ProductID: "prod-1", ProductName: "Widget", UnitPriceCents: 1000, Quantity: 1}},
		storage.PlaceOrderParams{PointsRedeemed: 500})
	require.ErrorIs(t, err, loyalty.ErrInsufficientPoints)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRedeemPointsInsufficient(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery("UPDATE shop_loyalty_accounts").
		WithArgs("cust-1", int64(500)).
		WillReturnError(sql.ErrNoRows)

	_, err := store.RedeemPoints(context.Background(), "cust-1", 500)
	require.ErrorIs(t, err, loyalty.ErrInsufficientPoints)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReleaseCouponRequiresPositiveUseCount(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec("UPDATE shop_coupons SET used_count = used_count -").
		WithArgs("SAVE10").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.ReleaseCoupon(context.Background(), "SAVE10")
	require.ErrorIs(t, err, storage.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeactivateExpiredReportsRowCount(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec("UPDATE shop_coupons SET active = FALSE").
		WillReturnResult(sqlmock.NewResult(0, 3))

	changed, err := store.DeactivateExpired(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(3), changed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreIntegration(t *testing.T) {
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set; skipping postgres integration test")
	}

	db, err := sqlx.Connect("postgres", dsn)
	require.NoError(t, err)
	defer db.Close()

	store := New(db)
	ctx := context.Background()

	cat, err := store.CreateCategory(ctx, catalog.Category{
		Name: "Integration", Slug: "integration-" + uuid.NewString()[:8], Active: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.DeleteCategory(ctx, cat.ID) })

	p, err := store.CreateProduct(ctx, catalog.Product{
		CategoryID: cat.ID, Name: "Integration Widget", PriceCents: 1000,
		Stock: 10, Condition: catalog.ConditionNew, Active: true,
	})
	require.NoError(t, err)

	adjusted, err := store.AdjustStock(ctx, p.ID, -3)
	require.NoError(t, err)
	assert.Equal(t, int64(7), adjusted.Stock)

	_, err = store.AdjustStock(ctx, p.ID, -100)
	require.ErrorIs(t, err, catalog.ErrInsufficientStock)

	cust := "itest-" + uuid.NewString()[:8]
	ord, err := store.PlaceOrder(ctx,
		order.Order{CustomerID: cust, Status: order.StatusPending, Currency: "USD", SubtotalCents: 2000, TotalCents: 2000, ShippingAddress: "1 Main St"},
		[]order.Item{{ProductID: p.ID, ProductName: p.Name, UnitPriceCents: 1000, Quantity: 2}},
		storage.PlaceOrderParams{})
	require.NoError(t, err)

	items, err := store.ListOrderItems(ctx, ord.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, int64(2), items[0].Quantity)

	got, err := store.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(5), got.Stock)
}
