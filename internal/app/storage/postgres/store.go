// Package postgres implements the storage interfaces backed by PostgreSQL.
// Checkout side effects (stock, coupon usage, loyalty redemption) are written
// as conditional updates inside a single transaction, so the invariants the
// domain documents are enforced by the database rather than by hope.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

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

// Store implements the storage interfaces backed by PostgreSQL.
type Store struct {
	db *sqlx.DB
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

// New creates a Store using the provided database handle.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// pq error codes worth translating into friendlier sentinels.
const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case pqUniqueViolation:
			return fmt.Errorf("%w: %s", storage.ErrConflict, pqErr.Constraint)
		case pqForeignKeyViolation:
			return fmt.Errorf("%w: %s", storage.ErrConflict, pqErr.Constraint)
		}
	}
	return err
}

func toNullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func fromNullTime(t sql.NullTime) time.Time {
	if !t.Valid {
		return time.Time{}
	}
	return t.Time.UTC()
}

// --- row types --------------------------------------------------------------

type categoryRow struct {
	ID          string    `db:"id"`
	Name        string    `db:"name"`
	Slug        string    `db:"slug"`
	Description string    `db:"description"`
	Active      bool      `db:"active"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (r categoryRow) domain() catalog.Category {
	return catalog.Category(r)
}

type productRow struct {
	ID             string    `db:"id"`
	CategoryID     string    `db:"category_id"`
	Name           string    `db:"name"`
	Description    string    `db:"description"`
	PriceCents     int64     `db:"price_cents"`
	CompareAtCents int64     `db:"compare_at_cents"`
	Stock          int64     `db:"stock"`
	Condition      string    `db:"condition"`
	Active         bool      `db:"active"`
	ImageURL       string    `db:"image_url"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

func (r productRow) domain() catalog.Product {
	return catalog.Product{
		ID:             r.ID,
		CategoryID:     r.CategoryID,
		Name:           r.Name,
		Description:    r.Description,
		PriceCents:     r.PriceCents,
		CompareAtCents: r.CompareAtCents,
		Stock:          r.Stock,
		Condition:      catalog.Condition(r.Condition),
		Active:         r.Active,
		ImageURL:       r.ImageURL,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

type orderRow struct {
	ID              string    `db:"id"`
	CustomerID      string    `db:"customer_id"`
	Status          string    `db:"status"`
	Currency        string    `db:"currency"`
	SubtotalCents   int64     `db:"subtotal_cents"`
	DiscountCents   int64     `db:"discount_cents"`
	TotalCents      int64     `db:"total_cents"`
	CouponCode      string    `db:"coupon_code"`
	PointsRedeemed  int64     `db:"points_redeemed"`
	ShippingAddress string    `db:"shipping_address"`
	CreatedAt       time.Time `db:"created_at"`
	UpdatedAt       time.Time `db:"updated_at"`
}

func (r orderRow) domain() order.Order {
	return order.Order{
		ID:              r.ID,
		CustomerID:      r.CustomerID,
		Status:          order.Status(r.Status),
		Currency:        r.Currency,
		SubtotalCents:   r.SubtotalCents,
		DiscountCents:   r.DiscountCents,
		TotalCents:      r.TotalCents,
		CouponCode:      r.CouponCode,
		PointsRedeemed:  r.PointsRedeemed,
		ShippingAddress: r.ShippingAddress,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

type orderItemRow struct {
	ID             string `db:"id"`
	OrderID        string `db:"order_id"`
	ProductID      string `db:"product_id"`
	ProductName    string `db:"product_name"`
	UnitPriceCents int64  `db:"unit_price_cents"`
	Quantity       int64  `db:"quantity"`
}

func (r orderItemRow) domain() order.Item {
	return order.Item(r)
}

type couponRow struct {
	ID               string       `db:"id"`
	Code             string       `db:"code"`
	Type             string       `db:"type"`
	Value            int64        `db:"value"`
	MinPurchaseCents int64        `db:"min_purchase_cents"`
	MaxDiscountCents int64        `db:"max_discount_cents"`
	UsageLimit       int64        `db:"usage_limit"`
	UsedCount        int64        `db:"used_count"`
	ValidFrom        sql.NullTime `db:"valid_from"`
	ValidUntil       sql.NullTime `db:"valid_until"`
	Active           bool         `db:"active"`
	CreatedAt        time.Time    `db:"created_at"`
	UpdatedAt        time.Time    `db:"updated_at"`
}

func (r couponRow) domain() coupon.Coupon {
	return coupon.Coupon{
		ID:               r.ID,
		Code:             r.Code,
		Type:             coupon.Type(r.Type),
		Value:            r.Value,
		MinPurchaseCents: r.MinPurchaseCents,
		MaxDiscountCents: r.MaxDiscountCents,
		UsageLimit:       r.UsageLimit,
		UsedCount:        r.UsedCount,
		ValidFrom:        fromNullTime(r.ValidFrom),
		ValidUntil:       fromNullTime(r.ValidUntil),
		Active:           r.Active,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
}

type loyaltyRow struct {
	CustomerID    string    `db:"customer_id"`
	Points        int64     `db:"points"`
	TotalEarned   int64     `db:"total_earned"`
	TotalRedeemed int64     `db:"total_redeemed"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

func (r loyaltyRow) domain() loyalty.Account {
	return loyalty.Account(r)
}

type paymentRow struct {
	ID            string       `db:"id"`
	OrderID       string       `db:"order_id"`
	CustomerID    string       `db:"customer_id"`
	Method        string       `db:"method"`
	Status        string       `db:"status"`
	AmountCents   int64        `db:"amount_cents"`
	Currency      string       `db:"currency"`
	Phone         string       `db:"phone"`
	ProviderRef   string       `db:"provider_ref"`
	FailureReason string       `db:"failure_reason"`
	CreatedAt     time.Time    `db:"created_at"`
	UpdatedAt     time.Time    `db:"updated_at"`
	CompletedAt   sql.NullTime `db:"completed_at"`
}

func (r paymentRow) domain() payment.Payment {
	return payment.Payment{
		ID:            r.ID,
		OrderID:       r.OrderID,
		CustomerID:    r.CustomerID,
		Method:        payment.Method(r.Method),
		Status:        payment.Status(r.Status),
		AmountCents:   r.AmountCents,
		Currency:      r.Currency,
		Phone:         r.Phone,
		ProviderRef:   r.ProviderRef,
		FailureReason: r.FailureReason,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
		CompletedAt:   fromNullTime(r.CompletedAt),
	}
}

type reviewRow struct {
	ID         string    `db:"id"`
	ProductID  string    `db:"product_id"`
	CustomerID string    `db:"customer_id"`
	Rating     int       `db:"rating"`
	Title      string    `db:"title"`
	Comment    string    `db:"comment"`
	Approved   bool      `db:"approved"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

func (r reviewRow) domain() review.Review {
	return review.Review(r)
}

type wishlistRow struct {
	CustomerID string    `db:"customer_id"`
	ProductID  string    `db:"product_id"`
	AddedAt    time.Time `db:"added_at"`
}

func (r wishlistRow) domain() wishlist.Item {
	return wishlist.Item(r)
}

type requestRow struct {
	ID         string    `db:"id"`
	CustomerID string    `db:"customer_id"`
	OrderID    string    `db:"order_id"`
	Subject    string    `db:"subject"`
	Body       string    `db:"body"`
	Status     string    `db:"status"`
	AdminReply string    `db:"admin_reply"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

func (r requestRow) domain() support.Request {
	return support.Request{
		ID:         r.ID,
		CustomerID: r.CustomerID,
		OrderID:    r.OrderID,
		Subject:    r.Subject,
		Body:       r.Body,
		Status:     support.Status(r.Status),
		AdminReply: r.AdminReply,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

type customerRow struct {
	ID        string    `db:"id"`
	Email     string    `db:"email"`
	Name      string    `db:"name"`
	Phone     string    `db:"phone"`
	Admin     bool      `db:"admin"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r customerRow) domain() customer.Customer {
	return customer.Customer(r)
}

// --- CatalogStore -----------------------------------------------------------

func (s *Store) CreateCategory(ctx context.Context, cat catalog.Category) (catalog.Category, error) {
	if cat.ID == "" {
		cat.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	cat.CreatedAt = now
	cat.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO shop_categories (id, name, slug, description, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, cat.ID, cat.Name, cat.Slug, cat.Description, cat.Active, cat.CreatedAt, cat.UpdatedAt)
	if err != nil {
		return catalog.Category{}, translate(err)
	}
	return cat, nil
}

func (s *Store) UpdateCategory(ctx context.Context, cat catalog.Category) (catalog.Category, error) {
	existing, err := s.GetCategory(ctx, cat.ID)
	if err != nil {
		return catalog.Category{}, err
	}
	cat.CreatedAt = existing.CreatedAt
	cat.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE shop_categories
		SET name = $2, slug = $3, description = $4, active = $5, updated_at = $6
		WHERE id = $1
	`, cat.ID, cat.Name, cat.Slug, cat.Description, cat.Active, cat.UpdatedAt)
	if err != nil {
		return catalog.Category{}, translate(err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return catalog.Category{}, storage.ErrNotFound
	}
	return cat, nil
}

func (s *Store) GetCategory(ctx context.Context, id string) (catalog.Category, error) {
	var row categoryRow
	err := s.db.GetContext(ctx, &row, `
		SELECT id, name, slug, description, active, created_at, updated_at
		FROM shop_categories WHERE id = $1
	`, id)
	if err != nil {
		return catalog.Category{}, translate(err)
	}
	return row.domain(), nil
}

func (s *Store) ListCategories(ctx context.Context) ([]catalog.Category, error) {
	var rows []categoryRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, name, slug, description, active, created_at, updated_at
		FROM shop_categories ORDER BY created_at
	`)
	if err != nil {
		return nil, translate(err)
	}
	result := make([]catalog.Category, 0, len(rows))
	for _, row := range rows {
		result = append(result, row.domain())
	}
	return result, nil
}

func (s *Store) DeleteCategory(ctx context.Context, id string) error {
	var count int64
	if err := s.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM shop_products WHERE category_id = $1`, id); err != nil {
		return translate(err)
	}
	if count > 0 {
		return fmt.Errorf("category %s has %d products: %w", id, count, storage.ErrConflict)
	}
	result, err := s.db.ExecContext(ctx, `DELETE FROM shop_categories WHERE id = $1`, id)
	if err != nil {
		return translate(err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) CreateProduct(ctx context.Context, p catalog.Product) (catalog.Product, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO shop_products (id, category_id, name, description, price_cents, compare_at_cents, stock, condition, active, image_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, p.ID, p.CategoryID, p.Name, p.Description, p.PriceCents, p.CompareAtCents, p.Stock, string(p.Condition), p.Active, p.ImageURL, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return catalog.Product{}, translate(err)
	}
	return p, nil
}

func (s *Store) UpdateProduct(ctx context.Context, p catalog.Product) (catalog.Product, error) {
	existing, err := s.GetProduct(ctx, p.ID)
	if err != nil {
		return catalog.Product{}, err
	}
	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE shop_products
		SET category_id = $2, name = $3, description = $4, price_cents = $5, compare_at_cents = $6,
		    stock = $7, condition = $8, active = $9, image_url = $10, updated_at = $11
		WHERE id = $1
	`, p.ID, p.CategoryID, p.Name, p.Description, p.PriceCents, p.CompareAtCents, p.Stock, string(p.Condition), p.Active, p.ImageURL, p.UpdatedAt)
	if err != nil {
		return catalog.Product{}, translate(err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return catalog.Product{}, storage.ErrNotFound
	}
	return p, nil
}

func (s *Store) GetProduct(ctx context.Context, id string) (catalog.Product, error) {
	var row productRow
	err := s.db.GetContext(ctx, &row, `
		SELECT id, category_id, name, description, price_cents, compare_at_cents, stock, condition, active, image_url, created_at, updated_at
		FROM shop_products WHERE id = $1
	`, id)
	if err != nil {
		return catalog.Product{}, translate(err)
	}
	return row.domain(), nil
}

func (s *Store) ListProducts(ctx context.Context, filter storage.ProductFilter) ([]catalog.Product, error) {
	var rows []productRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, category_id, name, description, price_cents, compare_at_cents, stock, condition, active, image_url, created_at, updated_at
		FROM shop_products
		WHERE ($1 = '' OR category_id = $1) AND (NOT $2 OR active)
		ORDER BY created_at
	`, filter.CategoryID, filter.ActiveOnly)
	if err != nil {
		return nil, translate(err)
	}
	result := make([]catalog.Product, 0, len(rows))
	for _, row := range rows {
		result = append(result, row.domain())
	}
	return result, nil
}

func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	// Soft-hide so order item snapshots keep a referent.
	result, err := s.db.ExecContext(ctx,
		`UPDATE shop_products SET active = FALSE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return translate(err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) AdjustStock(ctx context.Context, productID string, delta int64) (catalog.Product, error) {
	var row productRow
	err := s.db.GetContext(ctx, &row, `
		UPDATE shop_products
		SET stock = stock + $2, updated_at = NOW()
		WHERE id = $1 AND stock + $2 >= 0
		RETURNING id, category_id, name, description, price_cents, compare_at_cents, stock, condition, active, image_url, created_at, updated_at
	`, productID, delta)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Either the product is missing or the decrement would go
			// negative; disambiguate for the caller.
			if _, getErr := s.GetProduct(ctx, productID); getErr != nil {
				return catalog.Product{}, getErr
			}
			return catalog.Product{}, fmt.Errorf("product %s: %w", productID, catalog.ErrInsufficientStock)
		}
		return catalog.Product{}, translate(err)
	}
	return row.domain(), nil
}

// --- OrderStore -------------------------------------------------------------

func (s *Store) PlaceOrder(ctx context.Context, ord order.Order, items []order.Item, params storage.PlaceOrderParams) (order.Order, error) {
	if ord.ID == "" {
		ord.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	ord.CreatedAt = now
	ord.UpdatedAt = now

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return order.Order{}, translate(err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, it := range items {
		result, err := tx.ExecContext(ctx, `
			UPDATE shop_products SET stock = stock - $2, updated_at = $3
			WHERE id = $1 AND stock >= $2
		`, it.ProductID, it.Quantity, now)
		if err != nil {
			return order.Order{}, translate(err)
		}
		if rows, _ := result.RowsAffected(); rows == 0 {
			return order.Order{}, fmt.Errorf("product %s: %w", it.ProductID, catalog.ErrInsufficientStock)
		}
	}

	if params.CouponCode != "" {
		result, err := tx.ExecContext(ctx, `
			UPDATE shop_coupons SET used_count = used_count + 1, updated_at = $2
			WHERE code = $1 AND (usage_limit = 0 OR used_count < usage_limit)
		`, params.CouponCode, now)
		if err != nil {
			return order.Order{}, translate(err)
		}
		if rows, _ := result.RowsAffected(); rows == 0 {
			return order.Order{}, coupon.ErrExhausted
		}
	}

	if params.PointsRedeemed > 0 {
		result, err := tx.ExecContext(ctx, `
			UPDATE shop_loyalty_accounts
			SET points = points - $2, total_redeemed = total_redeemed + $2, updated_at = $3
			WHERE customer_id = $1 AND points >= $2
		`, ord.CustomerID, params.PointsRedeemed, now)
		if err != nil {
			return order.Order{}, translate(err)
		}
		if rows, _ := result.RowsAffected(); rows == 0 {
			return order.Order{}, loyalty.ErrInsufficientPoints
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO shop_orders (id, customer_id, status, currency, subtotal_cents, discount_cents, total_cents, coupon_code, points_redeemed, shipping_address, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, ord.ID, ord.CustomerID, string(ord.Status), ord.Currency, ord.SubtotalCents, ord.DiscountCents, ord.TotalCents, ord.CouponCode, ord.PointsRedeemed, ord.ShippingAddress, ord.CreatedAt, ord.UpdatedAt)
	if err != nil {
		return order.Order{}, translate(err)
	}

	for _, it := range items {
		if it.ID == "" {
			it.ID = uuid.NewString()
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO shop_order_items (id, order_id, product_id, product_name, unit_price_cents, quantity)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, it.ID, ord.ID, it.ProductID, it.ProductName, it.UnitPriceCents, it.Quantity)
		if err != nil {
			return order.Order{}, translate(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return order.Order{}, translate(err)
	}
	return ord, nil
}

func (s *Store) UpdateOrder(ctx context.Context, ord order.Order) (order.Order, error) {
	existing, err := s.GetOrder(ctx, ord.ID)
	if err != nil {
		return order.Order{}, err
	}
	ord.CustomerID = existing.CustomerID
	ord.CreatedAt = existing.CreatedAt
	ord.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE shop_orders
		SET status = $2, currency = $3, subtotal_cents = $4, discount_cents = $5, total_cents = $6,
		    coupon_code = $7, points_redeemed = $8, shipping_address = $9, updated_at = $10
		WHERE id = $1
	`, ord.ID, string(ord.Status), ord.Currency, ord.SubtotalCents, ord.DiscountCents, ord.TotalCents, ord.CouponCode, ord.PointsRedeemed, ord.ShippingAddress, ord.UpdatedAt)
	if err != nil {
		return order.Order{}, translate(err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return order.Order{}, storage.ErrNotFound
	}
	return ord, nil
}

func (s *Store) GetOrder(ctx context.Context, id string) (order.Order, error) {
	var row orderRow
	err := s.db.GetContext(ctx, &row, `
		SELECT id, customer_id, status, currency, subtotal_cents, discount_cents, total_cents, coupon_code, points_redeemed, shipping_address, created_at, updated_at
		FROM shop_orders WHERE id = $1
	`, id)
	if err != nil {
		return order.Order{}, translate(err)
	}
	return row.domain(), nil
}

func (s *Store) ListOrders(ctx context.Context, customerID string) ([]order.Order, error) {
	var rows []orderRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, customer_id, status, currency, subtotal_cents, discount_cents, total_cents, coupon_code, points_redeemed, shipping_address, created_at, updated_at
		FROM shop_orders
		WHERE $1 = '' OR customer_id = $1
		ORDER BY created_at DESC
	`, customerID)
	if err != nil {
		return nil, translate(err)
	}
	result := make([]order.Order, 0, len(rows))
	for _, row := range rows {
		result = append(result, row.domain())
	}
	return result, nil
}

func (s *Store) ListOrderItems(ctx context.Context, orderID string) ([]order.Item, error) {
	var rows []orderItemRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, order_id, product_id, product_name, unit_price_cents, quantity
		FROM shop_order_items WHERE order_id = $1
	`, orderID)
	if err != nil {
		return nil, translate(err)
	}
	result := make([]order.Item, 0, len(rows))
	for _, row := range rows {
		result = append(result, row.domain())
	}
	return result, nil
}

// --- CouponStore ------------------------------------------------------------

func (s *Store) CreateCoupon(ctx context.Context, c coupon.Coupon) (coupon.Coupon, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO shop_coupons (id, code, type, value, min_purchase_cents, max_discount_cents, usage_limit, used_count, valid_from, valid_until, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, c.ID, c.Code, string(c.Type), c.Value, c.MinPurchaseCents, c.MaxDiscountCents, c.UsageLimit, c.UsedCount, toNullTime(c.ValidFrom), toNullTime(c.ValidUntil), c.Active, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return coupon.Coupon{}, translate(err)
	}
	return c, nil
}

func (s *Store) UpdateCoupon(ctx context.Context, c coupon.Coupon) (coupon.Coupon, error) {
	existing, err := s.GetCoupon(ctx, c.ID)
	if err != nil {
		return coupon.Coupon{}, err
	}
	c.Code = existing.Code
	c.UsedCount = existing.UsedCount
	c.CreatedAt = existing.CreatedAt
	c.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE shop_coupons
		SET type = $2, value = $3, min_purchase_cents = $4, max_discount_cents = $5,
		    usage_limit = $6, valid_from = $7, valid_until = $8, active = $9, updated_at = $10
		WHERE id = $1
	`, c.ID, string(c.Type), c.Value, c.MinPurchaseCents, c.MaxDiscountCents, c.UsageLimit, toNullTime(c.ValidFrom), toNullTime(c.ValidUntil), c.Active, c.UpdatedAt)
	if err != nil {
		return coupon.Coupon{}, translate(err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return coupon.Coupon{}, storage.ErrNotFound
	}
	return c, nil
}

func (s *Store) GetCoupon(ctx context.Context, id string) (coupon.Coupon, error) {
	var row couponRow
	err := s.db.GetContext(ctx, &row, `
		SELECT id, code, type, value, min_purchase_cents, max_discount_cents, usage_limit, used_count, valid_from, valid_until, active, created_at, updated_at
		FROM shop_coupons WHERE id = $1
	`, id)
	if err != nil {
		return coupon.Coupon{}, translate(err)
	}
	return row.domain(), nil
}

func (s *Store) GetCouponByCode(ctx context.Context, code string) (coupon.Coupon, error) {
	var row couponRow
	err := s.db.GetContext(ctx, &row, `
		SELECT id, code, type, value, min_purchase_cents, max_discount_cents, usage_limit, used_count, valid_from, valid_until, active, created_at, updated_at
		FROM shop_coupons WHERE UPPER(code) = UPPER($1)
	`, code)
	if err != nil {
		return coupon.Coupon{}, translate(err)
	}
	return row.domain(), nil
}

func (s *Store) ListCoupons(ctx context.Context) ([]coupon.Coupon, error) {
	var rows []couponRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, code, type, value, min_purchase_cents, max_discount_cents, usage_limit, used_count, valid_from, valid_until, active, created_at, updated_at
		FROM shop_coupons ORDER BY created_at
	`)
	if err != nil {
		return nil, translate(err)
	}
	result := make([]coupon.Coupon, 0, len(rows))
	for _, row := range rows {
		result = append(result, row.domain())
	}
	return result, nil
}

func (s *Store) DeleteCoupon(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM shop_coupons WHERE id = $1`, id)
	if err != nil {
		return translate(err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) ReleaseCoupon(ctx context.Context, code string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE shop_coupons SET used_count = used_count - 1, updated_at = NOW()
		WHERE UPPER(code) = UPPER($1) AND used_count > 0
	`, code)
	if err != nil {
		return translate(err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) DeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE shop_coupons SET active = FALSE, updated_at = $1
		WHERE active AND valid_until IS NOT NULL AND valid_until < $1
	`, now.UTC())
	if err != nil {
		return 0, translate(err)
	}
	rows, _ := result.RowsAffected()
	return rows, nil
}

// --- LoyaltyStore -----------------------------------------------------------

func (s *Store) GetLoyaltyAccount(ctx context.Context, customerID string) (loyalty.Account, error) {
	var row loyaltyRow
	err := s.db.GetContext(ctx, &row, `
		INSERT INTO shop_loyalty_accounts (customer_id, points, total_earned, total_redeemed, created_at, updated_at)
		VALUES ($1, 0, 0, 0, NOW(), NOW())
		ON CONFLICT (customer_id) DO UPDATE SET customer_id = EXCLUDED.customer_id
		RETURNING customer_id, points, total_earned, total_redeemed, created_at, updated_at
	`, customerID)
	if err != nil {
		return loyalty.Account{}, translate(err)
	}
	return row.domain(), nil
}

func (s *Store) EarnPoints(ctx context.Context, customerID string, points int64) (loyalty.Account, error) {
	if _, err := s.GetLoyaltyAccount(ctx, customerID); err != nil {
		return loyalty.Account{}, err
	}
	var row loyaltyRow
	err := s.db.GetContext(ctx, &row, `
		UPDATE shop_loyalty_accounts
		SET points = points + $2, total_earned = total_earned + $2, updated_at = NOW()
		WHERE customer_id = $1
		RETURNING customer_id, points, total_earned, total_redeemed, created_at, updated_at
	`, customerID, points)
	if err != nil {
		return loyalty.Account{}, translate(err)
	}
	return row.domain(), nil
}

func (s *Store) RedeemPoints(ctx context.Context, customerID string, points int64) (loyalty.Account, error) {
	var row loyaltyRow
	err := s.db.GetContext(ctx, &row, `
		UPDATE shop_loyalty_accounts
		SET points = points - $2, total_redeemed = total_redeemed + $2, updated_at = NOW()
		WHERE customer_id = $1 AND points >= $2
		RETURNING customer_id, points, total_earned, total_redeemed, created_at, updated_at
	`, customerID, points)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return loyalty.Account{}, loyalty.ErrInsufficientPoints
		}
		return loyalty.Account{}, translate(err)
	}
	return row.domain(), nil
}

// --- PaymentStore -----------------------------------------------------------

func (s *Store) CreatePayment(ctx context.Context, p payment.Payment) (payment.Payment, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO shop_payments (id, order_id, customer_id, method, status, amount_cents, currency, phone, provider_ref, failure_reason, created_at, updated_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, p.ID, p.OrderID, p.CustomerID, string(p.Method), string(p.Status), p.AmountCents, p.Currency, p.Phone, p.ProviderRef, p.FailureReason, p.CreatedAt, p.UpdatedAt, toNullTime(p.CompletedAt))
	if err != nil {
		return payment.Payment{}, translate(err)
	}
	return p, nil
}

func (s *Store) UpdatePayment(ctx context.Context, p payment.Payment) (payment.Payment, error) {
	existing, err := s.GetPayment(ctx, p.ID)
	if err != nil {
		return payment.Payment{}, err
	}
	p.OrderID = existing.OrderID
	p.CustomerID = existing.CustomerID
	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE shop_payments
		SET method = $2, status = $3, amount_cents = $4, currency = $5, phone = $6,
		    provider_ref = $7, failure_reason = $8, updated_at = $9, completed_at = $10
		WHERE id = $1
	`, p.ID, string(p.Method), string(p.Status), p.AmountCents, p.Currency, p.Phone, p.ProviderRef, p.FailureReason, p.UpdatedAt, toNullTime(p.CompletedAt))
	if err != nil {
		return payment.Payment{}, translate(err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return payment.Payment{}, storage.ErrNotFound
	}
	return p, nil
}

func (s *Store) GetPayment(ctx context.Context, id string) (payment.Payment, error) {
	var row paymentRow
	err := s.db.GetContext(ctx, &row, `
		SELECT id, order_id, customer_id, method, status, amount_cents, currency, phone, provider_ref, failure_reason, created_at, updated_at, completed_at
		FROM shop_payments WHERE id = $1
	`, id)
	if err != nil {
		return payment.Payment{}, translate(err)
	}
	return row.domain(), nil
}

func (s *Store) GetPaymentByProviderRef(ctx context.Context, ref string) (payment.Payment, error) {
	var row paymentRow
	err := s.db.GetContext(ctx, &row, `
		SELECT id, order_id, customer_id, method, status, amount_cents, currency, phone, provider_ref, failure_reason, created_at, updated_at, completed_at
		FROM shop_payments WHERE provider_ref = $1
	`, ref)
	if err != nil {
		return payment.Payment{}, translate(err)
	}
	return row.domain(), nil
}

func (s *Store) ListPayments(ctx context.Context, orderID string) ([]payment.Payment, error) {
	var rows []paymentRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, order_id, customer_id, method, status, amount_cents, currency, phone, provider_ref, failure_reason, created_at, updated_at, completed_at
		FROM shop_payments
		WHERE $1 = '' OR order_id = $1
		ORDER BY created_at
	`, orderID)
	if err != nil {
		return nil, translate(err)
	}
	result := make([]payment.Payment, 0, len(rows))
	for _, row := range rows {
		result = append(result, row.domain())
	}
	return result, nil
}

func (s *Store) ListProcessingPayments(ctx context.Context) ([]payment.Payment, error) {
	var rows []paymentRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, order_id, customer_id, method, status, amount_cents, currency, phone, provider_ref, failure_reason, created_at, updated_at, completed_at
		FROM shop_payments WHERE status = 'processing' ORDER BY created_at
	`)
	if err != nil {
		return nil, translate(err)
	}
	result := make([]payment.Payment, 0, len(rows))
	for _, row := range rows {
		result = append(result, row.domain())
	}
	return result, nil
}

// --- ReviewStore ------------------------------------------------------------

func (s *Store) CreateReview(ctx context.Context, r review.Review) (review.Review, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	r.CreatedAt = now
	r.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO shop_reviews (id, product_id, customer_id, rating, title, comment, approved, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, r.ID, r.ProductID, r.CustomerID, r.Rating, r.Title, r.Comment, r.Approved, r.CreatedAt, r.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == pqUniqueViolation {
			return review.Review{}, review.ErrDuplicate
		}
		return review.Review{}, translate(err)
	}
	return r, nil
}

func (s *Store) UpdateReview(ctx context.Context, r review.Review) (review.Review, error) {
	existing, err := s.GetReview(ctx, r.ID)
	if err != nil {
		return review.Review{}, err
	}
	r.ProductID = existing.ProductID
	r.CustomerID = existing.CustomerID
	r.CreatedAt = existing.CreatedAt
	r.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE shop_reviews
		SET rating = $2, title = $3, comment = $4, approved = $5, updated_at = $6
		WHERE id = $1
	`, r.ID, r.Rating, r.Title, r.Comment, r.Approved, r.UpdatedAt)
	if err != nil {
		return review.Review{}, translate(err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return review.Review{}, storage.ErrNotFound
	}
	return r, nil
}

func (s *Store) GetReview(ctx context.Context, id string) (review.Review, error) {
	var row reviewRow
	err := s.db.GetContext(ctx, &row, `
		SELECT id, product_id, customer_id, rating, title, comment, approved, created_at, updated_at
		FROM shop_reviews WHERE id = $1
	`, id)
	if err != nil {
		return review.Review{}, translate(err)
	}
	return row.domain(), nil
}

func (s *Store) ListReviews(ctx context.Context, productID string, approvedOnly bool) ([]review.Review, error) {
	var rows []reviewRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, product_id, customer_id, rating, title, comment, approved, created_at, updated_at
		FROM shop_reviews
		WHERE product_id = $1 AND (NOT $2 OR approved)
		ORDER BY created_at DESC
	`, productID, approvedOnly)
	if err != nil {
		return nil, translate(err)
	}
	result := make([]review.Review, 0, len(rows))
	for _, row := range rows {
		result = append(result, row.domain())
	}
	return result, nil
}

func (s *Store) DeleteReview(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM shop_reviews WHERE id = $1`, id)
	if err != nil {
		return translate(err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) AverageRating(ctx context.Context, productID string) (float64, int64, error) {
	var row struct {
		Avg   sql.NullFloat64 `db:"avg"`
		Count int64           `db:"count"`
	}
	err := s.db.GetContext(ctx, &row, `
		SELECT AVG(rating) AS avg, COUNT(*) AS count
		FROM shop_reviews WHERE product_id = $1 AND approved
	`, productID)
	if err != nil {
		return 0, 0, translate(err)
	}
	return row.Avg.Float64, row.Count, nil
}

// --- WishlistStore ----------------------------------------------------------

func (s *Store) AddWishlistItem(ctx context.Context, item wishlist.Item) (wishlist.Item, error) {
	item.AddedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO shop_wishlist_items (customer_id, product_id, added_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (customer_id, product_id) DO NOTHING
	`, item.CustomerID, item.ProductID, item.AddedAt)
	if err != nil {
		return wishlist.Item{}, translate(err)
	}
	return item, nil
}

func (s *Store) RemoveWishlistItem(ctx context.Context, customerID, productID string) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM shop_wishlist_items WHERE customer_id = $1 AND product_id = $2
	`, customerID, productID)
	if err != nil {
		return translate(err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) ListWishlist(ctx context.Context, customerID string) ([]wishlist.Item, error) {
	var rows []wishlistRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT customer_id, product_id, added_at
		FROM shop_wishlist_items WHERE customer_id = $1 ORDER BY added_at
	`, customerID)
	if err != nil {
		return nil, translate(err)
	}
	result := make([]wishlist.Item, 0, len(rows))
	for _, row := range rows {
		result = append(result, row.domain())
	}
	return result, nil
}

// --- SupportStore -----------------------------------------------------------

func (s *Store) CreateRequest(ctx context.Context, req support.Request) (support.Request, error) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	req.CreatedAt = now
	req.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO shop_service_requests (id, customer_id, order_id, subject, body, status, admin_reply, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, req.ID, req.CustomerID, req.OrderID, req.Subject, req.Body, string(req.Status), req.AdminReply, req.CreatedAt, req.UpdatedAt)
	if err != nil {
		return support.Request{}, translate(err)
	}
	return req, nil
}

func (s *Store) UpdateRequest(ctx context.Context, req support.Request) (support.Request, error) {
	existing, err := s.GetRequest(ctx, req.ID)
	if err != nil {
		return support.Request{}, err
	}
	req.CustomerID = existing.CustomerID
	req.CreatedAt = existing.CreatedAt
	req.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE shop_service_requests
		SET order_id = $2, subject = $3, body = $4, status = $5, admin_reply = $6, updated_at = $7
		WHERE id = $1
	`, req.ID, req.OrderID, req.Subject, req.Body, string(req.Status), req.AdminReply, req.UpdatedAt)
	if err != nil {
		return support.Request{}, translate(err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return support.Request{}, storage.ErrNotFound
	}
	return req, nil
}

func (s *Store) GetRequest(ctx context.Context, id string) (support.Request, error) {
	var row requestRow
	err := s.db.GetContext(ctx, &row, `
		SELECT id, customer_id, order_id, subject, body, status, admin_reply, created_at, updated_at
		FROM shop_service_requests WHERE id = $1
	`, id)
	if err != nil {
		return support.Request{}, translate(err)
	}
	return row.domain(), nil
}

func (s *Store) ListRequests(ctx context.Context, customerID string) ([]support.Request, error) {
	var rows []requestRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, customer_id, order_id, subject, body, status, admin_reply, created_at, updated_at
		FROM shop_service_requests
		WHERE $1 = '' OR customer_id = $1
		ORDER BY created_at DESC
	`, customerID)
	if err != nil {
		return nil, translate(err)
	}
	result := make([]support.Request, 0, len(rows))
	for _, row := range rows {
		result = append(result, row.domain())
	}
	return result, nil
}

// --- CustomerStore ----------------------------------------------------------

func (s *Store) UpsertCustomer(ctx context.Context, c customer.Customer) (customer.Customer, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	var row customerRow
	err := s.db.GetContext(ctx, &row, `
		INSERT INTO shop_customers (id, email, name, phone, admin, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		ON CONFLICT (id) DO UPDATE
		SET email = EXCLUDED.email, name = EXCLUDED.name, phone = EXCLUDED.phone, admin = EXCLUDED.admin, updated_at = NOW()
		RETURNING id, email, name, phone, admin, created_at, updated_at
	`, c.ID, c.Email, c.Name, c.Phone, c.Admin)
	if err != nil {
		return customer.Customer{}, translate(err)
	}
	return row.domain(), nil
}

func (s *Store) GetCustomer(ctx context.Context, id string) (customer.Customer, error) {
	var row customerRow
	err := s.db.GetContext(ctx, &row, `
		SELECT id, email, name, phone, admin, created_at, updated_at
		FROM shop_customers WHERE id = $1
	`, id)
	if err != nil {
		return customer.Customer{}, translate(err)
	}
	return row.domain(), nil
}

func (s *Store) ListCustomers(ctx context.Context) ([]customer.Customer, error) {
	var rows []customerRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, email, name, phone, admin, created_at, updated_at
		FROM shop_customers ORDER BY created_at
	`)
	if err != nil {
		return nil, translate(err)
	}
	result := make([]customer.Customer, 0, len(rows))
	for _, row := range rows {
		result = append(result, row.domain())
	}
	return result, nil
}

// --- StatsStore -------------------------------------------------------------

func (s *Store) Stats(ctx context.Context, lowStockThreshold int64) (storage.Stats, error) {
	stats := storage.Stats{OrdersByStatus: make(map[string]int64)}

	if err := s.db.GetContext(ctx, &stats.Products, `SELECT COUNT(*) FROM shop_products`); err != nil {
		return storage.Stats{}, translate(err)
	}
	if err := s.db.GetContext(ctx, &stats.LowStockProducts, `
		SELECT COUNT(*) FROM shop_products WHERE active AND stock <= $1
	`, lowStockThreshold); err != nil {
		return storage.Stats{}, translate(err)
	}
	if err := s.db.GetContext(ctx, &stats.Customers, `SELECT COUNT(*) FROM shop_customers`); err != nil {
		return storage.Stats{}, translate(err)
	}

	var statusRows []struct {
		Status string `db:"status"`
		Count  int64  `db:"count"`
	}
	if err := s.db.SelectContext(ctx, &statusRows, `
		SELECT status, COUNT(*) AS count FROM shop_orders GROUP BY status
	`); err != nil {
		return storage.Stats{}, translate(err)
	}
	for _, row := range statusRows {
		stats.OrdersByStatus[row.Status] = row.Count
	}

	if err := s.db.GetContext(ctx, &stats.RevenueCents, `
		SELECT COALESCE(SUM(amount_cents), 0) FROM shop_payments WHERE status = 'completed'
	`); err != nil {
		return storage.Stats{}, translate(err)
	}
	if err := s.db.GetContext(ctx, &stats.OpenRequests, `
		SELECT COUNT(*) FROM shop_service_requests WHERE status IN ('open', 'in_progress')
	`); err != nil {
		return storage.Stats{}, translate(err)
	}
	if err := s.db.GetContext(ctx, &stats.CouponRedemptions, `
		SELECT COALESCE(SUM(used_count), 0) FROM shop_coupons
	`); err != nil {
		return storage.Stats{}, translate(err)
	}
	if err := s.db.GetContext(ctx, &stats.PointsOutstanding, `
		SELECT COALESCE(SUM(points), 0) FROM shop_loyalty_accounts
	`); err != nil {
		return storage.Stats{}, translate(err)
	}
	return stats, nil
}
