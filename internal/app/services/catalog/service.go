// Package catalog manages categories and products for the storefront.
package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/sokoni-labs/commerce_layer/internal/app/domain/catalog"
	"github.com/sokoni-labs/commerce_layer/internal/app/storage"
	"github.com/sokoni-labs/commerce_layer/pkg/logger"
)

// ProductCache is an optional read-through cache consulted on product
// fetches. Mutations invalidate; staleness is bounded by the cache TTL.
type ProductCache interface {
	GetProduct(ctx context.Context, id string) (catalog.Product, bool)
	SetProduct(ctx context.Context, p catalog.Product)
	InvalidateProduct(ctx context.Context, ids ...string)
}

// Service manages the product catalog.
type Service struct {
	store storage.CatalogStore
	cache ProductCache
	log   *logger.Logger
}

// New constructs a catalog service. Cache may be nil.
func New(store storage.CatalogStore, cache ProductCache, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("catalog")
	}
	return &Service{store: store, cache: cache, log: log}
}

// CreateCategory registers a new category.
func (s *Service) CreateCategory(ctx context.Context, name, slug, description string) (catalog.Category, error) {
	name = strings.TrimSpace(name)
	slug = strings.ToLower(strings.TrimSpace(slug))

	if name == "" {
		return catalog.Category{}, fmt.Errorf("name is required")
	}
	if slug == "" {
		slug = slugify(name)
	}

	cat := catalog.Category{
		Name:        name,
		Slug:        slug,
		Description: strings.TrimSpace(description),
		Active:      true,
	}
	cat, err := s.store.CreateCategory(ctx, cat)
	if err != nil {
		return catalog.Category{}, err
	}
	s.log.WithField("category_id", cat.ID).
		WithField("slug", cat.Slug).
		Info("category created")
	return cat, nil
}

// UpdateCategory updates mutable fields on a category.
func (s *Service) UpdateCategory(ctx context.Context, id string, name, description *string, active *bool) (catalog.Category, error) {
	cat, err := s.store.GetCategory(ctx, id)
	if err != nil {
		return catalog.Category{}, err
	}

	if name != nil {
		if trimmed := strings.TrimSpace(*name); trimmed != "" {
			cat.Name = trimmed
		} else {
			return catalog.Category{}, fmt.Errorf("name cannot be empty")
		}
	}
	if description != nil {
		cat.Description = strings.TrimSpace(*description)
	}
	if active != nil {
		cat.Active = *active
	}

	cat, err = s.store.UpdateCategory(ctx, cat)
	if err != nil {
		return catalog.Category{}, err
	}
	s.log.WithField("category_id", cat.ID).Info("category updated")
	return cat, nil
}

// GetCategory returns a category by ID.
func (s *Service) GetCategory(ctx context.Context, id string) (catalog.Category, error) {
	return s.store.GetCategory(ctx, id)
}

// ListCategories returns all categories.
func (s *Service) ListCategories(ctx context.Context) ([]catalog.Category, error) {
	return s.store.ListCategories(ctx)
}

// DeleteCategory removes an empty category. Categories that still hold
// products are rejected with storage.ErrConflict.
func (s *Service) DeleteCategory(ctx context.Context, id string) error {
	if err := s.store.DeleteCategory(ctx, id); err != nil {
		return err
	}
	s.log.WithField("category_id", id).Info("category deleted")
	return nil
}

// ProductParams carries the fields for creating a product.
type ProductParams struct {
	CategoryID     string
	Name           string
	Description    string
	PriceCents     int64
	CompareAtCents int64
	Stock          int64
	Condition      string
	ImageURL       string
}

// CreateProduct registers a new product in an existing category.
func (s *Service) CreateProduct(ctx context.Context, params ProductParams) (catalog.Product, error) {
	params.CategoryID = strings.TrimSpace(params.CategoryID)
	params.Name = strings.TrimSpace(params.Name)

	if params.CategoryID == "" {
		return catalog.Product{}, fmt.Errorf("category_id is required")
	}
	if params.Name == "" {
		return catalog.Product{}, fmt.Errorf("name is required")
	}
	if params.PriceCents <= 0 {
		return catalog.Product{}, fmt.Errorf("price_cents must be positive")
	}
	if params.Stock < 0 {
		return catalog.Product{}, fmt.Errorf("stock cannot be negative")
	}

	cond := catalog.Condition(strings.ToLower(strings.TrimSpace(params.Condition)))
	if cond == "" {
		cond = catalog.ConditionNew
	}
	if !cond.Valid() {
		return catalog.Product{}, fmt.Errorf("invalid condition %q", params.Condition)
	}

	if _, err := s.store.GetCategory(ctx, params.CategoryID); err != nil {
		return catalog.Product{}, fmt.Errorf("category validation failed: %w", err)
	}

	product := catalog.Product{
		CategoryID:     params.CategoryID,
		Name:           params.Name,
		Description:    strings.TrimSpace(params.Description),
		PriceCents:     params.PriceCents,
		CompareAtCents: params.CompareAtCents,
		Stock:          params.Stock,
		Condition:      cond,
		Active:         true,
		ImageURL:       strings.TrimSpace(params.ImageURL),
	}
	product, err := s.store.CreateProduct(ctx, product)
	if err != nil {
		return catalog.Product{}, err
	}
	s.log.WithField("product_id", product.ID).
		WithField("category_id", product.CategoryID).
		Info("product created")
	return product, nil
}

// ProductUpdate carries the optional fields for updating a product. Nil
// pointers leave the field unchanged.
type ProductUpdate struct {
	CategoryID     *string
	Name           *string
	Description    *string
	PriceCents     *int64
	CompareAtCents *int64
	Condition      *string
	Active         *bool
	ImageURL       *string
}

// UpdateProduct updates mutable fields on a product.
func (s *Service) UpdateProduct(ctx context.Context, id string, update ProductUpdate) (catalog.Product, error) {
	product, err := s.store.GetProduct(ctx, id)
	if err != nil {
		return catalog.Product{}, err
	}

	if update.CategoryID != nil {
		trimmed := strings.TrimSpace(*update.CategoryID)
		if trimmed == "" {
			return catalog.Product{}, fmt.Errorf("category_id cannot be empty")
		}
		if _, err := s.store.GetCategory(ctx, trimmed); err != nil {
			return catalog.Product{}, fmt.Errorf("category validation failed: %w", err)
		}
		product.CategoryID = trimmed
	}
	if update.Name != nil {
		if trimmed := strings.TrimSpace(*update.Name); trimmed != "" {
			product.Name = trimmed
		} else {
			return catalog.Product{}, fmt.Errorf("name cannot be empty")
		}
	}
	if update.Description != nil {
		product.Description = strings.TrimSpace(*update.Description)
	}
	if update.PriceCents != nil {
		if *update.PriceCents <= 0 {
			return catalog.Product{}, fmt.Errorf("price_cents must be positive")
		}
		product.PriceCents = *update.PriceCents
	}
	if update.CompareAtCents != nil {
		product.CompareAtCents = *update.CompareAtCents
	}
	if update.Condition != nil {
		cond := catalog.Condition(strings.ToLower(strings.TrimSpace(*update.Condition)))
		if !cond.Valid() {
			return catalog.Product{}, fmt.Errorf("invalid condition %q", *update.Condition)
		}
		product.Condition = cond
	}
	if update.Active != nil {
		product.Active = *update.Active
	}
	if update.ImageURL != nil {
		product.ImageURL = strings.TrimSpace(*update.ImageURL)
	}

	product, err = s.store.UpdateProduct(ctx, product)
	if err != nil {
		return catalog.Product{}, err
	}
	if s.cache != nil {
		s.cache.InvalidateProduct(ctx, product.ID)
	}
	s.log.WithField("product_id", product.ID).Info("product updated")
	return product, nil
}

// GetProduct returns a product by ID, consulting the cache first.
func (s *Service) GetProduct(ctx context.Context, id string) (catalog.Product, error) {
	if s.cache != nil {
		if p, ok := s.cache.GetProduct(ctx, id); ok {
			return p, nil
		}
	}
	p, err := s.store.GetProduct(ctx, id)
	if err != nil {
		return catalog.Product{}, err
	}
	if s.cache != nil {
		s.cache.SetProduct(ctx, p)
	}
	return p, nil
}

// ListProducts returns products matching the filter.
func (s *Service) ListProducts(ctx context.Context, filter storage.ProductFilter) ([]catalog.Product, error) {
	return s.store.ListProducts(ctx, filter)
}

// DeleteProduct removes a product from the catalog.
func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	if err := s.store.DeleteProduct(ctx, id); err != nil {
		return err
	}
	if s.cache != nil {
		s.cache.InvalidateProduct(ctx, id)
	}
	s.log.WithField("product_id", id).Info("product deleted")
	return nil
}

// AdjustStock applies a manual stock correction. Negative deltas that would
// drive stock below zero fail with catalog.ErrInsufficientStock.
func (s *Service) AdjustStock(ctx context.Context, id string, delta int64) (catalog.Product, error) {
	if delta == 0 {
		return catalog.Product{}, fmt.Errorf("delta cannot be zero")
	}
	product, err := s.store.AdjustStock(ctx, id, delta)
	if err != nil {
		return catalog.Product{}, err
	}
	if s.cache != nil {
		s.cache.InvalidateProduct(ctx, id)
	}
	s.log.WithField("product_id", id).
		WithField("delta", delta).
		WithField("stock", product.Stock).
		Info("stock adjusted")
	return product, nil
}

func slugify(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = strings.Join(strings.Fields(slug), "-")
	return slug
}
