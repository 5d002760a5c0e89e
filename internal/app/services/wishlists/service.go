// Package wishlists manages per-customer product wishlists.
package wishlists

import (
	"context"
	"fmt"
	"strings"

	"github.com/sokoni-labs/commerce_layer/internal/app/domain/catalog"
	"github.com/sokoni-labs/commerce_layer/internal/app/domain/wishlist"
	"github.com/sokoni-labs/commerce_layer/internal/app/storage"
	"github.com/sokoni-labs/commerce_layer/pkg/logger"
)

// Service manages wishlists.
type Service struct {
	store   storage.WishlistStore
	catalog storage.CatalogStore
	log     *logger.Logger
}

// New constructs a wishlist service.
func New(store storage.WishlistStore, catalog storage.CatalogStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("wishlists")
	}
	return &Service{store: store, catalog: catalog, log: log}
}

// Add puts a product on the customer's wishlist. Adding the same product
// twice is a no-op.
func (s *Service) Add(ctx context.Context, customerID, productID string) (wishlist.Item, error) {
	customerID = strings.TrimSpace(customerID)
	productID = strings.TrimSpace(productID)
	if customerID == "" {
		return wishlist.Item{}, fmt.Errorf("customer_id is required")
	}
	if productID == "" {
		return wishlist.Item{}, fmt.Errorf("product_id is required")
	}

	if s.catalog != nil {
		if _, err := s.catalog.GetProduct(ctx, productID); err != nil {
			return wishlist.Item{}, fmt.Errorf("product validation failed: %w", err)
		}
	}

	item, err := s.store.AddWishlistItem(ctx, wishlist.Item{CustomerID: customerID, ProductID: productID})
	if err != nil {
		return wishlist.Item{}, err
	}
	s.log.WithField("customer_id", customerID).
		WithField("product_id", productID).
		Debug("wishlist item added")
	return item, nil
}

// Remove takes a product off the customer's wishlist.
func (s *Service) Remove(ctx context.Context, customerID, productID string) error {
	return s.store.RemoveWishlistItem(ctx, strings.TrimSpace(customerID), strings.TrimSpace(productID))
}

// Entry pairs a wishlist item with the current product record.
type Entry struct {
	wishlist.Item
	Product catalog.Product `json:"product"`
}

// List returns the customer's wishlist in insertion order, resolving the
// current product for each entry. Entries whose product has been hidden are
// kept; the snapshot carries the inactive flag.
func (s *Service) List(ctx context.Context, customerID string) ([]Entry, error) {
	items, err := s.store.ListWishlist(ctx, strings.TrimSpace(customerID))
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(items))
	for _, item := range items {
		entry := Entry{Item: item}
		if s.catalog != nil {
			if p, err := s.catalog.GetProduct(ctx, item.ProductID); err == nil {
				entry.Product = p
			}
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
