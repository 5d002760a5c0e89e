// Package reviews manages product reviews and their moderation.
package reviews

import (
	"context"
	"fmt"
	"strings"

	"github.com/sokoni-labs/commerce_layer/internal/app/domain/review"
	"github.com/sokoni-labs/commerce_layer/internal/app/storage"
	"github.com/sokoni-labs/commerce_layer/pkg/logger"
)

// Service manages product reviews. New reviews start unapproved and only
// appear on the storefront after moderation.
type Service struct {
	store   storage.ReviewStore
	catalog storage.CatalogStore
	log     *logger.Logger
}

// New constructs a review service.
func New(store storage.ReviewStore, catalog storage.CatalogStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("reviews")
	}
	return &Service{store: store, catalog: catalog, log: log}
}

// Create submits a review. One review per customer per product.
func (s *Service) Create(ctx context.Context, productID, customerID string, rating int, title, comment string) (review.Review, error) {
	productID = strings.TrimSpace(productID)
	customerID = strings.TrimSpace(customerID)

	if productID == "" {
		return review.Review{}, fmt.Errorf("product_id is required")
	}
	if customerID == "" {
		return review.Review{}, fmt.Errorf("customer_id is required")
	}
	if !review.ValidRating(rating) {
		return review.Review{}, review.ErrInvalidRating
	}

	if s.catalog != nil {
		if _, err := s.catalog.GetProduct(ctx, productID); err != nil {
			return review.Review{}, fmt.Errorf("product validation failed: %w", err)
		}
	}

	r := review.Review{
		ProductID:  productID,
		CustomerID: customerID,
		Rating:     rating,
		Title:      strings.TrimSpace(title),
		Comment:    strings.TrimSpace(comment),
		Approved:   false,
	}
	r, err := s.store.CreateReview(ctx, r)
	if err != nil {
		return review.Review{}, err
	}
	s.log.WithField("review_id", r.ID).
		WithField("product_id", productID).
		Info("review submitted")
	return r, nil
}

// Approve publishes a review to the storefront.
func (s *Service) Approve(ctx context.Context, id string) (review.Review, error) {
	return s.setApproved(ctx, id, true)
}

// Reject hides a review from the storefront.
func (s *Service) Reject(ctx context.Context, id string) (review.Review, error) {
	return s.setApproved(ctx, id, false)
}

func (s *Service) setApproved(ctx context.Context, id string, approved bool) (review.Review, error) {
	r, err := s.store.GetReview(ctx, id)
	if err != nil {
		return review.Review{}, err
	}
	if r.Approved == approved {
		return r, nil
	}
	r.Approved = approved
	r, err = s.store.UpdateReview(ctx, r)
	if err != nil {
		return review.Review{}, err
	}
	s.log.WithField("review_id", r.ID).
		WithField("approved", approved).
		Info("review moderated")
	return r, nil
}

// Get returns a review by ID.
func (s *Service) Get(ctx context.Context, id string) (review.Review, error) {
	return s.store.GetReview(ctx, id)
}

// List returns reviews for a product. approvedOnly hides unmoderated
// reviews, which is what the storefront uses.
func (s *Service) List(ctx context.Context, productID string, approvedOnly bool) ([]review.Review, error) {
	return s.store.ListReviews(ctx, productID, approvedOnly)
}

// Delete removes a review.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteReview(ctx, id); err != nil {
		return err
	}
	s.log.WithField("review_id", id).Info("review deleted")
	return nil
}

// Summary returns the approved-review average rating and count for a product.
func (s *Service) Summary(ctx context.Context, productID string) (float64, int64, error) {
	return s.store.AverageRating(ctx, productID)
}
