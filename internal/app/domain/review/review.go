// Package review defines customer product reviews.
package review

import (
	"errors"
	"time"
)

var (
	// ErrDuplicate is returned when a customer reviews the same product twice.
	ErrDuplicate = errors.New("customer has already reviewed this product")
	// ErrInvalidRating is returned for ratings outside 1..5.
	ErrInvalidRating = errors.New("rating must be between 1 and 5")
)

// Review is a customer's rating of a product. Only approved reviews are
// visible on the storefront.
type Review struct {
	ID         string    `json:"id"`
	ProductID  string    `json:"product_id"`
	CustomerID string    `json:"customer_id"`
	Rating     int       `json:"rating"`
	Title      string    `json:"title"`
	Comment    string    `json:"comment"`
	Approved   bool      `json:"approved"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ValidRating reports whether r is within the 1..5 scale.
func ValidRating(r int) bool {
	return r >= 1 && r <= 5
}
