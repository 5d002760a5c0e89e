// Package wishlist defines saved-for-later product references.
package wishlist

import "time"

// Item links a customer to a product they saved. Adding the same product
// twice is a no-op.
type Item struct {
	CustomerID string    `json:"customer_id"`
	ProductID  string    `json:"product_id"`
	AddedAt    time.Time `json:"added_at"`
}
