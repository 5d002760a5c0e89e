// Package customer defines the customer record mirrored from the identity
// provider. Authentication itself is delegated upstream; this record only
// scopes orders, loyalty, reviews and wishlists.
package customer

import "time"

// Customer is a storefront user.
type Customer struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone,omitempty"`
	Admin     bool      `json:"admin"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
