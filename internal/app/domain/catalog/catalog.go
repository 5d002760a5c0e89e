// Package catalog defines the product and category records sold through the
// storefront. Prices are integer cents; currency math never touches floats.
package catalog

import (
	"errors"
	"time"
)

// Condition describes the physical state of a product.
type Condition string

const (
	ConditionNew         Condition = "new"
	ConditionRefurbished Condition = "refurbished"
)

// Valid reports whether the condition is one of the known values.
func (c Condition) Valid() bool {
	return c == ConditionNew || c == ConditionRefurbished
}

// ErrInsufficientStock is returned when a stock decrement would take the
// on-hand count below zero.
var ErrInsufficientStock = errors.New("insufficient stock")

// Category groups products for browsing.
type Category struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Product is a catalog item. CompareAtCents is the optional strike-through
// price; zero means unset. Soft-hidden via Active rather than deleted so
// order item snapshots keep a referent.
type Product struct {
	ID             string    `json:"id"`
	CategoryID     string    `json:"category_id"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	PriceCents     int64     `json:"price_cents"`
	CompareAtCents int64     `json:"compare_at_cents,omitempty"`
	Stock          int64     `json:"stock"`
	Condition      Condition `json:"condition"`
	Active         bool      `json:"active"`
	ImageURL       string    `json:"image_url,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
