// Package customers manages customer profiles.
package customers

import (
	"context"
	"fmt"
	"strings"

	"github.com/sokoni-labs/commerce_layer/internal/app/domain/customer"
	"github.com/sokoni-labs/commerce_layer/internal/app/storage"
	"github.com/sokoni-labs/commerce_layer/pkg/logger"
)

// Service manages customer profiles.
type Service struct {
	store storage.CustomerStore
	log   *logger.Logger
}

// New constructs a customer service.
func New(store storage.CustomerStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("customers")
	}
	return &Service{store: store, log: log}
}

// Upsert creates or updates a customer profile.
func (s *Service) Upsert(ctx context.Context, c customer.Customer) (customer.Customer, error) {
	c.ID = strings.TrimSpace(c.ID)
	c.Email = strings.ToLower(strings.TrimSpace(c.Email))
	c.Name = strings.TrimSpace(c.Name)
	c.Phone = strings.TrimSpace(c.Phone)

	if c.ID == "" {
		return customer.Customer{}, fmt.Errorf("customer id is required")
	}
	if c.Email == "" {
		return customer.Customer{}, fmt.Errorf("email is required")
	}
	if !strings.Contains(c.Email, "@") {
		return customer.Customer{}, fmt.Errorf("invalid email %q", c.Email)
	}

	c, err := s.store.UpsertCustomer(ctx, c)
	if err != nil {
		return customer.Customer{}, err
	}
	s.log.WithField("customer_id", c.ID).Debug("customer profile saved")
	return c, nil
}

// Get returns a customer by ID.
func (s *Service) Get(ctx context.Context, id string) (customer.Customer, error) {
	return s.store.GetCustomer(ctx, id)
}

// List returns all customers.
func (s *Service) List(ctx context.Context) ([]customer.Customer, error) {
	return s.store.ListCustomers(ctx)
}
