// Package support manages customer service requests.
package support

import (
	"context"
	"fmt"
	"strings"

	"github.com/sokoni-labs/commerce_layer/internal/app/domain/support"
	"github.com/sokoni-labs/commerce_layer/internal/app/storage"
	"github.com/sokoni-labs/commerce_layer/pkg/logger"
)

// Service manages service requests from submission through resolution.
type Service struct {
	store  storage.SupportStore
	orders storage.OrderStore
	log    *logger.Logger
}

// New constructs a support service.
func New(store storage.SupportStore, orders storage.OrderStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("support")
	}
	return &Service{store: store, orders: orders, log: log}
}

// Create opens a service request. The order reference is optional but must
// belong to the customer when present.
func (s *Service) Create(ctx context.Context, customerID, orderID, subject, body string) (support.Request, error) {
	customerID = strings.TrimSpace(customerID)
	orderID = strings.TrimSpace(orderID)
	subject = strings.TrimSpace(subject)

	if customerID == "" {
		return support.Request{}, fmt.Errorf("customer_id is required")
	}
	if subject == "" {
		return support.Request{}, fmt.Errorf("subject is required")
	}
	if orderID != "" && s.orders != nil {
		ord, err := s.orders.GetOrder(ctx, orderID)
		if err != nil {
			return support.Request{}, fmt.Errorf("order validation failed: %w", err)
		}
		if ord.CustomerID != customerID {
			return support.Request{}, storage.ErrNotFound
		}
	}

	req := support.Request{
		CustomerID: customerID,
		OrderID:    orderID,
		Subject:    subject,
		Body:       strings.TrimSpace(body),
		Status:     support.StatusOpen,
	}
	req, err := s.store.CreateRequest(ctx, req)
	if err != nil {
		return support.Request{}, err
	}
	s.log.WithField("request_id", req.ID).
		WithField("customer_id", customerID).
		Info("service request opened")
	return req, nil
}

// Get returns a service request by ID.
func (s *Service) Get(ctx context.Context, id string) (support.Request, error) {
	return s.store.GetRequest(ctx, id)
}

// GetForCustomer returns the request only when it belongs to the customer.
func (s *Service) GetForCustomer(ctx context.Context, id, customerID string) (support.Request, error) {
	req, err := s.store.GetRequest(ctx, id)
	if err != nil {
		return support.Request{}, err
	}
	if req.CustomerID != customerID {
		return support.Request{}, storage.ErrNotFound
	}
	return req, nil
}

// List returns requests, optionally filtered by customer. An empty
// customerID lists every request (back office only).
func (s *Service) List(ctx context.Context, customerID string) ([]support.Request, error) {
	return s.store.ListRequests(ctx, customerID)
}

// Reply records an admin reply and optionally moves the request status.
func (s *Service) Reply(ctx context.Context, id, reply string, next support.Status) (support.Request, error) {
	req, err := s.store.GetRequest(ctx, id)
	if err != nil {
		return support.Request{}, err
	}

	if reply = strings.TrimSpace(reply); reply != "" {
		req.AdminReply = reply
		if req.Status == support.StatusOpen && next == "" {
			next = support.StatusInProgress
		}
	}
	if next != "" && next != req.Status {
		if !req.Status.CanTransition(next) {
			return support.Request{}, fmt.Errorf("%w: %s -> %s", support.ErrInvalidTransition, req.Status, next)
		}
		req.Status = next
	}

	req, err = s.store.UpdateRequest(ctx, req)
	if err != nil {
		return support.Request{}, err
	}
	s.log.WithField("request_id", req.ID).
		WithField("status", string(req.Status)).
		Info("service request updated")
	return req, nil
}

// Transition moves a request to a new status without a reply.
func (s *Service) Transition(ctx context.Context, id string, next support.Status) (support.Request, error) {
	return s.Reply(ctx, id, "", next)
}
