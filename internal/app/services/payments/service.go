// Package payments manages payment records, the gateway driver and webhook
// settlement.
package payments

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sokoni-labs/commerce_layer/internal/app/cache"
	"github.com/sokoni-labs/commerce_layer/internal/app/domain/order"
	"github.com/sokoni-labs/commerce_layer/internal/app/domain/payment"
	"github.com/sokoni-labs/commerce_layer/internal/app/storage"
	"github.com/sokoni-labs/commerce_layer/pkg/logger"
)

var (
	// ErrProvider wraps gateway failures so the HTTP layer can answer 502.
	ErrProvider = errors.New("payment provider failure")
	// ErrBadSignature is returned for webhooks that fail HMAC verification.
	ErrBadSignature = errors.New("invalid webhook signature")
)

// webhookDedupTTL bounds how long an event ID suppresses replays.
const webhookDedupTTL = 24 * time.Hour

// OrderConfirmer transitions an order after its payment settles.
type OrderConfirmer interface {
	Transition(ctx context.Context, orderID string, next order.Status) (order.Order, error)
}

// Service manages the payment lifecycle.
type Service struct {
	payments      storage.PaymentStore
	orders        storage.OrderStore
	provider      Provider
	confirmer     OrderConfirmer
	idem          cache.IdempotencyStore
	webhookSecret []byte
	log           *logger.Logger
}

// New constructs a payment service.
func New(payments storage.PaymentStore, orders storage.OrderStore, provider Provider, confirmer OrderConfirmer, idem cache.IdempotencyStore, webhookSecret string, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("payments")
	}
	if idem == nil {
		idem = cache.NewMemoryStore()
	}
	if provider == nil {
		provider = NewSandboxProvider(0)
	}
	return &Service{
		payments:      payments,
		orders:        orders,
		provider:      provider,
		confirmer:     confirmer,
		idem:          idem,
		webhookSecret: []byte(webhookSecret),
		log:           log,
	}
}

// InitiateParams carries a payment initiation request.
type InitiateParams struct {
	OrderID    string
	CustomerID string
	Method     string
	Phone      string
}

// Initiate charges an order. Mobile money and card payments are handed to the
// gateway and move to processing; cash payments stay pending until collected.
func (s *Service) Initiate(ctx context.Context, params InitiateParams) (payment.Payment, error) {
	params.OrderID = strings.TrimSpace(params.OrderID)
	params.CustomerID = strings.TrimSpace(params.CustomerID)
	params.Phone = strings.TrimSpace(params.Phone)

	if params.OrderID == "" {
		return payment.Payment{}, fmt.Errorf("order_id is required")
	}
	method := payment.Method(strings.ToLower(strings.TrimSpace(params.Method)))
	if !method.Valid() {
		return payment.Payment{}, fmt.Errorf("invalid payment method %q", params.Method)
	}
	if method.MobileMoney() && params.Phone == "" {
		return payment.Payment{}, fmt.Errorf("phone is required for %s payments", method)
	}

	ord, err := s.orders.GetOrder(ctx, params.OrderID)
	if err != nil {
		return payment.Payment{}, err
	}
	if params.CustomerID != "" && ord.CustomerID != params.CustomerID {
		return payment.Payment{}, storage.ErrNotFound
	}
	if ord.Status != order.StatusPending {
		return payment.Payment{}, fmt.Errorf("order %s is %s, not payable: %w", ord.ID, ord.Status, storage.ErrConflict)
	}

	existing, err := s.payments.ListPayments(ctx, ord.ID)
	if err != nil {
		return payment.Payment{}, err
	}
	for _, p := range existing {
		if p.Status == payment.StatusCompleted || p.Status == payment.StatusProcessing || p.Status == payment.StatusPending {
			return payment.Payment{}, fmt.Errorf("order %s already has an open payment: %w", ord.ID, storage.ErrConflict)
		}
	}

	pay := payment.Payment{
		OrderID:     ord.ID,
		CustomerID:  ord.CustomerID,
		Method:      method,
		Status:      payment.StatusPending,
		AmountCents: ord.TotalCents,
		Currency:    ord.Currency,
		Phone:       params.Phone,
	}
	pay, err = s.payments.CreatePayment(ctx, pay)
	if err != nil {
		return payment.Payment{}, err
	}

	if method == payment.MethodCash {
		s.log.WithField("payment_id", pay.ID).
			WithField("order_id", ord.ID).
			Info("cash payment recorded, awaiting collection")
		return pay, nil
	}

	ref, err := s.provider.Initiate(ctx, pay)
	if err != nil {
		pay.Status = payment.StatusFailed
		pay.FailureReason = err.Error()
		if _, updateErr := s.payments.UpdatePayment(ctx, pay); updateErr != nil {
			s.log.WithError(updateErr).WithField("payment_id", pay.ID).Warn("mark payment failed")
		}
		return payment.Payment{}, fmt.Errorf("%w: %v", ErrProvider, err)
	}

	pay.Status = payment.StatusProcessing
	pay.ProviderRef = ref
	pay, err = s.payments.UpdatePayment(ctx, pay)
	if err != nil {
		return payment.Payment{}, err
	}

	s.log.WithField("payment_id", pay.ID).
		WithField("order_id", ord.ID).
		WithField("provider_ref", ref).
		Info("payment initiated")
	return pay, nil
}

// Get returns a payment by ID.
func (s *Service) Get(ctx context.Context, id string) (payment.Payment, error) {
	return s.payments.GetPayment(ctx, id)
}

// List returns payments, optionally filtered by order.
func (s *Service) List(ctx context.Context, orderID string) ([]payment.Payment, error) {
	return s.payments.ListPayments(ctx, orderID)
}

// Settle applies a final provider verdict to a payment. Settling an already
// terminal payment is a no-op, so webhook and poller races stay harmless.
func (s *Service) Settle(ctx context.Context, paymentID string, success bool, reason string) (payment.Payment, error) {
	pay, err := s.payments.GetPayment(ctx, paymentID)
	if err != nil {
		return payment.Payment{}, err
	}
	if pay.Status == payment.StatusCompleted || pay.Status.Terminal() {
		return pay, nil
	}

	// Cash payments settle straight from pending; walk through processing so
	// the transition table stays authoritative.
	if pay.Status == payment.StatusPending && success {
		if !pay.Status.CanTransition(payment.StatusProcessing) {
			return payment.Payment{}, fmt.Errorf("%w: %s -> %s", payment.ErrInvalidTransition, pay.Status, payment.StatusProcessing)
		}
		pay.Status = payment.StatusProcessing
	}

	next := payment.StatusFailed
	if success {
		next = payment.StatusCompleted
	}
	if !pay.Status.CanTransition(next) {
		return payment.Payment{}, fmt.Errorf("%w: %s -> %s", payment.ErrInvalidTransition, pay.Status, next)
	}

	pay.Status = next
	pay.FailureReason = reason
	if success {
		pay.FailureReason = ""
		pay.CompletedAt = time.Now().UTC()
	}
	pay, err = s.payments.UpdatePayment(ctx, pay)
	if err != nil {
		return payment.Payment{}, err
	}

	s.log.WithField("payment_id", pay.ID).
		WithField("status", string(pay.Status)).
		Info("payment settled")

	if success && s.confirmer != nil {
		if _, err := s.confirmer.Transition(ctx, pay.OrderID, order.StatusConfirmed); err != nil {
			s.log.WithError(err).
				WithField("order_id", pay.OrderID).
				Warn("order confirmation after payment failed")
		}
	}
	return pay, nil
}

// Cancel voids a payment that has not settled.
func (s *Service) Cancel(ctx context.Context, paymentID string) (payment.Payment, error) {
	pay, err := s.payments.GetPayment(ctx, paymentID)
	if err != nil {
		return payment.Payment{}, err
	}
	if !pay.Status.CanTransition(payment.StatusCancelled) {
		return payment.Payment{}, fmt.Errorf("%w: %s -> %s", payment.ErrInvalidTransition, pay.Status, payment.StatusCancelled)
	}
	pay.Status = payment.StatusCancelled
	pay, err = s.payments.UpdatePayment(ctx, pay)
	if err != nil {
		return payment.Payment{}, err
	}
	s.log.WithField("payment_id", pay.ID).Info("payment cancelled")
	return pay, nil
}

// Refund moves a completed payment to refunded.
func (s *Service) Refund(ctx context.Context, paymentID string) (payment.Payment, error) {
	pay, err := s.payments.GetPayment(ctx, paymentID)
	if err != nil {
		return payment.Payment{}, err
	}
	if !pay.Status.CanTransition(payment.StatusRefunded) {
		return payment.Payment{}, fmt.Errorf("%w: %s -> %s", payment.ErrInvalidTransition, pay.Status, payment.StatusRefunded)
	}
	pay.Status = payment.StatusRefunded
	pay, err = s.payments.UpdatePayment(ctx, pay)
	if err != nil {
		return payment.Payment{}, err
	}
	s.log.WithField("payment_id", pay.ID).Info("payment refunded")
	return pay, nil
}

// webhookEvent is the gateway's settlement notification.
type webhookEvent struct {
	EventID     string `json:"event_id"`
	ProviderRef string `json:"provider_ref"`
	Status      string `json:"status"`
	Reason      string `json:"reason"`
}

// HandleWebhook verifies and applies a gateway settlement notification.
// Events are deduplicated by event ID; replays return nil without touching
// the payment again.
func (s *Service) HandleWebhook(ctx context.Context, body []byte, signature string) error {
	if err := s.verifySignature(body, signature); err != nil {
		return err
	}

	var event webhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return fmt.Errorf("decode webhook: %w", err)
	}
	if event.EventID == "" || event.ProviderRef == "" {
		return fmt.Errorf("webhook missing event_id or provider_ref")
	}

	_, created, err := s.idem.Remember(ctx, "webhook:"+event.EventID, event.ProviderRef, webhookDedupTTL)
	if err != nil {
		return fmt.Errorf("webhook dedup: %w", err)
	}
	if !created {
		s.log.WithField("event_id", event.EventID).Debug("webhook replay ignored")
		return nil
	}

	pay, err := s.payments.GetPaymentByProviderRef(ctx, event.ProviderRef)
	if err != nil {
		return err
	}

	switch event.Status {
	case "completed":
		_, err = s.Settle(ctx, pay.ID, true, "")
	case "failed":
		reason := event.Reason
		if reason == "" {
			reason = "declined by provider"
		}
		_, err = s.Settle(ctx, pay.ID, false, reason)
	default:
		err = fmt.Errorf("unknown webhook status %q", event.Status)
	}
	return err
}

func (s *Service) verifySignature(body []byte, signature string) error {
	if len(s.webhookSecret) == 0 {
		return fmt.Errorf("%w: no webhook secret configured", ErrBadSignature)
	}
	signature = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(signature), "sha256="))
	if signature == "" {
		return ErrBadSignature
	}

	provided, err := hex.DecodeString(signature)
	if err != nil {
		return ErrBadSignature
	}

	mac := hmac.New(sha256.New, s.webhookSecret)
	mac.Write(body)
	if !hmac.Equal(provided, mac.Sum(nil)) {
		return ErrBadSignature
	}
	return nil
}
