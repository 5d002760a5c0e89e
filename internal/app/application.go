// Package app wires the storage, services and background workers of the
// commerce layer into one lifecycle-managed application.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/sokoni-labs/commerce_layer/internal/app/cache"
	"github.com/sokoni-labs/commerce_layer/internal/app/services/catalog"
	"github.com/sokoni-labs/commerce_layer/internal/app/services/coupons"
	"github.com/sokoni-labs/commerce_layer/internal/app/services/customers"
	"github.com/sokoni-labs/commerce_layer/internal/app/services/loyalty"
	"github.com/sokoni-labs/commerce_layer/internal/app/services/orders"
	"github.com/sokoni-labs/commerce_layer/internal/app/services/payments"
	"github.com/sokoni-labs/commerce_layer/internal/app/services/reviews"
	"github.com/sokoni-labs/commerce_layer/internal/app/services/stats"
	"github.com/sokoni-labs/commerce_layer/internal/app/services/support"
	"github.com/sokoni-labs/commerce_layer/internal/app/services/wishlists"
	"github.com/sokoni-labs/commerce_layer/internal/app/storage"
	"github.com/sokoni-labs/commerce_layer/internal/app/storage/memory"
	"github.com/sokoni-labs/commerce_layer/internal/app/system"
	"github.com/sokoni-labs/commerce_layer/pkg/logger"
)

// Stores carries the storage implementations for each aggregate. Nil fields
// fall back to a shared in-memory store.
type Stores struct {
	Catalog   storage.CatalogStore
	Orders    storage.OrderStore
	Coupons   storage.CouponStore
	Loyalty   storage.LoyaltyStore
	Payments  storage.PaymentStore
	Reviews   storage.ReviewStore
	Wishlists storage.WishlistStore
	Support   storage.SupportStore
	Customers storage.CustomerStore
	Stats     storage.StatsStore
}

// Options tunes application construction.
type Options struct {
	Stores Stores
	Logger *logger.Logger

	// Idempotency is the store for checkout replays and webhook dedup. Nil
	// falls back to an in-process store.
	Idempotency cache.IdempotencyStore

	// Provider drives the payment gateway. Nil falls back to the sandbox.
	Provider payments.Provider

	// ProductCache is an optional read-through cache for product fetches.
	ProductCache catalog.ProductCache

	WebhookSecret      string
	LoyaltyEarnRate    int64
	LowStockThreshold  int64
	CouponSweep        string
	SettlementInterval time.Duration
	SettlementTimeout  time.Duration
}

// Application bundles the services behind a single lifecycle.
type Application struct {
	manager *system.Manager
	log     *logger.Logger

	Catalog   *catalog.Service
	Orders    *orders.Service
	Coupons   *coupons.Service
	Loyalty   *loyalty.Service
	Payments  *payments.Service
	Reviews   *reviews.Service
	Wishlists *wishlists.Service
	Support   *support.Service
	Customers *customers.Service
	Stats     *stats.Service
}

// New constructs the application with the provided options.
func New(opts Options) (*Application, error) {
	log := opts.Logger
	if log == nil {
		log = logger.NewDefault("commerce")
	}

	stores := opts.Stores
	mem := memory.New()
	if stores.Catalog == nil {
		stores.Catalog = mem
	}
	if stores.Orders == nil {
		stores.Orders = mem
	}
	if stores.Coupons == nil {
		stores.Coupons = mem
	}
	if stores.Loyalty == nil {
		stores.Loyalty = mem
	}
	if stores.Payments == nil {
		stores.Payments = mem
	}
	if stores.Reviews == nil {
		stores.Reviews = mem
	}
	if stores.Wishlists == nil {
		stores.Wishlists = mem
	}
	if stores.Support == nil {
		stores.Support = mem
	}
	if stores.Customers == nil {
		stores.Customers = mem
	}
	if stores.Stats == nil {
		stores.Stats = mem
	}

	idem := opts.Idempotency
	if idem == nil {
		idem = cache.NewMemoryStore()
	}
	provider := opts.Provider
	if provider == nil {
		provider = payments.NewSandboxProvider(0)
	}

	manager := system.NewManager()

	catalogSvc := catalog.New(stores.Catalog, opts.ProductCache, log)
	couponSvc := coupons.New(stores.Coupons, log)
	loyaltySvc := loyalty.New(stores.Loyalty, opts.LoyaltyEarnRate, log)
	orderSvc := orders.New(stores.Catalog, stores.Orders, stores.Coupons, loyaltySvc, idem, log)
	paymentSvc := payments.New(stores.Payments, stores.Orders, provider, orderSvc, idem, opts.WebhookSecret, log)
	reviewSvc := reviews.New(stores.Reviews, stores.Catalog, log)
	wishlistSvc := wishlists.New(stores.Wishlists, stores.Catalog, log)
	supportSvc := support.New(stores.Support, stores.Orders, log)
	customerSvc := customers.New(stores.Customers, log)
	statsSvc := stats.New(stores.Stats, opts.LowStockThreshold, log)

	for _, name := range []string{"catalog", "orders", "reviews", "wishlists", "support", "customers"} {
		if err := manager.Register(system.NoopService{ServiceName: name}); err != nil {
			return nil, fmt.Errorf("register %s service: %w", name, err)
		}
	}

	sweeper := coupons.NewSweeper(couponSvc, opts.CouponSweep, log)
	poller := payments.NewSettlementPoller(stores.Payments, paymentSvc, provider, opts.SettlementInterval, opts.SettlementTimeout, log)
	for _, svc := range []system.Service{sweeper, poller} {
		if err := manager.Register(svc); err != nil {
			return nil, fmt.Errorf("register %s: %w", svc.Name(), err)
		}
	}

	return &Application{
		manager:   manager,
		log:       log,
		Catalog:   catalogSvc,
		Orders:    orderSvc,
		Coupons:   couponSvc,
		Loyalty:   loyaltySvc,
		Payments:  paymentSvc,
		Reviews:   reviewSvc,
		Wishlists: wishlistSvc,
		Support:   supportSvc,
		Customers: customerSvc,
		Stats:     statsSvc,
	}, nil
}

// Attach registers an additional lifecycle-managed service. Call before Start.
func (a *Application) Attach(service system.Service) error {
	return a.manager.Register(service)
}

// Start begins all registered services.
func (a *Application) Start(ctx context.Context) error {
	return a.manager.Start(ctx)
}

// Stop stops all services.
func (a *Application) Stop(ctx context.Context) error {
	return a.manager.Stop(ctx)
}

// Healthz is a minimal liveness handler.
func Healthz() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
}
