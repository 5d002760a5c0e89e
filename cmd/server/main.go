// Package main runs the commerce layer HTTP server: storefront and
// back-office APIs backed by PostgreSQL (or an in-memory store for local
// development), with Redis-based idempotency and the payment provider driver
// selected by configuration.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/sokoni-labs/commerce_layer/internal/app"
	"github.com/sokoni-labs/commerce_layer/internal/app/cache"
	"github.com/sokoni-labs/commerce_layer/internal/app/httpapi"
	"github.com/sokoni-labs/commerce_layer/internal/app/metrics"
	"github.com/sokoni-labs/commerce_layer/internal/app/services/payments"
	"github.com/sokoni-labs/commerce_layer/internal/app/storage/postgres"
	"github.com/sokoni-labs/commerce_layer/internal/config"
	"github.com/sokoni-labs/commerce_layer/internal/database"
	"github.com/sokoni-labs/commerce_layer/pkg/logger"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to YAML config file")
	auditPath := flag.String("audit-log", "", "Path to the admin audit log file (empty keeps it in memory only)")
	flag.Parse()

	// Optional .env for local development; absence is fine.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Logging)

	opts := app.Options{
		Logger:             log,
		WebhookSecret:      cfg.Payments.WebhookSecret,
		LoyaltyEarnRate:    cfg.Loyalty.EarnRatePerDollar,
		LowStockThreshold:  cfg.Stats.LowStockThreshold,
		CouponSweep:        cfg.Coupons.SweepSchedule,
		SettlementInterval: time.Duration(cfg.Payments.SettlementInterval) * time.Second,
		SettlementTimeout:  time.Duration(cfg.Payments.SettlementTimeout) * time.Minute,
	}

	if cfg.Database.DSN != "" {
		db, err := database.Open(cfg.Database)
		if err != nil {
			log.WithError(err).Fatal("open database")
		}
		defer db.Close()
		if err := database.Migrate(db, cfg.Database); err != nil {
			log.WithError(err).Fatal("apply migrations")
		}
		pg := postgres.New(db)
		opts.Stores = app.Stores{
			Catalog:   pg,
			Orders:    pg,
			Coupons:   pg,
			Loyalty:   pg,
			Payments:  pg,
			Reviews:   pg,
			Wishlists: pg,
			Support:   pg,
			Customers: pg,
			Stats:     pg,
		}
		log.Info("using postgres storage")
	} else {
		log.Warn("DATABASE_DSN not set, using in-memory storage")
	}

	if cfg.Redis.Addr != "" {
		client, err := cache.Connect(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.WithError(err).Fatal("connect redis")
		}
		defer client.Close()
		opts.Idempotency = cache.NewRedisStore(client, "commerce")
		opts.ProductCache = cache.NewProductCache(client, "commerce", 5*time.Minute)
		log.WithField("addr", cfg.Redis.Addr).Info("using redis idempotency store and product cache")
	}

	if cfg.Payments.Provider == "http" {
		client := &http.Client{Timeout: time.Duration(cfg.Payments.RequestTimeout) * time.Second}
		provider, err := payments.NewHTTPProvider(client, cfg.Payments.BaseURL, cfg.Payments.APIKey, log)
		if err != nil {
			log.WithError(err).Fatal("configure payment provider")
		}
		opts.Provider = provider
	}

	application, err := app.New(opts)
	if err != nil {
		log.WithError(err).Fatal("build application")
	}

	if cfg.Auth.AdminJWTSecret == "" {
		log.Fatal("ADMIN_JWT_SECRET is required")
	}
	auth := httpapi.NewAuthenticator(cfg.Auth.AdminJWTSecret)

	handler, err := httpapi.NewHandler(application, httpapi.Config{
		Auth:      auth,
		AuditPath: *auditPath,
	})
	if err != nil {
		log.WithError(err).Fatal("build http handler")
	}

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      metrics.InstrumentHandler(handler),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := application.Start(ctx); err != nil {
		log.WithError(err).Fatal("start application")
	}

	go func() {
		log.WithField("addr", server.Addr).Info("http server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("http server")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("http server shutdown")
	}
	if err := application.Stop(shutdownCtx); err != nil {
		log.WithError(err).Error("application shutdown")
	}

	log.Info("shutdown complete")
}
