// Package config loads the service configuration from a YAML file with
// environment variable overrides for deployment-specific values.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/sokoni-labs/commerce_layer/internal/database"
	"github.com/sokoni-labs/commerce_layer/pkg/logger"
)

// Config is the root configuration for the commerce layer.
type Config struct {
	Server   ServerConfig         `yaml:"server"`
	Database database.Config      `yaml:"database"`
	Redis    RedisConfig          `yaml:"redis"`
	Logging  logger.LoggingConfig `yaml:"logging"`
	Auth     AuthConfig           `yaml:"auth"`
	Payments PaymentsConfig       `yaml:"payments"`
	Loyalty  LoyaltyConfig        `yaml:"loyalty"`
	Coupons  CouponsConfig        `yaml:"coupons"`
	Stats    StatsConfig          `yaml:"stats"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Host            string `yaml:"host"`
	Port            int    `yaml:"port"`
	ReadTimeout     int    `yaml:"read_timeout_seconds"`
	WriteTimeout    int    `yaml:"write_timeout_seconds"`
	ShutdownTimeout int    `yaml:"shutdown_timeout_seconds"`
}

// RedisConfig controls the cache used for idempotency keys and webhook
// deduplication. Leave Addr empty to run without Redis.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// AuthConfig carries token verification settings.
type AuthConfig struct {
	AdminJWTSecret string `yaml:"admin_jwt_secret"`
}

// PaymentsConfig controls the payment provider driver and the settlement
// poller.
type PaymentsConfig struct {
	Provider           string `yaml:"provider"`
	BaseURL            string `yaml:"base_url"`
	APIKey             string `yaml:"api_key"`
	WebhookSecret      string `yaml:"webhook_secret"`
	RequestTimeout     int    `yaml:"request_timeout_seconds"`
	SettlementInterval int    `yaml:"settlement_interval_seconds"`
	SettlementTimeout  int    `yaml:"settlement_timeout_minutes"`
}

// LoyaltyConfig controls points accrual.
type LoyaltyConfig struct {
	EarnRatePerDollar int64 `yaml:"earn_rate_per_dollar"`
}

// CouponsConfig controls the expiry sweeper.
type CouponsConfig struct {
	SweepSchedule string `yaml:"sweep_schedule"`
}

// StatsConfig controls the back-office dashboard thresholds.
type StatsConfig struct {
	LowStockThreshold int64 `yaml:"low_stock_threshold"`
}

// Default returns the configuration used when no file or overrides are
// provided. Suitable for local development against the in-memory store.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     15,
			WriteTimeout:    30,
			ShutdownTimeout: 10,
		},
		Database: database.Config{
			MaxOpenConns:    20,
			MaxIdleConns:    10,
			ConnMaxLifetime: 3600,
			MigrationsPath:  "migrations",
		},
		Logging: logger.LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Payments: PaymentsConfig{
			Provider:           "sandbox",
			RequestTimeout:     10,
			SettlementInterval: 30,
			SettlementTimeout:  15,
		},
		Loyalty: LoyaltyConfig{EarnRatePerDollar: 1},
		Coupons: CouponsConfig{SweepSchedule: "@hourly"},
		Stats:   StatsConfig{LowStockThreshold: 5},
	}
}

// Load reads the YAML file at path when it exists, then applies environment
// overrides. A missing file is not an error; defaults are used instead.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(cfg)

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return nil, fmt.Errorf("invalid server port %d", cfg.Server.Port)
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	setString(&cfg.Server.Host, "SERVER_HOST")
	setInt(&cfg.Server.Port, "SERVER_PORT")
	setString(&cfg.Database.DSN, "DATABASE_DSN")
	setString(&cfg.Database.MigrationsPath, "DATABASE_MIGRATIONS_PATH")
	setString(&cfg.Redis.Addr, "REDIS_ADDR")
	setString(&cfg.Redis.Password, "REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "REDIS_DB")
	setString(&cfg.Logging.Level, "LOG_LEVEL")
	setString(&cfg.Logging.Format, "LOG_FORMAT")
	setString(&cfg.Logging.Output, "LOG_OUTPUT")
	setString(&cfg.Auth.AdminJWTSecret, "ADMIN_JWT_SECRET")
	setString(&cfg.Payments.Provider, "PAYMENTS_PROVIDER")
	setString(&cfg.Payments.BaseURL, "PAYMENTS_BASE_URL")
	setString(&cfg.Payments.APIKey, "PAYMENTS_API_KEY")
	setString(&cfg.Payments.WebhookSecret, "PAYMENTS_WEBHOOK_SECRET")
	setInt64(&cfg.Loyalty.EarnRatePerDollar, "LOYALTY_EARN_RATE")
	setString(&cfg.Coupons.SweepSchedule, "COUPON_SWEEP_SCHEDULE")
	setInt64(&cfg.Stats.LowStockThreshold, "STATS_LOW_STOCK_THRESHOLD")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}
