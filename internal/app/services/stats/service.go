// Package stats aggregates back-office dashboard numbers.
package stats

import (
	"context"

	"github.com/sokoni-labs/commerce_layer/internal/app/storage"
	"github.com/sokoni-labs/commerce_layer/pkg/logger"
)

// Service computes dashboard statistics.
type Service struct {
	store             storage.StatsStore
	lowStockThreshold int64
	log               *logger.Logger
}

// New constructs a stats service. lowStockThreshold controls which products
// count as running out.
func New(store storage.StatsStore, lowStockThreshold int64, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("stats")
	}
	if lowStockThreshold <= 0 {
		lowStockThreshold = 5
	}
	return &Service{store: store, lowStockThreshold: lowStockThreshold, log: log}
}

// Snapshot returns the current dashboard numbers.
func (s *Service) Snapshot(ctx context.Context) (storage.Stats, error) {
	return s.store.Stats(ctx, s.lowStockThreshold)
}
