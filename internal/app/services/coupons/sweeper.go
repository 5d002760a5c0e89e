package coupons

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"github.com/sokoni-labs/commerce_layer/internal/app/system"
	"github.com/sokoni-labs/commerce_layer/pkg/logger"
)

// Sweeper periodically deactivates coupons whose validity window has closed,
// so listings and previews never see a stale active flag.
type Sweeper struct {
	svc      *Service
	cron     *cron.Cron
	schedule string
	log      *logger.Logger
}

var _ system.Service = (*Sweeper)(nil)

// NewSweeper constructs a sweeper with the given cron schedule, e.g.
// "@hourly" or "*/10 * * * *".
func NewSweeper(svc *Service, schedule string, log *logger.Logger) *Sweeper {
	if log == nil {
		log = logger.NewDefault("coupon-sweeper")
	}
	if schedule == "" {
		schedule = "@hourly"
	}
	return &Sweeper{
		svc:      svc,
		cron:     cron.New(),
		schedule: schedule,
		log:      log,
	}
}

// Name implements system.Service.
func (s *Sweeper) Name() string { return "coupon-sweeper" }

// Start registers the sweep job and starts the scheduler. The first sweep
// runs immediately so restarts do not leave expired coupons active until the
// next tick.
func (s *Sweeper) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.schedule, func() {
		if _, err := s.svc.DeactivateExpired(context.Background()); err != nil {
			s.log.WithError(err).Warn("coupon sweep failed")
		}
	}); err != nil {
		return fmt.Errorf("schedule coupon sweep: %w", err)
	}

	if _, err := s.svc.DeactivateExpired(ctx); err != nil {
		s.log.WithError(err).Warn("initial coupon sweep failed")
	}

	s.cron.Start()
	s.log.WithField("schedule", s.schedule).Info("coupon sweeper started")
	return nil
}

// Stop halts the scheduler and waits for a running sweep to finish.
func (s *Sweeper) Stop(ctx context.Context) error {
	done := s.cron.Stop().Done()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
