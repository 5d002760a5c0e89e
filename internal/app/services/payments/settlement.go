package payments

import (
	"context"
	"sync"
	"time"

	"github.com/sokoni-labs/commerce_layer/internal/app/domain/payment"
	"github.com/sokoni-labs/commerce_layer/internal/app/storage"
	"github.com/sokoni-labs/commerce_layer/internal/app/system"
	"github.com/sokoni-labs/commerce_layer/pkg/logger"
)

// SettlementPoller watches processing payments and settles the ones whose
// webhook never arrived, either from a provider status check or by timing
// them out.
type SettlementPoller struct {
	store    storage.PaymentStore
	service  *Service
	provider Provider
	interval time.Duration
	timeout  time.Duration
	log      *logger.Logger

	mu          sync.Mutex
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	running     bool
	nextAttempt map[string]time.Time
}

var _ system.Service = (*SettlementPoller)(nil)

// NewSettlementPoller constructs a poller. timeout bounds how long a payment
// may sit in processing before it is failed.
func NewSettlementPoller(store storage.PaymentStore, service *Service, provider Provider, interval, timeout time.Duration, log *logger.Logger) *SettlementPoller {
	if log == nil {
		log = logger.NewDefault("payment-settlement")
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if timeout <= 0 {
		timeout = 15 * time.Minute
	}
	return &SettlementPoller{
		store:       store,
		service:     service,
		provider:    provider,
		interval:    interval,
		timeout:     timeout,
		log:         log,
		nextAttempt: make(map[string]time.Time),
	}
}

// Name implements system.Service.
func (p *SettlementPoller) Name() string { return "payment-settlement" }

// Start implements system.Service.
func (p *SettlementPoller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.running = true

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				p.tick(runCtx)
			}
		}
	}()

	p.log.Info("payment settlement poller started")
	return nil
}

// Stop implements system.Service.
func (p *SettlementPoller) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	cancel := p.cancel
	p.running = false
	p.cancel = nil
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		p.wg.Wait()
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	return nil
}

func (p *SettlementPoller) tick(ctx context.Context) {
	pending, err := p.store.ListProcessingPayments(ctx)
	if err != nil {
		p.log.WithError(err).Warn("list processing payments failed")
		return
	}

	now := time.Now()
	for _, pay := range pending {
		if !p.shouldAttempt(pay.ID, now) {
			continue
		}

		if now.Sub(pay.UpdatedAt) >= p.timeout {
			if _, err := p.service.Settle(ctx, pay.ID, false, "settlement timeout"); err != nil {
				p.log.WithError(err).Warnf("time out payment %s failed", pay.ID)
			} else {
				p.log.Warnf("payment %s timed out waiting for settlement", pay.ID)
			}
			p.clearSchedule(pay.ID)
			continue
		}

		p.resolve(ctx, pay)
	}
}

func (p *SettlementPoller) resolve(ctx context.Context, pay payment.Payment) {
	if p.provider == nil || pay.ProviderRef == "" {
		p.scheduleNext(pay.ID, p.interval)
		return
	}

	status, err := p.provider.Status(ctx, pay.ProviderRef)
	if err != nil {
		p.log.WithError(err).Warnf("provider status for payment %s failed", pay.ID)
		p.scheduleNext(pay.ID, status.RetryAfter)
		return
	}

	if !status.Done {
		p.scheduleNext(pay.ID, status.RetryAfter)
		return
	}

	if _, err := p.service.Settle(ctx, pay.ID, status.Success, status.Reason); err != nil {
		p.log.WithError(err).Warnf("settle payment %s failed", pay.ID)
		p.scheduleNext(pay.ID, status.RetryAfter)
		return
	}
	p.log.Infof("payment %s settled (success=%t)", pay.ID, status.Success)
	p.clearSchedule(pay.ID)
}

func (p *SettlementPoller) shouldAttempt(id string, now time.Time) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	next, ok := p.nextAttempt[id]
	return !ok || !now.Before(next)
}

func (p *SettlementPoller) scheduleNext(id string, after time.Duration) {
	if after <= 0 {
		after = p.interval
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextAttempt[id] = time.Now().Add(after)
}

func (p *SettlementPoller) clearSchedule(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.nextAttempt, id)
}
