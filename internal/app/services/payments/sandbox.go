package payments

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sokoni-labs/commerce_layer/internal/app/domain/payment"
)

// SandboxProvider is the in-process gateway used in development and tests.
// Charges settle successfully after a fixed delay, except phones ending in
// "00" which always fail, so both paths can be exercised without a real
// gateway.
type SandboxProvider struct {
	settleAfter time.Duration

	mu      sync.Mutex
	charges map[string]sandboxCharge
}

type sandboxCharge struct {
	initiated time.Time
	fail      bool
}

var _ Provider = (*SandboxProvider)(nil)

// NewSandboxProvider creates a sandbox that settles charges after delay.
// A non-positive delay settles on the first status check.
func NewSandboxProvider(delay time.Duration) *SandboxProvider {
	return &SandboxProvider{
		settleAfter: delay,
		charges:     make(map[string]sandboxCharge),
	}
}

// Name implements Provider.
func (p *SandboxProvider) Name() string { return "sandbox" }

// Initiate implements Provider.
func (p *SandboxProvider) Initiate(_ context.Context, pay payment.Payment) (string, error) {
	ref := "SBX-" + uuid.NewString()

	p.mu.Lock()
	p.charges[ref] = sandboxCharge{
		initiated: time.Now(),
		fail:      strings.HasSuffix(pay.Phone, "00"),
	}
	p.mu.Unlock()
	return ref, nil
}

// Status implements Provider.
func (p *SandboxProvider) Status(_ context.Context, providerRef string) (StatusResult, error) {
	p.mu.Lock()
	charge, ok := p.charges[providerRef]
	p.mu.Unlock()

	if !ok {
		return StatusResult{Done: true, Success: false, Reason: "unknown charge"}, nil
	}
	if time.Since(charge.initiated) < p.settleAfter {
		return StatusResult{RetryAfter: time.Second}, nil
	}
	if charge.fail {
		return StatusResult{Done: true, Success: false, Reason: "sandbox decline"}, nil
	}
	return StatusResult{Done: true, Success: true}, nil
}
