package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/sokoni-labs/commerce_layer/internal/app/domain/payment"
	"github.com/sokoni-labs/commerce_layer/internal/app/resilience"
	"github.com/sokoni-labs/commerce_layer/pkg/logger"
)

// Provider is the external payment gateway driver.
type Provider interface {
	Name() string
	// Initiate starts a charge and returns the provider's reference for it.
	Initiate(ctx context.Context, p payment.Payment) (string, error)
	// Status reports whether the referenced charge has settled.
	Status(ctx context.Context, providerRef string) (StatusResult, error)
}

// StatusResult is the provider's view of a charge.
type StatusResult struct {
	Done       bool
	Success    bool
	Reason     string
	RetryAfter time.Duration
}

// providerStatusError marks HTTP responses worth retrying.
type providerStatusError struct {
	code int
}

func (e providerStatusError) Error() string {
	return fmt.Sprintf("provider status %d", e.code)
}

func retryableProviderError(err error) bool {
	var statusErr providerStatusError
	if errors.As(err, &statusErr) {
		switch statusErr.code {
		case http.StatusTooManyRequests, http.StatusInternalServerError,
			http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return true
		}
		return false
	}
	// Transport errors (timeouts, resets) are retryable.
	return true
}

// HTTPProvider drives a payment gateway over HTTP with retry, rate limiting
// and a circuit breaker in front of it.
type HTTPProvider struct {
	client   *http.Client
	baseURL  *url.URL
	apiKey   string
	retryCfg resilience.RetryConfig
	breaker  *resilience.CircuitBreaker
	limiter  *rate.Limiter
	log      *logger.Logger
}

var _ Provider = (*HTTPProvider)(nil)

// NewHTTPProvider constructs a driver for the gateway at baseURL.
func NewHTTPProvider(client *http.Client, baseURL, apiKey string, log *logger.Logger) (*HTTPProvider, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, fmt.Errorf("provider base URL required")
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse provider base URL: %w", err)
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if log == nil {
		log = logger.NewDefault("payment-provider")
	}
	breakerCfg := resilience.DefaultCircuitBreakerConfig()
	breakerCfg.OnStateChange = func(from, to resilience.CircuitState) {
		log.WithField("from", from.String()).
			WithField("to", to.String()).
			Warn("payment provider circuit state changed")
	}
	return &HTTPProvider{
		client:   client,
		baseURL:  parsed,
		apiKey:   strings.TrimSpace(apiKey),
		retryCfg: resilience.DefaultRetryConfig(),
		breaker:  resilience.NewCircuitBreaker(breakerCfg),
		limiter:  rate.NewLimiter(rate.Limit(10), 20),
		log:      log,
	}, nil
}

// Name implements Provider.
func (p *HTTPProvider) Name() string { return p.baseURL.Host }

// Initiate implements Provider.
func (p *HTTPProvider) Initiate(ctx context.Context, pay payment.Payment) (string, error) {
	body := map[string]any{
		"payment_id":   pay.ID,
		"order_id":     pay.OrderID,
		"method":       string(pay.Method),
		"amount_cents": pay.AmountCents,
		"currency":     pay.Currency,
		"phone":        pay.Phone,
	}

	var out struct {
		ProviderRef string `json:"provider_ref"`
	}
	if err := p.call(ctx, http.MethodPost, "/charges", body, &out); err != nil {
		return "", err
	}
	if out.ProviderRef == "" {
		return "", fmt.Errorf("provider returned empty reference")
	}
	return out.ProviderRef, nil
}

// Status implements Provider.
func (p *HTTPProvider) Status(ctx context.Context, providerRef string) (StatusResult, error) {
	var out struct {
		Done       bool    `json:"done"`
		Success    bool    `json:"success"`
		Reason     string  `json:"reason"`
		RetryAfter float64 `json:"retry_after_seconds"`
	}
	path := "/charges/" + url.PathEscape(providerRef)
	if err := p.call(ctx, http.MethodGet, path, nil, &out); err != nil {
		return StatusResult{}, err
	}

	retry := time.Duration(out.RetryAfter * float64(time.Second))
	if retry <= 0 {
		retry = 5 * time.Second
	}
	return StatusResult{
		Done:       out.Done,
		Success:    out.Success,
		Reason:     out.Reason,
		RetryAfter: retry,
	}, nil
}

func (p *HTTPProvider) call(ctx context.Context, method, path string, body any, out any) error {
	if err := p.breaker.Allow(); err != nil {
		return err
	}
	if err := p.limiter.Wait(ctx); err != nil {
		return err
	}

	err := resilience.Retry(ctx, p.retryCfg, func(ctx context.Context) error {
		return p.doRequest(ctx, method, path, body, out)
	}, retryableProviderError)

	if err != nil {
		p.breaker.RecordFailure()
		return err
	}
	p.breaker.RecordSuccess()
	return nil
}

func (p *HTTPProvider) doRequest(ctx context.Context, method, path string, body any, out any) error {
	target := *p.baseURL
	target.Path = strings.TrimSuffix(target.Path, "/") + path

	var reader *strings.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode provider request: %w", err)
		}
		reader = strings.NewReader(string(encoded))
	} else {
		reader = strings.NewReader("")
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), reader)
	if err != nil {
		return fmt.Errorf("build provider request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("provider request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return providerStatusError{code: resp.StatusCode}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode provider response: %w", err)
	}
	return nil
}
