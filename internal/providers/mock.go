package providers

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/trngon/payment/pkg/payment"
)

// MockDriver simulates a provider. Latency, failure and timeout rates are
// configurable.
type MockDriver struct {
	name        string
	baseURL     string
	failureRate float64 // 0.0 to 1.0
	latency     time.Duration
	timeoutRate float64 // 0.0 to 1.0
}

type MockDriverOption func(*MockDriver)

func WithFailureRate(rate float64) MockDriverOption {
	return func(d *MockDriver) { d.failureRate = rate }
}

func WithLatency(l time.Duration) MockDriverOption {
	return func(d *MockDriver) { d.latency = l }
}

func WithTimeoutRate(rate float64) MockDriverOption {
	return func(d *MockDriver) { d.timeoutRate = rate }
}

func WithBaseURL(u string) MockDriverOption {
	return func(d *MockDriver) { d.baseURL = u }
}

func NewMockDriver(name string, opts ...MockDriverOption) *MockDriver {
	d := &MockDriver{
		name:    name,
		baseURL: "https://" + name + ".mock.local",
		latency: 50 * time.Millisecond,
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// mockOptions is decoded from GatewayConfig.DriverOptions.
type mockOptions struct {
	Latency     time.Duration `mapstructure:"latency"`
	FailureRate float64       `mapstructure:"failure_rate"`
	TimeoutRate float64       `mapstructure:"timeout_rate"`
}

func newMockDriverFromAttributes(name, baseURL string, attrs payment.Attributes) (*MockDriver, error) {
	o := mockOptions{Latency: 50 * time.Millisecond}
	if err := attrs.Decode(&o); err != nil {
		return nil, fmt.Errorf("decode mock driver options: %w", err)
	}
	opts := []MockDriverOption{
		WithLatency(o.Latency),
		WithFailureRate(o.FailureRate),
		WithTimeoutRate(o.TimeoutRate),
	}
	if baseURL != "" {
		opts = append(opts, WithBaseURL(baseURL))
	}
	return NewMockDriver(name, opts...), nil
}

func (d *MockDriver) BaseURL() string { return d.baseURL }

func (d *MockDriver) CheckoutInternal(ctx context.Context, g *payment.Gateway, instance payment.CheckoutInstance, method payment.CheckoutMethod) (payment.CheckoutResponseData, error) {
	// Simulate latency
	select {
	case <-time.After(d.latency):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	// Simulate timeout
	if rand.Float64() < d.timeoutRate {
		return nil, fmt.Errorf("%w: %s: simulated timeout", payment.ErrProviderUnavailable, d.name)
	}

	base := instance.Base()

	// Simulate failure
	if rand.Float64() < d.failureRate {
		return nil, payment.NewDomainError("provider_rejected",
			fmt.Sprintf("%s: simulated rejection for order %s", d.name, base.OrderID),
			payment.ErrProviderRejected)
	}

	merchant, err := g.DefaultMerchant()
	if err != nil {
		return nil, err
	}

	txn := fmt.Sprintf("%s_txn_%s", d.name, uuid.New().String()[:8])
	resp := &payment.ResponseData{
		OK:            true,
		TransactionID: txn,
		Message:       "approved",
		Raw: map[string]any{
			"merchant_id": merchant.ID(),
			"order_id":    base.OrderID,
			"amount":      base.Amount,
		},
	}
	if method == payment.MethodInternetBanking {
		resp.RedirectURL = fmt.Sprintf("%s/pay/%s", d.baseURL, txn)
	}
	return resp, nil
}
