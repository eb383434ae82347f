package providers

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
	"github.com/trngon/payment/internal/infrastructure/config"
	"github.com/trngon/payment/internal/infrastructure/observability"
	"github.com/trngon/payment/pkg/payment"
)

var ErrGatewayNotFound = errors.New("gateway not found")

// Factory is the set of configured gateways, keyed by name.
type Factory struct {
	mu       sync.RWMutex
	gateways map[string]*payment.Gateway
}

// BuildOptions carries the process-wide collaborators every gateway shares.
type BuildOptions struct {
	Logger  zerolog.Logger
	Metrics *observability.Metrics
}

func NewFactory(gateways ...*payment.Gateway) *Factory {
	f := &Factory{gateways: make(map[string]*payment.Gateway)}
	for _, g := range gateways {
		f.Register(g)
	}
	return f
}

// NewFactoryFromConfig builds and registers every configured gateway.
func NewFactoryFromConfig(cfgs []config.GatewayConfig, opts BuildOptions) (*Factory, error) {
	f := NewFactory()
	for _, cfg := range cfgs {
		g, err := Build(cfg, opts)
		if err != nil {
			return nil, fmt.Errorf("gateway %q: %w", cfg.Name, err)
		}
		f.Register(g)
	}
	return f, nil
}

func (f *Factory) Register(g *payment.Gateway) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gateways[g.Name()] = g
}

func (f *Factory) Get(name string) (*payment.Gateway, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	g, ok := f.gateways[name]
	if !ok {
		return nil, payment.NewDomainError("gateway_not_found",
			fmt.Sprintf("unknown gateway %q", name), ErrGatewayNotFound)
	}
	return g, nil
}

// Names returns the registered gateway names, sorted.
func (f *Factory) Names() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	names := make([]string, 0, len(f.gateways))
	for name := range f.gateways {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Each calls fn for every gateway in name order.
func (f *Factory) Each(fn func(g *payment.Gateway)) {
	for _, name := range f.Names() {
		g, err := f.Get(name)
		if err == nil {
			fn(g)
		}
	}
}

// Build creates a gateway from cfg: its driver, merchant registry in
// configuration order and, when configured, its HTTP client.
func Build(cfg config.GatewayConfig, opts BuildOptions) (*payment.Gateway, error) {
	driver, err := newDriver(cfg)
	if err != nil {
		return nil, err
	}

	logger := observability.DriverLogger(opts.Logger, cfg.Driver)
	gcfg := payment.Config{
		Name:                cfg.Name,
		Driver:              driver,
		Merchants:           NewMerchantFactory(),
		HTTPClients:         newHTTPClientFactory(opts.Metrics),
		BankInstanceType:    cfg.BankInstanceType,
		TelCardInstanceType: cfg.TelCardInstanceType,
		Logger:              &logger,
	}
	if opts.Metrics != nil {
		gcfg.Recorder = opts.Metrics
	}

	g, err := payment.NewGateway(gcfg)
	if err != nil {
		return nil, err
	}

	for i, m := range cfg.Merchants {
		attrs := payment.Attributes(m).Clone()
		if _, ok := attrs.Type(); !ok {
			attrs[payment.TypeKey] = MerchantType
		}
		d, err := payment.DescriptorOf(attrs)
		if err != nil {
			return nil, fmt.Errorf("merchants[%d]: %w", i, err)
		}
		if err := g.SetMerchant(attrs["id"], d); err != nil {
			return nil, fmt.Errorf("merchants[%d]: %w", i, err)
		}
	}

	if len(cfg.HTTPClient) > 0 {
		if err := g.SetHTTPClient(map[string]any(cfg.HTTPClient)); err != nil {
			return nil, fmt.Errorf("http client: %w", err)
		}
	}

	return g, nil
}

func newDriver(cfg config.GatewayConfig) (payment.Driver, error) {
	switch cfg.Driver {
	case config.DriverMock:
		return newMockDriverFromAttributes(cfg.Name, cfg.BaseURL, cfg.DriverOptions)
	case config.DriverREST:
		if cfg.BaseURL == "" {
			return nil, fmt.Errorf("%w: rest driver requires base_url", payment.ErrInvalidConfiguration)
		}
		return NewRESTDriver(cfg.BaseURL), nil
	default:
		return nil, fmt.Errorf("%w: unknown driver %q", payment.ErrInvalidConfiguration, cfg.Driver)
	}
}

// newHTTPClientFactory reports breaker transitions to metrics.
func newHTTPClientFactory(metrics *observability.Metrics) *payment.Factory[payment.HTTPClient] {
	if metrics == nil {
		return payment.NewHTTPClientFactory()
	}
	return payment.NewFactory[payment.HTTPClient]("http client").
		Register(payment.DefaultHTTPClientType, func(attrs payment.Attributes) (payment.HTTPClient, error) {
			base := payment.DefaultClientConfig()
			base.OnStateChange = func(name string, _, to gobreaker.State) {
				metrics.RecordBreakerState(name, to)
			}
			return payment.NewClientFromAttributesWith(attrs, base)
		})
}
