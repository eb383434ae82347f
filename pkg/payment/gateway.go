package payment

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/trngon/payment"

// Checkout outcomes reported to a Recorder.
const (
	OutcomeCompleted = "completed"
	OutcomeVetoed    = "vetoed"
	OutcomeFailed    = "failed"
	OutcomeInvalid   = "invalid"
)

// Driver supplies the provider specific parts of a gateway.
type Driver interface {
	// BaseURL is the provider endpoint the gateway HTTP client is bound to.
	BaseURL() string
	// CheckoutInternal performs the provider call for a normalised instance.
	CheckoutInternal(ctx context.Context, g *Gateway, instance CheckoutInstance, method CheckoutMethod) (CheckoutResponseData, error)
}

// Recorder receives one observation per Checkout call.
type Recorder interface {
	RecordCheckout(gateway string, method CheckoutMethod, outcome string, duration time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) RecordCheckout(string, CheckoutMethod, string, time.Duration) {}

// Config wires a gateway's collaborators.
type Config struct {
	Name   string
	Driver Driver

	// Merchants constructs merchants from ByType and ByConfig descriptors.
	Merchants *Factory[Merchant]
	// Instances defaults to NewInstanceFactory().
	Instances *Factory[CheckoutInstance]
	// HTTPClients defaults to NewHTTPClientFactory().
	HTTPClients *Factory[HTTPClient]

	// BankInstanceType and TelCardInstanceType are injected into instance
	// mappings that name no type.
	BankInstanceType    string
	TelCardInstanceType string

	Events   *Dispatcher
	Logger   *zerolog.Logger
	Recorder Recorder
}

// Gateway holds a merchant registry, a lazily built HTTP client, and
// dispatches checkouts to its driver between the before and after hooks.
//
// Registry and cache updates are serialised by an internal mutex, but
// observers and drivers run without it held.
type Gateway struct {
	name   string
	driver Driver

	merchantFactory *Factory[Merchant]
	instanceFactory *Factory[CheckoutInstance]
	clientFactory   *Factory[HTTPClient]

	bankInstanceType    string
	telCardInstanceType string

	events   *Dispatcher
	logger   zerolog.Logger
	recorder Recorder
	tracer   trace.Tracer

	mu              sync.Mutex
	merchants       *merchantRegistry
	defaultMerchant Merchant
	httpClient      HTTPClient
}

// NewGateway creates a gateway. Only Driver is required.
func NewGateway(cfg Config) (*Gateway, error) {
	if cfg.Driver == nil {
		return nil, invalidConfiguration("gateway driver is required", nil)
	}

	g := &Gateway{
		name:                cfg.Name,
		driver:              cfg.Driver,
		merchantFactory:     cfg.Merchants,
		instanceFactory:     cfg.Instances,
		clientFactory:       cfg.HTTPClients,
		bankInstanceType:    cfg.BankInstanceType,
		telCardInstanceType: cfg.TelCardInstanceType,
		events:              cfg.Events,
		recorder:            cfg.Recorder,
		tracer:              otel.Tracer(tracerName),
		merchants:           newMerchantRegistry(),
	}

	if g.name == "" {
		g.name = fmt.Sprintf("%T", cfg.Driver)
	}
	if g.merchantFactory == nil {
		g.merchantFactory = NewFactory[Merchant]("merchant")
	}
	if g.instanceFactory == nil {
		g.instanceFactory = NewInstanceFactory()
	}
	if g.clientFactory == nil {
		g.clientFactory = NewHTTPClientFactory()
	}
	if g.bankInstanceType == "" {
		g.bankInstanceType = BankInstanceType
	}
	if g.telCardInstanceType == "" {
		g.telCardInstanceType = TelCardInstanceType
	}
	if g.events == nil {
		g.events = NewDispatcher()
	}
	if g.recorder == nil {
		g.recorder = nopRecorder{}
	}
	if cfg.Logger != nil {
		g.logger = cfg.Logger.With().Str("gateway", g.name).Logger()
	} else {
		g.logger = zerolog.Nop()
	}

	return g, nil
}

func (g *Gateway) Name() string { return g.name }

func (g *Gateway) Driver() Driver { return g.driver }

// BaseURL returns the driver's endpoint.
func (g *Gateway) BaseURL() string { return g.driver.BaseURL() }

// Events returns the dispatcher checkout hooks are published on.
func (g *Gateway) Events() *Dispatcher { return g.events }

// On subscribes o to kind on the gateway's dispatcher.
func (g *Gateway) On(kind EventKind, o Observer) {
	g.events.Subscribe(kind, o)
}

// --- Merchant registry ---

// Merchants returns the registry in insertion order. With load set every
// entry is resolved first and the returned descriptors are all Constructed.
func (g *Gateway) Merchants(load bool) ([]MerchantEntry, error) {
	g.mu.Lock()
	keys := g.merchants.keys()
	g.mu.Unlock()

	entries := make([]MerchantEntry, 0, len(keys))
	for _, k := range keys {
		if load {
			m, err := g.resolveMerchant(k)
			if err != nil {
				return nil, err
			}
			entries = append(entries, MerchantEntry{ID: k.value(), Descriptor: Constructed(m)})
			continue
		}

		g.mu.Lock()
		d, _ := g.merchants.get(k)
		g.mu.Unlock()
		entries = append(entries, MerchantEntry{ID: k.value(), Descriptor: d})
	}
	return entries, nil
}

// SetMerchants stores each entry in order.
func (g *Gateway) SetMerchants(entries []MerchantEntry) error {
	for _, e := range entries {
		if err := g.SetMerchant(e.ID, e.Descriptor); err != nil {
			return err
		}
	}
	return nil
}

// SetMerchant stores d under id, replacing any existing entry in place.
func (g *Gateway) SetMerchant(id any, d MerchantDescriptor) error {
	k, err := normalizeMerchantID(id)
	if err != nil {
		return err
	}
	if d.Resolved() && isNil(d.Merchant()) {
		return invalidArgument("merchant must not be nil")
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.merchants.set(k, d)
	return nil
}

// AddMerchant appends d under the next sequential integer key and returns it.
func (g *Gateway) AddMerchant(d MerchantDescriptor) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.merchants.add(d)
}

// Merchant resolves the merchant registered under id. A nil id returns the
// default merchant.
func (g *Gateway) Merchant(id any) (Merchant, error) {
	if id == nil {
		return g.DefaultMerchant()
	}

	k, err := normalizeMerchantID(id)
	if err != nil {
		return nil, err
	}
	return g.resolveMerchant(k)
}

func (g *Gateway) resolveMerchant(k merchantKey) (Merchant, error) {
	g.mu.Lock()
	d, ok := g.merchants.get(k)
	g.mu.Unlock()

	if !ok {
		return nil, NewDomainError("merchant_not_found", fmt.Sprintf("merchant %v is not registered", k.value()), ErrMerchantNotFound)
	}
	if d.Resolved() {
		return d.resolve(g, g.merchantFactory)
	}

	m, err := d.resolve(g, g.merchantFactory)
	if err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	// Another caller may have resolved it while the lock was released.
	if current, ok := g.merchants.get(k); ok && current.Resolved() {
		return current.Merchant(), nil
	}
	g.merchants.set(k, Constructed(m))

	g.logger.Debug().
		Interface("merchant_key", k.value()).
		Str("merchant_type", d.TypeName()).
		Msg("merchant resolved")

	return m, nil
}

// DefaultMerchant returns the merchant registered first. It is computed once.
func (g *Gateway) DefaultMerchant() (Merchant, error) {
	g.mu.Lock()
	if g.defaultMerchant != nil {
		m := g.defaultMerchant
		g.mu.Unlock()
		return m, nil
	}
	k, ok := g.merchants.first()
	g.mu.Unlock()

	if !ok {
		return nil, invalidConfiguration("no default merchant: registry is empty", nil)
	}

	m, err := g.resolveMerchant(k)
	if err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.defaultMerchant == nil {
		g.defaultMerchant = m
	}
	return g.defaultMerchant, nil
}

// --- Checkout ---

// Checkout normalises raw into a CheckoutInstance, publishes
// EventBeforeCheckout and, unless an observer vetoed, calls the driver and
// publishes EventAfterCheckout. ok is false when the checkout was vetoed.
// Driver errors are returned unchanged.
func (g *Gateway) Checkout(ctx context.Context, raw any, method CheckoutMethod) (data CheckoutResponseData, ok bool, err error) {
	if method == "" {
		method = MethodInternetBanking
	}

	start := time.Now()
	ctx, span := g.tracer.Start(ctx, "payment.checkout", trace.WithAttributes(
		attribute.String("payment.gateway", g.name),
		attribute.String("payment.method", string(method)),
	))
	outcome := OutcomeCompleted
	defer func() {
		span.SetAttributes(attribute.String("payment.outcome", outcome))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		g.recorder.RecordCheckout(g.name, method, outcome, time.Since(start))
	}()

	instance, err := g.PrepareCheckoutInstance(raw, method)
	if err != nil {
		outcome = OutcomeInvalid
		return nil, false, err
	}

	event := &CheckoutEvent{
		Gateway:  g,
		Instance: instance,
		Method:   method,
		IsValid:  true,
	}

	g.events.Publish(ctx, EventBeforeCheckout, event)
	if !event.IsValid {
		outcome = OutcomeVetoed
		g.logger.Info().
			Str("method", string(method)).
			Str("order_id", instance.Base().OrderID).
			Msg("checkout vetoed by observer")
		return nil, false, nil
	}

	data, err = g.driver.CheckoutInternal(ctx, g, instance, method)
	if err != nil {
		outcome = OutcomeFailed
		g.logger.Error().Err(err).
			Str("method", string(method)).
			Str("order_id", instance.Base().OrderID).
			Msg("checkout failed")
		return nil, false, err
	}

	event.ResponseData = data
	g.events.Publish(ctx, EventAfterCheckout, event)
	return data, true, nil
}

// PrepareCheckoutInstance turns raw into a CheckoutInstance. Instances are
// returned unchanged; mappings without a type get the gateway's default
// type for method. The result is not validated; required fields are the
// caller's or the driver's concern (see CheckoutInstance.Validate).
func (g *Gateway) PrepareCheckoutInstance(raw any, method CheckoutMethod) (CheckoutInstance, error) {
	var attrs Attributes
	switch v := raw.(type) {
	case CheckoutInstance:
		if isNil(v) {
			return nil, invalidConfiguration("nil checkout instance", nil)
		}
		return v, nil
	case Attributes:
		attrs = v.Clone()
	case map[string]any:
		attrs = Attributes(v).Clone()
	default:
		return nil, invalidConfiguration(fmt.Sprintf("unsupported checkout instance %T", raw), nil)
	}

	if _, ok := attrs.Type(); !ok {
		if method == MethodTelCard {
			attrs[TypeKey] = g.telCardInstanceType
		} else {
			attrs[TypeKey] = g.bankInstanceType
		}
	}

	instance, err := g.instanceFactory.Create(attrs)
	if err != nil {
		return nil, err
	}
	if isNil(instance) {
		return nil, invalidConfiguration(fmt.Sprintf("checkout instance type %q built nil", attrs[TypeKey]), nil)
	}
	return instance, nil
}

// --- HTTP client ---

// HTTPClient returns the gateway's client, building a default one on first use.
func (g *Gateway) HTTPClient() (HTTPClient, error) {
	g.mu.Lock()
	c := g.httpClient
	g.mu.Unlock()
	if c != nil {
		return c, nil
	}

	if err := g.SetHTTPClient(Attributes{}); err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	return g.httpClient, nil
}

// SetHTTPClient accepts a type identifier, a mapping or a built HTTPClient.
// The client's base URL is always set to the gateway's.
func (g *Gateway) SetHTTPClient(d any) error {
	var client HTTPClient
	switch v := d.(type) {
	case HTTPClient:
		if isNil(v) {
			return invalidConfiguration("nil http client", nil)
		}
		client = v
	case string:
		c, err := g.clientFactory.Create(Attributes{TypeKey: v, GatewayKey: g})
		if err != nil {
			return err
		}
		client = c
	case Attributes, map[string]any:
		attrs := toAttributes(v).Clone()
		if _, ok := attrs.Type(); !ok {
			attrs[TypeKey] = DefaultHTTPClientType
		}
		if attrs.Gateway() == nil {
			attrs[GatewayKey] = g
		}
		c, err := g.clientFactory.Create(attrs)
		if err != nil {
			return err
		}
		client = c
	default:
		return invalidConfiguration(fmt.Sprintf("unsupported http client descriptor %T", d), nil)
	}

	client.SetBaseURL(g.driver.BaseURL())

	g.mu.Lock()
	g.httpClient = client
	g.mu.Unlock()
	return nil
}

func toAttributes(v any) Attributes {
	switch a := v.(type) {
	case Attributes:
		return a
	case map[string]any:
		return Attributes(a)
	}
	return nil
}
