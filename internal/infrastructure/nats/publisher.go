package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
	"github.com/trngon/payment/pkg/payment"
	"go.opentelemetry.io/otel/trace"
)

// EventCheckoutCompleted is the envelope type of published checkouts.
const EventCheckoutCompleted = "payment.checkout.completed"

// Publisher is the subset of *nats.Conn the checkout publisher needs.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// EventRecorder counts publish attempts.
type EventRecorder interface {
	RecordEventPublished(gateway, status string)
}

// Envelope wraps every published event.
type Envelope struct {
	ID            string          `json:"event_id"`
	Type          string          `json:"type"`
	Version       int             `json:"version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Gateway       string          `json:"gateway"`
	Method        string          `json:"method"`
	Data          json.RawMessage `json:"data"`
}

// CheckoutCompletedData is the payload of EventCheckoutCompleted.
type CheckoutCompletedData struct {
	OrderID       string `json:"order_id"`
	Amount        int64  `json:"amount"`
	Currency      string `json:"currency,omitempty"`
	OK            bool   `json:"ok"`
	TransactionID string `json:"transaction_id,omitempty"`
	RedirectURL   string `json:"redirect_url,omitempty"`
	Message       string `json:"message,omitempty"`
}

// CheckoutPublisher forwards completed checkouts to NATS on
// {prefix}.{gateway}.{method}. Publish failures are logged and never fail
// the checkout.
type CheckoutPublisher struct {
	pub      Publisher
	prefix   string
	logger   zerolog.Logger
	recorder EventRecorder
}

func NewCheckoutPublisher(pub Publisher, prefix string, logger zerolog.Logger, recorder EventRecorder) *CheckoutPublisher {
	return &CheckoutPublisher{
		pub:      pub,
		prefix:   strings.TrimSuffix(prefix, "."),
		logger:   logger.With().Str("component", "checkout_publisher").Logger(),
		recorder: recorder,
	}
}

// Attach subscribes the publisher to g's after-checkout hook.
func (p *CheckoutPublisher) Attach(g *payment.Gateway) {
	g.On(payment.EventAfterCheckout, p.OnCheckout)
}

// Subject returns the subject a checkout on gateway via method is published to.
func (p *CheckoutPublisher) Subject(gateway string, method payment.CheckoutMethod) string {
	return fmt.Sprintf("%s.%s.%s", p.prefix, subjectToken(gateway), subjectToken(string(method)))
}

// OnCheckout is a payment.Observer.
func (p *CheckoutPublisher) OnCheckout(ctx context.Context, e *payment.CheckoutEvent) {
	gateway := e.Gateway.Name()

	env, err := newEnvelope(ctx, e)
	if err != nil {
		p.logger.Error().Err(err).Str("gateway", gateway).Msg("Failed to build checkout event")
		p.record(gateway, "error")
		return
	}

	body, err := json.Marshal(env)
	if err != nil {
		p.logger.Error().Err(err).Str("gateway", gateway).Msg("Failed to encode checkout event")
		p.record(gateway, "error")
		return
	}

	subject := p.Subject(gateway, e.Method)
	if err := p.pub.Publish(subject, body); err != nil {
		p.logger.Error().Err(err).
			Str("subject", subject).
			Str("event_id", env.ID).
			Msg("Failed to publish checkout event")
		p.record(gateway, "error")
		return
	}

	p.logger.Debug().
		Str("subject", subject).
		Str("event_id", env.ID).
		Msg("Checkout event published")
	p.record(gateway, "ok")
}

func (p *CheckoutPublisher) record(gateway, status string) {
	if p.recorder != nil {
		p.recorder.RecordEventPublished(gateway, status)
	}
}

func newEnvelope(ctx context.Context, e *payment.CheckoutEvent) (*Envelope, error) {
	base := e.Instance.Base()
	data := CheckoutCompletedData{
		OrderID:  base.OrderID,
		Amount:   base.Amount,
		Currency: base.Currency,
	}
	if e.ResponseData != nil {
		data.OK = e.ResponseData.IsOK()
	}
	if resp, ok := e.ResponseData.(*payment.ResponseData); ok {
		data.TransactionID = resp.TransactionID
		data.RedirectURL = resp.RedirectURL
		data.Message = resp.Message
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	env := &Envelope{
		ID:         ulid.Make().String(),
		Type:       EventCheckoutCompleted,
		Version:    1,
		OccurredAt: time.Now().UTC(),
		Gateway:    e.Gateway.Name(),
		Method:     string(e.Method),
		Data:       raw,
	}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		env.CorrelationID = sc.TraceID().String()
	}
	return env, nil
}

// subjectToken keeps a name from adding subject levels or wildcards.
func subjectToken(s string) string {
	return strings.NewReplacer(".", "_", " ", "_", "*", "_", ">", "_").Replace(s)
}

