package testutil

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/trngon/payment/pkg/payment"
)

// --- Driver Mock ---

// DriverCall records one CheckoutInternal invocation.
type DriverCall struct {
	Instance payment.CheckoutInstance
	Method   payment.CheckoutMethod
}

// MockDriver is a payment.Driver whose behaviour is set per test.
type MockDriver struct {
	mu    sync.Mutex
	calls []DriverCall

	URL          string
	CheckoutFunc func(ctx context.Context, g *payment.Gateway, instance payment.CheckoutInstance, method payment.CheckoutMethod) (payment.CheckoutResponseData, error)
}

func NewMockDriver(url string) *MockDriver {
	return &MockDriver{URL: url}
}

func (m *MockDriver) BaseURL() string { return m.URL }

func (m *MockDriver) CheckoutInternal(ctx context.Context, g *payment.Gateway, instance payment.CheckoutInstance, method payment.CheckoutMethod) (payment.CheckoutResponseData, error) {
	m.mu.Lock()
	m.calls = append(m.calls, DriverCall{Instance: instance, Method: method})
	m.mu.Unlock()

	if m.CheckoutFunc != nil {
		return m.CheckoutFunc(ctx, g, instance, method)
	}
	return &payment.ResponseData{
		OK:            true,
		TransactionID: "txn-" + uuid.New().String()[:8],
		Message:       "approved",
	}, nil
}

// Calls returns a copy of the recorded invocations.
func (m *MockDriver) Calls() []DriverCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]DriverCall(nil), m.calls...)
}

// --- Publisher Mock ---

// Message is one published broker message.
type Message struct {
	Subject string
	Data    []byte
}

// MockPublisher records messages; PublishFunc overrides the result.
type MockPublisher struct {
	mu       sync.Mutex
	messages []Message

	PublishFunc func(subject string, data []byte) error
}

func (m *MockPublisher) Publish(subject string, data []byte) error {
	if m.PublishFunc != nil {
		if err := m.PublishFunc(subject, data); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, Message{Subject: subject, Data: data})
	return nil
}

func (m *MockPublisher) Messages() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Message(nil), m.messages...)
}
