package payment

import (
	"context"
	"sync"
)

// EventKind names a checkout hook point.
type EventKind string

const (
	EventBeforeCheckout EventKind = "beforeCheckout"
	EventAfterCheckout  EventKind = "afterCheckout"
)

// CheckoutEvent is created once per Checkout call and handed to observers.
// Before-checkout observers veto by setting IsValid to false.
type CheckoutEvent struct {
	Gateway      *Gateway
	Instance     CheckoutInstance
	Method       CheckoutMethod
	IsValid      bool
	ResponseData CheckoutResponseData
}

// Observer receives checkout events synchronously and may mutate them.
type Observer func(ctx context.Context, e *CheckoutEvent)

// Dispatcher delivers events to observers in subscription order.
type Dispatcher struct {
	mu        sync.RWMutex
	observers map[EventKind][]Observer
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{observers: make(map[EventKind][]Observer)}
}

// Subscribe appends an observer for kind.
func (d *Dispatcher) Subscribe(kind EventKind, o Observer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.observers[kind] = append(d.observers[kind], o)
}

// Publish calls every observer of kind in order and returns once all have returned.
func (d *Dispatcher) Publish(ctx context.Context, kind EventKind, e *CheckoutEvent) {
	d.mu.RLock()
	observers := make([]Observer, len(d.observers[kind]))
	copy(observers, d.observers[kind])
	d.mu.RUnlock()

	for _, o := range observers {
		o(ctx, e)
	}
}

// Len returns the number of observers subscribed to kind.
func (d *Dispatcher) Len(kind EventKind) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.observers[kind])
}
