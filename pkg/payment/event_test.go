package payment

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDispatcher_PublishInOrder(t *testing.T) {
	d := NewDispatcher()

	var calls []int
	d.Subscribe(EventBeforeCheckout, func(ctx context.Context, e *CheckoutEvent) { calls = append(calls, 1) })
	d.Subscribe(EventBeforeCheckout, func(ctx context.Context, e *CheckoutEvent) {
		calls = append(calls, 2)
		e.IsValid = false
	})
	d.Subscribe(EventAfterCheckout, func(ctx context.Context, e *CheckoutEvent) { calls = append(calls, 3) })

	e := &CheckoutEvent{IsValid: true}
	d.Publish(context.Background(), EventBeforeCheckout, e)

	assert.Equal(t, []int{1, 2}, calls)
	assert.False(t, e.IsValid)
	assert.Equal(t, 2, d.Len(EventBeforeCheckout))
	assert.Equal(t, 1, d.Len(EventAfterCheckout))
}

func TestDispatcher_PublishWithoutObservers(t *testing.T) {
	d := NewDispatcher()
	e := &CheckoutEvent{IsValid: true}

	d.Publish(context.Background(), EventAfterCheckout, e)

	assert.True(t, e.IsValid)
}
