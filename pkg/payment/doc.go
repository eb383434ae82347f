// Package payment is a provider-neutral layer for online payment gateways.
//
// A Gateway owns an ordered registry of merchants, resolves the default
// merchant, binds a lazily built HTTP client to its driver's base URL and
// dispatches checkouts:
//
//	data, ok, err := gw.Checkout(ctx, payment.Attributes{
//	    "order_id": "A-1001",
//	    "amount":   50000,
//	}, payment.MethodInternetBanking)
//
// Observers subscribed to EventBeforeCheckout may veto a checkout by
// clearing CheckoutEvent.IsValid, in which case ok is false and the driver
// is never called.
package payment
