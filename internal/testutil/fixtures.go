package testutil

import (
	"testing"

	"github.com/trngon/payment/internal/providers"
	"github.com/trngon/payment/pkg/payment"
)

// NewTestGateway creates a gateway around driver with one configured
// merchant, "<name>-merchant", registered under key "main".
func NewTestGateway(t testing.TB, name string, driver payment.Driver) *payment.Gateway {
	t.Helper()
	g, err := payment.NewGateway(payment.Config{
		Name:      name,
		Driver:    driver,
		Merchants: providers.NewMerchantFactory(),
	})
	if err != nil {
		t.Fatalf("create gateway %q: %v", name, err)
	}
	err = g.SetMerchant("main", payment.ByConfig(payment.Attributes{
		payment.TypeKey: providers.MerchantType,
		"id":            name + "-merchant",
	}))
	if err != nil {
		t.Fatalf("register merchant: %v", err)
	}
	return g
}

func BankInstance(orderID string, amount int64) map[string]any {
	return map[string]any{
		"order_id": orderID,
		"amount":   amount,
		"currency": "VND",
	}
}

func TelCardInstance(orderID string, amount int64) map[string]any {
	return map[string]any{
		"order_id": orderID,
		"amount":   amount,
		"provider": "viettel",
		"serial":   "10001234567",
		"pin_code": "123456789",
	}
}
