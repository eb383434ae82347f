package controller

import (
	"github.com/trngon/payment/internal/providers"
	"github.com/trngon/payment/pkg/payment"
)

// --- Request DTOs ---

// CheckoutRequest is the body of POST /api/v1/gateways/{gateway}/checkout.
// Instance is the checkout instance mapping; a "type" key selects a
// registered instance type, otherwise the method's default applies.
type CheckoutRequest struct {
	Method   string         `json:"method" validate:"omitempty,oneof=internet_banking tel_card"`
	Instance map[string]any `json:"instance" validate:"required"`
}

// --- Response DTOs ---

// GatewayResponse describes a configured gateway.
type GatewayResponse struct {
	Name            string `json:"name"`
	BaseURL         string `json:"base_url"`
	DefaultMerchant string `json:"default_merchant,omitempty"`
}

// MerchantResponse is one entry of a gateway's merchant registry.
type MerchantResponse struct {
	Key   any    `json:"key"`
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// CheckoutResponse is returned for a completed checkout.
type CheckoutResponse struct {
	Gateway       string         `json:"gateway"`
	Method        string         `json:"method"`
	OK            bool           `json:"ok"`
	TransactionID string         `json:"transaction_id,omitempty"`
	RedirectURL   string         `json:"redirect_url,omitempty"`
	Message       string         `json:"message,omitempty"`
	Raw           map[string]any `json:"raw,omitempty"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// --- Conversion helpers ---

// FromMerchantEntry converts a resolved registry entry to API response.
func FromMerchantEntry(e payment.MerchantEntry) MerchantResponse {
	m := e.Descriptor.Merchant()
	resp := MerchantResponse{Key: e.ID, ID: m.ID()}
	if pm, ok := m.(*providers.Merchant); ok {
		resp.Name = pm.Name
		resp.Email = pm.Email
	}
	return resp
}

// FromCheckout converts a driver response to API response.
func FromCheckout(gateway string, method payment.CheckoutMethod, data payment.CheckoutResponseData) CheckoutResponse {
	resp := CheckoutResponse{
		Gateway: gateway,
		Method:  string(method),
		OK:      data.IsOK(),
	}
	if rd, ok := data.(*payment.ResponseData); ok {
		resp.TransactionID = rd.TransactionID
		resp.RedirectURL = rd.RedirectURL
		resp.Message = rd.Message
		resp.Raw = rd.Raw
	}
	return resp
}
