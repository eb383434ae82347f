package providers

import (
	"github.com/trngon/payment/pkg/payment"
)

// checkoutRequest is the body the REST driver posts to a provider.
type checkoutRequest struct {
	MerchantID string                   `json:"merchant_id"`
	Method     payment.CheckoutMethod   `json:"method"`
	Instance   payment.CheckoutInstance `json:"instance"`
}

// checkoutResult is the provider's reply to a checkout.
type checkoutResult struct {
	OK            bool           `mapstructure:"ok"`
	TransactionID string         `mapstructure:"transaction_id"`
	RedirectURL   string         `mapstructure:"redirect_url"`
	Message       string         `mapstructure:"message"`
	Raw           map[string]any `mapstructure:"-"`
}

func (r *checkoutResult) responseData() *payment.ResponseData {
	return &payment.ResponseData{
		OK:            r.OK,
		TransactionID: r.TransactionID,
		RedirectURL:   r.RedirectURL,
		Message:       r.Message,
		Raw:           r.Raw,
	}
}
