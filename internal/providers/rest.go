package providers

import (
	"context"
	"net/http"

	"github.com/trngon/payment/pkg/payment"
)

// RESTDriver posts checkouts as JSON to {baseURL}/checkout/{method} through
// the gateway's HTTP client.
type RESTDriver struct {
	baseURL string
}

func NewRESTDriver(baseURL string) *RESTDriver {
	return &RESTDriver{baseURL: baseURL}
}

func (d *RESTDriver) BaseURL() string { return d.baseURL }

func (d *RESTDriver) CheckoutInternal(ctx context.Context, g *payment.Gateway, instance payment.CheckoutInstance, method payment.CheckoutMethod) (payment.CheckoutResponseData, error) {
	merchant, err := g.DefaultMerchant()
	if err != nil {
		return nil, err
	}

	client, err := g.HTTPClient()
	if err != nil {
		return nil, err
	}

	req := checkoutRequest{
		MerchantID: merchant.ID(),
		Method:     method,
		Instance:   instance,
	}

	var raw map[string]any
	if err := payment.DoJSON(ctx, client, http.MethodPost, "/checkout/"+string(method), req, &raw); err != nil {
		return nil, err
	}

	result := checkoutResult{Raw: raw}
	if err := payment.Attributes(raw).Decode(&result); err != nil {
		return nil, err
	}
	return result.responseData(), nil
}
