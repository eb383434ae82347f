package controller

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
	"github.com/trngon/payment/internal/infrastructure/observability"
	"github.com/trngon/payment/internal/middleware"
	"github.com/trngon/payment/internal/providers"
	"github.com/trngon/payment/pkg/payment"
)

type GatewayController struct {
	gateways *providers.Factory
	metrics  *observability.Metrics
}

func NewGatewayController(gateways *providers.Factory, metrics *observability.Metrics) *GatewayController {
	return &GatewayController{gateways: gateways, metrics: metrics}
}

// ListGateways handles GET /api/v1/gateways.
func (c *GatewayController) ListGateways(w http.ResponseWriter, r *http.Request) {
	names := c.gateways.Names()
	resp := make([]GatewayResponse, 0, len(names))
	for _, name := range names {
		g, err := c.gateways.Get(name)
		if err != nil {
			continue
		}
		item := GatewayResponse{Name: name, BaseURL: g.BaseURL()}
		if m, err := g.DefaultMerchant(); err == nil {
			item.DefaultMerchant = m.ID()
		}
		resp = append(resp, item)
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListMerchants handles GET /api/v1/gateways/{gateway}/merchants.
func (c *GatewayController) ListMerchants(w http.ResponseWriter, r *http.Request) {
	g, err := c.gateways.Get(chi.URLParam(r, "gateway"))
	if err != nil {
		writeError(w, err)
		return
	}

	entries, err := g.Merchants(true)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := make([]MerchantResponse, 0, len(entries))
	for _, e := range entries {
		resp = append(resp, FromMerchantEntry(e))
	}
	writeJSON(w, http.StatusOK, resp)
}

// Checkout handles POST /api/v1/gateways/{gateway}/checkout.
func (c *GatewayController) Checkout(w http.ResponseWriter, r *http.Request) {
	g, err := c.gateways.Get(chi.URLParam(r, "gateway"))
	if err != nil {
		writeError(w, err)
		return
	}

	var req CheckoutRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}
	method := payment.CheckoutMethod(req.Method)
	if method == "" {
		method = payment.MethodInternetBanking
	}

	if c.metrics != nil {
		c.metrics.ActiveCheckouts.Inc()
		defer c.metrics.ActiveCheckouts.Dec()
	}

	instance, err := g.PrepareCheckoutInstance(req.Instance, method)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := instance.Validate(); err != nil {
		writeError(w, err)
		return
	}

	data, ok, err := g.Checkout(r.Context(), instance, method)
	if err != nil {
		writeError(w, err)
		return
	}
	if !ok {
		clientID, _ := middleware.GetClientID(r.Context())
		log.Info().
			Str("gateway", g.Name()).
			Str("method", string(method)).
			Str("client_id", clientID).
			Msg("checkout vetoed")
		writeJSON(w, http.StatusConflict, ErrorResponse{
			Error: "checkout was vetoed before reaching the provider",
			Code:  "checkout_vetoed",
		})
		return
	}

	writeJSON(w, http.StatusOK, FromCheckout(g.Name(), method, data))
}
