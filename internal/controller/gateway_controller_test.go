package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trngon/payment/internal/infrastructure/observability"
	"github.com/trngon/payment/internal/middleware"
	"github.com/trngon/payment/internal/providers"
	"github.com/trngon/payment/internal/testutil"
	"github.com/trngon/payment/pkg/payment"
)

func newTestGateway(t *testing.T, name string, opts ...providers.MockDriverOption) *payment.Gateway {
	t.Helper()
	opts = append([]providers.MockDriverOption{providers.WithLatency(0)}, opts...)
	g, err := payment.NewGateway(payment.Config{
		Name:      name,
		Driver:    providers.NewMockDriver(name, opts...),
		Merchants: providers.NewMerchantFactory(),
	})
	require.NoError(t, err)
	require.NoError(t, g.SetMerchant("main", payment.ByConfig(payment.Attributes{
		"type":  providers.MerchantType,
		"id":    name + "-merchant",
		"name":  "Main shop",
		"email": "shop@example.com",
	})))
	g.AddMerchant(payment.ByConfig(payment.Attributes{"type": providers.MerchantType, "id": "backup"}))
	return g
}

type testServer struct {
	router   http.Handler
	registry *prometheus.Registry
}

func newTestServer(t *testing.T, secret string, gateways ...*payment.Gateway) *testServer {
	t.Helper()
	reg := prometheus.NewRegistry()
	router := NewRouter(RouterDeps{
		Gateways:  providers.NewFactory(gateways...),
		Metrics:   observability.NewMetrics("test", reg),
		Gatherer:  reg,
		JWTSecret: secret,
	})
	return &testServer{router: router, registry: reg}
}

func (s *testServer) do(method, path string, body any, header http.Header) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

func TestGatewayController_ListGateways(t *testing.T) {
	s := newTestServer(t, "", newTestGateway(t, "vnpay"), newTestGateway(t, "momo"))

	w := s.do(http.MethodGet, "/api/v1/gateways", nil, nil)

	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeBody[[]GatewayResponse](t, w)
	require.Len(t, resp, 2)
	assert.Equal(t, "momo", resp[0].Name)
	assert.Equal(t, "https://momo.mock.local", resp[0].BaseURL)
	assert.Equal(t, "momo-merchant", resp[0].DefaultMerchant)
	assert.Equal(t, "vnpay", resp[1].Name)
}

func TestGatewayController_ListMerchants(t *testing.T) {
	s := newTestServer(t, "", newTestGateway(t, "vnpay"))

	w := s.do(http.MethodGet, "/api/v1/gateways/vnpay/merchants", nil, nil)

	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeBody[[]MerchantResponse](t, w)
	require.Len(t, resp, 2)
	assert.Equal(t, "main", resp[0].Key)
	assert.Equal(t, "vnpay-merchant", resp[0].ID)
	assert.Equal(t, "Main shop", resp[0].Name)
	assert.Equal(t, float64(0), resp[1].Key)
	assert.Equal(t, "backup", resp[1].ID)
}

func TestGatewayController_UnknownGateway(t *testing.T) {
	s := newTestServer(t, "", newTestGateway(t, "vnpay"))

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/v1/gateways/nope/merchants"},
		{http.MethodPost, "/api/v1/gateways/nope/checkout"},
	} {
		w := s.do(tc.method, tc.path, CheckoutRequest{Instance: map[string]any{"order_id": "o"}}, nil)
		assert.Equal(t, http.StatusNotFound, w.Code, tc.path)
		assert.Equal(t, "gateway_not_found", decodeBody[ErrorResponse](t, w).Code)
	}
}

func TestGatewayController_Checkout(t *testing.T) {
	tests := []struct {
		name         string
		req          CheckoutRequest
		wantMethod   string
		wantRedirect bool
	}{
		{
			name:         "default method is internet banking",
			req:          CheckoutRequest{Instance: testutil.BankInstance("ord-1", 10000)},
			wantMethod:   "internet_banking",
			wantRedirect: true,
		},
		{
			name: "tel card",
			req: CheckoutRequest{
				Method:   "tel_card",
				Instance: testutil.TelCardInstance("ord-2", 50000),
			},
			wantMethod: "tel_card",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, "", newTestGateway(t, "vnpay"))

			w := s.do(http.MethodPost, "/api/v1/gateways/vnpay/checkout", tt.req, nil)

			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			resp := decodeBody[CheckoutResponse](t, w)
			assert.True(t, resp.OK)
			assert.Equal(t, "vnpay", resp.Gateway)
			assert.Equal(t, tt.wantMethod, resp.Method)
			assert.NotEmpty(t, resp.TransactionID)
			assert.Equal(t, "vnpay-merchant", resp.Raw["merchant_id"])
			assert.Equal(t, tt.wantRedirect, resp.RedirectURL != "")
		})
	}
}

func TestGatewayController_Checkout_PassesNormalizedInstance(t *testing.T) {
	driver := testutil.NewMockDriver("https://provider.test")
	s := newTestServer(t, "", testutil.NewTestGateway(t, "momo", driver))

	w := s.do(http.MethodPost, "/api/v1/gateways/momo/checkout",
		CheckoutRequest{Method: "tel_card", Instance: testutil.TelCardInstance("ord-3", 20000)}, nil)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	calls := driver.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, payment.MethodTelCard, calls[0].Method)
	card, ok := calls[0].Instance.(*payment.TelCardCheckoutInstance)
	require.True(t, ok, "got %T", calls[0].Instance)
	assert.Equal(t, "ord-3", card.OrderID)
	assert.Equal(t, int64(20000), card.Amount)
	assert.Equal(t, "viettel", card.Provider)
}

func TestGatewayController_Checkout_RejectsFractionalAmount(t *testing.T) {
	driver := testutil.NewMockDriver("https://provider.test")
	s := newTestServer(t, "", testutil.NewTestGateway(t, "momo", driver))

	w := s.do(http.MethodPost, "/api/v1/gateways/momo/checkout", map[string]any{
		"instance": map[string]any{"order_id": "ord-4", "amount": 100.9},
	}, nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_configuration", decodeBody[ErrorResponse](t, w).Code)
	assert.Empty(t, driver.Calls())

	w = s.do(http.MethodPost, "/api/v1/gateways/momo/checkout", map[string]any{
		"instance": map[string]any{"order_id": "ord-5", "amount": 100.0},
	}, nil)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	calls := driver.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, int64(100), calls[0].Instance.Base().Amount)
}

func TestGatewayController_Checkout_InvalidInstanceSkipsDriver(t *testing.T) {
	driver := testutil.NewMockDriver("https://provider.test")
	s := newTestServer(t, "", testutil.NewTestGateway(t, "momo", driver))

	w := s.do(http.MethodPost, "/api/v1/gateways/momo/checkout", CheckoutRequest{
		Method:   "tel_card",
		Instance: map[string]any{"order_id": "ord-6", "provider": "viettel", "serial": "1"},
	}, nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeBody[ErrorResponse](t, w)
	assert.Equal(t, "validation_error", resp.Code)
	assert.Empty(t, driver.Calls())
}

func TestGatewayController_Checkout_BadRequests(t *testing.T) {
	tests := []struct {
		name     string
		body     any
		wantCode string
	}{
		{"invalid json", "{not json", "validation_error"},
		{"missing instance", CheckoutRequest{Method: "tel_card"}, "validation_error"},
		{"unknown method", CheckoutRequest{Method: "crypto", Instance: map[string]any{"order_id": "o"}}, "validation_error"},
		{"invalid instance", CheckoutRequest{Instance: map[string]any{"amount": 5}}, "validation_error"},
		{"unknown instance type", CheckoutRequest{Instance: map[string]any{"type": "voucher", "order_id": "o"}}, "invalid_configuration"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, "", newTestGateway(t, "vnpay"))

			var w *httptest.ResponseRecorder
			if raw, ok := tt.body.(string); ok {
				req := httptest.NewRequest(http.MethodPost, "/api/v1/gateways/vnpay/checkout", strings.NewReader(raw))
				w = httptest.NewRecorder()
				s.router.ServeHTTP(w, req)
			} else {
				w = s.do(http.MethodPost, "/api/v1/gateways/vnpay/checkout", tt.body, nil)
			}

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.wantCode, decodeBody[ErrorResponse](t, w).Code)
		})
	}
}

func TestGatewayController_Checkout_Vetoed(t *testing.T) {
	g := newTestGateway(t, "vnpay")
	g.On(payment.EventBeforeCheckout, func(_ context.Context, e *payment.CheckoutEvent) {
		if e.Instance.Base().Amount > 1_000_000 {
			e.IsValid = false
		}
	})
	s := newTestServer(t, "", g)

	w := s.do(http.MethodPost, "/api/v1/gateways/vnpay/checkout",
		CheckoutRequest{Instance: map[string]any{"order_id": "big", "amount": 5_000_000}}, nil)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "checkout_vetoed", decodeBody[ErrorResponse](t, w).Code)
}

func TestGatewayController_Checkout_ProviderErrors(t *testing.T) {
	tests := []struct {
		name       string
		opt        providers.MockDriverOption
		wantStatus int
		wantCode   string
	}{
		{"rejected", providers.WithFailureRate(1), http.StatusPaymentRequired, "provider_rejected"},
		{"unavailable", providers.WithTimeoutRate(1), http.StatusServiceUnavailable, "provider_unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, "", newTestGateway(t, "vnpay", tt.opt))

			w := s.do(http.MethodPost, "/api/v1/gateways/vnpay/checkout",
				CheckoutRequest{Instance: map[string]any{"order_id": "o-1"}}, nil)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantCode, decodeBody[ErrorResponse](t, w).Code)
		})
	}
}

func TestGatewayController_Checkout_RequiresAuth(t *testing.T) {
	const secret = "0123456789abcdef0123456789abcdef"
	s := newTestServer(t, secret, newTestGateway(t, "vnpay"))
	body := CheckoutRequest{Instance: map[string]any{"order_id": "o-1"}}

	w := s.do(http.MethodPost, "/api/v1/gateways/vnpay/checkout", body, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, middleware.Claims{
		ClientID: "shop",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}).SignedString([]byte(secret))
	require.NoError(t, err)

	w = s.do(http.MethodPost, "/api/v1/gateways/vnpay/checkout", body,
		http.Header{"Authorization": {"Bearer " + token}})
	assert.Equal(t, http.StatusOK, w.Code)

	// Read endpoints stay public.
	w = s.do(http.MethodGet, "/api/v1/gateways", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_MetricsEndpoint(t *testing.T) {
	s := newTestServer(t, "", newTestGateway(t, "vnpay"))

	s.do(http.MethodPost, "/api/v1/gateways/vnpay/checkout",
		CheckoutRequest{Instance: map[string]any{"order_id": "o-1"}}, nil)
	w := s.do(http.MethodGet, "/metrics", nil, nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "test_http_requests_total")
	assert.Contains(t, w.Body.String(), `path="/api/v1/gateways/{gateway}/checkout"`)
}
