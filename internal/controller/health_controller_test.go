package controller

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trngon/payment/internal/providers"
	"github.com/trngon/payment/pkg/payment"
)

type fakeBroker struct{ connected bool }

func (b fakeBroker) IsConnected() bool { return b.connected }

func TestHealthController_Health(t *testing.T) {
	h := NewHealthController(providers.NewFactory(), nil)

	for path, handler := range map[string]http.HandlerFunc{
		"ok":    h.Health,
		"alive": h.Liveness,
	} {
		w := httptest.NewRecorder()
		handler(w, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"status":"`+path+`"}`, w.Body.String())
	}
}

func TestHealthController_Readiness(t *testing.T) {
	empty, err := payment.NewGateway(payment.Config{Name: "empty", Driver: providers.NewMockDriver("empty")})
	require.NoError(t, err)

	tests := []struct {
		name       string
		gateways   []*payment.Gateway
		broker     ConnectionChecker
		wantStatus int
		wantReason string
	}{
		{"ready", []*payment.Gateway{newTestGateway(t, "vnpay")}, nil, http.StatusOK, ""},
		{"broker connected", []*payment.Gateway{newTestGateway(t, "vnpay")}, fakeBroker{true}, http.StatusOK, ""},
		{"broker down", []*payment.Gateway{newTestGateway(t, "vnpay")}, fakeBroker{false}, http.StatusServiceUnavailable, "nats unavailable"},
		{"gateway without merchants", []*payment.Gateway{newTestGateway(t, "vnpay"), empty}, nil, http.StatusServiceUnavailable, "gateway empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthController(providers.NewFactory(tt.gateways...), tt.broker)

			w := httptest.NewRecorder()
			h.Readiness(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantReason != "" {
				assert.Contains(t, w.Body.String(), tt.wantReason)
			}
		})
	}
}
