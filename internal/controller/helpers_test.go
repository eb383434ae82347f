package controller

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trngon/payment/internal/providers"
	"github.com/trngon/payment/pkg/payment"
)

func TestWriteJSON(t *testing.T) {
	w := httptest.NewRecorder()
	writeJSON(w, http.StatusCreated, ErrorResponse{Error: "bad request", Code: "invalid_input"})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error":"bad request","code":"invalid_input"}`, w.Body.String())
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"validation", payment.NewValidationError("order_id", "required"), http.StatusBadRequest, "validation_error"},
		{"wrapped validation", fmt.Errorf("%w: %w", payment.ErrInvalidConfiguration, payment.NewValidationError("serial", "required")), http.StatusBadRequest, "validation_error"},
		{"gateway not found", payment.NewDomainError("gateway_not_found", "unknown gateway", providers.ErrGatewayNotFound), http.StatusNotFound, "gateway_not_found"},
		{"merchant not found", payment.NewDomainError("merchant_not_found", "merchant 3", payment.ErrMerchantNotFound), http.StatusNotFound, "merchant_not_found"},
		{"invalid argument", payment.ErrInvalidArgument, http.StatusBadRequest, "invalid_argument"},
		{"invalid configuration", payment.ErrInvalidConfiguration, http.StatusBadRequest, "invalid_configuration"},
		{"rejected", payment.NewDomainError("provider_error", "declined", payment.ErrProviderRejected), http.StatusPaymentRequired, "provider_rejected"},
		{"unavailable", fmt.Errorf("%w: breaker open", payment.ErrProviderUnavailable), http.StatusServiceUnavailable, "provider_unavailable"},
		{"deadline", fmt.Errorf("call provider: %w", context.DeadlineExceeded), http.StatusGatewayTimeout, "timeout"},
		{"other domain error", payment.NewDomainError("limit_reached", "daily limit", nil), http.StatusUnprocessableEntity, "limit_reached"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			writeError(w, tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)
			resp := decodeBody[ErrorResponse](t, w)
			assert.Equal(t, tt.wantCode, resp.Code)
		})
	}
}

func TestWriteError_HidesInternalDetails(t *testing.T) {
	w := httptest.NewRecorder()
	writeError(w, errors.New("db password is hunter2"))

	assert.NotContains(t, w.Body.String(), "hunter2")
	assert.Contains(t, w.Body.String(), "internal server error")
}

func TestDecodeAndValidate(t *testing.T) {
	var req CheckoutRequest
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"method":"tel_card","instance":{"order_id":"o"}}`))

	require.NoError(t, decodeAndValidate(r, &req))
	assert.Equal(t, "tel_card", req.Method)
	assert.Equal(t, "o", req.Instance["order_id"])

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"method":"cash","instance":{}}`))
	err := decodeAndValidate(r, &CheckoutRequest{})
	var ve *payment.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "Method", ve.Field)
}
