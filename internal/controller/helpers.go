package controller

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"github.com/trngon/payment/internal/providers"
	"github.com/trngon/payment/pkg/payment"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type errorMapping struct {
	err    error
	status int
	code   string
}

var errorMappings = []errorMapping{
	{providers.ErrGatewayNotFound, http.StatusNotFound, "gateway_not_found"},
	{payment.ErrMerchantNotFound, http.StatusNotFound, "merchant_not_found"},
	{payment.ErrInvalidArgument, http.StatusBadRequest, "invalid_argument"},
	{payment.ErrInvalidConfiguration, http.StatusBadRequest, "invalid_configuration"},
	{payment.ErrProviderRejected, http.StatusPaymentRequired, "provider_rejected"},
	{payment.ErrProviderUnavailable, http.StatusServiceUnavailable, "provider_unavailable"},
	{context.DeadlineExceeded, http.StatusGatewayTimeout, "timeout"},
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	resp := ErrorResponse{Error: err.Error()}

	var validationErr *payment.ValidationError
	if errors.As(err, &validationErr) {
		resp.Code = "validation_error"
		writeJSON(w, http.StatusBadRequest, resp)
		return
	}

	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			resp.Code = m.code
			writeJSON(w, m.status, resp)
			return
		}
	}

	var domainErr *payment.DomainError
	if errors.As(err, &domainErr) {
		resp.Code = domainErr.Code
		writeJSON(w, http.StatusUnprocessableEntity, resp)
		return
	}

	log.Error().Err(err).Msg("unhandled error in handler")
	resp.Code = "internal_error"
	resp.Error = "internal server error"
	writeJSON(w, http.StatusInternalServerError, resp)
}

func decodeAndValidate(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return payment.NewValidationError("body", "invalid JSON: "+err.Error())
	}
	if err := validate.Struct(dst); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) && len(ve) > 0 {
			return payment.NewValidationError(ve[0].Field(), ve[0].Tag()+" validation failed")
		}
		return payment.NewValidationError("body", err.Error())
	}
	return nil
}
