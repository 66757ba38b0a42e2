package controller

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	domainErrors "github.com/pasarela/checkout/internal/domain/errors"
)

var validate = validator.New()

type errorMapping struct {
	err    error
	status int
	code   string
}

var errorMappings = []errorMapping{
	{domainErrors.ErrSessionNotFound, http.StatusNotFound, "session_not_found"},
	{domainErrors.ErrTransactionNotFound, http.StatusNotFound, "transaction_not_found"},
	{domainErrors.ErrProductNotInCart, http.StatusNotFound, "product_not_in_cart"},
	{domainErrors.ErrCartEmpty, http.StatusUnprocessableEntity, "cart_empty"},
	{domainErrors.ErrOutOfStock, http.StatusUnprocessableEntity, "out_of_stock"},
	{domainErrors.ErrInvalidStepTransition, http.StatusConflict, "invalid_step_transition"},
	{domainErrors.ErrCheckoutTerminal, http.StatusConflict, "checkout_terminal"},
	{domainErrors.ErrNoReference, http.StatusBadRequest, "no_reference"},
	{domainErrors.ErrInvalidInput, http.StatusBadRequest, "invalid_input"},
	{domainErrors.ErrIntegrityUnavailable, http.StatusServiceUnavailable, "integrity_unavailable"},
	{domainErrors.ErrBackend, http.StatusBadGateway, "backend_unavailable"},
	{domainErrors.ErrNetwork, http.StatusBadGateway, "network_error"},
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	resp := ErrorResponse{Error: err.Error()}

	var validationErr *domainErrors.ValidationError
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

	var domainErr *domainErrors.DomainError
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
		return domainErrors.NewValidationError("body", "invalid JSON: "+err.Error())
	}
	if err := validate.Struct(dst); err != nil {
		if ve, ok := err.(validator.ValidationErrors); ok && len(ve) > 0 {
			return domainErrors.NewValidationError(ve[0].Field(), ve[0].Tag()+" validation failed")
		}
		return domainErrors.NewValidationError("body", err.Error())
	}
	return nil
}
