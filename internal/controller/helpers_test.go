package controller

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	domainErrors "github.com/pasarela/checkout/internal/domain/errors"
)

func TestWriteError_Mappings(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"session not found", domainErrors.ErrSessionNotFound, 404, "session_not_found"},
		{"cart empty", domainErrors.ErrCartEmpty, 422, "cart_empty"},
		{"out of stock", domainErrors.ErrOutOfStock, 422, "out_of_stock"},
		{"invalid transition", domainErrors.ErrInvalidStepTransition, 409, "invalid_step_transition"},
		{"terminal attempt", domainErrors.ErrCheckoutTerminal, 409, "checkout_terminal"},
		{"integrity unavailable", domainErrors.ErrIntegrityUnavailable, 503, "integrity_unavailable"},
		{"network", domainErrors.ErrNetwork, 502, "network_error"},
		{"wrapped sentinel", errors.Join(errors.New("context"), domainErrors.ErrCartEmpty), 422, "cart_empty"},
		{"validation error", domainErrors.NewValidationError("email", "must contain @"), 400, "validation_error"},
		{"domain error", domainErrors.NewDomainError("custom_code", "custom", nil), 422, "custom_code"},
		{"unknown error", errors.New("boom"), 500, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeError(rec, tt.err)

			if rec.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
			var resp ErrorResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("decode error response: %v", err)
			}
			if resp.Code != tt.wantCode {
				t.Errorf("expected code %q, got %q", tt.wantCode, resp.Code)
			}
		})
	}
}

func TestWriteError_InternalErrorHidesDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, errors.New("pgx: connection refused at 10.0.0.3"))

	var resp ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	if resp.Error != "internal server error" {
		t.Errorf("internal details leaked: %q", resp.Error)
	}
}
