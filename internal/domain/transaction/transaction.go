package transaction

import (
	"strings"
	"time"

	domainErrors "github.com/pasarela/checkout/internal/domain/errors"
)

// Status is the local transaction state. It starts pending when the record
// is created ahead of the gateway redirect and is only mutated afterwards by
// the result poller, from the gateway-reported outcome.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusDeclined Status = "declined"
	StatusFailed   Status = "failed"
	StatusError    Status = "error"
)

// IsTerminal reports whether no further polling is meaningful.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusApproved, StatusDeclined, StatusFailed, StatusError:
		return true
	}
	return false
}

// Record correlates a local checkout attempt with the gateway-side
// transaction. Records are superseded by fresh attempts, never deleted.
type Record struct {
	Reference            string    `json:"reference"`
	GatewayTransactionID string    `json:"gateway_transaction_id,omitempty"`
	Status               Status    `json:"status"`
	AmountCents          int64     `json:"amount_cents"`
	Currency             string    `json:"currency"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// NewRecord creates a pending record for a fresh attempt.
func NewRecord(reference string, amountCents int64, currency string) (*Record, error) {
	if reference == "" {
		return nil, domainErrors.ErrNoReference
	}
	if amountCents <= 0 {
		return nil, domainErrors.NewValidationError("amount_cents", "must be greater than 0")
	}
	now := time.Now()
	return &Record{
		Reference:   reference,
		Status:      StatusPending,
		AmountCents: amountCents,
		Currency:    currency,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Resolve applies a gateway-confirmed outcome. A record that already reached
// a terminal state stays as it is; repeated resolution with the same outcome
// is a no-op, which keeps the poller's queries safe to repeat.
func (r *Record) Resolve(gatewayTxID string, status Status) error {
	if !status.IsTerminal() && status != StatusPending {
		return domainErrors.ErrInvalidStatus
	}
	if r.Status.IsTerminal() {
		if r.Status == status {
			return nil
		}
		return domainErrors.ErrCheckoutTerminal
	}
	if gatewayTxID != "" {
		r.GatewayTransactionID = gatewayTxID
	}
	r.Status = status
	r.UpdatedAt = time.Now()
	return nil
}

// NormalizeGatewayStatus maps a gateway-reported status string onto the
// local status set. Unknown values map to error rather than being dropped.
func NormalizeGatewayStatus(s string) Status {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "APPROVED":
		return StatusApproved
	case "DECLINED":
		return StatusDeclined
	case "FAILED", "VOIDED":
		return StatusFailed
	case "PENDING", "PROCESSING", "":
		return StatusPending
	default:
		return StatusError
	}
}
