package errors

import (
	"errors"
	"fmt"
)

var (
	// Cart errors
	ErrCartEmpty        = errors.New("cart is empty")
	ErrProductNotInCart = errors.New("product not in cart")
	ErrOutOfStock       = errors.New("product out of stock")

	// Checkout errors
	ErrInvalidStepTransition = errors.New("invalid step transition")
	ErrCheckoutTerminal      = errors.New("checkout attempt already finished")

	// Session errors
	ErrSessionNotFound = errors.New("session not found")

	// Transaction errors
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrNoReference         = errors.New("no transaction reference")
	ErrInvalidStatus       = errors.New("invalid transaction status")

	// Gateway/backend errors
	ErrIntegrityUnavailable = errors.New("integrity signing unavailable")
	ErrBackend              = errors.New("backend request failed")
	ErrNetwork              = errors.New("network failure")

	// Lock errors
	ErrLockAcquisitionFailed = errors.New("failed to acquire lock")

	// Validation errors
	ErrValidationFailed = errors.New("validation failed")
	ErrInvalidInput     = errors.New("invalid input")
)

// DomainError wraps errors with additional context
type DomainError struct {
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// ValidationError represents a field-level validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
}

// NewValidationError creates a new validation error
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}
