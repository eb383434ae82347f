package payment

import (
	"errors"
	"fmt"
)

var (
	// Registry errors
	ErrInvalidArgument      = errors.New("invalid argument")
	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrMerchantNotFound     = errors.New("merchant not found")

	// Provider errors
	ErrProviderRejected    = errors.New("checkout rejected by provider")
	ErrProviderUnavailable = errors.New("payment provider unavailable")
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

// ValidationError represents a validation error
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

func invalidArgument(message string) error {
	return NewDomainError("invalid_argument", message, ErrInvalidArgument)
}

// invalidConfiguration keeps both the sentinel and the cause reachable via errors.Is.
func invalidConfiguration(message string, cause error) error {
	if cause == nil {
		return NewDomainError("invalid_configuration", message, ErrInvalidConfiguration)
	}
	return NewDomainError("invalid_configuration", message, fmt.Errorf("%w: %w", ErrInvalidConfiguration, cause))
}
