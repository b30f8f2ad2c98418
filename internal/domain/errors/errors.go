package errors

import (
	"errors"
	"fmt"
)

var (
	// User errors
	ErrUserNotFound   = errors.New("user not found")
	ErrDuplicateEmail = errors.New("email already registered")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")

	// Task errors
	ErrTaskNotFound        = errors.New("task not found")
	ErrTaskNotOpen         = errors.New("task is not open")
	ErrTaskAlreadyAssigned = errors.New("task already has an active assignment")
	ErrAssignmentNotFound  = errors.New("assignment not found")

	// Invoice errors
	ErrInvoiceNotFound       = errors.New("invoice not found")
	ErrInvoiceAlreadySettled = errors.New("invoice already settled")
	ErrDuplicateInvoiceItem  = errors.New("task already billed on this invoice")
	ErrCurrencyMismatch      = errors.New("currency mismatch")

	// Payment errors
	ErrPaymentNotFound    = errors.New("payment not found")
	ErrPaymentAlreadyPaid = errors.New("payment already paid")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrReceiptAlreadySent = errors.New("receipt already sent")

	// Webhook errors
	ErrSignatureVerification = errors.New("webhook signature verification failed")
	ErrMissingCorrelation    = errors.New("event carries no correlation metadata")
	ErrUnknownPayment        = errors.New("correlation id does not resolve to a payment")

	// Gateway errors
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	ErrChargeRejected     = errors.New("charge rejected by gateway")

	// Review / messaging errors
	ErrReviewNotFound       = errors.New("review not found")
	ErrDuplicateReview      = errors.New("task already reviewed by this user")
	ErrConversationNotFound = errors.New("conversation not found")

	// Idempotency errors
	ErrDuplicateIdempotencyKey = errors.New("duplicate idempotency key")

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
