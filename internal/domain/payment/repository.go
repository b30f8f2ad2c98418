package payment

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for payment persistence.
type Repository interface {
	// Create inserts a new pending payment.
	Create(ctx context.Context, p *Payment) error

	// GetByID retrieves a payment by ID.
	GetByID(ctx context.Context, id uuid.UUID) (*Payment, error)

	// List lists payments with filters.
	List(ctx context.Context, filter ListFilter) ([]*Payment, error)

	// MarkPaid applies the pending-to-paid transition as a conditional write
	// guarded on is_paid = false. It returns ErrPaymentAlreadyPaid when the
	// payment exists but the guard did not match, and ErrPaymentNotFound when
	// it does not exist. Exactly one concurrent caller observes nil.
	MarkPaid(ctx context.Context, id uuid.UUID, result Result, paidAt time.Time) error

	// MarkReceiptSent flips the receipt flag as a conditional write guarded on
	// receipt_sent = false, with the same contract as MarkPaid.
	MarkReceiptSent(ctx context.Context, id uuid.UUID, sentAt time.Time) error
}

// ListFilter defines filters for listing payments.
type ListFilter struct {
	UserID *uuid.UUID
	Paid   *bool
	Limit  int
	Offset int
}
