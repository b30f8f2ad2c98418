package invoice

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the interface for invoice persistence.
type Repository interface {
	// Create inserts an invoice with its items.
	Create(ctx context.Context, inv *Invoice) error

	// GetByID retrieves an invoice and its items.
	GetByID(ctx context.Context, id uuid.UUID) (*Invoice, error)

	// List lists invoices with filters.
	List(ctx context.Context, filter ListFilter) ([]*Invoice, error)

	// Settle links the given invoices to the payment that settled them, as a
	// conditional write guarded on payment_id IS NULL. Already-settled
	// invoices are left untouched; the number of rows updated is returned.
	Settle(ctx context.Context, paymentID uuid.UUID, invoiceIDs []uuid.UUID) (int64, error)
}

// ListFilter defines filters for listing invoices.
type ListFilter struct {
	ContractorID *uuid.UUID
	ClientID     *uuid.UUID
	Settled      *bool
	Limit        int
	Offset       int
}
