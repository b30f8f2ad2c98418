package invoice

import (
	"time"

	"github.com/google/uuid"

	"github.com/tasklocal/marketplace/internal/domain/errors"
	"github.com/tasklocal/marketplace/internal/domain/payment"
)

// Invoice is a billable unit a contractor issues to a client. PaymentID is
// immutable once set: an invoice settles at most once.
type Invoice struct {
	ID           uuid.UUID
	ContractorID uuid.UUID
	ClientID     uuid.UUID
	Total        payment.Amount
	PaymentID    *uuid.UUID
	Items        []*Item
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Item is a line item under an invoice, tied to a specific task and
// assignment. Unique per (invoice, task).
type Item struct {
	ID           uuid.UUID
	InvoiceID    uuid.UUID
	TaskID       uuid.UUID
	AssignmentID uuid.UUID
	Description  string
	Amount       payment.Amount
}

// ItemInput describes a line item at invoice creation time.
type ItemInput struct {
	TaskID       uuid.UUID
	AssignmentID uuid.UUID
	Description  string
	AmountMinor  int64
}

// NewInvoice creates an unsettled invoice with the given items. The total is
// the sum of item amounts; all items share the invoice currency.
func NewInvoice(contractorID, clientID uuid.UUID, currency string, items []ItemInput) (*Invoice, error) {
	if len(items) == 0 {
		return nil, errors.NewValidationError("items", "at least one line item required")
	}
	now := time.Now()
	inv := &Invoice{
		ID:           uuid.New(),
		ContractorID: contractorID,
		ClientID:     clientID,
		Total:        payment.Amount{Currency: currency},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	seen := make(map[uuid.UUID]bool, len(items))
	for _, in := range items {
		if seen[in.TaskID] {
			return nil, errors.ErrDuplicateInvoiceItem
		}
		seen[in.TaskID] = true

		amount := payment.Amount{ValueMinor: in.AmountMinor, Currency: currency}
		if err := amount.Validate(); err != nil {
			return nil, err
		}
		inv.Items = append(inv.Items, &Item{
			ID:           uuid.New(),
			InvoiceID:    inv.ID,
			TaskID:       in.TaskID,
			AssignmentID: in.AssignmentID,
			Description:  in.Description,
			Amount:       amount,
		})
		inv.Total.ValueMinor += in.AmountMinor
	}
	return inv, nil
}

// IsSettled reports whether a payment has settled this invoice.
func (i *Invoice) IsSettled() bool {
	return i.PaymentID != nil
}
