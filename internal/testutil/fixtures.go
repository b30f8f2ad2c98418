package testutil

import (
	"time"

	"github.com/google/uuid"

	"github.com/tasklocal/marketplace/internal/domain/invoice"
	"github.com/tasklocal/marketplace/internal/domain/payment"
	"github.com/tasklocal/marketplace/internal/domain/task"
	"github.com/tasklocal/marketplace/internal/domain/user"
)

func NewTestUser(role user.Role) *user.User {
	now := time.Now()
	id := uuid.New()
	return &user.User{
		ID:        id,
		Email:     id.String()[:8] + "@example.com",
		Name:      "Test " + string(role),
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func NewTestTask(clientID uuid.UUID, status task.Status) *task.Task {
	now := time.Now()
	return &task.Task{
		ID:          uuid.New(),
		ClientID:    clientID,
		Title:       "Fix kitchen sink",
		Description: "Leaking under the counter",
		Category:    "plumbing",
		Status:      status,
		Budget:      payment.Amount{ValueMinor: 15000, Currency: "USD"},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func NewTestAssignment(taskID, contractorID uuid.UUID, status task.AssignmentStatus) *task.Assignment {
	now := time.Now()
	return &task.Assignment{
		ID:           uuid.New(),
		TaskID:       taskID,
		ContractorID: contractorID,
		Status:       status,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// NewTestInvoice builds an unsettled single-item invoice.
func NewTestInvoice(contractorID, clientID uuid.UUID, amountMinor int64, currency string) *invoice.Invoice {
	now := time.Now()
	inv := &invoice.Invoice{
		ID:           uuid.New(),
		ContractorID: contractorID,
		ClientID:     clientID,
		Total:        payment.Amount{ValueMinor: amountMinor, Currency: currency},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	inv.Items = []*invoice.Item{{
		ID:           uuid.New(),
		InvoiceID:    inv.ID,
		TaskID:       uuid.New(),
		AssignmentID: uuid.New(),
		Description:  "work performed",
		Amount:       inv.Total,
	}}
	return inv
}

// NewTestPayment builds a pending payment over the given invoices.
func NewTestPayment(userID uuid.UUID, amountMinor int64, currency string, invoiceIDs ...uuid.UUID) *payment.Payment {
	if len(invoiceIDs) == 0 {
		invoiceIDs = []uuid.UUID{uuid.New()}
	}
	now := time.Now()
	return &payment.Payment{
		ID:         uuid.New(),
		UserID:     userID,
		Amount:     payment.Amount{ValueMinor: amountMinor, Currency: currency},
		Method:     payment.MethodCard,
		InvoiceIDs: invoiceIDs,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// NewPaidPayment builds a payment that already went through reconciliation.
func NewPaidPayment(userID uuid.UUID, amountMinor int64, currency string) *payment.Payment {
	p := NewTestPayment(userID, amountMinor, currency)
	paidAt := time.Now()
	p.IsPaid = true
	p.PaidAt = &paidAt
	p.Result = &payment.Result{
		ExternalID:  "ch_" + uuid.New().String()[:8],
		Status:      "succeeded",
		PayerEmail:  "payer@example.com",
		AmountMajor: p.Amount.MajorUnits(),
		CapturedAt:  paidAt,
	}
	return p
}
