package service

import (
	"context"

	"github.com/google/uuid"

	domainErrors "github.com/tasklocal/marketplace/internal/domain/errors"
	"github.com/tasklocal/marketplace/internal/domain/invoice"
	"github.com/tasklocal/marketplace/internal/domain/task"
)

// InvoiceService handles invoice issuance and lookup.
type InvoiceService struct {
	invoiceRepo invoice.Repository
	taskRepo    task.Repository
	txManager   TransactionManager
}

func NewInvoiceService(invoiceRepo invoice.Repository, taskRepo task.Repository, txManager TransactionManager) *InvoiceService {
	return &InvoiceService{invoiceRepo: invoiceRepo, taskRepo: taskRepo, txManager: txManager}
}

// CreateInvoiceRequest holds the input for issuing an invoice.
type CreateInvoiceRequest struct {
	ContractorID uuid.UUID
	ClientID     uuid.UUID
	Currency     string
	Items        []invoice.ItemInput
}

// CreateInvoice issues an invoice from a contractor to a client. Every line
// item must reference a completed assignment held by the contractor on a task
// owned by the client.
func (s *InvoiceService) CreateInvoice(ctx context.Context, req CreateInvoiceRequest) (*invoice.Invoice, error) {
	for _, item := range req.Items {
		a, err := s.taskRepo.GetAssignment(ctx, item.AssignmentID)
		if err != nil {
			return nil, err
		}
		if a.TaskID != item.TaskID || a.ContractorID != req.ContractorID {
			return nil, domainErrors.ErrForbidden
		}
		if a.Status != task.AssignmentCompleted {
			return nil, domainErrors.NewValidationError("items", "assignment is not completed")
		}

		t, err := s.taskRepo.GetByID(ctx, item.TaskID)
		if err != nil {
			return nil, err
		}
		if t.ClientID != req.ClientID {
			return nil, domainErrors.NewValidationError("client_id", "task does not belong to this client")
		}
	}

	inv, err := invoice.NewInvoice(req.ContractorID, req.ClientID, req.Currency, req.Items)
	if err != nil {
		return nil, err
	}
	if err := s.invoiceRepo.Create(ctx, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

// GetInvoice returns an invoice with its items.
func (s *InvoiceService) GetInvoice(ctx context.Context, id uuid.UUID) (*invoice.Invoice, error) {
	return s.invoiceRepo.GetByID(ctx, id)
}

// ListInvoices lists invoices with filters.
func (s *InvoiceService) ListInvoices(ctx context.Context, filter invoice.ListFilter) ([]*invoice.Invoice, error) {
	return s.invoiceRepo.List(ctx, filter)
}
