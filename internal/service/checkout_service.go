package service

import (
	"context"
	stderrors "errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"

	domainErrors "github.com/tasklocal/marketplace/internal/domain/errors"
	"github.com/tasklocal/marketplace/internal/domain/invoice"
	"github.com/tasklocal/marketplace/internal/domain/payment"
	"github.com/tasklocal/marketplace/internal/gateway"
	"github.com/tasklocal/marketplace/internal/infrastructure/observability"
)

// CheckoutService creates pending payments for unsettled invoices and
// initiates the matching charge with the payment provider. The payment id is
// embedded in the charge metadata so the provider's eventual webhook can be
// correlated back.
type CheckoutService struct {
	paymentRepo payment.Repository
	invoiceRepo invoice.Repository
	userEmail   EmailResolver
	client      gateway.Client
	metrics     *observability.Metrics
	logger      zerolog.Logger
}

// EmailResolver looks up the payer email for charge creation.
type EmailResolver interface {
	EmailByUserID(ctx context.Context, userID uuid.UUID) (string, error)
}

func NewCheckoutService(
	paymentRepo payment.Repository,
	invoiceRepo invoice.Repository,
	userEmail EmailResolver,
	client gateway.Client,
	metrics *observability.Metrics,
	logger zerolog.Logger,
) *CheckoutService {
	return &CheckoutService{
		paymentRepo: paymentRepo,
		invoiceRepo: invoiceRepo,
		userEmail:   userEmail,
		client:      client,
		metrics:     metrics,
		logger:      logger,
	}
}

// CheckoutRequest holds the input for starting a checkout.
type CheckoutRequest struct {
	UserID     uuid.UUID
	InvoiceIDs []uuid.UUID
	Method     payment.Method
}

// CheckoutResponse holds the created payment and the provider charge id.
type CheckoutResponse struct {
	Payment  *payment.Payment
	ChargeID string
}

// Checkout validates the invoices, records a pending payment, and creates the
// provider charge. The payment stays pending until the provider's
// charge.succeeded webhook reconciles it; checkout never flips the paid flag
// itself.
func (s *CheckoutService) Checkout(ctx context.Context, req CheckoutRequest) (*CheckoutResponse, error) {
	if req.Method != payment.MethodCard && req.Method != payment.MethodBankTransfer {
		return nil, domainErrors.NewValidationError("method", "must be card or bank_transfer")
	}
	if len(req.InvoiceIDs) == 0 {
		return nil, domainErrors.NewValidationError("invoice_ids", "at least one invoice required")
	}

	total, err := s.collectInvoices(ctx, req.UserID, req.InvoiceIDs)
	if err != nil {
		s.recordCheckoutError(err)
		return nil, err
	}

	p, err := payment.NewPayment(req.UserID, total, req.Method, req.InvoiceIDs)
	if err != nil {
		return nil, err
	}

	if err := s.paymentRepo.Create(ctx, p); err != nil {
		return nil, err
	}

	payerEmail, err := s.userEmail.EmailByUserID(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	charge, err := s.client.CreateCharge(ctx, gateway.ChargeRequest{
		PaymentID:   p.ID.String(),
		AmountMinor: total.ValueMinor,
		Currency:    total.Currency,
		PayerEmail:  payerEmail,
		Description: "invoice settlement",
	})
	if err != nil {
		s.recordCheckoutError(err)
		if stderrors.Is(err, gobreaker.ErrOpenState) || stderrors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, domainErrors.NewDomainError(
				"gateway_unavailable",
				"payment provider is unavailable, try again later",
				domainErrors.ErrGatewayUnavailable,
			)
		}
		return nil, domainErrors.NewDomainError(
			"charge_rejected",
			"payment provider rejected the charge",
			domainErrors.ErrChargeRejected,
		)
	}

	if s.metrics != nil {
		s.metrics.CheckoutsTotal.WithLabelValues(string(req.Method), "pending").Inc()
		s.metrics.PendingPayments.Inc()
	}
	s.logger.Info().
		Str("payment_id", p.ID.String()).
		Str("charge_id", charge.ID).
		Str("amount", total.String()).
		Msg("checkout initiated")

	return &CheckoutResponse{Payment: p, ChargeID: charge.ID}, nil
}

// collectInvoices loads and validates the invoices for a checkout: each must
// exist, belong to the paying client, be unsettled, and share one currency.
// The returned amount is the sum of invoice totals.
func (s *CheckoutService) collectInvoices(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (payment.Amount, error) {
	var total payment.Amount
	seen := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			return payment.Amount{}, domainErrors.NewValidationError("invoice_ids", "duplicate invoice id")
		}
		seen[id] = true

		inv, err := s.invoiceRepo.GetByID(ctx, id)
		if err != nil {
			return payment.Amount{}, err
		}
		if inv.ClientID != userID {
			return payment.Amount{}, domainErrors.ErrForbidden
		}
		if inv.IsSettled() {
			return payment.Amount{}, domainErrors.ErrInvoiceAlreadySettled
		}
		if total.Currency == "" {
			total.Currency = inv.Total.Currency
		} else if total.Currency != inv.Total.Currency {
			return payment.Amount{}, domainErrors.ErrCurrencyMismatch
		}
		total.ValueMinor += inv.Total.ValueMinor
	}
	return total, nil
}

// GetPayment returns a payment visible to its owner (or an admin, enforced by
// the caller).
func (s *CheckoutService) GetPayment(ctx context.Context, id uuid.UUID) (*payment.Payment, error) {
	return s.paymentRepo.GetByID(ctx, id)
}

// ListPayments lists payments for a user.
func (s *CheckoutService) ListPayments(ctx context.Context, filter payment.ListFilter) ([]*payment.Payment, error) {
	return s.paymentRepo.List(ctx, filter)
}

func (s *CheckoutService) recordCheckoutError(err error) {
	if s.metrics == nil {
		return
	}
	errType := "internal"
	var de *domainErrors.DomainError
	if stderrors.As(err, &de) {
		errType = de.Code
	}
	s.metrics.CheckoutErrors.WithLabelValues(errType).Inc()
}
