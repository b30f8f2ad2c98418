package service

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	domainErrors "github.com/tasklocal/marketplace/internal/domain/errors"
	"github.com/tasklocal/marketplace/internal/domain/invoice"
	"github.com/tasklocal/marketplace/internal/domain/outbox"
	"github.com/tasklocal/marketplace/internal/domain/payment"
	"github.com/tasklocal/marketplace/internal/gateway"
	"github.com/tasklocal/marketplace/internal/infrastructure/observability"
)

// ReconciliationService consumes verified gateway events and reconciles them
// against internal payment state. The paid transition, invoice settlement and
// the receipt outbox entry commit in one transaction, so concurrent deliveries
// of the same event resolve to exactly one winner at the database.
type ReconciliationService struct {
	paymentRepo payment.Repository
	invoiceRepo invoice.Repository
	outboxRepo  outbox.Repository
	txManager   TransactionManager
	secret      string
	tolerance   time.Duration
	metrics     *observability.Metrics
	logger      zerolog.Logger
}

func NewReconciliationService(
	paymentRepo payment.Repository,
	invoiceRepo invoice.Repository,
	outboxRepo outbox.Repository,
	txManager TransactionManager,
	secret string,
	tolerance time.Duration,
	metrics *observability.Metrics,
	logger zerolog.Logger,
) *ReconciliationService {
	return &ReconciliationService{
		paymentRepo: paymentRepo,
		invoiceRepo: invoiceRepo,
		outboxRepo:  outboxRepo,
		txManager:   txManager,
		secret:      secret,
		tolerance:   tolerance,
		metrics:     metrics,
		logger:      logger,
	}
}

// HandleEvent verifies the raw webhook body against its signature header and
// dispatches the decoded event. The raw bytes are verified before any parsing.
//
// The handled event set is closed: charge.succeeded reconciles the payment,
// charge.failed and charge.refunded are logged, and anything else is
// acknowledged without action so new provider event types never fail
// deliveries.
func (s *ReconciliationService) HandleEvent(ctx context.Context, rawBody []byte, sigHeader string) error {
	ctx, span := observability.StartSpan(ctx, "reconciliation.handle_event")
	defer span.End()

	ev, err := gateway.VerifyEventWithTolerance(rawBody, sigHeader, s.secret, s.tolerance, time.Now())
	if err != nil {
		s.recordVerifyFailure(err)
		return err
	}

	start := time.Now()
	switch ev.Type {
	case gateway.EventChargeSucceeded:
		err = s.reconcileSucceeded(ctx, ev)
	case gateway.EventChargeFailed:
		s.logger.Warn().
			Str("event_id", ev.ID).
			Str("charge_id", ev.Data.ID).
			Str("charge_status", ev.Data.Status).
			Msg("charge failed at provider")
	case gateway.EventChargeRefunded:
		s.logger.Warn().
			Str("event_id", ev.ID).
			Str("charge_id", ev.Data.ID).
			Msg("charge refunded at provider, manual review required")
	default:
		s.logger.Debug().
			Str("event_id", ev.ID).
			Str("event_type", ev.Type).
			Msg("ignoring unhandled event type")
	}

	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	if s.metrics != nil {
		s.metrics.WebhookEventsTotal.WithLabelValues(ev.Type, outcome).Inc()
		s.metrics.ReconciliationDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
	}
	return err
}

// reconcileSucceeded applies a successful charge to its payment:
//
//  1. resolve the payment from the charge correlation metadata
//  2. check the charge amount against the payment amount
//  3. in one transaction: flip the payment to paid, settle its invoices,
//     and record the receipt job in the outbox
//
// A redelivery after the transition has committed is acknowledged as a
// success without touching state.
func (s *ReconciliationService) reconcileSucceeded(ctx context.Context, ev *gateway.Event) error {
	correlationID, ok := ev.Data.CorrelationID()
	if !ok {
		s.recordReconciliation("missing_correlation")
		return domainErrors.NewDomainError(
			"missing_correlation",
			"charge metadata carries no payment reference",
			domainErrors.ErrMissingCorrelation,
		)
	}

	paymentID, err := uuid.Parse(correlationID)
	if err != nil {
		s.recordReconciliation("unknown_payment")
		return domainErrors.NewDomainError(
			"unknown_payment",
			"charge metadata references a malformed payment id",
			domainErrors.ErrUnknownPayment,
		)
	}

	p, err := s.paymentRepo.GetByID(ctx, paymentID)
	if err != nil {
		if stderrors.Is(err, domainErrors.ErrPaymentNotFound) {
			s.recordReconciliation("unknown_payment")
			return domainErrors.NewDomainError(
				"unknown_payment",
				"charge references a payment this system does not know",
				domainErrors.ErrUnknownPayment,
			)
		}
		return err
	}

	// Duplicate delivery after a committed transition: acknowledge.
	if p.IsPaid {
		s.recordReconciliation("duplicate")
		s.logger.Info().
			Str("payment_id", p.ID.String()).
			Str("event_id", ev.ID).
			Msg("payment already paid, acknowledging duplicate delivery")
		return nil
	}

	if err := s.checkChargeMatches(p, ev.Data); err != nil {
		s.recordReconciliation("mismatch")
		return err
	}

	paidAt := ev.Data.Captured()
	result := payment.Result{
		ExternalID: ev.Data.ID,
		Status:     ev.Data.Status,
		PayerEmail: ev.Data.PayerEmail,
		AmountMajor: payment.Amount{
			ValueMinor: ev.Data.AmountMinor,
			Currency:   ev.Data.Currency,
		}.MajorUnits(),
		CapturedAt: paidAt,
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.paymentRepo.MarkPaid(txCtx, p.ID, result, paidAt); err != nil {
			return err
		}

		settled, err := s.invoiceRepo.Settle(txCtx, p.ID, p.InvoiceIDs)
		if err != nil {
			return err
		}
		if settled != int64(len(p.InvoiceIDs)) {
			s.logger.Warn().
				Str("payment_id", p.ID.String()).
				Int64("settled", settled).
				Int("expected", len(p.InvoiceIDs)).
				Msg("some invoices were already settled")
		}

		entry := outbox.NewEntry("payment", p.ID, outbox.EventReceiptRequested, map[string]any{
			"payment_id":   p.ID.String(),
			"payer_email":  result.PayerEmail,
			"amount_major": result.AmountMajor,
			"currency":     p.Amount.Currency,
		})
		return s.outboxRepo.Insert(txCtx, entry)
	})
	if err != nil {
		// A concurrent delivery won the conditional update between our read
		// and the transaction. That is the same terminal state, so ack.
		if stderrors.Is(err, domainErrors.ErrPaymentAlreadyPaid) {
			s.recordReconciliation("duplicate")
			s.logger.Info().
				Str("payment_id", p.ID.String()).
				Str("event_id", ev.ID).
				Msg("lost reconciliation race, acknowledging")
			return nil
		}
		return err
	}

	s.recordReconciliation("paid")
	s.logger.Info().
		Str("payment_id", p.ID.String()).
		Str("charge_id", ev.Data.ID).
		Str("amount", result.AmountMajor).
		Msg("payment reconciled")
	return nil
}

// checkChargeMatches rejects charges whose amount or currency disagrees with
// the payment they reference. Such events indicate a wiring bug or tampering
// and must never settle invoices.
func (s *ReconciliationService) checkChargeMatches(p *payment.Payment, c gateway.Charge) error {
	if c.Currency != p.Amount.Currency {
		return domainErrors.NewDomainError(
			"currency_mismatch",
			"charge currency does not match payment",
			domainErrors.ErrCurrencyMismatch,
		)
	}
	if c.AmountMinor != p.Amount.ValueMinor {
		return domainErrors.NewDomainError(
			"amount_mismatch",
			"charge amount does not match payment",
			domainErrors.ErrInvalidAmount,
		)
	}
	return nil
}

func (s *ReconciliationService) recordReconciliation(result string) {
	if s.metrics != nil {
		s.metrics.ReconciliationsTotal.WithLabelValues(result).Inc()
	}
}

func (s *ReconciliationService) recordVerifyFailure(err error) {
	if s.metrics == nil {
		return
	}
	reason := "bad_signature"
	var de *domainErrors.DomainError
	if stderrors.As(err, &de) {
		reason = de.Code
	}
	s.metrics.WebhookVerifyFailures.WithLabelValues(reason).Inc()
	s.metrics.WebhookEventsTotal.WithLabelValues("unverified", "rejected").Inc()
}
