package service

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	domainErrors "github.com/tasklocal/marketplace/internal/domain/errors"
	"github.com/tasklocal/marketplace/internal/domain/payment"
	"github.com/tasklocal/marketplace/internal/infrastructure/observability"
	"github.com/tasklocal/marketplace/pkg/retry"
)

// Receipt is the payload handed to the delivery channel for a paid payment.
type Receipt struct {
	PaymentID   uuid.UUID
	PayerEmail  string
	AmountMajor string
	Currency    string
	PaidAt      time.Time
}

// ReceiptSender delivers receipts over an external channel (email, push).
type ReceiptSender interface {
	Send(ctx context.Context, r Receipt) error
}

// LogSender writes receipts to the log. Stand-in delivery channel for
// environments without a mail provider.
type LogSender struct {
	Logger zerolog.Logger
}

func (s *LogSender) Send(ctx context.Context, r Receipt) error {
	s.Logger.Info().
		Str("payment_id", r.PaymentID.String()).
		Str("payer_email", r.PayerEmail).
		Str("amount", r.AmountMajor+" "+r.Currency).
		Time("paid_at", r.PaidAt).
		Msg("receipt delivered")
	return nil
}

// ReceiptService consumes receipt jobs for paid payments. Delivery is
// at-least-once from the stream; the conditional receipt_sent flip reduces it
// to effectively once.
type ReceiptService struct {
	paymentRepo payment.Repository
	sender      ReceiptSender
	retryCfg    retry.Config
	metrics     *observability.Metrics
	logger      zerolog.Logger
}

func NewReceiptService(
	paymentRepo payment.Repository,
	sender ReceiptSender,
	retryCfg retry.Config,
	metrics *observability.Metrics,
	logger zerolog.Logger,
) *ReceiptService {
	return &ReceiptService{
		paymentRepo: paymentRepo,
		sender:      sender,
		retryCfg:    retryCfg,
		metrics:     metrics,
		logger:      logger,
	}
}

// SendReceipt delivers the receipt for a paid payment, once. Redelivered jobs
// for a payment whose receipt already went out are acknowledged silently.
func (s *ReceiptService) SendReceipt(ctx context.Context, paymentID uuid.UUID) error {
	p, err := s.paymentRepo.GetByID(ctx, paymentID)
	if err != nil {
		return err
	}
	if !p.IsPaid || p.Result == nil {
		return domainErrors.NewDomainError(
			"receipt_before_payment",
			"receipt job references an unpaid payment",
			nil,
		)
	}
	if p.ReceiptSent {
		s.record("duplicate")
		return nil
	}

	receipt := Receipt{
		PaymentID:   p.ID,
		PayerEmail:  p.Result.PayerEmail,
		AmountMajor: p.Result.AmountMajor,
		Currency:    p.Amount.Currency,
		PaidAt:      *p.PaidAt,
	}

	if err := retry.Do(ctx, s.retryCfg, func() error {
		return s.sender.Send(ctx, receipt)
	}); err != nil {
		s.record("failed")
		return err
	}

	sentAt := time.Now()
	if err := s.paymentRepo.MarkReceiptSent(ctx, p.ID, sentAt); err != nil {
		// Another consumer delivered between our read and the flip. The
		// receipt went out twice but the record stays consistent.
		if stderrors.Is(err, domainErrors.ErrReceiptAlreadySent) {
			s.record("duplicate")
			return nil
		}
		return err
	}

	s.record("sent")
	s.logger.Info().
		Str("payment_id", p.ID.String()).
		Msg("receipt sent")
	return nil
}

func (s *ReceiptService) record(status string) {
	if s.metrics != nil {
		s.metrics.ReceiptsTotal.WithLabelValues(status).Inc()
	}
}
