package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainErrors "github.com/tasklocal/marketplace/internal/domain/errors"
	"github.com/tasklocal/marketplace/internal/testutil"
	"github.com/tasklocal/marketplace/pkg/retry"
)

type recordingSender struct {
	sent []Receipt
	errs []error // consumed in order; nil entries mean success
}

func (s *recordingSender) Send(ctx context.Context, r Receipt) error {
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		if err != nil {
			return err
		}
	}
	s.sent = append(s.sent, r)
	return nil
}

func fastRetryConfig() retry.Config {
	return retry.Config{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		MaxDelay:     time.Millisecond,
		Multiplier:   1.0,
	}
}

func newReceiptService(repo *testutil.MockPaymentRepository, sender ReceiptSender) *ReceiptService {
	return NewReceiptService(repo, sender, fastRetryConfig(), nil, zerolog.Nop())
}

func TestSendReceipt_Success(t *testing.T) {
	repo := testutil.NewMockPaymentRepository()
	sender := &recordingSender{}
	svc := newReceiptService(repo, sender)
	ctx := context.Background()

	p := testutil.NewPaidPayment(uuid.New(), 12345, "USD")
	require.NoError(t, repo.Create(ctx, p))

	require.NoError(t, svc.SendReceipt(ctx, p.ID))

	require.Len(t, sender.sent, 1)
	r := sender.sent[0]
	assert.Equal(t, p.ID, r.PaymentID)
	assert.Equal(t, p.Result.PayerEmail, r.PayerEmail)
	assert.Equal(t, "123.45", r.AmountMajor)
	assert.Equal(t, "USD", r.Currency)

	got, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, got.ReceiptSent)
	require.NotNil(t, got.ReceiptSentAt)
}

func TestSendReceipt_UnpaidPaymentRejected(t *testing.T) {
	repo := testutil.NewMockPaymentRepository()
	sender := &recordingSender{}
	svc := newReceiptService(repo, sender)
	ctx := context.Background()

	p := testutil.NewTestPayment(uuid.New(), 12345, "USD")
	require.NoError(t, repo.Create(ctx, p))

	err := svc.SendReceipt(ctx, p.ID)
	require.Error(t, err)
	var derr *domainErrors.DomainError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, "receipt_before_payment", derr.Code)
	assert.Empty(t, sender.sent)
}

func TestSendReceipt_UnknownPayment(t *testing.T) {
	repo := testutil.NewMockPaymentRepository()
	svc := newReceiptService(repo, &recordingSender{})

	err := svc.SendReceipt(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domainErrors.ErrPaymentNotFound)
}

func TestSendReceipt_RedeliveredJobAcknowledged(t *testing.T) {
	repo := testutil.NewMockPaymentRepository()
	sender := &recordingSender{}
	svc := newReceiptService(repo, sender)
	ctx := context.Background()

	p := testutil.NewPaidPayment(uuid.New(), 12345, "USD")
	require.NoError(t, repo.Create(ctx, p))

	require.NoError(t, svc.SendReceipt(ctx, p.ID))
	require.NoError(t, svc.SendReceipt(ctx, p.ID))

	assert.Len(t, sender.sent, 1, "redelivery must not resend")
}

func TestSendReceipt_LostFlipRaceAcknowledged(t *testing.T) {
	repo := testutil.NewMockPaymentRepository()
	sender := &recordingSender{}
	svc := newReceiptService(repo, sender)
	ctx := context.Background()

	p := testutil.NewPaidPayment(uuid.New(), 12345, "USD")
	require.NoError(t, repo.Create(ctx, p))

	// Another consumer flips the flag between our read and the update.
	repo.MarkReceiptSentFunc = func(ctx context.Context, id uuid.UUID, sentAt time.Time) error {
		return domainErrors.ErrReceiptAlreadySent
	}

	assert.NoError(t, svc.SendReceipt(ctx, p.ID))
}

func TestSendReceipt_RetriesTransientFailures(t *testing.T) {
	repo := testutil.NewMockPaymentRepository()
	sender := &recordingSender{errs: []error{assert.AnError, assert.AnError, nil}}
	svc := newReceiptService(repo, sender)
	ctx := context.Background()

	p := testutil.NewPaidPayment(uuid.New(), 12345, "USD")
	require.NoError(t, repo.Create(ctx, p))

	require.NoError(t, svc.SendReceipt(ctx, p.ID))
	assert.Len(t, sender.sent, 1)
}

func TestSendReceipt_ExhaustedRetriesLeaveFlagUnset(t *testing.T) {
	repo := testutil.NewMockPaymentRepository()
	sender := &recordingSender{errs: []error{assert.AnError, assert.AnError, assert.AnError}}
	svc := newReceiptService(repo, sender)
	ctx := context.Background()

	p := testutil.NewPaidPayment(uuid.New(), 12345, "USD")
	require.NoError(t, repo.Create(ctx, p))

	err := svc.SendReceipt(ctx, p.ID)
	assert.ErrorIs(t, err, assert.AnError)

	// The job stays redeliverable.
	got, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.False(t, got.ReceiptSent)
}
