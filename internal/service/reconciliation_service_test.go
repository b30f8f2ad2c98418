package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainErrors "github.com/tasklocal/marketplace/internal/domain/errors"
	"github.com/tasklocal/marketplace/internal/domain/outbox"
	"github.com/tasklocal/marketplace/internal/domain/payment"
	"github.com/tasklocal/marketplace/internal/gateway"
	"github.com/tasklocal/marketplace/internal/testutil"
)

const webhookTestSecret = "whsec_test_secret"

type reconcileFixture struct {
	paymentRepo *testutil.MockPaymentRepository
	invoiceRepo *testutil.MockInvoiceRepository
	outboxRepo  *testutil.MockOutboxRepository
	txManager   *testutil.MockTxManager
	service     *ReconciliationService
}

func newReconcileFixture() *reconcileFixture {
	f := &reconcileFixture{
		paymentRepo: testutil.NewMockPaymentRepository(),
		invoiceRepo: testutil.NewMockInvoiceRepository(),
		outboxRepo:  testutil.NewMockOutboxRepository(),
		txManager:   &testutil.MockTxManager{},
	}
	f.service = NewReconciliationService(
		f.paymentRepo,
		f.invoiceRepo,
		f.outboxRepo,
		f.txManager,
		webhookTestSecret,
		5*time.Minute,
		nil,
		zerolog.Nop(),
	)
	return f
}

// chargeEvent renders a signed provider event. Overrides mutate the charge
// before signing.
func chargeEvent(t *testing.T, eventType string, p *payment.Payment, overrides ...func(map[string]any)) ([]byte, string) {
	t.Helper()
	charge := map[string]any{
		"id":          "ch_" + uuid.New().String()[:8],
		"amount":      p.Amount.ValueMinor,
		"currency":    p.Amount.Currency,
		"status":      "succeeded",
		"payer_email": "payer@example.com",
		"captured_at": time.Now().Unix(),
		"metadata":    map[string]string{gateway.MetadataPaymentID: p.ID.String()},
	}
	for _, o := range overrides {
		o(charge)
	}
	body, err := json.Marshal(map[string]any{
		"id":      "evt_" + uuid.New().String()[:8],
		"type":    eventType,
		"created": time.Now().Unix(),
		"data":    charge,
	})
	require.NoError(t, err)
	return body, gateway.Sign(body, webhookTestSecret, time.Now())
}

func TestReconciliation_ChargeSucceeded(t *testing.T) {
	f := newReconcileFixture()
	ctx := context.Background()

	invoiceID := uuid.New()
	inv := testutil.NewTestInvoice(uuid.New(), uuid.New(), 12345, "USD")
	inv.ID = invoiceID
	require.NoError(t, f.invoiceRepo.Create(ctx, inv))

	p := testutil.NewTestPayment(inv.ClientID, 12345, "USD", invoiceID)
	require.NoError(t, f.paymentRepo.Create(ctx, p))

	body, sig := chargeEvent(t, gateway.EventChargeSucceeded, p)
	require.NoError(t, f.service.HandleEvent(ctx, body, sig))

	got, err := f.paymentRepo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, got.IsPaid)
	require.NotNil(t, got.PaidAt)
	require.NotNil(t, got.Result)
	assert.Equal(t, "succeeded", got.Result.Status)
	assert.Equal(t, "payer@example.com", got.Result.PayerEmail)
	assert.Equal(t, "123.45", got.Result.AmountMajor)

	settled, err := f.invoiceRepo.GetByID(ctx, invoiceID)
	require.NoError(t, err)
	require.NotNil(t, settled.PaymentID)
	assert.Equal(t, p.ID, *settled.PaymentID)

	require.Len(t, f.outboxRepo.Entries, 1)
	entry := f.outboxRepo.Entries[0]
	assert.Equal(t, outbox.EventReceiptRequested, entry.EventType)
	assert.Equal(t, p.ID, entry.AggregateID)
	assert.Equal(t, p.ID.String(), entry.Payload["payment_id"])
	assert.Equal(t, "123.45", entry.Payload["amount_major"])
}

func TestReconciliation_DuplicateDeliveryAcknowledged(t *testing.T) {
	f := newReconcileFixture()
	ctx := context.Background()

	p := testutil.NewPaidPayment(uuid.New(), 12345, "USD")
	require.NoError(t, f.paymentRepo.Create(ctx, p))
	originalExternal := p.Result.ExternalID

	body, sig := chargeEvent(t, gateway.EventChargeSucceeded, p)
	require.NoError(t, f.service.HandleEvent(ctx, body, sig))

	got, err := f.paymentRepo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, originalExternal, got.Result.ExternalID)
	assert.Empty(t, f.outboxRepo.Entries, "duplicate must not enqueue a second receipt")
}

func TestReconciliation_LostRaceAcknowledged(t *testing.T) {
	f := newReconcileFixture()
	ctx := context.Background()

	p := testutil.NewTestPayment(uuid.New(), 12345, "USD")
	require.NoError(t, f.paymentRepo.Create(ctx, p))

	// Another delivery commits between our read and the conditional update.
	f.paymentRepo.MarkPaidFunc = func(ctx context.Context, id uuid.UUID, result payment.Result, paidAt time.Time) error {
		return domainErrors.ErrPaymentAlreadyPaid
	}

	body, sig := chargeEvent(t, gateway.EventChargeSucceeded, p)
	assert.NoError(t, f.service.HandleEvent(ctx, body, sig))
}

func TestReconciliation_MissingCorrelation(t *testing.T) {
	f := newReconcileFixture()
	p := testutil.NewTestPayment(uuid.New(), 12345, "USD")

	body, sig := chargeEvent(t, gateway.EventChargeSucceeded, p, func(c map[string]any) {
		c["metadata"] = map[string]string{"shopId": "s-1"}
	})

	err := f.service.HandleEvent(context.Background(), body, sig)
	assert.ErrorIs(t, err, domainErrors.ErrMissingCorrelation)
}

func TestReconciliation_LegacyOrderIDAlias(t *testing.T) {
	f := newReconcileFixture()
	ctx := context.Background()

	p := testutil.NewTestPayment(uuid.New(), 12345, "USD")
	require.NoError(t, f.paymentRepo.Create(ctx, p))

	body, sig := chargeEvent(t, gateway.EventChargeSucceeded, p, func(c map[string]any) {
		c["metadata"] = map[string]string{gateway.MetadataOrderID: p.ID.String()}
	})
	require.NoError(t, f.service.HandleEvent(ctx, body, sig))

	got, err := f.paymentRepo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, got.IsPaid)
}

func TestReconciliation_UnknownPayment(t *testing.T) {
	f := newReconcileFixture()
	p := testutil.NewTestPayment(uuid.New(), 12345, "USD")

	tests := []struct {
		name     string
		override func(map[string]any)
	}{
		{
			name: "malformed payment id",
			override: func(c map[string]any) {
				c["metadata"] = map[string]string{gateway.MetadataPaymentID: "not-a-uuid"}
			},
		},
		{
			name:     "payment does not exist",
			override: func(c map[string]any) {}, // valid uuid, never stored
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, sig := chargeEvent(t, gateway.EventChargeSucceeded, p, tt.override)
			err := f.service.HandleEvent(context.Background(), body, sig)
			assert.ErrorIs(t, err, domainErrors.ErrUnknownPayment)
		})
	}
}

func TestReconciliation_ChargeMismatch(t *testing.T) {
	tests := []struct {
		name     string
		override func(map[string]any)
		wantErr  error
	}{
		{
			name:     "amount mismatch",
			override: func(c map[string]any) { c["amount"] = 99999 },
			wantErr:  domainErrors.ErrInvalidAmount,
		},
		{
			name:     "currency mismatch",
			override: func(c map[string]any) { c["currency"] = "EUR" },
			wantErr:  domainErrors.ErrCurrencyMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newReconcileFixture()
			ctx := context.Background()

			p := testutil.NewTestPayment(uuid.New(), 12345, "USD")
			require.NoError(t, f.paymentRepo.Create(ctx, p))

			body, sig := chargeEvent(t, gateway.EventChargeSucceeded, p, tt.override)
			err := f.service.HandleEvent(ctx, body, sig)
			assert.ErrorIs(t, err, tt.wantErr)

			// A mismatched charge must never settle anything.
			got, err := f.paymentRepo.GetByID(ctx, p.ID)
			require.NoError(t, err)
			assert.False(t, got.IsPaid)
			assert.Empty(t, f.outboxRepo.Entries)
		})
	}
}

func TestReconciliation_NonSucceededEventsAcknowledged(t *testing.T) {
	f := newReconcileFixture()
	ctx := context.Background()

	p := testutil.NewTestPayment(uuid.New(), 12345, "USD")
	require.NoError(t, f.paymentRepo.Create(ctx, p))

	for _, eventType := range []string{gateway.EventChargeFailed, gateway.EventChargeRefunded, "customer.created"} {
		body, sig := chargeEvent(t, eventType, p)
		assert.NoError(t, f.service.HandleEvent(ctx, body, sig), eventType)
	}

	got, err := f.paymentRepo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.False(t, got.IsPaid)
	assert.Empty(t, f.outboxRepo.Entries)
}

func TestReconciliation_BadSignatureRejected(t *testing.T) {
	f := newReconcileFixture()
	p := testutil.NewTestPayment(uuid.New(), 12345, "USD")

	body, _ := chargeEvent(t, gateway.EventChargeSucceeded, p)
	sig := gateway.Sign(body, "wrong-secret", time.Now())

	err := f.service.HandleEvent(context.Background(), body, sig)
	assert.ErrorIs(t, err, domainErrors.ErrSignatureVerification)
}

func TestReconciliation_TransactionRollsUpErrors(t *testing.T) {
	f := newReconcileFixture()
	ctx := context.Background()

	p := testutil.NewTestPayment(uuid.New(), 12345, "USD")
	require.NoError(t, f.paymentRepo.Create(ctx, p))

	f.txManager.WithTransactionFunc = func(ctx context.Context, fn func(ctx context.Context) error) error {
		return assert.AnError
	}

	body, sig := chargeEvent(t, gateway.EventChargeSucceeded, p)
	err := f.service.HandleEvent(ctx, body, sig)
	assert.ErrorIs(t, err, assert.AnError)
}
