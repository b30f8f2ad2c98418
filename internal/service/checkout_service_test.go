package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainErrors "github.com/tasklocal/marketplace/internal/domain/errors"
	"github.com/tasklocal/marketplace/internal/domain/payment"
	"github.com/tasklocal/marketplace/internal/gateway"
	"github.com/tasklocal/marketplace/internal/testutil"
)

type stubEmailResolver struct {
	email string
	err   error
}

func (s *stubEmailResolver) EmailByUserID(ctx context.Context, userID uuid.UUID) (string, error) {
	return s.email, s.err
}

type stubGatewayClient struct {
	lastRequest gateway.ChargeRequest
	charge      *gateway.Charge
	err         error
}

func (s *stubGatewayClient) Name() string { return "stub" }

func (s *stubGatewayClient) CreateCharge(ctx context.Context, req gateway.ChargeRequest) (*gateway.Charge, error) {
	s.lastRequest = req
	if s.err != nil {
		return nil, s.err
	}
	if s.charge != nil {
		return s.charge, nil
	}
	return &gateway.Charge{
		ID:          "ch_stub",
		AmountMinor: req.AmountMinor,
		Currency:    req.Currency,
		Status:      "pending",
		Metadata:    map[string]string{gateway.MetadataPaymentID: req.PaymentID},
	}, nil
}

type checkoutFixture struct {
	paymentRepo *testutil.MockPaymentRepository
	invoiceRepo *testutil.MockInvoiceRepository
	client      *stubGatewayClient
	service     *CheckoutService
}

func newCheckoutFixture() *checkoutFixture {
	f := &checkoutFixture{
		paymentRepo: testutil.NewMockPaymentRepository(),
		invoiceRepo: testutil.NewMockInvoiceRepository(),
		client:      &stubGatewayClient{},
	}
	f.service = NewCheckoutService(
		f.paymentRepo,
		f.invoiceRepo,
		&stubEmailResolver{email: "client@example.com"},
		f.client,
		nil,
		zerolog.Nop(),
	)
	return f
}

func TestCheckout_Success(t *testing.T) {
	f := newCheckoutFixture()
	ctx := context.Background()
	clientID := uuid.New()

	inv1 := testutil.NewTestInvoice(uuid.New(), clientID, 10000, "USD")
	inv2 := testutil.NewTestInvoice(uuid.New(), clientID, 2345, "USD")
	require.NoError(t, f.invoiceRepo.Create(ctx, inv1))
	require.NoError(t, f.invoiceRepo.Create(ctx, inv2))

	resp, err := f.service.Checkout(ctx, CheckoutRequest{
		UserID:     clientID,
		InvoiceIDs: []uuid.UUID{inv1.ID, inv2.ID},
		Method:     payment.MethodCard,
	})
	require.NoError(t, err)

	// The payment totals the invoices and stays pending until the webhook.
	assert.Equal(t, int64(12345), resp.Payment.Amount.ValueMinor)
	assert.Equal(t, "USD", resp.Payment.Amount.Currency)
	assert.False(t, resp.Payment.IsPaid)
	assert.Equal(t, "ch_stub", resp.ChargeID)

	// The charge carries the payment id for webhook correlation.
	assert.Equal(t, resp.Payment.ID.String(), f.client.lastRequest.PaymentID)
	assert.Equal(t, int64(12345), f.client.lastRequest.AmountMinor)
	assert.Equal(t, "client@example.com", f.client.lastRequest.PayerEmail)

	stored, err := f.paymentRepo.GetByID(ctx, resp.Payment.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsPaid)
}

func TestCheckout_Validation(t *testing.T) {
	f := newCheckoutFixture()
	ctx := context.Background()
	clientID := uuid.New()

	inv := testutil.NewTestInvoice(uuid.New(), clientID, 10000, "USD")
	require.NoError(t, f.invoiceRepo.Create(ctx, inv))

	tests := []struct {
		name string
		req  CheckoutRequest
	}{
		{
			name: "unknown method",
			req:  CheckoutRequest{UserID: clientID, InvoiceIDs: []uuid.UUID{inv.ID}, Method: "crypto"},
		},
		{
			name: "no invoices",
			req:  CheckoutRequest{UserID: clientID, Method: payment.MethodCard},
		},
		{
			name: "duplicate invoice ids",
			req:  CheckoutRequest{UserID: clientID, InvoiceIDs: []uuid.UUID{inv.ID, inv.ID}, Method: payment.MethodCard},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.service.Checkout(ctx, tt.req)
			var verr *domainErrors.ValidationError
			assert.ErrorAs(t, err, &verr)
		})
	}
}

func TestCheckout_InvoiceRejections(t *testing.T) {
	ctx := context.Background()
	clientID := uuid.New()

	t.Run("invoice of another client", func(t *testing.T) {
		f := newCheckoutFixture()
		inv := testutil.NewTestInvoice(uuid.New(), uuid.New(), 10000, "USD")
		require.NoError(t, f.invoiceRepo.Create(ctx, inv))

		_, err := f.service.Checkout(ctx, CheckoutRequest{UserID: clientID, InvoiceIDs: []uuid.UUID{inv.ID}, Method: payment.MethodCard})
		assert.ErrorIs(t, err, domainErrors.ErrForbidden)
	})

	t.Run("already settled invoice", func(t *testing.T) {
		f := newCheckoutFixture()
		inv := testutil.NewTestInvoice(uuid.New(), clientID, 10000, "USD")
		paymentID := uuid.New()
		inv.PaymentID = &paymentID
		require.NoError(t, f.invoiceRepo.Create(ctx, inv))

		_, err := f.service.Checkout(ctx, CheckoutRequest{UserID: clientID, InvoiceIDs: []uuid.UUID{inv.ID}, Method: payment.MethodCard})
		assert.ErrorIs(t, err, domainErrors.ErrInvoiceAlreadySettled)
	})

	t.Run("mixed currencies", func(t *testing.T) {
		f := newCheckoutFixture()
		inv1 := testutil.NewTestInvoice(uuid.New(), clientID, 10000, "USD")
		inv2 := testutil.NewTestInvoice(uuid.New(), clientID, 10000, "EUR")
		require.NoError(t, f.invoiceRepo.Create(ctx, inv1))
		require.NoError(t, f.invoiceRepo.Create(ctx, inv2))

		_, err := f.service.Checkout(ctx, CheckoutRequest{UserID: clientID, InvoiceIDs: []uuid.UUID{inv1.ID, inv2.ID}, Method: payment.MethodCard})
		assert.ErrorIs(t, err, domainErrors.ErrCurrencyMismatch)
	})

	t.Run("unknown invoice", func(t *testing.T) {
		f := newCheckoutFixture()
		_, err := f.service.Checkout(ctx, CheckoutRequest{UserID: clientID, InvoiceIDs: []uuid.UUID{uuid.New()}, Method: payment.MethodCard})
		assert.ErrorIs(t, err, domainErrors.ErrInvoiceNotFound)
	})
}

func TestCheckout_GatewayErrors(t *testing.T) {
	ctx := context.Background()
	clientID := uuid.New()

	tests := []struct {
		name      string
		clientErr error
		wantErr   error
	}{
		{
			name:      "breaker open maps to gateway unavailable",
			clientErr: gobreaker.ErrOpenState,
			wantErr:   domainErrors.ErrGatewayUnavailable,
		},
		{
			name:      "breaker half-open overflow maps to gateway unavailable",
			clientErr: gobreaker.ErrTooManyRequests,
			wantErr:   domainErrors.ErrGatewayUnavailable,
		},
		{
			name:      "provider rejection maps to charge rejected",
			clientErr: assert.AnError,
			wantErr:   domainErrors.ErrChargeRejected,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newCheckoutFixture()
			f.client.err = tt.clientErr

			inv := testutil.NewTestInvoice(uuid.New(), clientID, 10000, "USD")
			require.NoError(t, f.invoiceRepo.Create(ctx, inv))

			_, err := f.service.Checkout(ctx, CheckoutRequest{UserID: clientID, InvoiceIDs: []uuid.UUID{inv.ID}, Method: payment.MethodCard})
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
