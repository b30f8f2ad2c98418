package payment

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tasklocal/marketplace/internal/domain/errors"
)

func TestAmount_MajorUnits(t *testing.T) {
	tests := []struct {
		name     string
		amount   Amount
		expected string
	}{
		{"two-decimal currency", Amount{ValueMinor: 12345, Currency: "USD"}, "123.45"},
		{"whole amount keeps trailing zeros", Amount{ValueMinor: 10000, Currency: "EUR"}, "100.00"},
		{"sub-unit amount", Amount{ValueMinor: 5, Currency: "USD"}, "0.05"},
		{"zero-decimal currency", Amount{ValueMinor: 12345, Currency: "JPY"}, "12345"},
		{"zero-decimal won", Amount{ValueMinor: 500, Currency: "KRW"}, "500"},
		{"three-decimal currency", Amount{ValueMinor: 12345, Currency: "BHD"}, "12.345"},
		{"three-decimal dinar", Amount{ValueMinor: 1000, Currency: "KWD"}, "1.000"},
		// A float-based conversion would render 0.1+0.2-style noise here.
		{"large value stays exact", Amount{ValueMinor: 9_007_199_254_740_993, Currency: "USD"}, "90071992547409.93"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.amount.MajorUnits())
		})
	}
}

func TestAmount_String(t *testing.T) {
	a := Amount{ValueMinor: 2500, Currency: "USD"}
	assert.Equal(t, "25.00 USD", a.String())
}

func TestAmount_Validate(t *testing.T) {
	assert.NoError(t, Amount{ValueMinor: 1, Currency: "USD"}.Validate())
	assert.Error(t, Amount{ValueMinor: 0, Currency: "USD"}.Validate())
	assert.Error(t, Amount{ValueMinor: -100, Currency: "USD"}.Validate())
	assert.Error(t, Amount{ValueMinor: 100, Currency: "US"}.Validate())
	assert.Error(t, Amount{ValueMinor: 100, Currency: ""}.Validate())
}

func TestNewPayment(t *testing.T) {
	userID := uuid.New()
	invoiceID := uuid.New()

	p, err := NewPayment(userID, Amount{ValueMinor: 5000, Currency: "USD"}, MethodCard, []uuid.UUID{invoiceID})
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, p.ID)
	assert.Equal(t, userID, p.UserID)
	assert.False(t, p.IsPaid)
	assert.Nil(t, p.PaidAt)
	assert.Nil(t, p.Result)
	assert.False(t, p.ReceiptSent)
	assert.Equal(t, []uuid.UUID{invoiceID}, p.InvoiceIDs)
}

func TestNewPayment_Invalid(t *testing.T) {
	userID := uuid.New()

	_, err := NewPayment(userID, Amount{ValueMinor: 0, Currency: "USD"}, MethodCard, []uuid.UUID{uuid.New()})
	assert.Error(t, err)

	_, err = NewPayment(userID, Amount{ValueMinor: 100, Currency: "USD"}, MethodCard, nil)
	assert.Error(t, err)
}

func TestPayment_MarkPaid(t *testing.T) {
	p, err := NewPayment(uuid.New(), Amount{ValueMinor: 5000, Currency: "USD"}, MethodCard, []uuid.UUID{uuid.New()})
	require.NoError(t, err)

	paidAt := time.Now()
	result := Result{
		ExternalID:  "ch_abc",
		Status:      "succeeded",
		PayerEmail:  "payer@example.com",
		AmountMajor: "50.00",
		CapturedAt:  paidAt,
	}

	require.NoError(t, p.MarkPaid(result, paidAt))
	assert.True(t, p.IsPaid)
	require.NotNil(t, p.PaidAt)
	assert.Equal(t, paidAt, *p.PaidAt)
	require.NotNil(t, p.Result)
	assert.Equal(t, "ch_abc", p.Result.ExternalID)

	// Terminal transition: a second delivery must not rewrite the result.
	err = p.MarkPaid(Result{ExternalID: "ch_other"}, time.Now())
	assert.ErrorIs(t, err, errors.ErrPaymentAlreadyPaid)
	assert.Equal(t, "ch_abc", p.Result.ExternalID)
}

func TestPayment_MarkReceiptSent(t *testing.T) {
	p, err := NewPayment(uuid.New(), Amount{ValueMinor: 5000, Currency: "USD"}, MethodCard, []uuid.UUID{uuid.New()})
	require.NoError(t, err)

	// Receipts only follow settled payments.
	err = p.MarkReceiptSent(time.Now())
	require.Error(t, err)
	var derr *errors.DomainError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, "receipt_before_payment", derr.Code)

	require.NoError(t, p.MarkPaid(Result{Status: "succeeded"}, time.Now()))

	sentAt := time.Now()
	require.NoError(t, p.MarkReceiptSent(sentAt))
	assert.True(t, p.ReceiptSent)
	require.NotNil(t, p.ReceiptSentAt)

	err = p.MarkReceiptSent(time.Now())
	assert.ErrorIs(t, err, errors.ErrReceiptAlreadySent)
}
