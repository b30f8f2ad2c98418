package controller

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tasklocal/marketplace/internal/testutil"
)

func newJSONRequest(t *testing.T, body string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestFromPayment_MoneyAsExactStrings(t *testing.T) {
	p := testutil.NewPaidPayment(uuid.New(), 12345, "USD")

	resp := FromPayment(p)

	assert.Equal(t, "123.45", resp.Amount)
	assert.Equal(t, "USD", resp.Currency)
	assert.True(t, resp.IsPaid)
	require.NotNil(t, resp.Result)
	assert.Equal(t, "123.45", resp.Result.AmountMajor)

	// Amounts serialize as JSON strings, never numbers.
	raw, err := json.Marshal(resp)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	_, isString := decoded["amount"].(string)
	assert.True(t, isString)
}

func TestFromPayment_PendingOmitsResult(t *testing.T) {
	p := testutil.NewTestPayment(uuid.New(), 500, "USD")

	resp := FromPayment(p)
	assert.False(t, resp.IsPaid)
	assert.Nil(t, resp.Result)
	assert.Nil(t, resp.PaidAt)
	assert.Equal(t, "5.00", resp.Amount)

	raw, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), `"result"`)
	assert.NotContains(t, string(raw), `"paid_at"`)
}

func TestFromInvoice(t *testing.T) {
	inv := testutil.NewTestInvoice(uuid.New(), uuid.New(), 2050, "USD")
	paymentID := uuid.New()
	inv.PaymentID = &paymentID

	resp := FromInvoice(inv)

	assert.Equal(t, "20.50", resp.Total)
	require.NotNil(t, resp.PaymentID)
	assert.Equal(t, paymentID.String(), *resp.PaymentID)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "20.50", resp.Items[0].Amount)
}

func TestDecodeAndValidate(t *testing.T) {
	valid := `{"email":"a@example.com","name":"Ada","role":"client"}`
	req := newJSONRequest(t, valid)
	var dst RegisterRequest
	require.NoError(t, decodeAndValidate(req, &dst))
	assert.Equal(t, "a@example.com", dst.Email)

	tests := []struct {
		name string
		body string
	}{
		{"broken json", `{"email":`},
		{"missing fields", `{}`},
		{"bad email", `{"email":"nope","name":"Ada","role":"client"}`},
		{"bad role", `{"email":"a@example.com","name":"Ada","role":"superuser"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var dst RegisterRequest
			err := decodeAndValidate(newJSONRequest(t, tt.body), &dst)
			assert.Error(t, err)
		})
	}
}
