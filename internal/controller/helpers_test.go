package controller

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainErrors "github.com/tasklocal/marketplace/internal/domain/errors"
)

func TestWriteError_StatusMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "validation error",
			err:        domainErrors.NewValidationError("email", "required"),
			wantStatus: http.StatusBadRequest,
			wantCode:   "validation_error",
		},
		{
			name:       "not found",
			err:        domainErrors.ErrPaymentNotFound,
			wantStatus: http.StatusNotFound,
			wantCode:   "not_found",
		},
		{
			name:       "unknown payment",
			err:        domainErrors.NewDomainError("unknown_payment", "no such payment", domainErrors.ErrUnknownPayment),
			wantStatus: http.StatusNotFound,
			wantCode:   "unknown_payment",
		},
		{
			name:       "signature verification",
			err:        domainErrors.NewDomainError("bad_signature", "mismatch", domainErrors.ErrSignatureVerification),
			wantStatus: http.StatusBadRequest,
			wantCode:   "signature_verification",
		},
		{
			name:       "missing correlation",
			err:        domainErrors.NewDomainError("missing_correlation", "no reference", domainErrors.ErrMissingCorrelation),
			wantStatus: http.StatusBadRequest,
			wantCode:   "missing_correlation",
		},
		{
			name:       "duplicate email",
			err:        domainErrors.ErrDuplicateEmail,
			wantStatus: http.StatusConflict,
			wantCode:   "duplicate_email",
		},
		{
			name:       "task already assigned",
			err:        domainErrors.ErrTaskAlreadyAssigned,
			wantStatus: http.StatusConflict,
			wantCode:   "task_already_assigned",
		},
		{
			name:       "invoice already settled",
			err:        domainErrors.ErrInvoiceAlreadySettled,
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "invoice_already_settled",
		},
		{
			name:       "payment already paid",
			err:        domainErrors.ErrPaymentAlreadyPaid,
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "payment_already_paid",
		},
		{
			name:       "currency mismatch",
			err:        domainErrors.ErrCurrencyMismatch,
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "currency_mismatch",
		},
		{
			name:       "amount mismatch",
			err:        domainErrors.ErrInvalidAmount,
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "amount_mismatch",
		},
		{
			name:       "charge rejected",
			err:        domainErrors.ErrChargeRejected,
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "charge_rejected",
		},
		{
			name:       "gateway unavailable",
			err:        domainErrors.NewDomainError("gateway_unavailable", "provider down", domainErrors.ErrGatewayUnavailable),
			wantStatus: http.StatusServiceUnavailable,
			wantCode:   "gateway_unavailable",
		},
		{
			name:       "unauthorized",
			err:        domainErrors.ErrUnauthorized,
			wantStatus: http.StatusUnauthorized,
			wantCode:   "unauthorized",
		},
		{
			name:       "forbidden",
			err:        domainErrors.ErrForbidden,
			wantStatus: http.StatusForbidden,
			wantCode:   "forbidden",
		},
		{
			name:       "unmapped domain error falls back to 422",
			err:        domainErrors.NewDomainError("receipt_before_payment", "not paid yet", nil),
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "receipt_before_payment",
		},
		{
			name:       "unknown error is 500",
			err:        errors.New("pool exhausted"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "internal_error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeError(rec, tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantCode, resp.Code)
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestWriteError_InternalDetailsNotLeaked(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, errors.New("dial tcp 10.0.0.5:5432: connection refused"))

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "internal server error", resp.Error)
	assert.NotContains(t, rec.Body.String(), "10.0.0.5")
}
