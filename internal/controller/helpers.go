package controller

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	domainErrors "github.com/tasklocal/marketplace/internal/domain/errors"
)

var validate = validator.New()

type errorMapping struct {
	err    error
	status int
	code   string
}

var errorMappings = []errorMapping{
	{domainErrors.ErrUserNotFound, http.StatusNotFound, "not_found"},
	{domainErrors.ErrTaskNotFound, http.StatusNotFound, "not_found"},
	{domainErrors.ErrAssignmentNotFound, http.StatusNotFound, "not_found"},
	{domainErrors.ErrInvoiceNotFound, http.StatusNotFound, "not_found"},
	{domainErrors.ErrPaymentNotFound, http.StatusNotFound, "not_found"},
	{domainErrors.ErrReviewNotFound, http.StatusNotFound, "not_found"},
	{domainErrors.ErrConversationNotFound, http.StatusNotFound, "not_found"},
	{domainErrors.ErrUnknownPayment, http.StatusNotFound, "unknown_payment"},
	{domainErrors.ErrSignatureVerification, http.StatusBadRequest, "signature_verification"},
	{domainErrors.ErrMissingCorrelation, http.StatusBadRequest, "missing_correlation"},
	{domainErrors.ErrDuplicateEmail, http.StatusConflict, "duplicate_email"},
	{domainErrors.ErrDuplicateReview, http.StatusConflict, "duplicate_review"},
	{domainErrors.ErrDuplicateInvoiceItem, http.StatusConflict, "duplicate_invoice_item"},
	{domainErrors.ErrTaskAlreadyAssigned, http.StatusConflict, "task_already_assigned"},
	{domainErrors.ErrDuplicateIdempotencyKey, http.StatusConflict, "duplicate_request"},
	{domainErrors.ErrTaskNotOpen, http.StatusUnprocessableEntity, "task_not_open"},
	{domainErrors.ErrInvoiceAlreadySettled, http.StatusUnprocessableEntity, "invoice_already_settled"},
	{domainErrors.ErrPaymentAlreadyPaid, http.StatusUnprocessableEntity, "payment_already_paid"},
	{domainErrors.ErrCurrencyMismatch, http.StatusUnprocessableEntity, "currency_mismatch"},
	{domainErrors.ErrInvalidAmount, http.StatusUnprocessableEntity, "amount_mismatch"},
	{domainErrors.ErrChargeRejected, http.StatusUnprocessableEntity, "charge_rejected"},
	{domainErrors.ErrGatewayUnavailable, http.StatusServiceUnavailable, "gateway_unavailable"},
	{domainErrors.ErrUnauthorized, http.StatusUnauthorized, "unauthorized"},
	{domainErrors.ErrForbidden, http.StatusForbidden, "forbidden"},
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	resp := ErrorResponse{Error: err.Error()}

	var validationErr *domainErrors.ValidationError
	if errors.As(err, &validationErr) {
		resp.Code = "validation_error"
		writeJSON(w, http.StatusBadRequest, resp)
		return
	}

	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			resp.Code = m.code
			writeJSON(w, m.status, resp)
			return
		}
	}

	var domainErr *domainErrors.DomainError
	if errors.As(err, &domainErr) {
		resp.Code = domainErr.Code
		writeJSON(w, http.StatusUnprocessableEntity, resp)
		return
	}

	log.Error().Err(err).Msg("unhandled error in handler")
	resp.Code = "internal_error"
	resp.Error = "internal server error"
	writeJSON(w, http.StatusInternalServerError, resp)
}

func decodeAndValidate(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return domainErrors.NewValidationError("body", "invalid JSON: "+err.Error())
	}
	if err := validate.Struct(dst); err != nil {
		if ve, ok := err.(validator.ValidationErrors); ok && len(ve) > 0 {
			return domainErrors.NewValidationError(ve[0].Field(), ve[0].Tag()+" validation failed")
		}
		return domainErrors.NewValidationError("body", err.Error())
	}
	return nil
}
