package controller

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	domainErrors "github.com/tasklocal/marketplace/internal/domain/errors"
	"github.com/tasklocal/marketplace/internal/domain/payment"
	"github.com/tasklocal/marketplace/internal/service"
)

type PaymentController struct {
	checkoutService *service.CheckoutService
	authzService    *service.AuthzService
}

func NewPaymentController(checkoutService *service.CheckoutService, authzService *service.AuthzService) *PaymentController {
	return &PaymentController{
		checkoutService: checkoutService,
		authzService:    authzService,
	}
}

// Checkout starts payment of one or more unsettled invoices.
func (h *PaymentController) Checkout(w http.ResponseWriter, r *http.Request) {
	var req CheckoutRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	userID, err := h.authzService.CallerID(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	invoiceIDs := make([]uuid.UUID, 0, len(req.InvoiceIDs))
	for _, raw := range req.InvoiceIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeError(w, domainErrors.NewValidationError("invoice_ids", "invalid invoice id"))
			return
		}
		invoiceIDs = append(invoiceIDs, id)
	}

	resp, err := h.checkoutService.Checkout(r.Context(), service.CheckoutRequest{
		UserID:     userID,
		InvoiceIDs: invoiceIDs,
		Method:     payment.Method(req.Method),
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, CheckoutResponse{
		Payment:  FromPayment(resp.Payment),
		ChargeID: resp.ChargeID,
	})
}

// Get returns a payment visible to its owner or an admin.
func (h *PaymentController) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid payment id", Code: "invalid_id"})
		return
	}

	p, err := h.checkoutService.GetPayment(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.authzService.VerifyPaymentAccess(r.Context(), p); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, FromPayment(p))
}

// List returns the caller's payments.
func (h *PaymentController) List(w http.ResponseWriter, r *http.Request) {
	userID, err := h.authzService.CallerID(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	filter := payment.ListFilter{UserID: &userID}
	if v := r.URL.Query().Get("paid"); v != "" {
		paid, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, domainErrors.NewValidationError("paid", "must be true or false"))
			return
		}
		filter.Paid = &paid
	}
	filter.Limit, filter.Offset = paginationParams(r)

	payments, err := h.checkoutService.ListPayments(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := make([]*PaymentResponse, 0, len(payments))
	for _, p := range payments {
		resp = append(resp, FromPayment(p))
	}
	writeJSON(w, http.StatusOK, resp)
}

// paginationParams reads limit/offset query params with sane bounds.
func paginationParams(r *http.Request) (limit, offset int) {
	limit = 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}
