package controller

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	domainErrors "github.com/tasklocal/marketplace/internal/domain/errors"
	"github.com/tasklocal/marketplace/internal/domain/invoice"
	"github.com/tasklocal/marketplace/internal/service"
)

type InvoiceController struct {
	invoiceService *service.InvoiceService
	authzService   *service.AuthzService
}

func NewInvoiceController(invoiceService *service.InvoiceService, authzService *service.AuthzService) *InvoiceController {
	return &InvoiceController{invoiceService: invoiceService, authzService: authzService}
}

// Create issues an invoice from the authenticated contractor to a client.
func (h *InvoiceController) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateInvoiceRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	contractorID, err := h.authzService.CallerID(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	clientID, err := uuid.Parse(req.ClientID)
	if err != nil {
		writeError(w, domainErrors.NewValidationError("client_id", "invalid client id"))
		return
	}

	items := make([]invoice.ItemInput, 0, len(req.Items))
	for _, item := range req.Items {
		taskID, err := uuid.Parse(item.TaskID)
		if err != nil {
			writeError(w, domainErrors.NewValidationError("items", "invalid task id"))
			return
		}
		assignmentID, err := uuid.Parse(item.AssignmentID)
		if err != nil {
			writeError(w, domainErrors.NewValidationError("items", "invalid assignment id"))
			return
		}
		items = append(items, invoice.ItemInput{
			TaskID:       taskID,
			AssignmentID: assignmentID,
			Description:  item.Description,
			AmountMinor:  item.AmountMinor,
		})
	}

	inv, err := h.invoiceService.CreateInvoice(r.Context(), service.CreateInvoiceRequest{
		ContractorID: contractorID,
		ClientID:     clientID,
		Currency:     req.Currency,
		Items:        items,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, FromInvoice(inv))
}

func (h *InvoiceController) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid invoice id", Code: "invalid_id"})
		return
	}

	inv, err := h.invoiceService.GetInvoice(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	// Both parties to the invoice may read it.
	if err := h.authzService.VerifyOwnership(r.Context(), inv.ContractorID); err != nil {
		if err2 := h.authzService.VerifyOwnership(r.Context(), inv.ClientID); err2 != nil {
			writeError(w, err)
			return
		}
	}

	writeJSON(w, http.StatusOK, FromInvoice(inv))
}

// List returns invoices the caller is party to.
func (h *InvoiceController) List(w http.ResponseWriter, r *http.Request) {
	callerID, err := h.authzService.CallerID(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	filter := invoice.ListFilter{}
	switch r.URL.Query().Get("side") {
	case "contractor":
		filter.ContractorID = &callerID
	default:
		filter.ClientID = &callerID
	}
	if v := r.URL.Query().Get("settled"); v != "" {
		settled, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, domainErrors.NewValidationError("settled", "must be true or false"))
			return
		}
		filter.Settled = &settled
	}
	filter.Limit, filter.Offset = paginationParams(r)

	invoices, err := h.invoiceService.ListInvoices(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := make([]*InvoiceResponse, 0, len(invoices))
	for _, inv := range invoices {
		resp = append(resp, FromInvoice(inv))
	}
	writeJSON(w, http.StatusOK, resp)
}
