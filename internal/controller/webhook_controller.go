package controller

import (
	"io"
	"net/http"

	domainErrors "github.com/tasklocal/marketplace/internal/domain/errors"
	"github.com/tasklocal/marketplace/internal/gateway"
	"github.com/tasklocal/marketplace/internal/service"
)

// maxWebhookBodySize bounds provider event bodies. Real events are a few KB.
const maxWebhookBodySize = 256 << 10

// WebhookController receives payment provider events. The body is read raw
// and handed to the reconciliation service untouched: the signature covers
// the exact byte sequence, so any re-encoding would break verification.
type WebhookController struct {
	reconciliation *service.ReconciliationService
}

func NewWebhookController(reconciliation *service.ReconciliationService) *WebhookController {
	return &WebhookController{reconciliation: reconciliation}
}

// HandlePaymentEvent processes a provider webhook delivery. Status codes
// drive the provider's retry behavior: 2xx stops redelivery, 4xx marks the
// delivery permanently failed, 5xx asks for a retry.
func (h *WebhookController) HandlePaymentEvent(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBodySize+1))
	if err != nil {
		writeError(w, domainErrors.NewValidationError("body", "failed to read request body"))
		return
	}
	if len(body) > maxWebhookBodySize {
		writeError(w, domainErrors.NewValidationError("body", "request body too large"))
		return
	}

	sigHeader := r.Header.Get(gateway.SignatureHeader)

	if err := h.reconciliation.HandleEvent(r.Context(), body, sigHeader); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "received"})
}
