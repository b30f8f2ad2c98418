package gateway

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event types this system recognizes. Anything outside the closed set handled
// by the reconciliation dispatch is acknowledged and ignored.
const (
	EventChargeSucceeded = "charge.succeeded"
	EventChargeFailed    = "charge.failed"
	EventChargeRefunded  = "charge.refunded"
)

// MetadataPaymentID is the well-known metadata key the charge-creation flow
// embeds so the webhook can resolve the internal payment.
// MetadataOrderID is a legacy alias still emitted by older charge records.
const (
	MetadataPaymentID = "paymentId"
	MetadataOrderID   = "orderId"
)

// Event is a verified provider event. It is transient: received, verified,
// consumed, discarded.
type Event struct {
	ID        string            `json:"id"`
	Type      string            `json:"type"`
	CreatedAt int64             `json:"created"`
	Data      Charge            `json:"data"`
}

// Charge is the provider-side record of a funds transfer carried by an event.
type Charge struct {
	ID          string            `json:"id"`
	AmountMinor int64             `json:"amount"`
	Currency    string            `json:"currency"`
	Status      string            `json:"status"`
	PayerEmail  string            `json:"payer_email"`
	CapturedAt  int64             `json:"captured_at"`
	Metadata    map[string]string `json:"metadata"`
}

// CorrelationID returns the merchant-assigned payment identifier embedded in
// the charge metadata, accepting the legacy alias, and whether one was found.
func (c Charge) CorrelationID() (string, bool) {
	if id, ok := c.Metadata[MetadataPaymentID]; ok && id != "" {
		return id, true
	}
	if id, ok := c.Metadata[MetadataOrderID]; ok && id != "" {
		return id, true
	}
	return "", false
}

// Captured returns the charge capture time.
func (c Charge) Captured() time.Time {
	return time.Unix(c.CapturedAt, 0).UTC()
}

// parseEvent decodes a verified raw body into an Event. Callers must verify
// the signature over the exact byte sequence before parsing.
func parseEvent(rawBody []byte) (*Event, error) {
	var ev Event
	if err := json.Unmarshal(rawBody, &ev); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	return &ev, nil
}
