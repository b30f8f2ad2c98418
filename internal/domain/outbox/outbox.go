package outbox

import (
	"time"

	"github.com/google/uuid"
)

// Entry is a pending side effect recorded in the same transaction as the state
// change that triggered it. The worker publishes pending entries to the
// receipt stream, so a committed paid transition and its receipt job are never
// separated by a crash.
type Entry struct {
	ID            uuid.UUID
	AggregateType string
	AggregateID   uuid.UUID
	EventType     string
	Payload       map[string]any
	Status        Status
	RetryCount    int
	MaxRetries    int
	CreatedAt     time.Time
	PublishedAt   *time.Time
}

type Status string

const (
	StatusPending   Status = "pending"
	StatusPublished Status = "published"
	StatusFailed    Status = "failed"
)

// EventReceiptRequested is recorded by the reconciliation transaction winner;
// it is the only trigger for receipt delivery.
const EventReceiptRequested = "receipt.requested"

func NewEntry(aggregateType string, aggregateID uuid.UUID, eventType string, payload map[string]any) *Entry {
	return &Entry{
		ID:            uuid.New(),
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		EventType:     eventType,
		Payload:       payload,
		Status:        StatusPending,
		RetryCount:    0,
		MaxRetries:    5,
		CreatedAt:     time.Now(),
	}
}
