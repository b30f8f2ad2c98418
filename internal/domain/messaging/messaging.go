package messaging

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tasklocal/marketplace/internal/domain/errors"
)

// Conversation groups the messages between the client and the contractor of a
// task. One conversation per (task, client, contractor).
type Conversation struct {
	ID           uuid.UUID
	TaskID       uuid.UUID
	ClientID     uuid.UUID
	ContractorID uuid.UUID
	CreatedAt    time.Time
}

// NewConversation creates a conversation for a task.
func NewConversation(taskID, clientID, contractorID uuid.UUID) *Conversation {
	return &Conversation{
		ID:           uuid.New(),
		TaskID:       taskID,
		ClientID:     clientID,
		ContractorID: contractorID,
		CreatedAt:    time.Now(),
	}
}

// Participant reports whether the user takes part in the conversation.
func (c *Conversation) Participant(userID uuid.UUID) bool {
	return userID == c.ClientID || userID == c.ContractorID
}

// Message is a single message inside a conversation.
type Message struct {
	ID             uuid.UUID
	ConversationID uuid.UUID
	SenderID       uuid.UUID
	Body           string
	Read           bool
	CreatedAt      time.Time
}

// NewMessage creates a message.
func NewMessage(conversationID, senderID uuid.UUID, body string) (*Message, error) {
	if body == "" {
		return nil, errors.NewValidationError("body", "cannot be empty")
	}
	return &Message{
		ID:             uuid.New(),
		ConversationID: conversationID,
		SenderID:       senderID,
		Body:           body,
		CreatedAt:      time.Now(),
	}, nil
}

// Repository defines the interface for conversation and message persistence.
type Repository interface {
	// EnsureConversation returns the conversation for (task, client,
	// contractor), creating it if absent.
	EnsureConversation(ctx context.Context, taskID, clientID, contractorID uuid.UUID) (*Conversation, error)
	GetConversation(ctx context.Context, id uuid.UUID) (*Conversation, error)
	ListConversations(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Conversation, error)

	AddMessage(ctx context.Context, m *Message) error
	ListMessages(ctx context.Context, conversationID uuid.UUID, limit, offset int) ([]*Message, error)
	// MarkRead marks all messages in the conversation not sent by the reader
	// as read, returning the number of rows updated.
	MarkRead(ctx context.Context, conversationID, readerID uuid.UUID) (int64, error)
}
