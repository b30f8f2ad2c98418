package service

import (
	"context"

	"github.com/google/uuid"

	domainErrors "github.com/tasklocal/marketplace/internal/domain/errors"
	"github.com/tasklocal/marketplace/internal/domain/messaging"
	"github.com/tasklocal/marketplace/internal/domain/task"
)

// MessagingService handles conversations between task clients and contractors.
type MessagingService struct {
	messagingRepo messaging.Repository
	taskRepo      task.Repository
}

func NewMessagingService(messagingRepo messaging.Repository, taskRepo task.Repository) *MessagingService {
	return &MessagingService{messagingRepo: messagingRepo, taskRepo: taskRepo}
}

// StartConversation opens (or returns) the conversation between the client
// and the assigned contractor of a task. Only those two may open it.
func (s *MessagingService) StartConversation(ctx context.Context, taskID, actorID uuid.UUID) (*messaging.Conversation, error) {
	t, err := s.taskRepo.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	a, err := s.taskRepo.GetActiveAssignment(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if actorID != t.ClientID && actorID != a.ContractorID {
		return nil, domainErrors.ErrForbidden
	}
	return s.messagingRepo.EnsureConversation(ctx, taskID, t.ClientID, a.ContractorID)
}

// SendMessage appends a message to a conversation the sender takes part in.
func (s *MessagingService) SendMessage(ctx context.Context, conversationID, senderID uuid.UUID, body string) (*messaging.Message, error) {
	c, err := s.messagingRepo.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !c.Participant(senderID) {
		return nil, domainErrors.ErrForbidden
	}

	m, err := messaging.NewMessage(conversationID, senderID, body)
	if err != nil {
		return nil, err
	}
	if err := s.messagingRepo.AddMessage(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// ListConversations lists the conversations a user takes part in.
func (s *MessagingService) ListConversations(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*messaging.Conversation, error) {
	return s.messagingRepo.ListConversations(ctx, userID, limit, offset)
}

// ListMessages returns messages in a conversation the reader takes part in,
// marking the other party's messages as read.
func (s *MessagingService) ListMessages(ctx context.Context, conversationID, readerID uuid.UUID, limit, offset int) ([]*messaging.Message, error) {
	c, err := s.messagingRepo.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !c.Participant(readerID) {
		return nil, domainErrors.ErrForbidden
	}

	msgs, err := s.messagingRepo.ListMessages(ctx, conversationID, limit, offset)
	if err != nil {
		return nil, err
	}
	if _, err := s.messagingRepo.MarkRead(ctx, conversationID, readerID); err != nil {
		return nil, err
	}
	return msgs, nil
}
