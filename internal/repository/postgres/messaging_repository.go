package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	domainErrors "github.com/tasklocal/marketplace/internal/domain/errors"
	"github.com/tasklocal/marketplace/internal/domain/messaging"
)

// MessagingRepository implements messaging.Repository using PostgreSQL.
type MessagingRepository struct {
	pool *pgxpool.Pool
}

// NewMessagingRepository creates a new MessagingRepository.
func NewMessagingRepository(pool *pgxpool.Pool) *MessagingRepository {
	return &MessagingRepository{pool: pool}
}

func (r *MessagingRepository) db(ctx context.Context) DBTX {
	return ConnFromCtx(ctx, r.pool)
}

// EnsureConversation returns the conversation for (task, client, contractor),
// creating it if absent. The upsert races safely against concurrent creates.
func (r *MessagingRepository) EnsureConversation(ctx context.Context, taskID, clientID, contractorID uuid.UUID) (*messaging.Conversation, error) {
	conv := messaging.NewConversation(taskID, clientID, contractorID)
	err := r.db(ctx).QueryRow(ctx,
		`INSERT INTO conversations (id, task_id, client_id, contractor_id, created_at)
		 VALUES ($1,$2,$3,$4,$5)
		 ON CONFLICT (task_id, client_id, contractor_id)
		 DO UPDATE SET task_id = EXCLUDED.task_id
		 RETURNING id, task_id, client_id, contractor_id, created_at`,
		conv.ID, conv.TaskID, conv.ClientID, conv.ContractorID, conv.CreatedAt,
	).Scan(&conv.ID, &conv.TaskID, &conv.ClientID, &conv.ContractorID, &conv.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("ensure conversation: %w", err)
	}
	return conv, nil
}

// GetConversation retrieves a conversation by ID.
func (r *MessagingRepository) GetConversation(ctx context.Context, id uuid.UUID) (*messaging.Conversation, error) {
	conv := &messaging.Conversation{}
	err := r.db(ctx).QueryRow(ctx,
		`SELECT id, task_id, client_id, contractor_id, created_at FROM conversations WHERE id = $1`, id,
	).Scan(&conv.ID, &conv.TaskID, &conv.ClientID, &conv.ContractorID, &conv.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrConversationNotFound
		}
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	return conv, nil
}

// ListConversations lists conversations a user takes part in, newest first.
func (r *MessagingRepository) ListConversations(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*messaging.Conversation, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db(ctx).Query(ctx,
		`SELECT id, task_id, client_id, contractor_id, created_at
		 FROM conversations WHERE client_id = $1 OR contractor_id = $1
		 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		userID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	var convs []*messaging.Conversation
	for rows.Next() {
		conv := &messaging.Conversation{}
		if err := rows.Scan(&conv.ID, &conv.TaskID, &conv.ClientID, &conv.ContractorID, &conv.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		convs = append(convs, conv)
	}
	return convs, rows.Err()
}

// AddMessage inserts a message.
func (r *MessagingRepository) AddMessage(ctx context.Context, m *messaging.Message) error {
	_, err := r.db(ctx).Exec(ctx,
		`INSERT INTO messages (id, conversation_id, sender_id, body, is_read, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6)`,
		m.ID, m.ConversationID, m.SenderID, m.Body, m.Read, m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// ListMessages lists messages in a conversation, oldest first.
func (r *MessagingRepository) ListMessages(ctx context.Context, conversationID uuid.UUID, limit, offset int) ([]*messaging.Message, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db(ctx).Query(ctx,
		`SELECT id, conversation_id, sender_id, body, is_read, created_at
		 FROM messages WHERE conversation_id = $1
		 ORDER BY created_at ASC LIMIT $2 OFFSET $3`,
		conversationID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var msgs []*messaging.Message
	for rows.Next() {
		m := &messaging.Message{}
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Body, &m.Read, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// MarkRead marks all messages not sent by the reader as read.
func (r *MessagingRepository) MarkRead(ctx context.Context, conversationID, readerID uuid.UUID) (int64, error) {
	tag, err := r.db(ctx).Exec(ctx,
		`UPDATE messages SET is_read = TRUE
		 WHERE conversation_id = $1 AND sender_id <> $2 AND is_read = FALSE`,
		conversationID, readerID,
	)
	if err != nil {
		return 0, fmt.Errorf("mark messages read: %w", err)
	}
	return tag.RowsAffected(), nil
}
