package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	domainErrors "github.com/tasklocal/marketplace/internal/domain/errors"
	"github.com/tasklocal/marketplace/internal/domain/invoice"
	"github.com/tasklocal/marketplace/internal/domain/messaging"
	"github.com/tasklocal/marketplace/internal/domain/outbox"
	"github.com/tasklocal/marketplace/internal/domain/payment"
	"github.com/tasklocal/marketplace/internal/domain/review"
	"github.com/tasklocal/marketplace/internal/domain/task"
	"github.com/tasklocal/marketplace/internal/domain/user"
)

// --- Payment Repository Mock ---

// MockPaymentRepository is a mock implementation of payment.Repository. The
// default behavior is an in-memory store with the same conditional-update
// contract as the real repository; per-method Func fields override it.
type MockPaymentRepository struct {
	mu       sync.Mutex
	payments map[uuid.UUID]*payment.Payment

	CreateFunc          func(ctx context.Context, p *payment.Payment) error
	GetByIDFunc         func(ctx context.Context, id uuid.UUID) (*payment.Payment, error)
	ListFunc            func(ctx context.Context, filter payment.ListFilter) ([]*payment.Payment, error)
	MarkPaidFunc        func(ctx context.Context, id uuid.UUID, result payment.Result, paidAt time.Time) error
	MarkReceiptSentFunc func(ctx context.Context, id uuid.UUID, sentAt time.Time) error
}

func NewMockPaymentRepository() *MockPaymentRepository {
	return &MockPaymentRepository{payments: make(map[uuid.UUID]*payment.Payment)}
}

func (m *MockPaymentRepository) Create(ctx context.Context, p *payment.Payment) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, p)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.payments[p.ID] = &cp
	return nil
}

func (m *MockPaymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*payment.Payment, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[id]
	if !ok {
		return nil, domainErrors.ErrPaymentNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *MockPaymentRepository) List(ctx context.Context, filter payment.ListFilter) ([]*payment.Payment, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, filter)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]*payment.Payment, 0, len(m.payments))
	for _, p := range m.payments {
		if filter.UserID != nil && p.UserID != *filter.UserID {
			continue
		}
		if filter.Paid != nil && p.IsPaid != *filter.Paid {
			continue
		}
		cp := *p
		result = append(result, &cp)
	}
	return result, nil
}

func (m *MockPaymentRepository) MarkPaid(ctx context.Context, id uuid.UUID, result payment.Result, paidAt time.Time) error {
	if m.MarkPaidFunc != nil {
		return m.MarkPaidFunc(ctx, id, result, paidAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[id]
	if !ok {
		return domainErrors.ErrPaymentNotFound
	}
	if p.IsPaid {
		return domainErrors.ErrPaymentAlreadyPaid
	}
	p.IsPaid = true
	p.PaidAt = &paidAt
	p.Result = &result
	p.UpdatedAt = paidAt
	return nil
}

func (m *MockPaymentRepository) MarkReceiptSent(ctx context.Context, id uuid.UUID, sentAt time.Time) error {
	if m.MarkReceiptSentFunc != nil {
		return m.MarkReceiptSentFunc(ctx, id, sentAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[id]
	if !ok {
		return domainErrors.ErrPaymentNotFound
	}
	if p.ReceiptSent {
		return domainErrors.ErrReceiptAlreadySent
	}
	p.ReceiptSent = true
	p.ReceiptSentAt = &sentAt
	p.UpdatedAt = sentAt
	return nil
}

// --- Invoice Repository Mock ---

// MockInvoiceRepository is a mock implementation of invoice.Repository.
type MockInvoiceRepository struct {
	mu       sync.Mutex
	invoices map[uuid.UUID]*invoice.Invoice

	CreateFunc  func(ctx context.Context, inv *invoice.Invoice) error
	GetByIDFunc func(ctx context.Context, id uuid.UUID) (*invoice.Invoice, error)
	ListFunc    func(ctx context.Context, filter invoice.ListFilter) ([]*invoice.Invoice, error)
	SettleFunc  func(ctx context.Context, paymentID uuid.UUID, invoiceIDs []uuid.UUID) (int64, error)
}

func NewMockInvoiceRepository() *MockInvoiceRepository {
	return &MockInvoiceRepository{invoices: make(map[uuid.UUID]*invoice.Invoice)}
}

func (m *MockInvoiceRepository) Create(ctx context.Context, inv *invoice.Invoice) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, inv)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invoices[inv.ID] = inv
	return nil
}

func (m *MockInvoiceRepository) GetByID(ctx context.Context, id uuid.UUID) (*invoice.Invoice, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invoices[id]
	if !ok {
		return nil, domainErrors.ErrInvoiceNotFound
	}
	return inv, nil
}

func (m *MockInvoiceRepository) List(ctx context.Context, filter invoice.ListFilter) ([]*invoice.Invoice, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, filter)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]*invoice.Invoice, 0, len(m.invoices))
	for _, inv := range m.invoices {
		result = append(result, inv)
	}
	return result, nil
}

func (m *MockInvoiceRepository) Settle(ctx context.Context, paymentID uuid.UUID, invoiceIDs []uuid.UUID) (int64, error) {
	if m.SettleFunc != nil {
		return m.SettleFunc(ctx, paymentID, invoiceIDs)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var settled int64
	for _, id := range invoiceIDs {
		inv, ok := m.invoices[id]
		if !ok || inv.PaymentID != nil {
			continue
		}
		pid := paymentID
		inv.PaymentID = &pid
		settled++
	}
	return settled, nil
}

// --- Outbox Repository Mock ---

// MockOutboxRepository is a mock implementation of outbox.Repository.
type MockOutboxRepository struct {
	mu      sync.Mutex
	Entries []*outbox.Entry

	InsertFunc func(ctx context.Context, entry *outbox.Entry) error
}

func NewMockOutboxRepository() *MockOutboxRepository {
	return &MockOutboxRepository{}
}

func (m *MockOutboxRepository) Insert(ctx context.Context, entry *outbox.Entry) error {
	if m.InsertFunc != nil {
		return m.InsertFunc(ctx, entry)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Entries = append(m.Entries, entry)
	return nil
}

func (m *MockOutboxRepository) GetPending(ctx context.Context, limit int) ([]*outbox.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var pending []*outbox.Entry
	for _, e := range m.Entries {
		if e.Status == outbox.StatusPending {
			pending = append(pending, e)
		}
		if limit > 0 && len(pending) >= limit {
			break
		}
	}
	return pending, nil
}

func (m *MockOutboxRepository) MarkPublished(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.Entries {
		if e.ID == id {
			e.Status = outbox.StatusPublished
			now := time.Now()
			e.PublishedAt = &now
		}
	}
	return nil
}

func (m *MockOutboxRepository) MarkFailed(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.Entries {
		if e.ID == id {
			e.RetryCount++
			if e.RetryCount >= e.MaxRetries {
				e.Status = outbox.StatusFailed
			}
		}
	}
	return nil
}

// --- User Repository Mock ---

// MockUserRepository is a mock implementation of user.Repository.
type MockUserRepository struct {
	mu    sync.Mutex
	users map[uuid.UUID]*user.User

	CreateFunc     func(ctx context.Context, u *user.User) error
	GetByIDFunc    func(ctx context.Context, id uuid.UUID) (*user.User, error)
	GetByEmailFunc func(ctx context.Context, email string) (*user.User, error)
}

func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{users: make(map[uuid.UUID]*user.User)}
}

func (m *MockUserRepository) Create(ctx context.Context, u *user.User) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, u)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return domainErrors.ErrDuplicateEmail
		}
	}
	m.users[u.ID] = u
	return nil
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, domainErrors.ErrUserNotFound
	}
	return u, nil
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, domainErrors.ErrUserNotFound
}

// --- Task Repository Mock ---

// MockTaskRepository is a mock implementation of task.Repository.
type MockTaskRepository struct {
	mu          sync.Mutex
	tasks       map[uuid.UUID]*task.Task
	assignments map[uuid.UUID]*task.Assignment

	GetByIDFunc func(ctx context.Context, id uuid.UUID) (*task.Task, error)
}

func NewMockTaskRepository() *MockTaskRepository {
	return &MockTaskRepository{
		tasks:       make(map[uuid.UUID]*task.Task),
		assignments: make(map[uuid.UUID]*task.Assignment),
	}
}

func (m *MockTaskRepository) Create(ctx context.Context, t *task.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks[t.ID] = t
	return nil
}

func (m *MockTaskRepository) GetByID(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return nil, domainErrors.ErrTaskNotFound
	}
	return t, nil
}

func (m *MockTaskRepository) Update(ctx context.Context, t *task.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tasks[t.ID]; !ok {
		return domainErrors.ErrTaskNotFound
	}
	m.tasks[t.ID] = t
	return nil
}

func (m *MockTaskRepository) List(ctx context.Context, filter task.ListFilter) ([]*task.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]*task.Task, 0, len(m.tasks))
	for _, t := range m.tasks {
		if filter.ClientID != nil && t.ClientID != *filter.ClientID {
			continue
		}
		if filter.Status != nil && t.Status != *filter.Status {
			continue
		}
		result = append(result, t)
	}
	return result, nil
}

func (m *MockTaskRepository) CreateAssignment(ctx context.Context, a *task.Assignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.assignments {
		if existing.TaskID == a.TaskID && existing.Status == task.AssignmentActive {
			return domainErrors.ErrTaskAlreadyAssigned
		}
	}
	m.assignments[a.ID] = a
	return nil
}

func (m *MockTaskRepository) GetAssignment(ctx context.Context, id uuid.UUID) (*task.Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.assignments[id]
	if !ok {
		return nil, domainErrors.ErrAssignmentNotFound
	}
	return a, nil
}

func (m *MockTaskRepository) GetActiveAssignment(ctx context.Context, taskID uuid.UUID) (*task.Assignment, error) {
	return m.findAssignment(taskID, task.AssignmentActive)
}

func (m *MockTaskRepository) GetCompletedAssignment(ctx context.Context, taskID uuid.UUID) (*task.Assignment, error) {
	return m.findAssignment(taskID, task.AssignmentCompleted)
}

func (m *MockTaskRepository) findAssignment(taskID uuid.UUID, status task.AssignmentStatus) (*task.Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.assignments {
		if a.TaskID == taskID && a.Status == status {
			return a, nil
		}
	}
	return nil, domainErrors.ErrAssignmentNotFound
}

func (m *MockTaskRepository) UpdateAssignment(ctx context.Context, a *task.Assignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.assignments[a.ID]; !ok {
		return domainErrors.ErrAssignmentNotFound
	}
	m.assignments[a.ID] = a
	return nil
}

// --- Messaging Repository Mock ---

// MockMessagingRepository is a mock implementation of messaging.Repository.
type MockMessagingRepository struct {
	mu            sync.Mutex
	conversations map[uuid.UUID]*messaging.Conversation
	messages      []*messaging.Message
}

func NewMockMessagingRepository() *MockMessagingRepository {
	return &MockMessagingRepository{conversations: make(map[uuid.UUID]*messaging.Conversation)}
}

func (m *MockMessagingRepository) EnsureConversation(ctx context.Context, taskID, clientID, contractorID uuid.UUID) (*messaging.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.conversations {
		if c.TaskID == taskID && c.ClientID == clientID && c.ContractorID == contractorID {
			return c, nil
		}
	}
	c := messaging.NewConversation(taskID, clientID, contractorID)
	m.conversations[c.ID] = c
	return c, nil
}

func (m *MockMessagingRepository) GetConversation(ctx context.Context, id uuid.UUID) (*messaging.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.conversations[id]
	if !ok {
		return nil, domainErrors.ErrConversationNotFound
	}
	return c, nil
}

func (m *MockMessagingRepository) ListConversations(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*messaging.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*messaging.Conversation
	for _, c := range m.conversations {
		if c.Participant(userID) {
			result = append(result, c)
		}
	}
	return result, nil
}

func (m *MockMessagingRepository) AddMessage(ctx context.Context, msg *messaging.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
	return nil
}

func (m *MockMessagingRepository) ListMessages(ctx context.Context, conversationID uuid.UUID, limit, offset int) ([]*messaging.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*messaging.Message
	for _, msg := range m.messages {
		if msg.ConversationID == conversationID {
			result = append(result, msg)
		}
	}
	return result, nil
}

func (m *MockMessagingRepository) MarkRead(ctx context.Context, conversationID, readerID uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var updated int64
	for _, msg := range m.messages {
		if msg.ConversationID == conversationID && msg.SenderID != readerID && !msg.Read {
			msg.Read = true
			updated++
		}
	}
	return updated, nil
}

// --- Review Repository Mock ---

// MockReviewRepository is a mock implementation of review.Repository.
type MockReviewRepository struct {
	mu      sync.Mutex
	Reviews []*review.Review

	CreateFunc func(ctx context.Context, r *review.Review) error
}

func NewMockReviewRepository() *MockReviewRepository {
	return &MockReviewRepository{}
}

func (m *MockReviewRepository) Create(ctx context.Context, r *review.Review) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, r)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.Reviews {
		if existing.TaskID == r.TaskID && existing.AuthorID == r.AuthorID {
			return domainErrors.ErrDuplicateReview
		}
	}
	m.Reviews = append(m.Reviews, r)
	return nil
}

func (m *MockReviewRepository) ListBySubject(ctx context.Context, subjectID uuid.UUID, limit, offset int) ([]*review.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*review.Review
	for _, r := range m.Reviews {
		if r.SubjectID == subjectID {
			result = append(result, r)
		}
	}
	return result, nil
}

// --- Transaction Manager Mock ---

// MockTxManager runs the function without a real transaction.
type MockTxManager struct {
	WithTransactionFunc func(ctx context.Context, fn func(ctx context.Context) error) error
}

func (m *MockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if m.WithTransactionFunc != nil {
		return m.WithTransactionFunc(ctx, fn)
	}
	return fn(ctx)
}
