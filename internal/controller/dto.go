package controller

import (
	"time"

	"github.com/tasklocal/marketplace/internal/domain/invoice"
	"github.com/tasklocal/marketplace/internal/domain/messaging"
	"github.com/tasklocal/marketplace/internal/domain/payment"
	"github.com/tasklocal/marketplace/internal/domain/review"
	"github.com/tasklocal/marketplace/internal/domain/task"
	"github.com/tasklocal/marketplace/internal/domain/user"
)

// --- Request DTOs ---
// These DTOs handle HTTP/JSON concerns (string IDs, validation tags). Money
// travels as integer minor units on requests and as exact decimal strings on
// responses; floats never touch an amount.

// RegisterRequest holds the input for registering a user.
type RegisterRequest struct {
	Email string `json:"email" validate:"required,email"`
	Name  string `json:"name" validate:"required"`
	Role  string `json:"role" validate:"required,oneof=client contractor admin"`
}

// LoginRequest holds the input for issuing a token.
type LoginRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// CreateTaskRequest holds the input for posting a task.
type CreateTaskRequest struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
	Category    string `json:"category" validate:"required"`
	BudgetMinor int64  `json:"budget_minor" validate:"required,gt=0"`
	Currency    string `json:"currency" validate:"required,len=3"`
}

// InvoiceItemRequest is one line item on an invoice submission.
type InvoiceItemRequest struct {
	TaskID       string `json:"task_id" validate:"required,uuid"`
	AssignmentID string `json:"assignment_id" validate:"required,uuid"`
	Description  string `json:"description"`
	AmountMinor  int64  `json:"amount_minor" validate:"required,gt=0"`
}

// CreateInvoiceRequest holds the input for issuing an invoice.
type CreateInvoiceRequest struct {
	ClientID string               `json:"client_id" validate:"required,uuid"`
	Currency string               `json:"currency" validate:"required,len=3"`
	Items    []InvoiceItemRequest `json:"items" validate:"required,min=1,dive"`
}

// CheckoutRequest holds the input for paying invoices.
type CheckoutRequest struct {
	InvoiceIDs []string `json:"invoice_ids" validate:"required,min=1,dive,uuid"`
	Method     string   `json:"method" validate:"required,oneof=card bank_transfer"`
}

// CreateReviewRequest holds the input for leaving a review.
type CreateReviewRequest struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment"`
}

// SendMessageRequest holds the input for sending a message.
type SendMessageRequest struct {
	Body string `json:"body" validate:"required"`
}

// --- Response DTOs ---

// UserResponse represents a user in API responses.
type UserResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// TokenResponse carries an issued JWT.
type TokenResponse struct {
	Token string `json:"token"`
}

// TaskResponse represents a task in API responses.
type TaskResponse struct {
	ID          string    `json:"id"`
	ClientID    string    `json:"client_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Status      string    `json:"status"`
	Budget      string    `json:"budget"`
	Currency    string    `json:"currency"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// AssignmentResponse represents an assignment in API responses.
type AssignmentResponse struct {
	ID           string    `json:"id"`
	TaskID       string    `json:"task_id"`
	ContractorID string    `json:"contractor_id"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}

// InvoiceItemResponse represents an invoice line item.
type InvoiceItemResponse struct {
	ID           string `json:"id"`
	TaskID       string `json:"task_id"`
	AssignmentID string `json:"assignment_id"`
	Description  string `json:"description"`
	Amount       string `json:"amount"`
}

// InvoiceResponse represents an invoice in API responses.
type InvoiceResponse struct {
	ID           string                `json:"id"`
	ContractorID string                `json:"contractor_id"`
	ClientID     string                `json:"client_id"`
	Total        string                `json:"total"`
	Currency     string                `json:"currency"`
	PaymentID    *string               `json:"payment_id,omitempty"`
	Items        []InvoiceItemResponse `json:"items"`
	CreatedAt    time.Time             `json:"created_at"`
}

// PaymentResultResponse carries the provider-derived result fields.
type PaymentResultResponse struct {
	ExternalID  string    `json:"external_id"`
	Status      string    `json:"status"`
	PayerEmail  string    `json:"payer_email"`
	AmountMajor string    `json:"amount_major"`
	CapturedAt  time.Time `json:"captured_at"`
}

// PaymentResponse represents a payment in API responses.
type PaymentResponse struct {
	ID            string                 `json:"id"`
	UserID        string                 `json:"user_id"`
	Amount        string                 `json:"amount"`
	Currency      string                 `json:"currency"`
	Method        string                 `json:"method"`
	InvoiceIDs    []string               `json:"invoice_ids"`
	IsPaid        bool                   `json:"is_paid"`
	PaidAt        *time.Time             `json:"paid_at,omitempty"`
	Result        *PaymentResultResponse `json:"result,omitempty"`
	ReceiptSent   bool                   `json:"receipt_sent"`
	ReceiptSentAt *time.Time             `json:"receipt_sent_at,omitempty"`
	CreatedAt     time.Time              `json:"created_at"`
}

// CheckoutResponse carries the created payment and the provider charge id.
type CheckoutResponse struct {
	Payment  *PaymentResponse `json:"payment"`
	ChargeID string           `json:"charge_id"`
}

// ReviewResponse represents a review in API responses.
type ReviewResponse struct {
	ID        string    `json:"id"`
	TaskID    string    `json:"task_id"`
	AuthorID  string    `json:"author_id"`
	SubjectID string    `json:"subject_id"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}

// ConversationResponse represents a conversation in API responses.
type ConversationResponse struct {
	ID           string    `json:"id"`
	TaskID       string    `json:"task_id"`
	ClientID     string    `json:"client_id"`
	ContractorID string    `json:"contractor_id"`
	CreatedAt    time.Time `json:"created_at"`
}

// MessageResponse represents a message in API responses.
type MessageResponse struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	Body           string    `json:"body"`
	Read           bool      `json:"read"`
	CreatedAt      time.Time `json:"created_at"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// --- Conversion helpers ---

// FromUser converts a domain user to API response.
func FromUser(u *user.User) *UserResponse {
	return &UserResponse{
		ID:        u.ID.String(),
		Email:     u.Email,
		Name:      u.Name,
		Role:      string(u.Role),
		CreatedAt: u.CreatedAt,
	}
}

// FromTask converts a domain task to API response.
func FromTask(t *task.Task) *TaskResponse {
	return &TaskResponse{
		ID:          t.ID.String(),
		ClientID:    t.ClientID.String(),
		Title:       t.Title,
		Description: t.Description,
		Category:    t.Category,
		Status:      string(t.Status),
		Budget:      t.Budget.MajorUnits(),
		Currency:    t.Budget.Currency,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

// FromAssignment converts a domain assignment to API response.
func FromAssignment(a *task.Assignment) *AssignmentResponse {
	return &AssignmentResponse{
		ID:           a.ID.String(),
		TaskID:       a.TaskID.String(),
		ContractorID: a.ContractorID.String(),
		Status:       string(a.Status),
		CreatedAt:    a.CreatedAt,
	}
}

// FromInvoice converts a domain invoice to API response.
func FromInvoice(inv *invoice.Invoice) *InvoiceResponse {
	resp := &InvoiceResponse{
		ID:           inv.ID.String(),
		ContractorID: inv.ContractorID.String(),
		ClientID:     inv.ClientID.String(),
		Total:        inv.Total.MajorUnits(),
		Currency:     inv.Total.Currency,
		Items:        make([]InvoiceItemResponse, 0, len(inv.Items)),
		CreatedAt:    inv.CreatedAt,
	}
	if inv.PaymentID != nil {
		pid := inv.PaymentID.String()
		resp.PaymentID = &pid
	}
	for _, item := range inv.Items {
		resp.Items = append(resp.Items, InvoiceItemResponse{
			ID:           item.ID.String(),
			TaskID:       item.TaskID.String(),
			AssignmentID: item.AssignmentID.String(),
			Description:  item.Description,
			Amount:       item.Amount.MajorUnits(),
		})
	}
	return resp
}

// FromPayment converts a domain payment to API response.
func FromPayment(p *payment.Payment) *PaymentResponse {
	resp := &PaymentResponse{
		ID:            p.ID.String(),
		UserID:        p.UserID.String(),
		Amount:        p.Amount.MajorUnits(),
		Currency:      p.Amount.Currency,
		Method:        string(p.Method),
		InvoiceIDs:    make([]string, 0, len(p.InvoiceIDs)),
		IsPaid:        p.IsPaid,
		PaidAt:        p.PaidAt,
		ReceiptSent:   p.ReceiptSent,
		ReceiptSentAt: p.ReceiptSentAt,
		CreatedAt:     p.CreatedAt,
	}
	for _, id := range p.InvoiceIDs {
		resp.InvoiceIDs = append(resp.InvoiceIDs, id.String())
	}
	if p.Result != nil {
		resp.Result = &PaymentResultResponse{
			ExternalID:  p.Result.ExternalID,
			Status:      p.Result.Status,
			PayerEmail:  p.Result.PayerEmail,
			AmountMajor: p.Result.AmountMajor,
			CapturedAt:  p.Result.CapturedAt,
		}
	}
	return resp
}

// FromReview converts a domain review to API response.
func FromReview(r *review.Review) *ReviewResponse {
	return &ReviewResponse{
		ID:        r.ID.String(),
		TaskID:    r.TaskID.String(),
		AuthorID:  r.AuthorID.String(),
		SubjectID: r.SubjectID.String(),
		Rating:    r.Rating,
		Comment:   r.Comment,
		CreatedAt: r.CreatedAt,
	}
}

// FromConversation converts a domain conversation to API response.
func FromConversation(c *messaging.Conversation) *ConversationResponse {
	return &ConversationResponse{
		ID:           c.ID.String(),
		TaskID:       c.TaskID.String(),
		ClientID:     c.ClientID.String(),
		ContractorID: c.ContractorID.String(),
		CreatedAt:    c.CreatedAt,
	}
}

// FromMessage converts a domain message to API response.
func FromMessage(m *messaging.Message) *MessageResponse {
	return &MessageResponse{
		ID:             m.ID.String(),
		ConversationID: m.ConversationID.String(),
		SenderID:       m.SenderID.String(),
		Body:           m.Body,
		Read:           m.Read,
		CreatedAt:      m.CreatedAt,
	}
}
