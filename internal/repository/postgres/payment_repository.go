package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	domainErrors "github.com/tasklocal/marketplace/internal/domain/errors"
	"github.com/tasklocal/marketplace/internal/domain/payment"
)

// PaymentRepository implements payment.Repository using PostgreSQL.
type PaymentRepository struct {
	pool *pgxpool.Pool
}

// NewPaymentRepository creates a new PaymentRepository.
func NewPaymentRepository(pool *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{pool: pool}
}

func (r *PaymentRepository) db(ctx context.Context) DBTX {
	return ConnFromCtx(ctx, r.pool)
}

// scanner is satisfied by both pgx.Row and pgx.Rows.
type scanner interface {
	Scan(dest ...any) error
}

const paymentColumns = `id, user_id, amount, currency, method, invoice_ids,
	        is_paid, paid_at, result, receipt_sent, receipt_sent_at, created_at, updated_at`

// Create inserts a new pending payment.
func (r *PaymentRepository) Create(ctx context.Context, p *payment.Payment) error {
	var result []byte
	if p.Result != nil {
		b, err := json.Marshal(p.Result)
		if err != nil {
			return fmt.Errorf("marshal payment result: %w", err)
		}
		result = b
	}

	amountStr := minorToNumericString(p.Amount.ValueMinor, p.Amount.Exponent())

	_, err := r.db(ctx).Exec(ctx,
		`INSERT INTO payments
		 (id, user_id, amount, currency, method, invoice_ids,
		  is_paid, paid_at, result, receipt_sent, receipt_sent_at, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		p.ID, p.UserID, amountStr, p.Amount.Currency, string(p.Method), p.InvoiceIDs,
		p.IsPaid, p.PaidAt, result, p.ReceiptSent, p.ReceiptSentAt, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

// GetByID retrieves a payment by its ID.
func (r *PaymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*payment.Payment, error) {
	return r.scanPayment(r.db(ctx).QueryRow(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id))
}

// List lists payments with optional filters.
func (r *PaymentRepository) List(ctx context.Context, f payment.ListFilter) ([]*payment.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE 1=1`
	args := []any{}
	argIdx := 1

	if f.UserID != nil {
		query += fmt.Sprintf(" AND user_id = $%d", argIdx)
		args = append(args, *f.UserID)
		argIdx++
	}
	if f.Paid != nil {
		query += fmt.Sprintf(" AND is_paid = $%d", argIdx)
		args = append(args, *f.Paid)
		argIdx++
	}

	query += " ORDER BY created_at DESC"

	limit := f.Limit
	if limit <= 0 {
		limit = 20
	}
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
	args = append(args, limit, f.Offset)

	rows, err := r.db(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	var payments []*payment.Payment
	for rows.Next() {
		p, err := r.scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

// MarkPaid applies the pending-to-paid transition. The UPDATE is guarded on
// is_paid = FALSE so concurrent redeliveries of the same event race at the
// store, not in application code: exactly one caller sees a row updated.
func (r *PaymentRepository) MarkPaid(ctx context.Context, id uuid.UUID, result payment.Result, paidAt time.Time) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal payment result: %w", err)
	}

	tag, err := r.db(ctx).Exec(ctx,
		`UPDATE payments
		 SET is_paid = TRUE, paid_at = $2, result = $3, updated_at = $2
		 WHERE id = $1 AND is_paid = FALSE`,
		id, paidAt, resultJSON,
	)
	if err != nil {
		return fmt.Errorf("mark payment paid: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.guardMiss(ctx, id, domainErrors.ErrPaymentAlreadyPaid)
	}
	return nil
}

// MarkReceiptSent flips the receipt flag, guarded on receipt_sent = FALSE.
func (r *PaymentRepository) MarkReceiptSent(ctx context.Context, id uuid.UUID, sentAt time.Time) error {
	tag, err := r.db(ctx).Exec(ctx,
		`UPDATE payments
		 SET receipt_sent = TRUE, receipt_sent_at = $2, updated_at = $2
		 WHERE id = $1 AND receipt_sent = FALSE`,
		id, sentAt,
	)
	if err != nil {
		return fmt.Errorf("mark receipt sent: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.guardMiss(ctx, id, domainErrors.ErrReceiptAlreadySent)
	}
	return nil
}

// guardMiss distinguishes "row absent" from "guard predicate false" after a
// conditional update touched zero rows.
func (r *PaymentRepository) guardMiss(ctx context.Context, id uuid.UUID, settled error) error {
	var exists bool
	err := r.db(ctx).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM payments WHERE id = $1)`, id,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check payment existence: %w", err)
	}
	if !exists {
		return domainErrors.ErrPaymentNotFound
	}
	return settled
}

// --- scanning helpers ---

func (r *PaymentRepository) scanPayment(s scanner) (*payment.Payment, error) {
	p := &payment.Payment{}
	var (
		amountStr string
		method    string
		result    []byte
	)
	err := s.Scan(
		&p.ID, &p.UserID, &amountStr, &p.Amount.Currency, &method, &p.InvoiceIDs,
		&p.IsPaid, &p.PaidAt, &result, &p.ReceiptSent, &p.ReceiptSentAt, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrPaymentNotFound
		}
		return nil, fmt.Errorf("scan payment: %w", err)
	}

	minor, err := numericStringToMinor(amountStr, p.Amount.Exponent())
	if err != nil {
		return nil, fmt.Errorf("parse amount: %w", err)
	}
	p.Amount.ValueMinor = minor
	p.Method = payment.Method(method)

	if len(result) > 0 {
		p.Result = &payment.Result{}
		if err := json.Unmarshal(result, p.Result); err != nil {
			return nil, fmt.Errorf("unmarshal payment result: %w", err)
		}
	}
	return p, nil
}
