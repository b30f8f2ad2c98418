package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	domainErrors "github.com/tasklocal/marketplace/internal/domain/errors"
	"github.com/tasklocal/marketplace/internal/domain/invoice"
)

// InvoiceRepository implements invoice.Repository using PostgreSQL.
type InvoiceRepository struct {
	pool *pgxpool.Pool
}

// NewInvoiceRepository creates a new InvoiceRepository.
func NewInvoiceRepository(pool *pgxpool.Pool) *InvoiceRepository {
	return &InvoiceRepository{pool: pool}
}

func (r *InvoiceRepository) db(ctx context.Context) DBTX {
	return ConnFromCtx(ctx, r.pool)
}

// Create inserts an invoice with its items. Callers run it inside a
// transaction so a failed item insert leaves nothing behind.
func (r *InvoiceRepository) Create(ctx context.Context, inv *invoice.Invoice) error {
	totalStr := minorToNumericString(inv.Total.ValueMinor, inv.Total.Exponent())

	_, err := r.db(ctx).Exec(ctx,
		`INSERT INTO invoices (id, contractor_id, client_id, total, currency, payment_id, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		inv.ID, inv.ContractorID, inv.ClientID, totalStr, inv.Total.Currency, inv.PaymentID, inv.CreatedAt, inv.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert invoice: %w", err)
	}

	for _, item := range inv.Items {
		amountStr := minorToNumericString(item.Amount.ValueMinor, item.Amount.Exponent())
		_, err := r.db(ctx).Exec(ctx,
			`INSERT INTO invoice_items (id, invoice_id, task_id, assignment_id, description, amount)
			 VALUES ($1,$2,$3,$4,$5,$6)`,
			item.ID, item.InvoiceID, item.TaskID, item.AssignmentID, item.Description, amountStr,
		)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return domainErrors.ErrDuplicateInvoiceItem
			}
			return fmt.Errorf("insert invoice item: %w", err)
		}
	}
	return nil
}

// GetByID retrieves an invoice and its items.
func (r *InvoiceRepository) GetByID(ctx context.Context, id uuid.UUID) (*invoice.Invoice, error) {
	inv, err := r.scanInvoice(r.db(ctx).QueryRow(ctx,
		`SELECT id, contractor_id, client_id, total, currency, payment_id, created_at, updated_at
		 FROM invoices WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	if err := r.loadItems(ctx, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

// List lists invoices with optional filters. Items are not loaded.
func (r *InvoiceRepository) List(ctx context.Context, f invoice.ListFilter) ([]*invoice.Invoice, error) {
	query := `SELECT id, contractor_id, client_id, total, currency, payment_id, created_at, updated_at
	 FROM invoices WHERE 1=1`
	args := []any{}
	argIdx := 1

	if f.ContractorID != nil {
		query += fmt.Sprintf(" AND contractor_id = $%d", argIdx)
		args = append(args, *f.ContractorID)
		argIdx++
	}
	if f.ClientID != nil {
		query += fmt.Sprintf(" AND client_id = $%d", argIdx)
		args = append(args, *f.ClientID)
		argIdx++
	}
	if f.Settled != nil {
		if *f.Settled {
			query += " AND payment_id IS NOT NULL"
		} else {
			query += " AND payment_id IS NULL"
		}
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
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	defer rows.Close()

	var invoices []*invoice.Invoice
	for rows.Next() {
		inv, err := r.scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, inv)
	}
	return invoices, rows.Err()
}

// Settle links invoices to the payment that settled them. The guard on
// payment_id IS NULL keeps settlement immutable: a settled invoice is never
// re-pointed at another payment.
func (r *InvoiceRepository) Settle(ctx context.Context, paymentID uuid.UUID, invoiceIDs []uuid.UUID) (int64, error) {
	tag, err := r.db(ctx).Exec(ctx,
		`UPDATE invoices SET payment_id = $1, updated_at = NOW()
		 WHERE id = ANY($2) AND payment_id IS NULL`,
		paymentID, invoiceIDs,
	)
	if err != nil {
		return 0, fmt.Errorf("settle invoices: %w", err)
	}
	return tag.RowsAffected(), nil
}

// --- scanning helpers ---

func (r *InvoiceRepository) scanInvoice(s scanner) (*invoice.Invoice, error) {
	inv := &invoice.Invoice{}
	var totalStr string
	err := s.Scan(
		&inv.ID, &inv.ContractorID, &inv.ClientID, &totalStr, &inv.Total.Currency,
		&inv.PaymentID, &inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrInvoiceNotFound
		}
		return nil, fmt.Errorf("scan invoice: %w", err)
	}

	minor, err := numericStringToMinor(totalStr, inv.Total.Exponent())
	if err != nil {
		return nil, fmt.Errorf("parse invoice total: %w", err)
	}
	inv.Total.ValueMinor = minor
	return inv, nil
}

func (r *InvoiceRepository) loadItems(ctx context.Context, inv *invoice.Invoice) error {
	rows, err := r.db(ctx).Query(ctx,
		`SELECT id, invoice_id, task_id, assignment_id, description, amount
		 FROM invoice_items WHERE invoice_id = $1 ORDER BY id`, inv.ID,
	)
	if err != nil {
		return fmt.Errorf("list invoice items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		item := &invoice.Item{Amount: inv.Total}
		var amountStr string
		if err := rows.Scan(&item.ID, &item.InvoiceID, &item.TaskID, &item.AssignmentID, &item.Description, &amountStr); err != nil {
			return fmt.Errorf("scan invoice item: %w", err)
		}
		minor, err := numericStringToMinor(amountStr, inv.Total.Exponent())
		if err != nil {
			return fmt.Errorf("parse item amount: %w", err)
		}
		item.Amount.ValueMinor = minor
		inv.Items = append(inv.Items, item)
	}
	return rows.Err()
}
