package payment

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tasklocal/marketplace/internal/domain/errors"
)

// Method represents the payer-declared payment method.
type Method string

const (
	MethodCard         Method = "card"
	MethodBankTransfer Method = "bank_transfer"
)

// Amount represents a monetary amount in the smallest currency unit (e.g. cents).
type Amount struct {
	ValueMinor int64
	Currency   string
}

// minorUnitExponents maps currencies with a non-default number of minor-unit
// digits. Currencies not listed use two.
var minorUnitExponents = map[string]int32{
	"JPY": 0,
	"KRW": 0,
	"BHD": 3,
	"KWD": 3,
}

// Exponent returns the number of minor-unit digits for the amount's currency.
func (a Amount) Exponent() int32 {
	if exp, ok := minorUnitExponents[a.Currency]; ok {
		return exp
	}
	return 2
}

// MajorUnits renders the amount in major units with currency-appropriate
// precision. The conversion is exact: 12345 minor units of a two-decimal
// currency is always "123.45".
func (a Amount) MajorUnits() string {
	return decimal.New(a.ValueMinor, -a.Exponent()).StringFixed(a.Exponent())
}

// String returns a human-readable representation of the amount.
func (a Amount) String() string {
	return a.MajorUnits() + " " + a.Currency
}

// Validate checks that the amount is valid.
func (a Amount) Validate() error {
	if a.ValueMinor <= 0 {
		return errors.NewValidationError("amount", "must be greater than 0")
	}
	if len(a.Currency) != 3 {
		return errors.NewValidationError("currency", "must be a 3-letter ISO code")
	}
	return nil
}

// Result holds the fields derived from a provider charge event. Only these
// derived fields are persisted; the raw event is never stored.
type Result struct {
	ExternalID  string    `json:"external_id"`
	Status      string    `json:"status"`
	PayerEmail  string    `json:"payer_email"`
	AmountMajor string    `json:"amount_major"`
	CapturedAt  time.Time `json:"captured_at"`
}

// Payment identifies a funds-transfer attempt by a user against one or more
// invoices. IsPaid transitions false to true exactly once; PaidAt is set iff
// IsPaid is true.
type Payment struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	Amount        Amount
	Method        Method
	InvoiceIDs    []uuid.UUID
	IsPaid        bool
	PaidAt        *time.Time
	Result        *Result
	ReceiptSent   bool
	ReceiptSentAt *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewPayment creates a pending payment for the given invoices.
func NewPayment(userID uuid.UUID, amount Amount, method Method, invoiceIDs []uuid.UUID) (*Payment, error) {
	if err := amount.Validate(); err != nil {
		return nil, err
	}
	if len(invoiceIDs) == 0 {
		return nil, errors.NewValidationError("invoice_ids", "at least one invoice required")
	}
	now := time.Now()
	return &Payment{
		ID:         uuid.New(),
		UserID:     userID,
		Amount:     amount,
		Method:     method,
		InvoiceIDs: invoiceIDs,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// MarkPaid applies the pending-to-paid transition in memory. The transition is
// terminal: calling it on a paid payment returns ErrPaymentAlreadyPaid.
// Persistence must use the repository's conditional update so that concurrent
// deliveries cannot both win.
func (p *Payment) MarkPaid(result Result, at time.Time) error {
	if p.IsPaid {
		return errors.ErrPaymentAlreadyPaid
	}
	p.IsPaid = true
	p.PaidAt = &at
	p.Result = &result
	p.UpdatedAt = at
	return nil
}

// MarkReceiptSent records receipt delivery. Like MarkPaid, the flag is
// one-way.
func (p *Payment) MarkReceiptSent(at time.Time) error {
	if !p.IsPaid {
		return errors.NewDomainError("receipt_before_payment", "cannot send receipt for unpaid payment", nil)
	}
	if p.ReceiptSent {
		return errors.ErrReceiptAlreadySent
	}
	p.ReceiptSent = true
	p.ReceiptSentAt = &at
	p.UpdatedAt = at
	return nil
}
