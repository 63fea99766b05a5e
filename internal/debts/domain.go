package debts

import (
	"time"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Status enumerates debt lifecycle values.
type Status string

const (
	StatusActive  Status = "active"
	StatusOverdue Status = "overdue"
	StatusPaid    Status = "paid"
)

// Debt is an outstanding receivable tied to a company and optionally an
// invoice. RemainingAmount always stays within [0, OriginalAmount].
type Debt struct {
	ID                int64
	CompanyID         int64
	InvoiceID         *int64
	DebtorName        string
	DebtorType        string
	DebtorContact     string
	OriginalAmount    float64
	RemainingAmount   float64
	SaleDate          time.Time
	DueDate           time.Time
	LastPaymentDate   *time.Time
	LastPaymentAmount *float64
	Status            Status
	CreatedAt         time.Time
}

// Payment is an append-only record of one allocation against a debt.
type Payment struct {
	ID         int64
	CompanyID  int64
	DebtID     int64
	Amount     float64
	PaidAt     time.Time
	Method     string
	Reference  string
	Note       string
	RecordedBy int64
	CreatedAt  time.Time
}

var (
	// ErrDebtNotFound indicates a missing or foreign debt.
	ErrDebtNotFound = shared.NewNotFound("debts: debt not found")
	// ErrInvalidAmount indicates a non-positive payment.
	ErrInvalidAmount = shared.NewValidation("debts: payment amount must be positive")
	// ErrExceedsRemaining indicates a payment larger than the open balance.
	ErrExceedsRemaining = shared.NewBusinessRule("debts: payment exceeds remaining balance")
)

// ApplyPaymentInput groups fields for recording a payment.
type ApplyPaymentInput struct {
	DebtID    int64
	Amount    float64
	PaidAt    time.Time
	Method    string
	Reference string
	Note      string
}

// Validate checks shape before any mutation.
func (in ApplyPaymentInput) Validate() error {
	if in.DebtID == 0 {
		return shared.NewValidation("debts: debt id required")
	}
	if in.Amount <= 0 {
		return ErrInvalidAmount
	}
	if in.PaidAt.IsZero() {
		return shared.NewValidation("debts: payment date required")
	}
	return nil
}

// ApplyPaymentResult reports the inserted payment and the balance after it,
// so callers can distinguish "fully paid" from "payment recorded".
type ApplyPaymentResult struct {
	Payment   Payment
	Remaining float64
}
