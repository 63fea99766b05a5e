package debts

import (
	"context"
	"fmt"
	"time"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Repository abstracts persistence for the service.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetDebt(ctx context.Context, scope shared.Scope, debtID int64) (Debt, error)
	ListDebts(ctx context.Context, scope shared.Scope) ([]Debt, error)
	ListPayments(ctx context.Context, scope shared.Scope, debtID int64) ([]Payment, error)
	MarkOverdue(ctx context.Context, asOf time.Time) (int64, error)
}

// TxRepository exposes transactional operations for the payment workflow.
type TxRepository interface {
	GetDebtForUpdate(ctx context.Context, scope shared.Scope, debtID int64) (Debt, error)
	InsertPayment(ctx context.Context, scope shared.Scope, payment Payment) (Payment, error)
	UpdateDebt(ctx context.Context, scope shared.Scope, debt Debt) error
	UpdateInvoiceStatus(ctx context.Context, scope shared.Scope, invoiceID int64, status string) error
	AppendActivity(ctx context.Context, log shared.ActivityLog) error
}

const invoiceStatusPaid = "paid"

// Service allocates payments against debts.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService builds Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// WithNow overrides the clock, used by tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// ApplyPayment records a payment, decrements the remaining balance and, when
// the balance reaches zero, cascades the linked invoice to paid. The payment
// row, the balance update, the cascade and the audit record commit together
// or not at all.
func (s *Service) ApplyPayment(ctx context.Context, scope shared.Scope, input ApplyPaymentInput) (ApplyPaymentResult, error) {
	if err := scope.Validate(); err != nil {
		return ApplyPaymentResult{}, err
	}
	if err := input.Validate(); err != nil {
		return ApplyPaymentResult{}, err
	}
	var result ApplyPaymentResult
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		debt, err := tx.GetDebtForUpdate(ctx, scope, input.DebtID)
		if err != nil {
			return err
		}
		if input.Amount > debt.RemainingAmount {
			return ErrExceedsRemaining
		}

		payment, err := tx.InsertPayment(ctx, scope, Payment{
			CompanyID:  scope.CompanyID,
			DebtID:     debt.ID,
			Amount:     input.Amount,
			PaidAt:     input.PaidAt,
			Method:     input.Method,
			Reference:  input.Reference,
			Note:       input.Note,
			RecordedBy: scope.ActorID,
		})
		if err != nil {
			return err
		}

		debt.RemainingAmount -= input.Amount
		debt.LastPaymentDate = &input.PaidAt
		debt.LastPaymentAmount = &input.Amount
		fullyPaid := debt.RemainingAmount <= 0
		if fullyPaid {
			debt.RemainingAmount = 0
			debt.Status = StatusPaid
		}
		if err := tx.UpdateDebt(ctx, scope, debt); err != nil {
			return err
		}
		if fullyPaid && debt.InvoiceID != nil {
			if err := tx.UpdateInvoiceStatus(ctx, scope, *debt.InvoiceID, invoiceStatusPaid); err != nil {
				return err
			}
		}

		result = ApplyPaymentResult{Payment: payment, Remaining: debt.RemainingAmount}
		return tx.AppendActivity(ctx, shared.ActivityLog{
			CompanyID: scope.CompanyID,
			ActorID:   scope.ActorID,
			Action:    "debts.payment",
			Entity:    "debt",
			EntityID:  fmt.Sprintf("%d", debt.ID),
			Meta: map[string]any{
				"amount":    input.Amount,
				"remaining": debt.RemainingAmount,
				"method":    input.Method,
			},
			At: s.now(),
		})
	})
	if err != nil {
		return ApplyPaymentResult{}, err
	}
	return result, nil
}

// ListPayments returns a debt's payments, newest payment date first. The debt
// must belong to the company or the call fails as not found.
func (s *Service) ListPayments(ctx context.Context, scope shared.Scope, debtID int64) ([]Payment, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.repo.GetDebt(ctx, scope, debtID); err != nil {
		return nil, err
	}
	return s.repo.ListPayments(ctx, scope, debtID)
}

// ListDebts returns the company's debts.
func (s *Service) ListDebts(ctx context.Context, scope shared.Scope) ([]Debt, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	return s.repo.ListDebts(ctx, scope)
}

// MarkOverdue flips active debts past their due date to overdue. Runs across
// companies; the background worker is its only caller.
func (s *Service) MarkOverdue(ctx context.Context, asOf time.Time) (int64, error) {
	if asOf.IsZero() {
		asOf = s.now()
	}
	return s.repo.MarkOverdue(ctx, asOf)
}
