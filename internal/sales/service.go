package sales

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/meridian-erp/meridian-erp/internal/debts"
	"github.com/meridian-erp/meridian-erp/internal/inventory"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Repository abstracts persistence for the service.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	ListInvoices(ctx context.Context, scope shared.Scope) ([]Invoice, error)
}

// TxRepository exposes transactional operations for the fulfillment workflow.
// Inventory returns the inventory operations bound to the same transaction,
// so stock debits commit or roll back with the invoice they back.
type TxRepository interface {
	Inventory() inventory.TxRepository
	NextInvoiceNumber(ctx context.Context, scope shared.Scope) (string, error)
	InsertInvoice(ctx context.Context, scope shared.Scope, invoice Invoice) (Invoice, error)
	InsertDebt(ctx context.Context, scope shared.Scope, debt debts.Debt) (debts.Debt, error)
	AppendActivity(ctx context.Context, log shared.ActivityLog) error
}

// IdempotencyPort guards against duplicate submissions.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// Service turns fulfillment events into invoices and debts.
type Service struct {
	repo        Repository
	idempotency IdempotencyPort
	now         func() time.Time
}

// NewService builds Service. The idempotency store may be nil.
func NewService(repo Repository, idem IdempotencyPort) *Service {
	return &Service{repo: repo, idempotency: idem, now: time.Now}
}

// WithNow overrides the clock, used by tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// RecordSale debits stock for every line, creates the invoice and, for credit
// sales, the backing debt, all inside one unit of work. The first failing
// line aborts the whole operation with no partial effect.
func (s *Service) RecordSale(ctx context.Context, scope shared.Scope, input RecordSaleInput) (RecordSaleResult, error) {
	if err := scope.Validate(); err != nil {
		return RecordSaleResult{}, err
	}
	if err := input.Validate(); err != nil {
		return RecordSaleResult{}, err
	}

	insertedKey := false
	if s.idempotency != nil && input.IdempotencyKey != "" {
		if err := s.idempotency.CheckAndInsert(ctx, input.IdempotencyKey, "sales"); err != nil {
			return RecordSaleResult{}, err
		}
		insertedKey = true
	}

	var result RecordSaleResult
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		inv := tx.Inventory()
		if _, err := inv.GetWarehouse(ctx, scope, input.WarehouseID); err != nil {
			return err
		}
		items := make([]inventory.Item, 0, len(input.Lines))
		for _, line := range input.Lines {
			item, err := inventory.DebitTx(ctx, inv, scope, input.WarehouseID, line.ItemID, line.Qty)
			if err != nil {
				return &shared.Error{
					Kind:    shared.KindOf(err),
					Message: fmt.Sprintf("sales: item %d", line.ItemID),
					Err:     err,
				}
			}
			items = append(items, item)
		}

		now := s.now()
		total := input.Total()
		number, err := tx.NextInvoiceNumber(ctx, scope)
		if err != nil {
			return err
		}
		status := InvoiceStatusPaid
		if input.OnCredit {
			status = InvoiceStatusPending
		}
		// Stable external reference derived from the document identity, so
		// retried submissions of the same invoice share one public id.
		publicID := uuid.NewSHA1(uuid.Nil, []byte(fmt.Sprintf("INV:%d:%s", scope.CompanyID, number)))
		invoice, err := tx.InsertInvoice(ctx, scope, Invoice{
			CompanyID:  scope.CompanyID,
			PublicID:   publicID.String(),
			Number:     number,
			ClientName: input.Buyer.Name,
			Amount:     total,
			Status:     status,
			IssueDate:  now,
			DueDate:    input.DueDate,
			CreatedBy:  scope.ActorID,
		})
		if err != nil {
			return err
		}

		var debt *debts.Debt
		if input.OnCredit {
			inserted, err := tx.InsertDebt(ctx, scope, debts.Debt{
				CompanyID:       scope.CompanyID,
				InvoiceID:       &invoice.ID,
				DebtorName:      input.Buyer.Name,
				DebtorType:      input.Buyer.Type,
				DebtorContact:   input.Buyer.Contact,
				OriginalAmount:  total,
				RemainingAmount: total,
				SaleDate:        now,
				DueDate:         *input.DueDate,
				Status:          debts.StatusActive,
			})
			if err != nil {
				return err
			}
			debt = &inserted
		}

		result = RecordSaleResult{Invoice: invoice, Debt: debt, Items: items}
		return tx.AppendActivity(ctx, shared.ActivityLog{
			CompanyID: scope.CompanyID,
			ActorID:   scope.ActorID,
			Action:    "sales.record",
			Entity:    "invoice",
			EntityID:  invoice.Number,
			Meta: map[string]any{
				"warehouse_id": input.WarehouseID,
				"buyer":        input.Buyer.Name,
				"lines":        len(input.Lines),
				"total":        total,
				"on_credit":    input.OnCredit,
			},
			At: now,
		})
	})
	if err != nil {
		if insertedKey {
			_ = s.idempotency.Delete(ctx, input.IdempotencyKey)
		}
		return RecordSaleResult{}, err
	}
	return result, nil
}

// ListInvoices returns the company's invoices, newest first.
func (s *Service) ListInvoices(ctx context.Context, scope shared.Scope) ([]Invoice, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	return s.repo.ListInvoices(ctx, scope)
}
