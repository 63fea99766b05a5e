package sales

import (
	"fmt"
	"time"

	"github.com/meridian-erp/meridian-erp/internal/debts"
	"github.com/meridian-erp/meridian-erp/internal/inventory"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// InvoiceStatus enumerates invoice lifecycle values.
type InvoiceStatus string

const (
	InvoiceStatusPending InvoiceStatus = "pending"
	InvoiceStatusPaid    InvoiceStatus = "paid"
	InvoiceStatusVoid    InvoiceStatus = "void"
)

// Invoice is a billing document owned by one company. Number is sequential
// per company, drawn from an atomic counter inside the creating transaction.
type Invoice struct {
	ID         int64
	CompanyID  int64
	PublicID   string
	Number     string
	ClientName string
	Amount     float64
	Status     InvoiceStatus
	IssueDate  time.Time
	DueDate    *time.Time
	CreatedBy  int64
	CreatedAt  time.Time
}

// Buyer describes the purchasing party on a sale.
type Buyer struct {
	Name    string
	Type    string
	Contact string
}

// SaleLine references one inventory item being sold.
type SaleLine struct {
	ItemID    int64
	Qty       int64
	UnitPrice float64
}

// RecordSaleInput groups a fulfillment request.
type RecordSaleInput struct {
	WarehouseID    int64
	Buyer          Buyer
	Lines          []SaleLine
	OnCredit       bool
	DueDate        *time.Time
	IdempotencyKey string
}

// Validate checks shape before any mutation.
func (in RecordSaleInput) Validate() error {
	if in.WarehouseID == 0 {
		return shared.NewValidation("sales: warehouse required")
	}
	if in.Buyer.Name == "" {
		return shared.NewValidation("sales: buyer name required")
	}
	if len(in.Lines) == 0 {
		return shared.NewValidation("sales: at least one line item required")
	}
	for idx, line := range in.Lines {
		if line.ItemID == 0 {
			return shared.NewValidation(fmt.Sprintf("sales: line %d missing item", idx))
		}
		if line.Qty <= 0 {
			return shared.NewValidation(fmt.Sprintf("sales: line %d quantity must be positive", idx))
		}
		if line.UnitPrice < 0 {
			return shared.NewValidation(fmt.Sprintf("sales: line %d negative unit price", idx))
		}
	}
	if in.OnCredit && in.DueDate == nil {
		return shared.NewValidation("sales: due date required for credit sales")
	}
	return nil
}

// Total computes the invoice amount.
func (in RecordSaleInput) Total() float64 {
	var total float64
	for _, line := range in.Lines {
		total += float64(line.Qty) * line.UnitPrice
	}
	return total
}

// RecordSaleResult reports everything the fulfillment produced. Debt is nil
// for cash sales. Items holds the post-debit snapshots per line.
type RecordSaleResult struct {
	Invoice Invoice
	Debt    *debts.Debt
	Items   []inventory.Item
}
