package inventory

import (
	"time"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Warehouse is a stock location owned by one company.
type Warehouse struct {
	ID        int64
	CompanyID int64
	Name      string
	CreatedAt time.Time
}

// Item is a stocked product in one warehouse. Qty never goes negative; a
// mutation that would make it negative aborts the whole enclosing workflow.
type Item struct {
	ID          int64
	CompanyID   int64
	WarehouseID int64
	Name        string
	Code        string
	Qty         int64
	UnitPrice   float64
	Category    string
	CreatedAt   time.Time
}

var (
	// ErrInsufficientStock indicates a debit larger than the current quantity.
	ErrInsufficientStock = shared.NewBusinessRule("inventory: insufficient stock")
	// ErrItemNotFound indicates a missing or foreign item.
	ErrItemNotFound = shared.NewNotFound("inventory: item not found")
	// ErrWarehouseNotFound indicates a missing or foreign warehouse.
	ErrWarehouseNotFound = shared.NewNotFound("inventory: warehouse not found")
	// ErrSameWarehouse indicates a transfer onto itself.
	ErrSameWarehouse = shared.NewBusinessRule("inventory: source and destination warehouse must differ")
	// ErrInvalidQuantity indicates a non-positive quantity.
	ErrInvalidQuantity = shared.NewValidation("inventory: quantity must be positive")
)

// CreditInput identifies stock to add. When ItemID is zero the item is
// matched by name and code within the warehouse, or created if absent.
type CreditInput struct {
	ItemID    int64
	Name      string
	Code      string
	UnitPrice float64
	Category  string
	Qty       int64
}

// TransferInput describes a move between two warehouses of one company.
type TransferInput struct {
	ItemID        int64
	FromWarehouse int64
	ToWarehouse   int64
	Qty           int64
}

// TransferResult reports both post-mutation snapshots. Source.Qty is zero
// when the transfer exhausted and deleted the source record.
type TransferResult struct {
	Source Item
	Dest   Item
}
