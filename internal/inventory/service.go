package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Repository abstracts persistence for the service.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	ListItems(ctx context.Context, scope shared.Scope, warehouseID int64) ([]Item, error)
}

// TxRepository exposes transactional operations. Quantity reads lock the row
// so the check and the subsequent write happen under the same lock.
type TxRepository interface {
	GetWarehouse(ctx context.Context, scope shared.Scope, id int64) (Warehouse, error)
	GetItemForUpdate(ctx context.Context, scope shared.Scope, warehouseID, itemID int64) (Item, error)
	FindItemForUpdate(ctx context.Context, scope shared.Scope, warehouseID int64, name, code string) (Item, error)
	UpdateItemQty(ctx context.Context, scope shared.Scope, itemID, qty int64) error
	DeleteItem(ctx context.Context, scope shared.Scope, itemID int64) error
	InsertItem(ctx context.Context, scope shared.Scope, item Item) (Item, error)
	AppendActivity(ctx context.Context, log shared.ActivityLog) error
}

// Service coordinates stock movements.
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

// Debit decrements stock atomically and returns the post-mutation snapshot.
func (s *Service) Debit(ctx context.Context, scope shared.Scope, warehouseID, itemID, qty int64) (Item, error) {
	if err := scope.Validate(); err != nil {
		return Item{}, err
	}
	if qty <= 0 {
		return Item{}, ErrInvalidQuantity
	}
	var snapshot Item
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		item, err := DebitTx(ctx, tx, scope, warehouseID, itemID, qty)
		if err != nil {
			return err
		}
		snapshot = item
		return tx.AppendActivity(ctx, shared.ActivityLog{
			CompanyID: scope.CompanyID,
			ActorID:   scope.ActorID,
			Action:    "inventory.debit",
			Entity:    "inventory_item",
			EntityID:  fmt.Sprintf("%d", itemID),
			Meta:      map[string]any{"warehouse_id": warehouseID, "qty": qty, "remaining": item.Qty},
			At:        s.now(),
		})
	})
	if err != nil {
		return Item{}, err
	}
	return snapshot, nil
}

// Credit increments a matching item or creates a new record.
func (s *Service) Credit(ctx context.Context, scope shared.Scope, warehouseID int64, input CreditInput) (Item, error) {
	if err := scope.Validate(); err != nil {
		return Item{}, err
	}
	if input.Qty <= 0 {
		return Item{}, ErrInvalidQuantity
	}
	if input.ItemID == 0 && input.Name == "" {
		return Item{}, shared.NewValidation("inventory: item id or name required")
	}
	var snapshot Item
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.GetWarehouse(ctx, scope, warehouseID); err != nil {
			return err
		}
		item, err := CreditTx(ctx, tx, scope, warehouseID, input)
		if err != nil {
			return err
		}
		snapshot = item
		return tx.AppendActivity(ctx, shared.ActivityLog{
			CompanyID: scope.CompanyID,
			ActorID:   scope.ActorID,
			Action:    "inventory.credit",
			Entity:    "inventory_item",
			EntityID:  fmt.Sprintf("%d", item.ID),
			Meta:      map[string]any{"warehouse_id": warehouseID, "qty": input.Qty, "total": item.Qty},
			At:        s.now(),
		})
	})
	if err != nil {
		return Item{}, err
	}
	return snapshot, nil
}

// Transfer moves stock between two warehouses as one atomic step. When the
// debit exhausts the source item its record is deleted rather than left at
// zero.
func (s *Service) Transfer(ctx context.Context, scope shared.Scope, input TransferInput) (TransferResult, error) {
	if err := scope.Validate(); err != nil {
		return TransferResult{}, err
	}
	if input.Qty <= 0 {
		return TransferResult{}, ErrInvalidQuantity
	}
	if input.FromWarehouse == input.ToWarehouse {
		return TransferResult{}, ErrSameWarehouse
	}
	var result TransferResult
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.GetWarehouse(ctx, scope, input.FromWarehouse); err != nil {
			return err
		}
		if _, err := tx.GetWarehouse(ctx, scope, input.ToWarehouse); err != nil {
			return err
		}
		current, err := tx.GetItemForUpdate(ctx, scope, input.FromWarehouse, input.ItemID)
		if err != nil {
			return err
		}
		source, err := DebitTx(ctx, tx, scope, input.FromWarehouse, input.ItemID, input.Qty)
		if err != nil {
			return err
		}
		dest, err := CreditTx(ctx, tx, scope, input.ToWarehouse, CreditInput{
			Name:      current.Name,
			Code:      current.Code,
			UnitPrice: current.UnitPrice,
			Category:  current.Category,
			Qty:       input.Qty,
		})
		if err != nil {
			return err
		}
		result = TransferResult{Source: source, Dest: dest}
		return tx.AppendActivity(ctx, shared.ActivityLog{
			CompanyID: scope.CompanyID,
			ActorID:   scope.ActorID,
			Action:    "inventory.transfer",
			Entity:    "inventory_item",
			EntityID:  fmt.Sprintf("%d", input.ItemID),
			Meta: map[string]any{
				"from_warehouse": input.FromWarehouse,
				"to_warehouse":   input.ToWarehouse,
				"qty":            input.Qty,
			},
			At: s.now(),
		})
	})
	if err != nil {
		return TransferResult{}, err
	}
	return result, nil
}

// ListItems returns the warehouse's stock.
func (s *Service) ListItems(ctx context.Context, scope shared.Scope, warehouseID int64) ([]Item, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	return s.repo.ListItems(ctx, scope, warehouseID)
}

// DebitTx decrements an item inside the caller's transaction. Exhausting the
// quantity exactly deletes the record; the returned snapshot then reports
// zero quantity. The sales workflow reuses this for fulfillment debits.
func DebitTx(ctx context.Context, tx TxRepository, scope shared.Scope, warehouseID, itemID, qty int64) (Item, error) {
	if qty <= 0 {
		return Item{}, ErrInvalidQuantity
	}
	item, err := tx.GetItemForUpdate(ctx, scope, warehouseID, itemID)
	if err != nil {
		return Item{}, err
	}
	if item.Qty < qty {
		return Item{}, ErrInsufficientStock
	}
	item.Qty -= qty
	if item.Qty == 0 {
		if err := tx.DeleteItem(ctx, scope, item.ID); err != nil {
			return Item{}, err
		}
		return item, nil
	}
	if err := tx.UpdateItemQty(ctx, scope, item.ID, item.Qty); err != nil {
		return Item{}, err
	}
	return item, nil
}

// CreditTx increments an item inside the caller's transaction, matching by id
// or by name+code within the warehouse, creating the record when absent.
func CreditTx(ctx context.Context, tx TxRepository, scope shared.Scope, warehouseID int64, input CreditInput) (Item, error) {
	if input.Qty <= 0 {
		return Item{}, ErrInvalidQuantity
	}
	var item Item
	var err error
	if input.ItemID != 0 {
		item, err = tx.GetItemForUpdate(ctx, scope, warehouseID, input.ItemID)
	} else {
		item, err = tx.FindItemForUpdate(ctx, scope, warehouseID, input.Name, input.Code)
	}
	if err != nil {
		if input.ItemID == 0 && errors.Is(err, ErrItemNotFound) {
			return tx.InsertItem(ctx, scope, Item{
				CompanyID:   scope.CompanyID,
				WarehouseID: warehouseID,
				Name:        input.Name,
				Code:        input.Code,
				Qty:         input.Qty,
				UnitPrice:   input.UnitPrice,
				Category:    input.Category,
			})
		}
		return Item{}, err
	}
	item.Qty += input.Qty
	if err := tx.UpdateItemQty(ctx, scope, item.ID, item.Qty); err != nil {
		return Item{}, err
	}
	return item, nil
}
