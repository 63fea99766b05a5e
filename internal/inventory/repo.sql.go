package inventory

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-erp/internal/platform/db"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// PGRepository persists inventory data in PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs PGRepository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *PGRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, NewTxRepository(tx))
	})
}

// ListItems returns warehouse stock ordered by name.
func (r *PGRepository) ListItems(ctx context.Context, scope shared.Scope, warehouseID int64) ([]Item, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, company_id, warehouse_id, name, code, qty, unit_price, category, created_at
FROM inventory_items WHERE company_id=$1 AND warehouse_id=$2 ORDER BY name`, scope.CompanyID, warehouseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.CompanyID, &it.WarehouseID, &it.Name, &it.Code, &it.Qty, &it.UnitPrice, &it.Category, &it.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

type txRepo struct {
	tx pgx.Tx
}

// NewTxRepository wraps an open transaction. The sales workflow uses this to
// run inventory mutations inside its own unit of work.
func NewTxRepository(tx pgx.Tx) TxRepository {
	return &txRepo{tx: tx}
}

func (r *txRepo) GetWarehouse(ctx context.Context, scope shared.Scope, id int64) (Warehouse, error) {
	var w Warehouse
	err := r.tx.QueryRow(ctx, `SELECT id, company_id, name, created_at FROM warehouses WHERE company_id=$1 AND id=$2`,
		scope.CompanyID, id).Scan(&w.ID, &w.CompanyID, &w.Name, &w.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Warehouse{}, ErrWarehouseNotFound
	}
	return w, err
}

func (r *txRepo) GetItemForUpdate(ctx context.Context, scope shared.Scope, warehouseID, itemID int64) (Item, error) {
	var it Item
	err := r.tx.QueryRow(ctx, `SELECT id, company_id, warehouse_id, name, code, qty, unit_price, category, created_at
FROM inventory_items WHERE company_id=$1 AND warehouse_id=$2 AND id=$3 FOR UPDATE`,
		scope.CompanyID, warehouseID, itemID).
		Scan(&it.ID, &it.CompanyID, &it.WarehouseID, &it.Name, &it.Code, &it.Qty, &it.UnitPrice, &it.Category, &it.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Item{}, ErrItemNotFound
	}
	return it, err
}

func (r *txRepo) FindItemForUpdate(ctx context.Context, scope shared.Scope, warehouseID int64, name, code string) (Item, error) {
	var it Item
	err := r.tx.QueryRow(ctx, `SELECT id, company_id, warehouse_id, name, code, qty, unit_price, category, created_at
FROM inventory_items WHERE company_id=$1 AND warehouse_id=$2 AND name=$3 AND code=$4 FOR UPDATE`,
		scope.CompanyID, warehouseID, name, code).
		Scan(&it.ID, &it.CompanyID, &it.WarehouseID, &it.Name, &it.Code, &it.Qty, &it.UnitPrice, &it.Category, &it.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Item{}, ErrItemNotFound
	}
	return it, err
}

func (r *txRepo) UpdateItemQty(ctx context.Context, scope shared.Scope, itemID, qty int64) error {
	tag, err := r.tx.Exec(ctx, `UPDATE inventory_items SET qty=$3 WHERE company_id=$1 AND id=$2`,
		scope.CompanyID, itemID, qty)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrItemNotFound
	}
	return nil
}

func (r *txRepo) DeleteItem(ctx context.Context, scope shared.Scope, itemID int64) error {
	_, err := r.tx.Exec(ctx, `DELETE FROM inventory_items WHERE company_id=$1 AND id=$2`, scope.CompanyID, itemID)
	return err
}

func (r *txRepo) InsertItem(ctx context.Context, scope shared.Scope, item Item) (Item, error) {
	err := r.tx.QueryRow(ctx, `INSERT INTO inventory_items (company_id, warehouse_id, name, code, qty, unit_price, category)
VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id, created_at`,
		scope.CompanyID, item.WarehouseID, item.Name, item.Code, item.Qty, item.UnitPrice, item.Category).
		Scan(&item.ID, &item.CreatedAt)
	if err != nil {
		return Item{}, err
	}
	item.CompanyID = scope.CompanyID
	return item, nil
}

func (r *txRepo) AppendActivity(ctx context.Context, log shared.ActivityLog) error {
	return shared.AppendActivity(ctx, r.tx, log)
}
