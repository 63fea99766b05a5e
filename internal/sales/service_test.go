package sales

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/debts"
	"github.com/meridian-erp/meridian-erp/internal/inventory"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

type memoryInventory struct {
	warehouses map[int64]inventory.Warehouse
	items      map[int64]inventory.Item
	nextID     int64
}

func newMemoryInventory() *memoryInventory {
	return &memoryInventory{
		warehouses: make(map[int64]inventory.Warehouse),
		items:      make(map[int64]inventory.Item),
	}
}

func (m *memoryInventory) addWarehouse(companyID int64) inventory.Warehouse {
	m.nextID++
	w := inventory.Warehouse{ID: m.nextID, CompanyID: companyID}
	m.warehouses[w.ID] = w
	return w
}

func (m *memoryInventory) addItem(companyID, warehouseID, qty int64, price float64) inventory.Item {
	m.nextID++
	it := inventory.Item{ID: m.nextID, CompanyID: companyID, WarehouseID: warehouseID, Qty: qty, UnitPrice: price}
	m.items[it.ID] = it
	return it
}

func (m *memoryInventory) GetWarehouse(ctx context.Context, scope shared.Scope, id int64) (inventory.Warehouse, error) {
	w, ok := m.warehouses[id]
	if !ok || w.CompanyID != scope.CompanyID {
		return inventory.Warehouse{}, inventory.ErrWarehouseNotFound
	}
	return w, nil
}

func (m *memoryInventory) GetItemForUpdate(ctx context.Context, scope shared.Scope, warehouseID, itemID int64) (inventory.Item, error) {
	it, ok := m.items[itemID]
	if !ok || it.CompanyID != scope.CompanyID || it.WarehouseID != warehouseID {
		return inventory.Item{}, inventory.ErrItemNotFound
	}
	return it, nil
}

func (m *memoryInventory) FindItemForUpdate(ctx context.Context, scope shared.Scope, warehouseID int64, name, code string) (inventory.Item, error) {
	return inventory.Item{}, inventory.ErrItemNotFound
}

func (m *memoryInventory) UpdateItemQty(ctx context.Context, scope shared.Scope, itemID, qty int64) error {
	it := m.items[itemID]
	it.Qty = qty
	m.items[itemID] = it
	return nil
}

func (m *memoryInventory) DeleteItem(ctx context.Context, scope shared.Scope, itemID int64) error {
	delete(m.items, itemID)
	return nil
}

func (m *memoryInventory) InsertItem(ctx context.Context, scope shared.Scope, item inventory.Item) (inventory.Item, error) {
	m.nextID++
	item.ID = m.nextID
	m.items[item.ID] = item
	return item, nil
}

func (m *memoryInventory) AppendActivity(ctx context.Context, log shared.ActivityLog) error {
	return nil
}

type memoryRepo struct {
	inv        *memoryInventory
	invoices   []Invoice
	debts      []debts.Debt
	activities []shared.ActivityLog
	sequence   int64
	nextID     int64
}

type memoryTx struct {
	repo *memoryRepo
}

func newMemoryRepo(inv *memoryInventory) *memoryRepo {
	return &memoryRepo{inv: inv}
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memoryTx{repo: r})
}

func (r *memoryRepo) ListInvoices(ctx context.Context, scope shared.Scope) ([]Invoice, error) {
	var out []Invoice
	for _, inv := range r.invoices {
		if inv.CompanyID == scope.CompanyID {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (tx *memoryTx) Inventory() inventory.TxRepository { return tx.repo.inv }

func (tx *memoryTx) NextInvoiceNumber(ctx context.Context, scope shared.Scope) (string, error) {
	tx.repo.sequence++
	return fmt.Sprintf("INV-%04d", tx.repo.sequence), nil
}

func (tx *memoryTx) InsertInvoice(ctx context.Context, scope shared.Scope, invoice Invoice) (Invoice, error) {
	tx.repo.nextID++
	invoice.ID = tx.repo.nextID
	tx.repo.invoices = append(tx.repo.invoices, invoice)
	return invoice, nil
}

func (tx *memoryTx) InsertDebt(ctx context.Context, scope shared.Scope, debt debts.Debt) (debts.Debt, error) {
	tx.repo.nextID++
	debt.ID = tx.repo.nextID
	tx.repo.debts = append(tx.repo.debts, debt)
	return debt, nil
}

func (tx *memoryTx) AppendActivity(ctx context.Context, log shared.ActivityLog) error {
	tx.repo.activities = append(tx.repo.activities, log)
	return nil
}

type memoryIdempotency struct {
	keys    map[string]bool
	deleted []string
}

func newMemoryIdempotency() *memoryIdempotency {
	return &memoryIdempotency{keys: make(map[string]bool)}
}

func (m *memoryIdempotency) CheckAndInsert(ctx context.Context, key, module string) error {
	if m.keys[key] {
		return shared.ErrIdempotencyConflict
	}
	m.keys[key] = true
	return nil
}

func (m *memoryIdempotency) Delete(ctx context.Context, key string) error {
	delete(m.keys, key)
	m.deleted = append(m.deleted, key)
	return nil
}

var saleDate = time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return saleDate }

func TestRecordCashSale(t *testing.T) {
	inv := newMemoryInventory()
	wh := inv.addWarehouse(1)
	item := inv.addItem(1, wh.ID, 10, 25)
	repo := newMemoryRepo(inv)
	svc := NewService(repo, nil)
	svc.WithNow(fixedNow)
	scope := shared.Scope{CompanyID: 1, ActorID: 9}

	result, err := svc.RecordSale(context.Background(), scope, RecordSaleInput{
		WarehouseID: wh.ID,
		Buyer:       Buyer{Name: "Acme"},
		Lines:       []SaleLine{{ItemID: item.ID, Qty: 4, UnitPrice: 25}},
	})
	require.NoError(t, err)
	require.Equal(t, InvoiceStatusPaid, result.Invoice.Status)
	require.Equal(t, "INV-0001", result.Invoice.Number)
	require.InDelta(t, 100, result.Invoice.Amount, 0.001)
	require.NotEmpty(t, result.Invoice.PublicID)
	require.Nil(t, result.Debt)
	require.EqualValues(t, 6, inv.items[item.ID].Qty)
	require.Len(t, repo.activities, 1)
	require.Equal(t, "sales.record", repo.activities[0].Action)
}

func TestRecordCashSaleExhaustsStock(t *testing.T) {
	inv := newMemoryInventory()
	wh := inv.addWarehouse(1)
	item := inv.addItem(1, wh.ID, 5, 10)
	repo := newMemoryRepo(inv)
	svc := NewService(repo, nil)

	result, err := svc.RecordSale(context.Background(), shared.Scope{CompanyID: 1}, RecordSaleInput{
		WarehouseID: wh.ID,
		Buyer:       Buyer{Name: "Acme"},
		Lines:       []SaleLine{{ItemID: item.ID, Qty: 5, UnitPrice: 10}},
	})
	require.NoError(t, err)
	require.InDelta(t, 50, result.Invoice.Amount, 0.001)
	require.Equal(t, InvoiceStatusPaid, result.Invoice.Status)
	require.Nil(t, result.Debt)
	_, ok := inv.items[item.ID]
	require.False(t, ok, "fully sold item record is removed")
}

func TestRecordCreditSale(t *testing.T) {
	inv := newMemoryInventory()
	wh := inv.addWarehouse(1)
	item := inv.addItem(1, wh.ID, 10, 25)
	repo := newMemoryRepo(inv)
	svc := NewService(repo, nil)
	svc.WithNow(fixedNow)
	due := saleDate.AddDate(0, 1, 0)

	result, err := svc.RecordSale(context.Background(), shared.Scope{CompanyID: 1}, RecordSaleInput{
		WarehouseID: wh.ID,
		Buyer:       Buyer{Name: "Acme", Type: "company", Contact: "acme@example.com"},
		Lines:       []SaleLine{{ItemID: item.ID, Qty: 2, UnitPrice: 30}},
		OnCredit:    true,
		DueDate:     &due,
	})
	require.NoError(t, err)
	require.Equal(t, InvoiceStatusPending, result.Invoice.Status)
	require.NotNil(t, result.Debt)
	require.InDelta(t, 60, result.Debt.OriginalAmount, 0.001)
	require.InDelta(t, 60, result.Debt.RemainingAmount, 0.001)
	require.Equal(t, debts.StatusActive, result.Debt.Status)
	require.Equal(t, due, result.Debt.DueDate)
	require.NotNil(t, result.Debt.InvoiceID)
	require.Equal(t, result.Invoice.ID, *result.Debt.InvoiceID)
}

func TestRecordCreditSaleRequiresDueDate(t *testing.T) {
	svc := NewService(newMemoryRepo(newMemoryInventory()), nil)

	_, err := svc.RecordSale(context.Background(), shared.Scope{CompanyID: 1}, RecordSaleInput{
		WarehouseID: 1,
		Buyer:       Buyer{Name: "Acme"},
		Lines:       []SaleLine{{ItemID: 1, Qty: 1, UnitPrice: 5}},
		OnCredit:    true,
	})
	require.Equal(t, shared.KindValidation, shared.KindOf(err))
}

func TestRecordSaleInsufficientStockAborts(t *testing.T) {
	inv := newMemoryInventory()
	wh := inv.addWarehouse(1)
	first := inv.addItem(1, wh.ID, 10, 5)
	second := inv.addItem(1, wh.ID, 1, 5)
	repo := newMemoryRepo(inv)
	svc := NewService(repo, nil)

	_, err := svc.RecordSale(context.Background(), shared.Scope{CompanyID: 1}, RecordSaleInput{
		WarehouseID: wh.ID,
		Buyer:       Buyer{Name: "Acme"},
		Lines: []SaleLine{
			{ItemID: first.ID, Qty: 2, UnitPrice: 5},
			{ItemID: second.ID, Qty: 3, UnitPrice: 5},
		},
	})
	require.Error(t, err)
	require.ErrorIs(t, err, inventory.ErrInsufficientStock)
	require.Equal(t, shared.KindBusinessRule, shared.KindOf(err))
	require.Empty(t, repo.invoices, "no invoice on a failed fulfillment")
	require.Empty(t, repo.debts)
}

func TestRecordSaleUnknownWarehouse(t *testing.T) {
	inv := newMemoryInventory()
	foreign := inv.addWarehouse(2)
	repo := newMemoryRepo(inv)
	svc := NewService(repo, nil)

	_, err := svc.RecordSale(context.Background(), shared.Scope{CompanyID: 1}, RecordSaleInput{
		WarehouseID: foreign.ID,
		Buyer:       Buyer{Name: "Acme"},
		Lines:       []SaleLine{{ItemID: 1, Qty: 1, UnitPrice: 5}},
	})
	require.ErrorIs(t, err, inventory.ErrWarehouseNotFound)
}

func TestInvoiceNumbersSequential(t *testing.T) {
	inv := newMemoryInventory()
	wh := inv.addWarehouse(1)
	item := inv.addItem(1, wh.ID, 100, 1)
	repo := newMemoryRepo(inv)
	svc := NewService(repo, nil)
	scope := shared.Scope{CompanyID: 1}

	for i := 1; i <= 3; i++ {
		result, err := svc.RecordSale(context.Background(), scope, RecordSaleInput{
			WarehouseID: wh.ID,
			Buyer:       Buyer{Name: "Acme"},
			Lines:       []SaleLine{{ItemID: item.ID, Qty: 1, UnitPrice: 1}},
		})
		require.NoError(t, err)
		require.Equal(t, fmt.Sprintf("INV-%04d", i), result.Invoice.Number)
	}
}

func TestIdempotencyDuplicateRejected(t *testing.T) {
	inv := newMemoryInventory()
	wh := inv.addWarehouse(1)
	item := inv.addItem(1, wh.ID, 10, 5)
	repo := newMemoryRepo(inv)
	idem := newMemoryIdempotency()
	svc := NewService(repo, idem)
	scope := shared.Scope{CompanyID: 1}
	input := RecordSaleInput{
		WarehouseID:    wh.ID,
		Buyer:          Buyer{Name: "Acme"},
		Lines:          []SaleLine{{ItemID: item.ID, Qty: 1, UnitPrice: 5}},
		IdempotencyKey: "req-1",
	}

	_, err := svc.RecordSale(context.Background(), scope, input)
	require.NoError(t, err)

	_, err = svc.RecordSale(context.Background(), scope, input)
	require.Equal(t, shared.KindConflict, shared.KindOf(err))
	require.Len(t, repo.invoices, 1)
}

func TestIdempotencyKeyReleasedOnFailure(t *testing.T) {
	inv := newMemoryInventory()
	wh := inv.addWarehouse(1)
	item := inv.addItem(1, wh.ID, 1, 5)
	repo := newMemoryRepo(inv)
	idem := newMemoryIdempotency()
	svc := NewService(repo, idem)
	scope := shared.Scope{CompanyID: 1}
	input := RecordSaleInput{
		WarehouseID:    wh.ID,
		Buyer:          Buyer{Name: "Acme"},
		Lines:          []SaleLine{{ItemID: item.ID, Qty: 5, UnitPrice: 5}},
		IdempotencyKey: "req-2",
	}

	_, err := svc.RecordSale(context.Background(), scope, input)
	require.Error(t, err)
	require.Contains(t, idem.deleted, "req-2", "failed attempt must release its key")

	// The caller can retry with a corrected quantity under the same key.
	input.Lines[0].Qty = 1
	_, err = svc.RecordSale(context.Background(), scope, input)
	require.NoError(t, err)
}

func TestPublicIDStableForSameDocument(t *testing.T) {
	inv := newMemoryInventory()
	wh := inv.addWarehouse(1)
	item := inv.addItem(1, wh.ID, 100, 1)
	repo := newMemoryRepo(inv)
	svc := NewService(repo, nil)

	first, err := svc.RecordSale(context.Background(), shared.Scope{CompanyID: 1}, RecordSaleInput{
		WarehouseID: wh.ID,
		Buyer:       Buyer{Name: "Acme"},
		Lines:       []SaleLine{{ItemID: item.ID, Qty: 1, UnitPrice: 1}},
	})
	require.NoError(t, err)

	repo2 := newMemoryRepo(inv)
	svc2 := NewService(repo2, nil)
	again, err := svc2.RecordSale(context.Background(), shared.Scope{CompanyID: 1}, RecordSaleInput{
		WarehouseID: wh.ID,
		Buyer:       Buyer{Name: "Acme"},
		Lines:       []SaleLine{{ItemID: item.ID, Qty: 1, UnitPrice: 1}},
	})
	require.NoError(t, err)
	require.Equal(t, first.Invoice.PublicID, again.Invoice.PublicID,
		"same company and number derive the same public id")
}
