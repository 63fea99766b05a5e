package sales

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-erp/internal/debts"
	"github.com/meridian-erp/meridian-erp/internal/inventory"
	"github.com/meridian-erp/meridian-erp/internal/platform/db"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// PGRepository provides PostgreSQL backed persistence.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// WithTx wraps the callback in a repeatable-read transaction.
func (r *PGRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx, inv: inventory.NewTxRepository(tx)})
	})
}

// ListInvoices returns the company's invoices, newest first.
func (r *PGRepository) ListInvoices(ctx context.Context, scope shared.Scope) ([]Invoice, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, company_id, public_id, number, client_name, amount, status, issue_date, due_date, created_by, created_at
FROM invoices WHERE company_id=$1 ORDER BY issue_date DESC, id DESC`, scope.CompanyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Invoice
	for rows.Next() {
		var inv Invoice
		if err := rows.Scan(&inv.ID, &inv.CompanyID, &inv.PublicID, &inv.Number, &inv.ClientName, &inv.Amount, &inv.Status, &inv.IssueDate, &inv.DueDate, &inv.CreatedBy, &inv.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

type txRepo struct {
	tx  pgx.Tx
	inv inventory.TxRepository
}

func (r *txRepo) Inventory() inventory.TxRepository { return r.inv }

// NextInvoiceNumber draws from the per-company counter row with an atomic
// upsert-increment, inside the same transaction that inserts the invoice, so
// concurrent sales can never produce duplicate numbers.
func (r *txRepo) NextInvoiceNumber(ctx context.Context, scope shared.Scope) (string, error) {
	var next int64
	err := r.tx.QueryRow(ctx, `INSERT INTO invoice_sequences (company_id, last_value) VALUES ($1, 1)
ON CONFLICT (company_id) DO UPDATE SET last_value = invoice_sequences.last_value + 1
RETURNING last_value`, scope.CompanyID).Scan(&next)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("INV-%04d", next), nil
}

func (r *txRepo) InsertInvoice(ctx context.Context, scope shared.Scope, invoice Invoice) (Invoice, error) {
	err := r.tx.QueryRow(ctx, `INSERT INTO invoices (company_id, public_id, number, client_name, amount, status, issue_date, due_date, created_by)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id, created_at`,
		scope.CompanyID, invoice.PublicID, invoice.Number, invoice.ClientName, invoice.Amount, invoice.Status, invoice.IssueDate, invoice.DueDate, scope.ActorID).
		Scan(&invoice.ID, &invoice.CreatedAt)
	if err != nil {
		return Invoice{}, err
	}
	invoice.CompanyID = scope.CompanyID
	invoice.CreatedBy = scope.ActorID
	return invoice, nil
}

func (r *txRepo) InsertDebt(ctx context.Context, scope shared.Scope, debt debts.Debt) (debts.Debt, error) {
	return debts.InsertDebtTx(ctx, r.tx, scope, debt)
}

func (r *txRepo) AppendActivity(ctx context.Context, log shared.ActivityLog) error {
	return shared.AppendActivity(ctx, r.tx, log)
}
