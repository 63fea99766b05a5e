package debts

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

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
		return fn(ctx, NewTxRepository(tx))
	})
}

const debtColumns = `id, company_id, invoice_id, debtor_name, debtor_type, debtor_contact,
original_amount, remaining_amount, sale_date, due_date, last_payment_date, last_payment_amount, status, created_at`

func scanDebt(row pgx.Row) (Debt, error) {
	var d Debt
	err := row.Scan(&d.ID, &d.CompanyID, &d.InvoiceID, &d.DebtorName, &d.DebtorType, &d.DebtorContact,
		&d.OriginalAmount, &d.RemainingAmount, &d.SaleDate, &d.DueDate, &d.LastPaymentDate, &d.LastPaymentAmount,
		&d.Status, &d.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Debt{}, ErrDebtNotFound
	}
	return d, err
}

// GetDebt fetches one debt scoped to the company.
func (r *PGRepository) GetDebt(ctx context.Context, scope shared.Scope, debtID int64) (Debt, error) {
	return scanDebt(r.pool.QueryRow(ctx, `SELECT `+debtColumns+` FROM debts WHERE company_id=$1 AND id=$2`,
		scope.CompanyID, debtID))
}

// ListDebts returns the company's debts, newest sale first.
func (r *PGRepository) ListDebts(ctx context.Context, scope shared.Scope) ([]Debt, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+debtColumns+` FROM debts WHERE company_id=$1 ORDER BY sale_date DESC, id DESC`,
		scope.CompanyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Debt
	for rows.Next() {
		d, err := scanDebt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// ListPayments returns payments ordered by payment date then creation time,
// both descending.
func (r *PGRepository) ListPayments(ctx context.Context, scope shared.Scope, debtID int64) ([]Payment, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, company_id, debt_id, amount, paid_at, method, reference, note, recorded_by, created_at
FROM debt_payments WHERE company_id=$1 AND debt_id=$2 ORDER BY paid_at DESC, created_at DESC`,
		scope.CompanyID, debtID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Payment
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.ID, &p.CompanyID, &p.DebtID, &p.Amount, &p.PaidAt, &p.Method, &p.Reference, &p.Note, &p.RecordedBy, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// MarkOverdue flips active debts past due as of the given time.
func (r *PGRepository) MarkOverdue(ctx context.Context, asOf time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE debts SET status=$1 WHERE status=$2 AND due_date < $3`,
		StatusOverdue, StatusActive, asOf)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

type txRepo struct {
	tx pgx.Tx
}

// NewTxRepository wraps an open transaction.
func NewTxRepository(tx pgx.Tx) TxRepository {
	return &txRepo{tx: tx}
}

func (r *txRepo) GetDebtForUpdate(ctx context.Context, scope shared.Scope, debtID int64) (Debt, error) {
	return scanDebt(r.tx.QueryRow(ctx, `SELECT `+debtColumns+` FROM debts WHERE company_id=$1 AND id=$2 FOR UPDATE`,
		scope.CompanyID, debtID))
}

func (r *txRepo) InsertPayment(ctx context.Context, scope shared.Scope, payment Payment) (Payment, error) {
	err := r.tx.QueryRow(ctx, `INSERT INTO debt_payments (company_id, debt_id, amount, paid_at, method, reference, note, recorded_by)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id, created_at`,
		scope.CompanyID, payment.DebtID, payment.Amount, payment.PaidAt, payment.Method, payment.Reference, payment.Note, payment.RecordedBy).
		Scan(&payment.ID, &payment.CreatedAt)
	if err != nil {
		return Payment{}, err
	}
	payment.CompanyID = scope.CompanyID
	return payment, nil
}

func (r *txRepo) UpdateDebt(ctx context.Context, scope shared.Scope, debt Debt) error {
	tag, err := r.tx.Exec(ctx, `UPDATE debts SET remaining_amount=$3, last_payment_date=$4, last_payment_amount=$5, status=$6
WHERE company_id=$1 AND id=$2`,
		scope.CompanyID, debt.ID, debt.RemainingAmount, debt.LastPaymentDate, debt.LastPaymentAmount, debt.Status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrDebtNotFound
	}
	return nil
}

func (r *txRepo) UpdateInvoiceStatus(ctx context.Context, scope shared.Scope, invoiceID int64, status string) error {
	_, err := r.tx.Exec(ctx, `UPDATE invoices SET status=$3 WHERE company_id=$1 AND id=$2`,
		scope.CompanyID, invoiceID, status)
	return err
}

func (r *txRepo) AppendActivity(ctx context.Context, log shared.ActivityLog) error {
	return shared.AppendActivity(ctx, r.tx, log)
}

// InsertDebt creates a debt row inside the caller's transaction. The sales
// workflow uses this when a credit sale needs a backing debt.
func (r *txRepo) InsertDebt(ctx context.Context, scope shared.Scope, debt Debt) (Debt, error) {
	return InsertDebtTx(ctx, r.tx, scope, debt)
}

// InsertDebtTx performs the insert against any open transaction.
func InsertDebtTx(ctx context.Context, tx pgx.Tx, scope shared.Scope, debt Debt) (Debt, error) {
	err := tx.QueryRow(ctx, `INSERT INTO debts (company_id, invoice_id, debtor_name, debtor_type, debtor_contact,
original_amount, remaining_amount, sale_date, due_date, status)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING id, created_at`,
		scope.CompanyID, debt.InvoiceID, debt.DebtorName, debt.DebtorType, debt.DebtorContact,
		debt.OriginalAmount, debt.RemainingAmount, debt.SaleDate, debt.DueDate, debt.Status).
		Scan(&debt.ID, &debt.CreatedAt)
	if err != nil {
		return Debt{}, err
	}
	debt.CompanyID = scope.CompanyID
	return debt, nil
}
