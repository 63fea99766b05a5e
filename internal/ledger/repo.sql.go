package ledger

import (
	"context"
	"errors"

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
		return fn(ctx, &txRepo{tx: tx})
	})
}

// ListEntries returns entries with lines, newest date then id first.
func (r *PGRepository) ListEntries(ctx context.Context, scope shared.Scope) ([]JournalEntry, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, company_id, date, memo, created_by, created_at
FROM journal_entries WHERE company_id=$1 ORDER BY date DESC, id DESC`, scope.CompanyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []JournalEntry
	index := make(map[int64]int)
	for rows.Next() {
		var e JournalEntry
		if err := rows.Scan(&e.ID, &e.CompanyID, &e.Date, &e.Memo, &e.CreatedBy, &e.CreatedAt); err != nil {
			return nil, err
		}
		index[e.ID] = len(entries)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return entries, nil
	}

	lineRows, err := r.pool.Query(ctx, `SELECT l.id, l.entry_id, l.account_id, l.debit, l.credit, l.position
FROM journal_lines l WHERE l.company_id=$1 ORDER BY l.entry_id, l.position`, scope.CompanyID)
	if err != nil {
		return nil, err
	}
	defer lineRows.Close()
	for lineRows.Next() {
		var l JournalLine
		if err := lineRows.Scan(&l.ID, &l.EntryID, &l.AccountID, &l.Debit, &l.Credit, &l.Position); err != nil {
			return nil, err
		}
		if i, ok := index[l.EntryID]; ok {
			entries[i].Lines = append(entries[i].Lines, l)
		}
	}
	return entries, lineRows.Err()
}

// ListAccounts returns the chart of accounts ordered by code.
func (r *PGRepository) ListAccounts(ctx context.Context, scope shared.Scope) ([]Account, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, company_id, code, name, type, parent_id, active, created_at
FROM accounts WHERE company_id=$1 ORDER BY code`, scope.CompanyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var accounts []Account
	for rows.Next() {
		var a Account
		if err := rows.Scan(&a.ID, &a.CompanyID, &a.Code, &a.Name, &a.Type, &a.ParentID, &a.Active, &a.CreatedAt); err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

type txRepo struct {
	tx pgx.Tx
}

func (r *txRepo) CountAccounts(ctx context.Context, scope shared.Scope, ids []int64) (int, error) {
	var count int
	err := r.tx.QueryRow(ctx, `SELECT COUNT(*) FROM accounts WHERE company_id=$1 AND id = ANY($2)`, scope.CompanyID, ids).Scan(&count)
	return count, err
}

func (r *txRepo) GetAccount(ctx context.Context, scope shared.Scope, id int64) (Account, error) {
	var a Account
	err := r.tx.QueryRow(ctx, `SELECT id, company_id, code, name, type, parent_id, active, created_at
FROM accounts WHERE company_id=$1 AND id=$2`, scope.CompanyID, id).
		Scan(&a.ID, &a.CompanyID, &a.Code, &a.Name, &a.Type, &a.ParentID, &a.Active, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, ErrUnknownAccount
	}
	return a, err
}

func (r *txRepo) InsertAccount(ctx context.Context, scope shared.Scope, in CreateAccountInput) (Account, error) {
	account := Account{
		CompanyID: scope.CompanyID,
		Code:      in.Code,
		Name:      in.Name,
		Type:      in.Type,
		ParentID:  in.ParentID,
		Active:    true,
	}
	err := r.tx.QueryRow(ctx, `INSERT INTO accounts (company_id, code, name, type, parent_id, active)
VALUES ($1, $2, $3, $4, $5, TRUE) RETURNING id, created_at`,
		scope.CompanyID, in.Code, in.Name, in.Type, in.ParentID).
		Scan(&account.ID, &account.CreatedAt)
	if err != nil {
		return Account{}, err
	}
	return account, nil
}

func (r *txRepo) InsertEntry(ctx context.Context, scope shared.Scope, in PostEntryInput) (JournalEntry, error) {
	entry := JournalEntry{
		CompanyID: scope.CompanyID,
		Date:      in.Date,
		Memo:      in.Memo,
		CreatedBy: scope.ActorID,
	}
	err := r.tx.QueryRow(ctx, `INSERT INTO journal_entries (company_id, date, memo, created_by)
VALUES ($1, $2, $3, $4) RETURNING id, created_at`,
		scope.CompanyID, in.Date, in.Memo, scope.ActorID).
		Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return JournalEntry{}, err
	}
	return entry, nil
}

func (r *txRepo) InsertLines(ctx context.Context, scope shared.Scope, entryID int64, lines []EntryLineInput) error {
	for idx, line := range lines {
		if _, err := r.tx.Exec(ctx, `INSERT INTO journal_lines (company_id, entry_id, account_id, debit, credit, position)
VALUES ($1, $2, $3, $4, $5, $6)`, scope.CompanyID, entryID, line.AccountID, line.Debit, line.Credit, idx); err != nil {
			return err
		}
	}
	return nil
}

func (r *txRepo) DeleteLines(ctx context.Context, scope shared.Scope, entryID int64) error {
	_, err := r.tx.Exec(ctx, `DELETE FROM journal_lines WHERE company_id=$1 AND entry_id=$2`, scope.CompanyID, entryID)
	return err
}

func (r *txRepo) GetEntry(ctx context.Context, scope shared.Scope, entryID int64) (JournalEntry, error) {
	var e JournalEntry
	err := r.tx.QueryRow(ctx, `SELECT id, company_id, date, memo, created_by, created_at
FROM journal_entries WHERE company_id=$1 AND id=$2 FOR UPDATE`, scope.CompanyID, entryID).
		Scan(&e.ID, &e.CompanyID, &e.Date, &e.Memo, &e.CreatedBy, &e.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return JournalEntry{}, ErrEntryNotFound
	}
	return e, err
}

func (r *txRepo) DeleteEntry(ctx context.Context, scope shared.Scope, entryID int64) (bool, error) {
	tag, err := r.tx.Exec(ctx, `DELETE FROM journal_entries WHERE company_id=$1 AND id=$2`, scope.CompanyID, entryID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *txRepo) AppendActivity(ctx context.Context, log shared.ActivityLog) error {
	return shared.AppendActivity(ctx, r.tx, log)
}
