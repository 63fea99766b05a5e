package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Repository abstracts persistence for the service.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	ListEntries(ctx context.Context, scope shared.Scope) ([]JournalEntry, error)
	ListAccounts(ctx context.Context, scope shared.Scope) ([]Account, error)
}

// TxRepository exposes transactional operations used by workflows.
type TxRepository interface {
	CountAccounts(ctx context.Context, scope shared.Scope, ids []int64) (int, error)
	GetAccount(ctx context.Context, scope shared.Scope, id int64) (Account, error)
	InsertAccount(ctx context.Context, scope shared.Scope, in CreateAccountInput) (Account, error)
	InsertEntry(ctx context.Context, scope shared.Scope, in PostEntryInput) (JournalEntry, error)
	InsertLines(ctx context.Context, scope shared.Scope, entryID int64, lines []EntryLineInput) error
	DeleteLines(ctx context.Context, scope shared.Scope, entryID int64) error
	GetEntry(ctx context.Context, scope shared.Scope, entryID int64) (JournalEntry, error)
	DeleteEntry(ctx context.Context, scope shared.Scope, entryID int64) (bool, error)
	AppendActivity(ctx context.Context, log shared.ActivityLog) error
}

// Service coordinates journal and chart-of-accounts operations.
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

// PostEntry validates and persists a balanced journal entry atomically.
func (s *Service) PostEntry(ctx context.Context, scope shared.Scope, input PostEntryInput) (JournalEntry, error) {
	if err := scope.Validate(); err != nil {
		return JournalEntry{}, err
	}
	if err := input.Validate(); err != nil {
		return JournalEntry{}, err
	}
	var entry JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := s.ensureAccounts(ctx, tx, scope, input.Lines); err != nil {
			return err
		}
		inserted, err := tx.InsertEntry(ctx, scope, input)
		if err != nil {
			return err
		}
		if err := tx.InsertLines(ctx, scope, inserted.ID, input.Lines); err != nil {
			return err
		}
		inserted.Lines = toLines(inserted.ID, input.Lines)
		entry = inserted
		return tx.AppendActivity(ctx, shared.ActivityLog{
			CompanyID: scope.CompanyID,
			ActorID:   scope.ActorID,
			Action:    "journal.post",
			Entity:    "journal_entry",
			EntityID:  fmt.Sprintf("%d", inserted.ID),
			Meta:      map[string]any{"lines": len(input.Lines), "memo": input.Memo},
			At:        s.now(),
		})
	})
	if err != nil {
		return JournalEntry{}, err
	}
	return entry, nil
}

// ReplaceEntry swaps the full line set of an existing entry. The old lines are
// deleted and the new ones inserted in one transaction, so a failure leaves
// either the old or the new set, never a mix.
func (s *Service) ReplaceEntry(ctx context.Context, scope shared.Scope, entryID int64, input PostEntryInput) (JournalEntry, error) {
	if err := scope.Validate(); err != nil {
		return JournalEntry{}, err
	}
	if entryID == 0 {
		return JournalEntry{}, shared.NewValidation("ledger: entry id required")
	}
	if err := input.Validate(); err != nil {
		return JournalEntry{}, err
	}
	var entry JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetEntry(ctx, scope, entryID)
		if err != nil {
			return err
		}
		if err := s.ensureAccounts(ctx, tx, scope, input.Lines); err != nil {
			return err
		}
		if err := tx.DeleteLines(ctx, scope, current.ID); err != nil {
			return err
		}
		if err := tx.InsertLines(ctx, scope, current.ID, input.Lines); err != nil {
			return err
		}
		current.Date = input.Date
		current.Memo = input.Memo
		current.Lines = toLines(current.ID, input.Lines)
		entry = current
		return tx.AppendActivity(ctx, shared.ActivityLog{
			CompanyID: scope.CompanyID,
			ActorID:   scope.ActorID,
			Action:    "journal.replace",
			Entity:    "journal_entry",
			EntityID:  fmt.Sprintf("%d", current.ID),
			Meta:      map[string]any{"lines": len(input.Lines)},
			At:        s.now(),
		})
	})
	if err != nil {
		return JournalEntry{}, err
	}
	return entry, nil
}

// ListEntries returns the company's entries with lines, newest first.
func (s *Service) ListEntries(ctx context.Context, scope shared.Scope) ([]JournalEntry, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	return s.repo.ListEntries(ctx, scope)
}

// DeleteEntry removes lines then the header. Deleting an entry the company
// does not own is a silent no-op so existence never leaks across tenants.
func (s *Service) DeleteEntry(ctx context.Context, scope shared.Scope, entryID int64) error {
	if err := scope.Validate(); err != nil {
		return err
	}
	if entryID == 0 {
		return shared.NewValidation("ledger: entry id required")
	}
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.DeleteLines(ctx, scope, entryID); err != nil {
			return err
		}
		deleted, err := tx.DeleteEntry(ctx, scope, entryID)
		if err != nil {
			return err
		}
		if !deleted {
			return nil
		}
		return tx.AppendActivity(ctx, shared.ActivityLog{
			CompanyID: scope.CompanyID,
			ActorID:   scope.ActorID,
			Action:    "journal.delete",
			Entity:    "journal_entry",
			EntityID:  fmt.Sprintf("%d", entryID),
			At:        s.now(),
		})
	})
}

// CreateAccount adds a chart-of-accounts node. A parent, when given, must
// belong to the same company.
func (s *Service) CreateAccount(ctx context.Context, scope shared.Scope, input CreateAccountInput) (Account, error) {
	if err := scope.Validate(); err != nil {
		return Account{}, err
	}
	if err := input.Validate(); err != nil {
		return Account{}, err
	}
	var account Account
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if input.ParentID != nil {
			if _, err := tx.GetAccount(ctx, scope, *input.ParentID); err != nil {
				return ErrAccountParentMismatch
			}
		}
		inserted, err := tx.InsertAccount(ctx, scope, input)
		if err != nil {
			return err
		}
		account = inserted
		return nil
	})
	if err != nil {
		return Account{}, err
	}
	return account, nil
}

// ListAccounts returns the company's chart of accounts.
func (s *Service) ListAccounts(ctx context.Context, scope shared.Scope) ([]Account, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	return s.repo.ListAccounts(ctx, scope)
}

func (s *Service) ensureAccounts(ctx context.Context, tx TxRepository, scope shared.Scope, lines []EntryLineInput) error {
	ids := make([]int64, 0, len(lines))
	seen := make(map[int64]bool, len(lines))
	for _, line := range lines {
		if !seen[line.AccountID] {
			seen[line.AccountID] = true
			ids = append(ids, line.AccountID)
		}
	}
	count, err := tx.CountAccounts(ctx, scope, ids)
	if err != nil {
		return err
	}
	if count != len(ids) {
		return ErrUnknownAccount
	}
	return nil
}

func toLines(entryID int64, lines []EntryLineInput) []JournalLine {
	out := make([]JournalLine, 0, len(lines))
	for idx, line := range lines {
		out = append(out, JournalLine{
			EntryID:   entryID,
			AccountID: line.AccountID,
			Debit:     line.Debit,
			Credit:    line.Credit,
			Position:  idx,
		})
	}
	return out
}
