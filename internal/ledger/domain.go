package ledger

import (
	"fmt"
	"time"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// AccountType enumerates the five account classes.
type AccountType string

const (
	AccountTypeAsset     AccountType = "asset"
	AccountTypeLiability AccountType = "liability"
	AccountTypeEquity    AccountType = "equity"
	AccountTypeRevenue   AccountType = "revenue"
	AccountTypeExpense   AccountType = "expense"
)

var accountTypes = map[AccountType]bool{
	AccountTypeAsset:     true,
	AccountTypeLiability: true,
	AccountTypeEquity:    true,
	AccountTypeRevenue:   true,
	AccountTypeExpense:   true,
}

// Account is a node in a company's chart of accounts.
type Account struct {
	ID        int64
	CompanyID int64
	Code      string
	Name      string
	Type      AccountType
	ParentID  *int64
	Active    bool
	CreatedAt time.Time
}

// JournalEntry captures a balanced set of postings.
type JournalEntry struct {
	ID        int64
	CompanyID int64
	Date      time.Time
	Memo      string
	CreatedBy int64
	CreatedAt time.Time
	Lines     []JournalLine
}

// JournalLine stores a debit or credit amount for an account.
type JournalLine struct {
	ID        int64
	EntryID   int64
	AccountID int64
	Debit     float64
	Credit    float64
	Position  int
}

var (
	// ErrUnbalanced indicates total debit != total credit.
	ErrUnbalanced = shared.NewBusinessRule("ledger: journal lines must balance")
	// ErrTooFewLines indicates fewer than two lines.
	ErrTooFewLines = shared.NewValidation("ledger: journal requires at least two lines")
	// ErrUnknownAccount indicates a line references an account outside the company.
	ErrUnknownAccount = shared.NewNotFound("ledger: account not found")
	// ErrEntryNotFound indicates a missing or foreign entry.
	ErrEntryNotFound = shared.NewNotFound("ledger: journal entry not found")
	// ErrAccountParentMismatch indicates the parent belongs to another company.
	ErrAccountParentMismatch = shared.NewNotFound("ledger: parent account not found")
)

// EntryLineInput describes one posting line.
type EntryLineInput struct {
	AccountID int64
	Debit     float64
	Credit    float64
}

// PostEntryInput groups fields required to create a journal entry.
type PostEntryInput struct {
	Date  time.Time
	Memo  string
	Lines []EntryLineInput
}

// Validate ensures the entry is balanced with at least two well-formed lines.
// Each line must carry exactly one non-zero side.
func (in PostEntryInput) Validate() error {
	if in.Date.IsZero() {
		return shared.NewValidation("ledger: entry date required")
	}
	if len(in.Lines) < 2 {
		return ErrTooFewLines
	}
	var debit, credit float64
	for idx, line := range in.Lines {
		if line.AccountID == 0 {
			return shared.NewValidation(fmt.Sprintf("ledger: line %d missing account", idx))
		}
		if line.Debit < 0 || line.Credit < 0 {
			return shared.NewValidation(fmt.Sprintf("ledger: line %d negative amount", idx))
		}
		if (line.Debit > 0) == (line.Credit > 0) {
			return shared.NewValidation(fmt.Sprintf("ledger: line %d must have exactly one of debit or credit", idx))
		}
		debit += line.Debit
		credit += line.Credit
	}
	if fmt.Sprintf("%.2f", debit) != fmt.Sprintf("%.2f", credit) {
		return ErrUnbalanced
	}
	return nil
}

// CreateAccountInput groups fields for chart-of-accounts entries.
type CreateAccountInput struct {
	Code     string
	Name     string
	Type     AccountType
	ParentID *int64
}

// Validate checks required account fields.
func (in CreateAccountInput) Validate() error {
	if in.Code == "" {
		return shared.NewValidation("ledger: account code required")
	}
	if in.Name == "" {
		return shared.NewValidation("ledger: account name required")
	}
	if !accountTypes[in.Type] {
		return shared.NewValidation("ledger: unknown account type")
	}
	return nil
}
