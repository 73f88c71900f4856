package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Transaction types as they appear on the wire and in storage.
const (
	Deposit    TransactionType = "add"
	Withdrawal TransactionType = "subtract"
)

type (
	TransactionType string

	// Transaction is a single immutable ledger entry. A withdrawal never
	// mutates a prior deposit; it is its own signed entry.
	Transaction struct {
		ID          int64
		AccountName string
		Type        TransactionType
		Amount      decimal.Decimal
		Note        string
		Timestamp   time.Time
		CreatedAt   time.Time
	}

	// MonthlyStats summarises deposit activity for one account in the
	// current calendar month.
	MonthlyStats struct {
		Deposits    int
		LastDeposit time.Time
	}

	// Snapshot is derived from the transaction list on every fetch and is
	// never stored.
	Snapshot struct {
		Balances map[string]decimal.Decimal
		Total    decimal.Decimal
		Monthly  map[string]MonthlyStats
	}
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrEmptyAccountName = errors.New("empty account name")
	ErrInvalidType      = errors.New("invalid transaction type")
	ErrNoteTooLong      = errors.New("note too long (max 500 characters)")
)

// DefaultAccounts is the fixed account set used when no accounts file is
// configured.
var DefaultAccounts = []string{"Cooperative", "PiggyVest", "OPay"}

// IsValid reports whether the type is one of the two ledger entry kinds.
func (t TransactionType) IsValid() bool {
	return t == Deposit || t == Withdrawal
}

// Signed returns the amount with the sign implied by the transaction type.
func (tx Transaction) Signed() decimal.Decimal {
	if tx.Type == Withdrawal {
		return tx.Amount.Neg()
	}
	return tx.Amount
}

func (tx Transaction) Validate() error {
	if strings.TrimSpace(tx.AccountName) == "" {
		return ErrEmptyAccountName
	}
	if !tx.Type.IsValid() {
		return ErrInvalidType
	}
	if tx.Amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if len(tx.Note) > 500 {
		return ErrNoteTooLong
	}
	return nil
}
