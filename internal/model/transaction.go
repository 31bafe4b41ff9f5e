package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType is the direction of money movement.
type TransactionType string

const (
	TypeCredit TransactionType = "CREDIT"
	TypeDebit  TransactionType = "DEBIT"
)

// transactionTypeAliases maps lowercase bank spellings to a TransactionType.
var transactionTypeAliases = map[string]TransactionType{
	"credit":     TypeCredit,
	"deposit":    TypeCredit,
	"debit":      TypeDebit,
	"withdrawal": TypeDebit,
}

// ParseTransactionType resolves a bank's type string ("Debit", " deposit ", ...).
func ParseTransactionType(s string) (TransactionType, bool) {
	t, ok := transactionTypeAliases[strings.ToLower(strings.TrimSpace(s))]
	return t, ok
}

// Valid reports whether t is CREDIT or DEBIT.
func (t TransactionType) Valid() bool {
	return t == TypeCredit || t == TypeDebit
}

// Transaction is a normalized bank transaction.
type Transaction struct {
	ID              int64
	AccountID       string // caller supplied, optional
	BankName        string
	CurrencyISOCode string
	Date            time.Time       // civil date, midnight UTC
	Amount          decimal.Decimal // always >= 0; direction lives in Type
	Type            TransactionType
	Description     string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	Deleted         bool
	DeletedAt       *time.Time
	DeletedBy       string
}

// DateString returns the transaction date as YYYY-MM-DD.
func (t Transaction) DateString() string {
	return t.Date.Format(DateLayout)
}

// DateLayout is the canonical date rendering used by storage and the API.
const DateLayout = "2006-01-02"
