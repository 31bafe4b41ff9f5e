// Package store persists transactions in sqlite or postgres.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/budgetanalyzer/transactions/internal/config"
	"github.com/budgetanalyzer/transactions/internal/model"
)

// ErrNotFound is returned for ids that do not exist or are soft-deleted.
var ErrNotFound = errors.New("transaction not found")

// Store is the transaction repository. Soft-deleted rows are invisible to
// every read.
type Store interface {
	// CreateAll inserts txns in one database transaction and returns them
	// with ids and timestamps set.
	CreateAll(ctx context.Context, txns []model.Transaction) ([]model.Transaction, error)
	Get(ctx context.Context, id int64) (model.Transaction, error)
	Update(ctx context.Context, id int64, u Update) (model.Transaction, error)
	// SoftDelete marks the active rows among ids as deleted by actor and
	// returns the ids it marked.
	SoftDelete(ctx context.Context, ids []int64, actor string) ([]int64, error)
	Search(ctx context.Context, f Filter) ([]model.Transaction, error)
	Close() error
}

// Update carries the mutable fields; nil leaves a field unchanged.
type Update struct {
	Description *string
	AccountID   *string
}

// Filter selects transactions. Zero-valued fields do not constrain.
// AccountID, BankName and Description match case-insensitive substrings;
// CurrencyISOCode matches case-insensitively. Ranges are inclusive.
type Filter struct {
	ID              *int64
	AccountID       string
	BankName        string
	CurrencyISOCode string
	Description     string
	Type            model.TransactionType
	DateFrom        *time.Time
	DateTo          *time.Time
	MinAmount       *decimal.Decimal
	MaxAmount       *decimal.Decimal
	CreatedAfter    *time.Time
	CreatedBefore   *time.Time
	UpdatedAfter    *time.Time
	UpdatedBefore   *time.Time
	Limit           int
	Offset          int
}

// Open connects to the configured backend and applies the schema.
func Open(ctx context.Context, cfg config.DatabaseConfig) (Store, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		return OpenSQLite(ctx, cfg.DSN)
	case config.DriverPostgres:
		return OpenPostgres(ctx, cfg.DSN, cfg.MaxConns)
	}
	return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
}

// Option customizes a store.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock overrides the clock used for created/updated/deleted stamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}
