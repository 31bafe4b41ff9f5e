package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/budgetanalyzer/transactions/internal/model"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS transactions (
	id BIGSERIAL PRIMARY KEY,
	account_id TEXT NOT NULL DEFAULT '',
	bank_name TEXT NOT NULL,
	currency_iso_code VARCHAR(3) NOT NULL,
	date DATE NOT NULL,
	amount NUMERIC(19, 2) NOT NULL CHECK (amount >= 0),
	type TEXT NOT NULL CHECK (type IN ('CREDIT', 'DEBIT')),
	description TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	deleted BOOLEAN NOT NULL DEFAULT FALSE,
	deleted_at TIMESTAMPTZ,
	deleted_by TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_transactions_date ON transactions(date);
CREATE INDEX IF NOT EXISTS idx_transactions_account ON transactions(account_id);
`

// postgresColumns reads amount as text so it decodes straight into a decimal.
const postgresColumns = `id, account_id, bank_name, currency_iso_code, date, amount::text, type,
	description, created_at, updated_at, deleted, deleted_at, deleted_by`

var postgresDialect = dialect{
	placeholder:  func(n int) string { return "$" + strconv.Itoa(n) },
	falseLit:     "FALSE",
	amountCol:    "amount",
	dateArg:      func(t time.Time) any { return t },
	timeArg:      func(t time.Time) any { return t },
	minAmountArg: func(d decimal.Decimal) any { return d.String() },
	maxAmountArg: func(d decimal.Decimal) any { return d.String() },
}

// pgxQuerier is satisfied by both *pgxpool.Pool and pgx.Tx.
type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Postgres is a Store backed by a pgx connection pool.
type Postgres struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// OpenPostgres connects to dsn, verifies the connection and applies the schema.
func OpenPostgres(ctx context.Context, dsn string, maxConns int32, opts ...Option) (*Postgres, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing database URL: %w", err)
	}
	if maxConns > 0 {
		poolConfig.MaxConns = maxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrating postgres schema: %w", err)
	}
	return &Postgres{pool: pool, now: buildOptions(opts).now}, nil
}

// Close releases the pool.
func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

// stamp is the current time at the precision postgres keeps.
func (p *Postgres) stamp() time.Time {
	return p.now().UTC().Truncate(time.Microsecond)
}

func (p *Postgres) CreateAll(ctx context.Context, txns []model.Transaction) ([]model.Transaction, error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx) // no-op after commit

	now := p.stamp()
	out := make([]model.Transaction, len(txns))
	for i, t := range txns {
		t.Amount = storedAmount(t.Amount)
		t.CreatedAt, t.UpdatedAt = now, now
		err := tx.QueryRow(ctx, `INSERT INTO transactions
			(account_id, bank_name, currency_iso_code, date, amount, type, description, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING id`,
			t.AccountID, t.BankName, t.CurrencyISOCode, t.Date,
			t.Amount.StringFixed(2), string(t.Type), t.Description, now, now,
		).Scan(&t.ID)
		if err != nil {
			return nil, fmt.Errorf("inserting transaction %d: %w", i+1, err)
		}
		out[i] = t
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing transactions: %w", err)
	}
	return out, nil
}

func (p *Postgres) Get(ctx context.Context, id int64) (model.Transaction, error) {
	return p.get(ctx, p.pool, id, "")
}

func (p *Postgres) get(ctx context.Context, q pgxQuerier, id int64, lock string) (model.Transaction, error) {
	row := q.QueryRow(ctx,
		"SELECT "+postgresColumns+" FROM transactions WHERE id = $1 AND deleted = FALSE"+lock, id)
	t, err := scanPostgres(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Transaction{}, ErrNotFound
	}
	if err != nil {
		return model.Transaction{}, fmt.Errorf("loading transaction %d: %w", id, err)
	}
	return t, nil
}

func (p *Postgres) Update(ctx context.Context, id int64, u Update) (model.Transaction, error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return model.Transaction{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx) // no-op after commit

	t, err := p.get(ctx, tx, id, " FOR UPDATE")
	if err != nil {
		return model.Transaction{}, err
	}
	if u.Description != nil {
		t.Description = *u.Description
	}
	if u.AccountID != nil {
		t.AccountID = *u.AccountID
	}
	t.UpdatedAt = p.stamp()

	if _, err := tx.Exec(ctx,
		"UPDATE transactions SET description = $1, account_id = $2, updated_at = $3 WHERE id = $4",
		t.Description, t.AccountID, t.UpdatedAt, id,
	); err != nil {
		return model.Transaction{}, fmt.Errorf("updating transaction %d: %w", id, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return model.Transaction{}, fmt.Errorf("committing update: %w", err)
	}
	return t, nil
}

func (p *Postgres) SoftDelete(ctx context.Context, ids []int64, actor string) ([]int64, error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx) // no-op after commit

	now := p.stamp()
	deleted := []int64{}
	for _, id := range ids {
		tag, err := tx.Exec(ctx, `UPDATE transactions
			SET deleted = TRUE, deleted_at = $1, deleted_by = $2, updated_at = $1
			WHERE id = $3 AND deleted = FALSE`, now, actor, id)
		if err != nil {
			return nil, fmt.Errorf("deleting transaction %d: %w", id, err)
		}
		if tag.RowsAffected() > 0 {
			deleted = append(deleted, id)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing delete: %w", err)
	}
	return deleted, nil
}

func (p *Postgres) Search(ctx context.Context, f Filter) ([]model.Transaction, error) {
	q, args := buildSearch(postgresDialect, f)
	rows, err := p.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("searching transactions: %w", err)
	}
	defer rows.Close()

	out := []model.Transaction{}
	for rows.Next() {
		t, err := scanPostgres(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating transactions: %w", err)
	}
	return out, nil
}

func scanPostgres(r rowScanner) (model.Transaction, error) {
	var (
		t         model.Transaction
		amount    string
		typ       string
		deletedAt *time.Time
	)
	if err := r.Scan(&t.ID, &t.AccountID, &t.BankName, &t.CurrencyISOCode, &t.Date, &amount, &typ,
		&t.Description, &t.CreatedAt, &t.UpdatedAt, &t.Deleted, &deletedAt, &t.DeletedBy); err != nil {
		return model.Transaction{}, err
	}

	var err error
	if t.Amount, err = decimal.NewFromString(amount); err != nil {
		return model.Transaction{}, fmt.Errorf("parsing stored amount %q: %w", amount, err)
	}
	if t.Type, err = parseType(typ); err != nil {
		return model.Transaction{}, err
	}
	t.Date = time.Date(t.Date.Year(), t.Date.Month(), t.Date.Day(), 0, 0, 0, 0, time.UTC)
	t.CreatedAt = t.CreatedAt.UTC()
	t.UpdatedAt = t.UpdatedAt.UTC()
	if deletedAt != nil {
		at := deletedAt.UTC()
		t.DeletedAt = &at
	}
	return t, nil
}
