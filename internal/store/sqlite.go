package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/budgetanalyzer/transactions/internal/model"
)

// sqliteTime is fixed-width so stored timestamps sort and compare as text.
const sqliteTime = "2006-01-02T15:04:05.000000000Z"

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS transactions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	account_id TEXT NOT NULL DEFAULT '',
	bank_name TEXT NOT NULL,
	currency_iso_code TEXT NOT NULL,
	date TEXT NOT NULL,
	amount TEXT NOT NULL,
	type TEXT NOT NULL CHECK (type IN ('CREDIT', 'DEBIT')),
	description TEXT NOT NULL,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	deleted INTEGER NOT NULL DEFAULT 0,
	deleted_at TEXT,
	deleted_by TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_transactions_date ON transactions(date);
CREATE INDEX IF NOT EXISTS idx_transactions_account ON transactions(account_id);
`

// sqliteDialect compares amounts as integer cents. The stored text always
// carries exactly two decimals, so dropping the point yields the minor
// units; bounds are rounded inward to whole cents.
var sqliteDialect = dialect{
	placeholder:  func(int) string { return "?" },
	falseLit:     "0",
	amountCol:    "CAST(REPLACE(amount, '.', '') AS INTEGER)",
	dateArg:      func(t time.Time) any { return t.Format(model.DateLayout) },
	timeArg:      func(t time.Time) any { return t.UTC().Format(sqliteTime) },
	minAmountArg: func(d decimal.Decimal) any { return d.Shift(2).Ceil().IntPart() },
	maxAmountArg: func(d decimal.Decimal) any { return d.Shift(2).Floor().IntPart() },
}

// SQLite is a Store backed by a single sqlite database file.
type SQLite struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(ctx context.Context, path string, opts ...Option) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite %s: %w", path, err)
	}
	// One connection serializes writers and keeps :memory: databases whole.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating sqlite schema: %w", err)
	}
	return &SQLite{db: db, now: buildOptions(opts).now}, nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) CreateAll(ctx context.Context, txns []model.Transaction) ([]model.Transaction, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() // no-op after commit

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO transactions
		(account_id, bank_name, currency_iso_code, date, amount, type, description, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	now := s.now().UTC()
	out := make([]model.Transaction, len(txns))
	for i, t := range txns {
		t.Amount = storedAmount(t.Amount)
		t.CreatedAt, t.UpdatedAt = now, now
		res, err := stmt.ExecContext(ctx,
			t.AccountID, t.BankName, t.CurrencyISOCode, t.DateString(),
			t.Amount.StringFixed(2), string(t.Type), t.Description,
			now.Format(sqliteTime), now.Format(sqliteTime),
		)
		if err != nil {
			return nil, fmt.Errorf("inserting transaction %d: %w", i+1, err)
		}
		if t.ID, err = res.LastInsertId(); err != nil {
			return nil, fmt.Errorf("reading inserted id: %w", err)
		}
		out[i] = t
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transactions: %w", err)
	}
	return out, nil
}

func (s *SQLite) Get(ctx context.Context, id int64) (model.Transaction, error) {
	return s.get(ctx, s.db, id)
}

type sqliteQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *SQLite) get(ctx context.Context, q sqliteQuerier, id int64) (model.Transaction, error) {
	row := q.QueryRowContext(ctx,
		"SELECT "+selectColumns+" FROM transactions WHERE id = ? AND deleted = 0", id)
	t, err := scanSQLite(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Transaction{}, ErrNotFound
	}
	if err != nil {
		return model.Transaction{}, fmt.Errorf("loading transaction %d: %w", id, err)
	}
	return t, nil
}

func (s *SQLite) Update(ctx context.Context, id int64, u Update) (model.Transaction, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Transaction{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() // no-op after commit

	t, err := s.get(ctx, tx, id)
	if err != nil {
		return model.Transaction{}, err
	}
	if u.Description != nil {
		t.Description = *u.Description
	}
	if u.AccountID != nil {
		t.AccountID = *u.AccountID
	}
	t.UpdatedAt = s.now().UTC()

	if _, err := tx.ExecContext(ctx,
		"UPDATE transactions SET description = ?, account_id = ?, updated_at = ? WHERE id = ?",
		t.Description, t.AccountID, t.UpdatedAt.Format(sqliteTime), id,
	); err != nil {
		return model.Transaction{}, fmt.Errorf("updating transaction %d: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return model.Transaction{}, fmt.Errorf("committing update: %w", err)
	}
	return t, nil
}

func (s *SQLite) SoftDelete(ctx context.Context, ids []int64, actor string) ([]int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() // no-op after commit

	now := s.now().UTC().Format(sqliteTime)
	deleted := []int64{}
	for _, id := range ids {
		res, err := tx.ExecContext(ctx, `UPDATE transactions
			SET deleted = 1, deleted_at = ?, deleted_by = ?, updated_at = ?
			WHERE id = ? AND deleted = 0`, now, actor, now, id)
		if err != nil {
			return nil, fmt.Errorf("deleting transaction %d: %w", id, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("deleting transaction %d: %w", id, err)
		}
		if n > 0 {
			deleted = append(deleted, id)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing delete: %w", err)
	}
	return deleted, nil
}

func (s *SQLite) Search(ctx context.Context, f Filter) ([]model.Transaction, error) {
	q, args := buildSearch(sqliteDialect, f)
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("searching transactions: %w", err)
	}
	defer rows.Close()

	out := []model.Transaction{}
	for rows.Next() {
		t, err := scanSQLite(rows)
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

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLite(r rowScanner) (model.Transaction, error) {
	var (
		t                    model.Transaction
		date, amount, typ    string
		createdAt, updatedAt string
		deletedAt            sql.NullString
	)
	if err := r.Scan(&t.ID, &t.AccountID, &t.BankName, &t.CurrencyISOCode, &date, &amount, &typ,
		&t.Description, &createdAt, &updatedAt, &t.Deleted, &deletedAt, &t.DeletedBy); err != nil {
		return model.Transaction{}, err
	}

	var err error
	if t.Date, err = time.Parse(model.DateLayout, date); err != nil {
		return model.Transaction{}, fmt.Errorf("parsing stored date %q: %w", date, err)
	}
	if t.Amount, err = decimal.NewFromString(amount); err != nil {
		return model.Transaction{}, fmt.Errorf("parsing stored amount %q: %w", amount, err)
	}
	if t.Type, err = parseType(typ); err != nil {
		return model.Transaction{}, err
	}
	if t.CreatedAt, err = time.Parse(sqliteTime, createdAt); err != nil {
		return model.Transaction{}, fmt.Errorf("parsing created_at: %w", err)
	}
	if t.UpdatedAt, err = time.Parse(sqliteTime, updatedAt); err != nil {
		return model.Transaction{}, fmt.Errorf("parsing updated_at: %w", err)
	}
	if deletedAt.Valid {
		at, err := time.Parse(sqliteTime, deletedAt.String)
		if err != nil {
			return model.Transaction{}, fmt.Errorf("parsing deleted_at: %w", err)
		}
		t.DeletedAt = &at
	}
	return t, nil
}
