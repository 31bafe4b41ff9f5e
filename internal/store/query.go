package store

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/budgetanalyzer/transactions/internal/model"
)

const selectColumns = `id, account_id, bank_name, currency_iso_code, date, amount, type,
	description, created_at, updated_at, deleted, deleted_at, deleted_by`

// dialect hides the placeholder and value encoding differences between
// the two backends.
type dialect struct {
	placeholder  func(n int) string
	falseLit     string
	amountCol    string
	dateArg      func(time.Time) any
	timeArg      func(time.Time) any
	// minAmountArg and maxAmountArg encode inclusive amount bounds so
	// that the comparison against amountCol stays exact.
	minAmountArg func(decimal.Decimal) any
	maxAmountArg func(decimal.Decimal) any
}

type query struct {
	d     dialect
	where []string
	args  []any
}

func (q *query) add(cond string, arg any) {
	q.args = append(q.args, arg)
	q.where = append(q.where, strings.ReplaceAll(cond, "?", q.d.placeholder(len(q.args))))
}

// buildSearch returns the SELECT for f with its arguments.
func buildSearch(d dialect, f Filter) (string, []any) {
	q := &query{d: d, where: []string{"deleted = " + d.falseLit}}

	if f.ID != nil {
		q.add("id = ?", *f.ID)
	}
	if s := strings.TrimSpace(f.AccountID); s != "" {
		q.add(`LOWER(account_id) LIKE ? ESCAPE '\'`, likePattern(s))
	}
	if s := strings.TrimSpace(f.BankName); s != "" {
		q.add(`LOWER(bank_name) LIKE ? ESCAPE '\'`, likePattern(s))
	}
	if s := strings.TrimSpace(f.CurrencyISOCode); s != "" {
		q.add("LOWER(currency_iso_code) = ?", strings.ToLower(s))
	}
	if s := strings.TrimSpace(f.Description); s != "" {
		q.add(`LOWER(description) LIKE ? ESCAPE '\'`, likePattern(s))
	}
	if f.Type != "" {
		q.add("type = ?", string(f.Type))
	}
	if f.DateFrom != nil {
		q.add("date >= ?", d.dateArg(*f.DateFrom))
	}
	if f.DateTo != nil {
		q.add("date <= ?", d.dateArg(*f.DateTo))
	}
	if f.MinAmount != nil {
		q.add(d.amountCol+" >= ?", d.minAmountArg(*f.MinAmount))
	}
	if f.MaxAmount != nil {
		q.add(d.amountCol+" <= ?", d.maxAmountArg(*f.MaxAmount))
	}
	if f.CreatedAfter != nil {
		q.add("created_at >= ?", d.timeArg(*f.CreatedAfter))
	}
	if f.CreatedBefore != nil {
		q.add("created_at <= ?", d.timeArg(*f.CreatedBefore))
	}
	if f.UpdatedAfter != nil {
		q.add("updated_at >= ?", d.timeArg(*f.UpdatedAfter))
	}
	if f.UpdatedBefore != nil {
		q.add("updated_at <= ?", d.timeArg(*f.UpdatedBefore))
	}

	var b strings.Builder
	b.WriteString("SELECT " + selectColumns + " FROM transactions WHERE ")
	b.WriteString(strings.Join(q.where, " AND "))
	b.WriteString(" ORDER BY date DESC, id DESC")
	if f.Limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d", f.Limit)
		if f.Offset > 0 {
			fmt.Fprintf(&b, " OFFSET %d", f.Offset)
		}
	}
	return b.String(), q.args
}

// likePattern lowercases s, escapes LIKE wildcards and wraps it in %.
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.ToLower(s)) + "%"
}

// storedAmount is the two-decimal form persisted for an amount.
func storedAmount(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

func parseType(s string) (model.TransactionType, error) {
	t := model.TransactionType(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown transaction type %q in database", s)
	}
	return t, nil
}
