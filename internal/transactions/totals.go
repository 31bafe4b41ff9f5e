package transactions

import (
	"github.com/shopspring/decimal"

	"github.com/budgetanalyzer/transactions/internal/model"
)

// monthLayout keys monthly totals as YYYY-MM.
const monthLayout = "2006-01"

// MonthlyDebitTotals sums DEBIT amounts per calendar month.
func MonthlyDebitTotals(txns []model.Transaction) map[string]decimal.Decimal {
	totals := make(map[string]decimal.Decimal)
	for _, t := range txns {
		if t.Type != model.TypeDebit {
			continue
		}
		month := t.Date.Format(monthLayout)
		totals[month] = totals[month].Add(t.Amount)
	}
	return totals
}

// AverageMonthlyTotal averages monthly totals, rounded half-up to two
// decimals. No months averages to zero.
func AverageMonthlyTotal(totals map[string]decimal.Decimal) decimal.Decimal {
	if len(totals) == 0 {
		return decimal.Zero
	}
	sum := decimal.Zero
	for _, v := range totals {
		sum = sum.Add(v)
	}
	return sum.DivRound(decimal.NewFromInt(int64(len(totals))), 2)
}
