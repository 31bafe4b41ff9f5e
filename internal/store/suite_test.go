package store

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/budgetanalyzer/transactions/internal/model"
)

// testClock hands out strictly increasing times one second apart.
type testClock struct {
	t time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func sample() []model.Transaction {
	return []model.Transaction{
		{AccountID: "checking-3223", BankName: "Capital One", CurrencyISOCode: "USD",
			Date: day(2024, 11, 15), Amount: decimal.RequireFromString("4.5"), Type: model.TypeDebit, Description: "Coffee Shop"},
		{AccountID: "checking-3223", BankName: "Capital One", CurrencyISOCode: "USD",
			Date: day(2024, 11, 18), Amount: decimal.RequireFromString("250"), Type: model.TypeCredit, Description: "Payment 100%_done"},
		{AccountID: "savings-1", BankName: "Bangkok Bank", CurrencyISOCode: "THB",
			Date: day(2024, 12, 1), Amount: decimal.RequireFromString("5000.00"), Type: model.TypeCredit, Description: "Transfer from Somchai"},
		{BankName: "Truist", CurrencyISOCode: "USD",
			Date: day(2025, 1, 3), Amount: decimal.RequireFromString("87.125"), Type: model.TypeDebit, Description: "GROCERY OUTLET"},
	}
}

func descriptions(txns []model.Transaction) []string {
	out := make([]string, len(txns))
	for i, t := range txns {
		out[i] = t.Description
	}
	return out
}

// runStoreSuite exercises the behavior every backend must share.
func runStoreSuite(t *testing.T, open func(t *testing.T, clock *testClock) Store) {
	ctx := context.Background()

	t.Run("CreateAllAndGet", func(t *testing.T) {
		s := open(t, newTestClock())

		stored, err := s.CreateAll(ctx, sample())
		require.NoError(t, err)
		require.Len(t, stored, 4)
		for i, tx := range stored {
			assert.NotZero(t, tx.ID, i)
			assert.False(t, tx.CreatedAt.IsZero())
		}
		assert.Equal(t, "87.13", stored[3].Amount.StringFixed(2))

		got, err := s.Get(ctx, stored[0].ID)
		require.NoError(t, err)
		assert.Equal(t, stored[0].ID, got.ID)
		assert.Equal(t, "checking-3223", got.AccountID)
		assert.Equal(t, "Capital One", got.BankName)
		assert.Equal(t, "USD", got.CurrencyISOCode)
		assert.Equal(t, day(2024, 11, 15), got.Date)
		assert.True(t, decimal.RequireFromString("4.50").Equal(got.Amount))
		assert.Equal(t, model.TypeDebit, got.Type)
		assert.Equal(t, stored[0].CreatedAt, got.CreatedAt)
		assert.False(t, got.Deleted)
		assert.Nil(t, got.DeletedAt)

		got, err = s.Get(ctx, stored[3].ID)
		require.NoError(t, err)
		assert.Equal(t, "", got.AccountID)
		assert.Equal(t, "87.13", got.Amount.StringFixed(2))
	})

	t.Run("GetMissing", func(t *testing.T) {
		s := open(t, newTestClock())
		_, err := s.Get(ctx, 424242)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("Update", func(t *testing.T) {
		s := open(t, newTestClock())
		stored, err := s.CreateAll(ctx, sample())
		require.NoError(t, err)

		desc := "Morning coffee"
		got, err := s.Update(ctx, stored[0].ID, Update{Description: &desc})
		require.NoError(t, err)
		assert.Equal(t, "Morning coffee", got.Description)
		assert.Equal(t, "checking-3223", got.AccountID)
		assert.True(t, got.UpdatedAt.After(got.CreatedAt))

		acct := "joint"
		_, err = s.Update(ctx, stored[0].ID, Update{AccountID: &acct})
		require.NoError(t, err)

		reloaded, err := s.Get(ctx, stored[0].ID)
		require.NoError(t, err)
		assert.Equal(t, "Morning coffee", reloaded.Description)
		assert.Equal(t, "joint", reloaded.AccountID)
		assert.True(t, stored[0].Amount.Equal(reloaded.Amount), "amount is immutable")

		_, err = s.Update(ctx, 999999, Update{Description: &desc})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("SoftDelete", func(t *testing.T) {
		s := open(t, newTestClock())
		stored, err := s.CreateAll(ctx, sample())
		require.NoError(t, err)

		deleted, err := s.SoftDelete(ctx, []int64{stored[0].ID, 999999, stored[1].ID}, "alice")
		require.NoError(t, err)
		assert.Equal(t, []int64{stored[0].ID, stored[1].ID}, deleted)

		_, err = s.Get(ctx, stored[0].ID)
		assert.ErrorIs(t, err, ErrNotFound)

		again, err := s.SoftDelete(ctx, []int64{stored[0].ID}, "bob")
		require.NoError(t, err)
		assert.Empty(t, again)

		desc := "resurrect"
		_, err = s.Update(ctx, stored[1].ID, Update{Description: &desc})
		assert.ErrorIs(t, err, ErrNotFound)

		all, err := s.Search(ctx, Filter{})
		require.NoError(t, err)
		assert.Len(t, all, 2)
	})

	t.Run("Search", func(t *testing.T) {
		s := open(t, newTestClock())
		_, err := s.CreateAll(ctx, sample())
		require.NoError(t, err)

		all, err := s.Search(ctx, Filter{})
		require.NoError(t, err)
		assert.Equal(t, []string{"GROCERY OUTLET", "Transfer from Somchai", "Payment 100%_done", "Coffee Shop"},
			descriptions(all), "newest first")

		from, to := day(2024, 11, 16), day(2024, 12, 1)
		minAmt, maxAmt := decimal.RequireFromString("100"), decimal.RequireFromString("5000")
		exactAmt, smallAmt := decimal.RequireFromString("87.13"), decimal.RequireFromString("4.5")
		subCentAmt := decimal.RequireFromString("87.129")
		tests := []struct {
			name   string
			filter Filter
			want   []string
		}{
			{"account substring", Filter{AccountID: "CHECKING"}, []string{"Payment 100%_done", "Coffee Shop"}},
			{"bank substring", Filter{BankName: "bangkok"}, []string{"Transfer from Somchai"}},
			{"currency", Filter{CurrencyISOCode: "thb"}, []string{"Transfer from Somchai"}},
			{"description", Filter{Description: "coffee"}, []string{"Coffee Shop"}},
			{"literal percent", Filter{Description: "100%"}, []string{"Payment 100%_done"}},
			{"literal underscore", Filter{Description: "_"}, []string{"Payment 100%_done"}},
			{"type", Filter{Type: model.TypeCredit}, []string{"Transfer from Somchai", "Payment 100%_done"}},
			{"date range", Filter{DateFrom: &from, DateTo: &to}, []string{"Transfer from Somchai", "Payment 100%_done"}},
			{"amount range", Filter{MinAmount: &minAmt, MaxAmount: &maxAmt}, []string{"Transfer from Somchai", "Payment 100%_done"}},
			{"exact amount", Filter{MinAmount: &exactAmt, MaxAmount: &exactAmt}, []string{"GROCERY OUTLET"}},
			{"exact small amount", Filter{MinAmount: &smallAmt, MaxAmount: &smallAmt}, []string{"Coffee Shop"}},
			{"sub-cent upper bound", Filter{MinAmount: &exactAmt, MaxAmount: &subCentAmt}, []string{}},
			{"limit offset", Filter{Limit: 2, Offset: 1}, []string{"Transfer from Somchai", "Payment 100%_done"}},
			{"no match", Filter{Description: "nothing like this"}, []string{}},
		}
		for _, tt := range tests {
			got, err := s.Search(ctx, tt.filter)
			require.NoError(t, err, tt.name)
			assert.Equal(t, tt.want, descriptions(got), tt.name)
		}

		first := all[len(all)-1]
		got, err := s.Search(ctx, Filter{ID: &first.ID})
		require.NoError(t, err)
		assert.Equal(t, []string{"Coffee Shop"}, descriptions(got))
	})

	t.Run("SearchTimestamps", func(t *testing.T) {
		clock := newTestClock()
		s := open(t, clock)

		before := clock.Now()
		_, err := s.CreateAll(ctx, sample()[:1])
		require.NoError(t, err)
		between := clock.Now()
		_, err = s.CreateAll(ctx, sample()[1:2])
		require.NoError(t, err)

		got, err := s.Search(ctx, Filter{CreatedAfter: &before, CreatedBefore: &between})
		require.NoError(t, err)
		assert.Equal(t, []string{"Coffee Shop"}, descriptions(got))

		got, err = s.Search(ctx, Filter{CreatedAfter: &between})
		require.NoError(t, err)
		assert.Equal(t, []string{"Payment 100%_done"}, descriptions(got))

		got, err = s.Search(ctx, Filter{UpdatedBefore: &before})
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}
