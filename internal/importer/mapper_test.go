package importer

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/budgetanalyzer/transactions/internal/config"
	"github.com/budgetanalyzer/transactions/internal/dateparse"
	"github.com/budgetanalyzer/transactions/internal/model"
)

// fixedNow is the test clock: 31 Jan 2025, mid-afternoon.
var fixedNow = time.Date(2025, 1, 31, 15, 0, 0, 0, time.UTC)

func testFormats(t *testing.T) *config.Formats {
	t.Helper()
	configs := config.DefaultFormats()
	configs["iso-dual"] = config.CsvConfig{
		BankName:               "ISO Bank",
		DefaultCurrencyISOCode: "EUR",
		DateHeader:             "Date",
		DateFormat:             "uuuu-MM-dd",
		DescriptionHeader:      "Description",
		DebitHeader:            "Debit",
		CreditHeader:           "Credit",
	}
	f, err := config.NewFormats(configs)
	require.NoError(t, err)
	return f
}

func newTestMapper(t *testing.T) *Mapper {
	t.Helper()
	return NewMapper(testFormats(t), dateparse.NewCache(), WithClock(func() time.Time { return fixedNow }))
}

func row(line int, values map[string]string) model.CsvRow {
	return model.CsvRow{LineNumber: line, Values: values}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func requireKind(t *testing.T, err error, kind model.ErrorKind) *model.ImportError {
	t.Helper()
	require.Error(t, err)
	ie, ok := model.AsImportError(err)
	require.True(t, ok, "expected ImportError, got %T: %v", err, err)
	require.Equal(t, kind, ie.Kind, ie.Error())
	return ie
}

func TestMap_CapitalOneDebit(t *testing.T) {
	m := newTestMapper(t)

	txn, err := m.Map("capone.csv", "capital-one", "acct-1", row(1, map[string]string{
		"Transaction Date":        "11/15/24",
		"Transaction Description": "Coffee Shop",
		"Transaction Type":        "Debit",
		"Transaction Amount":      "4.50",
	}))
	require.NoError(t, err)

	assert.Equal(t, time.Date(2024, 11, 15, 0, 0, 0, 0, time.UTC), txn.Date)
	assert.Equal(t, model.TypeDebit, txn.Type)
	assert.True(t, dec("4.50").Equal(txn.Amount))
	assert.Equal(t, "Coffee Shop", txn.Description)
	assert.Equal(t, "USD", txn.CurrencyISOCode)
	assert.Equal(t, "Capital One", txn.BankName)
	assert.Equal(t, "acct-1", txn.AccountID)
}

func TestMap_DualColumnCredit(t *testing.T) {
	m := newTestMapper(t)

	txn, err := m.Map("bkk.csv", "bangkok-bank-statement-1", "", row(1, map[string]string{
		"Date":        "15/11/2024 09:45",
		"Description": "Transfer",
		"Debit":       "",
		"Credit":      "5,000.00",
	}))
	require.NoError(t, err)
	assert.Equal(t, model.TypeCredit, txn.Type)
	assert.True(t, dec("5000.00").Equal(txn.Amount))
	assert.Equal(t, "THB", txn.CurrencyISOCode)
	assert.Equal(t, "", txn.AccountID)
}

func TestMap_DualColumnBothBlank(t *testing.T) {
	m := newTestMapper(t)

	_, err := m.Map("bkk.csv", "bangkok-bank-statement-1", "", row(4, map[string]string{
		"Date":        "15/11/2024",
		"Description": "Mystery",
		"Debit":       "",
		"Credit":      "",
	}))
	ie := requireKind(t, err, model.KindParsing)
	assert.Equal(t, "Debit", ie.Column)
	assert.Equal(t, "Missing value for required column 'Debit' at line 4 in file 'bkk.csv'", ie.Error())
}

func TestMap_LayoutBDeterminism(t *testing.T) {
	m := newTestMapper(t)

	tests := []struct {
		debit, credit string
		wantType      model.TransactionType
		wantAmount    string
	}{
		{"", "12.00", model.TypeCredit, "12.00"},
		{"7.00", "", model.TypeDebit, "7.00"},
		{"7.00", "12.00", model.TypeDebit, "7.00"},
		{"  ", "3.10", model.TypeCredit, "3.10"},
	}
	for _, tt := range tests {
		txn, err := m.Map("f.csv", "iso-dual", "", row(1, map[string]string{
			"Date":        "2024-06-01",
			"Description": "x",
			"Debit":       tt.debit,
			"Credit":      tt.credit,
		}))
		require.NoError(t, err, "debit=%q credit=%q", tt.debit, tt.credit)
		assert.Equal(t, tt.wantType, txn.Type, "debit=%q credit=%q", tt.debit, tt.credit)
		assert.True(t, dec(tt.wantAmount).Equal(txn.Amount))
	}
}

func TestMap_BothColumnsPopulatedIsLogged(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))
	m := NewMapper(testFormats(t), dateparse.NewCache(),
		WithClock(func() time.Time { return fixedNow }), WithLogger(logger))

	txn, err := m.Map("f.csv", "iso-dual", "", row(9, map[string]string{
		"Date":        "2024-06-01",
		"Description": "x",
		"Debit":       "7.00",
		"Credit":      "12.00",
	}))
	require.NoError(t, err)
	assert.Equal(t, model.TypeDebit, txn.Type)
	assert.Contains(t, buf.String(), "both debit and credit")
	assert.Contains(t, buf.String(), "line=9")
}

func TestMap_LayoutAAliases(t *testing.T) {
	m := newTestMapper(t)

	for raw, want := range map[string]model.TransactionType{
		"credit":       model.TypeCredit,
		"Deposit":      model.TypeCredit,
		" DEBIT ":      model.TypeDebit,
		"withdrawal":   model.TypeDebit,
		"WithDrawal  ": model.TypeDebit,
	} {
		txn, err := m.Map("c.csv", "capital-one", "", row(1, map[string]string{
			"Transaction Date":        "01/02/25",
			"Transaction Description": "x",
			"Transaction Type":        raw,
			"Transaction Amount":      "1.00",
		}))
		require.NoError(t, err, raw)
		assert.Equal(t, want, txn.Type, raw)
	}

	for _, raw := range []string{"refund", "ach_debit", "cr", "debits"} {
		_, err := m.Map("c.csv", "capital-one", "", row(9, map[string]string{
			"Transaction Date":        "01/02/25",
			"Transaction Description": "x",
			"Transaction Type":        raw,
			"Transaction Amount":      "1.00",
		}))
		ie := requireKind(t, err, model.KindParsing)
		assert.Equal(t, "Transaction Type", ie.Column, raw)
		assert.Equal(t, raw, ie.Value)
		assert.Equal(t, 9, ie.Line)
	}
}

func TestMap_ChaseCheckAndDepositSlipRejected(t *testing.T) {
	m := newTestMapper(t)

	for _, raw := range []string{"CHECK", "DSLIP"} {
		_, err := m.Map("chase.csv", "chase", "", row(4, map[string]string{
			"Details":      raw,
			"Posting Date": "11/15/2024",
			"Description":  "CHECK 1042",
			"Amount":       "-120.00",
		}))
		ie := requireKind(t, err, model.KindParsing)
		assert.Equal(t, "Details", ie.Column, raw)
		assert.Equal(t, raw, ie.Value)
		assert.Equal(t, 4, ie.Line)
	}
}

func TestMap_LayoutAUsesCreditColumnForCredits(t *testing.T) {
	configs := map[string]config.CsvConfig{
		"split": {
			BankName:               "Split",
			DefaultCurrencyISOCode: "USD",
			DateHeader:             "Date",
			DateFormat:             "MM/dd/uuuu",
			DescriptionHeader:      "Memo",
			DebitHeader:            "Out",
			CreditHeader:           "In",
			TypeHeader:             "Kind",
		},
	}
	f, err := config.NewFormats(configs)
	require.NoError(t, err)
	m := NewMapper(f, dateparse.NewCache(), WithClock(func() time.Time { return fixedNow }))

	txn, err := m.Map("s.csv", "split", "", row(1, map[string]string{
		"Date": "01/05/2025", "Memo": "refund", "Kind": "deposit", "Out": "99.00", "In": "11.00",
	}))
	require.NoError(t, err)
	assert.Equal(t, model.TypeCredit, txn.Type)
	assert.True(t, dec("11.00").Equal(txn.Amount))
}

func TestMap_AmountSanitization(t *testing.T) {
	m := newTestMapper(t)

	tests := map[string]string{
		"4.50":        "4.50",
		"$1,234.56":   "1234.56",
		"-23.17":      "23.17",
		"(15.00)":     "15.00",
		" USD 1 000 ": "1000",
		"฿5,000.00":   "5000.00",
		"€.75":        "0.75",
	}
	for raw, want := range tests {
		txn, err := m.Map("c.csv", "capital-one", "", row(1, map[string]string{
			"Transaction Date":        "01/02/25",
			"Transaction Description": "x",
			"Transaction Type":        "Debit",
			"Transaction Amount":      raw,
		}))
		require.NoError(t, err, raw)
		assert.True(t, dec(want).Equal(txn.Amount), "%q -> %s", raw, txn.Amount)
		assert.False(t, txn.Amount.IsNegative(), raw)
	}
}

func TestMap_NegativeAmountNeverSetsDirection(t *testing.T) {
	m := newTestMapper(t)

	txn, err := m.Map("c.csv", "capital-one", "", row(1, map[string]string{
		"Transaction Date":        "01/02/25",
		"Transaction Description": "reversal",
		"Transaction Type":        "Credit",
		"Transaction Amount":      "-40.00",
	}))
	require.NoError(t, err)
	assert.Equal(t, model.TypeCredit, txn.Type)
	assert.True(t, dec("40").Equal(txn.Amount))
}

func TestMap_InvalidAmount(t *testing.T) {
	m := newTestMapper(t)

	for _, raw := range []string{"abc", "1.2.3", "$", "N/A"} {
		_, err := m.Map("c.csv", "capital-one", "", row(3, map[string]string{
			"Transaction Date":        "01/02/25",
			"Transaction Description": "x",
			"Transaction Type":        "Debit",
			"Transaction Amount":      raw,
		}))
		ie := requireKind(t, err, model.KindParsing)
		assert.Equal(t, raw, ie.Value)
		assert.Equal(t, fmt.Sprintf("Invalid amount value '%s' at line 3 in file 'c.csv'", raw), ie.Error())
	}
}

func TestMap_MissingRequiredValues(t *testing.T) {
	m := newTestMapper(t)
	full := map[string]string{
		"Transaction Date":        "01/02/25",
		"Transaction Description": "x",
		"Transaction Type":        "Debit",
		"Transaction Amount":      "1.00",
	}

	for column := range full {
		values := map[string]string{}
		for k, v := range full {
			if k != column {
				values[k] = v
			}
		}
		_, err := m.Map("c.csv", "capital-one", "", row(5, values))
		ie := requireKind(t, err, model.KindParsing)
		assert.Equal(t, column, ie.Column)
		assert.Equal(t, fmt.Sprintf("Missing value for required column '%s' at line 5 in file 'c.csv'", column), ie.Error())

		values[column] = "   "
		_, err = m.Map("c.csv", "capital-one", "", row(5, values))
		ie = requireKind(t, err, model.KindParsing)
		assert.Equal(t, column, ie.Column)
	}
}

func TestMap_DateBoundaries(t *testing.T) {
	m := newTestMapper(t)

	tests := []struct {
		date string
		kind model.ErrorKind
	}{
		{"2000-01-01", ""},
		{"1999-12-31", model.KindDateTooOld},
		{"2025-01-31", ""},
		{"2025-02-01", ""},
		{"2025-02-02", model.KindDateTooFarInFuture},
	}
	for _, tt := range tests {
		_, err := m.Map("d.csv", "iso-dual", "", row(2, map[string]string{
			"Date": tt.date, "Description": "x", "Debit": "1.00",
		}))
		if tt.kind == "" {
			assert.NoError(t, err, tt.date)
			continue
		}
		ie := requireKind(t, err, tt.kind)
		assert.Equal(t, tt.date, ie.Value)
		assert.Contains(t, ie.Error(), "line 2 in file 'd.csv'")
	}
}

func TestMap_FutureCheckUsesLocalCalendarDay(t *testing.T) {
	tz := time.FixedZone("UTC+10", 10*3600)
	// 23:30 on 31 Jan in UTC is already 1 Feb in UTC+10, so 2 Feb is tomorrow there.
	now := time.Date(2025, 1, 31, 23, 30, 0, 0, time.UTC).In(tz)
	m := NewMapper(testFormats(t), dateparse.NewCache(), WithClock(func() time.Time { return now }))

	_, err := m.Map("d.csv", "iso-dual", "", row(1, map[string]string{
		"Date": "2025-02-02", "Description": "x", "Debit": "1.00",
	}))
	assert.NoError(t, err)
}

func TestMap_DateFallbackToDateOnly(t *testing.T) {
	m := newTestMapper(t)

	txn, err := m.Map("bkk.csv", "bangkok-bank-statement-1", "", row(1, map[string]string{
		"Date": "15/11/2024", "Description": "ATM", "Debit": "200.00",
	}))
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 11, 15, 0, 0, 0, 0, time.UTC), txn.Date)
}

func TestMap_UnparseableDate(t *testing.T) {
	m := newTestMapper(t)

	_, err := m.Map("bkk.csv", "bangkok-bank-statement-1", "", row(6, map[string]string{
		"Date": "2024-11-15", "Description": "ATM", "Debit": "200.00",
	}))
	ie := requireKind(t, err, model.KindParsing)
	assert.Equal(t, "Date", ie.Column)
	assert.Equal(t, "2024-11-15", ie.Value)
	assert.Equal(t, 6, ie.Line)
}

func TestMap_UnsupportedFormat(t *testing.T) {
	m := newTestMapper(t)

	_, err := m.Map("x.csv", "unknown-bank", "", row(1, map[string]string{}))
	ie := requireKind(t, err, model.KindFormatNotSupported)
	assert.Equal(t, "unknown-bank", ie.Format)
	assert.Contains(t, ie.Error(), "unknown-bank")
	assert.True(t, errors.Is(err, model.ErrFormatNotSupported))
}

func TestSanitizeAmount(t *testing.T) {
	for raw, want := range map[string]string{
		"1,234.56":   "1234.56",
		"$ 12 . 5":   "12.5",
		"-0.01":      "0.01",
		"abc":        "",
		"1.2.3":      "1.2.3",
		"١٢٣":        "",
		"12 345":     "12345",
	} {
		assert.Equal(t, want, SanitizeAmount(raw), raw)
	}
}

func TestSanitizeAmount_MatchesDigitsAndDotSubstring(t *testing.T) {
	noise := []string{"$", ",", " ", "USD", "€", "'"}
	digits := []string{"0", "7", "42", "1000", "3.14", "12345.67", ".5"}

	for _, d := range digits {
		want := dec(d)
		for _, n := range noise {
			raw := n + d[:len(d)/2] + n + d[len(d)/2:] + n
			got, err := decimal.NewFromString(SanitizeAmount(raw))
			require.NoError(t, err, raw)
			assert.True(t, want.Equal(got), "%q -> %s", raw, got)
		}
	}
}
