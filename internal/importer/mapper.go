package importer

import (
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/budgetanalyzer/transactions/internal/config"
	"github.com/budgetanalyzer/transactions/internal/dateparse"
	"github.com/budgetanalyzer/transactions/internal/model"
)

// Mapper converts CSV rows into transactions according to the configured
// bank formats. It is safe for concurrent use.
type Mapper struct {
	formats *config.Formats
	dates   *dateparse.Cache
	now     func() time.Time
	logger  *slog.Logger
}

// MapperOption customizes a Mapper.
type MapperOption func(*Mapper)

// WithClock overrides the clock used for the future-date check.
func WithClock(now func() time.Time) MapperOption {
	return func(m *Mapper) { m.now = now }
}

// WithLogger sets the logger for per-row debug output.
func WithLogger(l *slog.Logger) MapperOption {
	return func(m *Mapper) { m.logger = l }
}

// NewMapper creates a Mapper.
func NewMapper(formats *config.Formats, dates *dateparse.Cache, opts ...MapperOption) *Mapper {
	m := &Mapper{
		formats: formats,
		dates:   dates,
		now:     time.Now,
		logger:  slog.Default(),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Map converts one row of fileName into a Transaction. Every failure is an
// *model.ImportError.
func (m *Mapper) Map(fileName, format, accountID string, row model.CsvRow) (model.Transaction, error) {
	cfg, err := m.formats.Lookup(format)
	if err != nil {
		return model.Transaction{}, err
	}

	rc := model.RowContext{FileName: fileName, Format: format, Line: row.LineNumber}
	m.logger.Debug("mapping row", "file", fileName, "format", format, "line", row.LineNumber)

	desc, err := required(rc, row, cfg.DescriptionHeader)
	if err != nil {
		return model.Transaction{}, err
	}

	date, err := m.parseDate(rc, row, cfg)
	if err != nil {
		return model.Transaction{}, err
	}

	typ, amount, err := m.typeAndAmount(rc, row, cfg)
	if err != nil {
		return model.Transaction{}, err
	}

	return model.Transaction{
		AccountID:       accountID,
		BankName:        cfg.BankName,
		CurrencyISOCode: cfg.DefaultCurrencyISOCode,
		Date:            date,
		Amount:          amount,
		Type:            typ,
		Description:     desc,
	}, nil
}

func (m *Mapper) parseDate(rc model.RowContext, row model.CsvRow, cfg config.CsvConfig) (time.Time, error) {
	raw, err := required(rc, row, cfg.DateHeader)
	if err != nil {
		return time.Time{}, err
	}

	date, err := m.dates.Parse(cfg.DateFormat, raw)
	if err != nil {
		ie := rc.InvalidValue(cfg.DateHeader, raw, "date")
		ie.Err = err
		return time.Time{}, ie
	}

	if date.Year() < 2000 {
		return time.Time{}, rc.DateTooOld(cfg.DateHeader, date)
	}
	if date.After(latestAllowed(m.now())) {
		return time.Time{}, rc.DateTooFarInFuture(cfg.DateHeader, date)
	}
	return date, nil
}

// latestAllowed is tomorrow's civil date in now's location, as UTC midnight
// to compare against parsed dates.
func latestAllowed(now time.Time) time.Time {
	y, mo, d := now.Date()
	return time.Date(y, mo, d+1, 0, 0, 0, 0, time.UTC)
}

// typeAndAmount resolves direction and magnitude together, since the
// column layout couples them.
func (m *Mapper) typeAndAmount(rc model.RowContext, row model.CsvRow, cfg config.CsvConfig) (model.TransactionType, decimal.Decimal, error) {
	var (
		typ    model.TransactionType
		column string
	)

	if cfg.HasTypeColumn() {
		raw, err := required(rc, row, cfg.TypeHeader)
		if err != nil {
			return "", decimal.Decimal{}, err
		}
		t, ok := model.ParseTransactionType(raw)
		if !ok {
			return "", decimal.Decimal{}, rc.InvalidValue(cfg.TypeHeader, raw, "type")
		}
		typ, column = t, cfg.DebitHeader
		if t == model.TypeCredit {
			column = cfg.CreditHeader
		}
	} else {
		// Both blank or both populated fall through to DEBIT.
		debit, credit := row.Value(cfg.DebitHeader), row.Value(cfg.CreditHeader)
		if isBlank(debit) && !isBlank(credit) {
			typ, column = model.TypeCredit, cfg.CreditHeader
		} else {
			typ, column = model.TypeDebit, cfg.DebitHeader
		}
		if !isBlank(debit) && !isBlank(credit) {
			m.logger.Warn("row has both debit and credit values, treating as debit",
				"file", rc.FileName, "line", rc.Line, "debit", debit, "credit", credit)
		}
	}

	amount, err := parseAmount(rc, row, column)
	if err != nil {
		return "", decimal.Decimal{}, err
	}
	return typ, amount, nil
}

// parseAmount reads the magnitude from column. Everything but digits and
// dots is stripped first, signs included; direction never comes from here.
func parseAmount(rc model.RowContext, row model.CsvRow, column string) (decimal.Decimal, error) {
	raw, err := required(rc, row, column)
	if err != nil {
		return decimal.Decimal{}, err
	}

	amount, err := decimal.NewFromString(SanitizeAmount(raw))
	if err != nil {
		ie := rc.InvalidAmount(column, raw)
		ie.Err = err
		return decimal.Decimal{}, ie
	}
	return amount, nil
}

// SanitizeAmount keeps only ASCII digits and '.'.
func SanitizeAmount(raw string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' || r == '.' {
			return r
		}
		return -1
	}, raw)
}

func required(rc model.RowContext, row model.CsvRow, column string) (string, error) {
	v := row.Value(column)
	if isBlank(v) {
		return "", rc.MissingValue(column)
	}
	return v, nil
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
