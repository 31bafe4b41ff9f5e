package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/budgetanalyzer/transactions/internal/dateparse"
	"github.com/budgetanalyzer/transactions/internal/model"
)

// CsvConfig describes one bank's CSV export layout.
//
// DebitHeader and CreditHeader may name the same column, for banks that
// export a single amount column. TypeHeader is empty when the direction is
// inferred from which of the two amount columns is populated.
type CsvConfig struct {
	BankName               string `yaml:"bank_name"`
	DefaultCurrencyISOCode string `yaml:"default_currency_iso_code"`
	DateHeader             string `yaml:"date_header"`
	DateFormat             string `yaml:"date_format"`
	DescriptionHeader      string `yaml:"description_header"`
	DebitHeader            string `yaml:"debit_header"`
	CreditHeader           string `yaml:"credit_header"`
	TypeHeader             string `yaml:"type_header,omitempty"`
}

// HasTypeColumn reports whether the layout carries an explicit type column.
func (c CsvConfig) HasTypeColumn() bool {
	return strings.TrimSpace(c.TypeHeader) != ""
}

func (c CsvConfig) problems() []string {
	var out []string
	required := []struct{ name, value string }{
		{"bank_name", c.BankName},
		{"default_currency_iso_code", c.DefaultCurrencyISOCode},
		{"date_header", c.DateHeader},
		{"date_format", c.DateFormat},
		{"description_header", c.DescriptionHeader},
		{"debit_header", c.DebitHeader},
		{"credit_header", c.CreditHeader},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			out = append(out, f.name+" is required")
		}
	}

	if strings.TrimSpace(c.DateFormat) != "" {
		l, err := dateparse.Compile(c.DateFormat)
		switch {
		case err != nil:
			out = append(out, fmt.Sprintf("date_format: %v", err))
		case !l.HasDate():
			out = append(out, fmt.Sprintf("date_format %q needs year, month and day fields", c.DateFormat))
		}
	}
	return out
}

// Formats is the read-only set of configured bank formats. It is safe for
// concurrent use because nothing mutates it after NewFormats returns.
type Formats struct {
	configs map[string]CsvConfig
}

// NewFormats validates every entry and returns an immutable store.
func NewFormats(configs map[string]CsvConfig) (*Formats, error) {
	if len(configs) == 0 {
		return nil, errors.New("no csv formats configured")
	}

	var errs []string
	frozen := make(map[string]CsvConfig, len(configs))
	for _, key := range sortedKeys(configs) {
		if strings.TrimSpace(key) == "" {
			errs = append(errs, "blank format key")
			continue
		}
		for _, p := range configs[key].problems() {
			errs = append(errs, fmt.Sprintf("%s: %s", key, p))
		}
		frozen[key] = configs[key]
	}
	if len(errs) > 0 {
		return nil, errors.New("invalid csv formats:\n  - " + strings.Join(errs, "\n  - "))
	}
	return &Formats{configs: frozen}, nil
}

// Lookup returns the configuration for format. An unknown key fails with a
// CSV_FORMAT_NOT_SUPPORTED error carrying the key.
func (f *Formats) Lookup(format string) (CsvConfig, error) {
	c, ok := f.configs[format]
	if !ok {
		return CsvConfig{}, model.FormatNotSupportedError(format)
	}
	return c, nil
}

// Keys returns the configured format keys in sorted order.
func (f *Formats) Keys() []string {
	return sortedKeys(f.configs)
}

// Patterns returns the distinct configured date patterns.
func (f *Formats) Patterns() []string {
	var out []string
	for _, c := range f.configs {
		if !slices.Contains(out, c.DateFormat) {
			out = append(out, c.DateFormat)
		}
	}
	slices.Sort(out)
	return out
}

func sortedKeys(m map[string]CsvConfig) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// DefaultFormats returns the built-in bank layouts.
func DefaultFormats() map[string]CsvConfig {
	return map[string]CsvConfig{
		"capital-one": {
			BankName:               "Capital One",
			DefaultCurrencyISOCode: "USD",
			DateHeader:             "Transaction Date",
			DateFormat:             "MM/dd/uu",
			DescriptionHeader:      "Transaction Description",
			DebitHeader:            "Transaction Amount",
			CreditHeader:           "Transaction Amount",
			TypeHeader:             "Transaction Type",
		},
		// Chase exports also write CHECK and DSLIP in Details. Those are not
		// type aliases, so a file containing them fails the whole batch.
		"chase": {
			BankName:               "Chase",
			DefaultCurrencyISOCode: "USD",
			DateHeader:             "Posting Date",
			DateFormat:             "MM/dd/uuuu",
			DescriptionHeader:      "Description",
			DebitHeader:            "Amount",
			CreditHeader:           "Amount",
			TypeHeader:             "Details",
		},
		"bangkok-bank-statement-1": {
			BankName:               "Bangkok Bank",
			DefaultCurrencyISOCode: "THB",
			DateHeader:             "Date",
			DateFormat:             "dd/MM/uuuu HH:mm",
			DescriptionHeader:      "Description",
			DebitHeader:            "Debit",
			CreditHeader:           "Credit",
		},
		"truist": {
			BankName:               "Truist",
			DefaultCurrencyISOCode: "USD",
			DateHeader:             "Date",
			DateFormat:             "MM/dd/uuuu",
			DescriptionHeader:      "Description",
			DebitHeader:            "Debit",
			CreditHeader:           "Credit",
		},
	}
}
