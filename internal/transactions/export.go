package transactions

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/budgetanalyzer/transactions/internal/model"
)

// Header is the CSV header written by WriteCSV.
const Header = "id,date,account_id,bank_name,currency_iso_code,type,amount,description,created_at,updated_at"

const (
	numFields    = 10
	colID        = 0
	colDate      = 1
	colAccountID = 2
	colBank      = 3
	colCurrency  = 4
	colType      = 5
	colAmount    = 6
	colDesc      = 7
	colCreated   = 8
	colUpdated   = 9
)

// WriteCSV writes txns, header first.
func WriteCSV(w io.Writer, txns []model.Transaction) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(strings.Split(Header, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, t := range txns {
		if err := cw.Write(MarshalTransaction(t)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// MarshalTransaction converts a Transaction to a CSV row.
func MarshalTransaction(t model.Transaction) []string {
	row := make([]string, numFields)
	row[colID] = strconv.FormatInt(t.ID, 10)
	row[colDate] = t.DateString()
	row[colAccountID] = t.AccountID
	row[colBank] = t.BankName
	row[colCurrency] = t.CurrencyISOCode
	row[colType] = string(t.Type)
	row[colAmount] = t.Amount.StringFixed(2)
	row[colDesc] = t.Description
	if !t.CreatedAt.IsZero() {
		row[colCreated] = t.CreatedAt.UTC().Format(time.RFC3339)
	}
	if !t.UpdatedAt.IsZero() {
		row[colUpdated] = t.UpdatedAt.UTC().Format(time.RFC3339)
	}
	return row
}
