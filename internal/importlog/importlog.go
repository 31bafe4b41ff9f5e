// Package importlog keeps an append-only CSV record of import batches run
// from the command line.
package importlog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Status values for an Entry.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// Entry is one import batch.
type Entry struct {
	Timestamp    time.Time
	BatchID      string
	Format       string
	AccountID    string
	Files        []string
	Transactions int
	Skipped      int
	Status       string
	Error        string
}

// Header is the CSV header for import-log.csv.
const Header = "timestamp,batch_id,format,account_id,files,transactions,skipped,status,error"

const (
	numFields       = 9
	logDir          = "logs"
	logFile         = "logs/import-log.csv"
	fileSep         = ";"
	colTimestamp    = 0
	colBatchID      = 1
	colFormat       = 2
	colAccountID    = 3
	colFiles        = 4
	colTransactions = 5
	colSkipped      = 6
	colStatus       = 7
	colError        = 8
)

// MarshalEntry converts an Entry to a CSV row.
func MarshalEntry(e Entry) []string {
	row := make([]string, numFields)
	row[colTimestamp] = e.Timestamp.UTC().Format(time.RFC3339)
	row[colBatchID] = e.BatchID
	row[colFormat] = e.Format
	row[colAccountID] = e.AccountID
	row[colFiles] = strings.Join(e.Files, fileSep)
	row[colTransactions] = strconv.Itoa(e.Transactions)
	row[colSkipped] = strconv.Itoa(e.Skipped)
	row[colStatus] = e.Status
	row[colError] = e.Error
	return row
}

// UnmarshalEntry converts a CSV row to an Entry.
func UnmarshalEntry(record []string) (Entry, error) {
	if len(record) != numFields {
		return Entry{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	ts, err := time.Parse(time.RFC3339, record[colTimestamp])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing timestamp %q: %w", record[colTimestamp], err)
	}
	n, err := strconv.Atoi(record[colTransactions])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing transactions %q: %w", record[colTransactions], err)
	}
	skipped, err := strconv.Atoi(record[colSkipped])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing skipped %q: %w", record[colSkipped], err)
	}

	var files []string
	if record[colFiles] != "" {
		files = strings.Split(record[colFiles], fileSep)
	}

	return Entry{
		Timestamp:    ts,
		BatchID:      record[colBatchID],
		Format:       record[colFormat],
		AccountID:    record[colAccountID],
		Files:        files,
		Transactions: n,
		Skipped:      skipped,
		Status:       record[colStatus],
		Error:        record[colError],
	}, nil
}

// Append writes entries to <root>/logs/import-log.csv, creating the file and header if needed.
func Append(root string, entries ...Entry) error {
	dir := filepath.Join(root, logDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating logs dir: %w", err)
	}

	path := filepath.Join(root, logFile)
	needsHeader := false
	if _, err := os.Stat(path); os.IsNotExist(err) {
		needsHeader = true
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening import log: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if needsHeader {
		if err := cw.Write(strings.Split(Header, ",")); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}
	for i, e := range entries {
		if err := cw.Write(MarshalEntry(e)); err != nil {
			return fmt.Errorf("writing entry %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Read returns all entries from <root>/logs/import-log.csv.
// Returns nil if the file does not exist.
func Read(root string) ([]Entry, error) {
	f, err := os.Open(filepath.Join(root, logFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening import log: %w", err)
	}
	defer f.Close()

	return readEntries(f)
}

func readEntries(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading import log CSV: %w", err)
	}
	if len(records) <= 1 {
		return nil, nil
	}

	var entries []Entry
	for i, rec := range records[1:] {
		e, err := UnmarshalEntry(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}
