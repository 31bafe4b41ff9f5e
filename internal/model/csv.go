package model

// CsvRow is one data row of an uploaded CSV, keyed by header name.
type CsvRow struct {
	LineNumber int // 1 = first row after the header
	Values     map[string]string
}

// Value returns the trimmed cell under header, or "" when absent.
func (r CsvRow) Value(header string) string {
	return r.Values[header]
}

// CsvData is the parse result for one uploaded file.
type CsvData struct {
	FileName string
	Format   string
	Headers  []string
	Rows     []CsvRow
}
