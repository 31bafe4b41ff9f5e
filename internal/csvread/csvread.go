// Package csvread turns uploaded bank CSV files into header-keyed rows.
package csvread

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/budgetanalyzer/transactions/internal/model"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Parse reads a CSV whose first record is the header row. Data rows are
// numbered from 1. Cells under a blank header are dropped without shifting
// the remaining columns, short rows simply lack their trailing cells, and
// cells past the last header are ignored.
func Parse(fileName, format string, r io.Reader) (model.CsvData, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return model.CsvData{}, fmt.Errorf("reading %s: %w", fileName, err)
	}
	return ParseBytes(fileName, format, data)
}

// ParseBytes is Parse over an in-memory file.
func ParseBytes(fileName, format string, data []byte) (model.CsvData, error) {
	out := model.CsvData{
		FileName: fileName,
		Format:   format,
		Rows:     []model.CsvRow{},
	}

	data = sanitizeUTF8(bytes.TrimPrefix(data, utf8BOM))

	cr := csv.NewReader(bytes.NewReader(data))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return out, nil
	}
	if err != nil {
		return model.CsvData{}, fmt.Errorf("reading header of %s: %w", fileName, err)
	}
	out.Headers = make([]string, len(header))
	for i, h := range header {
		out.Headers[i] = strings.TrimSpace(h)
	}

	for line := 1; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return model.CsvData{}, fmt.Errorf("reading line %d of %s: %w", line, fileName, err)
		}
		out.Rows = append(out.Rows, toRow(line, out.Headers, rec))
	}
	return out, nil
}

func toRow(line int, headers, rec []string) model.CsvRow {
	values := make(map[string]string, len(headers))
	for i, cell := range rec {
		if i >= len(headers) {
			break
		}
		if headers[i] == "" {
			continue
		}
		values[headers[i]] = strings.TrimSpace(cell)
	}
	return model.CsvRow{LineNumber: line, Values: values}
}

// sanitizeUTF8 replaces invalid UTF-8 sequences with U+FFFD.
func sanitizeUTF8(data []byte) []byte {
	if utf8.Valid(data) {
		return data
	}

	var buf bytes.Buffer
	buf.Grow(len(data))
	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError && size == 1 {
			buf.WriteRune(utf8.RuneError)
		} else {
			buf.WriteRune(r)
		}
		data = data[size:]
	}
	return buf.Bytes()
}
