package model

import (
	"errors"
	"fmt"
	"time"
)

// ErrorKind classifies an import failure for callers that branch on it.
type ErrorKind string

const (
	KindFormatNotSupported ErrorKind = "CSV_FORMAT_NOT_SUPPORTED"
	KindParsing            ErrorKind = "CSV_PARSING_ERROR"
	KindDateTooOld         ErrorKind = "TRANSACTION_DATE_TOO_OLD"
	KindDateTooFarInFuture ErrorKind = "TRANSACTION_DATE_TOO_FAR_IN_FUTURE"
)

// Sentinels for errors.Is; they match any ImportError of the same kind.
var (
	ErrFormatNotSupported = &ImportError{Kind: KindFormatNotSupported}
	ErrParsing            = &ImportError{Kind: KindParsing}
	ErrDateTooOld         = &ImportError{Kind: KindDateTooOld}
	ErrDateTooFarInFuture = &ImportError{Kind: KindDateTooFarInFuture}
)

// ImportError is a user-facing import failure with enough context to render
// a message without re-deriving where it happened.
type ImportError struct {
	Kind     ErrorKind
	Format   string
	FileName string
	Line     int    // 0 when not tied to a row
	Column   string // header name, when applicable
	Value    string // raw offending cell, when applicable
	Message  string
	Err      error
}

func (e *ImportError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return string(e.Kind)
}

func (e *ImportError) Unwrap() error { return e.Err }

// Is matches sentinels by kind.
func (e *ImportError) Is(target error) bool {
	t, ok := target.(*ImportError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == ""
}

// AsImportError extracts an *ImportError from err's chain.
func AsImportError(err error) (*ImportError, bool) {
	var ie *ImportError
	if errors.As(err, &ie) {
		return ie, true
	}
	return nil, false
}

// FormatNotSupportedError reports a format key with no configuration.
func FormatNotSupportedError(format string) *ImportError {
	return &ImportError{
		Kind:    KindFormatNotSupported,
		Format:  format,
		Message: "No csvConfig found for format: " + format,
	}
}

// RowContext locates a row for error messages.
type RowContext struct {
	FileName string
	Format   string
	Line     int
}

// MissingValue reports a blank or absent required column.
func (c RowContext) MissingValue(column string) *ImportError {
	return &ImportError{
		Kind:     KindParsing,
		Format:   c.Format,
		FileName: c.FileName,
		Line:     c.Line,
		Column:   column,
		Message: fmt.Sprintf("Missing value for required column '%s' at line %d in file '%s'",
			column, c.Line, c.FileName),
	}
}

// InvalidValue reports a present but unusable cell.
func (c RowContext) InvalidValue(column, raw, what string) *ImportError {
	return &ImportError{
		Kind:     KindParsing,
		Format:   c.Format,
		FileName: c.FileName,
		Line:     c.Line,
		Column:   column,
		Value:    raw,
		Message: fmt.Sprintf("Invalid %s value '%s' for column '%s' at line %d in file '%s'",
			what, raw, column, c.Line, c.FileName),
	}
}

// InvalidAmount reports an amount cell that is not a number once sanitized.
func (c RowContext) InvalidAmount(column, raw string) *ImportError {
	return &ImportError{
		Kind:     KindParsing,
		Format:   c.Format,
		FileName: c.FileName,
		Line:     c.Line,
		Column:   column,
		Value:    raw,
		Message: fmt.Sprintf("Invalid amount value '%s' at line %d in file '%s'",
			raw, c.Line, c.FileName),
	}
}

// DateTooOld rejects a transaction dated before the year 2000.
func (c RowContext) DateTooOld(column string, date time.Time) *ImportError {
	return &ImportError{
		Kind:     KindDateTooOld,
		Format:   c.Format,
		FileName: c.FileName,
		Line:     c.Line,
		Column:   column,
		Value:    date.Format(DateLayout),
		Message: fmt.Sprintf("Transaction date '%s' at line %d in file '%s' is prior to year 2000",
			date.Format(DateLayout), c.Line, c.FileName),
	}
}

// DateTooFarInFuture rejects a transaction dated more than a day ahead.
func (c RowContext) DateTooFarInFuture(column string, date time.Time) *ImportError {
	return &ImportError{
		Kind:     KindDateTooFarInFuture,
		Format:   c.Format,
		FileName: c.FileName,
		Line:     c.Line,
		Column:   column,
		Value:    date.Format(DateLayout),
		Message: fmt.Sprintf("Transaction date '%s' at line %d in file '%s' is more than 1 day in the future",
			date.Format(DateLayout), c.Line, c.FileName),
	}
}

// ParsingFailure wraps an unexpected, non-domain error.
func ParsingFailure(err error) *ImportError {
	return &ImportError{
		Kind:    KindParsing,
		Message: "Failed to import CSV files: " + err.Error(),
		Err:     err,
	}
}
