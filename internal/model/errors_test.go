package model

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImportError_IsMatchesKind(t *testing.T) {
	ctx := RowContext{FileName: "a.csv", Format: "truist", Line: 3}

	err := fmt.Errorf("mapping: %w", ctx.MissingValue("Debit"))
	assert.ErrorIs(t, err, ErrParsing)
	assert.NotErrorIs(t, err, ErrDateTooOld)

	old := ctx.DateTooOld("Date", time.Date(1999, 12, 31, 0, 0, 0, 0, time.UTC))
	assert.ErrorIs(t, old, ErrDateTooOld)
	assert.NotErrorIs(t, old, ErrParsing)

	assert.ErrorIs(t, FormatNotSupportedError("x"), ErrFormatNotSupported)
}

func TestImportError_Messages(t *testing.T) {
	ctx := RowContext{FileName: "stmt.csv", Format: "truist", Line: 7}

	assert.Equal(t, "Missing value for required column 'Debit' at line 7 in file 'stmt.csv'",
		ctx.MissingValue("Debit").Error())
	assert.Equal(t, "Invalid amount value 'abc' at line 7 in file 'stmt.csv'",
		ctx.InvalidAmount("Debit", "abc").Error())
	assert.Equal(t, "Invalid date value '99/99' for column 'Date' at line 7 in file 'stmt.csv'",
		ctx.InvalidValue("Date", "99/99", "date").Error())

	future := ctx.DateTooFarInFuture("Date", time.Date(2099, 1, 2, 0, 0, 0, 0, time.UTC))
	assert.Contains(t, future.Error(), "'2099-01-02' at line 7")
	assert.Equal(t, "2099-01-02", future.Value)
}

func TestImportError_CarriesContext(t *testing.T) {
	ctx := RowContext{FileName: "stmt.csv", Format: "truist", Line: 2}
	ie := ctx.InvalidValue("Type", "Refund", "type")

	assert.Equal(t, KindParsing, ie.Kind)
	assert.Equal(t, "stmt.csv", ie.FileName)
	assert.Equal(t, "truist", ie.Format)
	assert.Equal(t, 2, ie.Line)
	assert.Equal(t, "Type", ie.Column)
	assert.Equal(t, "Refund", ie.Value)
}

func TestParsingFailure_Wraps(t *testing.T) {
	cause := errors.New("connection reset")
	err := ParsingFailure(cause)

	assert.Equal(t, "Failed to import CSV files: connection reset", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, ErrParsing)
}

func TestAsImportError(t *testing.T) {
	ie, ok := AsImportError(fmt.Errorf("wrapped: %w", FormatNotSupportedError("nope")))
	require.True(t, ok)
	assert.Equal(t, KindFormatNotSupported, ie.Kind)
	assert.Equal(t, "nope", ie.Format)

	_, ok = AsImportError(errors.New("plain"))
	assert.False(t, ok)
}

func TestImportError_SentinelDoesNotMatchSpecific(t *testing.T) {
	specific := RowContext{Line: 1}.MissingValue("x")
	assert.False(t, errors.Is(ErrParsing, specific))
}
