// Package dateparse parses bank dates written against java-style patterns
// such as "MM/dd/uu" or "dd/MM/uuuu HH:mm".
//
// Patterns are compiled once into a Layout. Parsing is locale-invariant
// and case-sensitive (English month and day names in title case such as
// "Nov" or "November", and AM/PM in upper case), must consume the whole
// input, and resolves an out-of-month day such as 30 February to the last
// day of that month.
// Two-digit years are read as 2000-2099.
package dateparse

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

type elemKind int

const (
	elemLiteral elemKind = iota
	elemYear
	elemYearTwoDigit
	elemMonth
	elemMonthShort
	elemMonthFull
	elemDay
	elemHourOfDay     // H, 0-23
	elemClockHourDay  // k, 1-24
	elemHourOfAmPm    // K, 0-11
	elemClockHourAmPm // h, 1-12
	elemMinute
	elemSecond
	elemFraction
	elemAmPm
	elemDayNameShort
	elemDayNameFull
)

// maxDigits bounds variable-width numeric fields.
const maxDigits = 10

type element struct {
	kind     elemKind
	literal  string
	minWidth int
	maxWidth int
}

func (e element) numeric() bool {
	switch e.kind {
	case elemLiteral, elemMonthShort, elemMonthFull, elemAmPm, elemDayNameShort, elemDayNameFull:
		return false
	}
	return true
}

func (e element) fixed() bool {
	return e.numeric() && e.minWidth == e.maxWidth
}

// Layout is a compiled date pattern. It is immutable and safe for concurrent use.
type Layout struct {
	pattern string
	elems   []element
}

// Pattern returns the source pattern.
func (l *Layout) Pattern() string { return l.pattern }

// HasDate reports whether the pattern carries year, month and day fields,
// i.e. whether it can yield a calendar date at all.
func (l *Layout) HasDate() bool {
	var year, month, day bool
	for _, e := range l.elems {
		switch e.kind {
		case elemYear, elemYearTwoDigit:
			year = true
		case elemMonth, elemMonthShort, elemMonthFull:
			month = true
		case elemDay:
			day = true
		}
	}
	return year && month && day
}

// Compile parses a java-style date pattern.
func Compile(pattern string) (*Layout, error) {
	if strings.TrimSpace(pattern) == "" {
		return nil, errors.New("empty date pattern")
	}

	runes := []rune(pattern)
	var elems []element
	for i := 0; i < len(runes); {
		r := runes[i]
		switch {
		case r == '\'':
			if i+1 < len(runes) && runes[i+1] == '\'' {
				elems = appendLiteral(elems, "'")
				i += 2
				continue
			}
			lit, next, err := quoted(runes, i+1)
			if err != nil {
				return nil, fmt.Errorf("date pattern %q: %w", pattern, err)
			}
			elems = appendLiteral(elems, lit)
			i = next
		case strings.ContainsRune("[]{}#", r):
			return nil, fmt.Errorf("date pattern %q: unsupported character %q", pattern, r)
		case isASCIILetter(r):
			j := i
			for j < len(runes) && runes[j] == r {
				j++
			}
			e, err := letterElement(r, j-i)
			if err != nil {
				return nil, fmt.Errorf("date pattern %q: %w", pattern, err)
			}
			elems = append(elems, e)
			i = j
		default:
			elems = appendLiteral(elems, string(r))
			i++
		}
	}

	return &Layout{pattern: pattern, elems: elems}, nil
}

// quoted reads quoted text starting after the opening quote. A doubled quote
// inside the text is a literal quote.
func quoted(runes []rune, start int) (string, int, error) {
	var b strings.Builder
	for j := start; j < len(runes); j++ {
		if runes[j] != '\'' {
			b.WriteRune(runes[j])
			continue
		}
		if j+1 < len(runes) && runes[j+1] == '\'' {
			b.WriteRune('\'')
			j++
			continue
		}
		return b.String(), j + 1, nil
	}
	return "", 0, errors.New("unterminated quoted text")
}

func appendLiteral(elems []element, s string) []element {
	if n := len(elems); n > 0 && elems[n-1].kind == elemLiteral {
		elems[n-1].literal += s
		return elems
	}
	return append(elems, element{kind: elemLiteral, literal: s})
}

func isASCIILetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func letterElement(r rune, count int) (element, error) {
	tooMany := fmt.Errorf("too many pattern letters: %s", strings.Repeat(string(r), count))

	switch r {
	case 'y', 'u':
		switch {
		case count == 2:
			return element{kind: elemYearTwoDigit, minWidth: 2, maxWidth: 2}, nil
		case count == 1:
			return element{kind: elemYear, minWidth: 1, maxWidth: maxDigits}, nil
		default:
			return element{kind: elemYear, minWidth: count, maxWidth: max(count, maxDigits)}, nil
		}
	case 'M', 'L':
		switch count {
		case 1:
			return element{kind: elemMonth, minWidth: 1, maxWidth: maxDigits}, nil
		case 2:
			return element{kind: elemMonth, minWidth: 2, maxWidth: 2}, nil
		case 3:
			return element{kind: elemMonthShort}, nil
		case 4:
			return element{kind: elemMonthFull}, nil
		}
		return element{}, tooMany
	case 'E':
		switch {
		case count <= 3:
			return element{kind: elemDayNameShort}, nil
		case count == 4:
			return element{kind: elemDayNameFull}, nil
		}
		return element{}, tooMany
	case 'a':
		if count > 1 {
			return element{}, tooMany
		}
		return element{kind: elemAmPm}, nil
	case 'S':
		if count > 9 {
			return element{}, tooMany
		}
		return element{kind: elemFraction, minWidth: count, maxWidth: count}, nil
	}

	kinds := map[rune]elemKind{
		'd': elemDay,
		'H': elemHourOfDay,
		'k': elemClockHourDay,
		'K': elemHourOfAmPm,
		'h': elemClockHourAmPm,
		'm': elemMinute,
		's': elemSecond,
	}
	kind, ok := kinds[r]
	if !ok {
		return element{}, fmt.Errorf("unsupported pattern letter %q", r)
	}
	switch count {
	case 1:
		return element{kind: kind, minWidth: 1, maxWidth: maxDigits}, nil
	case 2:
		return element{kind: kind, minWidth: 2, maxWidth: 2}, nil
	}
	return element{}, tooMany
}

// ParseError describes a value that does not match a pattern.
type ParseError struct {
	Pattern string
	Value   string
	Reason  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing %q as %q: %s", e.Value, e.Pattern, e.Reason)
}

var (
	monthsFull = []string{"January", "February", "March", "April", "May", "June",
		"July", "August", "September", "October", "November", "December"}
	daysFull = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}
)

type fields struct {
	year, month, day     int
	hour, minute, second int
	hasYear, hasDay      bool
	hasMonth             bool
	pm, hasAmPm          bool
}

// Parse parses s and returns the calendar date at midnight UTC. Time-of-day
// fields are validated but dropped.
func (l *Layout) Parse(s string) (time.Time, error) {
	fail := func(format string, args ...any) (time.Time, error) {
		return time.Time{}, &ParseError{Pattern: l.pattern, Value: s, Reason: fmt.Sprintf(format, args...)}
	}

	var f fields
	pos := 0
	for i, e := range l.elems {
		rest := s[pos:]

		switch {
		case e.kind == elemLiteral:
			if !strings.HasPrefix(rest, e.literal) {
				return fail("expected %q at offset %d", e.literal, pos)
			}
			pos += len(e.literal)

		case e.numeric():
			avail := leadingDigits(rest)
			width := e.minWidth
			if !e.fixed() {
				width = min(e.maxWidth, avail-l.reservedAfter(i))
			}
			if width < e.minWidth || avail < width {
				return fail("expected %d digit(s) at offset %d", e.minWidth, pos)
			}
			v, err := strconv.Atoi(rest[:width])
			if err != nil {
				return fail("bad number %q", rest[:width])
			}
			pos += width
			if err := f.set(e.kind, v); err != nil {
				return fail("%v", err)
			}

		default:
			n, err := f.text(e.kind, rest)
			if err != nil {
				return fail("%v at offset %d", err, pos)
			}
			pos += n
		}
	}

	if pos != len(s) {
		return fail("unparsed text %q", s[pos:])
	}
	if !f.hasYear || !f.hasMonth || !f.hasDay {
		return fail("pattern does not describe a full date")
	}
	if f.month < 1 || f.month > 12 {
		return fail("month %d out of range", f.month)
	}
	if f.day < 1 || f.day > 31 {
		return fail("day %d out of range", f.day)
	}

	day := min(f.day, daysIn(f.year, time.Month(f.month)))
	return time.Date(f.year, time.Month(f.month), day, 0, 0, 0, 0, time.UTC), nil
}

// reservedAfter returns the digits needed by fixed-width numeric fields that
// directly follow element i, so a variable-width field such as "yyyy" in
// "yyyyMMdd" leaves them room.
func (l *Layout) reservedAfter(i int) int {
	n := 0
	for _, e := range l.elems[i+1:] {
		if !e.fixed() {
			break
		}
		n += e.minWidth
	}
	return n
}

func (f *fields) set(kind elemKind, v int) error {
	inRange := func(name string, lo, hi int) error {
		if v < lo || v > hi {
			return fmt.Errorf("%s %d out of range", name, v)
		}
		return nil
	}

	switch kind {
	case elemYear:
		f.year, f.hasYear = v, true
	case elemYearTwoDigit:
		f.year, f.hasYear = 2000+v, true
	case elemMonth:
		f.month, f.hasMonth = v, true
	case elemDay:
		f.day, f.hasDay = v, true
	case elemHourOfDay:
		f.hour = v
		return inRange("hour", 0, 23)
	case elemClockHourDay:
		f.hour = v % 24
		return inRange("hour", 1, 24)
	case elemHourOfAmPm:
		f.hour = v
		return inRange("hour", 0, 11)
	case elemClockHourAmPm:
		f.hour = v % 12
		return inRange("hour", 1, 12)
	case elemMinute:
		f.minute = v
		return inRange("minute", 0, 59)
	case elemSecond:
		f.second = v
		return inRange("second", 0, 59)
	}
	return nil
}

// text consumes a textual field and returns the number of bytes read.
func (f *fields) text(kind elemKind, rest string) (int, error) {
	switch kind {
	case elemMonthFull, elemMonthShort:
		for i, name := range monthsFull {
			if kind == elemMonthShort {
				name = name[:3]
			}
			if strings.HasPrefix(rest, name) {
				f.month, f.hasMonth = i+1, true
				return len(name), nil
			}
		}
		return 0, errors.New("expected month name")
	case elemDayNameFull, elemDayNameShort:
		for _, name := range daysFull {
			if kind == elemDayNameShort {
				name = name[:3]
			}
			if strings.HasPrefix(rest, name) {
				return len(name), nil
			}
		}
		return 0, errors.New("expected day name")
	case elemAmPm:
		switch {
		case strings.HasPrefix(rest, "AM"):
			f.hasAmPm = true
			return 2, nil
		case strings.HasPrefix(rest, "PM"):
			f.hasAmPm, f.pm = true, true
			return 2, nil
		}
		return 0, errors.New("expected AM or PM")
	}
	return 0, fmt.Errorf("unexpected field kind %d", kind)
}

func leadingDigits(s string) int {
	n := 0
	for n < len(s) && s[n] >= '0' && s[n] <= '9' {
		n++
	}
	return n
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
