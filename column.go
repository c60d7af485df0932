// Copyright 2024 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package iyx

import (
	"strconv"
	"strings"
	"time"

	"golang.org/x/exp/slices"
)

const (
	// DateFormat is the textual form used for DATE values.
	DateFormat = "2006-01-02"
	// DateTimeFormat is the textual form used for TIMESTAMP values.
	DateTimeFormat = "2006-01-02 15:04:05"

	secondsPerDay = 86400
)

// Column is the typed column buffer: a tagged union over one of five
// homogeneous value sequences, selected once at construction by its
// LogicalType and never changed afterwards.
type Column struct {
	name string
	typ  LogicalType

	i16 []int16
	i32 []int32
	i64 []int64
	b   []bool
	s   []string
}

// NewColumn returns an empty column buffer for the given name and type.
func NewColumn(name string, typ LogicalType) *Column {
	return &Column{name: name, typ: typ}
}

// Name returns the column's name.
func (c *Column) Name() string { return c.name }

// Type returns the column's LogicalType.
func (c *Column) Type() LogicalType { return c.typ }

// Len returns the number of rows currently held.
func (c *Column) Len() int {
	switch c.typ.VariantIndex() {
	case 0:
		return len(c.i16)
	case 1:
		return len(c.i32)
	case 2:
		return len(c.i64)
	case 3:
		return len(c.b)
	case 4:
		return len(c.s)
	default:
		return 0
	}
}

// IsEmpty reports whether the column holds zero rows.
func (c *Column) IsEmpty() bool { return c.Len() == 0 }

// Reserve grows the backing slice's capacity to at least n elements.
func (c *Column) Reserve(n int) {
	grow := func(have int) int {
		if d := n - have; d > 0 {
			return d
		}
		return 0
	}
	switch c.typ.VariantIndex() {
	case 0:
		c.i16 = slices.Grow(c.i16, grow(len(c.i16)))
	case 1:
		c.i32 = slices.Grow(c.i32, grow(len(c.i32)))
	case 2:
		c.i64 = slices.Grow(c.i64, grow(len(c.i64)))
	case 3:
		c.b = slices.Grow(c.b, grow(len(c.b)))
	case 4:
		c.s = slices.Grow(c.s, grow(len(c.s)))
	}
}

// Clear empties the column, keeping its backing capacity.
func (c *Column) Clear() {
	switch c.typ.VariantIndex() {
	case 0:
		c.i16 = c.i16[:0]
	case 1:
		c.i32 = c.i32[:0]
	case 2:
		c.i64 = c.i64[:0]
	case 3:
		c.b = c.b[:0]
	case 4:
		c.s = c.s[:0]
	}
}

// AppendFromString parses s per the column's LogicalType and appends it.
func (c *Column) AppendFromString(s string) error {
	switch c.typ {
	case INT16:
		v, err := parseInt(s, 16)
		if err != nil {
			return &ParseError{Type: c.typ, Raw: s}
		}
		c.i16 = append(c.i16, int16(v))
	case INT32:
		v, err := parseInt(s, 32)
		if err != nil {
			return &ParseError{Type: c.typ, Raw: s}
		}
		c.i32 = append(c.i32, int32(v))
	case INT64:
		v, err := parseInt(s, 64)
		if err != nil {
			return &ParseError{Type: c.typ, Raw: s}
		}
		c.i64 = append(c.i64, v)
	case BOOL:
		v, err := parseBool(s)
		if err != nil {
			return &ParseError{Type: c.typ, Raw: s}
		}
		c.b = append(c.b, v)
	case STRING:
		c.s = append(c.s, s)
	case DATE:
		v, err := ParseDate(s)
		if err != nil {
			return &ParseError{Type: c.typ, Raw: s}
		}
		c.i32 = append(c.i32, v)
	case TIMESTAMP:
		v, err := ParseTimestamp(s)
		if err != nil {
			return &ParseError{Type: c.typ, Raw: s}
		}
		c.i64 = append(c.i64, v)
	case INT128:
		return &ParseError{Type: c.typ, Raw: s}
	default:
		return &ParseError{Type: c.typ, Raw: s}
	}
	return nil
}

// appendTyped pushes an already-parsed value of the matching Go type; used
// by Batch.AppendRow's scratch-row commit step so a batch never parses the
// same field twice.
func (c *Column) appendTyped(v any) {
	switch c.typ {
	case INT16:
		c.i16 = append(c.i16, v.(int16))
	case INT32, DATE:
		c.i32 = append(c.i32, v.(int32))
	case INT64, TIMESTAMP:
		c.i64 = append(c.i64, v.(int64))
	case BOOL:
		c.b = append(c.b, v.(bool))
	case STRING:
		c.s = append(c.s, v.(string))
	}
}

// parseTyped parses s per typ without mutating any column, returning the
// value ready for appendTyped.
func parseTyped(typ LogicalType, s string) (any, error) {
	switch typ {
	case INT16:
		v, err := parseInt(s, 16)
		if err != nil {
			return nil, &ParseError{Type: typ, Raw: s}
		}
		return int16(v), nil
	case INT32:
		v, err := parseInt(s, 32)
		if err != nil {
			return nil, &ParseError{Type: typ, Raw: s}
		}
		return int32(v), nil
	case INT64:
		v, err := parseInt(s, 64)
		if err != nil {
			return nil, &ParseError{Type: typ, Raw: s}
		}
		return v, nil
	case BOOL:
		v, err := parseBool(s)
		if err != nil {
			return nil, &ParseError{Type: typ, Raw: s}
		}
		return v, nil
	case STRING:
		return s, nil
	case DATE:
		v, err := ParseDate(s)
		if err != nil {
			return nil, &ParseError{Type: typ, Raw: s}
		}
		return v, nil
	case TIMESTAMP:
		v, err := ParseTimestamp(s)
		if err != nil {
			return nil, &ParseError{Type: typ, Raw: s}
		}
		return v, nil
	default:
		return nil, &ParseError{Type: typ, Raw: s}
	}
}

// ValueAsString renders the row-th value using the inverse of
// AppendFromString's parsing.
func (c *Column) ValueAsString(row int) (string, error) {
	if row < 0 || row >= c.Len() {
		return "", ErrOutOfRange
	}
	switch c.typ {
	case INT16:
		return strconv.FormatInt(int64(c.i16[row]), 10), nil
	case INT32:
		return strconv.FormatInt(int64(c.i32[row]), 10), nil
	case INT64:
		return strconv.FormatInt(c.i64[row], 10), nil
	case BOOL:
		if c.b[row] {
			return "true", nil
		}
		return "false", nil
	case STRING:
		return c.s[row], nil
	case DATE:
		return FormatDate(c.i32[row]), nil
	case TIMESTAMP:
		return FormatTimestamp(c.i64[row]), nil
	default:
		return "", ErrNotImplemented
	}
}

func parseInt(s string, bits int) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, strconv.ErrSyntax
	}
	return strconv.ParseInt(s, 10, bits)
}

func parseBool(s string) (bool, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "true":
		return true, nil
	case "false":
		return false, nil
	default:
		return false, strconv.ErrSyntax
	}
}

// ParseDate parses a "YYYY-MM-DD" string, interpreted as local noon, into
// days since the Unix epoch. Noon anchoring avoids DST boundaries shifting
// the day when the value is later reinterpreted at midnight. The result
// depends on the host's local time zone, so a value written under one zone
// and read under another may shift.
func ParseDate(s string) (int32, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, strconv.ErrSyntax
	}
	t, err := time.ParseInLocation(DateFormat, s, time.Local)
	if err != nil {
		return 0, err
	}
	noon := time.Date(t.Year(), t.Month(), t.Day(), 12, 0, 0, 0, time.Local)
	days := noon.Unix() / secondsPerDay
	return int32(days), nil
}

// FormatDate is the inverse of ParseDate.
func FormatDate(daysSinceEpoch int32) string {
	t := time.Unix(int64(daysSinceEpoch)*secondsPerDay, 0).In(time.Local)
	return t.Format(DateFormat)
}

// ParseTimestamp parses a "YYYY-MM-DD HH:MM:SS" string, interpreted as
// local time, into seconds since the Unix epoch. As with ParseDate, a value
// written under one local time zone and read under another may shift.
func ParseTimestamp(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, strconv.ErrSyntax
	}
	t, err := time.ParseInLocation(DateTimeFormat, s, time.Local)
	if err != nil {
		return 0, err
	}
	return t.Unix(), nil
}

// FormatTimestamp is the inverse of ParseTimestamp.
func FormatTimestamp(secondsSinceEpoch int64) string {
	return time.Unix(secondsSinceEpoch, 0).In(time.Local).Format(DateTimeFormat)
}
