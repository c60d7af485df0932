// Copyright 2024 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package iyx

import "fmt"

// LogicalType is the closed set of column types the .iyx format understands.
type LogicalType uint8

const (
	INT16 LogicalType = iota
	INT32
	INT64
	INT128 // reserved; rejected at schema load time, see ErrNotImplemented
	BOOL
	STRING
	DATE
	TIMESTAMP
)

var typeNames = [...]string{
	INT16:     "int16",
	INT32:     "int32",
	INT64:     "int64",
	INT128:    "int128",
	BOOL:      "bool",
	STRING:    "string",
	DATE:      "date",
	TIMESTAMP: "timestamp",
}

// Name returns the textual type name used in schema text form.
func (t LogicalType) Name() string {
	if int(t) < len(typeNames) && typeNames[t] != "" {
		return typeNames[t]
	}
	return fmt.Sprintf("LogicalType(%d)", uint8(t))
}

func (t LogicalType) String() string { return t.Name() }

// ParseLogicalType maps a schema text-form type name to its LogicalType.
func ParseLogicalType(name string) (LogicalType, error) {
	for i, n := range typeNames {
		if n == name {
			return LogicalType(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown type name %q", ErrParse, name)
}

// VariantIndex returns the physical-slot variant index (§3) this type maps to.
func (t LogicalType) VariantIndex() int {
	switch t {
	case INT16:
		return 0
	case INT32, DATE:
		return 1
	case INT64, TIMESTAMP, INT128:
		return 2
	case BOOL:
		return 3
	case STRING:
		return 4
	default:
		return -1
	}
}

// FixedWidth returns the on-wire byte width of a fixed-size physical slot,
// and false for STRING, which is variable-width.
func (t LogicalType) FixedWidth() (int, bool) {
	switch t.VariantIndex() {
	case 0:
		return 2, true
	case 1:
		return 4, true
	case 2:
		return 8, true
	case 3:
		return 1, true
	default:
		return 0, false
	}
}

// Valid reports whether t is one of the known LogicalType values.
func (t LogicalType) Valid() bool {
	return int(t) < len(typeNames) && typeNames[t] != ""
}

// Loadable reports whether t may be used in a schema that will actually
// hold values. INT128 is a valid, named type tag (accepted by
// ParseLogicalType and the physical-slot table) but is rejected at schema
// load time:
// nothing downstream can ingest or decode a value for it.
func (t LogicalType) Loadable() bool {
	return t.Valid() && t != INT128
}
