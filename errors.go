// Copyright 2024 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package iyx

import (
	"fmt"

	"golang.org/x/xerrors"
)

// Sentinel error kinds, per the error taxonomy (not concrete types, mostly).
// Wrap these with xerrors.Errorf("...: %w", Err...) to attach context.
var (
	ErrIO             = xerrors.New("iyx: IO error")
	ErrFormat         = xerrors.New("iyx: format error")
	ErrParse          = xerrors.New("iyx: parse error")
	ErrDuplicateCol   = xerrors.New("iyx: duplicate column")
	ErrEmptyName      = xerrors.New("iyx: empty column name")
	ErrEmptySchema    = xerrors.New("iyx: empty schema")
	ErrColumnCount    = xerrors.New("iyx: column count mismatch")
	ErrOutOfRange     = xerrors.New("iyx: index out of range")
	ErrState          = xerrors.New("iyx: illegal state")
	ErrNotImplemented = xerrors.New("iyx: not implemented")
)

// ParseError is returned by Column.AppendFromString on malformed input.
type ParseError struct {
	Type LogicalType
	Raw  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("iyx: cannot parse %q as %s", e.Raw, e.Type.Name())
}

func (e *ParseError) Unwrap() error { return ErrParse }

// DuplicateColumnError names the offending column.
type DuplicateColumnError struct {
	Name string
}

func (e *DuplicateColumnError) Error() string {
	return fmt.Sprintf("iyx: duplicate column %q", e.Name)
}

func (e *DuplicateColumnError) Unwrap() error { return ErrDuplicateCol }
