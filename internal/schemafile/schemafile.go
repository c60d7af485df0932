// Copyright 2024 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

// Package schemafile reads and writes the textual schema form: one line per
// column, the two fields name and type_name separated by a comma, using
// standard CSV escaping.
package schemafile

import (
	"encoding/csv"
	"io"
	"os"

	"golang.org/x/xerrors"

	"github.com/UNO-SOFT/iyx"
)

// Read parses a schema text form from r. Blank lines are ignored. An empty
// result (no non-blank lines at all) fails with iyx.ErrEmptySchema. Unknown
// type names or duplicate column names fail with the errors iyx.Schema.Add
// and iyx.ParseLogicalType already report. INT128 is a recognized type name
// but is rejected here with iyx.ErrNotImplemented: nothing downstream can
// ingest or decode a value for it, so it is refused at load time rather
// than failing later on the first row.
func Read(r io.Reader) (*iyx.Schema, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 2
	cr.TrimLeadingSpace = false

	schema := iyx.NewSchema()
	n := 0
	for {
		record, err := cr.Read()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, xerrors.Errorf("%w: %v", iyx.ErrParse, err)
		}
		if len(record) == 1 && record[0] == "" {
			continue // blank line
		}
		n++
		typ, err := iyx.ParseLogicalType(record[1])
		if err != nil {
			return nil, err
		}
		if !typ.Loadable() {
			return nil, xerrors.Errorf("%w: column %q: %s is not loadable", iyx.ErrNotImplemented, record[0], typ.Name())
		}
		if err := schema.Add(record[0], typ); err != nil {
			return nil, err
		}
	}
	if n == 0 {
		return nil, iyx.ErrEmptySchema
	}
	return schema, nil
}

// ReadFile opens name and parses its schema text form.
func ReadFile(name string) (*iyx.Schema, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, xerrors.Errorf("%w: open %s: %v", iyx.ErrIO, name, err)
	}
	defer f.Close()
	return Read(f)
}

// Write renders schema as its textual form, one CSV line per column.
func Write(w io.Writer, schema *iyx.Schema) error {
	cw := csv.NewWriter(w)
	for _, c := range schema.Columns() {
		if err := cw.Write([]string{c.Name, c.Type.Name()}); err != nil {
			return xerrors.Errorf("%w: %v", iyx.ErrIO, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return xerrors.Errorf("%w: %v", iyx.ErrIO, err)
	}
	return nil
}

// WriteFile creates (or truncates) name and writes schema's textual form.
func WriteFile(name string, schema *iyx.Schema) error {
	f, err := os.Create(name)
	if err != nil {
		return xerrors.Errorf("%w: create %s: %v", iyx.ErrIO, name, err)
	}
	defer f.Close()
	if err := Write(f, schema); err != nil {
		return err
	}
	return f.Close()
}
