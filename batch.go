// Copyright 2024 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package iyx

import "fmt"

// BatchCapacity is the maximum row count a single Batch may hold.
const BatchCapacity = 2048

// Batch owns one Schema and one Column per schema entry, all of equal
// length, up to BatchCapacity rows.
type Batch struct {
	schema  *Schema
	columns []*Column
}

// NewBatch returns an empty batch backed by schema. schema is not copied;
// callers should not mutate it afterwards.
func NewBatch(schema *Schema) *Batch {
	cols := make([]*Column, schema.Len())
	for i, c := range schema.Columns() {
		cols[i] = NewColumn(c.Name, c.Type)
	}
	return &Batch{schema: schema, columns: cols}
}

// Schema returns the batch's schema.
func (b *Batch) Schema() *Schema { return b.schema }

// ColumnCount returns the number of columns.
func (b *Batch) ColumnCount() int { return len(b.columns) }

// Column returns the column at index.
func (b *Batch) Column(index int) (*Column, error) {
	if index < 0 || index >= len(b.columns) {
		return nil, ErrOutOfRange
	}
	return b.columns[index], nil
}

// Columns returns the batch's columns in schema order; callers must not
// replace slice elements, only read or mutate through Column methods.
func (b *Batch) Columns() []*Column { return b.columns }

// RowCount returns the number of rows currently held (all columns have
// this same length).
func (b *Batch) RowCount() int {
	if len(b.columns) == 0 {
		return 0
	}
	return b.columns[0].Len()
}

// IsEmpty reports whether the batch holds zero rows.
func (b *Batch) IsEmpty() bool { return b.RowCount() == 0 }

// IsFull reports whether the batch has reached BatchCapacity rows.
func (b *Batch) IsFull() bool { return b.RowCount() >= BatchCapacity }

// IsValid reports whether all columns have equal length.
func (b *Batch) IsValid() bool {
	if len(b.columns) == 0 {
		return true
	}
	n := b.columns[0].Len()
	for _, c := range b.columns[1:] {
		if c.Len() != n {
			return false
		}
	}
	return true
}

// AppendRow parses values (one per schema column, in schema order) and
// appends the resulting row to every column. It returns false without
// touching any column when the batch is already full. A field-count
// mismatch or a per-field parse failure is reported before any column is
// mutated: every value is parsed into a scratch row first, and only a
// fully-parsed row is committed, so columns never drift to unequal
// length on a partial failure.
func (b *Batch) AppendRow(values []string) (bool, error) {
	if b.IsFull() {
		return false, nil
	}
	if len(values) != len(b.columns) {
		return false, fmt.Errorf("%w: expected %d fields, got %d", ErrColumnCount, len(b.columns), len(values))
	}
	parsed := make([]any, len(b.columns))
	for i, col := range b.columns {
		v, err := parseTyped(col.Type(), values[i])
		if err != nil {
			return false, err
		}
		parsed[i] = v
	}
	for i, col := range b.columns {
		col.appendTyped(parsed[i])
	}
	return true, nil
}

// Reserve grows every column's backing capacity to at least n rows.
func (b *Batch) Reserve(n int) {
	for _, c := range b.columns {
		c.Reserve(n)
	}
}

// Clear empties every column, keeping row count at zero.
func (b *Batch) Clear() {
	for _, c := range b.columns {
		c.Clear()
	}
}
