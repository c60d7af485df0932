// Copyright 2024 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package iyx

import (
	"context"

	"golang.org/x/xerrors"
)

type readerState int

const (
	readerConstructed readerState = iota
	readerOpened
)

// FormatReader opens a .iyx file, validates its trailing magic, reads the
// header and schema, and builds the row-group index from the footer. It
// then exposes sequential batch streaming (ReadBatch) or random row-group
// access (ReadRowGroup).
//
// State machine: Constructed -> Opened. Open is idempotent. A FormatReader
// is not safe for concurrent use.
type FormatReader struct {
	r     *byteReader
	Log   Log
	state readerState

	columnCount   uint32
	rowGroupCount uint32
	totalRowCount uint64
	schemaOffset  uint64
	footerOffset  uint64

	schema *Schema
	metas  []RowGroupMeta

	next int // index of the next row group ReadBatch will return
}

// NewFormatReader opens name for reading without yet parsing its contents;
// the header, schema, and footer are parsed lazily by Open (or by the
// first operation that requires them).
func NewFormatReader(name string) (*FormatReader, error) {
	r, err := newByteReader(name)
	if err != nil {
		return nil, err
	}
	return &FormatReader{r: r}, nil
}

// Open validates the magic, reads the header, schema, and footer index.
// Calling Open again after a successful Open is a no-op.
func (fr *FormatReader) Open() error {
	if fr.state == readerOpened {
		return nil
	}
	size := fr.r.Size()
	if size <= MagicSize+HeaderSize {
		return xerrors.Errorf("%w: file too small (%d bytes)", ErrFormat, size)
	}
	if err := fr.validateMagic(size); err != nil {
		return err
	}
	if err := fr.readHeader(); err != nil {
		return err
	}
	if err := fr.readSchema(); err != nil {
		return err
	}
	if err := fr.readFooter(size); err != nil {
		return err
	}
	fr.state = readerOpened
	fr.Log.log("msg", "opened", "rowGroups", fr.rowGroupCount, "totalRows", fr.totalRowCount)
	return nil
}

func (fr *FormatReader) validateMagic(size int64) error {
	if err := fr.r.Seek(size - MagicSize); err != nil {
		return err
	}
	var got [MagicSize]byte
	if err := fr.r.Read(got[:]); err != nil {
		return xerrors.Errorf("%w: reading magic: %v", ErrFormat, err)
	}
	if got != Magic {
		return xerrors.Errorf("%w: bad magic %v", ErrFormat, got)
	}
	return nil
}

func (fr *FormatReader) readHeader() error {
	if err := fr.r.Seek(0); err != nil {
		return err
	}
	columnCount, err := fr.r.ReadUint32()
	if err != nil {
		return err
	}
	rowGroupCount, err := fr.r.ReadUint32()
	if err != nil {
		return err
	}
	totalRowCount, err := fr.r.ReadUint64()
	if err != nil {
		return err
	}
	schemaOffset, err := fr.r.ReadUint64()
	if err != nil {
		return err
	}
	footerOffset, err := fr.r.ReadUint64()
	if err != nil {
		return err
	}
	if schemaOffset != HeaderSize {
		return xerrors.Errorf("%w: schemaOffset %d != %d", ErrFormat, schemaOffset, HeaderSize)
	}
	fr.columnCount = columnCount
	fr.rowGroupCount = rowGroupCount
	fr.totalRowCount = totalRowCount
	fr.schemaOffset = schemaOffset
	fr.footerOffset = footerOffset
	return nil
}

func (fr *FormatReader) readSchema() error {
	if err := fr.r.Seek(int64(fr.schemaOffset)); err != nil {
		return err
	}
	schema := NewSchema()
	for i := uint32(0); i < fr.columnCount; i++ {
		tag, err := fr.r.ReadUint8()
		if err != nil {
			return err
		}
		typ := LogicalType(tag)
		if !typ.Valid() {
			return xerrors.Errorf("%w: unknown type tag %d", ErrFormat, tag)
		}
		if !typ.Loadable() {
			return xerrors.Errorf("%w: column %d: %s is not loadable", ErrNotImplemented, i, typ.Name())
		}
		name, err := fr.r.ReadString()
		if err != nil {
			return err
		}
		if err := schema.Add(name, typ); err != nil {
			return err
		}
	}
	fr.schema = schema
	return nil
}

func (fr *FormatReader) readFooter(size int64) error {
	schemaBytes, err := fr.r.Position()
	if err != nil {
		return err
	}
	schemaBytes -= int64(fr.schemaOffset)
	if int64(fr.footerOffset) < int64(fr.schemaOffset)+schemaBytes {
		return xerrors.Errorf("%w: footerOffset %d precedes end of schema", ErrFormat, fr.footerOffset)
	}
	trailing := size - int64(fr.footerOffset) - MagicSize
	if trailing < 0 || trailing%RowGroupMetaSize != 0 {
		return xerrors.Errorf("%w: trailing meta region of %d bytes does not divide by %d", ErrFormat, trailing, RowGroupMetaSize)
	}
	n := trailing / RowGroupMetaSize
	if err := fr.r.Seek(int64(fr.footerOffset)); err != nil {
		return err
	}
	metas := make([]RowGroupMeta, 0, n)
	for i := int64(0); i < n; i++ {
		offset, err := fr.r.ReadUint64()
		if err != nil {
			return err
		}
		rgSize, err := fr.r.ReadUint64()
		if err != nil {
			return err
		}
		rowCount, err := fr.r.ReadUint32()
		if err != nil {
			return err
		}
		metas = append(metas, RowGroupMeta{Offset: offset, Size: rgSize, RowCount: rowCount})
	}
	fr.metas = metas
	return nil
}

// GetSchema returns the file's schema. Open must have succeeded.
func (fr *FormatReader) GetSchema() *Schema { return fr.schema }

// GetRowGroupCount returns the number of row groups in the footer.
func (fr *FormatReader) GetRowGroupCount() int { return len(fr.metas) }

// GetRowGroupMeta returns the meta entry at index.
func (fr *FormatReader) GetRowGroupMeta(index int) (RowGroupMeta, error) {
	if index < 0 || index >= len(fr.metas) {
		return RowGroupMeta{}, ErrOutOfRange
	}
	return fr.metas[index], nil
}

// GetTotalRowCount returns the header's total row count.
func (fr *FormatReader) GetTotalRowCount() uint64 { return fr.totalRowCount }

// HasMore reports whether ReadBatch has further row groups to return.
func (fr *FormatReader) HasMore() bool { return fr.next < len(fr.metas) }

// ReadBatch returns the next row group's batch in write order, auto-opening
// the reader if needed. The bool return is false once every row group has
// been consumed, with a nil batch and nil error. ctx is checked before each
// row group is read, so a cancellation stops the stream between row groups
// rather than mid-decode.
func (fr *FormatReader) ReadBatch(ctx context.Context) (*Batch, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	if fr.state != readerOpened {
		if err := fr.Open(); err != nil {
			return nil, false, err
		}
	}
	if !fr.HasMore() {
		return nil, false, nil
	}
	rg, err := fr.ReadRowGroup(fr.next)
	if err != nil {
		return nil, false, err
	}
	fr.next++
	return rg.Batch, true, nil
}

// ReadRowGroup reads and decodes the row group at footer index i,
// regardless of the ReadBatch cursor. Open must have already succeeded.
func (fr *FormatReader) ReadRowGroup(i int) (*RowGroup, error) {
	if fr.state != readerOpened {
		return nil, xerrors.Errorf("%w: ReadRowGroup called before Open", ErrState)
	}
	meta, err := fr.GetRowGroupMeta(i)
	if err != nil {
		return nil, err
	}
	if err := fr.r.Seek(int64(meta.Offset)); err != nil {
		return nil, err
	}
	rowCount, err := fr.r.ReadUint32()
	if err != nil {
		return nil, err
	}
	if rowCount != meta.RowCount {
		return nil, xerrors.Errorf("%w: row group %d: payload rowCount %d != meta rowCount %d", ErrFormat, i, rowCount, meta.RowCount)
	}
	batch := NewBatch(fr.schema)
	batch.Reserve(int(rowCount))
	for _, col := range batch.Columns() {
		if err := fr.readColumn(col, int(rowCount)); err != nil {
			return nil, err
		}
	}
	return NewRowGroupWithMeta(batch, meta), nil
}

func (fr *FormatReader) readColumn(c *Column, rowCount int) error {
	switch c.typ.VariantIndex() {
	case 0:
		for i := 0; i < rowCount; i++ {
			v, err := fr.r.ReadInt16()
			if err != nil {
				return err
			}
			c.i16 = append(c.i16, v)
		}
	case 1:
		for i := 0; i < rowCount; i++ {
			v, err := fr.r.ReadInt32()
			if err != nil {
				return err
			}
			c.i32 = append(c.i32, v)
		}
	case 2:
		for i := 0; i < rowCount; i++ {
			v, err := fr.r.ReadInt64()
			if err != nil {
				return err
			}
			c.i64 = append(c.i64, v)
		}
	case 3:
		for i := 0; i < rowCount; i++ {
			v, err := fr.r.ReadUint8()
			if err != nil {
				return err
			}
			c.b = append(c.b, v != 0)
		}
	case 4:
		for i := 0; i < rowCount; i++ {
			v, err := fr.r.ReadString()
			if err != nil {
				return err
			}
			c.s = append(c.s, v)
		}
	default:
		return xerrors.Errorf("%w: column %q has unknown variant", ErrFormat, c.name)
	}
	return nil
}

// Close releases the underlying file handle.
func (fr *FormatReader) Close() error {
	return fr.r.Close()
}
