// Copyright 2024 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package iyx

import (
	"context"

	"golang.org/x/xerrors"
)

// HeaderSize is the fixed on-disk size of the file header.
const HeaderSize = 64

// Magic is the four trailing bytes identifying a .iyx file.
var Magic = [4]byte{0x49, 0x59, 0x58, 0x01}

// MagicSize is len(Magic).
const MagicSize = 4

type writerState int

const (
	writerFresh writerState = iota
	writerBegun
	writerEnded
)

// Log is the minimal logging hook shared by FormatWriter and FormatReader;
// it receives alternating key/value pairs. A nil Log is a no-op.
type Log func(keyvals ...interface{}) error

func (l Log) log(keyvals ...interface{}) {
	if l == nil {
		return
	}
	_ = l(keyvals...)
}

// FormatWriter emits the .iyx binary layout: a placeholder header, the
// schema table, a sequence of row-group payloads, a footer index of
// row-group metadata, and a trailing magic — then back-patches the header
// with final counts and the footer offset.
//
// State machine: Fresh -> Begun -> Ended. WriteRowGroup is legal only in
// Begun. A FormatWriter is not safe for concurrent use.
type FormatWriter struct {
	w     *byteWriter
	Log   Log
	state writerState

	schema        *Schema
	metas         []RowGroupMeta
	totalRowCount uint64
}

// NewFormatWriter creates (or truncates) name and returns a writer in the
// Fresh state.
func NewFormatWriter(name string) (*FormatWriter, error) {
	w, err := newByteWriter(name)
	if err != nil {
		return nil, err
	}
	return &FormatWriter{w: w}, nil
}

// Begin writes the placeholder header and the schema table, then moves to
// the Begun state. schema must be valid (§3); it is not copied — the
// caller must not mutate it afterwards.
func (fw *FormatWriter) Begin(schema *Schema) error {
	if fw.state != writerFresh {
		return xerrors.Errorf("%w: Begin called outside Fresh state", ErrState)
	}
	if !schema.Valid() {
		return xerrors.Errorf("%w: Begin: schema is not valid", ErrEmptySchema)
	}
	if err := fw.writeHeaderPlaceholder(); err != nil {
		return err
	}
	if err := fw.writeSchema(schema); err != nil {
		return err
	}
	fw.schema = schema
	fw.state = writerBegun
	fw.Log.log("msg", "begin", "columns", schema.Len())
	return nil
}

func (fw *FormatWriter) writeHeaderPlaceholder() error {
	var zero [HeaderSize]byte
	if err := fw.w.Write(zero[:]); err != nil {
		return err
	}
	return nil
}

func (fw *FormatWriter) writeSchema(schema *Schema) error {
	for i := 0; i < schema.Len(); i++ {
		col, err := schema.Column(i)
		if err != nil {
			return err
		}
		if err := fw.w.WriteUint8(uint8(col.Type)); err != nil {
			return err
		}
		if err := fw.w.WriteString(col.Name); err != nil {
			return err
		}
	}
	return nil
}

// WriteRowGroup appends rg's batch as the next row-group payload and
// records its meta for the footer. Legal only in the Begun state. rg.Meta
// is overwritten with the actual offset, size, and row count observed
// during emission. ctx is checked before the row group is written, so a
// cancellation takes effect between row groups rather than mid-write.
func (fw *FormatWriter) WriteRowGroup(ctx context.Context, rg *RowGroup) error {
	if fw.state != writerBegun {
		return xerrors.Errorf("%w: WriteRowGroup called outside Begun state", ErrState)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	start, err := fw.w.Position()
	if err != nil {
		return err
	}
	rowCount := rg.Batch.RowCount()
	if err := fw.w.WriteUint32(uint32(rowCount)); err != nil {
		return err
	}
	for _, col := range rg.Batch.Columns() {
		if err := fw.writeColumn(col); err != nil {
			return err
		}
	}
	end, err := fw.w.Position()
	if err != nil {
		return err
	}
	meta := RowGroupMeta{
		Offset:   uint64(start),
		Size:     uint64(end - start),
		RowCount: uint32(rowCount),
	}
	rg.Meta = meta
	fw.metas = append(fw.metas, meta)
	fw.totalRowCount += uint64(rowCount)
	fw.Log.log("msg", "row group written", "rows", rowCount, "offset", start, "size", meta.Size)
	return nil
}

func (fw *FormatWriter) writeColumn(c *Column) error {
	n := c.Len()
	switch c.typ.VariantIndex() {
	case 0:
		for i := 0; i < n; i++ {
			if err := fw.w.WriteInt16(c.i16[i]); err != nil {
				return err
			}
		}
	case 1:
		for i := 0; i < n; i++ {
			if err := fw.w.WriteInt32(c.i32[i]); err != nil {
				return err
			}
		}
	case 2:
		for i := 0; i < n; i++ {
			if err := fw.w.WriteInt64(c.i64[i]); err != nil {
				return err
			}
		}
	case 3:
		for i := 0; i < n; i++ {
			v := uint8(0)
			if c.b[i] {
				v = 1
			}
			if err := fw.w.WriteUint8(v); err != nil {
				return err
			}
		}
	case 4:
		for i := 0; i < n; i++ {
			if err := fw.w.WriteString(c.s[i]); err != nil {
				return err
			}
		}
	default:
		return xerrors.Errorf("%w: column %q has unknown variant", ErrFormat, c.name)
	}
	return nil
}

// End writes the footer meta array and magic, back-patches the header, and
// moves to the Ended state. Calling End more than once, or before Begin,
// fails with ErrState.
func (fw *FormatWriter) End() error {
	if fw.state != writerBegun {
		return xerrors.Errorf("%w: End called outside Begun state", ErrState)
	}
	footerOffset, err := fw.w.Position()
	if err != nil {
		return err
	}
	for _, m := range fw.metas {
		if err := fw.w.WriteUint64(m.Offset); err != nil {
			return err
		}
		if err := fw.w.WriteUint64(m.Size); err != nil {
			return err
		}
		if err := fw.w.WriteUint32(m.RowCount); err != nil {
			return err
		}
	}
	if err := fw.w.Write(Magic[:]); err != nil {
		return err
	}
	end, err := fw.w.Position()
	if err != nil {
		return err
	}
	if err := fw.finalizeHeader(footerOffset); err != nil {
		return err
	}
	if err := fw.w.Seek(end); err != nil {
		return err
	}
	if err := fw.w.Flush(); err != nil {
		return err
	}
	fw.state = writerEnded
	fw.Log.log("msg", "end", "rowGroups", len(fw.metas), "totalRows", fw.totalRowCount)
	return nil
}

func (fw *FormatWriter) finalizeHeader(footerOffset int64) error {
	if err := fw.w.Seek(0); err != nil {
		return err
	}
	if err := fw.w.WriteUint32(uint32(fw.schema.Len())); err != nil {
		return err
	}
	if err := fw.w.WriteUint32(uint32(len(fw.metas))); err != nil {
		return err
	}
	if err := fw.w.Seek(8); err != nil {
		return err
	}
	if err := fw.w.WriteUint64(fw.totalRowCount); err != nil {
		return err
	}
	if err := fw.w.WriteUint64(HeaderSize); err != nil {
		return err
	}
	if err := fw.w.Seek(24); err != nil {
		return err
	}
	if err := fw.w.WriteUint64(uint64(footerOffset)); err != nil {
		return err
	}
	return nil
}

// Close releases the underlying file handle. If the writer is still in the
// Begun state, Close attempts End() first, swallowing any error from it —
// mirroring the resource-release convention of the format being destroyed
// mid-stream.
func (fw *FormatWriter) Close() error {
	if fw.state == writerBegun {
		_ = fw.End()
	}
	return fw.w.Close()
}
