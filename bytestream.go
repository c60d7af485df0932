// Copyright 2024 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package iyx

import (
	"encoding/binary"
	"io"
	"os"

	"golang.org/x/xerrors"
)

// byteWriter is the seekable little-endian write primitive the format
// writer builds on: raw bytes, length-prefixed strings, position, seek,
// flush.
type byteWriter struct {
	f *os.File
}

func newByteWriter(name string) (*byteWriter, error) {
	f, err := os.Create(name)
	if err != nil {
		return nil, xerrors.Errorf("%w: create %s: %v", ErrIO, name, err)
	}
	return &byteWriter{f: f}, nil
}

func (w *byteWriter) Write(p []byte) error {
	if _, err := w.f.Write(p); err != nil {
		return xerrors.Errorf("%w: write: %v", ErrIO, err)
	}
	return nil
}

func (w *byteWriter) WriteUint8(v uint8) error  { return w.Write([]byte{v}) }
func (w *byteWriter) WriteInt16(v int16) error  { return w.writeFixed(uint16(v)) }
func (w *byteWriter) WriteInt32(v int32) error  { return w.writeFixed(uint32(v)) }
func (w *byteWriter) WriteInt64(v int64) error  { return w.writeFixed(uint64(v)) }
func (w *byteWriter) WriteUint32(v uint32) error { return w.writeFixed(v) }
func (w *byteWriter) WriteUint64(v uint64) error { return w.writeFixed(v) }

func (w *byteWriter) writeFixed(v any) error {
	if err := binary.Write(w.f, binary.LittleEndian, v); err != nil {
		return xerrors.Errorf("%w: write: %v", ErrIO, err)
	}
	return nil
}

// WriteString emits a u32 little-endian length followed by the raw bytes.
// A zero-length string emits no body.
func (w *byteWriter) WriteString(s string) error {
	if err := w.WriteUint32(uint32(len(s))); err != nil {
		return err
	}
	if len(s) == 0 {
		return nil
	}
	return w.Write([]byte(s))
}

func (w *byteWriter) Position() (int64, error) {
	pos, err := w.f.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, xerrors.Errorf("%w: position: %v", ErrIO, err)
	}
	return pos, nil
}

func (w *byteWriter) Seek(abs int64) error {
	if _, err := w.f.Seek(abs, io.SeekStart); err != nil {
		return xerrors.Errorf("%w: seek %d: %v", ErrIO, abs, err)
	}
	return nil
}

func (w *byteWriter) Flush() error {
	if err := w.f.Sync(); err != nil {
		return xerrors.Errorf("%w: flush: %v", ErrIO, err)
	}
	return nil
}

func (w *byteWriter) Close() error {
	return w.f.Close()
}

// byteReader is the seekable little-endian read primitive the format
// reader builds on.
type byteReader struct {
	f    *os.File
	size int64
}

func newByteReader(name string) (*byteReader, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, xerrors.Errorf("%w: open %s: %v", ErrIO, name, err)
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, xerrors.Errorf("%w: stat %s: %v", ErrIO, name, err)
	}
	return &byteReader{f: f, size: fi.Size()}, nil
}

// Read reads exactly len(p) bytes, failing with ErrFormat on a short read.
// The underlying io error appears in the message only; it is not wrapped.
func (r *byteReader) Read(p []byte) error {
	if _, err := io.ReadFull(r.f, p); err != nil {
		return xerrors.Errorf("%w: truncated read: %v", ErrFormat, err)
	}
	return nil
}

func (r *byteReader) ReadUint8() (uint8, error) {
	var b [1]byte
	if err := r.Read(b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *byteReader) ReadInt16() (int16, error) {
	var v uint16
	err := r.readFixed(&v)
	return int16(v), err
}

func (r *byteReader) ReadInt32() (int32, error) {
	var v uint32
	err := r.readFixed(&v)
	return int32(v), err
}

func (r *byteReader) ReadInt64() (int64, error) {
	var v uint64
	err := r.readFixed(&v)
	return int64(v), err
}

func (r *byteReader) ReadUint32() (uint32, error) {
	var v uint32
	err := r.readFixed(&v)
	return v, err
}

func (r *byteReader) ReadUint64() (uint64, error) {
	var v uint64
	err := r.readFixed(&v)
	return v, err
}

func (r *byteReader) readFixed(v any) error {
	if err := binary.Read(r.f, binary.LittleEndian, v); err != nil {
		return xerrors.Errorf("%w: truncated read: %v", ErrFormat, err)
	}
	return nil
}

// ReadString reads a u32 length-prefixed byte sequence. The bytes are
// returned unchanged; STRING values are not required to be valid UTF-8.
func (r *byteReader) ReadString() (string, error) {
	n, err := r.ReadUint32()
	if err != nil {
		return "", err
	}
	if n == 0 {
		return "", nil
	}
	buf := make([]byte, n)
	if err := r.Read(buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func (r *byteReader) Position() (int64, error) {
	pos, err := r.f.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, xerrors.Errorf("%w: position: %v", ErrIO, err)
	}
	return pos, nil
}

func (r *byteReader) Seek(abs int64) error {
	if _, err := r.f.Seek(abs, io.SeekStart); err != nil {
		return xerrors.Errorf("%w: seek %d: %v", ErrIO, abs, err)
	}
	return nil
}

func (r *byteReader) Size() int64 { return r.size }

func (r *byteReader) Close() error {
	return r.f.Close()
}
