// Copyright 2024 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

// Package rowcsv is the textual row parser/formatter collaborator: it turns
// CSV records into the []string rows Batch.AppendRow expects, and turns a
// decoded Batch's rows back into CSV text. It never sees the .iyx binary
// layout.
package rowcsv

import (
	"bufio"
	"context"
	"encoding/csv"
	"io"
	"log"
	"os"
	"strings"
	"unicode"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
	"golang.org/x/xerrors"

	"github.com/UNO-SOFT/iyx"
)

// DefaultEncoding is the charset named by the LANG environment variable,
// or encoding.Replacement when LANG names none. Open does not apply it: with
// an empty charset argument Open performs no charset decoding.
var DefaultEncoding = encoding.Replacement

func init() {
	encName := os.Getenv("LANG")
	if i := strings.IndexByte(encName, '.'); i >= 0 {
		if enc, err := htmlindex.Get(encName[i+1:]); err == nil {
			DefaultEncoding = enc
		}
	}
}

// Row is one parsed CSV record together with its 1-based record number
// (skipped records included; a quoted field spanning lines counts once).
type Row struct {
	Line   int
	Values []string
}

// Open returns a decoding reader for name, transparently wrapping it with
// gzip or zstd decompression when the extension asks for it, and applying
// charset decoding when charset is non-empty. "-" means standard input.
// The returned closer must be closed by the caller once done.
func Open(name, charset string) (io.ReadCloser, error) {
	var f io.ReadCloser
	if name == "" || name == "-" {
		f = io.NopCloser(os.Stdin)
	} else {
		fh, err := os.Open(name)
		if err != nil {
			return nil, xerrors.Errorf("%w: open %s: %v", iyx.ErrIO, name, err)
		}
		f = fh
	}
	var r io.Reader = f
	switch {
	case strings.HasSuffix(name, ".gz"):
		gr, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, xerrors.Errorf("%w: gzip %s: %v", iyx.ErrIO, name, err)
		}
		r = gr
	case strings.HasSuffix(name, ".zst"):
		zr, err := zstd.NewReader(f)
		if err != nil {
			f.Close()
			return nil, xerrors.Errorf("%w: zstd %s: %v", iyx.ErrIO, name, err)
		}
		r = zr.IOReadCloser()
	}
	if charset != "" {
		enc, err := htmlindex.Get(charset)
		if err != nil {
			f.Close()
			return nil, xerrors.Errorf("%w: unknown charset %q: %v", iyx.ErrIO, charset, err)
		}
		r = transform.NewReader(r, enc.NewDecoder())
	}
	if rc, ok := r.(io.ReadCloser); ok {
		return rc, nil
	}
	return struct {
		io.Reader
		io.Closer
	}{r, f}, nil
}

// Create creates (or truncates) name, transparently wrapping it with gzip or
// zstd compression when the extension asks for it (".csv.gz", ".csv.zst").
// The returned closer's Close flushes any compression trailer before
// closing the underlying file; it must always be called.
func Create(name string) (io.WriteCloser, error) {
	f, err := os.Create(name)
	if err != nil {
		return nil, xerrors.Errorf("%w: create %s: %v", iyx.ErrIO, name, err)
	}
	switch {
	case strings.HasSuffix(name, ".gz"):
		return &compressedWriteCloser{WriteCloser: gzip.NewWriter(f), f: f}, nil
	case strings.HasSuffix(name, ".zst"):
		zw, err := zstd.NewWriter(f)
		if err != nil {
			f.Close()
			return nil, xerrors.Errorf("%w: zstd %s: %v", iyx.ErrIO, name, err)
		}
		return &compressedWriteCloser{WriteCloser: zw, f: f}, nil
	}
	return f, nil
}

// compressedWriteCloser closes the compression layer (flushing its
// trailer) before closing the backing file.
type compressedWriteCloser struct {
	io.WriteCloser
	f *os.File
}

func (c *compressedWriteCloser) Close() error {
	if err := c.WriteCloser.Close(); err != nil {
		c.f.Close()
		return xerrors.Errorf("%w: %v", iyx.ErrIO, err)
	}
	if err := c.f.Close(); err != nil {
		return xerrors.Errorf("%w: %v", iyx.ErrIO, err)
	}
	return nil
}

// ReadRows decodes CSV records from r and calls fn for each, in order,
// honoring ctx cancellation between records. When delim is empty, the
// delimiter is sniffed from the first 1024 bytes by picking the first
// non-alphanumeric, non-quote rune (a leading space is passed over when other
// candidates exist; "," when there is none). skip is the number of
// leading records (e.g. a header) dropped before fn is called.
func ReadRows(ctx context.Context, r io.Reader, delim string, skip int, fn func(Row) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	br := bufio.NewReader(r)
	if delim == "" {
		d, err := sniffDelim(br)
		if err != nil {
			return err
		}
		delim = d
	}
	cr := csv.NewReader(br)
	cr.Comma = []rune(delim)[0]
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	n := 0
	for {
		record, err := cr.Read()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return xerrors.Errorf("%w: %v", iyx.ErrParse, err)
		}
		n++
		if n <= skip {
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := fn(Row{Line: n, Values: record}); err != nil {
			return err
		}
	}
}

func sniffDelim(br *bufio.Reader) (string, error) {
	b, err := br.Peek(1024)
	if err != nil && len(b) == 0 {
		return "", err
	}
	seen := make(map[rune]struct{})
	candidates := make([]rune, 0, 4)
	for _, r := range string(b) {
		if r == '"' || unicode.IsDigit(r) || unicode.IsLetter(r) {
			continue
		}
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		candidates = append(candidates, r)
	}
	for len(candidates) > 1 && candidates[0] == ' ' {
		candidates = candidates[1:]
	}
	if len(candidates) == 0 {
		return ",", nil
	}
	log.Printf("non-alphanumeric characters are %q, so delim is %q", candidates, candidates[0])
	return string(candidates[:1]), nil
}

// WriteRows renders batch through the schema's column order, row by row, as
// a standard-escaped CSV, writing a header line first when header is true.
func WriteRows(w io.Writer, schema *iyx.Schema, batch *iyx.Batch, header bool) error {
	cw := csv.NewWriter(w)
	if header {
		names := make([]string, schema.Len())
		for i, c := range schema.Columns() {
			names[i] = c.Name
		}
		if err := cw.Write(names); err != nil {
			return xerrors.Errorf("%w: %v", iyx.ErrIO, err)
		}
	}
	record := make([]string, batch.ColumnCount())
	for row := 0; row < batch.RowCount(); row++ {
		for i := 0; i < batch.ColumnCount(); i++ {
			col, err := batch.Column(i)
			if err != nil {
				return err
			}
			v, err := col.ValueAsString(row)
			if err != nil {
				return err
			}
			record[i] = v
		}
		if err := cw.Write(record); err != nil {
			return xerrors.Errorf("%w: %v", iyx.ErrIO, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return xerrors.Errorf("%w: %v", iyx.ErrIO, err)
	}
	return nil
}
