// Copyright 2024 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package iyx_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/UNO-SOFT/iyx"
)

func writeFile(t *testing.T, schema *iyx.Schema, rows [][]string) string {
	t.Helper()
	name := filepath.Join(t.TempDir(), "test.iyx")
	fw, err := iyx.NewFormatWriter(name)
	if err != nil {
		t.Fatal(err)
	}
	if err := fw.Begin(schema); err != nil {
		t.Fatal(err)
	}
	batch := iyx.NewBatch(schema)
	for _, row := range rows {
		ok, err := batch.AppendRow(row)
		if err != nil {
			t.Fatal(err)
		}
		if !ok {
			if err := fw.WriteRowGroup(context.Background(), iyx.NewRowGroup(batch)); err != nil {
				t.Fatal(err)
			}
			batch.Clear()
			if ok, err = batch.AppendRow(row); err != nil || !ok {
				t.Fatalf("append after flush: ok=%v err=%v", ok, err)
			}
		}
	}
	if !batch.IsEmpty() {
		if err := fw.WriteRowGroup(context.Background(), iyx.NewRowGroup(batch)); err != nil {
			t.Fatal(err)
		}
	}
	if err := fw.End(); err != nil {
		t.Fatal(err)
	}
	if err := fw.Close(); err != nil {
		t.Fatal(err)
	}
	return name
}

func readAllRows(t *testing.T, name string) (*iyx.Schema, [][]string, *iyx.FormatReader) {
	t.Helper()
	fr, err := iyx.NewFormatReader(name)
	if err != nil {
		t.Fatal(err)
	}
	if err := fr.Open(); err != nil {
		t.Fatal(err)
	}
	schema := fr.GetSchema()
	var out [][]string
	for {
		batch, ok, err := fr.ReadBatch(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if !ok {
			break
		}
		for row := 0; row < batch.RowCount(); row++ {
			rec := make([]string, batch.ColumnCount())
			for i := 0; i < batch.ColumnCount(); i++ {
				col, err := batch.Column(i)
				if err != nil {
					t.Fatal(err)
				}
				v, err := col.ValueAsString(row)
				if err != nil {
					t.Fatal(err)
				}
				rec[i] = v
			}
			out = append(out, rec)
		}
	}
	return schema, out, fr
}

const modulus = 1_000_000_007

func intProduct(rows [][]string) int64 {
	product := int64(1)
	for _, row := range rows {
		for _, v := range row {
			if n, err := strconv.ParseInt(v, 10, 64); err == nil {
				product = (product * (n % modulus)) % modulus
			}
		}
	}
	return product
}

// TestThreeColumnMixed is end-to-end scenario 1.
func TestThreeColumnMixed(t *testing.T) {
	schema := iyx.NewSchema()
	for _, c := range []struct {
		name string
		typ  iyx.LogicalType
	}{{"id", iyx.INT32}, {"score", iyx.INT64}, {"name", iyx.STRING}} {
		if err := schema.Add(c.name, c.typ); err != nil {
			t.Fatal(err)
		}
	}
	rows := [][]string{
		{"1", "100", "Alice"},
		{"2", "200", "Bob"},
		{"3", "300", "Charlie"},
		{"4", "400", "Diana"},
		{"5", "500", "Eve"},
	}
	if got := intProduct(rows); got != 998992007 {
		t.Fatalf("sanity check: product before write = %d, want 998992007", got)
	}

	name := writeFile(t, schema, rows)
	_, got, fr := readAllRows(t, name)
	defer fr.Close()

	if fr.GetTotalRowCount() != 5 {
		t.Errorf("GetTotalRowCount() = %d, want 5", fr.GetTotalRowCount())
	}
	if fr.GetRowGroupCount() != 1 {
		t.Errorf("GetRowGroupCount() = %d, want 1", fr.GetRowGroupCount())
	}
	if diff := cmp.Diff(rows, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
	if p := intProduct(got); p != 998992007 {
		t.Errorf("product after read = %d, want 998992007", p)
	}
}

// TestMultipleRowGroups is end-to-end scenario 2.
func TestMultipleRowGroups(t *testing.T) {
	schema := iyx.NewSchema()
	if err := schema.Add("id", iyx.INT64); err != nil {
		t.Fatal(err)
	}
	if err := schema.Add("value", iyx.INT64); err != nil {
		t.Fatal(err)
	}
	var rows [][]string
	for i := 1; i <= 5000; i++ {
		rows = append(rows, []string{strconv.Itoa(i), strconv.Itoa(2 * i)})
	}
	wantProduct := intProduct(rows)

	name := writeFile(t, schema, rows)
	_, got, fr := readAllRows(t, name)
	defer fr.Close()

	if fr.GetRowGroupCount() < 3 {
		t.Errorf("GetRowGroupCount() = %d, want >= 3", fr.GetRowGroupCount())
	}
	var sum uint64
	for i := 0; i < fr.GetRowGroupCount(); i++ {
		meta, err := fr.GetRowGroupMeta(i)
		if err != nil {
			t.Fatal(err)
		}
		sum += uint64(meta.RowCount)
	}
	if sum != 5000 {
		t.Errorf("sum(meta[i].rowCount) = %d, want 5000", sum)
	}
	if len(got) != 5000 {
		t.Fatalf("read back %d rows, want 5000", len(got))
	}
	if p := intProduct(got); p != wantProduct {
		t.Errorf("product after read = %d, want %d", p, wantProduct)
	}
}

// TestCSVQuotingRoundTrip is end-to-end scenario 3, exercised as a STRING
// value written to and read back from an .iyx file; the CSV text quoting
// itself belongs to the CSV collaborator and is tested there.
func TestCSVQuotingRoundTrip(t *testing.T) {
	schema := iyx.NewSchema()
	if err := schema.Add("s", iyx.STRING); err != nil {
		t.Fatal(err)
	}
	value := "a,\"quoted\"\nb"
	name := writeFile(t, schema, [][]string{{value}})
	_, got, fr := readAllRows(t, name)
	defer fr.Close()
	if len(got) != 1 || got[0][0] != value {
		t.Fatalf("round trip = %v, want [[%q]]", got, value)
	}
}

// TestTruncatedMagic is end-to-end scenario 6.
func TestTruncatedMagic(t *testing.T) {
	schema := iyx.NewSchema()
	if err := schema.Add("id", iyx.INT32); err != nil {
		t.Fatal(err)
	}
	name := writeFile(t, schema, [][]string{{"1"}})

	fi, err := os.Stat(name)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Truncate(name, fi.Size()-1); err != nil {
		t.Fatal(err)
	}

	fr, err := iyx.NewFormatReader(name)
	if err != nil {
		t.Fatal(err)
	}
	defer fr.Close()
	err = fr.Open()
	if !errors.Is(err, iyx.ErrFormat) {
		t.Fatalf("Open() error = %v, want ErrFormat", err)
	}
}

// TestInt128RejectedOnOpen: INT128 is a valid type tag the writer will
// happily serialize, but the reader refuses to load a schema naming it.
func TestInt128RejectedOnOpen(t *testing.T) {
	schema := iyx.NewSchema()
	if err := schema.Add("id", iyx.INT128); err != nil {
		t.Fatal(err)
	}
	name := writeFile(t, schema, nil)

	fr, err := iyx.NewFormatReader(name)
	if err != nil {
		t.Fatal(err)
	}
	defer fr.Close()
	if err := fr.Open(); !errors.Is(err, iyx.ErrNotImplemented) {
		t.Fatalf("Open() error = %v, want ErrNotImplemented", err)
	}
}

func TestEmptyFile(t *testing.T) {
	schema := iyx.NewSchema()
	if err := schema.Add("id", iyx.INT32); err != nil {
		t.Fatal(err)
	}
	name := writeFile(t, schema, nil)
	_, got, fr := readAllRows(t, name)
	defer fr.Close()
	if len(got) != 0 {
		t.Fatalf("got %d rows, want 0", len(got))
	}
	if fr.GetRowGroupCount() != 0 || fr.GetTotalRowCount() != 0 {
		t.Fatalf("GetRowGroupCount/GetTotalRowCount = %d/%d, want 0/0", fr.GetRowGroupCount(), fr.GetTotalRowCount())
	}
}

func TestWriterStateMachine(t *testing.T) {
	schema := iyx.NewSchema()
	if err := schema.Add("id", iyx.INT32); err != nil {
		t.Fatal(err)
	}
	name := filepath.Join(t.TempDir(), "state.iyx")
	fw, err := iyx.NewFormatWriter(name)
	if err != nil {
		t.Fatal(err)
	}
	defer fw.Close()

	batch := iyx.NewBatch(schema)
	if err := fw.WriteRowGroup(context.Background(), iyx.NewRowGroup(batch)); !errors.Is(err, iyx.ErrState) {
		t.Fatalf("WriteRowGroup before Begin: error = %v, want ErrState", err)
	}
	if err := fw.Begin(schema); err != nil {
		t.Fatal(err)
	}
	if err := fw.Begin(schema); !errors.Is(err, iyx.ErrState) {
		t.Fatalf("double Begin: error = %v, want ErrState", err)
	}
	if err := fw.End(); err != nil {
		t.Fatal(err)
	}
	if err := fw.End(); !errors.Is(err, iyx.ErrState) {
		t.Fatalf("double End: error = %v, want ErrState", err)
	}
}

func TestFooterOffsetAndMagicInvariants(t *testing.T) {
	schema := iyx.NewSchema()
	if err := schema.Add("id", iyx.INT32); err != nil {
		t.Fatal(err)
	}
	name := writeFile(t, schema, [][]string{{"1"}, {"2"}, {"3"}})

	data, err := os.ReadFile(name)
	if err != nil {
		t.Fatal(err)
	}
	if !cmp.Equal(data[len(data)-4:], []byte{0x49, 0x59, 0x58, 0x01}) {
		t.Fatalf("trailing 4 bytes = %v, want IYX magic", data[len(data)-4:])
	}

	fr, err := iyx.NewFormatReader(name)
	if err != nil {
		t.Fatal(err)
	}
	defer fr.Close()
	if err := fr.Open(); err != nil {
		t.Fatal(err)
	}
	if fr.GetRowGroupCount() != 1 {
		t.Fatalf("GetRowGroupCount() = %d, want 1", fr.GetRowGroupCount())
	}
	meta, err := fr.GetRowGroupMeta(0)
	if err != nil {
		t.Fatal(err)
	}
	wantOffset := uint64(iyx.HeaderSize) + uint64(1 /*tag*/ +4 /*len*/ +2 /*"id"*/)
	if meta.Offset != wantOffset {
		t.Errorf("meta[0].Offset = %d, want %d", meta.Offset, wantOffset)
	}
	if meta.Size == 0 {
		t.Error("meta[0].Size should be non-zero")
	}
}
