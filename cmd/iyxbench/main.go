// Copyright 2024 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

// Command iyxbench exercises the .iyx writer and reader by running N
// concurrent independent write-then-read round trips, each against its own
// file, and checking row counts and a checksum invariant on the result.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/UNO-SOFT/iyx"
)

func main() {
	if err := Main(); err != nil {
		log.Fatal(err)
	}
}

func Main() error {
	flagN := flag.Int("n", 4, "number of concurrent round trips")
	flagRows := flag.Int("rows", 5000, "rows per round trip")
	flagDir := flag.String("dir", "", "directory for scratch .iyx files (defaults to os.TempDir())")
	flag.Parse()

	ctx, cancel := iyx.Wrap(context.Background())
	defer cancel()

	dir := *flagDir
	if dir == "" {
		dir = os.TempDir()
	}

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < *flagN; i++ {
		i := i
		g.Go(func() error {
			name := filepath.Join(dir, fmt.Sprintf("iyxbench-%d.iyx", i))
			defer os.Remove(name)
			return roundTrip(ctx, name, *flagRows)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	log.Printf("%d round trips of %d rows each: OK", *flagN, *flagRows)
	return nil
}

const modulus = 1_000_000_007

// roundTrip writes rows rows of schema (id:int64, value:int64) with
// value = 2*id, then reads the file back and checks that the row count and
// the product of all int fields modulo 1e9+7 survive the round trip.
func roundTrip(ctx context.Context, name string, rows int) error {
	schema := iyx.NewSchema()
	if err := schema.Add("id", iyx.INT64); err != nil {
		return err
	}
	if err := schema.Add("value", iyx.INT64); err != nil {
		return err
	}

	wantProduct := int64(1)
	fw, err := iyx.NewFormatWriter(name)
	if err != nil {
		return err
	}
	if err := fw.Begin(schema); err != nil {
		fw.Close()
		return err
	}
	batch := iyx.NewBatch(schema)
	for i := 1; i <= rows; i++ {
		if err := ctx.Err(); err != nil {
			fw.Close()
			return err
		}
		id := int64(i)
		value := 2 * id
		wantProduct = (wantProduct * (id % modulus)) % modulus
		wantProduct = (wantProduct * (value % modulus)) % modulus
		ok, err := batch.AppendRow([]string{fmt.Sprint(id), fmt.Sprint(value)})
		if err != nil {
			fw.Close()
			return err
		}
		if !ok {
			if err := fw.WriteRowGroup(ctx, iyx.NewRowGroup(batch)); err != nil {
				fw.Close()
				return err
			}
			batch.Clear()
			if ok, err = batch.AppendRow([]string{fmt.Sprint(id), fmt.Sprint(value)}); err != nil || !ok {
				fw.Close()
				return fmt.Errorf("row rejected after flush: ok=%v err=%w", ok, err)
			}
		}
	}
	if !batch.IsEmpty() {
		if err := fw.WriteRowGroup(ctx, iyx.NewRowGroup(batch)); err != nil {
			fw.Close()
			return err
		}
	}
	if err := fw.End(); err != nil {
		fw.Close()
		return err
	}
	if err := fw.Close(); err != nil {
		return err
	}

	fr, err := iyx.NewFormatReader(name)
	if err != nil {
		return err
	}
	defer fr.Close()
	if err := fr.Open(); err != nil {
		return err
	}
	if got := fr.GetTotalRowCount(); got != uint64(rows) {
		return fmt.Errorf("%s: total row count %d, want %d", name, got, rows)
	}

	gotProduct := int64(1)
	var seen uint64
	for {
		batch, ok, err := fr.ReadBatch(ctx)
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		idCol, err := batch.Column(0)
		if err != nil {
			return err
		}
		valueCol, err := batch.Column(1)
		if err != nil {
			return err
		}
		for row := 0; row < batch.RowCount(); row++ {
			idStr, err := idCol.ValueAsString(row)
			if err != nil {
				return err
			}
			valueStr, err := valueCol.ValueAsString(row)
			if err != nil {
				return err
			}
			var id, value int64
			if _, err := fmt.Sscan(idStr, &id); err != nil {
				return err
			}
			if _, err := fmt.Sscan(valueStr, &value); err != nil {
				return err
			}
			gotProduct = (gotProduct * (id % modulus)) % modulus
			gotProduct = (gotProduct * (value % modulus)) % modulus
		}
		seen += uint64(batch.RowCount())
	}
	if seen != uint64(rows) {
		return fmt.Errorf("%s: read back %d rows, want %d", name, seen, rows)
	}
	if gotProduct != wantProduct {
		return fmt.Errorf("%s: checksum mismatch: got %d want %d", name, gotProduct, wantProduct)
	}
	return nil
}
