// Copyright 2024 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

// Command csv2iyx converts a CSV schema file and a CSV data file into a
// single .iyx binary column file.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/google/renameio/v2"

	"github.com/UNO-SOFT/iyx"
	"github.com/UNO-SOFT/iyx/internal/rowcsv"
	"github.com/UNO-SOFT/iyx/internal/schemafile"
)

func main() {
	if err := Main(); err != nil {
		log.Fatal(err)
	}
}

func Main() error {
	flagDelim := flag.String("delim", "", "CSV field delimiter (auto-detected when empty)")
	flagCharset := flag.String("charset", "", "CSV charset (no charset decoding when empty)")
	flagSkip := flag.Int("skip", 0, "number of leading data rows to skip (e.g. a header)")
	flagVerbose := flag.Bool("v", false, "verbose logging")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] <schema.csv> <data.csv> <output.iyx>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 3 {
		flag.Usage()
		return fmt.Errorf("expected 3 positional arguments, got %d", flag.NArg())
	}
	var Log iyx.Log
	if *flagVerbose {
		Log = func(keyvals ...interface{}) error {
			log.Println(keyvals...)
			return nil
		}
	}

	ctx, cancel := iyx.Wrap(context.Background())
	defer cancel()

	schemaName, dataName, outName := flag.Arg(0), flag.Arg(1), flag.Arg(2)

	schema, err := schemafile.ReadFile(schemaName)
	if err != nil {
		return fmt.Errorf("read schema %s: %w", schemaName, err)
	}

	in, err := rowcsv.Open(dataName, *flagCharset)
	if err != nil {
		return fmt.Errorf("open %s: %w", dataName, err)
	}
	defer in.Close()

	tmp, err := renameio.TempFile("", outName)
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", outName, err)
	}
	defer tmp.Cleanup()

	fw, err := iyx.NewFormatWriter(tmp.Name())
	if err != nil {
		return err
	}
	fw.Log = Log
	if err := fw.Begin(schema); err != nil {
		fw.Close()
		return err
	}

	batch := iyx.NewBatch(schema)
	var written uint64
	flush := func() error {
		if batch.IsEmpty() {
			return nil
		}
		if err := fw.WriteRowGroup(ctx, iyx.NewRowGroup(batch)); err != nil {
			return err
		}
		written += uint64(batch.RowCount())
		batch.Clear()
		return nil
	}

	err = rowcsv.ReadRows(ctx, in, *flagDelim, *flagSkip, func(row rowcsv.Row) error {
		ok, err := batch.AppendRow(row.Values)
		if err != nil {
			return fmt.Errorf("line %d: %w", row.Line, err)
		}
		if ok {
			if !batch.IsFull() {
				return nil
			}
			return flush()
		}
		if err := flush(); err != nil {
			return err
		}
		ok, err = batch.AppendRow(row.Values)
		if err != nil {
			return fmt.Errorf("line %d: %w", row.Line, err)
		}
		if !ok {
			return fmt.Errorf("line %d: row rejected by empty batch", row.Line)
		}
		return nil
	})
	if err == nil {
		err = flush()
	}
	if err != nil {
		fw.Close()
		return err
	}
	if err := fw.End(); err != nil {
		fw.Close()
		return err
	}
	if err := fw.Close(); err != nil {
		return err
	}
	if err := tmp.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("replace %s: %w", outName, err)
	}
	if Log != nil {
		Log("msg", "wrote", "rows", written, "file", outName)
	}
	return nil
}
