// Copyright 2024 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

// Command iyx2csv extracts a .iyx binary column file back into a CSV schema
// file and a CSV data file.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

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
	flagHeader := flag.Bool("header", false, "write a CSV header line into the data file")
	flagVerbose := flag.Bool("v", false, "verbose logging")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] <input.iyx> <data.csv> <schema.csv>\n", os.Args[0])
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

	inName, dataName, schemaName := flag.Arg(0), flag.Arg(1), flag.Arg(2)

	fr, err := iyx.NewFormatReader(inName)
	if err != nil {
		return err
	}
	defer fr.Close()
	fr.Log = Log
	if err := fr.Open(); err != nil {
		return fmt.Errorf("open %s: %w", inName, err)
	}

	if err := schemafile.WriteFile(schemaName, fr.GetSchema()); err != nil {
		return fmt.Errorf("write schema %s: %w", schemaName, err)
	}

	out, err := rowcsv.Create(dataName)
	if err != nil {
		return fmt.Errorf("create %s: %w", dataName, err)
	}
	defer out.Close()

	header := *flagHeader
	var rows uint64
	for {
		batch, ok, err := fr.ReadBatch(ctx)
		if err != nil {
			return fmt.Errorf("read %s: %w", inName, err)
		}
		if !ok {
			break
		}
		if err := rowcsv.WriteRows(out, fr.GetSchema(), batch, header); err != nil {
			return err
		}
		header = false
		rows += uint64(batch.RowCount())
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close %s: %w", dataName, err)
	}
	if Log != nil {
		Log("msg", "extracted", "rows", rows, "rowGroups", fr.GetRowGroupCount())
	}
	return nil
}
