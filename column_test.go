// Copyright 2024 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package iyx_test

import (
	"errors"
	"testing"

	"github.com/UNO-SOFT/iyx"
)

func TestColumnAppendAndStringify(t *testing.T) {
	c := iyx.NewColumn("n", iyx.INT32)
	for _, s := range []string{"1", "-2", " 3 "} {
		if err := c.AppendFromString(s); err != nil {
			t.Fatalf("AppendFromString(%q): %v", s, err)
		}
	}
	if c.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", c.Len())
	}
	got, err := c.ValueAsString(2)
	if err != nil {
		t.Fatal(err)
	}
	if got != "3" {
		t.Errorf("ValueAsString(2) = %q, want %q", got, "3")
	}
}

func TestColumnBoolCaseInsensitive(t *testing.T) {
	c := iyx.NewColumn("b", iyx.BOOL)
	for _, s := range []string{"true", "FALSE", "True", " false "} {
		if err := c.AppendFromString(s); err != nil {
			t.Fatalf("AppendFromString(%q): %v", s, err)
		}
	}
	want := []string{"true", "false", "true", "false"}
	for i, w := range want {
		got, err := c.ValueAsString(i)
		if err != nil {
			t.Fatal(err)
		}
		if got != w {
			t.Errorf("row %d = %q, want %q", i, got, w)
		}
	}
}

func TestColumnParseErrorWraps(t *testing.T) {
	c := iyx.NewColumn("n", iyx.INT16)
	err := c.AppendFromString("not a number")
	if !errors.Is(err, iyx.ErrParse) {
		t.Fatalf("error = %v, want wrapping ErrParse", err)
	}
	var pe *iyx.ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("error = %v, want *ParseError", err)
	}
	if pe.Type != iyx.INT16 || pe.Raw != "not a number" {
		t.Errorf("ParseError = %+v, unexpected fields", pe)
	}
}

func TestColumnInt128Rejected(t *testing.T) {
	c := iyx.NewColumn("n", iyx.INT128)
	if err := c.AppendFromString("1"); err == nil {
		t.Fatal("expected INT128 to be rejected on ingestion")
	}
}

func TestColumnOutOfRange(t *testing.T) {
	c := iyx.NewColumn("n", iyx.INT16)
	if _, err := c.ValueAsString(0); !errors.Is(err, iyx.ErrOutOfRange) {
		t.Fatalf("error = %v, want ErrOutOfRange", err)
	}
}

func TestColumnDateRoundTrip(t *testing.T) {
	c := iyx.NewColumn("d", iyx.DATE)
	in := "2024-03-15"
	if err := c.AppendFromString(in); err != nil {
		t.Fatal(err)
	}
	out, err := c.ValueAsString(0)
	if err != nil {
		t.Fatal(err)
	}
	if out != in {
		t.Errorf("date round trip = %q, want %q", out, in)
	}
}

func TestColumnTimestampRoundTrip(t *testing.T) {
	c := iyx.NewColumn("ts", iyx.TIMESTAMP)
	in := "2024-03-15 13:45:07"
	if err := c.AppendFromString(in); err != nil {
		t.Fatal(err)
	}
	out, err := c.ValueAsString(0)
	if err != nil {
		t.Fatal(err)
	}
	if out != in {
		t.Errorf("timestamp round trip = %q, want %q", out, in)
	}
}

func TestColumnClearEmpties(t *testing.T) {
	c := iyx.NewColumn("n", iyx.STRING)
	for i := 0; i < 10; i++ {
		if err := c.AppendFromString("x"); err != nil {
			t.Fatal(err)
		}
	}
	c.Clear()
	if c.Len() != 0 {
		t.Fatalf("Len() after Clear = %d, want 0", c.Len())
	}
}

func TestColumnStringPreservesBytes(t *testing.T) {
	c := iyx.NewColumn("s", iyx.STRING)
	in := "a,b\"c\nd"
	if err := c.AppendFromString(in); err != nil {
		t.Fatal(err)
	}
	out, err := c.ValueAsString(0)
	if err != nil {
		t.Fatal(err)
	}
	if out != in {
		t.Errorf("STRING round trip = %q, want %q", out, in)
	}
}
