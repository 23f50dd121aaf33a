// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dblohm7/archscan/arch"
	"github.com/dblohm7/archscan/pe"
)

func TestTableWrite(t *testing.T) {
	tbl := &table{header: row{"Executable", "Architecture"}}
	tbl.add(row{`C:\a.exe`, "x64"})
	tbl.add(row{`C:\longer\b.dll`, "ARM64"})

	var buf bytes.Buffer
	if err := tbl.write(&buf); err != nil {
		t.Fatalf("write error: %v", err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3:\n%s", len(lines), buf.String())
	}
	col := strings.Index(lines[0], "Architecture")
	for i, want := range []string{"Architecture", "x64", "ARM64"} {
		if got := strings.Index(lines[i], want); got != col {
			t.Errorf("line %d: %q starts at column %d, want %d", i, want, got, col)
		}
	}
}

func TestScannerFiles(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.exe")
	// A minimal x64 image: DOS header, signature and file header.
	img := make([]byte, 0x80+4+20)
	copy(img, "MZ")
	img[60] = 0x80
	copy(img[0x80:], "PE\x00\x00")
	img[0x84], img[0x85] = 0x64, 0x86
	if err := os.WriteFile(good, img, 0o644); err != nil {
		t.Fatal(err)
	}
	bad := filepath.Join(dir, "bad.dll")
	if err := os.WriteFile(bad, []byte("not a PE"), 0o644); err != nil {
		t.Fatal(err)
	}

	var logged []string
	s := &scanner{
		classifier: pe.NewClassifier(),
		host:       arch.Arm64,
		logf: func(format string, args ...any) {
			logged = append(logged, format)
		},
	}

	tbl := s.files([]string{good, bad})
	if len(tbl.rows) != 1 || tbl.rows[0][0] != good || tbl.rows[0][1] != "x64" {
		t.Errorf("rows got %q, want [[%q x64]]", tbl.rows, good)
	}
	if len(logged) != 1 {
		t.Errorf("got %d log lines, want 1", len(logged))
	}

	s.host = arch.Amd64
	if tbl := s.files([]string{good}); len(tbl.rows) != 0 {
		t.Errorf("host-architecture rows not filtered: %q", tbl.rows)
	}
	s.showAll = true
	if tbl := s.files([]string{good}); len(tbl.rows) != 1 {
		t.Errorf("showAll rows got %q, want one row", tbl.rows)
	}
}
