// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

//go:build windows

package pe

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/dblohm7/archscan/arch"
	"github.com/tc-hib/winres"
)

const manifestContents = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<assembly xmlns="urn:schemas-microsoft-com:asm.v1" manifestVersion="1.0">
	<compatibility xmlns="urn:schemas-microsoft-com:compatibility.v1">
		<application>
			<supportedOS Id="{8e0f7a12-bfb3-4fe8-b9a5-48fd50a15a9a}" />
		</application>
	</compatibility>
</assembly>`

// addManifest copies the executable at inPath to outPath with a manifest
// resource added, which makes winres rewrite the section table.
func addManifest(outPath, inPath string) (err error) {
	inf, err := os.Open(inPath)
	if err != nil {
		return err
	}
	defer inf.Close()

	outf, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer func() {
		outf.Close()
		if err != nil {
			os.Remove(outPath)
		}
	}()

	var rs winres.ResourceSet
	if err := rs.Set(winres.RT_MANIFEST, winres.ID(1), 0, []byte(manifestContents)); err != nil {
		return err
	}

	return rs.WriteToEXE(outf, inf, winres.ForceCheckSum())
}

func goarchArchitecture(t *testing.T) arch.Architecture {
	switch runtime.GOARCH {
	case "386":
		return arch.I386
	case "amd64":
		return arch.Amd64
	case "arm64":
		return arch.Arm64
	case "arm":
		return arch.ArmNt
	default:
		t.Skipf("no PE machine for GOARCH %q", runtime.GOARCH)
		return 0
	}
}

// TestClassifyTestBinary classifies the running test executable before and
// after winres has added a resource section to it.
func TestClassifyTestBinary(t *testing.T) {
	want := goarchArchitecture(t)
	fname := os.Args[0]

	got, err := ClassifyFile(fname)
	if err != nil {
		t.Fatalf("ClassifyFile(%q) error: %v", fname, err)
	}
	if got != want {
		t.Errorf("ClassifyFile(%q) got %v, want %v", fname, got, want)
	}

	rewritten := filepath.Join(t.TempDir(), "rewritten.exe")
	if err := addManifest(rewritten, fname); err != nil {
		t.Fatalf("addManifest: %v", err)
	}

	for _, c := range []*Classifier{NewClassifier(), NewClassifier(WithStrictSignature())} {
		got, err = c.ClassifyFile(rewritten)
		if err != nil {
			t.Fatalf("ClassifyFile(%q) error: %v", rewritten, err)
		}
		if got != want {
			t.Errorf("ClassifyFile(%q) got %v, want %v", rewritten, got, want)
		}
	}
}
