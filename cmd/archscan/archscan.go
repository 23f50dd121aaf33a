// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

// Command archscan reports the CPU architecture of running processes and of
// the PE binaries found in PATH.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/dblohm7/archscan/arch"
	"github.com/dblohm7/archscan/pathscan"
	"github.com/dblohm7/archscan/pe"
	"github.com/dblohm7/archscan/process"
)

var noProcesses bool
var noExecutables bool
var showAll bool
var strict bool
var verbose bool

func init() {
	flag.Usage = usage
	flag.BoolVar(&noProcesses, "P", false, "do not list running processes")
	flag.BoolVar(&noProcesses, "no-processes", false, "do not list running processes")
	flag.BoolVar(&noExecutables, "E", false, "do not list executables found in PATH")
	flag.BoolVar(&noExecutables, "no-executables", false, "do not list executables found in PATH")
	flag.BoolVar(&showAll, "a", false, "also show entries whose architecture matches this machine's")
	flag.BoolVar(&showAll, "all", false, "also show entries whose architecture matches this machine's")
	flag.BoolVar(&strict, "strict", false, `require the "PE\0\0" signature in PE files`)
	flag.BoolVar(&verbose, "v", false, "log entries that could not be classified")
}

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), "Usage of %s:\n", os.Args[0])
	flag.PrintDefaults()
	fmt.Fprintln(flag.CommandLine.Output(), "  [filePath...]\n\tclassify only these PE files")
}

type row []string

// table accumulates rows and renders them aligned.
type table struct {
	header row
	rows   []row
}

func (tbl *table) add(r row) {
	tbl.rows = append(tbl.rows, r)
}

func (tbl *table) write(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, r := range append([]row{tbl.header}, tbl.rows...) {
		for i, cell := range r {
			if i > 0 {
				fmt.Fprint(tw, "\t")
			}
			fmt.Fprint(tw, cell)
		}
		fmt.Fprintln(tw)
	}
	return tw.Flush()
}

type scanner struct {
	classifier *pe.Classifier
	host       arch.Architecture
	showAll    bool
	logf       func(format string, args ...any)
}

func (s *scanner) wanted(a arch.Architecture) bool {
	return s.showAll || a != s.host
}

func (s *scanner) processes() (*table, error) {
	procs, err := process.Enumerate()
	if err != nil {
		return nil, err
	}

	tbl := &table{header: row{"PID", "Executable", "Architecture"}}
	for _, p := range procs {
		a, err := process.Architecture(p.PID)
		if err != nil {
			s.logf("process %d (%s): %v", p.PID, p.ExeName, err)
			continue
		}
		if s.wanted(a) {
			tbl.add(row{strconv.FormatUint(uint64(p.PID), 10), p.ExeName, a.String()})
		}
	}
	return tbl, nil
}

func (s *scanner) files(paths []string) *table {
	tbl := &table{header: row{"Executable", "Architecture"}}
	for _, path := range paths {
		a, err := s.classifier.ClassifyFile(path)
		if err != nil {
			s.logf("%v", err)
			continue
		}
		if s.wanted(a) {
			tbl.add(row{path, a.String()})
		}
	}
	return tbl
}

func main() {
	flag.Parse()
	log.SetFlags(0)

	var opts []pe.Option
	if strict {
		opts = append(opts, pe.WithStrictSignature())
	}
	s := &scanner{
		classifier: pe.NewClassifier(opts...),
		host:       arch.Current(),
		showAll:    showAll,
		logf:       func(string, ...any) {},
	}
	if verbose {
		s.logf = log.Printf
	}

	if flag.NArg() > 0 {
		// Explicitly named files are always shown.
		s.showAll = true
		if err := s.files(flag.Args()).write(os.Stdout); err != nil {
			log.Fatalf("writing output: %v", err)
		}
		return
	}

	if !noProcesses {
		tbl, err := s.processes()
		switch {
		case errors.Is(err, process.ErrNotSupported):
			s.logf("skipping running processes: %v", err)
		case err != nil:
			log.Fatalf("when enumerating processes, %v", err)
		default:
			fmt.Println("current running processes:")
			if err := tbl.write(os.Stdout); err != nil {
				log.Fatalf("writing output: %v", err)
			}
		}
	}

	if !noExecutables {
		paths, err := pathscan.Executables()
		if err != nil {
			log.Fatalf("when enumerating executables, %v", err)
		}
		fmt.Println("executables found in PATH:")
		if err := s.files(paths).write(os.Stdout); err != nil {
			log.Fatalf("writing output: %v", err)
		}
	}
}
