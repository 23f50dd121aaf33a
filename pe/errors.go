// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package pe

import (
	"errors"
	"fmt"

	"github.com/dblohm7/archscan/arch"
)

var (
	ErrIndexOutOfRange    = errors.New("index out of range")
	ErrInvalidBinary      = errors.New("invalid PE binary")
	ErrNotPresent         = errors.New("not present in this PE image")
	ErrUnsupportedMachine = errors.New("unsupported machine")
)

// FormatError reports a header whose bytes could be read but do not form a
// valid structure. errors.Is(err, ErrInvalidBinary) holds for every
// FormatError.
type FormatError struct {
	Structure string // the header that failed to parse
	Offset    int64  // file offset of that header, or -1 if it has none
	Err       error
}

func formatErrorf(structure string, off int64, format string, args ...any) *FormatError {
	return &FormatError{Structure: structure, Offset: off, Err: fmt.Errorf(format, args...)}
}

func (e *FormatError) Error() string {
	if e.Offset < 0 {
		return fmt.Sprintf("%v: %s: %v", ErrInvalidBinary, e.Structure, e.Err)
	}
	return fmt.Sprintf("%v: %s at offset 0x%X: %v", ErrInvalidBinary, e.Structure, e.Offset, e.Err)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

func (e *FormatError) Is(target error) bool {
	return target == ErrInvalidBinary
}

// UnknownMachineError reports a COFF machine field that does not name any
// known architecture. It matches both ErrUnsupportedMachine and
// arch.ErrUnknownMachine.
type UnknownMachineError struct {
	Machine uint16
}

func (e *UnknownMachineError) Error() string {
	return fmt.Sprintf("%v 0x%04X", ErrUnsupportedMachine, e.Machine)
}

func (e *UnknownMachineError) Is(target error) bool {
	return target == ErrUnsupportedMachine || target == arch.ErrUnknownMachine
}

// IOError reports a failure of the underlying stream, including a read that
// ended before the structure being read was complete (io.ErrUnexpectedEOF).
type IOError struct {
	Op        string // "open", "read" or "seek"
	Structure string // the header being read, or the path for "open"
	Offset    int64
	Err       error
}

func (e *IOError) Error() string {
	if e.Op == "open" {
		return fmt.Sprintf("open %s: %v", e.Structure, e.Err)
	}
	return fmt.Sprintf("%s %s at offset 0x%X: %v", e.Op, e.Structure, e.Offset, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}
