// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

// Package arch enumerates the CPU architectures that a PE image's COFF
// header can name, and reports the architecture of the running host.
package arch

import (
	"errors"
	"fmt"
)

// Architecture is a CPU architecture identified by its IMAGE_FILE_MACHINE
// code. Only the values listed below are valid; use FromCode to convert
// untrusted input.
type Architecture uint16

const (
	I386         Architecture = 0x014c
	R3000        Architecture = 0x0162
	R4000        Architecture = 0x0166
	R10000       Architecture = 0x0168
	WceMipsV2    Architecture = 0x0169
	Alpha        Architecture = 0x0184
	Sh3          Architecture = 0x01a2
	Sh3Dsp       Architecture = 0x01a3
	Sh3E         Architecture = 0x01a4
	Sh4          Architecture = 0x01a6
	Sh5          Architecture = 0x01a8
	Arm          Architecture = 0x01c0
	Thumb        Architecture = 0x01c2
	ArmNt        Architecture = 0x01c4
	Am33         Architecture = 0x01d3
	PowerPC      Architecture = 0x01f0
	PowerPCFP    Architecture = 0x01f1
	IA64         Architecture = 0x0200
	Mips16       Architecture = 0x0266
	Alpha64AXP64 Architecture = 0x0284 // IMAGE_FILE_MACHINE_ALPHA64 and IMAGE_FILE_MACHINE_AXP64 share this code.
	MipsFPU      Architecture = 0x0366
	MipsFPU16    Architecture = 0x0466
	TriCore      Architecture = 0x0520
	CEF          Architecture = 0x0cef
	EBC          Architecture = 0x0ebc
	Amd64        Architecture = 0x8664
	M32R         Architecture = 0x9041
	Arm64        Architecture = 0xaa64
	CEE          Architecture = 0xc0ee
)

// Machine codes that the Windows API uses as sentinels. Neither names an
// architecture, so FromCode rejects both.
const (
	MachineUnknown    = 0x0000
	MachineTargetHost = 0x0001
)

// ErrUnknownMachine reports an IMAGE_FILE_MACHINE code that is not one of
// the known architectures.
var ErrUnknownMachine = errors.New("unknown machine")

// names is ordered by code.
var names = []struct {
	a    Architecture
	name string
}{
	{I386, "I386"},
	{R3000, "R3000"},
	{R4000, "R4000"},
	{R10000, "R10000"},
	{WceMipsV2, "WceMipsV2"},
	{Alpha, "Alpha"},
	{Sh3, "Sh3"},
	{Sh3Dsp, "Sh3Dsp"},
	{Sh3E, "Sh3E"},
	{Sh4, "Sh4"},
	{Sh5, "Sh5"},
	{Arm, "Arm"},
	{Thumb, "Thumb"},
	{ArmNt, "ArmNt"},
	{Am33, "Am33"},
	{PowerPC, "PowerPC"},
	{PowerPCFP, "PowerPCFP"},
	{IA64, "IA64"},
	{Mips16, "Mips16"},
	{Alpha64AXP64, "Alpha64AXP64"},
	{MipsFPU, "MipsFPU"},
	{MipsFPU16, "MipsFPU16"},
	{TriCore, "TriCore"},
	{CEF, "CEF"},
	{EBC, "EBC"},
	{Amd64, "Amd64"},
	{M32R, "M32R"},
	{Arm64, "Arm64"},
	{CEE, "CEE"},
}

var byCode = func() map[Architecture]string {
	m := make(map[Architecture]string, len(names))
	for _, n := range names {
		m[n.a] = n.name
	}
	return m
}()

// FromCode converts an IMAGE_FILE_MACHINE code into an Architecture. It
// returns false for any code outside the known set, including
// MachineUnknown and MachineTargetHost.
func FromCode(code uint16) (Architecture, bool) {
	a := Architecture(code)
	if !a.Valid() {
		return 0, false
	}
	return a, true
}

// Code returns a's IMAGE_FILE_MACHINE code.
func (a Architecture) Code() uint16 {
	return uint16(a)
}

// Valid reports whether a is one of the known architectures.
func (a Architecture) Valid() bool {
	_, ok := byCode[a]
	return ok
}

// Name returns a's symbolic name, e.g. "Amd64".
func (a Architecture) Name() string {
	if name, ok := byCode[a]; ok {
		return name
	}
	return fmt.Sprintf("Architecture(0x%04x)", uint16(a))
}

// String returns a's display name. The three architectures users most
// commonly encounter are shown the way Task Manager shows them; everything
// else falls back to Name.
func (a Architecture) String() string {
	switch a {
	case I386:
		return "x86"
	case Amd64:
		return "x64"
	case Arm64:
		return "ARM64"
	default:
		return a.Name()
	}
}

// All returns every known architecture, ordered by code.
func All() []Architecture {
	result := make([]Architecture, len(names))
	for i, n := range names {
		result[i] = n.a
	}
	return result
}
