// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

// Package process lists running processes and reports the architecture each
// one is executing as.
package process

import (
	"errors"
	"fmt"

	"github.com/dblohm7/archscan/arch"
)

// ErrNotSupported is returned on platforms without a process architecture
// query.
var ErrNotSupported = errors.New("process architecture detection is not supported on this platform")

// Process identifies a running process.
type Process struct {
	PID     uint32
	ExeName string // executable file name, without its directory
}

// fromWow64Machines maps the pair that IsWow64Process2 reports to the
// architecture the process executes as. processMachine is MachineUnknown
// unless the process runs under WoW64.
func fromWow64Machines(processMachine, nativeMachine uint16) (arch.Architecture, error) {
	machine := processMachine
	if machine == arch.MachineUnknown {
		machine = nativeMachine
	}

	a, ok := arch.FromCode(machine)
	if !ok {
		return 0, fmt.Errorf("%w 0x%04X", arch.ErrUnknownMachine, machine)
	}
	return a, nil
}
