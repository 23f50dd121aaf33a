// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

//go:build unix

package arch

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// DetectHost queries the operating system for the native machine type
// without consulting or populating the cache used by Current.
func DetectHost() (Architecture, error) {
	var uts unix.Utsname
	if err := unix.Uname(&uts); err != nil {
		return 0, fmt.Errorf("uname: %w", err)
	}

	machine := unix.ByteSliceToString(uts.Machine[:])
	a, ok := fromMachineName(machine)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownHost, machine)
	}
	return a, nil
}
