// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

//go:build windows

package arch

import (
	"fmt"

	"golang.org/x/sys/windows"
)

// DetectHost queries the operating system for the native machine type
// without consulting or populating the cache used by Current.
func DetectHost() (Architecture, error) {
	var processMachine, nativeMachine uint16
	if err := windows.IsWow64Process2(windows.CurrentProcess(), &processMachine, &nativeMachine); err != nil {
		return 0, fmt.Errorf("IsWow64Process2: %w", err)
	}

	a, ok := FromCode(nativeMachine)
	if !ok {
		return 0, fmt.Errorf("%w: machine 0x%04x", ErrUnknownHost, nativeMachine)
	}
	return a, nil
}
