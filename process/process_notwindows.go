// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

//go:build !windows

package process

import "github.com/dblohm7/archscan/arch"

// Enumerate is only supported on Windows; elsewhere it returns
// ErrNotSupported.
func Enumerate() ([]Process, error) {
	return nil, ErrNotSupported
}

// Architecture is only supported on Windows; elsewhere it returns
// ErrNotSupported.
func Architecture(pid uint32) (arch.Architecture, error) {
	return 0, ErrNotSupported
}
