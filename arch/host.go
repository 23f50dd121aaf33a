// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package arch

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// ErrUnknownHost is returned by DetectHost when the operating system reports
// a machine that is not one of the known architectures.
var ErrUnknownHost = errors.New("unrecognized host architecture")

var current = sync.OnceValue(func() Architecture {
	a, err := DetectHost()
	if err != nil {
		panic(fmt.Sprintf("arch: cannot determine host architecture: %v", err))
	}
	return a
})

// Current returns the native architecture of the machine the process is
// running on. A 32-bit process under WoW64 still sees the 64-bit host.
//
// The first call queries the operating system and every later call returns
// the cached result. Current panics if the query fails, since nothing that
// depends on the host architecture can be answered without it.
func Current() Architecture {
	return current()
}

// fromMachineName maps a uname(2) machine string or a GOARCH value to an
// Architecture.
func fromMachineName(name string) (Architecture, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	switch name {
	case "x86_64", "amd64", "x64":
		return Amd64, true
	case "i386", "i486", "i586", "i686", "i86pc", "x86", "386":
		return I386, true
	case "aarch64", "arm64":
		return Arm64, true
	case "ia64":
		return IA64, true
	}
	if strings.HasPrefix(name, "arm") {
		return ArmNt, true
	}
	return 0, false
}
