// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

//go:build windows

package process

import (
	"os"
	"runtime"
	"testing"

	"github.com/dblohm7/archscan/arch"
	"golang.org/x/exp/slices"
	"golang.org/x/sys/windows"
)

func TestEnumerate(t *testing.T) {
	procs, err := Enumerate()
	if err != nil {
		t.Fatalf("Enumerate error: %v", err)
	}

	pid := uint32(os.Getpid())
	idx := slices.IndexFunc(procs, func(p Process) bool { return p.PID == pid })
	if idx < 0 {
		t.Fatalf("current process %d not among %d enumerated processes", pid, len(procs))
	}
	t.Logf("Current process: %d %q", procs[idx].PID, procs[idx].ExeName)
}

func TestArchitectureCurrentProcess(t *testing.T) {
	got, err := Architecture(windows.GetCurrentProcessId())
	if err != nil {
		t.Fatalf("Architecture error: %v", err)
	}

	var want arch.Architecture
	switch runtime.GOARCH {
	case "386":
		want = arch.I386
	case "amd64":
		// Under x64 emulation on ARM64 the process is not WoW64, so the
		// native machine is reported.
		want = arch.Current()
		if want != arch.Arm64 {
			want = arch.Amd64
		}
	case "arm64":
		want = arch.Arm64
	default:
		t.Skipf("unexpected GOARCH %q", runtime.GOARCH)
	}
	if got != want {
		t.Errorf("Architecture(self) got %v, want %v", got, want)
	}
}
