// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

//go:build windows

package process

import (
	"errors"
	"fmt"
	"unsafe"

	"github.com/dblohm7/archscan/arch"
	"golang.org/x/sys/windows"
)

// Enumerate returns a snapshot of the processes running on the system.
func Enumerate() ([]Process, error) {
	snap, err := windows.CreateToolhelp32Snapshot(windows.TH32CS_SNAPPROCESS, 0)
	if err != nil {
		return nil, fmt.Errorf("CreateToolhelp32Snapshot: %w", err)
	}
	defer windows.CloseHandle(snap)

	entry := windows.ProcessEntry32{Size: uint32(unsafe.Sizeof(windows.ProcessEntry32{}))}
	if err := windows.Process32First(snap, &entry); err != nil {
		if errors.Is(err, windows.ERROR_NO_MORE_FILES) {
			return nil, nil
		}
		return nil, fmt.Errorf("Process32First: %w", err)
	}

	var result []Process
	for {
		result = append(result, Process{
			PID:     entry.ProcessID,
			ExeName: windows.UTF16ToString(entry.ExeFile[:]),
		})

		if err := windows.Process32Next(snap, &entry); err != nil {
			if errors.Is(err, windows.ERROR_NO_MORE_FILES) {
				break
			}
			return result, fmt.Errorf("Process32Next: %w", err)
		}
	}

	return result, nil
}

// Architecture returns the architecture that the process identified by pid
// is executing as. A WoW64 process reports its emulated architecture, and
// any other process reports the native one.
func Architecture(pid uint32) (arch.Architecture, error) {
	h, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, pid)
	if err != nil {
		return 0, fmt.Errorf("OpenProcess(%d): %w", pid, err)
	}
	defer windows.CloseHandle(h)

	return handleArchitecture(h)
}

func handleArchitecture(h windows.Handle) (arch.Architecture, error) {
	var processMachine, nativeMachine uint16
	if err := windows.IsWow64Process2(h, &processMachine, &nativeMachine); err != nil {
		return 0, fmt.Errorf("IsWow64Process2: %w", err)
	}

	return fromWow64Machines(processMachine, nativeMachine)
}
