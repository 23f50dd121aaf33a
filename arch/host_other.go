// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

//go:build !windows && !unix

package arch

import (
	"fmt"
	"runtime"
)

// DetectHost reports the architecture the binary was compiled for; this
// platform offers no query for the native machine.
func DetectHost() (Architecture, error) {
	a, ok := fromMachineName(runtime.GOARCH)
	if !ok {
		return 0, fmt.Errorf("%w: GOARCH %q", ErrUnknownHost, runtime.GOARCH)
	}
	return a, nil
}
