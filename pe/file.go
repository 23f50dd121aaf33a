// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package pe

import (
	"fmt"
	"os"

	"github.com/dblohm7/archscan/arch"
)

// ClassifyFile opens the PE binary located at filename and classifies it
// with the default Classifier settings.
func ClassifyFile(filename string) (arch.Architecture, error) {
	return defaultClassifier.ClassifyFile(filename)
}

// ClassifyFile opens the PE binary located at filename and classifies it.
// A failure to open the file is reported as an *IOError with Op "open".
func (c *Classifier) ClassifyFile(filename string) (arch.Architecture, error) {
	f, err := os.Open(filename)
	if err != nil {
		return 0, &IOError{Op: "open", Structure: filename, Err: err}
	}
	defer f.Close()

	a, err := c.Classify(f)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", filename, err)
	}
	return a, nil
}
