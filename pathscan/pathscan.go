// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

// Package pathscan finds PE executables and libraries in the directories
// named by the PATH environment variable.
package pathscan

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// ErrPathNotSet is returned by Executables when PATH is not set.
var ErrPathNotSet = errors.New("PATH environment variable not set")

// Executables returns the .exe and .dll files found in the directories listed
// in PATH, in PATH order.
func Executables() ([]string, error) {
	list, ok := os.LookupEnv("PATH")
	if !ok {
		return nil, ErrPathNotSet
	}
	return ExecutablesIn(list), nil
}

// ExecutablesIn is like Executables but searches list, a PATH-style string
// separated by os.PathListSeparator. Entries that are not readable
// directories are skipped, and a directory listed twice is searched once.
func ExecutablesIn(list string) []string {
	var result []string
	seen := make(map[string]bool)
	for _, dir := range filepath.SplitList(list) {
		dir = strings.TrimSpace(dir)
		if dir == "" {
			continue
		}
		dir = filepath.Clean(dir)
		if seen[dir] {
			continue
		}
		seen[dir] = true

		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if !e.Type().IsRegular() || !hasPEExtension(e.Name()) {
				continue
			}
			result = append(result, filepath.Join(dir, e.Name()))
		}
	}
	return result
}

func hasPEExtension(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".exe", ".dll":
		return true
	default:
		return false
	}
}
