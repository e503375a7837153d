// Copyright (c) 2025 ToeiRei
// corecomposition - white dwarf core composition pipeline
// This source code is licensed under the MIT license found in the LICENSE file.

// Command-line entrypoint for corecomposition.
//
// Usage:
//
//	corecomposition build <pairs.csv> [flags]
//	corecomposition analyze <targets.csv> --obspath <obs.csv> [flags]
//
// See --help for the full command set.
package main

import (
	"os"

	"github.com/toeirei/corecomposition/internal/logging"
)

func main() {
	if err := NewRootCmd().Execute(); err != nil {
		logging.Errorf("%v", err)
		os.Exit(1)
	}
}
