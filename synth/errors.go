// SPDX-License-Identifier: MIT
// Package: scflow/synth
//
// errors.go: sentinel errors for the synth package.
//
// Error policy:
//   • Only sentinel variables are exposed; callers branch with errors.Is.
//   • Generate attaches context with %w via synthErrorf.
//   • Option constructors panic on programmer error; Generate never panics.

package synth

import (
	"fmt"

	"github.com/katalvlaran/scflow/diag"
)

// ErrTooSmall indicates a size parameter below its minimum (cells, genes, clusters).
var ErrTooSmall = diag.NewSentinel("synth: parameter too small")

// ErrTooManyMarkers indicates that markers and mitochondrial genes do not fit in the gene count.
var ErrTooManyMarkers = diag.NewSentinel("synth: markers exceed gene count")

// synthErrorf prefixes err with the method name, keeping it matchable by errors.Is.
func synthErrorf(method, format string, args ...any) error {
	return fmt.Errorf("%s: "+format, append([]any{method}, args...)...)
}
