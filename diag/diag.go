// Package diag defines the failure taxonomy shared by every pipeline stage.
//
// Three kinds of trouble exist:
//
//	InvalidInput       stage-local validation failed; the stage returns an error
//	                   wrapping ErrInvalidInput and produces no output.
//	DegenerateData     preconditions hold but the result is meaningless or partial,
//	                   e.g. zero variable genes; the stage returns its best-effort
//	                   output with a warning.
//	NumericInstability an iterative method hit its iteration cap; the output is
//	                   annotated "did not converge".
//
// Only InvalidInput travels as a Go error. The other two are values carried in a
// Report so that callers decide whether to continue.
package diag

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrInvalidInput is the root sentinel for every stage-local validation failure.
// Package-specific sentinels wrap it so both errors.Is checks succeed.
var ErrInvalidInput = errors.New("invalid input")

// Kind classifies a warning.
type Kind int

const (
	// InvalidInput is only used for logging symmetry; such failures are errors.
	InvalidInput Kind = iota
	// DegenerateData marks meaningless or partial results.
	DegenerateData
	// NumericInstability marks non-convergence within an iteration cap.
	NumericInstability
)

// String returns the stable lowercase name of k.
func (k Kind) String() string {
	switch k {
	case InvalidInput:
		return "invalid-input"
	case DegenerateData:
		return "degenerate-data"
	case NumericInstability:
		return "numeric-instability"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Status summarises a stage outcome.
type Status int

const (
	// StatusOK means no warnings were raised.
	StatusOK Status = iota
	// StatusDegenerate means at least one DegenerateData warning was raised.
	StatusDegenerate
	// StatusNotConverged means an iterative method did not converge.
	StatusNotConverged
)

// String returns the stable lowercase name of s.
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusDegenerate:
		return "degenerate"
	case StatusNotConverged:
		return "did-not-converge"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Warning is a recoverable condition raised by a stage.
type Warning struct {
	Stage   string `json:"stage"`
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
}

// String renders "stage: kind: message".
func (w Warning) String() string {
	return w.Stage + ": " + w.Kind.String() + ": " + w.Message
}

// Report collects the warnings of one stage invocation.
// The zero value is an OK report.
type Report struct {
	Warnings []Warning `json:"warnings,omitempty"`
}

// Degenerate appends a DegenerateData warning.
func (r *Report) Degenerate(stage, format string, args ...any) {
	r.Warnings = append(r.Warnings, Warning{Stage: stage, Kind: DegenerateData, Message: fmt.Sprintf(format, args...)})
}

// NotConverged appends a NumericInstability warning.
func (r *Report) NotConverged(stage, format string, args ...any) {
	r.Warnings = append(r.Warnings, Warning{Stage: stage, Kind: NumericInstability, Message: fmt.Sprintf(format, args...)})
}

// Merge appends all warnings of other.
func (r *Report) Merge(other Report) {
	r.Warnings = append(r.Warnings, other.Warnings...)
}

// Status derives the strongest status: NotConverged beats Degenerate beats OK.
func (r Report) Status() Status {
	st := StatusOK
	for _, w := range r.Warnings {
		switch w.Kind {
		case NumericInstability:
			return StatusNotConverged
		case DegenerateData:
			st = StatusDegenerate
		}
	}
	return st
}

// OK reports whether no warnings were raised.
func (r Report) OK() bool { return len(r.Warnings) == 0 }

// String joins all warnings with "; ".
func (r Report) String() string {
	if len(r.Warnings) == 0 {
		return "ok"
	}
	parts := make([]string, len(r.Warnings))
	for i, w := range r.Warnings {
		parts[i] = w.String()
	}
	return strings.Join(parts, "; ")
}

// Invalid builds an error wrapping ErrInvalidInput with a package prefix.
func Invalid(pkg, format string, args ...any) error {
	return fmt.Errorf("%s: %s: %w", pkg, fmt.Sprintf(format, args...), ErrInvalidInput)
}

// NewSentinel returns a package sentinel that also matches ErrInvalidInput.
func NewSentinel(msg string) error {
	return &sentinel{msg: msg}
}

type sentinel struct{ msg string }

func (s *sentinel) Error() string        { return s.msg }
func (s *sentinel) Unwrap() error        { return ErrInvalidInput }
func (s *sentinel) Is(target error) bool { return target == error(s) }

// CheckFinite returns the index of the first NaN/±Inf value in xs, or -1.
func CheckFinite(xs []float64) int {
	for i, v := range xs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return i
		}
	}
	return -1
}
