package bfs

import (
	"context"
	"fmt"

	"github.com/katalvlaran/scflow/diag"
)

// Sentinel errors for BFS execution.
var (
	// ErrStartVertexNotFound is returned when the start ID is absent.
	ErrStartVertexNotFound = diag.NewSentinel("bfs: start vertex not found")

	// ErrGraphNil is returned if a nil graph pointer is passed.
	ErrGraphNil = diag.NewSentinel("bfs: graph is nil")

	// ErrOptionViolation is returned when an invalid Option is supplied.
	ErrOptionViolation = diag.NewSentinel("bfs: invalid option supplied")
)

// Option configures a traversal. Invalid values are recorded and surfaced
// as ErrOptionViolation when the traversal starts.
type Option func(*Options)

// Options holds the traversal parameters.
type Options struct {
	// Ctx allows cancellation between dequeues.
	Ctx context.Context

	// MaxDepth, if > 0, stops exploring beyond this hop distance.
	MaxDepth int

	// Keep reports whether the edge curr→neighbor may be followed.
	Keep func(curr, neighbor string) bool

	err error
}

func defaultOptions() Options {
	return Options{
		Ctx:  context.Background(),
		Keep: func(_, _ string) bool { return true },
	}
}

func resolve(opts []Option) (Options, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o, o.err
}

// WithContext sets a custom context for cancellation.
func WithContext(ctx context.Context) Option {
	return func(o *Options) {
		if ctx != nil {
			o.Ctx = ctx
		}
	}
}

// WithMaxDepth limits the search to d hops; 0 means unlimited.
func WithMaxDepth(d int) Option {
	return func(o *Options) {
		if d < 0 {
			o.err = fmt.Errorf("MaxDepth cannot be negative (%d): %w", d, ErrOptionViolation)
			return
		}
		o.MaxDepth = d
	}
}

// WithKeep follows only the edges for which fn returns true.
func WithKeep(fn func(curr, neighbor string) bool) Option {
	return func(o *Options) {
		if fn != nil {
			o.Keep = fn
		}
	}
}

// Result holds the visit order and the hop distance of every reached
// vertex.
type Result struct {
	Order []string
	Depth map[string]int
}
