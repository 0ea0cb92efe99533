package lpmodel

import (
	"fmt"
	"time"
)

type Option func(*Model) error

func WithLogger(logger Logger) Option {
	return func(m *Model) error {
		if logger == nil {
			return fmt.Errorf("nil logger")
		}
		m.logger = logger

		return nil
	}
}

func WithVerbosity(level Verbosity) Option {
	return func(m *Model) error {
		if level < Neutral || level > Full {
			return fmt.Errorf("verbosity %d: %w", level, ErrInvalidValue)
		}
		m.opts.verbosity = level

		return nil
	}
}

// WithTimeout limits how long a single solve may run. Zero disables the limit.
func WithTimeout(timeout time.Duration) Option {
	return func(m *Model) error {
		if timeout < 0 {
			return fmt.Errorf("timeout %v: %w", timeout, ErrInvalidValue)
		}
		m.opts.timeout = timeout

		return nil
	}
}

func WithScaling(mode ScaleMode) Option {
	return func(m *Model) error {
		m.opts.scaling = mode

		return nil
	}
}

func WithSimplexType(t SimplexType) Option {
	return func(m *Model) error {
		if !t.valid() {
			return fmt.Errorf("simplex type %d: %w", t, ErrInvalidValue)
		}
		m.opts.simplexType = t

		return nil
	}
}

func WithBranchRule(rule BranchRule) Option {
	return func(m *Model) error {
		m.opts.branchRule = rule

		return nil
	}
}

func WithPresolve(flags Presolve) Option {
	return func(m *Model) error {
		m.opts.presolve = flags

		return nil
	}
}

func WithSolutionLimit(limit int) Option {
	return func(m *Model) error {
		if limit < 1 {
			return fmt.Errorf("solution limit %d: %w", limit, ErrInvalidValue)
		}
		m.opts.solutionLimit = limit

		return nil
	}
}

// WithMIPGap sets the absolute and relative gaps used to prune branch-and-bound nodes.
func WithMIPGap(absolute, relative float64) Option {
	return func(m *Model) error {
		if !(absolute >= 0) || !(relative >= 0) {
			return fmt.Errorf("mip gap %g/%g: %w", absolute, relative, ErrInvalidValue)
		}
		m.opts.absGap = absolute
		m.opts.relGap = relative

		return nil
	}
}

// WithAbortFunc installs a function polled during the solve; returning true
// stops the search.
func WithAbortFunc(abort func() bool) Option {
	return func(m *Model) error {
		m.abort = abort

		return nil
	}
}
