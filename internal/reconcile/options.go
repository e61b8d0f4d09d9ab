package reconcile

import (
	"github.com/okian/pretor/pkg/logger"
)

// Option applies a configuration option to the engine.
type Option func(*Engine)

// WithConcurrency bounds the commit-phase worker pool. Values below one are
// ignored.
func WithConcurrency(n int) Option {
	return func(e *Engine) {
		if n >= 1 {
			e.concurrency = n
		}
	}
}

// WithLogger replaces the engine's logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		e.log = l
	}
}

// WithTolerant accepts rows naming components the course definition does not
// define, instead of rejecting the batch.
func WithTolerant() Option {
	return func(e *Engine) {
		e.tolerant = true
	}
}
