package reconcile

import (
	"github.com/okian/housecup/internal/domain/scoring"
	"github.com/okian/housecup/pkg/logger"
)

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithScorer replaces the default points table.
func WithScorer(s scoring.Scorer) Option {
	return func(e *Engine) {
		if s != nil {
			e.scorer = s
		}
	}
}

// WithLogger sets a custom logger for the engine.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithMaxRankAttempts bounds how often a rank pass restarts after a conflict.
func WithMaxRankAttempts(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxRankAttempts = n
		}
	}
}
