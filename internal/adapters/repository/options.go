package repository

import "github.com/okian/housecup/pkg/logger"

// Option applies a configuration option to a repository.
type Option func(*base)

// WithLogger sets the logger used for skipped documents.
func WithLogger(l logger.Logger) Option {
	return func(b *base) {
		if l != nil {
			b.log = l
		}
	}
}

// WithMaxRetries bounds retries of version-guarded writes.
func WithMaxRetries(n int) Option {
	return func(b *base) {
		if n > 0 {
			b.maxRetries = n
		}
	}
}
