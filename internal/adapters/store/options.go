package store

import (
	"time"

	"github.com/okian/housecup/pkg/logger"
)

type settings struct {
	log    logger.Logger
	now    func() time.Time
	prefix string
}

func defaultSettings(component string) settings {
	return settings{
		log:    logger.Get().Named(component),
		now:    time.Now,
		prefix: "housecup",
	}
}

// Option configures a store backend.
type Option func(*settings)

// WithLogger sets the logger used for subscription failures.
func WithLogger(l logger.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.log = l
		}
	}
}

// WithClock sets the source of creation timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *settings) {
		if now != nil {
			s.now = now
		}
	}
}

// WithKeyPrefix namespaces Redis keys and channels.
func WithKeyPrefix(prefix string) Option {
	return func(s *settings) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}
