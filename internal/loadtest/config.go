// Package loadtest drives a running scoreboard over HTTP: it submits random
// event results concurrently, replays some idempotency keys, and checks that
// house scores and ranks end up where the submissions say they should.
//
// The run assumes it is the only writer while it is active.
package loadtest

import (
	"errors"
	"time"
)

// Defaults for Config fields left zero.
const (
	DefaultWorkers       = 8
	DefaultTimeout       = 10 * time.Second
	DefaultSettleTimeout = 30 * time.Second
	DefaultBusyRetries   = 5
	defaultPollInterval  = 100 * time.Millisecond
	defaultBusyBackoff   = 50 * time.Millisecond
)

// Sentinel errors.
var (
	ErrUnhealthy    = errors.New("service unhealthy")
	ErrNoHouses     = errors.New("no houses to score")
	ErrScoreDrift   = errors.New("house scores do not match submissions")
	ErrInconsistent = errors.New("house ranks disagree with scores")
)

// Config holds configuration for a run.
type Config struct {
	BaseURL   string        // Base URL of the service
	NumEvents int           // Number of distinct events to submit
	Workers   int           // Number of concurrent submitters
	Timeout   time.Duration // Per request timeout
	// DuplicateRate is the fraction of events submitted a second time with
	// the same idempotency key.
	DuplicateRate float64
	// SettleTimeout bounds how long to wait for the live view to show the
	// expected scores.
	SettleTimeout time.Duration
	// BusyRetries is how many times a 429 answer is retried.
	BusyRetries int
	// Seed makes generation repeatable; 0 picks one from the clock.
	Seed    uint64
	Verbose bool
}

func (c Config) withDefaults() Config {
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.SettleTimeout <= 0 {
		c.SettleTimeout = DefaultSettleTimeout
	}
	if c.BusyRetries < 0 {
		c.BusyRetries = 0
	}
	if c.DuplicateRate < 0 {
		c.DuplicateRate = 0
	}
	if c.DuplicateRate > 1 {
		c.DuplicateRate = 1
	}
	if c.Seed == 0 {
		c.Seed = uint64(time.Now().UnixNano())
	}
	return c
}

// Stats holds run statistics.
type Stats struct {
	Generated int `json:"generated"`
	Submitted int `json:"submitted"`
	Created   int `json:"created"`
	Duplicate int `json:"duplicate"`
	Busy      int `json:"busy"`
	Failed    int `json:"failed"`
	// Expected is the points each house should have gained.
	Expected map[string]int `json:"expected"`
	// Exact is false when a failed request may or may not have been recorded,
	// in which case scores are not checked.
	Exact    bool          `json:"exact"`
	Start    time.Time     `json:"start"`
	End      time.Time     `json:"end"`
	Duration time.Duration `json:"duration"`
}
