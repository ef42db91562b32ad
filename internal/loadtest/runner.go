package loadtest

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/okian/housecup/internal/domain/model"
	"github.com/okian/housecup/internal/domain/scoring"
	"github.com/okian/housecup/internal/domain/types"
	"github.com/okian/housecup/pkg/logger"
)

// Report is the result of a run.
type Report struct {
	Stats  Stats         `json:"stats"`
	Before []model.House `json:"before"`
	After  []model.House `json:"after"`
}

// Run executes the complete load test. The returned report is filled as far
// as the run got, also on error.
func Run(ctx context.Context, cfg Config, l logger.Logger) (*Report, error) {
	cfg = cfg.withDefaults()
	if l == nil {
		l = logger.Get().Named("loadtest")
	}
	report := &Report{Stats: Stats{Start: time.Now()}}
	defer func() {
		report.Stats.End = time.Now()
		report.Stats.Duration = report.Stats.End.Sub(report.Stats.Start)
	}()

	l.Info(ctx, "starting load test",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("events", cfg.NumEvents),
		logger.Int("workers", cfg.Workers),
		logger.Float64("duplicateRate", cfg.DuplicateRate),
		logger.Duration("timeout", cfg.Timeout))

	client := newHTTPClient(cfg.BaseURL, cfg.Timeout)

	// Step 1: wait for a settled view
	snap, err := waitReady(ctx, client, cfg.SettleTimeout)
	if err != nil {
		return report, err
	}
	if len(snap.Houses) == 0 {
		return report, ErrNoHouses
	}
	report.Before = snap.Houses

	// Step 2: generate
	names := make([]string, len(snap.Houses))
	for i, h := range snap.Houses {
		names[i] = h.Name
	}
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed>>1|1))
	subs := Generate(names, snap.EventTemplates, cfg.NumEvents, cfg.DuplicateRate, rng)
	report.Stats.Generated = cfg.NumEvents

	// Step 3: submit
	outcomes := submitAll(ctx, cfg, client, subs, l)
	tally(&report.Stats, subs, outcomes, scoring.NewTable())
	if !report.Stats.Exact {
		l.Warn(ctx, "some submissions failed; checking ranks only", logger.Int("failed", report.Stats.Failed))
	}

	// Step 4: verify
	report.After, err = settle(ctx, client, report.Before, &report.Stats, cfg.SettleTimeout, defaultPollInterval)

	s := report.Stats
	l.Info(ctx, "final statistics",
		logger.Int("generated", s.Generated),
		logger.Int("submitted", s.Submitted),
		logger.Int("created", s.Created),
		logger.Int("duplicate", s.Duplicate),
		logger.Int("busy", s.Busy),
		logger.Int("failed", s.Failed),
		logger.Duration("duration", time.Since(s.Start)),
		logger.Float64("eventsPerSecond", float64(s.Submitted)/time.Since(s.Start).Seconds()))
	if err != nil {
		return report, err
	}
	l.Info(ctx, "load test passed")
	return report, nil
}

func waitReady(ctx context.Context, c *httpClient, timeout time.Duration) (types.Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	ticker := time.NewTicker(defaultPollInterval)
	defer ticker.Stop()

	var lastErr error
	for {
		var snap types.Snapshot
		lastErr = c.getJSON(ctx, "/snapshot", &snap)
		if lastErr == nil && !snap.Loading {
			return snap, nil
		}
		select {
		case <-ctx.Done():
			if lastErr == nil {
				lastErr = ctx.Err()
			}
			return types.Snapshot{}, fmt.Errorf("%w: %v", ErrUnhealthy, lastErr)
		case <-ticker.C:
		}
	}
}
