// Package reconcile turns a recorded event result into point awards and keeps
// house ranks consistent with scores.
//
// Two write paths exist. Reconcile works from a caller-supplied house
// snapshot and overwrites score and rank house by house; two overlapping
// calls can lose an award. Record reads houses fresh, adds the award with a
// version-guarded increment and rewrites only ranks that moved, each guarded
// by the version it was computed from. Record is safe to retry and is meant to
// be driven by one serialized worker.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/housecup/internal/adapters/store"
	"github.com/okian/housecup/internal/domain/model"
	"github.com/okian/housecup/internal/domain/ranking"
	"github.com/okian/housecup/internal/domain/scoring"
	"github.com/okian/housecup/pkg/logger"
	"github.com/okian/housecup/pkg/metrics"
)

const defaultMaxRankAttempts = 32

// Modes reported to metrics.
const (
	ModeSnapshot   = "snapshot"
	ModeSerialized = "serialized"
	ModeRepair     = "repair"
)

// Houses is the house persistence the engine needs.
type Houses interface {
	GetAll(ctx context.Context) ([]model.House, error)
	UpdateScore(ctx context.Context, id string, score int) error
	UpdateRank(ctx context.Context, id string, rank int) error
	AddScore(ctx context.Context, id string, pts int) (model.House, error)
	SetRankIf(ctx context.Context, h model.House, rank int) error
}

// Events persists event results.
type Events interface {
	Add(ctx context.Context, e model.EventResult) (string, error)
}

// Outcome describes one reconciliation.
type Outcome struct {
	EventID string        `json:"eventId"`
	Points  int           `json:"points"`
	Matched bool          `json:"matched"`
	Houses  []model.House `json:"houses"`
	// Written counts houses written to the store.
	Written int `json:"written"`
}

// Engine applies event results to houses.
type Engine struct {
	houses          Houses
	events          Events
	scorer          scoring.Scorer
	logger          logger.Logger
	maxRankAttempts int
}

// New creates an Engine.
func New(houses Houses, events Events, opts ...Option) *Engine {
	e := &Engine{
		houses:          houses,
		events:          events,
		scorer:          scoring.NewTable(),
		logger:          logger.Get().Named("reconcile"),
		maxRankAttempts: defaultMaxRankAttempts,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Points scores a draft.
func (e *Engine) Points(d model.EventDraft) int {
	return e.scorer.Points(d.Position, d.Type)
}

// Reconcile records the draft and propagates the award using snapshot as the
// current house state. For every persisted house it writes score then rank,
// one house at a time. A failure stops propagation without rollback and is
// returned as *PartialWriteError; the event stays recorded.
//
// Reconcile is kept as the reference, non-serialized path. The service submits
// through Record on its single worker instead.
func (e *Engine) Reconcile(ctx context.Context, d model.EventDraft, snapshot []model.House) (out Outcome, err error) {
	start := time.Now()
	defer func() { metrics.RecordReconcile(ModeSnapshot, sinceMs(start), err) }()

	out, err = e.record(ctx, d)
	if err != nil {
		return out, err
	}

	awarded, matched := ranking.Award(snapshot, d.House, out.Points)
	out.Matched = matched
	e.noteAward(ctx, d, out.Points, matched)
	out.Houses = ranking.Rerank(awarded)

	for _, h := range out.Houses {
		if !h.Persisted() {
			continue
		}
		if err := e.houses.UpdateScore(ctx, h.ID, h.Score); err != nil {
			return out, &PartialWriteError{Written: out.Written, HouseID: h.ID, Err: err}
		}
		if err := e.houses.UpdateRank(ctx, h.ID, h.Rank); err != nil {
			return out, &PartialWriteError{Written: out.Written, HouseID: h.ID, Err: err}
		}
		out.Written++
	}
	return out, nil
}

// Record records the draft, adds its points to the matching stored house and
// settles ranks from a fresh read. Callers must not run Record concurrently
// with itself for ordering guarantees between submissions; correctness of each
// individual write does not depend on it.
func (e *Engine) Record(ctx context.Context, d model.EventDraft) (out Outcome, err error) {
	start := time.Now()
	defer func() { metrics.RecordReconcile(ModeSerialized, sinceMs(start), err) }()

	out, err = e.record(ctx, d)
	if err != nil {
		return out, err
	}

	current, err := e.houses.GetAll(ctx)
	if err != nil {
		return out, fmt.Errorf("read houses: %w", err)
	}
	for _, h := range current {
		if h.Name == d.House && h.Persisted() {
			out.Matched = true
			if out.Points > 0 {
				if _, err := e.houses.AddScore(ctx, h.ID, out.Points); err != nil {
					return out, err
				}
				out.Written++
			}
			break
		}
	}
	e.noteAward(ctx, d, out.Points, out.Matched)

	houses, moved, err := e.settleRanks(ctx)
	out.Houses = houses
	out.Written += moved
	return out, err
}

// Repair reads houses fresh and rewrites ranks that disagree with scores.
// It returns the number of ranks written.
func (e *Engine) Repair(ctx context.Context) (moved int, err error) {
	start := time.Now()
	defer func() { metrics.RecordReconcile(ModeRepair, sinceMs(start), err) }()

	_, moved, err = e.settleRanks(ctx)
	if moved > 0 {
		metrics.RecordRankRepairs(moved)
		e.logger.Info(ctx, "ranks repaired", logger.Int("houses", moved))
	}
	return moved, err
}

func (e *Engine) record(ctx context.Context, d model.EventDraft) (Outcome, error) {
	if err := d.Validate(); err != nil {
		return Outcome{}, err
	}
	pts := e.Points(d)
	id, err := e.events.Add(ctx, d.Result(pts))
	if err != nil {
		return Outcome{}, fmt.Errorf("record event: %w", err)
	}
	metrics.RecordEventRecorded(string(d.Type))
	return Outcome{EventID: id, Points: pts}, nil
}

func (e *Engine) noteAward(ctx context.Context, d model.EventDraft, pts int, matched bool) {
	if !matched {
		metrics.RecordUnmatchedHouse()
		e.logger.Warn(ctx, "event house matches no house, no points awarded",
			logger.String("house", d.House), logger.String("event", d.Name))
		return
	}
	metrics.RecordPointsAwarded(d.House, pts)
}

// settleRanks recomputes ranks from a fresh read and writes the ones that
// moved, each guarded by the version it was computed from. On a conflict the
// pass starts over from a new read.
func (e *Engine) settleRanks(ctx context.Context) ([]model.House, int, error) {
	moved := 0
	for attempt := 0; attempt < e.maxRankAttempts; attempt++ {
		current, err := e.houses.GetAll(ctx)
		if err != nil {
			return nil, moved, fmt.Errorf("read houses: %w", err)
		}
		ranked := ranking.Rerank(current)
		conflict := false
		for _, h := range ranking.Changed(current, ranked) {
			if err := e.houses.SetRankIf(ctx, h, h.Rank); err != nil {
				if errors.Is(err, store.ErrVersionConflict) {
					conflict = true
					break
				}
				return ranked, moved, err
			}
			moved++
		}
		if !conflict {
			return ranked, moved, nil
		}
	}
	return nil, moved, ErrRankContention
}

func sinceMs(t time.Time) float64 {
	return float64(time.Since(t).Microseconds()) / 1000
}
