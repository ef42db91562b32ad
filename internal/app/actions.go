package service

import (
	"context"
	"errors"
	"fmt"
	"io"

	eventqueue "github.com/okian/housecup/internal/adapters/mq/queue"
	"github.com/okian/housecup/internal/adapters/mq/worker"
	"github.com/okian/housecup/internal/domain/model"
	"github.com/okian/housecup/internal/domain/reconcile"
	"github.com/okian/housecup/internal/domain/types"
	"github.com/okian/housecup/pkg/logger"
	"github.com/okian/housecup/pkg/metrics"
)

// AddEvent records an event result and awards its points through the
// serialized reconciler, waiting for the outcome. A non-empty key makes the
// call idempotent: a repeated key is acknowledged as a duplicate without
// recording anything.
func (s *Service) AddEvent(ctx context.Context, key string, d model.EventDraft) (types.Submission, error) {
	if err := d.Validate(); err != nil {
		return types.Submission{}, err
	}
	if err := s.live(); err != nil {
		return types.Submission{}, err
	}

	if key != "" && s.deduper.SeenAndRecord(ctx, key) {
		metrics.RecordEventDuplicate()
		s.logger.Debug(ctx, "duplicate event submission, skipping", logger.String("key", key))
		return types.Submission{Duplicate: true}, nil
	}

	out, err := s.submit(ctx, eventqueue.NewJob(key, d))
	if err != nil {
		// Keys stay recorded once the event itself is stored so a retry
		// cannot record it twice.
		if key != "" && out.EventID == "" && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			s.deduper.Unrecord(ctx, key)
		}
		return submission(out), err
	}
	return submission(out), nil
}

// Repair rewrites house ranks that disagree with scores and returns how many
// moved. It runs through the reconciler like any submission.
func (s *Service) Repair(ctx context.Context) (int, error) {
	if err := s.live(); err != nil {
		return 0, err
	}
	out, err := s.submit(ctx, eventqueue.NewRepairJob())
	return out.Written, err
}

// UpdateEvent edits a recorded event. House scores are not recomputed.
func (s *Service) UpdateEvent(ctx context.Context, id string, p model.EventPatch) error {
	return s.events.Update(ctx, id, p)
}

// DeleteEvent removes a recorded event. House scores are not recomputed.
func (s *Service) DeleteEvent(ctx context.Context, id string) error {
	return s.events.Delete(ctx, id)
}

// AddEventTemplate stores a template and returns its id.
func (s *Service) AddEventTemplate(ctx context.Context, t model.EventTemplate) (string, error) {
	return s.templates.Add(ctx, t)
}

// UpdateEventTemplate edits a template.
func (s *Service) UpdateEventTemplate(ctx context.Context, id string, p model.TemplatePatch) error {
	return s.templates.Update(ctx, id, p)
}

// DeleteEventTemplate removes a template.
func (s *Service) DeleteEventTemplate(ctx context.Context, id string) error {
	return s.templates.Delete(ctx, id)
}

// AddHouse stores a new house with score 0 ranked after every existing house.
func (s *Service) AddHouse(ctx context.Context, name string, color model.Color) (string, error) {
	h := model.House{Name: name, Color: color}
	if err := h.Validate(); err != nil {
		return "", err
	}
	current, err := s.houses.GetAll(ctx)
	if err != nil {
		return "", err
	}
	for _, c := range current {
		if c.Name == name {
			return "", fmt.Errorf("%w: house %q already exists", model.ErrInvalid, name)
		}
	}
	h.Rank = len(current) + 1
	id, err := s.houses.Add(ctx, h)
	if err != nil {
		return "", err
	}

	// Houses added while ranks were already out of order get settled.
	if s.state.Load() == stateStarted {
		if _, err := s.submit(ctx, eventqueue.NewRepairJob()); err != nil {
			s.logger.Warn(ctx, "rank repair after adding house failed", logger.Error(err))
		}
	}
	return id, nil
}

// UpdateHouse changes the display fields of a house.
func (s *Service) UpdateHouse(ctx context.Context, id, name string, color model.Color) error {
	return s.houses.UpdateDetails(ctx, id, name, color)
}

// AddWinner stores a winner and returns its id.
func (s *Service) AddWinner(ctx context.Context, w model.Winner) (string, error) {
	return s.winners.Add(ctx, w)
}

// AddWinnerPhoto sets the photo URL of a winner.
func (s *Service) AddWinnerPhoto(ctx context.Context, winnerID, url string) error {
	return s.winners.UpdatePhoto(ctx, winnerID, url)
}

// UploadWinnerPhoto uploads a photo for an existing winner, writes its URL
// back onto the winner and returns it.
func (s *Service) UploadWinnerPhoto(ctx context.Context, winnerID, fileName, contentType string, body io.Reader) (string, error) {
	if _, err := s.winners.Get(ctx, winnerID); err != nil {
		return "", err
	}
	url, err := s.winners.UploadPhoto(ctx, winnerID, fileName, contentType, body)
	if err != nil {
		return "", err
	}
	if err := s.winners.UpdatePhoto(ctx, winnerID, url); err != nil {
		return "", fmt.Errorf("photo uploaded to %s but not linked: %w", url, err)
	}
	s.logger.Info(ctx, "winner photo uploaded", logger.String("winner", winnerID), logger.String("url", url))
	return url, nil
}

func (s *Service) live() error {
	switch s.state.Load() {
	case stateStarted:
		return nil
	case stateStopped:
		return ErrStopped
	default:
		return ErrNotStarted
	}
}

// submit hands a job to the reconciler and waits for its reply.
func (s *Service) submit(ctx context.Context, job eventqueue.Job) (reconcile.Outcome, error) { //nolint:gocritic // hugeParam: Job is passed by value through the channel
	if err := s.queue.Enqueue(ctx, job); err != nil {
		switch {
		case errors.Is(err, eventqueue.ErrFull):
			return reconcile.Outcome{}, ErrBusy
		case errors.Is(err, eventqueue.ErrClosed):
			return reconcile.Outcome{}, ErrStopped
		}
		return reconcile.Outcome{}, err
	}

	select {
	case reply := <-job.Reply:
		if errors.Is(reply.Err, worker.ErrStopped) {
			return reply.Outcome, ErrStopped
		}
		return reply.Outcome, reply.Err
	case <-s.stopCh:
		return reconcile.Outcome{}, ErrStopped
	case <-ctx.Done():
		return reconcile.Outcome{}, ctx.Err()
	}
}

func submission(out reconcile.Outcome) types.Submission {
	return types.Submission{
		EventID: out.EventID,
		Points:  out.Points,
		Matched: out.Matched,
		Houses:  model.CloneHouses(out.Houses),
	}
}
