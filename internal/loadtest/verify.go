package loadtest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/okian/housecup/internal/domain/model"
	"github.com/okian/housecup/internal/domain/ranking"
	"github.com/okian/housecup/internal/domain/scoring"
)

// tally fills the outcome counters and the expected award per house.
func tally(stats *Stats, subs []Submission, outcomes []outcome, scorer scoring.Scorer) {
	stats.Submitted = len(subs)
	stats.Expected = make(map[string]int)
	for i, o := range outcomes {
		switch o {
		case outcomeCreated:
			stats.Created++
			d := subs[i].Draft
			stats.Expected[d.House] += scorer.Points(d.Position, d.Type)
		case outcomeDuplicate:
			stats.Duplicate++
		case outcomeBusy:
			stats.Busy++
		default:
			stats.Failed++
		}
	}
	stats.Exact = stats.Failed == 0
}

// mismatches lists houses whose score is not before plus expected.
func mismatches(before, after []model.House, expected map[string]int) []string {
	prior := make(map[string]int, len(before))
	for _, h := range before {
		prior[h.Name] = h.Score
	}
	var out []string
	for _, h := range after {
		want := prior[h.Name] + expected[h.Name]
		if h.Score != want {
			out = append(out, fmt.Sprintf("%s: score %d, want %d", h.Name, h.Score, want))
		}
	}
	sort.Strings(out)
	return out
}

// settle polls /houses until scores match, or only ranks once stats are not
// exact, and returns the final houses.
func settle(ctx context.Context, c *httpClient, before []model.House, stats *Stats, timeout, poll time.Duration) ([]model.House, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var (
		houses []model.House
		diff   []string
	)
	ticker := time.NewTicker(poll)
	defer ticker.Stop()
	for {
		var current []model.House
		err := c.getJSON(ctx, "/houses", &current)
		if err == nil {
			houses = current
			diff = nil
			if stats.Exact {
				diff = mismatches(before, houses, stats.Expected)
			}
			if len(diff) == 0 && ranking.Consistent(houses) {
				return houses, nil
			}
		}

		select {
		case <-ctx.Done():
			switch {
			case houses == nil:
				return nil, fmt.Errorf("read houses: %w", ctx.Err())
			case len(diff) > 0:
				return houses, fmt.Errorf("%w: %s", ErrScoreDrift, strings.Join(diff, "; "))
			default:
				return houses, ErrInconsistent
			}
		case <-ticker.C:
		}
	}
}
