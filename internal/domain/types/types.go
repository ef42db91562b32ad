// Package types contains the view types shared by the aggregator and its consumers.
package types

import "github.com/okian/housecup/internal/domain/model"

// Snapshot is the composed live view of every collection.
type Snapshot struct {
	Houses         []model.House         `json:"houses"`
	Events         []model.EventResult   `json:"events"`
	Winners        []model.Winner        `json:"winners"`
	EventTemplates []model.EventTemplate `json:"eventTemplates"`
	Loading        bool                  `json:"loading"`
}

// Clone returns a deep copy. Nil slices come back empty so encoders emit [].
func (s Snapshot) Clone() Snapshot {
	return Snapshot{
		Houses:         cloneSlice(s.Houses),
		Events:         cloneSlice(s.Events),
		Winners:        cloneSlice(s.Winners),
		EventTemplates: cloneSlice(s.EventTemplates),
		Loading:        s.Loading,
	}
}

// Leader returns the rank 1 house, if any.
func (s Snapshot) Leader() (model.House, bool) {
	for _, h := range s.Houses {
		if h.Rank == 1 {
			return h, true
		}
	}
	return model.House{}, false
}

// Submission is the result of an event submission.
type Submission struct {
	EventID string        `json:"eventId,omitempty"`
	Points  int           `json:"points"`
	Matched bool          `json:"matched"`
	Houses  []model.House `json:"houses,omitempty"`
	// Duplicate is set when the idempotency key was already seen; nothing was recorded.
	Duplicate bool `json:"duplicate"`
}

// Collection names the count of one store collection.
type Collection struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
	Error string `json:"error,omitempty"`
}

// Diagnostics describes store reachability.
type Diagnostics struct {
	Backend     string       `json:"backend"`
	Reachable   bool         `json:"reachable"`
	Error       string       `json:"error,omitempty"`
	Collections []Collection `json:"collections"`
}

func cloneSlice[T any](in []T) []T {
	out := make([]T, len(in))
	copy(out, in)
	return out
}
