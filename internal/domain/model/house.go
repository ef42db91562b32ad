// Package model contains the scoreboard entities passed between layers.
//
// Entities are plain structs with explicit optional fields. Conversion from
// and to stored documents lives in the repository package; Validate methods
// here only check field values.
package model

import (
	"fmt"
	"strings"
	"time"
)

// House is a competing team with a cumulative score and a rank.
type House struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Score     int       `json:"score"`
	Rank      int       `json:"rank"`
	Color     Color     `json:"color"`
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"createdAt"`
}

// Persisted reports whether the house has a store identity.
func (h House) Persisted() bool { return h.ID != "" }

// Validate checks a house before it is written.
func (h House) Validate() error {
	if strings.TrimSpace(h.Name) == "" {
		return fmt.Errorf("%w: house name is required", ErrInvalid)
	}
	if h.Score < 0 {
		return fmt.Errorf("%w: house score must not be negative", ErrInvalid)
	}
	if h.Rank < 0 {
		return fmt.Errorf("%w: house rank must not be negative", ErrInvalid)
	}
	if h.Color != "" && !h.Color.Valid() {
		return fmt.Errorf("%w: unknown color %q", ErrInvalid, h.Color)
	}
	return nil
}

// DefaultHouses is the fixed set created when the houses collection is empty,
// in nominal order.
func DefaultHouses() []House {
	return []House{
		{Name: "Tagore", Rank: 1, Color: ColorTagore},
		{Name: "Gandhi", Rank: 2, Color: ColorGandhi},
		{Name: "Nehru", Rank: 3, Color: ColorNehru},
		{Name: "Delany", Rank: 4, Color: ColorDelany},
	}
}

// CloneHouses returns a copy of hs that shares no backing array.
func CloneHouses(hs []House) []House {
	if hs == nil {
		return nil
	}
	return append(make([]House, 0, len(hs)), hs...)
}
