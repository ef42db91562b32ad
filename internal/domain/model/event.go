package model

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the calendar date format of events.
const DateLayout = "2006-01-02"

// EventDraft is an event result as submitted, before points are computed.
type EventDraft struct {
	Name     string     `json:"name"`
	Category Category   `json:"category"`
	Type     ResultType `json:"type"`
	House    string     `json:"house"`
	Position int        `json:"position"`
	Date     string     `json:"date"`
}

// Validate checks the submitted fields. Unknown house names are not an error.
func (d EventDraft) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("%w: event name is required", ErrInvalid)
	}
	if !d.Category.ValidForEvent() {
		return fmt.Errorf("%w: unknown category %q", ErrInvalid, d.Category)
	}
	if !d.Type.Valid() {
		return fmt.Errorf("%w: unknown result type %q", ErrInvalid, d.Type)
	}
	if strings.TrimSpace(d.House) == "" {
		return fmt.Errorf("%w: house is required", ErrInvalid)
	}
	if d.Position < 1 {
		return fmt.Errorf("%w: position must be positive", ErrInvalid)
	}
	if d.Date != "" {
		if _, err := time.Parse(DateLayout, d.Date); err != nil {
			return fmt.Errorf("%w: date must be YYYY-MM-DD", ErrInvalid)
		}
	}
	return nil
}

// Result attaches the awarded points.
func (d EventDraft) Result(points int) EventResult {
	return EventResult{EventDraft: d, Points: points}
}

// EventResult is a recorded event outcome. Points is fixed at creation.
type EventResult struct {
	ID string `json:"id"`
	EventDraft
	Points    int       `json:"points"`
	CreatedAt time.Time `json:"createdAt"`
}

// EventPatch holds optional fields for a direct event edit. Points are not
// patchable; they stay as scored when the event was recorded.
type EventPatch struct {
	Name     *string     `json:"name,omitempty"`
	Category *Category   `json:"category,omitempty"`
	Type     *ResultType `json:"type,omitempty"`
	House    *string     `json:"house,omitempty"`
	Position *int        `json:"position,omitempty"`
	Date     *string     `json:"date,omitempty"`
}

// Validate checks only the fields that are set.
func (p EventPatch) Validate() error {
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return fmt.Errorf("%w: event name must not be empty", ErrInvalid)
	}
	if p.Category != nil && !p.Category.ValidForEvent() {
		return fmt.Errorf("%w: unknown category %q", ErrInvalid, *p.Category)
	}
	if p.Type != nil && !p.Type.Valid() {
		return fmt.Errorf("%w: unknown result type %q", ErrInvalid, *p.Type)
	}
	if p.Position != nil && *p.Position < 1 {
		return fmt.Errorf("%w: position must be positive", ErrInvalid)
	}
	if p.Date != nil {
		if _, err := time.Parse(DateLayout, *p.Date); err != nil {
			return fmt.Errorf("%w: date must be YYYY-MM-DD", ErrInvalid)
		}
	}
	return nil
}

// Empty reports whether no field is set.
func (p EventPatch) Empty() bool {
	return p.Name == nil && p.Category == nil && p.Type == nil && p.House == nil &&
		p.Position == nil && p.Date == nil
}
