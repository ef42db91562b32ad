package model

import (
	"fmt"
	"strings"
	"time"
)

// Winner is a person placed in an event. Event and House are denormalized names.
type Winner struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Event     string    `json:"event"`
	House     string    `json:"house"`
	Position  int       `json:"position"`
	Image     string    `json:"image,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Validate checks a winner before it is written.
func (w Winner) Validate() error {
	if strings.TrimSpace(w.Name) == "" {
		return fmt.Errorf("%w: winner name is required", ErrInvalid)
	}
	if strings.TrimSpace(w.Event) == "" {
		return fmt.Errorf("%w: winner event is required", ErrInvalid)
	}
	if strings.TrimSpace(w.House) == "" {
		return fmt.Errorf("%w: winner house is required", ErrInvalid)
	}
	if w.Position < 1 {
		return fmt.Errorf("%w: position must be positive", ErrInvalid)
	}
	return nil
}
