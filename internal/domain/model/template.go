package model

import (
	"fmt"
	"strings"
	"time"
)

// EventTemplate is catalog data used to prefill event results.
type EventTemplate struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Category    Category   `json:"category"`
	Type        ResultType `json:"type"`
	Description string     `json:"description,omitempty"`
	Date        string     `json:"date,omitempty"`
	Time        string     `json:"time,omitempty"`
	Venue       string     `json:"venue,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// Validate checks a template before it is written.
func (t EventTemplate) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("%w: template name is required", ErrInvalid)
	}
	if !t.Category.ValidForTemplate() {
		return fmt.Errorf("%w: unknown category %q", ErrInvalid, t.Category)
	}
	if !t.Type.Valid() {
		return fmt.Errorf("%w: unknown result type %q", ErrInvalid, t.Type)
	}
	return nil
}

// TemplatePatch holds optional fields for a template edit.
type TemplatePatch struct {
	Name        *string     `json:"name,omitempty"`
	Category    *Category   `json:"category,omitempty"`
	Type        *ResultType `json:"type,omitempty"`
	Description *string     `json:"description,omitempty"`
	Date        *string     `json:"date,omitempty"`
	Time        *string     `json:"time,omitempty"`
	Venue       *string     `json:"venue,omitempty"`
}

// Validate checks only the fields that are set.
func (p TemplatePatch) Validate() error {
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return fmt.Errorf("%w: template name must not be empty", ErrInvalid)
	}
	if p.Category != nil && !p.Category.ValidForTemplate() {
		return fmt.Errorf("%w: unknown category %q", ErrInvalid, *p.Category)
	}
	if p.Type != nil && !p.Type.Valid() {
		return fmt.Errorf("%w: unknown result type %q", ErrInvalid, *p.Type)
	}
	return nil
}

// Empty reports whether no field is set.
func (p TemplatePatch) Empty() bool {
	return p.Name == nil && p.Category == nil && p.Type == nil && p.Description == nil &&
		p.Date == nil && p.Time == nil && p.Venue == nil
}
