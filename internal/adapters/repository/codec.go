package repository

import (
	"fmt"
	"time"

	"github.com/okian/housecup/internal/adapters/store"
	"github.com/okian/housecup/internal/domain/model"
)

// field readers validate one value each and record the first failure.
type reader struct {
	doc store.Document
	err error
}

func (r *reader) fail(key, want string) {
	if r.err == nil {
		r.err = fmt.Errorf("%w: %s must be %s", store.ErrInvalidDocument, key, want)
	}
}

func (r *reader) str(key string, required bool) string {
	v, ok := r.doc[key]
	if !ok || v == nil {
		if required {
			r.fail(key, "present")
		}
		return ""
	}
	s, ok := v.(string)
	if !ok || (required && s == "") {
		r.fail(key, "a non-empty string")
	}
	return s
}

func (r *reader) integer(key string, required bool) int {
	v, ok := r.doc[key]
	if !ok || v == nil {
		if required {
			r.fail(key, "present")
		}
		return 0
	}
	n, ok := store.Int64(v)
	if !ok {
		r.fail(key, "an integer")
	}
	return int(n)
}

func (r *reader) createdAt() time.Time {
	s, _ := r.doc[store.FieldCreatedAt].(string)
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		r.fail(store.FieldCreatedAt, "an RFC 3339 timestamp")
	}
	return t
}

func (r *reader) id() string {
	return r.str(store.FieldID, true)
}

func decodeHouse(d store.Document) (model.House, error) {
	r := &reader{doc: d}
	h := model.House{
		ID:        r.id(),
		Name:      r.str("name", true),
		Score:     r.integer("score", false),
		Rank:      r.integer("rank", false),
		Color:     model.Color(r.str("color", false)),
		Version:   d.Version(),
		CreatedAt: r.createdAt(),
	}
	if r.err != nil {
		return model.House{}, r.err
	}
	if err := h.Validate(); err != nil {
		return model.House{}, fmt.Errorf("%w: %v", store.ErrInvalidDocument, err)
	}
	return h, nil
}

func encodeHouse(h model.House) store.Document {
	return store.Document{
		"name":  h.Name,
		"score": h.Score,
		"rank":  h.Rank,
		"color": string(h.Color),
	}
}

func decodeEvent(d store.Document) (model.EventResult, error) {
	r := &reader{doc: d}
	e := model.EventResult{
		ID: r.id(),
		EventDraft: model.EventDraft{
			Name:     r.str("name", true),
			Category: model.Category(r.str("category", true)),
			Type:     model.ResultType(r.str("type", true)),
			House:    r.str("house", true),
			Position: r.integer("position", true),
			Date:     r.str("date", false),
		},
		Points:    r.integer("points", true),
		CreatedAt: r.createdAt(),
	}
	if r.err != nil {
		return model.EventResult{}, r.err
	}
	if err := e.Validate(); err != nil {
		return model.EventResult{}, fmt.Errorf("%w: %v", store.ErrInvalidDocument, err)
	}
	return e, nil
}

func encodeEvent(e model.EventResult) store.Document {
	return store.Document{
		"name":     e.Name,
		"category": string(e.Category),
		"type":     string(e.Type),
		"house":    e.House,
		"position": e.Position,
		"points":   e.Points,
		"date":     e.Date,
	}
}

func encodeEventPatch(p model.EventPatch) store.Document {
	d := store.Document{}
	if p.Name != nil {
		d["name"] = *p.Name
	}
	if p.Category != nil {
		d["category"] = string(*p.Category)
	}
	if p.Type != nil {
		d["type"] = string(*p.Type)
	}
	if p.House != nil {
		d["house"] = *p.House
	}
	if p.Position != nil {
		d["position"] = *p.Position
	}
	if p.Date != nil {
		d["date"] = *p.Date
	}
	return d
}

func decodeTemplate(d store.Document) (model.EventTemplate, error) {
	r := &reader{doc: d}
	t := model.EventTemplate{
		ID:          r.id(),
		Name:        r.str("name", true),
		Category:    model.Category(r.str("category", true)),
		Type:        model.ResultType(r.str("type", true)),
		Description: r.str("description", false),
		Date:        r.str("date", false),
		Time:        r.str("time", false),
		Venue:       r.str("venue", false),
		CreatedAt:   r.createdAt(),
	}
	if r.err != nil {
		return model.EventTemplate{}, r.err
	}
	if err := t.Validate(); err != nil {
		return model.EventTemplate{}, fmt.Errorf("%w: %v", store.ErrInvalidDocument, err)
	}
	return t, nil
}

func encodeTemplate(t model.EventTemplate) store.Document {
	return store.Document{
		"name":        t.Name,
		"category":    string(t.Category),
		"type":        string(t.Type),
		"description": t.Description,
		"date":        t.Date,
		"time":        t.Time,
		"venue":       t.Venue,
	}
}

// encodeTemplatePatch maps set fields. An optional field set to "" is removed.
func encodeTemplatePatch(p model.TemplatePatch) store.Document {
	d := store.Document{}
	if p.Name != nil {
		d["name"] = *p.Name
	}
	if p.Category != nil {
		d["category"] = string(*p.Category)
	}
	if p.Type != nil {
		d["type"] = string(*p.Type)
	}
	optional := map[string]*string{
		"description": p.Description,
		"date":        p.Date,
		"time":        p.Time,
		"venue":       p.Venue,
	}
	for k, v := range optional {
		switch {
		case v == nil:
		case *v == "":
			d[k] = nil
		default:
			d[k] = *v
		}
	}
	return d
}

func decodeWinner(d store.Document) (model.Winner, error) {
	r := &reader{doc: d}
	w := model.Winner{
		ID:        r.id(),
		Name:      r.str("name", true),
		Event:     r.str("event", true),
		House:     r.str("house", true),
		Position:  r.integer("position", true),
		Image:     r.str("image", false),
		CreatedAt: r.createdAt(),
	}
	if r.err != nil {
		return model.Winner{}, r.err
	}
	if err := w.Validate(); err != nil {
		return model.Winner{}, fmt.Errorf("%w: %v", store.ErrInvalidDocument, err)
	}
	return w, nil
}

func encodeWinner(w model.Winner) store.Document {
	return store.Document{
		"name":     w.Name,
		"event":    w.Event,
		"house":    w.House,
		"position": w.Position,
		"image":    w.Image,
	}
}
