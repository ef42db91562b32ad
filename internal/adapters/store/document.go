package store

import (
	"encoding/json"
	"math"
	"sort"
	"strings"
)

// Clean returns a copy of doc without nil values, empty strings and
// reserved fields.
func Clean(doc Document) Document {
	out := make(Document, len(doc))
	for k, v := range doc {
		if reserved(k) || v == nil {
			continue
		}
		if s, ok := v.(string); ok && s == "" {
			continue
		}
		out[k] = v
	}
	return out
}

// Copy returns a shallow copy of doc.
func Copy(doc Document) Document {
	if doc == nil {
		return nil
	}
	out := make(Document, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	return out
}

// ID returns the document id or "".
func (d Document) ID() string {
	s, _ := d[FieldID].(string)
	return s
}

// Version returns the document version or 0.
func (d Document) Version() int64 {
	v, _ := Int64(d[FieldVersion])
	return v
}

// Int64 converts a numeric document value. Floats must be integral.
func Int64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	}
	return 0, false
}

// Sort orders docs in place, stable. Documents missing the order field sort last.
func Sort(docs []Document, order Order) {
	sort.SliceStable(docs, func(i, j int) bool {
		a, b := docs[i], docs[j]
		if c := compareField(a[order.Field], b[order.Field], order.Desc); c != 0 {
			return c < 0
		}
		if c := strings.Compare(str(a[FieldCreatedAt]), str(b[FieldCreatedAt])); c != 0 {
			return c < 0
		}
		return a.ID() < b.ID()
	})
}

func compareField(a, b any, desc bool) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	c := compareValues(a, b)
	if desc {
		return -c
	}
	return c
}

func compareValues(a, b any) int {
	if x, ok := number(a); ok {
		if y, ok := number(b); ok {
			switch {
			case x < y:
				return -1
			case x > y:
				return 1
			}
			return 0
		}
	}
	return strings.Compare(str(a), str(b))
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

func str(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case json.Number:
		return s.String()
	}
	return ""
}

func reserved(k string) bool {
	return k == FieldID || k == FieldCreatedAt || k == FieldVersion
}

func merge(doc, fields Document) {
	for k, v := range fields {
		if reserved(k) {
			continue
		}
		if v == nil {
			delete(doc, k)
			continue
		}
		doc[k] = v
	}
}
