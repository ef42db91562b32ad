// Package scoring maps a finishing position to awarded points.
package scoring

import "github.com/okian/housecup/internal/domain/model"

// Scorer computes points for a finishing position. Implementations are pure.
type Scorer interface {
	Points(position int, kind model.ResultType) int
}

// Option applies a configuration option to a Table.
type Option func(*Table)

// WithTable replaces the points table for one result type.
// Positions are 1-based: pts[0] is first place.
func WithTable(kind model.ResultType, pts ...int) Option {
	return func(t *Table) {
		if kind.Valid() {
			t.tables[kind] = append([]int(nil), pts...)
		}
	}
}

// Table is the fixed-table Scorer.
type Table struct {
	tables map[model.ResultType][]int
}

// Default tables.
var (
	individualPoints = []int{10, 7, 5, 3, 2, 1}
	groupPoints      = []int{20, 14, 10, 6}
)

// NewTable creates a Table populated with the default tables.
func NewTable(opts ...Option) *Table {
	t := &Table{tables: map[model.ResultType][]int{
		model.Individual: individualPoints,
		model.Group:      groupPoints,
	}}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Points returns the award for position, or 0 outside the table.
func (t *Table) Points(position int, kind model.ResultType) int {
	pts := t.tables[kind]
	if position < 1 || position > len(pts) {
		return 0
	}
	return pts[position-1]
}

var defaultTable = NewTable()

// Points scores with the default tables.
func Points(position int, kind model.ResultType) int {
	return defaultTable.Points(position, kind)
}
