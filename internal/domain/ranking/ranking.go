// Package ranking recomputes house ranks from scores.
package ranking

import (
	"sort"

	"github.com/okian/housecup/internal/domain/model"
)

// Award returns a copy of houses with pts added to the house whose name equals
// name exactly. matched is false when no house carries that name.
func Award(houses []model.House, name string, pts int) (out []model.House, matched bool) {
	out = model.CloneHouses(houses)
	for i := range out {
		if out[i].Name == name {
			out[i].Score += pts
			return out, true
		}
	}
	return out, false
}

// Rerank returns a copy of houses ordered by descending score with Rank set to
// position+1. Ties keep their prior relative order: by prior rank, then by
// input order. Houses with no prior rank sort after ranked ones.
func Rerank(houses []model.House) []model.House {
	out := model.CloneHouses(houses)
	sort.SliceStable(out, func(i, j int) bool {
		return priorRank(out[i]) < priorRank(out[j])
	})
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}

// Consistent reports whether ranks are exactly 1..N in order of non-increasing score.
func Consistent(houses []model.House) bool {
	byRank := make([]model.House, len(houses))
	seen := make([]bool, len(houses)+1)
	for _, h := range houses {
		if h.Rank < 1 || h.Rank > len(houses) || seen[h.Rank] {
			return false
		}
		seen[h.Rank] = true
		byRank[h.Rank-1] = h
	}
	for i := 1; i < len(byRank); i++ {
		if byRank[i].Score > byRank[i-1].Score {
			return false
		}
	}
	return true
}

// Changed returns the houses in next whose rank or score differs from the
// same house in prev, matched by ID. Houses without an ID are skipped.
func Changed(prev, next []model.House) []model.House {
	before := make(map[string]model.House, len(prev))
	for _, h := range prev {
		if h.Persisted() {
			before[h.ID] = h
		}
	}
	var out []model.House
	for _, h := range next {
		if !h.Persisted() {
			continue
		}
		if b, ok := before[h.ID]; !ok || b.Rank != h.Rank || b.Score != h.Score {
			out = append(out, h)
		}
	}
	return out
}

func priorRank(h model.House) int {
	if h.Rank < 1 {
		return int(^uint(0) >> 1)
	}
	return h.Rank
}
