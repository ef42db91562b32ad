package ranking_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/okian/housecup/internal/domain/model"
	"github.com/okian/housecup/internal/domain/ranking"
	"github.com/okian/housecup/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

func houses() []model.House {
	hs := model.DefaultHouses()
	for i := range hs {
		hs[i].ID = "h" + string(rune('1'+i))
	}
	return hs
}

func names(hs []model.House) []string {
	out := make([]string, len(hs))
	for i, h := range hs {
		out[i] = h.Name
	}
	return out
}

func TestAwardAndRerank(t *testing.T) {
	Convey("Given four houses at zero", t, func() {
		hs := houses()

		Convey("When Tagore wins an individual event", func() {
			awarded, matched := ranking.Award(hs, "Tagore", scoring.Points(1, model.Individual))
			ranked := ranking.Rerank(awarded)

			Convey("Then Tagore has 10 points and rank 1", func() {
				So(matched, ShouldBeTrue)
				So(ranked[0].Name, ShouldEqual, "Tagore")
				So(ranked[0].Score, ShouldEqual, 10)
				So(ranked[0].Rank, ShouldEqual, 1)
			})

			Convey("Then the others keep score 0 and ranks 2-4 in prior order", func() {
				So(names(ranked[1:]), ShouldResemble, []string{"Gandhi", "Nehru", "Delany"})
				for i, h := range ranked[1:] {
					So(h.Score, ShouldEqual, 0)
					So(h.Rank, ShouldEqual, i+2)
				}
				So(ranking.Consistent(ranked), ShouldBeTrue)
			})

			Convey("Then the input slice is untouched", func() {
				So(hs[0].Score, ShouldEqual, 0)
			})
		})

		Convey("When Delany wins a group event", func() {
			awarded, _ := ranking.Award(hs, "Delany", scoring.Points(1, model.Group))
			ranked := ranking.Rerank(awarded)

			Convey("Then Delany moves to the top and the rest shift down in order", func() {
				So(names(ranked), ShouldResemble, []string{"Delany", "Tagore", "Gandhi", "Nehru"})
				So(ranking.Consistent(ranked), ShouldBeTrue)
			})
		})

		Convey("When the house name matches nothing", func() {
			awarded, matched := ranking.Award(hs, "tagore", 10)

			Convey("Then nothing changes", func() {
				So(matched, ShouldBeFalse)
				So(cmp.Diff(hs, awarded), ShouldBeEmpty)
				So(ranking.Changed(hs, ranking.Rerank(awarded)), ShouldBeEmpty)
			})
		})

		Convey("When input order disagrees with prior ranks", func() {
			shuffled := []model.House{hs[3], hs[1], hs[0], hs[2]}

			Convey("Then ties resolve by prior rank", func() {
				So(names(ranking.Rerank(shuffled)), ShouldResemble, []string{"Tagore", "Gandhi", "Nehru", "Delany"})
			})
		})

		Convey("When a house has no rank yet", func() {
			extra := append(model.CloneHouses(hs), model.House{ID: "h5", Name: "Ashoka"})

			Convey("Then it is ranked last among equal scores", func() {
				ranked := ranking.Rerank(extra)
				So(ranked[4].Name, ShouldEqual, "Ashoka")
				So(ranked[4].Rank, ShouldEqual, 5)
			})
		})
	})
}

func TestRankInvariantOverSequences(t *testing.T) {
	Convey("Given a sequence of results applied one at a time", t, func() {
		hs := houses()
		results := []struct {
			house string
			pos   int
			kind  model.ResultType
		}{
			{"Nehru", 1, model.Group},
			{"Gandhi", 1, model.Individual},
			{"Gandhi", 2, model.Group},
			{"Tagore", 7, model.Individual},
			{"Delany", 3, model.Individual},
			{"Nehru", 4, model.Individual},
		}

		Convey("Then ranks are 1..N by non-increasing score after every step", func() {
			for _, r := range results {
				awarded, _ := ranking.Award(hs, r.house, scoring.Points(r.pos, r.kind))
				hs = ranking.Rerank(awarded)
				So(ranking.Consistent(hs), ShouldBeTrue)
			}
			So(names(hs), ShouldResemble, []string{"Gandhi", "Nehru", "Delany", "Tagore"})
		})
	})
}

func TestConsistent(t *testing.T) {
	Convey("Given broken rank sets", t, func() {
		So(ranking.Consistent(nil), ShouldBeTrue)
		So(ranking.Consistent([]model.House{{Rank: 1}, {Rank: 1}}), ShouldBeFalse)
		So(ranking.Consistent([]model.House{{Rank: 1}, {Rank: 3}}), ShouldBeFalse)
		So(ranking.Consistent([]model.House{{Rank: 1, Score: 1}, {Rank: 2, Score: 5}}), ShouldBeFalse)
		So(ranking.Consistent([]model.House{{Rank: 2, Score: 1}, {Rank: 1, Score: 5}}), ShouldBeTrue)
	})
}

func TestChanged(t *testing.T) {
	Convey("Given a prior and a recomputed set", t, func() {
		prev := houses()
		next := model.CloneHouses(prev)
		next[2].Rank = 1
		next = append(next, model.House{Name: "unsaved", Rank: 5})

		Convey("Then only persisted houses that moved are returned", func() {
			changed := ranking.Changed(prev, next)
			So(len(changed), ShouldEqual, 1)
			So(changed[0].Name, ShouldEqual, "Nehru")
		})
	})
}
