package store_test

import (
	"encoding/json"
	"testing"

	"github.com/okian/housecup/internal/adapters/store"
	. "github.com/smartystreets/goconvey/convey"
)

func TestSort(t *testing.T) {
	Convey("Given documents with mixed numeric representations", t, func() {
		docs := []store.Document{
			{"id": "c", "createdAt": "2024-01-01T00:00:00.000000003Z", "rank": json.Number("3")},
			{"id": "a", "createdAt": "2024-01-01T00:00:00.000000001Z", "rank": 2.0},
			{"id": "b", "createdAt": "2024-01-01T00:00:00.000000002Z"},
			{"id": "d", "createdAt": "2024-01-01T00:00:00.000000004Z", "rank": int64(1)},
			{"id": "e", "createdAt": "2024-01-01T00:00:00.000000000Z", "rank": 2},
		}

		Convey("When sorted by rank ascending", func() {
			store.Sort(docs, store.Order{Field: "rank"})

			Convey("Then numbers compare numerically, ties by creation and missing last", func() {
				ids := make([]string, len(docs))
				for i, d := range docs {
					ids[i] = d.ID()
				}
				So(ids, ShouldResemble, []string{"d", "e", "a", "c", "b"})
			})
		})
	})
}

func TestInt64(t *testing.T) {
	Convey("Given numeric document values", t, func() {
		for _, v := range []any{7, int64(7), 7.0, json.Number("7")} {
			n, ok := store.Int64(v)
			So(ok, ShouldBeTrue)
			So(n, ShouldEqual, 7)
		}
		_, ok := store.Int64(7.5)
		So(ok, ShouldBeFalse)
		_, ok = store.Int64("7")
		So(ok, ShouldBeFalse)
	})
}

func TestClean(t *testing.T) {
	Convey("Given a document with empty and reserved fields", t, func() {
		in := store.Document{"name": "x", "empty": "", "nil": nil, "version": 9, "createdAt": "t", "zero": 0}
		out := store.Clean(in)

		Convey("Then only meaningful user fields remain and the input is untouched", func() {
			So(out, ShouldResemble, store.Document{"name": "x", "zero": 0})
			So(len(in), ShouldEqual, 6)
		})
	})
}
