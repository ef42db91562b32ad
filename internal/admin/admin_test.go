package admin_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/google/go-cmp/cmp"
	"github.com/okian/housecup/internal/adapters/repository"
	"github.com/okian/housecup/internal/adapters/store"
	"github.com/okian/housecup/internal/admin"
	"github.com/okian/housecup/internal/domain/model"
	"github.com/okian/housecup/internal/domain/types"
	"github.com/okian/housecup/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func newMemory() *store.Memory {
	return store.NewMemory(store.WithLogger(logger.Nop()))
}

func TestSeedDemo(t *testing.T) {
	Convey("Given an empty store", t, func() {
		ctx := context.Background()
		st := newMemory()
		seeder := admin.NewSeeder(st, logger.Nop())

		Convey("When seeding the demo data", func() {
			report, err := seeder.SeedDemo(ctx)

			Convey("Then every collection is filled", func() {
				So(err, ShouldBeNil)
				So(report.Skipped, ShouldBeEmpty)
				want := map[string]int{
					repository.HousesCollection:    4,
					repository.TemplatesCollection: 5,
					repository.EventsCollection:    3,
					repository.WinnersCollection:   5,
				}
				So(cmp.Diff(want, report.Inserted), ShouldBeEmpty)
			})

			Convey("Then houses keep their seeded scores and ranks", func() {
				houses, err := repository.NewHouses(st, repository.WithLogger(logger.Nop())).GetAll(ctx)
				So(err, ShouldBeNil)
				So(len(houses), ShouldEqual, 4)
				So(houses[0].Name, ShouldEqual, "Tagore")
				So(houses[0].Score, ShouldEqual, 285)
				So(houses[3].Name, ShouldEqual, "Delany")
				So(houses[3].Rank, ShouldEqual, 4)
			})

			Convey("Then events are stored newest first with their points", func() {
				events, err := repository.NewEvents(st, repository.WithLogger(logger.Nop())).GetAll(ctx)
				So(err, ShouldBeNil)
				So(len(events), ShouldEqual, 3)
				So(events[0].Name, ShouldEqual, "Science Quiz")
				So(events[0].Points, ShouldEqual, 7)
				So(events[2].Type, ShouldEqual, model.Individual)
			})

			Convey("And seeding again", func() {
				again, err := seeder.SeedDemo(ctx)

				Convey("Then nothing is inserted twice", func() {
					So(err, ShouldBeNil)
					So(again.Inserted, ShouldBeEmpty)
					So(len(again.Skipped), ShouldEqual, 4)
				})
			})
		})
	})

	Convey("Given a store that already has houses", t, func() {
		ctx := context.Background()
		st := newMemory()
		houses := repository.NewHouses(st, repository.WithLogger(logger.Nop()))
		_, err := houses.Add(ctx, model.House{Name: "Tagore", Rank: 1, Color: model.ColorTagore})
		So(err, ShouldBeNil)

		Convey("When seeding", func() {
			report, err := admin.NewSeeder(st, logger.Nop()).SeedDemo(ctx)

			Convey("Then houses are left alone and the rest is filled", func() {
				So(err, ShouldBeNil)
				So(report.Skipped, ShouldResemble, []string{repository.HousesCollection})
				So(report.Inserted[repository.WinnersCollection], ShouldEqual, 5)
				all, _ := houses.GetAll(ctx)
				So(len(all), ShouldEqual, 1)
				So(all[0].Score, ShouldEqual, 0)
			})
		})
	})

	Convey("Given an unconfigured store", t, func() {
		_, err := admin.NewSeeder(store.Unconfigured{}, logger.Nop()).SeedDemo(context.Background())

		Convey("Then seeding fails with not configured", func() {
			So(errors.Is(err, store.ErrNotConfigured), ShouldBeTrue)
		})
	})
}

func TestDiagnose(t *testing.T) {
	Convey("Given a seeded memory store", t, func() {
		ctx := context.Background()
		st := newMemory()
		_, err := admin.NewSeeder(st, logger.Nop()).SeedDemo(ctx)
		So(err, ShouldBeNil)

		Convey("When diagnosing", func() {
			diag := admin.NewDiagnostician(st, "memory").Diagnose(ctx)

			Convey("Then it is reachable with counts per collection", func() {
				So(diag.Backend, ShouldEqual, "memory")
				So(diag.Reachable, ShouldBeTrue)
				So(diag.Error, ShouldBeEmpty)
				So(diag.Collections, ShouldResemble, []types.Collection{
					{Name: repository.HousesCollection, Count: 4},
					{Name: repository.EventsCollection, Count: 3},
					{Name: repository.WinnersCollection, Count: 5},
					{Name: repository.TemplatesCollection, Count: 5},
				})
			})
		})
	})

	Convey("Given a redis store", t, func() {
		ctx := context.Background()
		mr := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		st := store.NewRedis(client, store.WithLogger(logger.Nop()), store.WithKeyPrefix("diag"))
		d := admin.NewDiagnostician(st, "redis")

		Convey("When the server is up", func() {
			diag := d.Diagnose(ctx)

			Convey("Then it is reachable and empty", func() {
				So(diag.Reachable, ShouldBeTrue)
				So(len(diag.Collections), ShouldEqual, 4)
				So(diag.Collections[0].Count, ShouldEqual, 0)
			})
		})

		Convey("When the server goes away", func() {
			mr.Close()
			diag := d.Diagnose(ctx)

			Convey("Then it is unreachable with an error", func() {
				So(diag.Reachable, ShouldBeFalse)
				So(diag.Error, ShouldNotBeEmpty)
			})
		})
	})

	Convey("Given an unconfigured store", t, func() {
		diag := admin.NewDiagnostician(store.Unconfigured{Reason: "no redis url"}, "none").Diagnose(context.Background())

		Convey("Then every collection reports the error", func() {
			So(diag.Reachable, ShouldBeFalse)
			So(diag.Error, ShouldContainSubstring, "no redis url")
			for _, c := range diag.Collections {
				So(c.Error, ShouldNotBeEmpty)
			}
		})
	})
}

func TestExport(t *testing.T) {
	Convey("Given a seeded store", t, func() {
		ctx := context.Background()
		st := newMemory()
		_, err := admin.NewSeeder(st, logger.Nop()).SeedDemo(ctx)
		So(err, ShouldBeNil)
		path := filepath.Join(t.TempDir(), "export.json")

		Convey("When exporting", func() {
			dump, err := admin.Export(ctx, st, path)

			Convey("Then the file holds every collection", func() {
				So(err, ShouldBeNil)
				So(len(dump.Collections[repository.HousesCollection]), ShouldEqual, 4)

				raw, err := os.ReadFile(path)
				So(err, ShouldBeNil)
				var got admin.Dump
				So(json.Unmarshal(raw, &got), ShouldBeNil)
				So(len(got.Collections), ShouldEqual, 4)
				So(len(got.Collections[repository.WinnersCollection]), ShouldEqual, 5)
				So(got.Collections[repository.HousesCollection][0]["name"], ShouldEqual, "Tagore")
				So(got.ExportedAt.IsZero(), ShouldBeFalse)
			})
		})
	})

	Convey("Given an empty store", t, func() {
		dump, err := admin.Collect(context.Background(), newMemory(), time.Unix(0, 0))

		Convey("Then collections are present and empty", func() {
			So(err, ShouldBeNil)
			for _, c := range repository.Collections {
				So(dump.Collections[c.Name], ShouldNotBeNil)
				So(dump.Collections[c.Name], ShouldBeEmpty)
			}
		})
	})

	Convey("Given an unconfigured store", t, func() {
		path := filepath.Join(t.TempDir(), "export.json")
		_, err := admin.Export(context.Background(), store.Unconfigured{}, path)

		Convey("Then nothing is written", func() {
			So(errors.Is(err, store.ErrNotConfigured), ShouldBeTrue)
			_, statErr := os.Stat(path)
			So(os.IsNotExist(statErr), ShouldBeTrue)
		})
	})
}
