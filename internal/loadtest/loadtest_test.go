package loadtest

import (
	"context"
	"errors"
	"io"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/okian/housecup/internal/adapters/http/api"
	"github.com/okian/housecup/internal/adapters/store"
	app "github.com/okian/housecup/internal/app"
	"github.com/okian/housecup/internal/domain/model"
	"github.com/okian/housecup/internal/domain/ranking"
	"github.com/okian/housecup/internal/domain/scoring"
	"github.com/okian/housecup/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	_ = logger.Init(logger.WithOutput(io.Discard))
}

func startServer(t *testing.T, opts ...app.Option) *httptest.Server {
	t.Helper()
	opts = append([]app.Option{
		app.WithStore(store.NewMemory(store.WithLogger(logger.Nop()))),
		app.WithLogger(logger.Nop()),
		app.WithLoadingTimeout(200 * time.Millisecond),
	}, opts...)
	svc := app.New(opts...)
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("start service: %v", err)
	}
	mux := http.NewServeMux()
	api.NewServer(svc, api.WithLogger(logger.Nop())).Register(context.Background(), mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(func() {
		srv.Close()
		svc.Stop()
	})
	return srv
}

func TestGenerate(t *testing.T) {
	Convey("Given houses and no templates", t, func() {
		houses := []string{"Tagore", "Gandhi"}
		rng := rand.New(rand.NewPCG(1, 2))

		Convey("When every event is replayed", func() {
			subs := Generate(houses, nil, 20, 1, rng)

			Convey("Then each key appears twice with the same draft", func() {
				So(len(subs), ShouldEqual, 40)
				byKey := map[string][]Submission{}
				for _, s := range subs {
					byKey[s.Key] = append(byKey[s.Key], s)
				}
				So(len(byKey), ShouldEqual, 20)
				for _, pair := range byKey {
					So(len(pair), ShouldEqual, 2)
					So(pair[0].Draft, ShouldResemble, pair[1].Draft)
					So(pair[0].Replay != pair[1].Replay, ShouldBeTrue)
				}
			})

			Convey("Then every draft is valid", func() {
				for _, s := range subs {
					So(s.Draft.Validate(), ShouldBeNil)
					So(s.Draft.House, ShouldBeIn, houses)
				}
			})
		})
	})

	Convey("Given a template open to all categories", t, func() {
		tmpl := model.EventTemplate{Name: "Art Exhibition", Category: model.CategoryAll, Type: model.Individual}
		subs := Generate([]string{"Nehru"}, []model.EventTemplate{tmpl}, 10, 0, rand.New(rand.NewPCG(3, 4)))

		Convey("Then drafts take its name and type with a concrete category", func() {
			So(len(subs), ShouldEqual, 10)
			for _, s := range subs {
				So(s.Draft.Name, ShouldEqual, "Art Exhibition")
				So(s.Draft.Type, ShouldEqual, model.Individual)
				So(s.Draft.Category.ValidForEvent(), ShouldBeTrue)
			}
		})
	})
}

func TestTally(t *testing.T) {
	Convey("Given mixed outcomes", t, func() {
		draft := func(house string, pos int) model.EventDraft {
			return model.EventDraft{Name: "Relay", House: house, Position: pos, Type: model.Group, Category: model.CategorySenior}
		}
		subs := []Submission{
			{Draft: draft("Tagore", 1)},
			{Draft: draft("Tagore", 1), Replay: true},
			{Draft: draft("Gandhi", 2)},
			{Draft: draft("Nehru", 1)},
		}
		outcomes := []outcome{outcomeCreated, outcomeDuplicate, outcomeCreated, outcomeBusy}
		var stats Stats
		tally(&stats, subs, outcomes, scoring.NewTable())

		Convey("Then only created submissions count toward scores", func() {
			So(stats.Created, ShouldEqual, 2)
			So(stats.Duplicate, ShouldEqual, 1)
			So(stats.Busy, ShouldEqual, 1)
			So(stats.Exact, ShouldBeTrue)
			So(stats.Expected["Tagore"], ShouldEqual, scoring.Points(1, model.Group))
			So(stats.Expected["Gandhi"], ShouldEqual, scoring.Points(2, model.Group))
			So(stats.Expected, ShouldNotContainKey, "Nehru")
		})

		Convey("Then mismatches compare against the starting scores", func() {
			before := []model.House{{Name: "Tagore", Score: 5}, {Name: "Gandhi"}}
			after := []model.House{
				{Name: "Tagore", Score: 5 + stats.Expected["Tagore"]},
				{Name: "Gandhi", Score: 1},
			}
			So(mismatches(before, after, stats.Expected), ShouldResemble,
				[]string{"Gandhi: score 1, want 14"})
		})
	})

	Convey("Given a failed submission", t, func() {
		var stats Stats
		tally(&stats, []Submission{{}}, []outcome{outcomeFailed}, scoring.NewTable())

		Convey("Then the result is not exact", func() {
			So(stats.Failed, ShouldEqual, 1)
			So(stats.Exact, ShouldBeFalse)
		})
	})
}

func TestRun(t *testing.T) {
	Convey("Given a running scoreboard", t, func() {
		srv := startServer(t)
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
		defer cancel()

		Convey("When running a load test with replays", func() {
			report, err := Run(ctx, Config{
				BaseURL:       srv.URL,
				NumEvents:     40,
				Workers:       8,
				DuplicateRate: 0.5,
				SettleTimeout: 5 * time.Second,
				Seed:          42,
			}, logger.Nop())

			Convey("Then every distinct event is recorded once", func() {
				So(err, ShouldBeNil)
				s := report.Stats
				So(s.Created, ShouldEqual, 40)
				So(s.Created+s.Duplicate, ShouldEqual, s.Submitted)
				So(s.Failed, ShouldEqual, 0)
				So(s.Exact, ShouldBeTrue)
			})

			Convey("Then final scores and ranks agree", func() {
				So(err, ShouldBeNil)
				So(len(report.After), ShouldEqual, 4)
				So(ranking.Consistent(report.After), ShouldBeTrue)
				So(mismatches(report.Before, report.After, report.Stats.Expected), ShouldBeEmpty)
			})
		})
	})

	Convey("Given a scoreboard without houses", t, func() {
		srv := startServer(t, app.WithBootstrap(false))

		Convey("Then the run refuses to start", func() {
			_, err := Run(context.Background(), Config{BaseURL: srv.URL, NumEvents: 1, SettleTimeout: 2 * time.Second}, logger.Nop())
			So(errors.Is(err, ErrNoHouses), ShouldBeTrue)
		})
	})

	Convey("Given nothing listening", t, func() {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		Convey("Then the run reports the service unhealthy", func() {
			_, err := Run(context.Background(), Config{
				BaseURL:       url,
				NumEvents:     1,
				Timeout:       100 * time.Millisecond,
				SettleTimeout: 300 * time.Millisecond,
			}, logger.Nop())
			So(errors.Is(err, ErrUnhealthy), ShouldBeTrue)
		})
	})
}
