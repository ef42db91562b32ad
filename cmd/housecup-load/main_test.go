package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/housecup/internal/adapters/http/api"
	"github.com/okian/housecup/internal/adapters/store"
	app "github.com/okian/housecup/internal/app"
	"github.com/okian/housecup/internal/loadtest"
	"github.com/okian/housecup/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func TestRealMain(t *testing.T) {
	convey.Convey("Given the load command", t, func() {
		convey.Convey("When asked for help", func() {
			convey.So(realMain([]string{"--help"}), convey.ShouldEqual, 0)
		})

		convey.Convey("When given an unknown flag", func() {
			convey.So(realMain([]string{"--bogus"}), convey.ShouldEqual, 2)
		})

		convey.Convey("When pointed at a running server", func() {
			svc := app.New(
				app.WithStore(store.NewMemory(store.WithLogger(logger.Nop()))),
				app.WithLogger(logger.Nop()),
				app.WithLoadingTimeout(100*time.Millisecond),
			)
			convey.So(svc.Start(context.Background()), convey.ShouldBeNil)
			defer svc.Stop()
			mux := http.NewServeMux()
			api.NewServer(svc, api.WithLogger(logger.Nop())).Register(context.Background(), mux)
			srv := httptest.NewServer(mux)
			defer srv.Close()

			path := filepath.Join(t.TempDir(), "report.json")
			code := realMain([]string{
				"--url", srv.URL, "--events", "10", "--workers", "4",
				"--seed", "7", "--settle", "5s", "-o", path,
			})

			convey.Convey("Then it passes and writes a report", func() {
				convey.So(code, convey.ShouldEqual, 0)
				raw, err := os.ReadFile(path)
				convey.So(err, convey.ShouldBeNil)
				var rep loadtest.Report
				convey.So(json.Unmarshal(raw, &rep), convey.ShouldBeNil)
				convey.So(rep.Stats.Created, convey.ShouldEqual, 10)
				convey.So(len(rep.After), convey.ShouldEqual, 4)
			})
		})
	})
}
