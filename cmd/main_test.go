package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/okian/engage/internal/config"
	"github.com/okian/engage/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func TestMainWiring(t *testing.T) {
	convey.Convey("Given the main application wiring", t, func() {
		ctx := context.Background()
		cfg := config.New()
		convey.So(initLogger(cfg), convey.ShouldBeNil)

		convey.Convey("When an invalid log level is configured", func() {
			cfg.LogLevel = "chatty"

			convey.Convey("Then logger init falls back instead of failing", func() {
				convey.So(initLogger(cfg), convey.ShouldBeNil)
				convey.So(logger.Get(), convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When the service runs on the SQLite store", func() {
			cfg.StoreDriver = "sqlite"
			cfg.SQLitePath = filepath.Join(t.TempDir(), "db", "engage.db")

			svc, err := newService(ctx, cfg)
			convey.So(err, convey.ShouldBeNil)
			convey.So(svc.Start(ctx), convey.ShouldBeNil)
			defer svc.Stop()

			h := newHandler(ctx, cfg, svc)

			convey.Convey("Then the database file is created", func() {
				_, err := os.Stat(cfg.SQLitePath)
				convey.So(err, convey.ShouldBeNil)
			})

			convey.Convey("Then sessions round trip through HTTP", func() {
				req := httptest.NewRequest(http.MethodPost, "/api/achievements",
					strings.NewReader(`{"memberId":"m1","userName":"Ada","points":4}`))
				rec := httptest.NewRecorder()
				h.ServeHTTP(rec, req)
				convey.So(rec.Code, convey.ShouldEqual, http.StatusOK)

				rec = httptest.NewRecorder()
				h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/league?memberId=m1", nil))
				convey.So(rec.Code, convey.ShouldEqual, http.StatusOK)
				convey.So(rec.Body.String(), convey.ShouldContainSubstring, `"memberId":"m1"`)
			})

			convey.Convey("Then the docs are mounted", func() {
				rec := httptest.NewRecorder()
				h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/openapi.yaml", nil))
				convey.So(rec.Code, convey.ShouldEqual, http.StatusOK)
			})
		})

		convey.Convey("When the timezone is unknown", func() {
			cfg.Timezone = "Nowhere/Special"
			_, err := newService(ctx, cfg)

			convey.Convey("Then the service is not built", func() {
				convey.So(err, convey.ShouldNotBeNil)
			})
		})
	})
}
