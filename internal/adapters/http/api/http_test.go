package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/okian/engage/internal/adapters/http/api"
	"github.com/okian/engage/internal/adapters/repository"
	service "github.com/okian/engage/internal/app"
	"github.com/okian/engage/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

// brokenDeps fails writes and pings on top of a working service.
type brokenDeps struct {
	*service.Service
}

func (brokenDeps) RecordSession(context.Context, service.RecordSessionRequest) (service.SessionResult, error) {
	return service.SessionResult{}, fmt.Errorf("%w: save member: connection reset", service.ErrStore)
}

func (brokenDeps) Ping(context.Context) error { return errors.New("connection refused") }

func newTestService() *service.Service {
	now := time.Date(2024, time.January, 3, 12, 0, 0, 0, time.UTC)
	return service.New(
		service.WithStore(repository.NewMemoryStore()),
		service.WithClock(func() time.Time { return now }),
	)
}

func newHandler(deps api.Dependencies, stats api.StatsProvider, opts ...api.Option) http.Handler {
	return api.NewServer(deps, stats, opts...).Handler(context.Background())
}

func do(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(rec *httptest.ResponseRecorder) map[string]any {
	var out map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	return out
}

func TestSessionEndpoints(t *testing.T) {
	Convey("Given the API over a fresh service", t, func() {
		svc := newTestService()
		h := newHandler(svc, svc)

		Convey("When a session is posted", func() {
			rec := do(h, http.MethodPost, "/api/achievements",
				`{"memberId":"m1","userName":"Ada","teamId":"east","points":5}`)
			body := decodeBody(rec)

			Convey("Then the updated ledger row is returned", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(body["memberId"], ShouldEqual, "m1")
				So(body["totalSessions"], ShouldEqual, 1.0)
				So(body["weeklyTotal"], ShouldEqual, 5.0)
				So(body["duplicate"], ShouldEqual, false)
				So(rec.Header().Get("Content-Type"), ShouldStartWith, "application/json")
			})
		})

		Convey("When points arrive as a numeric string", func() {
			rec := do(h, http.MethodPost, "/api/achievements", `{"memberId":"m1","userName":"Ada","points":"7"}`)
			So(rec.Code, ShouldEqual, http.StatusOK)
			So(decodeBody(rec)["totalPoints"], ShouldEqual, 7.0)
		})

		Convey("When points are garbage", func() {
			rec := do(h, http.MethodPost, "/api/achievements", `{"memberId":"m1","userName":"Ada","points":"lots"}`)

			Convey("Then they count as zero instead of failing", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(decodeBody(rec)["totalPoints"], ShouldEqual, 0.0)
				So(decodeBody(rec)["totalSessions"], ShouldEqual, 1.0)
			})
		})

		Convey("When userName is missing", func() {
			rec := do(h, http.MethodPost, "/api/achievements", `{"memberId":"m1","points":1}`)
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
			So(decodeBody(rec)["code"], ShouldEqual, "bad_request")
		})

		Convey("When the body is not JSON", func() {
			rec := do(h, http.MethodPost, "/api/achievements", `{"memberId":`)
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
			So(decodeBody(rec)["code"], ShouldEqual, "bad_request")
		})

		Convey("When the same event id is posted twice", func() {
			payload := `{"eventId":"evt-1","memberId":"m1","userName":"Ada","points":3}`
			_ = do(h, http.MethodPost, "/api/achievements", payload)
			rec := do(h, http.MethodPost, "/api/achievements", payload)
			body := decodeBody(rec)

			Convey("Then the retry is acknowledged without counting", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(body["duplicate"], ShouldEqual, true)
				So(body["totalSessions"], ShouldEqual, 1.0)
			})
		})

		Convey("When reading achievements after a session", func() {
			_ = do(h, http.MethodPost, "/api/achievements", `{"memberId":"m1","userName":"Ada","teamId":"east","points":5}`)
			rec := do(h, http.MethodGet, "/api/achievements?memberId=m1", "")
			body := decodeBody(rec)

			Convey("Then badge groups, rankings and chart are present", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(body, ShouldContainKey, "streakAchievements")
				So(body, ShouldContainKey, "callAchievements")
				So(body, ShouldContainKey, "activityAchievements")
				So(body, ShouldContainKey, "leagueAchievements")
				So(body["weeklyRankings"], ShouldHaveLength, 1)
				So(body["teamRankings"], ShouldHaveLength, 1)
				So(body["chartData"], ShouldHaveLength, 1)
				user := body["userData"].(map[string]any)
				So(user["weeklyTotal"], ShouldEqual, 5.0)
			})
		})

		Convey("When reading achievements without a member", func() {
			rec := do(h, http.MethodGet, "/api/achievements", "")
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When reading the league", func() {
			_ = do(h, http.MethodPost, "/api/achievements", `{"memberId":"m1","userName":"Ada","points":5}`)
			_ = do(h, http.MethodPost, "/api/achievements", `{"memberId":"m2","userName":"Bo","points":9}`)
			rec := do(h, http.MethodGet, "/api/league?memberId=m1", "")
			body := decodeBody(rec)

			Convey("Then all tables are returned", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				weekly := body["weeklyRankings"].([]any)
				So(weekly, ShouldHaveLength, 2)
				So(weekly[0].(map[string]any)["memberId"], ShouldEqual, "m2")
				So(body["allTimeRankings"], ShouldHaveLength, 2)
				So(body["teamRankings"], ShouldBeEmpty)
			})
		})

		Convey("When reading one ranking scope", func() {
			_ = do(h, http.MethodPost, "/api/achievements", `{"memberId":"m1","userName":"Ada","points":5}`)
			rec := do(h, http.MethodGet, "/api/rankings?scope=all-time&memberId=m1&limit=5", "")
			body := decodeBody(rec)

			Convey("Then the scope is normalized", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(body["scope"], ShouldEqual, "all_time")
				So(body["rankings"], ShouldHaveLength, 1)
			})

			Convey("And unknown scopes or limits are rejected", func() {
				So(do(h, http.MethodGet, "/api/rankings?scope=monthly", "").Code, ShouldEqual, http.StatusBadRequest)
				So(do(h, http.MethodGet, "/api/rankings?limit=-1", "").Code, ShouldEqual, http.StatusBadRequest)
			})
		})
	})
}

func TestPracticeAndActivityEndpoints(t *testing.T) {
	Convey("Given the API over a fresh service", t, func() {
		svc := newTestService()
		h := newHandler(svc, svc)

		Convey("When practice is posted twice", func() {
			first := decodeBody(do(h, http.MethodPost, "/api/streaks", `{"memberId":"m1"}`))
			rec := do(h, http.MethodPost, "/api/streaks", `{"memberId":"m1"}`)
			second := decodeBody(rec)

			Convey("Then the day is counted once", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(first["recorded"], ShouldEqual, true)
				So(second["recorded"], ShouldEqual, false)
				So(second["practiceCount"], ShouldEqual, 1.0)
				So(second["todayDate"], ShouldEqual, "2024-01-03")
			})

			Convey("And the streak reads back", func() {
				body := decodeBody(do(h, http.MethodGet, "/api/streaks?memberId=m1", ""))
				So(body["current"], ShouldEqual, 1.0)
				So(body["longest"], ShouldEqual, 1.0)
				So(body["consistency"], ShouldEqual, "33%")
				So(body["dates"], ShouldResemble, []any{"2024-01-03"})
			})
		})

		Convey("When activity is posted", func() {
			rec := do(h, http.MethodPost, "/api/activity-sessions", `{"memberId":"m1"}`)
			So(rec.Code, ShouldEqual, http.StatusOK)
			body := decodeBody(do(h, http.MethodGet, "/api/activity-sessions?memberId=m1", ""))
			So(body["today"], ShouldEqual, 1.0)
			So(body["year"], ShouldEqual, 1.0)
		})

		Convey("When the member is missing", func() {
			So(do(h, http.MethodPost, "/api/streaks", `{}`).Code, ShouldEqual, http.StatusBadRequest)
			So(do(h, http.MethodGet, "/api/activity-sessions", "").Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the catalog is requested", func() {
			body := decodeBody(do(h, http.MethodGet, "/api/badges", ""))
			badges := body["badges"].([]any)
			So(badges, ShouldNotBeEmpty)
			So(badges[0].(map[string]any)["id"], ShouldEqual, "streak_5")
		})
	})
}

func TestOperationalEndpoints(t *testing.T) {
	Convey("Given a healthy API", t, func() {
		svc := newTestService()
		h := newHandler(svc, svc)

		Convey("Then health, stats and metrics answer", func() {
			So(do(h, http.MethodGet, "/healthz", "").Code, ShouldEqual, http.StatusOK)
			So(decodeBody(do(h, http.MethodGet, "/stats", "")), ShouldContainKey, "timezone")

			rec := do(h, http.MethodGet, "/metrics", "")
			So(rec.Code, ShouldEqual, http.StatusOK)
			So(rec.Body.String(), ShouldContainSubstring, "engage_")
		})

		Convey("Then unknown routes are JSON 404s", func() {
			rec := do(h, http.MethodGet, "/nope", "")
			So(rec.Code, ShouldEqual, http.StatusNotFound)
			So(decodeBody(rec)["code"], ShouldEqual, "not_found")
		})

		Convey("Then request ids are echoed or generated", func() {
			req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
			req.Header.Set(api.RequestIDHeader, "req-123")
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			So(rec.Header().Get(api.RequestIDHeader), ShouldEqual, "req-123")

			So(do(h, http.MethodGet, "/healthz", "").Header().Get(api.RequestIDHeader), ShouldNotBeBlank)
		})
	})

	Convey("Given a failing store", t, func() {
		svc := newTestService()
		h := newHandler(brokenDeps{svc}, svc)

		Convey("Then health reports 503", func() {
			rec := do(h, http.MethodGet, "/healthz", "")
			So(rec.Code, ShouldEqual, http.StatusServiceUnavailable)
			So(decodeBody(rec)["store"], ShouldEqual, "unreachable")
		})

		Convey("Then writes fail with a generic 500", func() {
			rec := do(h, http.MethodPost, "/api/achievements", `{"memberId":"m1","userName":"Ada","points":1}`)
			body := decodeBody(rec)
			So(rec.Code, ShouldEqual, http.StatusInternalServerError)
			So(body["code"], ShouldEqual, "internal_error")
			So(body["message"], ShouldNotContainSubstring, "connection reset")
		})
	})

	Convey("Given a rate limited API", t, func() {
		svc := newTestService()
		h := newHandler(svc, svc, api.WithRateLimit(60, 2))

		Convey("Then requests over the burst get 429", func() {
			So(do(h, http.MethodGet, "/api/badges", "").Code, ShouldEqual, http.StatusOK)
			So(do(h, http.MethodGet, "/api/badges", "").Code, ShouldEqual, http.StatusOK)
			rec := do(h, http.MethodGet, "/api/badges", "")
			So(rec.Code, ShouldEqual, http.StatusTooManyRequests)
			So(decodeBody(rec)["code"], ShouldEqual, "rate_limited")

			So(do(h, http.MethodGet, "/healthz", "").Code, ShouldEqual, http.StatusOK)
		})
	})
}

func fromPeer(h http.Handler, peer, forwarded string) int {
	req := httptest.NewRequest(http.MethodGet, "/api/badges", nil)
	req.RemoteAddr = peer
	if forwarded != "" {
		req.Header.Set("X-Forwarded-For", forwarded)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec.Code
}

func TestRateLimit_ForwardedHeaders(t *testing.T) {
	Convey("Given a rate limit that trusts one proxy", t, func() {
		svc := newTestService()
		h := newHandler(svc, svc, api.WithRateLimit(60, 2, "10.0.0.1"))

		Convey("Then an untrusted peer cannot rotate X-Forwarded-For to dodge it", func() {
			So(fromPeer(h, "198.51.100.20:4000", "203.0.113.1"), ShouldEqual, http.StatusOK)
			So(fromPeer(h, "198.51.100.20:4000", "203.0.113.2"), ShouldEqual, http.StatusOK)
			So(fromPeer(h, "198.51.100.20:4000", "203.0.113.3"), ShouldEqual, http.StatusTooManyRequests)
		})

		Convey("Then clients behind the trusted proxy are limited separately", func() {
			So(fromPeer(h, "10.0.0.1:5000", "203.0.113.7"), ShouldEqual, http.StatusOK)
			So(fromPeer(h, "10.0.0.1:5000", "203.0.113.7"), ShouldEqual, http.StatusOK)
			So(fromPeer(h, "10.0.0.1:5000", "203.0.113.7"), ShouldEqual, http.StatusTooManyRequests)
			So(fromPeer(h, "10.0.0.1:5000", " 203.0.113.8, 10.0.0.1"), ShouldEqual, http.StatusOK)
		})
	})
}

func TestErrorKinds(t *testing.T) {
	Convey("Given wrapped errors", t, func() {
		invalid := api.Wrap("api.op", fmt.Errorf("%w: missing memberId", service.ErrInvalidRequest))
		store := api.Wrap("api.op", service.ErrStore)

		Convey("Then kinds are classified from the cause", func() {
			So(errors.Is(invalid, api.ErrBadRequest), ShouldBeTrue)
			So(errors.Is(invalid, service.ErrInvalidRequest), ShouldBeTrue)
			So(errors.Is(store, api.ErrInternal), ShouldBeTrue)
			So(invalid.Error(), ShouldStartWith, "api.op: bad request")
		})

		Convey("Then nil stays nil", func() {
			So(api.Wrap("api.op", nil), ShouldBeNil)
		})
	})
}
