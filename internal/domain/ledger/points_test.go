package ledger

import (
	"math/rand"
	"testing"
	"time"

	"github.com/okian/engage/internal/domain/calendar"
	"github.com/okian/engage/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestWeeklyTotal(t *testing.T) {
	cal := calendar.UTC()

	Convey("Given points on both edges of a window", t, func() {
		points := model.DailyPoints{"2024-01-01": 5, "2024-01-08": 3}
		reset := at(1, 8, 0)

		Convey("Then the start day counts and the reset day does not", func() {
			So(WeeklyTotal(points, reset, cal), ShouldEqual, 5)
		})
	})

	Convey("Given no points", t, func() {
		So(WeeklyTotal(nil, at(1, 7, 0), cal), ShouldEqual, 0)
		So(WeeklyTotal(model.DailyPoints{"2024-01-03": 1}, time.Time{}, cal), ShouldEqual, 0)
	})

	Convey("Given malformed keys", t, func() {
		points := model.DailyPoints{"2024-01-03": 2, "yesterday": 100}
		So(WeeklyTotal(points, at(1, 7, 0), cal), ShouldEqual, 2)
	})

	Convey("Given random points around many weeks", t, func() {
		r := rand.New(rand.NewSource(11))
		points := model.DailyPoints{}
		start := at(1, 1, 0)
		for i := 0; i < 60; i++ {
			points[cal.DayKey(start.AddDate(0, 0, i))] = float64(r.Intn(50))
		}
		reset := at(1, 28, 0)
		want := 0.0
		for i := 20; i < 27; i++ {
			want += points[cal.DayKey(start.AddDate(0, 0, i))]
		}

		Convey("Then only the seven days before the reset are summed", func() {
			So(WeeklyTotal(points, reset, cal), ShouldEqual, want)
		})
	})

	Convey("TotalPoints sums every day", t, func() {
		So(TotalPoints(model.DailyPoints{"a": 1, "b": 2.5}), ShouldEqual, 3.5)
		So(TotalPoints(nil), ShouldEqual, 0)
	})
}

func TestWeeklyChart(t *testing.T) {
	cal := calendar.UTC()

	Convey("Given points this week and last week", t, func() {
		points := model.DailyPoints{
			"2024-01-09": 4,
			"2024-01-07": 2,
			"2024-01-06": 99,
			"2024-01-11": 1,
		}
		chart := WeeklyChart(points, at(1, 11, 15), cal)

		Convey("Then only this week is plotted, cumulatively and in order", func() {
			So(chart, ShouldResemble, []ChartPoint{
				{Day: "Sunday", Date: "2024-01-07", You: 2},
				{Day: "Tuesday", Date: "2024-01-09", You: 6},
				{Day: "Thursday", Date: "2024-01-11", You: 7},
			})
		})
	})

	Convey("Given no points", t, func() {
		So(WeeklyChart(nil, at(1, 11, 15), cal), ShouldBeEmpty)
	})
}

func TestCountActivity(t *testing.T) {
	cal := calendar.UTC()

	Convey("Given sessions spread over the year", t, func() {
		now := at(3, 15, 12)
		sessions := []time.Time{
			at(3, 15, 8),  // today
			at(3, 10, 8),  // within seven days
			at(3, 2, 8),   // this month
			at(1, 20, 8),  // this year
			time.Date(2023, 12, 31, 23, 0, 0, 0, time.UTC),
		}
		c := CountActivity(sessions, now, cal)
		So(c, ShouldResemble, ActivityCounts{Today: 1, Week: 2, Month: 3, Year: 4})
	})
}
