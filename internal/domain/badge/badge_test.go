package badge

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestDefaultCatalog(t *testing.T) {
	Convey("Given the default catalog", t, func() {
		c := Default()

		Convey("It holds every badge once", func() {
			So(len(c), ShouldEqual, 6+10+3+3)
			seen := map[string]bool{}
			for _, b := range c {
				So(seen[b.ID], ShouldBeFalse)
				seen[b.ID] = true
			}
		})

		Convey("Lookup finds catalog entries", func() {
			b, ok := c.Lookup("calls_250")
			So(ok, ShouldBeTrue)
			So(b.Kind, ShouldEqual, KindCalls)
			So(b.Target, ShouldEqual, 250)
			So(b.TooltipSubtitle, ShouldEqual, "Complete 250 calls")

			_, ok = c.Lookup("nope")
			So(ok, ShouldBeFalse)
		})

		Convey("League badges map to ranks", func() {
			So(c.LeagueBadgeForRank(1), ShouldEqual, LeagueFirst)
			So(c.LeagueBadgeForRank(3), ShouldEqual, LeagueThird)
			So(c.LeagueBadgeForRank(4), ShouldEqual, "")
			So(len(c.OfKind(KindActivity)), ShouldEqual, 3)
		})
	})
}

func TestEvaluate(t *testing.T) {
	c := Default()

	Convey("Given a member on a ten day streak with twelve sessions", t, func() {
		m := Metrics{Streak: 10, TotalSessions: 12, SessionsToday: 2}
		merged, newly := Evaluate(c, m, nil)

		Convey("Then streak and call thresholds unlock in catalog order", func() {
			So(merged, ShouldResemble, []string{"streak_5", "streak_10", "calls_10"})
			So(newly, ShouldResemble, merged)
		})

		Convey("And evaluating again unlocks nothing new", func() {
			again, newly2 := Evaluate(c, m, merged)
			So(again, ShouldResemble, merged)
			So(newly2, ShouldBeEmpty)
		})
	})

	Convey("Given badges already unlocked and a reset streak", t, func() {
		prior := []string{"league_first", "streak_30", "streak_5"}
		merged, newly := Evaluate(c, Metrics{Streak: 1, TotalSessions: 25}, prior)

		Convey("Then nothing is lost and existing order is kept", func() {
			So(merged[:3], ShouldResemble, prior)
			So(newly, ShouldResemble, []string{"calls_10", "calls_25"})
		})
	})

	Convey("Given activity counters", t, func() {
		_, newly := Evaluate(c, Metrics{SessionsToday: 10, SessionsThisWeek: 50, SessionsThisMonth: 99}, nil)
		So(newly, ShouldResemble, []string{"daily_10", "weekly_50"})
	})

	Convey("Given a settled league rank", t, func() {
		_, newly := Evaluate(c, Metrics{LeagueRank: 2}, nil)
		So(newly, ShouldResemble, []string{LeagueSecond})

		_, none := Evaluate(c, Metrics{LeagueRank: 4}, nil)
		So(none, ShouldBeEmpty)
	})

	Convey("Union ignores duplicates and empty ids", t, func() {
		merged, newly := Union([]string{"a", "a"}, "b", "", "a", "b")
		So(merged, ShouldResemble, []string{"a", "b"})
		So(newly, ShouldResemble, []string{"b"})
	})
}

func TestPresent(t *testing.T) {
	Convey("Given a member half way to the first streak badge", t, func() {
		g := Present(Default(), Metrics{Streak: 2, TotalSessions: 10}, []string{"calls_10", "league_third"})

		Convey("Then groups mirror the catalog", func() {
			So(len(g.Streak), ShouldEqual, 6)
			So(len(g.Calls), ShouldEqual, 10)
			So(len(g.Activity), ShouldEqual, 3)
			So(len(g.League), ShouldEqual, 3)
		})

		Convey("And progress reflects the counters", func() {
			So(g.Streak[0].Current, ShouldEqual, 2)
			So(g.Streak[0].Progress, ShouldEqual, 40)
			So(g.Streak[0].Unlocked, ShouldBeFalse)
			So(g.Calls[0].Unlocked, ShouldBeTrue)
			So(g.Calls[0].Progress, ShouldEqual, 100)
			So(g.League[2].Unlocked, ShouldBeTrue)
			So(g.League[0].Unlocked, ShouldBeFalse)
		})
	})
}
