package model_test

import (
	"encoding/json"
	"math"
	"testing"

	model "github.com/okian/engage/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestParsePoints(t *testing.T) {
	convey.Convey("Given raw point values", t, func() {
		cases := []struct {
			raw  string
			want float64
			ok   bool
		}{
			{`12`, 12, true},
			{`7.5`, 7.5, true},
			{`"3.25"`, 3.25, true},
			{`" 4 "`, 4, true},
			{``, 0, true},
			{`"abc"`, 0, false},
			{`true`, 0, false},
			{`null`, 0, false},
			{`"NaN"`, 0, false},
			{`"Infinity"`, 0, false},
			{`-5`, 0, false},
			{`1e400`, 0, false},
		}
		for _, c := range cases {
			got, ok := model.ParsePoints(json.RawMessage(c.raw))
			convey.So(got, convey.ShouldEqual, c.want)
			convey.So(ok, convey.ShouldEqual, c.ok)
		}
	})

	convey.Convey("Points never fails to decode", t, func() {
		var body struct {
			Points model.Points `json:"points"`
		}
		convey.So(json.Unmarshal([]byte(`{"points":"junk"}`), &body), convey.ShouldBeNil)
		convey.So(float64(body.Points), convey.ShouldEqual, 0)
		convey.So(json.Unmarshal([]byte(`{"points":"9"}`), &body), convey.ShouldBeNil)
		convey.So(float64(body.Points), convey.ShouldEqual, 9)
	})
}

func TestDecodeDailyPoints(t *testing.T) {
	convey.Convey("Given a stored daily points object with mixed values", t, func() {
		dp, coerced, err := model.DecodeDailyPoints([]byte(`{"2024-01-01":5,"2024-01-02":"2.5","2024-01-03":"x"}`))

		convey.So(err, convey.ShouldBeNil)
		convey.So(coerced, convey.ShouldEqual, 1)
		convey.So(dp["2024-01-01"], convey.ShouldEqual, 5)
		convey.So(dp["2024-01-02"], convey.ShouldEqual, 2.5)
		convey.So(dp["2024-01-03"], convey.ShouldEqual, 0)
	})

	convey.Convey("Given null or empty input", t, func() {
		dp, _, err := model.DecodeDailyPoints([]byte(`null`))
		convey.So(err, convey.ShouldBeNil)
		convey.So(dp, convey.ShouldNotBeNil)
		convey.So(len(dp), convey.ShouldEqual, 0)
	})

	convey.Convey("Given something that is not an object", t, func() {
		_, _, err := model.DecodeDailyPoints([]byte(`[1,2]`))
		convey.So(err, convey.ShouldNotBeNil)
	})
}

func TestMemberStateClone(t *testing.T) {
	convey.Convey("Given a member state", t, func() {
		s := model.NewMemberState("m1")
		s.DailyPoints["2024-01-01"] = 3
		s.UnlockedBadges = append(s.UnlockedBadges, "streak_5")

		convey.Convey("When cloned and the clone is modified", func() {
			c := s.Clone()
			c.DailyPoints["2024-01-01"] = 10
			c.UnlockedBadges[0] = "calls_10"

			convey.Convey("Then the original is untouched", func() {
				convey.So(s.DailyPoints["2024-01-01"], convey.ShouldEqual, 3)
				convey.So(s.UnlockedBadges[0], convey.ShouldEqual, "streak_5")
				convey.So(s.HasBadge("streak_5"), convey.ShouldBeTrue)
				convey.So(c.HasBadge("streak_5"), convey.ShouldBeFalse)
			})
		})
	})
}

func TestAddPoints(t *testing.T) {
	convey.Convey("Given point sums", t, func() {
		convey.So(model.AddPoints(2, 3.5), convey.ShouldEqual, 5.5)
		convey.So(model.AddPoints(1e308, 1e308), convey.ShouldEqual, math.MaxFloat64)
		convey.So(model.AddPoints(math.MaxFloat64, 1), convey.ShouldEqual, math.MaxFloat64)
	})
}
