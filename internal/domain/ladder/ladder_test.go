package ladder_test

import (
	"math"
	"testing"

	"github.com/okian/gradelens/internal/domain/ladder"
	. "github.com/smartystreets/goconvey/convey"
)

func TestLadder_Pick(t *testing.T) {
	Convey("Given a four band ladder declared out of order", t, func() {
		l := ladder.New("low",
			ladder.At(80.0, "good"),
			ladder.At(90.0, "excellent"),
			ladder.At(70.0, "fair"),
		)

		Convey("Then bounds are inclusive", func() {
			So(l.Pick(90), ShouldEqual, "excellent")
			So(l.Pick(80), ShouldEqual, "good")
			So(l.Pick(70), ShouldEqual, "fair")
		})

		Convey("And values between bounds fall to the lower band", func() {
			So(l.Pick(89.999), ShouldEqual, "good")
			So(l.Pick(79.9), ShouldEqual, "fair")
			So(l.Pick(150), ShouldEqual, "excellent")
		})

		Convey("And anything below the last bound uses the fallback", func() {
			So(l.Pick(69.99), ShouldEqual, "low")
			So(l.Pick(-10), ShouldEqual, "low")
			So(l.Pick(math.Inf(-1)), ShouldEqual, "low")
		})

		Convey("And NaN uses the fallback", func() {
			So(l.Pick(math.NaN()), ShouldEqual, "low")
		})

		Convey("And Index reports the descending position", func() {
			_, i := l.Index(95)
			So(i, ShouldEqual, 0)
			_, i = l.Index(75)
			So(i, ShouldEqual, 2)
			_, i = l.Index(10)
			So(i, ShouldEqual, 3)
			So(l.Len(), ShouldEqual, 4)
		})
	})

	Convey("Given an empty ladder", t, func() {
		l := ladder.New(42)

		Convey("Then every score picks the fallback", func() {
			So(l.Pick(1000), ShouldEqual, 42)
			So(l.Len(), ShouldEqual, 1)
		})
	})
}
