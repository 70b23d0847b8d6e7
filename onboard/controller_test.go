package onboard

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/shopspring/decimal"
)

func TestPController(t *testing.T) {
	Convey("Given a proportional controller", t, func() {
		c := NewPController(decimal.RequireFromString("0.1"))
		limit := decimal.RequireFromString("1.00")

		Convey("Output is proportional to the remaining error", func() {
			out := c.Compute(100, 90, 110, limit, limit)
			So(out.A.StringFixed(ScaleOutput), ShouldEqual, "1.000")
			So(out.B.StringFixed(ScaleOutput), ShouldEqual, "-1.000")

			out = c.Compute(100, 98, 103, limit, limit)
			So(out.A.StringFixed(ScaleOutput), ShouldEqual, "0.200")
			So(out.B.StringFixed(ScaleOutput), ShouldEqual, "-0.300")
		})

		Convey("Each motor clamps to its own limit magnitude", func() {
			limA := decimal.RequireFromString("0.25")
			limB := decimal.RequireFromString("-0.50")
			out := c.Compute(1000, 0, 0, limA, limB)
			So(out.A.StringFixed(ScaleOutput), ShouldEqual, "0.250")
			// a negative limit still bounds by magnitude
			So(out.B.StringFixed(ScaleOutput), ShouldEqual, "0.500")
		})

		Convey("Outputs never escape the unit range", func() {
			huge := decimal.RequireFromString("5.00")
			out := c.Compute(100000, 0, 0, huge, huge)
			So(out.A.StringFixed(ScaleOutput), ShouldEqual, "1.000")
		})

		Convey("At the setpoint the output is zero", func() {
			out := c.Compute(42, 42, 42, limit, limit)
			So(out.A.Sign(), ShouldEqual, 0)
			So(out.B.Sign(), ShouldEqual, 0)
		})

		Convey("Gain can be swapped while running", func() {
			c.SetGain(Gains[0])
			out := c.Compute(1000, 0, 0, limit, limit)
			So(out.A.Sign(), ShouldEqual, 0)
			So(c.Gain().Equal(Gains[0]), ShouldBeTrue)
		})
	})
}
