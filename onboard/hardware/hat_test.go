package hardware

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func lastChannelWrite(bus *testBus, ch uint8) []byte {
	reg := uint8(regLED0 + 4*ch)
	for i := len(bus.writes) - 1; i >= 0; i-- {
		if bus.writes[i].reg == reg {
			return bus.writes[i].data
		}
	}
	return nil
}

func duty(data []byte) uint16 {
	return uint16(data[2]) | uint16(data[3])<<8
}

func TestMotorDriverHAT(t *testing.T) {
	bus := &testBus{}
	hat, err := NewMotorDriverHAT(bus, 0x40, 100)

	Convey("construction programs the prescaler", t, func() {
		So(err, ShouldBeNil)
		So(hat, ShouldNotBeNil)

		// sleep, prescale, restart
		So(bus.writes[0].reg, ShouldEqual, regMODE1)
		So(bus.writes[1].reg, ShouldEqual, regPRESCALE)
		So(bus.writes[1].data[0], ShouldEqual, byte(oscClock/(pwmSteps*100)-1))
		So(bus.writes[2].data[0], ShouldEqual, byte(mode1Restart|mode1AI))
	})

	Convey("forward drive sets IN1 high, IN2 low", t, func() {
		So(hat.SetPwmA(0.5), ShouldBeNil)

		halfSpeed := float32(0.5)
		So(duty(lastChannelWrite(bus, chPWMA)), ShouldEqual, uint16(halfSpeed*(pwmSteps-1)))
		So(duty(lastChannelWrite(bus, chAIN1)), ShouldEqual, pwmSteps-1)
		So(duty(lastChannelWrite(bus, chAIN2)), ShouldEqual, 0)
	})

	Convey("reverse drive flips the direction pair", t, func() {
		So(hat.SetPwmB(-1.0), ShouldBeNil)

		So(duty(lastChannelWrite(bus, chPWMB)), ShouldEqual, pwmSteps-1)
		So(duty(lastChannelWrite(bus, chBIN1)), ShouldEqual, 0)
		So(duty(lastChannelWrite(bus, chBIN2)), ShouldEqual, pwmSteps-1)
	})

	Convey("speeds beyond the unit range are clamped", t, func() {
		So(hat.SetPwmA(1.5), ShouldBeNil)
		So(duty(lastChannelWrite(bus, chPWMA)), ShouldEqual, pwmSteps-1)

		So(hat.SetPwmA(-7), ShouldBeNil)
		So(duty(lastChannelWrite(bus, chPWMA)), ShouldEqual, pwmSteps-1)
		So(duty(lastChannelWrite(bus, chAIN2)), ShouldEqual, pwmSteps-1)
	})

	Convey("close parks both motors", t, func() {
		So(hat.Close(), ShouldBeNil)
		So(duty(lastChannelWrite(bus, chPWMA)), ShouldEqual, 0)
		So(duty(lastChannelWrite(bus, chPWMB)), ShouldEqual, 0)
	})

	Convey("a zero frequency is rejected", t, func() {
		_, err := NewMotorDriverHAT(bus, 0x40, 0)
		So(err, ShouldNotBeNil)
	})
}
