package hardware

import (
	"errors"
	"testing"

	"github.com/CodedInternet/godiffdrive/onboard/i2cbus"
	. "github.com/smartystreets/goconvey/convey"
)

type testBus struct {
	version   string
	exchErr   bool
	lastReq   i2cbus.Request
	lastAddr  uint16
	respToken uint32
	respA     int32
	respB     int32

	writes []regWrite
}

type regWrite struct {
	addr uint16
	reg  uint8
	data []byte
}

func (t *testBus) Exchange(addr uint16, req i2cbus.Request) (*i2cbus.Response, error) {
	t.lastAddr = addr
	t.lastReq = req
	if t.exchErr {
		return nil, errors.New("this is a simulated bus error")
	}
	return &i2cbus.Response{
		Token:  t.respToken,
		Status: i2cbus.StatusSuccess,
		RawA:   t.respA,
		RawB:   t.respB,
	}, nil
}

func (t *testBus) ReadRegister(addr uint16, reg uint8, buf []byte) error {
	if reg == REG_VERSION {
		copy(buf, t.version)
		return nil
	}
	return errors.New("unknown register")
}

func (t *testBus) WriteRegister(addr uint16, reg uint8, buf []byte) error {
	data := make([]byte, len(buf))
	copy(data, buf)
	t.writes = append(t.writes, regWrite{addr, reg, data})
	return nil
}

func (t *testBus) Close() error {
	return nil
}

func TestNewEncoderMCU(t *testing.T) {
	Convey("firmware version is gated on construction", t, func() {
		Convey("matching version is accepted", func() {
			bus := &testBus{version: "0.1.3"}
			mcu, err := NewEncoderMCU(bus, 0x08)

			So(err, ShouldBeNil)
			So(mcu, ShouldNotBeNil)
		})

		Convey("out of range version is rejected", func() {
			bus := &testBus{version: "1.0.0"}
			_, err := NewEncoderMCU(bus, 0x08)

			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, MCU_VERSION)
		})

		Convey("DEV builds are allowed through", func() {
			bus := &testBus{version: "DEV"}
			_, err := NewEncoderMCU(bus, 0x08)

			So(err, ShouldBeNil)
		})
	})
}

func TestEncoderMCU_Exchange(t *testing.T) {
	bus := &testBus{version: "0.1.0", respToken: 6, respA: 100, respB: -3}
	mcu, err := NewEncoderMCU(bus, 0x08)
	if err != nil {
		t.Fatal(err)
	}

	Convey("exchange frames go to the configured address", t, func() {
		resp, err := mcu.Exchange(5, i2cbus.StatusSuccess)

		So(err, ShouldBeNil)
		So(bus.lastAddr, ShouldEqual, 0x08)
		So(bus.lastReq, ShouldResemble, i2cbus.Request{Token: 5, Status: i2cbus.StatusSuccess})
		So(resp.Token, ShouldEqual, 6)
		So(resp.RawA, ShouldEqual, 100)
		So(resp.RawB, ShouldEqual, -3)
	})

	Convey("bus faults surface to the caller", t, func() {
		bus.exchErr = true
		_, err := mcu.Exchange(6, i2cbus.StatusSuccess)
		So(err, ShouldNotBeNil)
	})
}
