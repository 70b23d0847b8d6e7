package i2cbus

import (
	"encoding/binary"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestRequest_toByteArray(t *testing.T) {
	Convey("request encodes correctly", t, func() {
		req := &Request{
			Token:  0x01020304,
			Status: StatusSuccess,
		}
		raw := req.toByteArray()

		Convey("frame has the declared length", func() {
			So(len(raw), ShouldEqual, RequestLength)
		})

		Convey("token is little endian", func() {
			So(raw[0:4], ShouldResemble, []byte{0x04, 0x03, 0x02, 0x01})
		})

		Convey("status byte follows the token", func() {
			So(raw[4], ShouldEqual, byte(StatusSuccess))
		})
	})
}

func TestResponseFromByteArray(t *testing.T) {
	Convey("well formed response decodes correctly", t, func() {
		raw := make([]byte, ResponseLength)
		binary.LittleEndian.PutUint32(raw[0:4], 0xDEADBEEF)
		raw[4] = byte(StatusSuccess)
		binary.LittleEndian.PutUint32(raw[5:9], 42)
		binary.LittleEndian.PutUint32(raw[9:13], uint32(0xFFFFFFFB)) // -5
		binary.LittleEndian.PutUint32(raw[13:17], 1500)

		resp, err := responseFromByteArray(raw)
		So(err, ShouldBeNil)
		So(resp.Token, ShouldEqual, 0xDEADBEEF)
		So(resp.Status, ShouldEqual, StatusSuccess)
		So(resp.Value, ShouldEqual, 42)

		Convey("counters decode as signed values", func() {
			So(resp.RawA, ShouldEqual, -5)
			So(resp.RawB, ShouldEqual, 1500)
		})
	})

	Convey("short frames are rejected", t, func() {
		_, err := responseFromByteArray(make([]byte, ResponseLength-1))
		So(err, ShouldEqual, ERR_SHORT_FRAME)
	})

	Convey("unknown status bytes are rejected", t, func() {
		raw := make([]byte, ResponseLength)
		raw[4] = 0x7F
		_, err := responseFromByteArray(raw)
		So(err, ShouldEqual, ERR_BAD_STATUS)
	})
}

func TestStatusString(t *testing.T) {
	Convey("every known status has a stable name", t, func() {
		So(StatusNone.String(), ShouldEqual, "NONE")
		So(StatusInitial.String(), ShouldEqual, "INITIAL")
		So(StatusSuccess.String(), ShouldEqual, "SUCCESS")
		So(StatusError.String(), ShouldEqual, "ERROR")
		So(Status(9).String(), ShouldContainSubstring, "UNKNOWN")
	})
}
