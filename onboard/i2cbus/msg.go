package i2cbus

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	// RequestLength is the framed size of a host -> MCU exchange request.
	RequestLength = 5

	// ResponseLength is the framed size of an MCU -> host exchange response.
	ResponseLength = 17
)

// errors
var (
	ERR_SHORT_FRAME = errors.New("frame is shorter than the declared layout")
	ERR_BAD_STATUS  = errors.New("status byte outside known vocabulary")
)

// Status is the exchange vocabulary shared between host and MCU. The raw
// byte values are part of the wire contract and must not be reordered.
type Status uint8

const (
	StatusNone Status = iota
	StatusInitial
	StatusSuccess
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusNone:
		return "NONE"
	case StatusInitial:
		return "INITIAL"
	case StatusSuccess:
		return "SUCCESS"
	case StatusError:
		return "ERROR"
	}
	return fmt.Sprintf("UNKNOWN(%#02x)", uint8(s))
}

// Request carries the host's previous token and its view of the exchange
// state to the MCU once per cycle.
type Request struct {
	Token  uint32
	Status Status
}

// Response carries the incremented token, the MCU's status and the raw
// cumulative encoder counters for both motors. Counters are signed and
// directly subtractable; the MCU never resets them mid-run.
type Response struct {
	Token  uint32
	Status Status
	Value  uint32 // auxiliary data word, firmware defined
	RawA   int32
	RawB   int32
}

func (req *Request) toByteArray() (raw []byte) {
	raw = make([]byte, RequestLength)

	binary.LittleEndian.PutUint32(raw[0:4], req.Token)
	raw[4] = byte(req.Status)

	return
}

func responseFromByteArray(raw []byte) (resp *Response, err error) {
	if len(raw) < ResponseLength {
		return nil, ERR_SHORT_FRAME
	}

	status := Status(raw[4])
	if status > StatusError {
		return nil, ERR_BAD_STATUS
	}

	resp = &Response{
		Token:  binary.LittleEndian.Uint32(raw[0:4]),
		Status: status,
		Value:  binary.LittleEndian.Uint32(raw[5:9]),
		RawA:   int32(binary.LittleEndian.Uint32(raw[9:13])),
		RawB:   int32(binary.LittleEndian.Uint32(raw[13:17])),
	}

	return
}

func (resp *Response) String() string {
	return fmt.Sprintf("[%08X %v %d %d %d]", resp.Token, resp.Status, resp.Value, resp.RawA, resp.RawB)
}
