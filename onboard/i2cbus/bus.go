package i2cbus

import "errors"

var (
	ERR_BUS_CLOSED = errors.New("bus has been closed")
)

// BusInterface is the message level contract the hardware drivers consume.
// The exchange is synchronous and bounded; it must return before the next
// cycle edge can plausibly fire.
type BusInterface interface {
	// Exchange writes a framed request to the device at addr and reads the
	// framed response in the same critical section.
	Exchange(addr uint16, req Request) (resp *Response, err error)

	// ReadRegister performs a register style read: a one byte register
	// select write followed by a read of len(buf) bytes.
	ReadRegister(addr uint16, reg uint8, buf []byte) error

	// WriteRegister writes the register select byte followed by buf.
	WriteRegister(addr uint16, reg uint8, buf []byte) error

	Close() error
}
