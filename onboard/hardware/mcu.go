package hardware

import (
	"bytes"
	"fmt"

	"github.com/CodedInternet/godiffdrive/onboard/i2cbus"
	"github.com/Masterminds/semver"
)

const (
	MCU_VERSION = "~0.1.0"

	REG_VERSION = 0xF0
	VERSION_LEN = 8
)

// EncoderMCU is the microcontroller that clocks the control loop and owns
// the raw encoder counters. Exactly one Exchange happens per cycle with
// no retry; a failed exchange is reported and the cycle carries on in
// fail safe.
type EncoderMCU struct {
	bus  i2cbus.BusInterface
	addr uint16
}

func NewEncoderMCU(bus i2cbus.BusInterface, addr uint16) (m *EncoderMCU, err error) {
	m = &EncoderMCU{
		bus:  bus,
		addr: addr,
	}

	// check version is acceptable
	versionString, err := m.Version()
	if err != nil {
		return
	}

	semVer, err := semver.NewVersion(versionString)
	if err != nil {
		// not a semver, but we might be able to recover
		if versionString == "DEV" {
			// running a direct dev build, consider it safe for now
			err = nil
			return
		}
		return
	}

	semVerConstraint, err := semver.NewConstraint(MCU_VERSION)
	if err != nil {
		return
	}

	if !semVerConstraint.Check(semVer) {
		err = fmt.Errorf("unable to use MCU at %#02x: received version %s - require %s", addr, versionString, MCU_VERSION)
	}

	return
}

func (m *EncoderMCU) Exchange(token uint32, status i2cbus.Status) (resp *i2cbus.Response, err error) {
	return m.bus.Exchange(m.addr, i2cbus.Request{
		Token:  token,
		Status: status,
	})
}

// Version reads the firmware version register as a NUL padded string.
func (m *EncoderMCU) Version() (version string, err error) {
	raw := make([]byte, VERSION_LEN)
	if err = m.bus.ReadRegister(m.addr, REG_VERSION, raw); err != nil {
		return
	}

	version = string(bytes.TrimRight(raw, "\x00"))
	return
}

func (m *EncoderMCU) Close() error {
	return nil
}
