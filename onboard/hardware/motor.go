package hardware

import "github.com/CodedInternet/godiffdrive/onboard/i2cbus"

// ActuatorInterface is the contract the control loop pushes commands
// through. Implementations must accept fractions in [-1, 1]; one call per
// motor per cycle.
type ActuatorInterface interface {
	SetPwmA(speed float32) error
	SetPwmB(speed float32) error
	Close() error
}

// MCUInterface is the handshake side of the cycle: one synchronous
// exchange per tick.
type MCUInterface interface {
	Exchange(token uint32, status i2cbus.Status) (resp *i2cbus.Response, err error)
	Close() error
}
