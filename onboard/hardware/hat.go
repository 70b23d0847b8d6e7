package hardware

import (
	"fmt"
	"sync"

	"github.com/CodedInternet/godiffdrive/onboard/i2cbus"
)

// PCA9685 register map, as wired on the motor driver HAT.
const (
	regMODE1    = 0x00
	regPRESCALE = 0xFE
	regLED0     = 0x06

	mode1Sleep   = 0x10
	mode1Restart = 0x80
	mode1AI      = 0x20 // register auto increment

	oscClock = 25000000
	pwmSteps = 4096

	// channel assignment on the HAT
	chPWMA = 0
	chAIN1 = 1
	chAIN2 = 2
	chBIN1 = 3
	chBIN2 = 4
	chPWMB = 5
)

// MotorDriverHAT drives the two DC motor channels of a PCA9685 based
// motor driver board. Speeds are signed fractions in [-1, 1]; the sign
// selects the direction pin pair, the magnitude the PWM duty.
type MotorDriverHAT struct {
	bus  i2cbus.BusInterface
	addr uint16
	lock sync.Mutex
}

func NewMotorDriverHAT(bus i2cbus.BusInterface, addr uint16, freqHz int) (h *MotorDriverHAT, err error) {
	h = &MotorDriverHAT{
		bus:  bus,
		addr: addr,
	}

	if freqHz <= 0 {
		return nil, fmt.Errorf("invalid pwm frequency %d", freqHz)
	}

	// sleep, program prescale, wake with auto increment
	if err = h.bus.WriteRegister(h.addr, regMODE1, []byte{mode1Sleep}); err != nil {
		return
	}
	prescale := byte(oscClock/(pwmSteps*freqHz) - 1)
	if err = h.bus.WriteRegister(h.addr, regPRESCALE, []byte{prescale}); err != nil {
		return
	}
	if err = h.bus.WriteRegister(h.addr, regMODE1, []byte{mode1Restart | mode1AI}); err != nil {
		return
	}

	return
}

func (h *MotorDriverHAT) SetPwmA(speed float32) error {
	return h.setMotor(chPWMA, chAIN1, chAIN2, speed)
}

func (h *MotorDriverHAT) SetPwmB(speed float32) error {
	return h.setMotor(chPWMB, chBIN1, chBIN2, speed)
}

func (h *MotorDriverHAT) setMotor(pwm, in1, in2 uint8, speed float32) (err error) {
	if speed > 1.0 {
		speed = 1.0
	} else if speed < -1.0 {
		speed = -1.0
	}

	forward := speed >= 0
	if !forward {
		speed = -speed
	}
	duty := uint16(speed * (pwmSteps - 1))

	h.lock.Lock()
	defer h.lock.Unlock()

	if err = h.setChannel(pwm, 0, duty); err != nil {
		return
	}
	if forward {
		if err = h.setChannel(in1, 0, pwmSteps-1); err != nil {
			return
		}
		err = h.setChannel(in2, 0, 0)
	} else {
		if err = h.setChannel(in1, 0, 0); err != nil {
			return
		}
		err = h.setChannel(in2, 0, pwmSteps-1)
	}
	return
}

// setChannel programs the four ON/OFF registers of a single channel.
// Caller must hold the lock.
func (h *MotorDriverHAT) setChannel(ch uint8, on, off uint16) error {
	return h.bus.WriteRegister(h.addr, regLED0+4*ch, []byte{
		byte(on), byte(on >> 8),
		byte(off), byte(off >> 8),
	})
}

func (h *MotorDriverHAT) Close() (err error) {
	// park both motors before releasing the device
	if err = h.SetPwmA(0); err != nil {
		return
	}
	return h.SetPwmB(0)
}
