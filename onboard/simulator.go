package onboard

import (
	"math"
	"sync"
	"time"

	"github.com/CodedInternet/godiffdrive/onboard/i2cbus"
)

const SIM_PULSES_PER_SECOND = 200
const SIM_CYCLE_INTERVAL = time.Second / 10

// SimulatedMCU plays the firmware side of the handshake without a bus.
// Counters accrue in proportion to whatever the paired actuator was last
// told, always upwards, the way the real directionless counters do.
type SimulatedMCU struct {
	mu       sync.Mutex
	rawA     float64
	rawB     float64
	speedA   float64
	speedB   float64
	failNext bool
	closed   bool
	last     time.Time
}

func NewSimulatedMCU() *SimulatedMCU {
	return new(SimulatedMCU)
}

func (s *SimulatedMCU) Exchange(token uint32, status i2cbus.Status) (resp *i2cbus.Response, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, i2cbus.ERR_BUS_CLOSED
	}
	if s.failNext {
		s.failNext = false
		return &i2cbus.Response{
			Token:  token,
			Status: i2cbus.StatusError,
		}, nil
	}

	s.advance(time.Now())
	resp = &i2cbus.Response{
		Token:  token + 1,
		Status: i2cbus.StatusSuccess,
		RawA:   int32(s.rawA),
		RawB:   int32(s.rawB),
	}
	return
}

// advance grows both counters by the time elapsed since the previous
// exchange. Direction is discarded deliberately.
func (s *SimulatedMCU) advance(now time.Time) {
	if !s.last.IsZero() {
		dt := now.Sub(s.last).Seconds()
		s.rawA += math.Abs(s.speedA) * SIM_PULSES_PER_SECOND * dt
		s.rawB += math.Abs(s.speedB) * SIM_PULSES_PER_SECOND * dt
	}
	s.last = now
}

// FailNext makes the next exchange report an error status once, for
// desynchronization drills from the shell.
func (s *SimulatedMCU) FailNext() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = true
}

func (s *SimulatedMCU) observe(a, b float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.advance(time.Now())
	s.speedA = a
	s.speedB = b
}

func (s *SimulatedMCU) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// SimulatedActuator feeds issued outputs back into the simulated MCU so
// the loop sees motion it caused.
type SimulatedActuator struct {
	mu     sync.Mutex
	mcu    *SimulatedMCU
	a, b   float64
	closed bool
}

func NewSimulatedActuator(mcu *SimulatedMCU) *SimulatedActuator {
	return &SimulatedActuator{mcu: mcu}
}

func (s *SimulatedActuator) SetPwmA(speed float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return i2cbus.ERR_BUS_CLOSED
	}
	s.a = float64(speed)
	s.mcu.observe(s.a, s.b)
	return nil
}

func (s *SimulatedActuator) SetPwmB(speed float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return i2cbus.ERR_BUS_CLOSED
	}
	s.b = float64(speed)
	s.mcu.observe(s.a, s.b)
	return nil
}

func (s *SimulatedActuator) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// RunSimulatedClock substitutes for the cycle pin: it invokes tick at a
// fixed interval until stop is closed.
func RunSimulatedClock(tick func(time.Time), stop <-chan struct{}) {
	go func() {
		t := time.NewTicker(SIM_CYCLE_INTERVAL)
		defer t.Stop()
		for {
			select {
			case now := <-t.C:
				tick(now)
			case <-stop:
				return
			}
		}
	}()
}

// NewSimulatedLoop wires a complete loop against the simulator pair.
func NewSimulatedLoop(config DriveConfig) (loop *ControlLoop, mcu *SimulatedMCU, err error) {
	mcu = NewSimulatedMCU()
	actuator := NewSimulatedActuator(mcu)
	controller := NewPController(Gains[6])
	loop, err = NewControlLoop(config, mcu, actuator, controller)
	return
}
