package onboard

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/CodedInternet/godiffdrive/onboard/errors"
	"github.com/CodedInternet/godiffdrive/onboard/hardware"
	"github.com/CodedInternet/godiffdrive/onboard/i2cbus"
	"github.com/shopspring/decimal"
)

// HandshakeStatus is the host side view of the token exchange.
type HandshakeStatus int

const (
	// StatusIdle - no active run; the tick performs no bus traffic.
	StatusIdle HandshakeStatus = iota
	// StatusAwaitingFirst - start was requested; the next exchange sends
	// token zero.
	StatusAwaitingFirst
	// StatusSynchronized - the previous exchange validated.
	StatusSynchronized
	// StatusDesynchronized - the previous exchange failed; outputs are
	// held at zero until an explicit start.
	StatusDesynchronized
)

func (s HandshakeStatus) String() string {
	switch s {
	case StatusIdle:
		return "Idle"
	case StatusAwaitingFirst:
		return "AwaitingFirst"
	case StatusSynchronized:
		return "Synchronized"
	case StatusDesynchronized:
		return "Desynchronized"
	}
	return "Unknown"
}

// observers and the state feed see the name, not the ordinal
func (s HandshakeStatus) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// wire maps the host state onto the shared exchange vocabulary.
func (s HandshakeStatus) wire() i2cbus.Status {
	switch s {
	case StatusAwaitingFirst:
		return i2cbus.StatusInitial
	case StatusSynchronized:
		return i2cbus.StatusSuccess
	case StatusDesynchronized:
		return i2cbus.StatusError
	}
	return i2cbus.StatusNone
}

// ControlLoop owns every piece of state the tick touches. The MCU clocks
// it externally: Tick runs once per rising edge of the cycle pin and does
// the entire cycle synchronously - handshake, tracking, control, gate.
//
// All mutation, whether from Tick or from the command surface, happens
// under mu; there is exactly one writer at a time and never a torn read
// of the two slot histories. Observer notifications are queued under mu
// and delivered in order by a dedicated goroutine, so listeners run
// outside the lock: a slow listener cannot stall the cycle or a command,
// and a listener may call back into the loop.
type ControlLoop struct {
	mu sync.Mutex

	mcu        hardware.MCUInterface
	actuator   hardware.ActuatorInterface
	controller PositionControllerInterface

	running  bool
	shutdown bool
	hsStatus HandshakeStatus
	token    uint64 // low 32 bits are the wire token

	counter uint64
	past    time.Time

	trackA, trackB *motorTracker
	odo            *odometer
	pose           Pose

	setpoint     int64
	pulsesPerRev int64
	limitA       decimal.Decimal
	limitB       decimal.Decimal
	controlled   bool

	cycleTime decimal.Decimal
	outputA   decimal.Decimal
	outputB   decimal.Decimal

	last Snapshot

	props propertySupport

	notifyMu   sync.Mutex
	notifyCond *sync.Cond
	pending    []propertyChange
	delivering bool
}

// propertyChange is one queued observer notification.
type propertyChange struct {
	key      string
	old, new interface{}
}

func NewControlLoop(config DriveConfig, mcu hardware.MCUInterface, actuator hardware.ActuatorInterface, controller PositionControllerInterface) (l *ControlLoop, err error) {
	switch config.Version {
	case 1:
		// fallthrough to construction
	default:
		return nil, fmt.Errorf("unable to work with version %d", config.Version)
	}

	pulses := config.PulsesPerRev
	if pulses <= 0 {
		pulses = DefaultConfig().PulsesPerRev
	}

	l = &ControlLoop{
		mcu:          mcu,
		actuator:     actuator,
		controller:   controller,
		hsStatus:     StatusIdle,
		trackA:       newMotorTracker(),
		trackB:       newMotorTracker(),
		odo:          newOdometer(config.Odometry.MetresPerPulse, config.Odometry.TrackWidth),
		pulsesPerRev: pulses,
		limitA:       config.LimitA.Decimal.Round(ScaleLimit),
		limitB:       config.LimitB.Decimal.Round(ScaleLimit),
		cycleTime:    decimal.New(0, -ScaleCycleTime),
		outputA:      decimal.New(0, -ScaleOutput),
		outputB:      decimal.New(0, -ScaleOutput),
	}
	l.notifyCond = sync.NewCond(&l.notifyMu)
	go l.notifyLoop()
	return
}

// queue records a notification for the dispatcher. Callers hold mu, so
// the publication order of the queue matches the mutation order.
func (l *ControlLoop) queue(key string, oldValue, newValue interface{}) {
	l.notifyMu.Lock()
	l.pending = append(l.pending, propertyChange{key, oldValue, newValue})
	l.notifyMu.Unlock()
	l.notifyCond.Broadcast()
}

func (l *ControlLoop) notifyLoop() {
	for {
		l.notifyMu.Lock()
		for len(l.pending) == 0 {
			l.delivering = false
			l.notifyCond.Broadcast()
			l.notifyCond.Wait()
		}
		ev := l.pending[0]
		l.pending = l.pending[1:]
		l.delivering = true
		l.notifyMu.Unlock()

		l.props.fire(ev.key, ev.old, ev.new)
	}
}

// settle blocks until every queued notification has been delivered.
func (l *ControlLoop) settle() {
	l.notifyMu.Lock()
	for len(l.pending) > 0 || l.delivering {
		l.notifyCond.Wait()
	}
	l.notifyMu.Unlock()
}

// AddListener registers an observer for property changes; returns a
// handle for RemoveListener. Safe at any time.
func (l *ControlLoop) AddListener(p PropertyListener) int {
	return l.props.AddListener(p)
}

func (l *ControlLoop) RemoveListener(id int) {
	l.props.RemoveListener(id)
}

// Snapshot returns the most recently published tick record.
func (l *ControlLoop) Snapshot() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.last
}

func (l *ControlLoop) Status() (running bool, hs HandshakeStatus) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running, l.hsStatus
}

// Tick runs one full control cycle. It is invoked once per rising edge
// of the cycle pin; other edge types never reach it. It must never
// panic: every fault inside the cycle degrades to fail safe output and a
// report, and a snapshot is published regardless.
func (l *ControlLoop) Tick(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.shutdown {
		return
	}

	// 1. measured duration since the previous edge; first edge has no
	// reference and records zero
	if l.past.IsZero() {
		l.cycleTime = decimal.New(0, -ScaleCycleTime)
	} else {
		l.cycleTime = cycleSeconds(now.Sub(l.past))
	}
	l.past = now

	// 2. counter advances every tick and can never become zero again
	if l.counter+1 == 0 {
		l.counter = 1
	} else {
		l.counter++
	}

	// 3. provisional snapshot so observers always see a fresh tick
	// marker, even if the exchange fails below
	l.publishSnapshot()

	// 4. handshake
	failSafe := false
	var resp *i2cbus.Response
	if l.hsStatus == StatusIdle {
		failSafe = true
	} else {
		resp = l.exchange()
		failSafe = resp == nil
	}

	var out *ControlOutput
	if !failSafe {
		// 5. position tracking
		posA, dA := l.trackA.update(int64(resp.RawA))
		posB, dB := l.trackB.update(int64(resp.RawB))
		l.pose = l.odo.advance(dA, dB)

		// 6. control invocation
		out = l.controller.Compute(l.setpoint, posA, posB, l.limitA, l.limitB)
	}

	// 7. output gate
	finalA, finalB := applyGate(out, l.controlled, failSafe)
	if !failSafe {
		// the sign of what was actually issued attributes the next delta
		l.trackA.storeOutput(finalA)
		l.trackB.storeOutput(finalB)
	}
	l.outputA = finalA
	l.outputB = finalB

	l.actuate(finalA, finalB)
}

// exchange performs the one request/response of this tick. Returns nil
// on any failure, leaving the loop desynchronized with the token
// untouched on transport faults.
func (l *ControlLoop) exchange() *i2cbus.Response {
	if l.hsStatus == StatusAwaitingFirst {
		// first exchange of a run always announces itself with token zero
		l.token = 0
	}

	sent := uint32(l.token & tokenMask)
	resp, err := l.mcu.Exchange(sent, l.hsStatus.wire())
	if err != nil {
		l.setHandshake(StatusDesynchronized)
		l.reportFault(err)
		return nil
	}

	received := resp.Token // uint32, mod 2^32 arithmetic is implicit
	if received-sent == 1 && resp.Status == i2cbus.StatusSuccess {
		l.setHandshake(StatusSynchronized)
		l.token = uint64(received) & tokenMask
		return resp
	}

	l.setHandshake(StatusDesynchronized)
	if resp.Status != i2cbus.StatusSuccess {
		l.reportFault(errors.ExchangeStatusError{Status: resp.Status.String()})
	} else {
		l.reportFault(errors.TokenMismatchError{Sent: sent, Received: received})
	}
	return nil
}

// Do applies one command from the presentation layer. It takes the same
// lock as Tick, so commands are serialized against the cycle; stop and
// shutdown force fail safe output immediately rather than waiting for
// the next edge. Configuration faults keep the prior value and are
// reported, never fatal.
func (l *ControlLoop) Do(cmd Command) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.shutdown {
		return fmt.Errorf("loop has been shut down")
	}

	switch cmd.Kind {
	case CmdStart:
		l.doStart()

	case CmdStop:
		l.doStop()

	case CmdReset:
		l.doReset()

	case CmdShutdown:
		l.doShutdown()

	case CmdSetControlled:
		old := l.controlled
		l.controlled = cmd.Flag
		l.queue(KeyControl, old, l.controlled)

	case CmdSetLimitA:
		return l.setLimit(&l.limitA, KeyLimitA, cmd.Value)

	case CmdSetLimitB:
		return l.setLimit(&l.limitB, KeyLimitB, cmd.Value)

	case CmdSetDestination:
		// destination is given in revolutions; the setpoint lives in
		// pulses, rounded away from zero
		old := l.setpoint
		l.setpoint = cmd.Value.Mul(decimal.NewFromInt(l.pulsesPerRev)).RoundUp(0).IntPart()
		l.queue(KeySetpoint, old, l.setpoint)

	case CmdSetGain:
		return l.setGain(cmd.Value)

	case CmdManualA:
		return l.manual(cmd.Value, "A", l.actuator.SetPwmA)

	case CmdManualB:
		return l.manual(cmd.Value, "B", l.actuator.SetPwmB)

	default:
		return fmt.Errorf("unknown command %v", cmd.Kind)
	}

	return nil
}

func (l *ControlLoop) doStart() {
	log.Print("doStart()")
	old := l.running
	l.running = true
	l.setHandshake(StatusAwaitingFirst)

	// observers get a fresh snapshot immediately, stale values included
	l.publishSnapshot()
	l.queue(KeyRunState, old, true)
}

func (l *ControlLoop) doStop() {
	log.Print("doStop()")
	old := l.running
	l.running = false
	l.setHandshake(StatusIdle)

	l.clear()
	l.actuate(l.outputA, l.outputB)
	l.queue(KeyRunState, old, false)
}

func (l *ControlLoop) doReset() {
	log.Print("doReset()")
	l.token = 0
	l.clear()
	l.publishSnapshot()
}

func (l *ControlLoop) doShutdown() {
	log.Print("shutdown()")
	l.doStop()
	l.shutdown = true

	if err := l.mcu.Close(); err != nil {
		log.Printf("mcu close: %v", err)
	}
	if err := l.actuator.Close(); err != nil {
		log.Printf("actuator close: %v", err)
	}
}

// clear zeroes the tracking state and the issued outputs at their fixed
// scales. Setpoint and limits survive. Idempotent.
func (l *ControlLoop) clear() {
	l.trackA.reset()
	l.trackB.reset()
	l.odo.reset()
	l.pose = Pose{}
	l.outputA = decimal.New(0, -ScaleOutput)
	l.outputB = decimal.New(0, -ScaleOutput)
}

func (l *ControlLoop) setLimit(field *decimal.Decimal, key string, value decimal.Decimal) error {
	if err := validFraction(key, value); err != nil {
		l.reportFault(err)
		return err
	}

	old := *field
	*field = value.Round(ScaleLimit)
	l.queue(key, old, *field)
	return nil
}

func (l *ControlLoop) setGain(value decimal.Decimal) error {
	tunable, ok := l.controller.(interface {
		SetGain(decimal.Decimal)
		Gain() decimal.Decimal
	})
	if !ok {
		err := errors.ConfigValueError{Field: KeyGain, Value: value}
		l.reportFault(err)
		return err
	}
	if value.IsNegative() {
		err := errors.ConfigValueError{Field: KeyGain, Value: value}
		l.reportFault(err)
		return err
	}

	old := tunable.Gain()
	tunable.SetGain(value)
	l.queue(KeyGain, old, tunable.Gain())
	return nil
}

// manual is the direct PWM path: it bypasses the gate entirely, so it is
// refused while the closed loop owns the actuator.
func (l *ControlLoop) manual(value decimal.Decimal, motor string, set func(float32) error) error {
	if l.running && l.controlled {
		err := errors.ManualOverrideError{Motor: motor}
		l.reportFault(err)
		return err
	}
	if err := validFraction("manual"+motor, value); err != nil {
		l.reportFault(err)
		return err
	}

	f, _ := value.Round(ScaleOutput).Float64()
	if err := set(float32(f)); err != nil {
		l.reportFault(err)
		return err
	}
	return nil
}

func (l *ControlLoop) setHandshake(status HandshakeStatus) {
	if l.hsStatus == status {
		return
	}
	old := l.hsStatus
	l.hsStatus = status
	l.queue(KeyHandshake, old, status)
}

func (l *ControlLoop) publishSnapshot() {
	old := l.last
	l.last = Snapshot{
		Counter:   l.counter,
		CycleTime: l.cycleTime,
		Token:     TokenString(l.token),
		PositionA: l.trackA.number,
		PositionB: l.trackB.number,
		OutputA:   l.outputA,
		OutputB:   l.outputB,
		Pose:      l.pose,
	}
	l.queue(KeySnapshot, old, l.last)
}

// actuate pushes the final outputs as two independent single precision
// calls. A transport fault is reported and does not abort the tick.
func (l *ControlLoop) actuate(a, b decimal.Decimal) {
	fa, _ := a.Float64()
	if err := l.actuator.SetPwmA(float32(fa)); err != nil {
		log.Printf("setPwmA: %v", err)
		l.reportFault(err)
	}

	fb, _ := b.Float64()
	if err := l.actuator.SetPwmB(float32(fb)); err != nil {
		log.Printf("setPwmB: %v", err)
		l.reportFault(err)
	}
}

func (l *ControlLoop) reportFault(err error) {
	log.Printf("fault: %v", err)
	l.queue(KeyFault, nil, err.Error())
}

func validFraction(field string, value decimal.Decimal) error {
	one := decimal.NewFromInt(1)
	if value.GreaterThan(one) || value.LessThan(one.Neg()) {
		return errors.ConfigValueError{Field: field, Value: value}
	}
	return nil
}

// cycleSeconds renders a tick duration in seconds at the display scale.
// Anything below the resolvable step reads as a stable zero.
func cycleSeconds(d time.Duration) decimal.Decimal {
	if d < 0 {
		return decimal.New(0, -ScaleCycleTime)
	}
	sec := decimal.New(d.Nanoseconds(), -9).Round(ScaleCycleTime)
	if sec.LessThan(decimal.New(1, -ScaleCycleTime)) {
		return decimal.New(0, -ScaleCycleTime)
	}
	return sec
}
