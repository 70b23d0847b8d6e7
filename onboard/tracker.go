package onboard

import "github.com/shopspring/decimal"

// motorTracker folds the raw cumulative counter of one motor into a
// signed position. The counter itself carries no direction, so each delta
// is attributed the sign of the output that was driving the motor while
// the delta accrued, which is the output issued on the PREVIOUS tick and
// never the one about to be computed.
type motorTracker struct {
	total   [2]int64           // [0] previous, [1] current raw counter
	control [2]decimal.Decimal // [0] previous, [1] current issued output
	number  int64              // signed position accumulator, pulses
}

func newMotorTracker() *motorTracker {
	m := new(motorTracker)
	m.reset()
	return m
}

// update shifts the histories and advances the accumulator. Returns the
// new position and the signed delta attributed to this interval.
func (m *motorTracker) update(raw int64) (number, signedDelta int64) {
	m.total[0] = m.total[1]
	m.total[1] = raw
	m.control[0] = m.control[1]

	delta := m.total[1] - m.total[0]
	signedDelta = int64(m.control[0].Sign()) * delta
	m.number += signedDelta
	return m.number, signedDelta
}

// storeOutput records the output actually issued this tick; its sign
// attributes the NEXT interval's delta.
func (m *motorTracker) storeOutput(out decimal.Decimal) {
	m.control[1] = out
}

func (m *motorTracker) reset() {
	m.total[0] = 0
	m.total[1] = 0
	m.control[0] = decimal.New(0, -ScaleOutput)
	m.control[1] = decimal.New(0, -ScaleOutput)
	m.number = 0
}
