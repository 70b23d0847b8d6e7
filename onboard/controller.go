package onboard

import (
	"sync"

	"github.com/shopspring/decimal"
)

// ControlOutput is one corrective command pair from the controller.
type ControlOutput struct {
	A, B decimal.Decimal
}

// PositionControllerInterface is the external control law. It is stateful
// and authoritative; the loop passes positions and limits verbatim and
// never smooths or re-clamps its result.
type PositionControllerInterface interface {
	Compute(setpoint, positionA, positionB int64, limitA, limitB decimal.Decimal) *ControlOutput
}

// Gains selectable from the presentation layer, weakest first.
var Gains = []decimal.Decimal{
	decimal.NewFromFloat(0.000).Round(ScaleGain),
	decimal.NewFromFloat(0.002).Round(ScaleGain),
	decimal.NewFromFloat(0.005).Round(ScaleGain),
	decimal.NewFromFloat(0.010).Round(ScaleGain),
	decimal.NewFromFloat(0.020).Round(ScaleGain),
	decimal.NewFromFloat(0.050).Round(ScaleGain),
	decimal.NewFromFloat(0.100).Round(ScaleGain),
	decimal.NewFromFloat(0.200).Round(ScaleGain),
	decimal.NewFromFloat(0.300).Round(ScaleGain),
	decimal.NewFromFloat(0.500).Round(ScaleGain),
	decimal.NewFromFloat(1.000).Round(ScaleGain),
	decimal.NewFromFloat(2.000).Round(ScaleGain),
	decimal.NewFromFloat(5.000).Round(ScaleGain),
	decimal.NewFromFloat(10.00).Round(ScaleGain),
}

// PController is a proportional position controller: each motor is driven
// towards the shared setpoint, clamped to its own limit magnitude.
type PController struct {
	mu   sync.Mutex
	gain decimal.Decimal
}

func NewPController(gain decimal.Decimal) *PController {
	return &PController{gain: gain.Round(ScaleGain)}
}

func (c *PController) SetGain(gain decimal.Decimal) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gain = gain.Round(ScaleGain)
}

func (c *PController) Gain() decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gain
}

func (c *PController) Compute(setpoint, positionA, positionB int64, limitA, limitB decimal.Decimal) *ControlOutput {
	c.mu.Lock()
	gain := c.gain
	c.mu.Unlock()

	return &ControlOutput{
		A: clampMagnitude(gain.Mul(decimal.NewFromInt(setpoint-positionA)), limitA).Round(ScaleOutput),
		B: clampMagnitude(gain.Mul(decimal.NewFromInt(setpoint-positionB)), limitB).Round(ScaleOutput),
	}
}

// clampMagnitude bounds out to |limit|, and always to the unit range.
func clampMagnitude(out, limit decimal.Decimal) decimal.Decimal {
	max := limit.Abs()
	if one := decimal.NewFromInt(1); max.GreaterThan(one) {
		max = one
	}

	if out.GreaterThan(max) {
		return max
	}
	if out.LessThan(max.Neg()) {
		return max.Neg()
	}
	return out
}
