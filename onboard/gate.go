package onboard

import "github.com/shopspring/decimal"

// applyGate decides what actually reaches the motors.
//
// Fail safe always wins: a failed or skipped handshake zeroes both
// outputs no matter what the controller produced. With the loop healthy
// but control disabled the computed output is discarded, not applied;
// manual PWM takes a separate path that never goes through here. A nil
// controller result is substituted by zero; the gate does not re-clamp.
func applyGate(out *ControlOutput, controlled, failSafe bool) (finalA, finalB decimal.Decimal) {
	zero := decimal.New(0, -ScaleOutput)

	if failSafe || !controlled || out == nil {
		return zero, zero
	}

	return out.A.Round(ScaleOutput), out.B.Round(ScaleOutput)
}
