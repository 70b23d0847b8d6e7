package errors

import "fmt"

// TokenMismatchError indicates the MCU replied with a token that is not
// exactly one greater (mod 2^32) than the token the host sent.
type TokenMismatchError struct {
	Sent, Received uint32
}

func (err TokenMismatchError) Error() string {
	return fmt.Sprintf("token mismatch; sent %08X, received %08X", err.Sent, err.Received)
}

// ExchangeStatusError indicates the MCU replied with a non success status.
type ExchangeStatusError struct {
	Status string
}

func (err ExchangeStatusError) Error() string {
	if len(err.Status) == 0 {
		err.Status = "UNKNOWN"
	}
	return fmt.Sprintf("exchange rejected by MCU with status %s", err.Status)
}

// ConfigValueError indicates a command carried a value outside the
// accepted range for its field. The prior value is kept.
type ConfigValueError struct {
	Field string
	Value interface{}
}

func (err ConfigValueError) Error() string {
	return fmt.Sprintf("invalid value %v for %s; keeping prior value", err.Value, err.Field)
}

// ManualOverrideError indicates a direct PWM command was refused because
// the closed loop currently owns the actuator.
type ManualOverrideError struct {
	Motor string
}

func (err ManualOverrideError) Error() string {
	if len(err.Motor) == 0 {
		err.Motor = "UNKNOWN"
	}
	return fmt.Sprintf("manual output for motor %s refused while closed loop control is active", err.Motor)
}
