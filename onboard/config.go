package onboard

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Fixed decimal scales, shared across the package so a reset always
// produces the same textual zero the display layer expects.
const (
	ScaleCycleTime = 3
	ScaleOutput    = 3
	ScaleLimit     = 2
	ScaleGain      = 4
)

// Fraction is a yaml friendly signed fraction in [-1, 1], held at the
// limit scale.
type Fraction struct {
	decimal.Decimal
}

func (f Fraction) MarshalYAML() (interface{}, error) {
	v, _ := f.Float64()
	return v, nil
}

func (f *Fraction) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var v float64
	if err := unmarshal(&v); err != nil {
		return err
	}
	if v < -1.0 || v > 1.0 {
		return fmt.Errorf("fraction %v outside [-1, 1]", v)
	}
	f.Decimal = decimal.NewFromFloat(v).Round(ScaleLimit)
	return nil
}

type DriveConfig struct {
	Version int

	Bus struct {
		Device  string `yaml:"device"`
		MCUAddr uint16 `yaml:"mcu_addr"`
		HATAddr uint16 `yaml:"hat_addr"`
	}

	// PulsesPerRev converts destination revolutions into setpoint pulses.
	PulsesPerRev int64 `yaml:"pulses_per_rev"`

	PWMFrequency int    `yaml:"pwm_frequency"`
	CyclePin     string `yaml:"cycle_pin"`

	// initial per motor output limits
	LimitA Fraction `yaml:"limit_a"`
	LimitB Fraction `yaml:"limit_b"`

	Gain float64 `yaml:"gain"`

	Odometry struct {
		MetresPerPulse float64 `yaml:"metres_per_pulse"`
		TrackWidth     float64 `yaml:"track_width"`
	} `yaml:"odometry"`
}

// Defaults matching the reference rig: Arduino at 0x08, HAT at 0x40.
func DefaultConfig() (config DriveConfig) {
	config.Version = 1
	config.Bus.Device = "/dev/i2c-1"
	config.Bus.MCUAddr = 0x08
	config.Bus.HATAddr = 0x40
	config.PulsesPerRev = 6
	config.PWMFrequency = 100
	config.CyclePin = "GPIO23"
	config.Odometry.MetresPerPulse = 0.001
	config.Odometry.TrackWidth = 0.1
	return
}
