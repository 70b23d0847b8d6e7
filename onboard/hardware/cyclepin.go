package hardware

import (
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// CyclePin watches the GPIO line the MCU pulses once per control period.
// Only rising edges trigger the callback; the board provides its own pull
// down so no internal resistor is requested.
type CyclePin struct {
	pin  gpio.PinIn
	stop chan struct{}
}

func NewCyclePin(name string) (c *CyclePin, err error) {
	if _, err = host.Init(); err != nil {
		return
	}

	pin := gpioreg.ByName(name)
	if pin == nil {
		return nil, fmt.Errorf("no such gpio pin %q", name)
	}

	if err = pin.In(gpio.Float, gpio.RisingEdge); err != nil {
		return
	}

	c = &CyclePin{
		pin:  pin,
		stop: make(chan struct{}),
	}
	return
}

// Run invokes tick for every rising edge until Close is called. The
// callback runs on the watcher goroutine; it must return before the next
// edge can plausibly fire.
func (c *CyclePin) Run(tick func(now time.Time)) {
	go func() {
		for {
			select {
			case <-c.stop:
				return
			default:
			}

			if !c.pin.WaitForEdge(time.Second) {
				// timeout, loop around so Close can take effect
				continue
			}
			tick(time.Now())
		}
	}()
}

func (c *CyclePin) Close() error {
	close(c.stop)
	return c.pin.Halt()
}
