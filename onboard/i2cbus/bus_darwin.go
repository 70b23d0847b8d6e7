package i2cbus

import (
	"sync"
)

// Development stub. There is no userspace I2C on darwin, so the bus echoes
// a well formed response back: token incremented, SUCCESS, counters frozen.
type I2CBus struct {
	lock sync.Mutex
	open bool
}

func Open(dev string) (bus *I2CBus, err error) {
	bus = &I2CBus{open: true}
	return
}

func (b *I2CBus) Exchange(addr uint16, req Request) (resp *Response, err error) {
	b.lock.Lock()
	defer b.lock.Unlock()

	if !b.open {
		return nil, ERR_BUS_CLOSED
	}

	resp = &Response{
		Token:  req.Token + 1,
		Status: StatusSuccess,
	}
	return
}

func (b *I2CBus) ReadRegister(addr uint16, reg uint8, buf []byte) error {
	return nil
}

func (b *I2CBus) WriteRegister(addr uint16, reg uint8, buf []byte) error {
	return nil
}

func (b *I2CBus) Close() error {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.open = false
	return nil
}
