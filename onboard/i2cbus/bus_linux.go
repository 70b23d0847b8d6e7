package i2cbus

import (
	"io"
	"os"
	"sync"

	"golang.org/x/sys/unix"
)

const i2c_SLAVE = 0x0703

// I2CBus drives a Linux /dev/i2c-* character device. All operations take
// the lock so a register write can never interleave with an exchange.
type I2CBus struct {
	f    *os.File
	lock sync.Mutex
	open bool
}

func Open(dev string) (bus *I2CBus, err error) {
	f, err := os.OpenFile(dev, os.O_RDWR, 0600)
	if err != nil {
		return
	}

	bus = &I2CBus{
		f:    f,
		open: true,
	}
	return
}

func (b *I2CBus) connect(addr uint16) (err error) {
	_, _, e1 := unix.Syscall(unix.SYS_IOCTL, b.f.Fd(), i2c_SLAVE, uintptr(addr))
	if e1 != 0 {
		err = e1
	}
	return
}

func (b *I2CBus) Exchange(addr uint16, req Request) (resp *Response, err error) {
	b.lock.Lock()
	defer b.lock.Unlock()

	if !b.open {
		return nil, ERR_BUS_CLOSED
	}

	if err = b.connect(addr); err != nil {
		return
	}

	if _, err = b.f.Write(req.toByteArray()); err != nil {
		return
	}

	raw := make([]byte, ResponseLength)
	if _, err = io.ReadFull(b.f, raw); err != nil {
		return
	}

	return responseFromByteArray(raw)
}

func (b *I2CBus) ReadRegister(addr uint16, reg uint8, buf []byte) (err error) {
	b.lock.Lock()
	defer b.lock.Unlock()

	if !b.open {
		return ERR_BUS_CLOSED
	}

	if err = b.connect(addr); err != nil {
		return
	}

	if _, err = b.f.Write([]byte{reg}); err != nil {
		return
	}
	_, err = io.ReadFull(b.f, buf)
	return
}

func (b *I2CBus) WriteRegister(addr uint16, reg uint8, buf []byte) (err error) {
	b.lock.Lock()
	defer b.lock.Unlock()

	if !b.open {
		return ERR_BUS_CLOSED
	}

	if err = b.connect(addr); err != nil {
		return
	}

	raw := make([]byte, 0, len(buf)+1)
	raw = append(raw, reg)
	raw = append(raw, buf...)
	_, err = b.f.Write(raw)
	return
}

func (b *I2CBus) Close() error {
	b.lock.Lock()
	defer b.lock.Unlock()

	if !b.open {
		return nil
	}
	b.open = false
	return b.f.Close()
}
