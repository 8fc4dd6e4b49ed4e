//go:build linux

package hardware

import (
	"context"
	"fmt"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"
	"golang.org/x/time/rate"
)

const (
	i2cRdwrIOCTL = 0x0707 // I2C_RDWR ioctl: combined write+read with REPEATED START
	i2cMsgRD     = 0x0001 // i2c_msg flag: read direction
	maxOpsPerSec = 50

	tmp102RegTemp = 0x00
)

// i2cMsg mirrors struct i2c_msg from linux/i2c.h
type i2cMsg struct {
	addr   uint16
	flags  uint16
	length uint16
	_pad   uint16 // struct alignment
	buf    uintptr
}

// i2cRdwr mirrors struct i2c_rdwr_ioctl_data from linux/i2c-dev.h
type i2cRdwr struct {
	msgs  uintptr
	nmsgs uint32
}

// I2CSensor reads a TMP102-class sensor over /dev/i2c-N.
type I2CSensor struct {
	mu      sync.Mutex
	fd      int
	dev     string
	addr    uint16
	limiter *rate.Limiter
}

// NewI2CSensor opens bus and checks for the sensor at addr.
func NewI2CSensor(bus int, addr uint16) (*I2CSensor, error) {
	dev := fmt.Sprintf("/dev/i2c-%d", bus)
	fd, err := unix.Open(dev, unix.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("i2c: open %s: %w", dev, err)
	}
	s := &I2CSensor{
		fd:      fd,
		dev:     dev,
		addr:    addr,
		limiter: rate.NewLimiter(rate.Limit(maxOpsPerSec), 1),
	}
	if _, _, err := s.readWordData(tmp102RegTemp); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("i2c: no sensor at 0x%02x on %s: %w", addr, dev, err)
	}
	return s, nil
}

// ReadTemperature reads the temperature register.
func (s *I2CSensor) ReadTemperature(ctx context.Context) (float64, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fd < 0 {
		return 0, fmt.Errorf("i2c: sensor closed")
	}
	msb, lsb, err := s.readWordData(tmp102RegTemp)
	if err != nil {
		return 0, err
	}
	return tmp102Celsius(msb, lsb), nil
}

// Close releases the bus file descriptor.
func (s *I2CSensor) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fd < 0 {
		return nil
	}
	err := unix.Close(s.fd)
	s.fd = -1
	return err
}

// readWordData performs START→addr|W→reg→RS→addr|R→msb,lsb→STOP.
func (s *I2CSensor) readWordData(reg byte) (byte, byte, error) {
	wbuf := [1]byte{reg}
	rbuf := [2]byte{}

	msgs := [2]i2cMsg{
		{addr: s.addr, flags: 0, length: 1, buf: uintptr(unsafe.Pointer(&wbuf[0]))},
		{addr: s.addr, flags: i2cMsgRD, length: 2, buf: uintptr(unsafe.Pointer(&rbuf[0]))},
	}
	rdwr := i2cRdwr{msgs: uintptr(unsafe.Pointer(&msgs[0])), nmsgs: 2}

	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(s.fd), i2cRdwrIOCTL, uintptr(unsafe.Pointer(&rdwr))); errno != 0 {
		return 0, 0, fmt.Errorf("i2c: I2C_RDWR read 0x%02x reg=0x%02x: %w", s.addr, reg, errno)
	}
	return rbuf[0], rbuf[1], nil
}
