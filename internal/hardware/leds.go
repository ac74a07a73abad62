// Package hardware drives the hub's physical outputs: the WS2812b indicator
// strip over SPI and the RC-PWM motor controllers via the sysfs PWM class.
package hardware

import (
	"fmt"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"

	"hub-service/internal/types"
)

// spidev ioctls from linux/spi/spidev.h
const (
	spiIocWrMode       = 0x40016B01
	spiIocWrLsbFirst   = 0x40016B02
	spiIocWrMaxSpeedHz = 0x40046B04

	// Each WS2812b bit becomes one SPI byte at 6.5 MHz: a long high pulse
	// for 1, a short one for 0. The zero preamble holds the data line low
	// long enough to latch the previous frame.
	ledOne      = 0b1111_1100
	ledZero     = 0b1100_0000
	preambleLen = 42

	spiSpeedHz = 6_500_000
)

// LedStrip is the real indicator driver. All pixel mutation is buffered;
// Show encodes and transmits the whole frame in one SPI write.
type LedStrip struct {
	mu         sync.Mutex
	fd         int
	count      int
	brightness float64
	pixels     []types.Color
	buffer     []byte // preamble stays zero
}

func NewLedStrip(device string, count int) (*LedStrip, error) {
	fd, err := unix.Open(device, unix.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", device, err)
	}

	s := &LedStrip{
		fd:         fd,
		count:      count,
		brightness: 1.0,
		pixels:     make([]types.Color, count),
		buffer:     make([]byte, preambleLen+count*24),
	}

	var mode, lsb uint8
	if err := spiIoctl(fd, spiIocWrMode, unsafe.Pointer(&mode)); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("set SPI mode: %w", err)
	}
	if err := spiIoctl(fd, spiIocWrLsbFirst, unsafe.Pointer(&lsb)); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("set SPI bit order: %w", err)
	}
	speed := uint32(spiSpeedHz)
	if err := spiIoctl(fd, spiIocWrMaxSpeedHz, unsafe.Pointer(&speed)); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("set SPI speed: %w", err)
	}
	return s, nil
}

func spiIoctl(fd int, req uintptr, arg unsafe.Pointer) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), req, uintptr(arg))
	if errno != 0 {
		return errno
	}
	return nil
}

func (s *LedStrip) SetPixel(i int, c types.Color) {
	s.mu.Lock()
	if i >= 0 && i < s.count {
		s.pixels[i] = c
	}
	s.mu.Unlock()
}

func (s *LedStrip) SetAll(c types.Color) {
	s.mu.Lock()
	for i := range s.pixels {
		s.pixels[i] = c
	}
	s.mu.Unlock()
}

func (s *LedStrip) SetBrightness(b float64) {
	s.mu.Lock()
	if b < 0 {
		b = 0
	} else if b > 1 {
		b = 1
	}
	s.brightness = b
	s.mu.Unlock()
}

// Show encodes the pixel buffer and writes it to the strip.
func (s *LedStrip) Show() error {
	s.mu.Lock()
	encodeFrame(s.buffer[preambleLen:], s.pixels, s.brightness)
	buf := s.buffer
	fd := s.fd
	s.mu.Unlock()

	if err := writeFull(fd, buf); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// Clear blanks the strip immediately.
func (s *LedStrip) Clear() error {
	s.SetAll(types.ColorOff)
	return s.Show()
}

func (s *LedStrip) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fd < 0 {
		return nil
	}
	err := unix.Close(s.fd)
	s.fd = -1
	return err
}

// encodeFrame expands pixels into SPI bytes, GRB order, one byte per bit.
// dst must hold len(pixels)*24 bytes.
func encodeFrame(dst []byte, pixels []types.Color, brightness float64) {
	pos := 0
	for _, p := range pixels {
		for _, channel := range [3]uint8{scale(p.G, brightness), scale(p.R, brightness), scale(p.B, brightness)} {
			for bit := 7; bit >= 0; bit-- {
				if channel&(1<<uint(bit)) != 0 {
					dst[pos] = ledOne
				} else {
					dst[pos] = ledZero
				}
				pos++
			}
		}
	}
}

func scale(v uint8, brightness float64) uint8 {
	return uint8(float64(v) * brightness)
}

func writeFull(fd int, buf []byte) error {
	for len(buf) > 0 {
		n, err := unix.Write(fd, buf)
		if err != nil {
			return err
		}
		buf = buf[n:]
	}
	return nil
}

// NullStrip is the no-hardware indicator. It remembers the last color so
// tests and the dashboard still see indicator state.
type NullStrip struct {
	mu   sync.Mutex
	last types.Color
}

func (n *NullStrip) SetPixel(int, types.Color) {}

func (n *NullStrip) SetAll(c types.Color) {
	n.mu.Lock()
	n.last = c
	n.mu.Unlock()
}

func (n *NullStrip) SetBrightness(float64) {}
func (n *NullStrip) Show() error           { return nil }

func (n *NullStrip) Clear() error {
	n.SetAll(types.ColorOff)
	return nil
}

func (n *NullStrip) Close() error { return nil }

// Last returns the color most recently applied.
func (n *NullStrip) Last() types.Color {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.last
}
