// Package serialport implements ports.Transport on top of a physical
// RS-232 serial port.
package serialport

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/tarm/serial"
)

// readTimeout makes Port.ReadAvailable effectively non-blocking: a read
// returns whatever bytes arrived within this window, or nothing.
const readTimeout = 50 * time.Millisecond

// Port wraps a tarm/serial port as a ports.Transport.
type Port struct {
	p   *serial.Port
	buf []byte
}

// Open opens the named serial device (e.g. /dev/ttyUSB0, COM7) at the
// given baud rate, 8N1.
func Open(name string, baud int) (*Port, error) {
	p, err := serial.OpenPort(&serial.Config{
		Name:        name,
		Baud:        baud,
		ReadTimeout: readTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", name, err)
	}
	return &Port{p: p, buf: make([]byte, 1024)}, nil
}

// Write sends raw bytes to the device.
func (p *Port) Write(b []byte) (int, error) {
	return p.p.Write(b)
}

// ReadAvailable returns the bytes currently buffered on the port,
// possibly none. A read timeout is not an error.
func (p *Port) ReadAvailable() ([]byte, error) {
	n, err := p.p.Read(p.buf)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	out := make([]byte, n)
	copy(out, p.buf[:n])
	return out, nil
}

// Close releases the port.
func (p *Port) Close() error {
	return p.p.Close()
}
