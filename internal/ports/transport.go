package ports

// Transport is the serial link to the sensor.
//
// Reads are non-blocking: ReadAvailable returns whatever bytes the port
// currently holds, possibly none, without waiting for a complete
// packet. Framing is the accumulator's job, not the transport's.
type Transport interface {
	// Write sends raw command bytes to the device. A short write or
	// error mid-run indicates a device or cable fault and is fatal to
	// the capture loop.
	Write(p []byte) (int, error)

	// ReadAvailable returns zero or more buffered bytes immediately.
	ReadAvailable() ([]byte, error)

	Close() error
}
