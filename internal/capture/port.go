package capture

import (
	"io"
	"time"

	"go.bug.st/serial"
)

// Porter is the slice of the serial port surface the capture loop needs.
// The read timeout contract matches go.bug.st/serial: once a timeout is
// set, a Read that sees no data returns (0, nil) rather than an error.
type Porter interface {
	io.ReadWriter
	io.Closer
	SetReadTimeout(timeout time.Duration) error
}

// Opener opens the named serial endpoint. Substituting it lets tests
// drive the full capture loop without hardware.
type Opener func(endpoint string, opts PortOptions) (Porter, error)

// OpenSerial opens a real serial port via go.bug.st/serial.
func OpenSerial(endpoint string, opts PortOptions) (Porter, error) {
	mode, err := opts.SerialMode()
	if err != nil {
		return nil, err
	}

	port, err := serial.Open(endpoint, mode)
	if err != nil {
		return nil, err
	}

	return port, nil
}
