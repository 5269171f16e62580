// Package prologix adapts a Prologix GPIB-USB (or compatible AR488)
// controller on a serial port to the kxci.Transport contract.
//
// The controller is configured for controller-in-charge mode with
// read-after-write disabled, so every read is an explicit ++read
// addressed to the instrument.
package prologix

import (
	"bufio"
	"fmt"
	"strings"
	"time"

	gpib "github.com/gotmc/prologix"
	"go.bug.st/serial"
	"go.uber.org/multierr"

	"github.com/Craig-Venables/kxci"
)

const (
	// DefaultBaudRate is the Prologix VCP baud rate.
	DefaultBaudRate = 115200

	// maxControllerTimeout is the largest value ++read_tmo_ms accepts.
	// Longer waits are enforced at the serial layer.
	maxControllerTimeout = 3 * time.Second
)

// Transport is a kxci.Transport over a Prologix controller.
type Transport struct {
	port serial.Port
	ctrl *gpib.Controller
	rd   *bufio.Reader
}

var _ kxci.Transport = (*Transport)(nil)

// Option configures the transport.
type Option func(*options)

type options struct {
	baudRate int
	clear    bool
}

// WithBaudRate overrides the serial baud rate.
func WithBaudRate(baud int) Option { return func(o *options) { o.baudRate = baud } }

// WithDeviceClear sends Selected Device Clear to the instrument during
// setup.
func WithDeviceClear() Option { return func(o *options) { o.clear = true } }

// Open opens the serial port and configures the Prologix controller for
// the instrument at the given GPIB primary address.
func Open(portName string, addr int, opts ...Option) (*Transport, error) {
	o := options{baudRate: DefaultBaudRate}
	for _, opt := range opts {
		opt(&o)
	}

	port, err := serial.Open(portName, &serial.Mode{BaudRate: o.baudRate})
	if err != nil {
		return nil, fmt.Errorf("prologix: opening serial port %s: %w", portName, err)
	}

	ctrl, err := gpib.NewController(port, addr, o.clear)
	if err != nil {
		err = multierr.Append(
			fmt.Errorf("prologix: configuring controller at GPIB address %d: %w", addr, err),
			port.Close(),
		)
		return nil, err
	}

	return &Transport{
		port: port,
		ctrl: ctrl,
		rd:   bufio.NewReader(port),
	}, nil
}

// WriteLine sends one command line to the instrument.
func (t *Transport) WriteLine(line string) error {
	return t.ctrl.Command("%s", line)
}

// ReadLine addresses the instrument to talk and reads one line.
func (t *Transport) ReadLine() (string, error) {
	// Read-after-write is off; the controller only reads on request.
	if err := t.ctrl.CommandController("read eoi"); err != nil {
		return "", err
	}

	line, err := t.rd.ReadString('\n')
	if err != nil {
		return "", err
	}

	return strings.TrimRight(line, "\r\n"), nil
}

// SetReadTimeout sets the read timeout on both layers: the controller's
// GPIB read timeout (capped at its 3 s maximum) and the serial port.
func (t *Transport) SetReadTimeout(d time.Duration) error {
	ctrlTimeout := d
	if ctrlTimeout > maxControllerTimeout {
		ctrlTimeout = maxControllerTimeout
	}
	if err := t.ctrl.CommandController(fmt.Sprintf("read_tmo_ms %d", ctrlTimeout.Milliseconds())); err != nil {
		return err
	}

	return t.port.SetReadTimeout(d)
}

// Close returns the instrument to local control and closes the serial
// port.
func (t *Transport) Close() error {
	err := t.ctrl.CommandController("loc")
	return multierr.Append(err, t.port.Close())
}
