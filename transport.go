package kxci

import "time"

// Transport is the line-oriented channel to the instrument. The client
// depends on nothing beyond these four capabilities; VISA, a Prologix
// GPIB controller, or a test double all satisfy it.
//
// Implementations terminate outgoing lines and strip incoming line
// terminators themselves.
type Transport interface {
	// WriteLine sends one command line.
	WriteLine(line string) error
	// ReadLine reads one response line, waiting up to the configured
	// read timeout. A timeout is a transport-level failure.
	ReadLine() (string, error)
	// SetReadTimeout sets the timeout for subsequent ReadLine calls.
	SetReadTimeout(d time.Duration) error
	// Close releases the underlying channel. Closing while an operation
	// is pending on the instrument aborts it as a side effect.
	Close() error
}
