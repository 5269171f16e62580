// Package visa adapts an NI-VISA message-based resource (GPIB, USB-TMC
// or TCPIP INSTR) to the kxci.Transport contract.
package visa

import (
	"fmt"
	"strings"
	"time"

	vi "github.com/jpoirier/visa"

	"github.com/Craig-Venables/kxci"
)

// readChunk is the per-read buffer size. KXCI responses are single
// lines; even a full 10k-point array response fits well under this.
const readChunk = 1 << 20

// Transport is a kxci.Transport over a VISA session.
type Transport struct {
	rm    vi.Session
	instr vi.Object
}

var _ kxci.Transport = (*Transport)(nil)

// Open opens the default resource manager and the instrument at the
// given VISA resource string, e.g. "GPIB0::17::INSTR".
func Open(resource string) (*Transport, error) {
	rm, status := vi.OpenDefaultRM()
	if status < vi.SUCCESS {
		return nil, fmt.Errorf("visa: opening resource manager: status %d", status)
	}

	instr, status := rm.Open(resource, vi.NULL, vi.NULL)
	if status < vi.SUCCESS {
		rm.Close()
		return nil, fmt.Errorf("visa: opening %s: status %d", resource, status)
	}

	return &Transport{rm: rm, instr: instr}, nil
}

// WriteLine sends one newline-terminated command line.
func (t *Transport) WriteLine(line string) error {
	b := []byte(line + "\n")
	_, status := t.instr.Write(b, uint32(len(b)))
	if status < vi.SUCCESS {
		return fmt.Errorf("visa: write failed: status %d", status)
	}

	return nil
}

// ReadLine reads one response line, stripping the line terminator.
func (t *Transport) ReadLine() (string, error) {
	b, _, status := t.instr.Read(readChunk)
	if status < vi.SUCCESS {
		return "", fmt.Errorf("visa: read failed: status %d", status)
	}

	return strings.TrimRight(string(b), "\r\n"), nil
}

// SetReadTimeout sets the VISA I/O timeout attribute.
func (t *Transport) SetReadTimeout(d time.Duration) error {
	status := t.instr.SetAttribute(vi.ATTR_TMO_VALUE, uint32(d.Milliseconds()))
	if status < vi.SUCCESS {
		return fmt.Errorf("visa: setting timeout attribute: status %d", status)
	}

	return nil
}

// Close closes the instrument session and the resource manager.
func (t *Transport) Close() error {
	if status := t.instr.Close(); status < vi.SUCCESS {
		t.rm.Close()
		return fmt.Errorf("visa: closing instrument: status %d", status)
	}
	if status := t.rm.Close(); status < vi.SUCCESS {
		return fmt.Errorf("visa: closing resource manager: status %d", status)
	}

	return nil
}
