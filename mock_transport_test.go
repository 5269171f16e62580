package kxci

import (
	"errors"
	"sync"
	"testing"
	"time"
)

var errScriptExhausted = errors.New("script exhausted")

type reply struct {
	line string
	err  error
}

// scriptTransport is a scripted Transport double: it records every
// written line and serves queued replies in order.
type scriptTransport struct {
	mu      sync.Mutex
	writes  []string
	replies []reply

	writeErr    error
	readTimeout time.Duration
	closed      bool
}

var _ Transport = (*scriptTransport)(nil)

func (t *scriptTransport) WriteLine(line string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.writeErr != nil {
		return t.writeErr
	}
	t.writes = append(t.writes, line)

	return nil
}

func (t *scriptTransport) ReadLine() (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.replies) == 0 {
		return "", errScriptExhausted
	}
	r := t.replies[0]
	t.replies = t.replies[1:]

	return r.line, r.err
}

func (t *scriptTransport) SetReadTimeout(d time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.readTimeout = d

	return nil
}

func (t *scriptTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.closed = true

	return nil
}

func (t *scriptTransport) respond(lines ...string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, line := range lines {
		t.replies = append(t.replies, reply{line: line})
	}
}

func (t *scriptTransport) respondErr(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.replies = append(t.replies, reply{err: err})
}

func (t *scriptTransport) written() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]string, len(t.writes))
	copy(out, t.writes)

	return out
}

// newTestSession creates a session over tp with sleeps stubbed out so
// tests run without real settle delays.
func newTestSession(t *testing.T, tp Transport, opts ...SessionOption) *Session {
	t.Helper()

	s, err := NewSession(tp, opts...)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	s.cfg.sleep = func(time.Duration) {}

	return s
}

// enterTestSession additionally enters UL mode and clears the recorded
// handshake write.
func enterTestSession(t *testing.T, tp *scriptTransport, opts ...SessionOption) *Session {
	t.Helper()

	s := newTestSession(t, tp, opts...)
	if err := s.Enter(); err != nil {
		t.Fatalf("Enter: %v", err)
	}
	tp.mu.Lock()
	tp.writes = nil
	tp.mu.Unlock()

	return s
}
