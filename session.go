package kxci

import (
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/Craig-Venables/kxci/logger"
)

// Mode handshake commands. UL enters User Library mode; DE leaves it.
// EX and GP commands are only accepted while UL mode is active.
const (
	cmdEnterUserLibrary = "UL"
	cmdExitUserLibrary  = "DE"
)

// Session is one KXCI control session over a physical connection.
//
// A session is created per connection, entered into UL mode with Enter,
// and destroyed with Close, which leaves UL mode on every exit path
// before releasing the transport.
//
// A session admits at most one in-flight Execute or QueryArray at a
// time and is otherwise unlocked; logical callers sharing a session must
// serialize access externally.
type Session struct {
	id      string
	tp      Transport
	cfg     *SessionConfig
	logger  logger.Logger
	metrics SessionMetrics

	active   atomic.Bool
	inFlight atomic.Bool
	closed   atomic.Bool
}

// NewSession creates a session over the given transport. The session
// starts inactive; call Enter before executing commands.
func NewSession(tp Transport, opts ...SessionOption) (*Session, error) {
	if tp == nil {
		return nil, ErrTransportNil
	}

	cfg, err := NewSessionConfig(opts...)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	s := &Session{
		id:     id,
		tp:     tp,
		cfg:    cfg,
		logger: cfg.logger.With("session", id),
	}

	return s, nil
}

// ID returns the session's unique identifier.
func (s *Session) ID() string { return s.id }

// Active reports whether the session is in UL mode.
func (s *Session) Active() bool { return s.active.Load() }

// Metrics returns the session's counters.
func (s *Session) Metrics() *SessionMetrics { return &s.metrics }

// Enter switches the instrument into User Library mode. It is
// idempotent: entering an already-active session is a no-op and does not
// resend the handshake.
func (s *Session) Enter() error {
	if s.closed.Load() {
		return ErrSessionClosed
	}
	if s.active.Load() {
		return nil
	}

	if err := s.tp.WriteLine(cmdEnterUserLibrary); err != nil {
		return &TransportError{Op: "write", Err: err}
	}
	s.cfg.sleep(s.cfg.settleDelay)
	s.active.Store(true)

	s.logger.Debug("entered user library mode")

	return nil
}

// Exit leaves User Library mode. It is a no-op when the session is not
// active.
func (s *Session) Exit() error {
	if !s.active.Load() {
		return nil
	}

	if err := s.tp.WriteLine(cmdExitUserLibrary); err != nil {
		return &TransportError{Op: "write", Err: err}
	}
	s.cfg.sleep(s.cfg.settleDelay)
	s.active.Store(false)

	s.logger.Debug("exited user library mode")

	return nil
}

// Close leaves UL mode and releases the transport. It runs Exit even
// when a prior command failed, and reports both the exit and transport
// close errors when they occur.
func (s *Session) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}

	err := s.Exit()
	if cerr := s.tp.Close(); cerr != nil {
		err = multierr.Append(err, &TransportError{Op: "close", Err: cerr})
	}

	return err
}

// beginCommand acquires the single-flight guard.
func (s *Session) beginCommand() error {
	if s.closed.Load() {
		return ErrSessionClosed
	}
	if !s.active.Load() {
		return ErrSessionNotActive
	}
	if !s.inFlight.CompareAndSwap(false, true) {
		return ErrSessionBusy
	}
	return nil
}

func (s *Session) endCommand() {
	s.inFlight.Store(false)
}
