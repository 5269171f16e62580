package kxci

import (
	"context"
	"strings"
	"time"
)

// Poll invokes cond every interval until it reports done, returning nil.
// It gives up with ErrPollTimeout when the timeout elapses first, with
// ctx.Err() when the context is canceled, and with cond's error when one
// is returned.
//
// Poll replaces the hardcoded sleep loops used for PMU execution-status
// polling: the caller supplies the status check, the loop supplies
// bounded waiting and cancellation. The first check runs after one
// interval, not immediately; a status register read too early reports
// stale state on some firmware.
func Poll(ctx context.Context, interval, timeout time.Duration, cond func() (bool, error)) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return ErrPollTimeout
		case <-ticker.C:
			done, err := cond()
			if err != nil {
				return err
			}
			if done {
				return nil
			}
		}
	}
}

// WaitStatus polls an instrument status query until done accepts the
// trimmed response, checking every interval up to timeout. Long-running
// PMU modules expose a status register this way; the query text is
// instrument-specific.
//
// Each check writes the query, pauses for the configured query settle,
// and reads one line. The single-flight guard is taken per check, so a
// failed Enter or a concurrent command surfaces as the usual session
// errors.
func (s *Session) WaitStatus(ctx context.Context, query string, interval, timeout time.Duration, done func(string) bool) error {
	return Poll(ctx, interval, timeout, func() (bool, error) {
		resp, err := s.statusQuery(query)
		if err != nil {
			return false, err
		}
		return done(resp), nil
	})
}

// statusQuery performs one write-pause-read round trip of a status query.
func (s *Session) statusQuery(query string) (string, error) {
	if err := s.beginCommand(); err != nil {
		return "", err
	}
	defer s.endCommand()

	if err := s.tp.SetReadTimeout(s.cfg.queryReadTimeout); err != nil {
		return "", &TransportError{Op: "timeout", Err: err}
	}
	if err := s.tp.WriteLine(query); err != nil {
		return "", &TransportError{Op: "write", Err: err}
	}
	s.cfg.sleep(s.cfg.querySettle)

	raw, err := s.tp.ReadLine()
	if err != nil {
		return "", &TransportError{Op: "read", Err: err}
	}

	return strings.TrimSpace(raw), nil
}
