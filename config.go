package kxci

import (
	"fmt"
	"time"

	"github.com/Craig-Venables/kxci/logger"
)

// Default session timing values, matching observed instrument behavior.
const (
	// DefaultSettleDelay is the pause after mode-change and EX writes.
	DefaultSettleDelay = 30 * time.Millisecond

	// DefaultRereadDelay is the extra pause before the second-chance read
	// when an execution response comes back empty.
	DefaultRereadDelay = 50 * time.Millisecond

	// DefaultQuerySettle is the pause between writing a GP query and the
	// first read.
	DefaultQuerySettle = 25 * time.Millisecond

	// DefaultQueryAttempts is the number of GP attempts per output array.
	DefaultQueryAttempts = 3

	// DefaultExecReadTimeout is the transport read timeout while waiting
	// for an EX response. This is a distinct layer from the software
	// execution window: the window is how long the client chooses to
	// sleep, the read timeout is how long the link waits for bytes.
	DefaultExecReadTimeout = 30 * time.Second

	// DefaultQueryReadTimeout is the transport read timeout for GP reads.
	DefaultQueryReadTimeout = 5 * time.Second
)

// Session timing limits.
const (
	MinSettleDelay = 1 * time.Millisecond
	MaxSettleDelay = 1 * time.Second

	MinQueryAttempts = 1
	MaxQueryAttempts = 10

	MinReadTimeout = 100 * time.Millisecond
	MaxReadTimeout = 120 * time.Second
)

// defaultQueryBackoff is the pause before the read on GP attempts after
// the first, increasing per attempt.
var defaultQueryBackoff = []time.Duration{50 * time.Millisecond, 200 * time.Millisecond}

// SessionConfig holds the runtime knobs for a Session.
type SessionConfig struct {
	settleDelay      time.Duration
	rereadDelay      time.Duration
	querySettle      time.Duration
	queryBackoff     []time.Duration
	queryAttempts    int
	execReadTimeout  time.Duration
	queryReadTimeout time.Duration

	logger logger.Logger

	// sleep is replaceable so tests run without real delays.
	sleep func(time.Duration)
}

// NewSessionConfig creates a session configuration with defaults, then
// applies opts in order.
func NewSessionConfig(opts ...SessionOption) (*SessionConfig, error) {
	cfg := &SessionConfig{
		settleDelay:      DefaultSettleDelay,
		rereadDelay:      DefaultRereadDelay,
		querySettle:      DefaultQuerySettle,
		queryBackoff:     defaultQueryBackoff,
		queryAttempts:    DefaultQueryAttempts,
		execReadTimeout:  DefaultExecReadTimeout,
		queryReadTimeout: DefaultQueryReadTimeout,
		logger:           logger.GetLogger(),
		sleep:            time.Sleep,
	}

	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// SettleDelay returns the post-write settle delay.
func (cfg *SessionConfig) SettleDelay() time.Duration { return cfg.settleDelay }

// QueryAttempts returns the number of GP attempts per output array.
func (cfg *SessionConfig) QueryAttempts() int { return cfg.queryAttempts }

// ExecReadTimeout returns the transport read timeout for EX responses.
func (cfg *SessionConfig) ExecReadTimeout() time.Duration { return cfg.execReadTimeout }

// QueryReadTimeout returns the transport read timeout for GP responses.
func (cfg *SessionConfig) QueryReadTimeout() time.Duration { return cfg.queryReadTimeout }

// GetLogger returns the configured logger.
func (cfg *SessionConfig) GetLogger() logger.Logger { return cfg.logger }

// queryDelay returns the pre-read delay for a 1-based GP attempt number.
func (cfg *SessionConfig) queryDelay(attempt int) time.Duration {
	if attempt <= 1 {
		return cfg.querySettle
	}
	idx := attempt - 2
	if idx >= len(cfg.queryBackoff) {
		idx = len(cfg.queryBackoff) - 1
	}
	return cfg.queryBackoff[idx]
}

// SessionOption configures a SessionConfig.
type SessionOption interface {
	apply(cfg *SessionConfig) error
}

type sessionOptFunc func(cfg *SessionConfig) error

func (f sessionOptFunc) apply(cfg *SessionConfig) error { return f(cfg) }

func checkDelay(name string, d time.Duration) error {
	if d < MinSettleDelay || d > MaxSettleDelay {
		return fmt.Errorf("kxci: %s %v out of range [%v, %v]", name, d, MinSettleDelay, MaxSettleDelay)
	}
	return nil
}

func checkReadTimeout(name string, d time.Duration) error {
	if d < MinReadTimeout || d > MaxReadTimeout {
		return fmt.Errorf("kxci: %s %v out of range [%v, %v]", name, d, MinReadTimeout, MaxReadTimeout)
	}
	return nil
}

// WithSettleDelay sets the pause after mode-change and EX writes.
func WithSettleDelay(d time.Duration) SessionOption {
	return sessionOptFunc(func(cfg *SessionConfig) error {
		if err := checkDelay("settle delay", d); err != nil {
			return err
		}
		cfg.settleDelay = d
		return nil
	})
}

// WithRereadDelay sets the pause before the second-chance EX read.
func WithRereadDelay(d time.Duration) SessionOption {
	return sessionOptFunc(func(cfg *SessionConfig) error {
		if err := checkDelay("reread delay", d); err != nil {
			return err
		}
		cfg.rereadDelay = d
		return nil
	})
}

// WithQuerySettle sets the pause between a GP write and the first read.
func WithQuerySettle(d time.Duration) SessionOption {
	return sessionOptFunc(func(cfg *SessionConfig) error {
		if err := checkDelay("query settle", d); err != nil {
			return err
		}
		cfg.querySettle = d
		return nil
	})
}

// WithQueryBackoff sets the pre-read delays for GP attempts after the
// first. The last entry repeats for any further attempts.
func WithQueryBackoff(delays ...time.Duration) SessionOption {
	return sessionOptFunc(func(cfg *SessionConfig) error {
		if len(delays) == 0 {
			return fmt.Errorf("kxci: query backoff requires at least one delay")
		}
		for _, d := range delays {
			if err := checkDelay("query backoff", d); err != nil {
				return err
			}
		}
		cfg.queryBackoff = delays
		return nil
	})
}

// WithQueryAttempts sets the number of GP attempts per output array.
func WithQueryAttempts(n int) SessionOption {
	return sessionOptFunc(func(cfg *SessionConfig) error {
		if n < MinQueryAttempts || n > MaxQueryAttempts {
			return fmt.Errorf("kxci: query attempts %d out of range [%d, %d]", n, MinQueryAttempts, MaxQueryAttempts)
		}
		cfg.queryAttempts = n
		return nil
	})
}

// WithExecReadTimeout sets the transport read timeout for EX responses.
func WithExecReadTimeout(d time.Duration) SessionOption {
	return sessionOptFunc(func(cfg *SessionConfig) error {
		if err := checkReadTimeout("exec read timeout", d); err != nil {
			return err
		}
		cfg.execReadTimeout = d
		return nil
	})
}

// WithQueryReadTimeout sets the transport read timeout for GP responses.
func WithQueryReadTimeout(d time.Duration) SessionOption {
	return sessionOptFunc(func(cfg *SessionConfig) error {
		if err := checkReadTimeout("query read timeout", d); err != nil {
			return err
		}
		cfg.queryReadTimeout = d
		return nil
	})
}

// WithLogger sets the logger for the session.
func WithLogger(l logger.Logger) SessionOption {
	return sessionOptFunc(func(cfg *SessionConfig) error {
		if l == nil {
			return fmt.Errorf("kxci: logger is nil")
		}
		cfg.logger = l
		return nil
	})
}
