package kxci

import "sync/atomic"

// SessionMetrics contains atomic counters for a session.
// Counters can be used as the value of a prometheus CounterFunc.
type SessionMetrics struct {
	// ExecCount indicates the number of EX commands sent.
	ExecCount atomic.Uint64
	// ExecErrCount indicates the number of EX commands that failed at the
	// transport or protocol layer.
	ExecErrCount atomic.Uint64
	// ExecModuleErrCount indicates the number of negative return codes.
	ExecModuleErrCount atomic.Uint64

	// QueryCount indicates the number of GP queries issued.
	QueryCount atomic.Uint64
	// QueryRetryCount indicates the number of GP attempts beyond the
	// first.
	QueryRetryCount atomic.Uint64
	// QueryErrCount indicates the number of GP queries that exhausted
	// their attempts.
	QueryErrCount atomic.Uint64

	// DroppedTokenCount indicates the number of array-response tokens
	// that failed to parse and were dropped. The legacy clients dropped
	// them silently; the counter makes the loss observable.
	DroppedTokenCount atomic.Uint64
}

func (m *SessionMetrics) incExecCount()          { m.ExecCount.Add(1) }
func (m *SessionMetrics) incExecErrCount()       { m.ExecErrCount.Add(1) }
func (m *SessionMetrics) incExecModuleErrCount() { m.ExecModuleErrCount.Add(1) }
func (m *SessionMetrics) incQueryCount()         { m.QueryCount.Add(1) }
func (m *SessionMetrics) incQueryRetryCount()    { m.QueryRetryCount.Add(1) }
func (m *SessionMetrics) incQueryErrCount()      { m.QueryErrCount.Add(1) }

func (m *SessionMetrics) addDroppedTokens(n int) {
	if n > 0 {
		m.DroppedTokenCount.Add(uint64(n))
	}
}
