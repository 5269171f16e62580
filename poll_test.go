package kxci

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoll_Done(t *testing.T) {
	calls := 0
	err := Poll(context.Background(), time.Millisecond, time.Second, func() (bool, error) {
		calls++
		return calls >= 3, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestPoll_Timeout(t *testing.T) {
	err := Poll(context.Background(), time.Millisecond, 20*time.Millisecond, func() (bool, error) {
		return false, nil
	})

	assert.ErrorIs(t, err, ErrPollTimeout)
}

func TestPoll_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Poll(ctx, time.Millisecond, time.Second, func() (bool, error) {
		return false, nil
	})

	assert.ErrorIs(t, err, context.Canceled)
}

func TestPoll_CondError(t *testing.T) {
	boom := errors.New("status query failed")
	err := Poll(context.Background(), time.Millisecond, time.Second, func() (bool, error) {
		return false, boom
	})

	assert.ErrorIs(t, err, boom)
}

func TestSession_WaitStatus(t *testing.T) {
	tp := &scriptTransport{}
	s := enterTestSession(t, tp)
	tp.respond("RUNNING", "RUNNING", "DONE")

	err := s.WaitStatus(context.Background(), "SP", time.Millisecond, time.Second,
		func(resp string) bool { return resp == "DONE" })
	require.NoError(t, err)

	assert.Equal(t, []string{"SP", "SP", "SP"}, tp.written())
	assert.Equal(t, DefaultQueryReadTimeout, tp.readTimeout)
}

func TestSession_WaitStatus_ReadError(t *testing.T) {
	tp := &scriptTransport{}
	s := enterTestSession(t, tp)
	tp.respondErr(errors.New("link down"))

	err := s.WaitStatus(context.Background(), "SP", time.Millisecond, time.Second,
		func(string) bool { return true })

	var terr *TransportError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, "read", terr.Op)
}

func TestSession_WaitStatus_NotActive(t *testing.T) {
	s := newTestSession(t, &scriptTransport{})

	err := s.WaitStatus(context.Background(), "SP", time.Millisecond, time.Second,
		func(string) bool { return true })

	assert.ErrorIs(t, err, ErrSessionNotActive)
}
