package kxci

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Craig-Venables/kxci/logger"
)

func TestNewSessionConfig_Defaults(t *testing.T) {
	cfg, err := NewSessionConfig()
	require.NoError(t, err)

	assert.Equal(t, DefaultSettleDelay, cfg.SettleDelay())
	assert.Equal(t, DefaultQueryAttempts, cfg.QueryAttempts())
	assert.Equal(t, DefaultExecReadTimeout, cfg.ExecReadTimeout())
	assert.Equal(t, DefaultQueryReadTimeout, cfg.QueryReadTimeout())
	assert.NotNil(t, cfg.GetLogger())
}

func TestNewSessionConfig_WithOptions(t *testing.T) {
	mockLog := logger.NewMockLogger()
	cfg, err := NewSessionConfig(
		WithSettleDelay(10*time.Millisecond),
		WithRereadDelay(20*time.Millisecond),
		WithQuerySettle(5*time.Millisecond),
		WithQueryBackoff(100*time.Millisecond, 400*time.Millisecond),
		WithQueryAttempts(5),
		WithExecReadTimeout(60*time.Second),
		WithQueryReadTimeout(10*time.Second),
		WithLogger(mockLog),
	)
	require.NoError(t, err)

	assert.Equal(t, 10*time.Millisecond, cfg.SettleDelay())
	assert.Equal(t, 5, cfg.QueryAttempts())
	assert.Equal(t, 60*time.Second, cfg.ExecReadTimeout())
	assert.Equal(t, 10*time.Second, cfg.QueryReadTimeout())
	assert.Same(t, mockLog, cfg.GetLogger().(*logger.MockLogger))
}

func TestNewSessionConfig_InvalidOptions(t *testing.T) {
	tests := []struct {
		name string
		opt  SessionOption
	}{
		{"settle too small", WithSettleDelay(0)},
		{"settle too large", WithSettleDelay(2 * time.Second)},
		{"reread out of range", WithRereadDelay(5 * time.Second)},
		{"query settle out of range", WithQuerySettle(0)},
		{"empty backoff", WithQueryBackoff()},
		{"backoff out of range", WithQueryBackoff(10 * time.Second)},
		{"attempts too small", WithQueryAttempts(0)},
		{"attempts too large", WithQueryAttempts(11)},
		{"exec timeout too small", WithExecReadTimeout(time.Millisecond)},
		{"query timeout too large", WithQueryReadTimeout(10 * time.Minute)},
		{"nil logger", WithLogger(nil)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSessionConfig(tt.opt)
			assert.Error(t, err)
		})
	}
}

func TestSessionConfig_QueryDelay(t *testing.T) {
	cfg, err := NewSessionConfig(
		WithQuerySettle(25*time.Millisecond),
		WithQueryBackoff(50*time.Millisecond, 200*time.Millisecond),
		WithQueryAttempts(5),
	)
	require.NoError(t, err)

	assert.Equal(t, 25*time.Millisecond, cfg.queryDelay(1))
	assert.Equal(t, 50*time.Millisecond, cfg.queryDelay(2))
	assert.Equal(t, 200*time.Millisecond, cfg.queryDelay(3))
	// Last backoff entry repeats for further attempts.
	assert.Equal(t, 200*time.Millisecond, cfg.queryDelay(4))
	assert.Equal(t, 200*time.Millisecond, cfg.queryDelay(5))
}
