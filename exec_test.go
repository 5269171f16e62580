package kxci

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseReturnCode(t *testing.T) {
	tests := []struct {
		raw  string
		want int
		ok   bool
	}{
		{"RETURN VALUE = 0", 0, true},
		{"RETURN VALUE = -3", -3, true},
		{"RETURN VALUE=-3", -3, true},
		{"return value =  12", 12, true},
		{"junk before RETURN VALUE = -3 junk after", -3, true},
		{"Return Value = 7", 7, true},
		{"  -5  ", -5, true},
		{"42", 42, true},
		{"no code here", 0, false},
		{"", 0, false},
		{"RETURN VALUE = x", 0, false},
	}
	for _, tt := range tests {
		code, ok := parseReturnCode(tt.raw)
		assert.Equal(t, tt.ok, ok, "parseReturnCode(%q)", tt.raw)
		if tt.ok {
			assert.Equal(t, tt.want, code, "parseReturnCode(%q)", tt.raw)
		}
	}
}

func TestSession_Execute(t *testing.T) {
	tp := &scriptTransport{}
	s := enterTestSession(t, tp)
	tp.respond("EX complete. RETURN VALUE = 0")

	res, err := s.Execute("EX A_Iv_Sweep smu_ivsweep(5,-5,20,1,,21,,21)", 500*time.Millisecond)
	require.NoError(t, err)
	require.NotNil(t, res.ReturnCode)
	assert.Equal(t, 0, *res.ReturnCode)
	assert.Equal(t, []string{"EX A_Iv_Sweep smu_ivsweep(5,-5,20,1,,21,,21)"}, tp.written())
	assert.Equal(t, DefaultExecReadTimeout, tp.readTimeout)
}

func TestSession_Execute_NegativeCode(t *testing.T) {
	tp := &scriptTransport{}
	s := enterTestSession(t, tp)
	tp.respond("... RETURN VALUE = -3 ...")

	res, err := s.Execute("EX M f()", 0)
	require.NoError(t, err)
	require.NotNil(t, res.ReturnCode)
	assert.Equal(t, -3, *res.ReturnCode)
}

// An empty first response gets one second-chance read.
func TestSession_Execute_EmptyThenResponse(t *testing.T) {
	tp := &scriptTransport{}
	s := enterTestSession(t, tp)
	tp.respond("", "RETURN VALUE = 0")

	res, err := s.Execute("EX M f()", 0)
	require.NoError(t, err)
	assert.Equal(t, 0, *res.ReturnCode)
}

func TestSession_Execute_Indeterminate(t *testing.T) {
	tp := &scriptTransport{}
	s := enterTestSession(t, tp)
	tp.respond("gibberish response")

	res, err := s.Execute("EX M f()", 0)
	var perr *ProtocolError
	require.ErrorAs(t, err, &perr)
	assert.Nil(t, res.ReturnCode)
	assert.Equal(t, "gibberish response", res.Raw)
	assert.Equal(t, uint64(1), s.Metrics().ExecErrCount.Load())
}

func TestSession_Execute_ReadError(t *testing.T) {
	tp := &scriptTransport{}
	s := enterTestSession(t, tp)
	tp.respondErr(errors.New("timeout"))

	_, err := s.Execute("EX M f()", 0)
	var terr *TransportError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, "read", terr.Op)
}

func TestSession_Execute_WriteError(t *testing.T) {
	tp := &scriptTransport{}
	s := enterTestSession(t, tp)
	tp.mu.Lock()
	tp.writeErr = errors.New("link down")
	tp.mu.Unlock()

	_, err := s.Execute("EX M f()", 0)
	var terr *TransportError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, "write", terr.Op)
}

func TestSession_ExecuteModule(t *testing.T) {
	lib := DefaultLibrary()
	mod, ok := lib.Get("A_Iv_Sweep")
	require.True(t, ok)

	tp := &scriptTransport{}
	s := enterTestSession(t, tp)
	tp.respond(
		"RETURN VALUE = 0",
		"PARAM VALUE = 0.0;0.5;1.0",
		"1.0e-6;2.0e-6;3.0e-6",
	)

	params := []Parameter{
		Float(5.0), Float(-5.0), Int(20), Int(1),
		OutputArray(), Int(21), OutputArray(), Int(21),
	}
	res, err := s.ExecuteModule(mod, params, map[int]int{5: 3, 7: 3})
	require.NoError(t, err)

	assert.Equal(t, 0, *res.ReturnCode)
	assert.Empty(t, res.ArrayErrs)
	require.Contains(t, res.Arrays, 5)
	require.Contains(t, res.Arrays, 7)
	assert.Equal(t, []float64{0.0, 0.5, 1.0}, res.Arrays[5].Values)
	assert.Equal(t, []float64{1.0e-6, 2.0e-6, 3.0e-6}, res.Arrays[7].Values)

	writes := tp.written()
	require.Len(t, writes, 3)
	assert.Equal(t, "EX A_Iv_Sweep smu_ivsweep(5,-5,20,1,,21,,21)", writes[0])
	assert.Equal(t, "GP 5 3", writes[1])
	assert.Equal(t, "GP 7 3", writes[2])
}

func TestSession_ExecuteModule_ErrorCodeMapped(t *testing.T) {
	lib := DefaultLibrary()
	mod, _ := lib.Get("A_Iv_Sweep")

	tp := &scriptTransport{}
	s := enterTestSession(t, tp)
	tp.respond("RETURN VALUE = -3")

	params := []Parameter{
		Float(5.0), Float(-5.0), Int(20), Int(1),
		OutputArray(), Int(21), OutputArray(), Int(21),
	}
	_, err := s.ExecuteModule(mod, params, nil)

	var eerr *ExecutionError
	require.ErrorAs(t, err, &eerr)
	assert.Equal(t, -3, eerr.Code)
	assert.Equal(t, "A_Iv_Sweep", eerr.Module)
	assert.Equal(t, "instrument not configured for SMU operation", eerr.Message)
	assert.Equal(t, uint64(1), s.Metrics().ExecModuleErrCount.Load())
}

func TestSession_ExecuteModule_ValidationBeforeIO(t *testing.T) {
	lib := DefaultLibrary()
	mod, _ := lib.Get("A_Iv_Sweep")

	tp := &scriptTransport{}
	s := enterTestSession(t, tp)

	params := []Parameter{
		Float(500.0), Float(-5.0), Int(20), Int(1), // start_v out of range
		OutputArray(), Int(21), OutputArray(), Int(21),
	}
	_, err := s.ExecuteModule(mod, params, nil)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Empty(t, tp.written(), "validation failures must not reach the wire")
}

func TestSession_ExecuteModule_BadFetchPosition(t *testing.T) {
	lib := DefaultLibrary()
	mod, _ := lib.Get("A_Iv_Sweep")

	tp := &scriptTransport{}
	s := enterTestSession(t, tp)

	params := []Parameter{
		Float(5.0), Float(-5.0), Int(20), Int(1),
		OutputArray(), Int(21), OutputArray(), Int(21),
	}
	// Position 6 is v_size, not an output array.
	_, err := s.ExecuteModule(mod, params, map[int]int{6: 21})
	require.Error(t, err)
	assert.Empty(t, tp.written())
}

// A failed array query does not abort its siblings.
func TestSession_ExecuteModule_PartialRetrieval(t *testing.T) {
	lib := DefaultLibrary()
	mod, _ := lib.Get("A_Iv_Sweep")

	tp := &scriptTransport{}
	s := enterTestSession(t, tp)
	tp.respond(
		"RETURN VALUE = 0",
		"ERROR", "ERROR", "ERROR", // position 5 exhausts its attempts
		"1.0;2.0;3.0", // position 7 succeeds
	)

	params := []Parameter{
		Float(5.0), Float(-5.0), Int(20), Int(1),
		OutputArray(), Int(21), OutputArray(), Int(21),
	}
	res, err := s.ExecuteModule(mod, params, map[int]int{5: 3, 7: 3})
	require.NoError(t, err)

	var rerr *RetrievalError
	require.ErrorAs(t, res.ArrayErrs[5], &rerr)
	assert.Equal(t, 5, rerr.Position)
	assert.Equal(t, []float64{1.0, 2.0, 3.0}, res.Arrays[7].Values)
}

func TestSession_ExecuteModule_NilModule(t *testing.T) {
	s := enterTestSession(t, &scriptTransport{})
	_, err := s.ExecuteModule(nil, nil, nil)
	assert.ErrorIs(t, err, ErrModuleNil)
}
