package kxci

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCommand_CallString(t *testing.T) {
	cmd := Command{
		Module:   "A_Iv_Sweep",
		Function: "smu_ivsweep",
		Params: []Parameter{
			Float(5.0), Float(-5.0), Int(20), Int(1),
			OutputArray(), Int(21), OutputArray(), Int(21),
		},
	}

	assert.Equal(t, "EX A_Iv_Sweep smu_ivsweep(5,-5,20,1,,21,,21)", cmd.CallString(false))
}

func TestCommand_CallString_NoParams(t *testing.T) {
	cmd := Command{Module: "M", Function: "f"}
	assert.Equal(t, "EX M f()", cmd.CallString(false))
}

func TestCommand_CallString_QuotedStrings(t *testing.T) {
	cmd := Command{
		Module:   "PMU_Pulse",
		Function: "pmu_pulse",
		Params:   []Parameter{String("CH1"), Float(1.5)},
	}

	assert.Equal(t, `EX PMU_Pulse pmu_pulse("CH1",1.5)`, cmd.CallString(true))
	assert.Equal(t, "EX PMU_Pulse pmu_pulse(CH1,1.5)", cmd.CallString(false))
}

func TestCommand_OutputPositions(t *testing.T) {
	cmd := Command{
		Module:   "A_Iv_Sweep",
		Function: "smu_ivsweep",
		Params: []Parameter{
			Float(5.0), Float(-5.0), Int(20), Int(1),
			OutputArray(), Int(21), OutputArray(), Int(21),
		},
	}

	assert.Equal(t, []int{5, 7}, cmd.OutputPositions())

	none := Command{Module: "M", Function: "f", Params: []Parameter{Int(1)}}
	assert.Nil(t, none.OutputPositions())
}
