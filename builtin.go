package kxci

import "time"

func fp(v float64) *float64 { return &v }

// mustRegister panics on a registration error. The built-in entries are
// static; a rejected one is a programming error, not a runtime condition.
func mustRegister(lib *Library, mod *Module) {
	if err := lib.Register(mod); err != nil {
		panic(err)
	}
}

// DefaultLibrary returns a library populated with the compiled test
// modules used by the measurement scripts. User YAML files loaded on top
// may extend or replace these entries.
func DefaultLibrary() *Library {
	lib := NewLibrary()

	// SMU staircase IV sweep. Two output arrays (voltage, current), each
	// preceded by its size parameter in the call signature.
	mustRegister(lib, &Module{
		Name:     "A_Iv_Sweep",
		Function: "smu_ivsweep",
		Params: []ParamSpec{
			{Name: "start_v", Type: "float", Min: fp(-210), Max: fp(210)},
			{Name: "stop_v", Type: "float", Min: fp(-210), Max: fp(210)},
			{Name: "num_points", Type: "int", Min: fp(1), Max: fp(4096)},
			{Name: "sweep_mode", Type: "int", Min: fp(0), Max: fp(3)},
			{Name: "v_meas", Type: "array"},
			{Name: "v_size", Type: "int", Min: fp(1), Max: fp(4096)},
			{Name: "i_meas", Type: "array"},
			{Name: "i_size", Type: "int", Min: fp(1), Max: fp(4096)},
		},
		ErrorCodes: map[int]string{
			-1: "invalid sweep range",
			-2: "compliance limit reached before sweep completed",
			-3: "instrument not configured for SMU operation",
			-4: "output array size smaller than requested point count",
		},
		Wait: WaitPolicy{Floor: 500 * time.Millisecond, PerPoint: 25 * time.Millisecond},
	})

	// Single PMU pulse with spot measurements on both segments.
	mustRegister(lib, &Module{
		Name:     "PMU_Pulse",
		Function: "pmu_pulse",
		Params: []ParamSpec{
			{Name: "amplitude_v", Type: "float", Min: fp(-40), Max: fp(40)},
			{Name: "base_v", Type: "float", Min: fp(-40), Max: fp(40)},
			{Name: "width_s", Type: "float", Min: fp(20e-9), Max: fp(1)},
			{Name: "rise_s", Type: "float", Min: fp(20e-9), Max: fp(0.033)},
			{Name: "v_meas", Type: "array"},
			{Name: "i_meas", Type: "array"},
			{Name: "size", Type: "int", Min: fp(1), Max: fp(65536)},
		},
		ErrorCodes: map[int]string{
			-1: "pulse timing outside PMU range",
			-2: "amplitude outside selected voltage range",
			-3: "load line effect compensation failed",
		},
		Wait:   WaitPolicy{Floor: 50 * time.Millisecond},
		Window: ProbeWindow{Low: 0.5, High: 0.7},
	})

	// PMU retention: one write pulse followed by a train of read probes.
	// The module frequently returns a short or missing timestamp array;
	// probe centers are reconstructed from the declared timing instead.
	mustRegister(lib, &Module{
		Name:     "PMU_Retention",
		Function: "pmu_retention",
		Params: []ParamSpec{
			{Name: "write_v", Type: "float", Min: fp(-40), Max: fp(40)},
			{Name: "read_v", Type: "float", Min: fp(-40), Max: fp(40)},
			{Name: "num_probes", Type: "int", Min: fp(1), Max: fp(10000)},
			{Name: "probe_width_s", Type: "float", Min: fp(20e-9), Max: fp(1)},
			{Name: "probe_delay_s", Type: "float", Min: fp(0), Max: fp(10)},
			{Name: "r_meas", Type: "array"},
			{Name: "t_meas", Type: "array"},
			{Name: "size", Type: "int", Min: fp(1), Max: fp(10000)},
		},
		ErrorCodes: map[int]string{
			-1: "probe train exceeds PMU segment memory",
			-2: "read voltage outside selected range",
		},
		Wait:   WaitPolicy{Floor: 500 * time.Millisecond, PerPoint: 2 * time.Millisecond},
		Window: ProbeWindow{Low: 0.4, High: 0.9},
	})

	// PMU endurance cycling with interleaved read probes.
	mustRegister(lib, &Module{
		Name:     "PMU_Endurance",
		Function: "pmu_endurance",
		Params: []ParamSpec{
			{Name: "set_v", Type: "float", Min: fp(-40), Max: fp(40)},
			{Name: "reset_v", Type: "float", Min: fp(-40), Max: fp(40)},
			{Name: "read_v", Type: "float", Min: fp(-40), Max: fp(40)},
			{Name: "num_cycles", Type: "int", Min: fp(1), Max: fp(1000000)},
			{Name: "pulse_width_s", Type: "float", Min: fp(20e-9), Max: fp(1)},
			{Name: "r_set", Type: "array"},
			{Name: "r_reset", Type: "array"},
			{Name: "size", Type: "int", Min: fp(1), Max: fp(65536)},
		},
		ErrorCodes: map[int]string{
			-1: "cycle count exceeds waveform memory",
			-2: "pulse width outside PMU range",
			-3: "channel compliance tripped during cycling",
		},
		Wait:   WaitPolicy{Floor: 500 * time.Millisecond, PerPoint: 1 * time.Millisecond},
		Window: ProbeWindow{Low: 0.4, High: 0.9},
	})

	return lib
}
