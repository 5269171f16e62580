package kxci

import "fmt"

// PulseTiming declares the waveform timing of a probe-train module, in
// seconds, as passed to the instrument. It mirrors the call parameters,
// so probe centers can be reconstructed without any response data.
type PulseTiming struct {
	// InitialDelay is the hold at base level before the first probe.
	InitialDelay float64
	// RiseTime is the transition onto each probe level.
	RiseTime float64
	// ProbeWidth is the flat top of each probe, within which the
	// measurement aperture sits.
	ProbeWidth float64
	// FallTime is the transition back to base level.
	FallTime float64
	// InterProbeDelay is the hold at base level between probes.
	InterProbeDelay float64
}

// ReconstructProbeTimes rebuilds probe-center timestamps for n probes by
// walking the declared waveform phases and accumulating elapsed time.
// Each probe contributes rise, flat top, fall and inter-probe delay; the
// center lands mid-aperture, at width*(low+high)/2 into the flat top.
//
// It is used as a fallback when the instrument's own timestamp array is
// missing or shorter than expected. The window pair is module-specific
// configuration, typically Module.Window.
//
// The result has exactly n strictly increasing values, guaranteed by a
// positive probe width.
func ReconstructProbeTimes(t PulseTiming, w ProbeWindow, n int) ([]float64, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: probe count %d must be positive", ErrInvalidPulseTiming, n)
	}
	if t.ProbeWidth <= 0 {
		return nil, fmt.Errorf("%w: probe width %v must be positive", ErrInvalidPulseTiming, t.ProbeWidth)
	}
	if t.InitialDelay < 0 || t.RiseTime < 0 || t.FallTime < 0 || t.InterProbeDelay < 0 {
		return nil, fmt.Errorf("%w: negative phase duration", ErrInvalidPulseTiming)
	}
	if w.IsZero() {
		return nil, fmt.Errorf("%w: window is unset", ErrInvalidProbeWindow)
	}
	if !w.Valid() {
		return nil, fmt.Errorf("%w: (%v, %v)", ErrInvalidProbeWindow, w.Low, w.High)
	}

	centerOffset := t.ProbeWidth * (w.Low + w.High) / 2.0

	centers := make([]float64, n)
	elapsed := t.InitialDelay
	for i := range centers {
		elapsed += t.RiseTime
		centers[i] = elapsed + centerOffset
		elapsed += t.ProbeWidth + t.FallTime + t.InterProbeDelay
	}

	return centers, nil
}

// ProbeTimes returns the instrument's own timestamp array when it holds
// at least n values, and otherwise reconstructs all n centers from the
// declared timing. Some modules return short or empty timestamp arrays
// under load; mixing measured and reconstructed values would skew the
// series, so the fallback is all or nothing.
func ProbeTimes(measured []float64, n int, t PulseTiming, w ProbeWindow) ([]float64, error) {
	if len(measured) >= n {
		return measured[:n], nil
	}

	return ReconstructProbeTimes(t, w, n)
}
