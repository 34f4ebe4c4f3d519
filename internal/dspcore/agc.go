package dspcore

import "math"

// AgcState levels the Doppler channel to a target RMS before bandpass
// filtering: a two-coefficient envelope follower with a fast attack and a
// slow release, tracking the rectified envelope against one target level.
type AgcState struct {
	Target      float64
	AttackCoef  float64
	ReleaseCoef float64
	GainMin     float64
	GainMax     float64

	envelope float64
	gain     float64
}

const agcEpsilon = 1e-6

// NewAgcState builds an AGC with a ~10 ms attack, ~100 ms release, target
// RMS 0.5, and gain clamped to [0.01, 100].
func NewAgcState(fs float64) *AgcState {
	return &AgcState{
		Target:      0.5,
		AttackCoef:  1 - math.Exp(-1/(fs*0.010)),
		ReleaseCoef: 1 - math.Exp(-1/(fs*0.100)),
		GainMin:     0.01,
		GainMax:     100,
		envelope:    0,
		gain:        1,
	}
}

// Reset clears the envelope and gain state on stream start.
func (a *AgcState) Reset() {
	a.envelope = 0
	a.gain = 1
}

// Process levels one sample and returns the gained output.
func (a *AgcState) Process(x float64) float64 {
	mag := math.Abs(x)
	if mag > a.envelope {
		a.envelope += a.AttackCoef * (mag - a.envelope)
	} else {
		a.envelope += a.ReleaseCoef * (mag - a.envelope)
	}

	a.gain = a.Target / math.Max(a.envelope, agcEpsilon)
	if a.gain < a.GainMin {
		a.gain = a.GainMin
	} else if a.gain > a.GainMax {
		a.gain = a.GainMax
	}

	return x * a.gain
}

// ProcessBlock levels an entire block, returning a new slice.
func (a *AgcState) ProcessBlock(in []float64) []float64 {
	out := make([]float64, len(in))
	for i, x := range in {
		out[i] = a.Process(x)
	}
	return out
}

// Gain reports the current applied gain, useful for diagnostics.
func (a *AgcState) Gain() float64 {
	return a.gain
}
