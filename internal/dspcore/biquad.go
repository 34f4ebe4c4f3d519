package dspcore

import "math"

// BiquadCoeffs holds one normalized (a0 == 1) second-order section.
type BiquadCoeffs struct {
	B0, B1, B2 float64
	A1, A2     float64
}

// BiquadState is the per-section memory of a biquad, kept in transposed
// direct-form II: two state registers instead of the four a naive
// direct-form I implementation would need, which is what keeps accumulated
// rounding error bounded across long cascades.
type BiquadState struct {
	w1, w2 float64
}

func (s *BiquadState) reset() {
	s.w1, s.w2 = 0, 0
}

// step runs one sample through the section.
func (c BiquadCoeffs) step(s *BiquadState, x float64) float64 {
	y := c.B0*x + s.w1
	s.w1 = c.B1*x - c.A1*y + s.w2
	s.w2 = c.B2*x - c.A2*y
	return y
}

// Filter is a cascade of biquad sections sharing one cutoff/passband
// definition, each with independent state. Cascading N/2 sections at
// Butterworth Q values reproduces an order-N Butterworth response without
// needing a general pole/zero solver.
type Filter struct {
	sections []BiquadCoeffs
	states   []BiquadState
	warmup   int
}

// Process filters one sample through every section in the cascade, in
// order.
func (f *Filter) Process(x float64) float64 {
	for i := range f.sections {
		x = f.sections[i].step(&f.states[i], x)
	}
	return x
}

// ProcessBlock filters an entire slice, returning a new slice; the input
// is left untouched since callers may need the raw samples for other
// paths.
func (f *Filter) ProcessBlock(in []float32) []float64 {
	out := make([]float64, len(in))
	for i, x := range in {
		out[i] = f.Process(float64(x))
	}
	return out
}

// Reset zeroes all section state on stream start.
func (f *Filter) Reset() {
	for i := range f.states {
		f.states[i].reset()
	}
}

// WarmupSamples is the number of leading output samples to discard before
// trusting the filter's transient response has settled, 4*order/bandwidth
// worth of samples.
func (f *Filter) WarmupSamples() int {
	return f.warmup
}

// butterworthQs returns the Q values for the N/2 cascaded biquad sections
// realizing an order-N (N even) Butterworth response, derived from the
// analog Butterworth pole angles: Q_k = 1 / (2*sin((2k-1)*pi/(2N))).
func butterworthQs(order int) []float64 {
	n := order / 2
	qs := make([]float64, n)
	for k := 1; k <= n; k++ {
		angle := float64(2*k-1) * math.Pi / float64(2*order)
		qs[k-1] = 1.0 / (2.0 * math.Sin(angle))
	}
	return qs
}

func rbjLowpass(f0, fs, q float64) BiquadCoeffs {
	w0 := 2 * math.Pi * f0 / fs
	cosw0 := math.Cos(w0)
	alpha := math.Sin(w0) / (2 * q)

	a0 := 1 + alpha
	return BiquadCoeffs{
		B0: ((1 - cosw0) / 2) / a0,
		B1: (1 - cosw0) / a0,
		B2: ((1 - cosw0) / 2) / a0,
		A1: (-2 * cosw0) / a0,
		A2: (1 - alpha) / a0,
	}
}

func rbjHighpass(f0, fs, q float64) BiquadCoeffs {
	w0 := 2 * math.Pi * f0 / fs
	cosw0 := math.Cos(w0)
	alpha := math.Sin(w0) / (2 * q)

	a0 := 1 + alpha
	return BiquadCoeffs{
		B0: ((1 + cosw0) / 2) / a0,
		B1: (-(1 + cosw0)) / a0,
		B2: ((1 + cosw0) / 2) / a0,
		A1: (-2 * cosw0) / a0,
		A2: (1 - alpha) / a0,
	}
}

// NewButterworthLowpass builds an order-N (N even) Butterworth lowpass
// cascade at cutoff cutoffHz, sampled at fs.
func NewButterworthLowpass(cutoffHz, fs float64, order int) *Filter {
	qs := butterworthQs(order)
	f := &Filter{
		sections: make([]BiquadCoeffs, len(qs)),
		states:   make([]BiquadState, len(qs)),
		warmup:   int(math.Ceil(4 * float64(order) / cutoffHz * fs)),
	}
	for i, q := range qs {
		f.sections[i] = rbjLowpass(cutoffHz, fs, q)
	}
	return f
}

// NewButterworthHighpass builds an order-N (N even) Butterworth highpass
// cascade at cutoff cutoffHz, sampled at fs.
func NewButterworthHighpass(cutoffHz, fs float64, order int) *Filter {
	qs := butterworthQs(order)
	f := &Filter{
		sections: make([]BiquadCoeffs, len(qs)),
		states:   make([]BiquadState, len(qs)),
		warmup:   int(math.Ceil(4 * float64(order) / cutoffHz * fs)),
	}
	for i, q := range qs {
		f.sections[i] = rbjHighpass(cutoffHz, fs, q)
	}
	return f
}

// NewButterworthBandpass builds an order-N (N even) bandpass cascade
// spanning [loHz, hiHz] at fs, realized as a highpass-then-lowpass
// cascade each of order N/2. This reuses the same cascaded-biquad
// machinery as the single-sided filters above rather than a dedicated
// bandpass pole/zero transform, trading a little passband flatness for a
// construction simple enough to reason about, which is all the Doppler
// tone extraction needs.
func NewButterworthBandpass(loHz, hiHz, fs float64, order int) *Filter {
	hp := NewButterworthHighpass(loHz, fs, order/2)
	lp := NewButterworthLowpass(hiHz, fs, order/2)

	f := &Filter{
		sections: append(append([]BiquadCoeffs{}, hp.sections...), lp.sections...),
		states:   make([]BiquadState, len(hp.sections)+len(lp.sections)),
		warmup:   int(math.Ceil(4 * float64(order) / (hiHz - loHz) * fs)),
	}
	return f
}

// NewOnePoleHighpass builds a single first-order high-pass section, used
// for DC removal where a full Butterworth cascade would be overkill for a
// ~1 Hz corner.
func NewOnePoleHighpass(cutoffHz, fs float64) *Filter {
	// Standard one-pole DC blocker: y[n] = x[n] - x[n-1] + r*y[n-1].
	r := 1.0 - (2 * math.Pi * cutoffHz / fs)
	return &Filter{
		sections: []BiquadCoeffs{{
			B0: 1,
			B1: -1,
			B2: 0,
			A1: -r,
			A2: 0,
		}},
		states: make([]BiquadState, 1),
		warmup: int(math.Ceil(4.0 * fs / cutoffHz)),
	}
}
