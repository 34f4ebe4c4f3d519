// Package north detects north-reference ticks on the highpass-filtered
// north channel and tracks the antenna rotation against them, either via
// the DPLL (default) or the simple exponentially-smoothed tracker.
package north

// Tick is a single detected north-reference pulse: the integer sample
// index of its peak, a sub-sample fractional refinement, its amplitude,
// and which detector produced it. Created by Detector.Process, consumed
// by the DPLL/simple tracker and the bearing calculator, then dropped once
// the smoothing window no longer references it.
type Tick struct {
	SampleIndex int64
	FracOffset  float64 // (-0.5, 0.5], parabolic-interpolated peak offset
	Amplitude   float64
	Method      string
}

// DetectorConfig holds the tunable thresholds for the peak detector.
type DetectorConfig struct {
	// Threshold is the minimum normalized amplitude a candidate peak must
	// exceed to be considered a tick. Default 0.15: low enough to tolerate
	// moderate north-channel level variation, high enough to reject
	// bandpass-filter ringing on the Doppler tone leaking into this
	// channel.
	Threshold float64

	// MinInterval is the minimum number of samples between two ticks,
	// excluding a second detection inside one commutator slot. Default is
	// 0.6 ms worth of samples (~29 at 48 kHz): just shorter than one
	// rotation period near the nominal 1602 Hz (~30 samples), long enough
	// to reject ringing right after a genuine pulse.
	MinInterval int
}

// NewDetectorConfig returns the defaults for sample rate fs.
func NewDetectorConfig(fs float64) *DetectorConfig {
	return &DetectorConfig{
		Threshold:   0.15,
		MinInterval: int(0.6e-3*fs + 0.5),
	}
}

// Detector finds rising peaks in a stream of highpass-filtered north
// samples fed in block by block. It keeps the 2-sample trailing window
// needed to test the oldest unreported sample for a local maximum.
type Detector struct {
	cfg *DetectorConfig

	prev2, prev1 float64
	seen         int

	lastTickIndex int64
	haveLastTick  bool
}

// NewDetector creates a detector using cfg. A nil cfg is not valid; use
// NewDetectorConfig to build one.
func NewDetector(cfg *DetectorConfig) *Detector {
	return &Detector{cfg: cfg}
}

// Reset clears all detector state, as required on stream start.
func (d *Detector) Reset() {
	d.prev2, d.prev1 = 0, 0
	d.seen = 0
	d.haveLastTick = false
}

// Process scans samples (highpass-filtered north channel), whose first
// element is at absolute sample index startIndex, and returns every tick
// detected within the window (including, at the edges, ticks whose peak
// sample arrived in a previous call; the 1-sample lag is intrinsic to a
// causal 3-point local-maximum test).
func (d *Detector) Process(samples []float64, startIndex int64) []Tick {
	var ticks []Tick

	for i, y := range samples {
		idx := startIndex + int64(i)

		if d.seen >= 2 {
			candIdx := idx - 1
			cand := d.prev1

			isPeak := cand > d.prev2 && cand > y
			if isPeak && cand > d.cfg.Threshold && d.intervalOK(candIdx) {
				delta := parabolicOffset(d.prev2, cand, y)
				ticks = append(ticks, Tick{
					SampleIndex: candIdx,
					FracOffset:  delta,
					Amplitude:   cand,
					Method:      "peak",
				})
				d.lastTickIndex = candIdx
				d.haveLastTick = true
			}
		}

		d.prev2 = d.prev1
		d.prev1 = y
		d.seen++
	}

	return ticks
}

func (d *Detector) intervalOK(candIdx int64) bool {
	if !d.haveLastTick {
		return true
	}
	return candIdx-d.lastTickIndex >= int64(d.cfg.MinInterval)
}

// parabolicOffset fits a parabola through three equally spaced samples
// (ym1, y0, yp1) centered on the candidate peak y0 and returns the
// sub-sample offset of the true peak from index 0, clamped to (-0.5, 0.5].
func parabolicOffset(ym1, y0, yp1 float64) float64 {
	denom := ym1 - 2*y0 + yp1
	if denom == 0 {
		return 0
	}
	delta := 0.5 * (ym1 - yp1) / denom
	if delta <= -0.5 {
		delta = -0.5 + 1e-9
	} else if delta > 0.5 {
		delta = 0.5
	}
	return delta
}
