package dspcore

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestButterworthLowpassAttenuatesAboveCutoff(t *testing.T) {
	const fs = 48000.0
	f := NewButterworthLowpass(1000, fs, 4)

	// Steady-state gain at a frequency well above cutoff should be small.
	gain := steadyStateGain(f, 8000, fs)
	assert.Less(t, gain, 0.1)
}

func TestButterworthHighpassAttenuatesBelowCutoff(t *testing.T) {
	const fs = 48000.0
	f := NewButterworthHighpass(5000, fs, 4)

	gain := steadyStateGain(f, 200, fs)
	assert.Less(t, gain, 0.1)
}

func TestButterworthBandpassPassesMidbandAndRejectsFarTones(t *testing.T) {
	const fs = 48000.0
	f := NewButterworthBandpass(1500, 1700, fs, 4)

	mid := steadyStateGain(f, 1600, fs)
	low := steadyStateGain(f, 100, fs)
	high := steadyStateGain(f, 20000, fs)

	assert.Greater(t, mid, 0.3)
	assert.Less(t, low, mid)
	assert.Less(t, high, mid)
}

func TestFilterNeverEmitsNaNOrInfForFiniteInput(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		const fs = 48000.0
		f := NewButterworthBandpass(1500, 1700, fs, 4)

		samples := rapid.SliceOfN(rapid.Float64Range(-1, 1), 1, 500).Draw(t, "samples")
		for _, x := range samples {
			y := f.Process(x)
			if math.IsNaN(y) || math.IsInf(y, 0) {
				t.Fatalf("filter emitted non-finite output for finite input: %v", y)
			}
		}
	})
}

// steadyStateGain drives the filter with a long sinusoid at freqHz and
// measures the amplitude of the settled output relative to the (unit)
// input amplitude.
func steadyStateGain(f *Filter, freqHz, fs float64) float64 {
	f.Reset()
	n := 4000
	var peak float64
	for i := 0; i < n; i++ {
		x := math.Sin(2 * math.Pi * freqHz * float64(i) / fs)
		y := f.Process(x)
		if i > n/2 { // skip transient
			if math.Abs(y) > peak {
				peak = math.Abs(y)
			}
		}
	}
	return peak
}
