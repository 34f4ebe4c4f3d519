package dspcore

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestAgcConvergesTowardTargetRMS(t *testing.T) {
	const fs = 48000.0
	a := NewAgcState(fs)

	var peak float64
	n := int(fs)
	for i := 0; i < n; i++ {
		x := 0.05 * math.Sin(2*math.Pi*1600*float64(i)/fs) // quiet input
		y := a.Process(x)
		if i > n-100 { // last few cycles, well past settling
			if math.Abs(y) > peak {
				peak = math.Abs(y)
			}
		}
	}

	assert.InDelta(t, a.Target, peak, 0.25)
}

func TestAgcGainStaysWithinConfiguredBounds(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a := NewAgcState(48000)
		samples := rapid.SliceOfN(rapid.Float64Range(-1, 1), 1, 2000).Draw(t, "samples")

		for _, x := range samples {
			a.Process(x)
			if a.Gain() < a.GainMin || a.Gain() > a.GainMax {
				t.Fatalf("gain %v outside [%v, %v]", a.Gain(), a.GainMin, a.GainMax)
			}
		}
	})
}

func TestAgcNeverEmitsNaNOrInfForFiniteInput(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a := NewAgcState(48000)
		samples := rapid.SliceOfN(rapid.Float64Range(-1, 1), 1, 2000).Draw(t, "samples")

		for _, x := range samples {
			y := a.Process(x)
			if math.IsNaN(y) || math.IsInf(y, 0) {
				t.Fatalf("AGC emitted non-finite output: %v", y)
			}
		}
	})
}
