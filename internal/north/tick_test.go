package north

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func syntheticPulseTrain(fs, periodSamples float64, nPulses int, pulseAmp float64) []float64 {
	total := int(periodSamples*float64(nPulses) + periodSamples)
	out := make([]float64, total)
	for p := 0; p < nPulses; p++ {
		center := int(float64(p) * periodSamples)
		if center >= 1 && center < len(out)-1 {
			out[center-1] = pulseAmp * 0.3
			out[center] = pulseAmp
			out[center+1] = pulseAmp * 0.3
		}
	}
	return out
}

func TestDetectorFindsEvenlySpacedTicks(t *testing.T) {
	const fs = 48000.0
	const period = fs / 1602.0 // ~29.96 samples
	samples := syntheticPulseTrain(fs, period, 20, 0.9)

	d := NewDetector(NewDetectorConfig(fs))
	ticks := d.Process(samples, 0)

	require.GreaterOrEqual(t, len(ticks), 15)

	for i := 1; i < len(ticks); i++ {
		gap := float64(ticks[i].SampleIndex-ticks[i-1].SampleIndex) +
			(ticks[i].FracOffset - ticks[i-1].FracOffset)
		assert.InDelta(t, period, gap, 1.0)
	}
}

func TestDetectorRejectsSubThresholdNoise(t *testing.T) {
	d := NewDetector(NewDetectorConfig(48000))
	noise := make([]float64, 1000)
	for i := range noise {
		noise[i] = 0.05 * math.Sin(float64(i))
	}
	ticks := d.Process(noise, 0)
	assert.Empty(t, ticks)
}

func TestDetectorEnforcesMinimumInterval(t *testing.T) {
	cfg := NewDetectorConfig(48000)
	d := NewDetector(cfg)

	// Two pulses closer together than MinInterval: only the first counts.
	samples := make([]float64, 200)
	samples[50] = 0.9
	samples[50+cfg.MinInterval/2] = 0.9
	ticks := d.Process(samples, 0)
	assert.Len(t, ticks, 1)
}

func TestParabolicOffsetStaysInRange(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ym1 := rapid.Float64Range(-1, 1).Draw(t, "ym1")
		y0 := rapid.Float64Range(-1, 1).Draw(t, "y0")
		yp1 := rapid.Float64Range(-1, 1).Draw(t, "yp1")

		delta := parabolicOffset(ym1, y0, yp1)
		if delta <= -0.5 || delta > 0.5 {
			t.Fatalf("offset %v outside (-0.5, 0.5]", delta)
		}
	})
}
