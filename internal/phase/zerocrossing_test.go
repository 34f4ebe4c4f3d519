package phase

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func syntheticTone(periodSamples float64, n int, amp float64) []float64 {
	out := make([]float64, n)
	omega := 2 * math.Pi / periodSamples
	for i := range out {
		out[i] = amp * math.Sin(omega*float64(i))
	}
	return out
}

func TestZeroCrossingLocksOntoCleanTone(t *testing.T) {
	const period = 30.0
	window := syntheticTone(period, 600, 0.8)

	z := NewZeroCrossing()
	res := z.Process(window, Context{Fs: 48000, WindowStart: 0, NorthTime: math.NaN()})

	require.True(t, res.Valid)
	assert.Greater(t, res.Coherence, 0.9)
	assert.Greater(t, res.SignalStrength, 0.5)
	assert.Greater(t, res.SnrDb, 10.0)
}

func TestZeroCrossingRejectsTooShortWindow(t *testing.T) {
	z := NewZeroCrossing()
	res := z.Process([]float64{0.1}, Context{Fs: 48000})
	assert.False(t, res.Valid)
}

func TestZeroCrossingRejectsDCOnlyWindow(t *testing.T) {
	z := NewZeroCrossing()
	window := make([]float64, 100)
	for i := range window {
		window[i] = 0.4
	}
	res := z.Process(window, Context{Fs: 48000})
	assert.False(t, res.Valid)
}

func TestZeroCrossingHysteresisSurvivesAcrossWindows(t *testing.T) {
	const period = 40.0
	z := NewZeroCrossing()

	full := syntheticTone(period, 400, 0.7)
	half := len(full) / 2

	res1 := z.Process(full[:half], Context{Fs: 48000, WindowStart: 0, NorthTime: math.NaN()})
	res2 := z.Process(full[half:], Context{Fs: 48000, WindowStart: float64(half), NorthTime: math.NaN()})

	require.True(t, res1.Valid)
	require.True(t, res2.Valid)
}

func TestZeroCrossingResetClearsArming(t *testing.T) {
	z := NewZeroCrossing()
	z.armed = true
	z.Reset()
	assert.False(t, z.armed)
}
