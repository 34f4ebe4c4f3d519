package phase

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tone synthesizes amp*sin(omega*n + phi) over n samples.
func tone(omega, phi, amp float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = amp * math.Sin(omega*float64(i)+phi)
	}
	return out
}

func TestCorrelatorRecoversKnownPhase(t *testing.T) {
	const fs = 48000.0
	omega := 2 * math.Pi * 1602 / fs
	window := tone(omega, 0, 0.8, 600)

	c := NewCorrelator()
	for _, want := range []float64{0, math.Pi / 2, math.Pi, 3 * math.Pi / 2} {
		c.Reset()
		res := c.Process(tone(omega, want, 0.8, 600), Context{Fs: fs, Omega: omega})
		require.True(t, res.Valid)

		// atan2(Q, I) of sin(wn+phi) mixed against cos/sin references
		// lands at pi/2 - phi; only the relative mapping matters here,
		// so compare against the correlator's own zero-phase output.
		ref := c.Process(window, Context{Fs: fs, Omega: omega})
		diff := ref.Phase - res.Phase
		err := math.Atan2(math.Sin(diff-want), math.Cos(diff-want))
		assert.InDelta(t, 0, err, 0.05, "phase offset %v", want)
	}
}

func TestCorrelatorCleanToneMetrics(t *testing.T) {
	const fs = 48000.0
	omega := 2 * math.Pi * 1602 / fs
	window := tone(omega, 0.3, 0.8, 600)

	c := NewCorrelator()
	res := c.Process(window, Context{Fs: fs, Omega: omega})

	require.True(t, res.Valid)
	assert.Greater(t, res.SnrDb, 20.0)
	assert.Greater(t, res.Coherence, 0.95)
	assert.True(t, res.SignalStrength >= 0 && res.SignalStrength <= 1)
	assert.True(t, res.Phase >= 0 && res.Phase < 2*math.Pi)
}

func TestCorrelatorEmptyWindowInvalid(t *testing.T) {
	c := NewCorrelator()
	res := c.Process(nil, Context{Fs: 48000, Omega: 0.2})
	assert.False(t, res.Valid)
}

func TestCorrelatorAllZeroWindowNeverNaN(t *testing.T) {
	c := NewCorrelator()
	res := c.Process(make([]float64, 480), Context{Fs: 48000, Omega: 0.2})

	// A silent window carries no usable phase; whatever comes back must
	// be finite.
	assert.False(t, math.IsNaN(res.Phase))
	assert.False(t, math.IsNaN(res.Coherence))
	assert.False(t, math.IsNaN(res.SignalStrength))
}

func TestCorrelatorPowerReferenceDecays(t *testing.T) {
	const fs = 48000.0
	omega := 2 * math.Pi * 1602 / fs
	loud := tone(omega, 0, 0.9, 600)
	quiet := tone(omega, 0, 0.09, 600)

	c := NewCorrelator()
	res := c.Process(loud, Context{Fs: fs, Omega: omega, WindowStart: 0})
	require.True(t, res.Valid)
	assert.InDelta(t, 1.0, res.SignalStrength, 1e-9)

	// Immediately after the loud window, a 20 dB quieter tone reads as
	// weak against the barely-decayed peak-hold reference.
	res = c.Process(quiet, Context{Fs: fs, Omega: omega, WindowStart: 600})
	require.True(t, res.Valid)
	assert.Less(t, res.SignalStrength, 0.1)
}

func TestSubWindowCoherenceDropsOnFrequencyError(t *testing.T) {
	const fs = 48000.0
	omega := 2 * math.Pi * 1602 / fs

	c := NewCorrelator()
	good := c.Process(tone(omega, 0, 0.8, 600), Context{Fs: fs, Omega: omega})

	// Mix against a reference 8% off: the per-sub-window phases walk
	// around the circle and coherence collapses.
	bad := c.Process(tone(omega*1.08, 0, 0.8, 600), Context{Fs: fs, Omega: omega})

	require.True(t, good.Valid)
	require.True(t, bad.Valid)
	assert.Greater(t, good.Coherence, bad.Coherence)
	assert.Less(t, bad.Coherence, 0.5)
}
