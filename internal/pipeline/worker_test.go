package pipeline

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/k0rdf/pdoppler/internal/bearing"
	"github.com/k0rdf/pdoppler/internal/dspcore"
)

// synthesizeStereo builds a stereo block: a doppler tone at fRot with the
// phase offset corresponding to bearingDeg, and a north pulse every
// rotation period on the other channel, starting at sample 0.
func synthesizeStereo(fs, fRot, bearingDeg float64, startIndex int64, nFrames int) dspcore.SampleBlock {
	samples := make([]float32, 2*nFrames)
	phaseOffset := bearingDeg * math.Pi / 180
	period := fs / fRot
	for i := 0; i < nFrames; i++ {
		n := startIndex + int64(i)
		doppler := 0.8 * math.Sin(2*math.Pi*fRot*float64(n)/fs+phaseOffset)
		samples[2*i] = float32(doppler)

		northPhase := math.Mod(float64(n), period)
		north := 0.0
		if northPhase < 2 {
			north = 1.0
		}
		samples[2*i+1] = float32(north)
	}
	return dspcore.SampleBlock{StartIndex: startIndex, Samples: samples}
}

func TestWorkerEmitsInRangeBearings(t *testing.T) {
	cfg := Default()
	cfg.SampleRateHz = 48000
	cfg.RotationHz = 1602
	cfg.OutputRateHz = 10

	in := dspcore.NewRingBuffer(64)
	out := dspcore.NewBoundedQueue[bearing.Sample](256)

	w, err := NewWorker(cfg, in, out, nil)
	require.NoError(t, err)

	const blockFrames = 960
	var idx int64
	for i := 0; i < 200; i++ {
		w.processBlock(synthesizeStereo(cfg.SampleRateHz, cfg.RotationHz, 90, idx, blockFrames))
		idx += blockFrames
	}

	var samples []bearing.Sample
	for {
		s, ok := out.Pop(5 * time.Millisecond)
		if !ok {
			break
		}
		samples = append(samples, s)
	}

	require.NotEmpty(t, samples)
	for _, s := range samples {
		assert.True(t, s.SmoothedDeg >= 0 && s.SmoothedDeg < 360)
		assert.True(t, s.RawDeg >= 0 && s.RawDeg < 360)
		assert.True(t, s.Confidence >= 0 && s.Confidence <= 1)
	}
}

func TestWorkerSilenceNeverEmitsConfidentSample(t *testing.T) {
	cfg := Default()
	in := dspcore.NewRingBuffer(64)
	out := dspcore.NewBoundedQueue[bearing.Sample](256)
	w, err := NewWorker(cfg, in, out, nil)
	require.NoError(t, err)

	const blockFrames = 960
	var idx int64
	for i := 0; i < 100; i++ {
		silent := dspcore.SampleBlock{StartIndex: idx, Samples: make([]float32, 2*blockFrames)}
		w.processBlock(silent)
		idx += blockFrames
	}

	for {
		s, ok := out.Pop(5 * time.Millisecond)
		if !ok {
			break
		}
		assert.Equal(t, 0.0, s.Confidence)
	}
}
