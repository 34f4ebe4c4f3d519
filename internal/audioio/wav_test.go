package audioio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWavRoundTripFloat32Stereo(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.wav")

	samples := []float32{0.1, -0.2, 0.5, -0.5, 1.0, -1.0}
	require.NoError(t, WriteWavFloat32Stereo(path, 48000, samples))

	out, info, err := ReadWavStereo(path, 48000)
	require.NoError(t, err)
	assert.Equal(t, 2, info.Channels)
	assert.Equal(t, 48000, info.SampleRateHz)
	require.Len(t, out, len(samples))
	for i := range samples {
		assert.InDelta(t, samples[i], out[i], 1e-6)
	}
}

func TestWavRejectsMismatchedSampleRate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.wav")
	require.NoError(t, WriteWavFloat32Stereo(path, 44100, []float32{0, 0}))

	_, _, err := ReadWavStereo(path, 48000)
	assert.Error(t, err)
}

func TestWavRejectsNonWavFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "not.wav")
	require.NoError(t, os.WriteFile(path, []byte("not a wav file at all"), 0o644))

	_, _, err := ReadWavStereo(path, 0)
	assert.Error(t, err)
}
