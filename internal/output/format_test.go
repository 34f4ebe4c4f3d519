package output

import (
	"bytes"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/k0rdf/pdoppler/internal/bearing"
)

func sampleForFormat() bearing.Sample {
	return bearing.Sample{
		Timestamp:          48000,
		RawDeg:             89.5,
		SmoothedDeg:        90.0,
		Confidence:         0.92,
		SnrDb:              18.4,
		Coherence:          0.8,
		SignalStrength:     0.7,
		HasLockQuality:     true,
		LockQuality:        0.95,
		PhaseScore:         0.9,
		FreqScore:          0.99,
		PhaseErrorVariance: 0.01,
	}
}

func TestTextFormatterMatchesSpecShape(t *testing.T) {
	var buf bytes.Buffer
	f := NewTextFormatter(&buf)
	require.NoError(t, f.Write(sampleForFormat()))
	assert.Contains(t, buf.String(), "Bearing: 90.0°")
	assert.Contains(t, buf.String(), "raw: 89.5°")
	assert.Contains(t, buf.String(), "confidence: 0.92")
}

func TestJsonFormatterOmitsLockFieldsInSimpleMode(t *testing.T) {
	var buf bytes.Buffer
	f := NewJsonFormatter(&buf, 48000)
	s := sampleForFormat()
	s.HasLockQuality = false
	require.NoError(t, f.Write(s))
	assert.NotContains(t, buf.String(), "lock_quality")
}

func TestJsonFormatterIncludesLockFieldsWhenPresent(t *testing.T) {
	var buf bytes.Buffer
	f := NewJsonFormatter(&buf, 48000)
	require.NoError(t, f.Write(sampleForFormat()))
	assert.Contains(t, buf.String(), "lock_quality")
}

func TestCsvFormatterWritesHeaderOnce(t *testing.T) {
	var buf bytes.Buffer
	f := NewCsvFormatter(&buf, 48000)
	require.NoError(t, f.Write(sampleForFormat()))
	require.NoError(t, f.Write(sampleForFormat()))
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3) // header + 2 rows
	assert.Equal(t, csvHeader[0], "timestamp_s")
}

func TestKn5rFormatterChecksum(t *testing.T) {
	var buf bytes.Buffer
	f := NewKn5rFormatter(&buf, 48000)
	require.NoError(t, f.Write(sampleForFormat()))
	line := strings.TrimRight(buf.String(), "\r\n")
	assert.True(t, strings.HasPrefix(line, "$KN5R,"))
	star := strings.Index(line, "*")
	require.Greater(t, star, 0)
	body := line[1:star]

	emitted, err := strconv.ParseUint(line[star+1:], 16, 8)
	require.NoError(t, err)
	assert.Equal(t, nmeaChecksum(body), byte(emitted))
}
